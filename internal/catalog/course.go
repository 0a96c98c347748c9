// Package catalog defines the typed domain model a crawl produces: course
// instances composed of meeting events, instructors, and weekday sets.
// Values here are built up by the results parser and read-only afterward.
package catalog

import (
	"fmt"
	"math"
	"sort"

	"github.com/tritonscrape/tritonscrape/internal/siteconfig"
)

// VariableUnits marks a course whose credit-unit count varies; the site
// prints a range or slash instead of a number.
var VariableUnits = math.NaN()

// CourseInstance is one offering of a course in one term. It is created from
// a results-page header row, grows as its block's meeting rows are parsed,
// and is handed to the caller once the block is exhausted.
//
// An instance with no events in any bucket is wholly cancelled; the
// classifier discards those rather than emitting them.
type CourseInstance struct {
	SubjectCode  string
	CourseNumber string
	// Name is the descriptive course title.
	Name string
	// Units is the credit-unit count; NaN means variable units.
	Units float64
	// Restrictions holds human-readable registration restriction
	// descriptions, deduplicated and sorted.
	Restrictions []string
	// PrerequisitesURL links to the course's prerequisites page.
	PrerequisitesURL string

	// Instructor is the course's primary instructor: the first non-TBA
	// instructor seen across added events. Nil until one appears; never
	// overwritten by later rows.
	Instructor *Instructor

	// Final is the final exam, if one was listed.
	Final *OneShotMeeting

	codes  siteconfig.MeetingTypeCodes
	events map[string][]Meeting
}

// NewCourseInstance builds an empty course instance with one event bucket
// per normal meeting-type code.
func NewCourseInstance(codes siteconfig.MeetingTypeCodes, subject, number, name string, units float64, restrictions []string) *CourseInstance {
	events := make(map[string][]Meeting, len(codes.Normal()))
	for _, code := range codes.Normal() {
		events[code] = nil
	}

	seen := make(map[string]bool, len(restrictions))
	deduped := make([]string, 0, len(restrictions))
	for _, r := range restrictions {
		if !seen[r] {
			seen[r] = true
			deduped = append(deduped, r)
		}
	}
	sort.Strings(deduped)

	return &CourseInstance{
		SubjectCode:  subject,
		CourseNumber: number,
		Name:         name,
		Units:        units,
		Restrictions: deduped,
		codes:        codes,
		events:       events,
	}
}

// Code is the full course code, e.g. "CSE 15L".
func (c *CourseInstance) Code() string {
	return c.SubjectCode + " " + c.CourseNumber
}

// VariableUnits reports whether the unit count is variable.
func (c *CourseInstance) VariableUnits() bool {
	return math.IsNaN(c.Units)
}

// AddEvent appends an event to the bucket for the given meeting-type code.
// The code must be one of the recognized normal types. The first event
// carrying a named (non-TBA) instructor fixes the course's primary
// instructor.
func (c *CourseInstance) AddEvent(typeCode string, m Meeting) error {
	bucket, ok := c.events[typeCode]
	if !ok {
		return fmt.Errorf("unrecognized meeting type code %q", typeCode)
	}
	c.events[typeCode] = append(bucket, m)

	if c.Instructor == nil {
		if inst := m.MeetingInstructor(); inst != nil && !inst.TBA() {
			c.Instructor = inst
		}
	}
	return nil
}

// Events returns the accumulated events for one meeting-type code, in the
// order they were added. The returned slice is a read-only view.
func (c *CourseInstance) Events(typeCode string) []Meeting {
	return c.events[typeCode]
}

// IsCancelled reports whether every event bucket is empty. The site leaves
// the header row in place when it cancels all of a course's meetings.
func (c *CourseInstance) IsCancelled() bool {
	for _, bucket := range c.events {
		if len(bucket) > 0 {
			return false
		}
	}
	return true
}

// Per-type accessors. One per recognized normal meeting type; the fixed
// enumeration here is deliberate so that adding a type is a compile-time
// change at every consumption site.

func (c *CourseInstance) Lectures() []Meeting        { return c.events[c.codes.Lecture] }
func (c *CourseInstance) Discussions() []Meeting     { return c.events[c.codes.Discussion] }
func (c *CourseInstance) Labs() []Meeting            { return c.events[c.codes.Lab] }
func (c *CourseInstance) Tutorials() []Meeting       { return c.events[c.codes.Tutorial] }
func (c *CourseInstance) Seminars() []Meeting        { return c.events[c.codes.Seminar] }
func (c *CourseInstance) Studios() []Meeting         { return c.events[c.codes.Studio] }
func (c *CourseInstance) Films() []Meeting           { return c.events[c.codes.Film] }
func (c *CourseInstance) Midterms() []Meeting        { return c.events[c.codes.Midterm] }
func (c *CourseInstance) ProblemSessions() []Meeting { return c.events[c.codes.ProblemSession] }
func (c *CourseInstance) ReviewSessions() []Meeting  { return c.events[c.codes.ReviewSession] }
func (c *CourseInstance) MakeUpSessions() []Meeting  { return c.events[c.codes.MakeUpSession] }

// AllEvents yields every (type code, event) pair in bucket order.
func (c *CourseInstance) AllEvents() []TypedEvent {
	var out []TypedEvent
	for _, code := range c.codes.Normal() {
		for _, m := range c.events[code] {
			out = append(out, TypedEvent{TypeCode: code, Event: m})
		}
	}
	return out
}

// TypedEvent pairs an event with the meeting-type code it was filed under.
type TypedEvent struct {
	TypeCode string
	Event    Meeting
}

func (c *CourseInstance) String() string {
	inst := "(TBA)"
	if c.Instructor != nil {
		inst = c.Instructor.String()
	}
	return fmt.Sprintf("%s %q (%v units) with %s", c.Code(), c.Name, c.Units, inst)
}
