package catalog

import (
	"fmt"
	"math"
	"time"

	"github.com/tritonscrape/tritonscrape/internal/campus"
)

// TimeOfDay is a wall-clock time with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes returns the time as minutes past midnight, for duration math.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// Unlimited is the seat count used when the site marks a section as having
// no seating limit.
var Unlimited = math.Inf(1)

// Seating is the seat availability of a seat-limited meeting.
//
// Available is the number of open seats when non-negative; a negative value
// means a waitlist of that absolute length. Unlimited/Unlimited means no
// seating limit at all.
type Seating struct {
	Available float64
	Total     float64
}

// Full reports whether no open seats remain.
func (s Seating) Full() bool {
	return s.Available <= 0
}

// UnlimitedSeating reports whether the section has no seat limit.
func (s Seating) UnlimitedSeating() bool {
	return math.IsInf(s.Available, 1)
}

// HowFull is the occupied fraction: 0 for unlimited seating, above 1 for a
// waitlisted section.
func (s Seating) HowFull() float64 {
	switch {
	case s.UnlimitedSeating():
		return 0
	case s.Available < 0:
		return (math.Abs(s.Available) + s.Total) / s.Total
	default:
		return s.Available / s.Total
	}
}

func (s Seating) String() string {
	if s.UnlimitedSeating() {
		return "(no seating limit)"
	}
	return fmt.Sprintf("%.0f open/%.0f total", s.Available, s.Total)
}

// MeetingKind tags the Meeting variants for exhaustive switches.
type MeetingKind int

const (
	KindRecurring MeetingKind = iota
	KindRecurringSeated
	KindSeated
	KindOneShot
)

// Meeting is one scheduled activity belonging to a course instance. Exactly
// four variants exist; switch on Kind to recover the concrete type.
type Meeting interface {
	Kind() MeetingKind
	// MeetingInstructor is the instructor attached to this meeting row, or
	// nil when the row carried none (one-shot events never carry one).
	MeetingInstructor() *Instructor
}

// RecurringMeeting is a weekly-repeating meeting without seat data, e.g. a
// lecture.
type RecurringMeeting struct {
	SectionNumber string
	Instructor    *Instructor
	Start         TimeOfDay
	End           TimeOfDay
	Days          DaysOfWeekSet
	Location      campus.Location
}

func (m RecurringMeeting) Kind() MeetingKind              { return KindRecurring }
func (m RecurringMeeting) MeetingInstructor() *Instructor { return m.Instructor }

func (m RecurringMeeting) String() string {
	return fmt.Sprintf("[%s] %s %s-%s in %s", m.SectionNumber, m.Days, m.Start, m.End, m.Location)
}

// RecurringSeatedMeeting is a weekly-repeating, seat-limited meeting, e.g. a
// discussion section with an enrollment cap.
type RecurringSeatedMeeting struct {
	// SectionID is the globally unique identifier for this section.
	SectionID     int
	SectionNumber string
	Instructor    *Instructor
	Start         TimeOfDay
	End           TimeOfDay
	Days          DaysOfWeekSet
	Location      campus.Location
	Seats         Seating
	// BookstoreURL links to the section's textbook list.
	BookstoreURL string
}

func (m RecurringSeatedMeeting) Kind() MeetingKind              { return KindRecurringSeated }
func (m RecurringSeatedMeeting) MeetingInstructor() *Instructor { return m.Instructor }

func (m RecurringSeatedMeeting) String() string {
	return fmt.Sprintf("%d [%s] %s %s-%s in %s %s",
		m.SectionID, m.SectionNumber, m.Days, m.Start, m.End, m.Location, m.Seats)
}

// SeatedMeeting is seat-limited but its time and location are still to be
// announced.
type SeatedMeeting struct {
	SectionID     int
	SectionNumber string
	Instructor    *Instructor
	Seats         Seating
	BookstoreURL  string
}

func (m SeatedMeeting) Kind() MeetingKind              { return KindSeated }
func (m SeatedMeeting) MeetingInstructor() *Instructor { return m.Instructor }

func (m SeatedMeeting) String() string {
	return fmt.Sprintf("%d [%s] %s", m.SectionID, m.SectionNumber, m.Seats)
}

// OneShotMeeting happens exactly once: finals, midterms, review sessions.
type OneShotMeeting struct {
	Date     time.Time
	Start    TimeOfDay
	End      TimeOfDay
	Location campus.Location
}

func (m OneShotMeeting) Kind() MeetingKind              { return KindOneShot }
func (m OneShotMeeting) MeetingInstructor() *Instructor { return nil }

// Equal reports whether two one-shot meetings are the same event. Used to
// tolerate a final exam being listed twice with identical data.
func (m OneShotMeeting) Equal(o OneShotMeeting) bool {
	return m.Date.Equal(o.Date) && m.Start == o.Start && m.End == o.End &&
		m.Location.Equal(o.Location)
}

func (m OneShotMeeting) String() string {
	return fmt.Sprintf("%s %s-%s in %s", m.Date.Format("2006-01-02"), m.Start, m.End, m.Location)
}
