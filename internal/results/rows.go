package results

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/tritonscrape/tritonscrape/internal/campus"
	"github.com/tritonscrape/tritonscrape/internal/catalog"
)

// Data rows start with a fixed run of empty spacer cells.
const leadingEmptyCells = 3

const (
	clockFormat = "3:04pm"
	dateFormat  = "01/02/2006"
)

// parseRow classifies one continuation row of a course block and dispatches
// to the matching event parser. Rows that fit no known shape are free-form:
// logged and skipped, never fatal.
func (p *Parser) parseRow(row *goquery.Selection, inst *catalog.CourseInstance) error {
	cells := rowCells(row)
	if len(cells) <= leadingEmptyCells {
		return p.skipFreeForm(cells, inst)
	}
	cells = cells[leadingEmptyCells:]

	switch len(cells) {
	case 8:
		typeCode := strings.TrimSpace(directText(cells[1]))
		mt := p.cfg.MeetingTypes
		switch {
		case p.unsupported[typeCode]:
			// These types carry data this classifier does not model;
			// the whole course instance is discarded, not just the row.
			return fmt.Errorf("%w: %s has meeting of type %q", errUnsupportedCourse, inst.Code(), typeCode)
		case p.oneShot[typeCode]:
			return p.parseOneShot(cells, inst, typeCode)
		case p.recurring[typeCode]:
			return p.parseRecurring(cells, inst, typeCode)
		case typeCode == mt.Seminar:
			return p.parseTBASeated(cells, inst, typeCode)
		default:
			return fmt.Errorf("unrecognized meeting type %q in %s", typeCode, inst.Code())
		}
	case 11:
		return p.parseSeatedRecurring(cells, inst)
	default:
		return p.skipFreeForm(cells, inst)
	}
}

// skipFreeForm handles rows of unexpected shape. A cancellation notice in
// the last cell is worth logging distinctly; everything else is ignored.
func (p *Parser) skipFreeForm(cells []*goquery.Selection, inst *catalog.CourseInstance) error {
	if len(cells) > 0 {
		last := cells[len(cells)-1]
		cancelled := false
		last.Find("span.redtxt").Each(func(_ int, span *goquery.Selection) {
			if strings.TrimSpace(span.Text()) == p.cfg.CancelledText {
				cancelled = true
			}
		})
		if cancelled {
			p.log.Info("a meeting was cancelled", "course", inst.Code())
			return nil
		}
	}
	p.log.Info("ignoring free-form row", "course", inst.Code())
	return nil
}

// parseRecurring parses an 8-cell recurring meeting row (lecture,
// discussion, etc.): no seat data, a weekday set, times, and a location.
// A non-empty leading cell means the row is actually a seat-limited section
// whose time and place are TBA; those redirect to the TBA parser.
func (p *Parser) parseRecurring(cells []*goquery.Selection, inst *catalog.CourseInstance, typeCode string) error {
	if strings.TrimSpace(directText(cells[0])) != "" {
		return p.parseTBASeated(cells, inst, typeCode)
	}

	days, err := catalog.ParseDays(strings.TrimSpace(directText(cells[3])))
	if err != nil {
		return fmt.Errorf("course %s: %w", inst.Code(), err)
	}
	start, end, err := parseTimeRange(directText(cells[4]))
	if err != nil {
		return fmt.Errorf("course %s: %w", inst.Code(), err)
	}
	loc, err := campus.NewLocation(p.registry,
		strings.TrimSpace(directText(cells[5])), strings.TrimSpace(directText(cells[6])))
	if err != nil {
		return fmt.Errorf("course %s: %w", inst.Code(), err)
	}
	instructor, err := parseInstructorCell(cells[7])
	if err != nil {
		return fmt.Errorf("course %s: %w", inst.Code(), err)
	}

	return inst.AddEvent(typeCode, catalog.RecurringMeeting{
		SectionNumber: strings.TrimSpace(directText(cells[2])),
		Instructor:    instructor,
		Start:         start,
		End:           end,
		Days:          days,
		Location:      loc,
	})
}

// parseTBASeated parses an 8-cell seat-limited row whose time and location
// are to be announced (seminars and TBA sections): section id, seats, and a
// textbook link. A blank section id marks an additional seminar time, which
// is really a recurring row.
func (p *Parser) parseTBASeated(cells []*goquery.Selection, inst *catalog.CourseInstance, typeCode string) error {
	idText := strings.TrimSpace(directText(cells[0]))
	if idText == "" {
		return p.parseRecurring(cells, inst, typeCode)
	}

	sectionID, err := strconv.Atoi(idText)
	if err != nil {
		return fmt.Errorf("course %s: bad section id %q: %w", inst.Code(), idText, err)
	}
	instructor, err := parseInstructorCell(cells[4])
	if err != nil {
		return fmt.Errorf("course %s: %w", inst.Code(), err)
	}
	seats, err := p.parseSeating(cells[5], cells[6])
	if err != nil {
		return fmt.Errorf("course %s: %w", inst.Code(), err)
	}

	return inst.AddEvent(typeCode, catalog.SeatedMeeting{
		SectionID:     sectionID,
		SectionNumber: strings.TrimSpace(directText(cells[2])),
		Instructor:    instructor,
		Seats:         seats,
		BookstoreURL:  bookstoreLink(cells[7]),
	})
}

// parseSeatedRecurring parses an 11-cell seat-capped section row
// (discussion/lab/tutorial sections with enrollment limits).
func (p *Parser) parseSeatedRecurring(cells []*goquery.Selection, inst *catalog.CourseInstance) error {
	typeCode := strings.TrimSpace(directText(cells[1]))
	if p.seatedProblem[typeCode] {
		return fmt.Errorf("%w: %s has meeting of type %q", errUnsupportedCourse, inst.Code(), typeCode)
	}

	sectionID, err := strconv.Atoi(strings.TrimSpace(directText(cells[0])))
	if err != nil {
		return fmt.Errorf("course %s: bad section id: %w", inst.Code(), err)
	}
	days, err := catalog.ParseDays(strings.TrimSpace(directText(cells[3])))
	if err != nil {
		return fmt.Errorf("course %s: %w", inst.Code(), err)
	}
	start, end, err := parseTimeRange(directText(cells[4]))
	if err != nil {
		return fmt.Errorf("course %s: %w", inst.Code(), err)
	}
	loc, err := campus.NewLocation(p.registry,
		strings.TrimSpace(directText(cells[5])), strings.TrimSpace(directText(cells[6])))
	if err != nil {
		return fmt.Errorf("course %s: %w", inst.Code(), err)
	}
	instructor, err := parseInstructorCell(cells[7])
	if err != nil {
		return fmt.Errorf("course %s: %w", inst.Code(), err)
	}
	seats, err := p.parseSeating(cells[8], cells[9])
	if err != nil {
		return fmt.Errorf("course %s: %w", inst.Code(), err)
	}

	return inst.AddEvent(typeCode, catalog.RecurringSeatedMeeting{
		SectionID:     sectionID,
		SectionNumber: strings.TrimSpace(directText(cells[2])),
		Instructor:    instructor,
		Start:         start,
		End:           end,
		Days:          days,
		Location:      loc,
		Seats:         seats,
		BookstoreURL:  bookstoreLink(cells[10]),
	})
}

// parseOneShot parses an 8-cell single-date event row (finals, midterms,
// review sessions). Finals are stored on the course instance itself; a
// second, different final for one instance is a structural defect.
func (p *Parser) parseOneShot(cells []*goquery.Selection, inst *catalog.CourseInstance, typeCode string) error {
	date, err := time.Parse(dateFormat, strings.TrimSpace(directText(cells[2])))
	if err != nil {
		return fmt.Errorf("course %s: bad event date: %w", inst.Code(), err)
	}
	start, end, err := parseTimeRange(directText(cells[4]))
	if err != nil {
		return fmt.Errorf("course %s: %w", inst.Code(), err)
	}
	loc, err := campus.NewLocation(p.registry,
		strings.TrimSpace(directText(cells[5])), strings.TrimSpace(directText(cells[6])))
	if err != nil {
		return fmt.Errorf("course %s: %w", inst.Code(), err)
	}

	event := catalog.OneShotMeeting{Date: date, Start: start, End: end, Location: loc}
	if typeCode == p.cfg.MeetingTypes.Final {
		if inst.Final != nil && !inst.Final.Equal(event) {
			return fmt.Errorf("course %s has conflicting final exams (old %s, new %s)",
				inst.Code(), inst.Final, event)
		}
		inst.Final = &event
		return nil
	}
	return inst.AddEvent(typeCode, event)
}

// parseSeating decodes the available/total seat cell pair. Direct numeric
// text is the open-seat count. An empty cell means waitlisted or unlimited,
// disambiguated by the nested label: the unlimited marker yields infinite
// seats, the data-unavailable marker is a transient error, and otherwise a
// parenthesized waitlist length is negated.
func (p *Parser) parseSeating(availCell, totalCell *goquery.Selection) (catalog.Seating, error) {
	availText := strings.TrimSpace(directText(availCell))
	totalText := strings.TrimSpace(directText(totalCell))

	if availText != "" {
		avail, err := strconv.Atoi(availText)
		if err != nil {
			return catalog.Seating{}, fmt.Errorf("bad available-seat count %q: %w", availText, err)
		}
		total, err := strconv.Atoi(totalText)
		if err != nil {
			return catalog.Seating{}, fmt.Errorf("bad total-seat count %q: %w", totalText, err)
		}
		return catalog.Seating{Available: float64(avail), Total: float64(total)}, nil
	}

	label := strings.TrimSpace(availCell.Find("span").First().Text())
	switch label {
	case p.cfg.UnlimitedSeatsText:
		return catalog.Seating{Available: catalog.Unlimited, Total: catalog.Unlimited}, nil
	case p.cfg.DataUnavailableText:
		p.log.Error("seating data unavailable")
		return catalog.Seating{}, ErrSeatingUnavailable
	}

	// "Full waitlist(17)"
	open := strings.Index(label, "(")
	closing := strings.Index(label, ")")
	if open < 0 || closing <= open {
		return catalog.Seating{}, fmt.Errorf("unrecognized seating label %q", label)
	}
	waitlist, err := strconv.Atoi(label[open+1 : closing])
	if err != nil {
		return catalog.Seating{}, fmt.Errorf("bad waitlist count in %q: %w", label, err)
	}
	total, err := strconv.Atoi(totalText)
	if err != nil {
		return catalog.Seating{}, fmt.Errorf("bad total-seat count %q: %w", totalText, err)
	}
	return catalog.Seating{Available: float64(-waitlist), Total: float64(total)}, nil
}

// parseTimeRange parses "9:00a - 9:50a" into start and end times. Each half
// is missing the trailing "m" of its meridiem.
func parseTimeRange(s string) (catalog.TimeOfDay, catalog.TimeOfDay, error) {
	startText, endText, ok := strings.Cut(strings.TrimSpace(s), " - ")
	if !ok {
		return catalog.TimeOfDay{}, catalog.TimeOfDay{}, fmt.Errorf("unparseable time range %q", s)
	}
	start, err := parseClock(startText)
	if err != nil {
		return catalog.TimeOfDay{}, catalog.TimeOfDay{}, err
	}
	end, err := parseClock(endText)
	if err != nil {
		return catalog.TimeOfDay{}, catalog.TimeOfDay{}, err
	}
	return start, end, nil
}

func parseClock(s string) (catalog.TimeOfDay, error) {
	t, err := time.Parse(clockFormat, strings.TrimSpace(s)+"m")
	if err != nil {
		return catalog.TimeOfDay{}, fmt.Errorf("unparseable clock time %q: %w", s, err)
	}
	return catalog.TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// parseInstructorCell reads an instructor cell: a mailto anchor carries the
// name and email, plain text carries just the name, and a bare non-breaking
// space means the row has no instructor at all (nil, distinct from TBA).
func parseInstructorCell(cell *goquery.Selection) (*catalog.Instructor, error) {
	if a := cell.Find("a").First(); a.Length() > 0 {
		email := strings.TrimPrefix(a.AttrOr("href", ""), "mailto:")
		inst, err := catalog.ParseInstructor(a.Text(), email)
		if err != nil {
			return nil, err
		}
		return &inst, nil
	}

	name := strings.TrimSpace(directText(cell))
	if name == "" {
		return nil, nil
	}
	inst, err := catalog.ParseInstructor(name, "")
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// bookstoreLink pulls the textbook-list URL out of a cell's JavaScript
// anchor.
func bookstoreLink(cell *goquery.Selection) string {
	return extractJavaScriptLink(cell.Find("a").First().AttrOr("href", ""))
}
