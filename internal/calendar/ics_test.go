package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/tritonscrape/tritonscrape/internal/campus"
	"github.com/tritonscrape/tritonscrape/internal/catalog"
	"github.com/tritonscrape/tritonscrape/internal/siteconfig"
)

func testInstance(t *testing.T) *catalog.CourseInstance {
	t.Helper()
	codes := siteconfig.Default().MeetingTypes
	inst := catalog.NewCourseInstance(codes, "CSE", "101",
		"Design and Analysis of Algorithms", 4, nil)

	days, err := catalog.ParseDays("MWF")
	if err != nil {
		t.Fatalf("ParseDays failed: %v", err)
	}
	err = inst.AddEvent(codes.Lecture, catalog.RecurringMeeting{
		SectionNumber: "A00",
		Start:         catalog.TimeOfDay{Hour: 10},
		End:           catalog.TimeOfDay{Hour: 10, Minute: 50},
		Days:          days,
		Location:      campus.Location{Kind: campus.LocationTBA},
	})
	if err != nil {
		t.Fatalf("AddEvent failed: %v", err)
	}
	// A seat-only section with no announced schedule; it has no place on a
	// calendar.
	err = inst.AddEvent(codes.Seminar, catalog.SeatedMeeting{
		SectionID: 712400,
		Seats:     catalog.Seating{Available: 5, Total: 10},
	})
	if err != nil {
		t.Fatalf("AddEvent failed: %v", err)
	}
	inst.Final = &catalog.OneShotMeeting{
		Date:     time.Date(2011, 3, 19, 0, 0, 0, 0, time.UTC),
		Start:    catalog.TimeOfDay{Hour: 8},
		End:      catalog.TimeOfDay{Hour: 10, Minute: 59},
		Location: campus.Location{Kind: campus.LocationTBA},
	}
	return inst
}

func TestGenerate(t *testing.T) {
	// Monday, March 28th 2011: the lecture's first occurrence is that day.
	termStart := time.Date(2011, 3, 28, 0, 0, 0, 0, time.UTC)
	ics := Generate("SP11", termStart, 10, []*catalog.CourseInstance{testInstance(t)})

	if !strings.HasPrefix(ics, "BEGIN:VCALENDAR\r\n") || !strings.HasSuffix(ics, "END:VCALENDAR\r\n") {
		t.Fatal("output is not a VCALENDAR document")
	}
	if got := strings.Count(ics, "BEGIN:VEVENT"); got != 2 {
		t.Fatalf("got %d events, want 2 (lecture and final; seat-only section skipped)", got)
	}

	if !strings.Contains(ics, "DTSTART:20110328T100000Z") {
		t.Error("lecture does not start on the first Monday of the term")
	}
	if !strings.Contains(ics, "RRULE:FREQ=WEEKLY;COUNT=30;BYDAY=MO,WE,FR") {
		t.Error("lecture recurrence rule wrong or missing")
	}
	if !strings.Contains(ics, "SUMMARY:CSE 101 Design and Analysis of Algorithms (LE)") {
		t.Error("lecture summary wrong or missing")
	}

	if !strings.Contains(ics, "DTSTART:20110319T080000Z") {
		t.Error("final exam start wrong or missing")
	}
	if !strings.Contains(ics, "DTEND:20110319T105900Z") {
		t.Error("final exam end wrong or missing")
	}
}

func TestGenerateStartsMidWeek(t *testing.T) {
	// Thursday start: the first MWF occurrence is the following Friday.
	termStart := time.Date(2011, 3, 31, 0, 0, 0, 0, time.UTC)
	ics := Generate("SP11", termStart, 10, []*catalog.CourseInstance{testInstance(t)})

	if !strings.Contains(ics, "DTSTART:20110401T100000Z") {
		t.Error("mid-week term start should begin the lecture on the next matching day")
	}
}

func TestEscapeICS(t *testing.T) {
	got := escapeICS("a,b;c\nd\\e")
	if got != `a\,b\;c\nd\\e` {
		t.Errorf("escapeICS = %q", got)
	}
}
