package catalog

import (
	"math"
	"testing"

	"github.com/tritonscrape/tritonscrape/internal/siteconfig"
)

func testCodes() siteconfig.MeetingTypeCodes {
	return siteconfig.Default().MeetingTypes
}

func TestCourseInstanceCancelled(t *testing.T) {
	codes := testCodes()
	inst := NewCourseInstance(codes, "CSE", "101", "Design and Analysis of Algorithms", 4, nil)
	if !inst.IsCancelled() {
		t.Error("an instance with no events should read as cancelled")
	}

	if err := inst.AddEvent(codes.Lecture, RecurringMeeting{SectionNumber: "A00"}); err != nil {
		t.Fatalf("AddEvent failed: %v", err)
	}
	if inst.IsCancelled() {
		t.Error("an instance with a lecture should not read as cancelled")
	}
	if got := len(inst.Lectures()); got != 1 {
		t.Errorf("Lectures() has %d events, want 1", got)
	}
}

func TestCourseInstanceFinalDoesNotRescueCancellation(t *testing.T) {
	inst := NewCourseInstance(testCodes(), "CSE", "101", "Design and Analysis of Algorithms", 4, nil)
	inst.Final = &OneShotMeeting{}
	if !inst.IsCancelled() {
		t.Error("a final exam alone should not make an instance uncancelled")
	}
}

func TestCourseInstanceRejectsUnknownTypeCode(t *testing.T) {
	inst := NewCourseInstance(testCodes(), "CSE", "101", "Design and Analysis of Algorithms", 4, nil)
	if err := inst.AddEvent("ZZ", RecurringMeeting{}); err == nil {
		t.Error("AddEvent should reject an unrecognized type code")
	}
	if err := inst.AddEvent("FI", OneShotMeeting{}); err == nil {
		t.Error("finals have no event bucket and must be rejected")
	}
}

func TestCourseInstancePrimaryInstructor(t *testing.T) {
	codes := testCodes()
	inst := NewCourseInstance(codes, "COGS", "1", "Introduction to Cognitive Science", 4, nil)

	tba := TBAInstructor()
	if err := inst.AddEvent(codes.Discussion, RecurringMeeting{Instructor: &tba}); err != nil {
		t.Fatalf("AddEvent failed: %v", err)
	}
	if inst.Instructor != nil {
		t.Fatal("a TBA row must not fix the primary instructor")
	}

	named := NewInstructor("Jane", "Doe", "")
	if err := inst.AddEvent(codes.Lecture, RecurringMeeting{Instructor: &named}); err != nil {
		t.Fatalf("AddEvent failed: %v", err)
	}
	if inst.Instructor == nil || !inst.Instructor.Equal(named) {
		t.Fatal("the first named instructor must become the primary instructor")
	}

	later := NewInstructor("John", "Smith", "")
	if err := inst.AddEvent(codes.Lab, RecurringMeeting{Instructor: &later}); err != nil {
		t.Fatalf("AddEvent failed: %v", err)
	}
	if !inst.Instructor.Equal(named) {
		t.Error("later rows must not overwrite the primary instructor")
	}
}

func TestCourseInstanceRestrictionsDeduplicatedAndSorted(t *testing.T) {
	inst := NewCourseInstance(testCodes(), "CSE", "101", "Design and Analysis of Algorithms", 4,
		[]string{"upper-division standing", "department approval", "upper-division standing"})
	want := []string{"department approval", "upper-division standing"}
	if len(inst.Restrictions) != len(want) {
		t.Fatalf("Restrictions = %v, want %v", inst.Restrictions, want)
	}
	for i := range want {
		if inst.Restrictions[i] != want[i] {
			t.Errorf("Restrictions[%d] = %q, want %q", i, inst.Restrictions[i], want[i])
		}
	}
}

func TestVariableUnits(t *testing.T) {
	inst := NewCourseInstance(testCodes(), "CSE", "199", "Independent Study", VariableUnits, nil)
	if !inst.VariableUnits() {
		t.Error("NaN units should read as variable")
	}
	if !math.IsNaN(inst.Units) {
		t.Error("variable units must be encoded as NaN")
	}
}
