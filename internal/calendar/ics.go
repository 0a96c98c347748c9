// Package calendar renders crawled course schedules as an iCalendar file, so
// a term's meetings can be dropped straight into a calendar application.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/tritonscrape/tritonscrape/internal/catalog"
)

// icsDays maps weekdays to the RFC 5545 BYDAY codes.
var icsDays = map[catalog.Weekday]string{
	catalog.Sunday:    "SU",
	catalog.Monday:    "MO",
	catalog.Tuesday:   "TU",
	catalog.Wednesday: "WE",
	catalog.Thursday:  "TH",
	catalog.Friday:    "FR",
	catalog.Saturday:  "SA",
}

// Generate renders the schedules of the given course instances as one
// iCalendar document. Recurring meetings become weekly events repeating for
// the given number of weeks starting from termStart; finals and other
// one-shot events become single events. Seat-only meetings with no announced
// schedule are skipped.
func Generate(termCode string, termStart time.Time, weeks int, instances []*catalog.CourseInstance) string {
	var ics strings.Builder
	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//tritonscrape//schedule//EN\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")

	stamp := formatICSTime(time.Now().UTC())
	for _, inst := range instances {
		for i, typed := range inst.AllEvents() {
			uid := fmt.Sprintf("%s-%s-%s-%d", termCode, inst.SubjectCode, inst.CourseNumber, i)
			writeEvent(&ics, uid, stamp, termStart, weeks, inst, typed)
		}
		if inst.Final != nil {
			uid := fmt.Sprintf("%s-%s-%s-final", termCode, inst.SubjectCode, inst.CourseNumber)
			writeOneShot(&ics, uid, stamp, inst, "Final", *inst.Final)
		}
	}

	ics.WriteString("END:VCALENDAR\r\n")
	return ics.String()
}

func writeEvent(ics *strings.Builder, uid, stamp string, termStart time.Time, weeks int, inst *catalog.CourseInstance, typed catalog.TypedEvent) {
	switch m := typed.Event.(type) {
	case catalog.RecurringMeeting:
		writeRecurring(ics, uid, stamp, termStart, weeks, inst, typed.TypeCode,
			m.Days, m.Start, m.End, m.Location.String())
	case catalog.RecurringSeatedMeeting:
		writeRecurring(ics, uid, stamp, termStart, weeks, inst, typed.TypeCode,
			m.Days, m.Start, m.End, m.Location.String())
	case catalog.OneShotMeeting:
		writeOneShot(ics, uid, stamp, inst, typed.TypeCode, m)
	}
}

func writeRecurring(ics *strings.Builder, uid, stamp string, termStart time.Time, weeks int, inst *catalog.CourseInstance, typeCode string, days catalog.DaysOfWeekSet, start, end catalog.TimeOfDay, location string) {
	members := days.Days()
	if len(members) == 0 || weeks <= 0 {
		return
	}

	first := firstOccurrence(termStart, days)
	dtStart := time.Date(first.Year(), first.Month(), first.Day(),
		start.Hour, start.Minute, 0, 0, time.UTC)
	dtEnd := time.Date(first.Year(), first.Month(), first.Day(),
		end.Hour, end.Minute, 0, 0, time.UTC)

	byDay := make([]string, len(members))
	for i, d := range members {
		byDay[i] = icsDays[d]
	}

	ics.WriteString("BEGIN:VEVENT\r\n")
	fmt.Fprintf(ics, "UID:%s@tritonscrape\r\n", uid)
	fmt.Fprintf(ics, "DTSTAMP:%s\r\n", stamp)
	fmt.Fprintf(ics, "DTSTART:%s\r\n", formatICSTime(dtStart))
	fmt.Fprintf(ics, "DTEND:%s\r\n", formatICSTime(dtEnd))
	fmt.Fprintf(ics, "RRULE:FREQ=WEEKLY;COUNT=%d;BYDAY=%s\r\n",
		weeks*len(members), strings.Join(byDay, ","))
	fmt.Fprintf(ics, "SUMMARY:%s\r\n", escapeICS(fmt.Sprintf("%s %s (%s)", inst.Code(), inst.Name, typeCode)))
	fmt.Fprintf(ics, "LOCATION:%s\r\n", escapeICS(location))
	ics.WriteString("END:VEVENT\r\n")
}

func writeOneShot(ics *strings.Builder, uid, stamp string, inst *catalog.CourseInstance, typeCode string, m catalog.OneShotMeeting) {
	dtStart := time.Date(m.Date.Year(), m.Date.Month(), m.Date.Day(),
		m.Start.Hour, m.Start.Minute, 0, 0, time.UTC)
	dtEnd := time.Date(m.Date.Year(), m.Date.Month(), m.Date.Day(),
		m.End.Hour, m.End.Minute, 0, 0, time.UTC)

	ics.WriteString("BEGIN:VEVENT\r\n")
	fmt.Fprintf(ics, "UID:%s@tritonscrape\r\n", uid)
	fmt.Fprintf(ics, "DTSTAMP:%s\r\n", stamp)
	fmt.Fprintf(ics, "DTSTART:%s\r\n", formatICSTime(dtStart))
	fmt.Fprintf(ics, "DTEND:%s\r\n", formatICSTime(dtEnd))
	fmt.Fprintf(ics, "SUMMARY:%s\r\n", escapeICS(fmt.Sprintf("%s %s (%s)", inst.Code(), inst.Name, typeCode)))
	fmt.Fprintf(ics, "LOCATION:%s\r\n", escapeICS(m.Location.String()))
	ics.WriteString("END:VEVENT\r\n")
}

// firstOccurrence finds the first date on or after start whose weekday is in
// the set.
func firstOccurrence(start time.Time, days catalog.DaysOfWeekSet) time.Time {
	for i := 0; i < 7; i++ {
		d := start.AddDate(0, 0, i)
		if days.Contains(catalog.Weekday(d.Weekday())) {
			return d
		}
	}
	return start
}

// formatICSTime formats a time as an iCalendar UTC datetime.
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes the RFC 5545 special characters in a text value.
func escapeICS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
