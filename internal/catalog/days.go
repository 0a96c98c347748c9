package catalog

import "fmt"

// Weekday is a day of the week, Sunday-first.
type Weekday int

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var weekdayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// siteDayAbbrevs are the concatenated abbreviations the schedule site uses in
// a day-of-week cell, Sunday-first. Note "Tu"/"Th" are two letters while the
// rest of the weekdays are one; parsing is by longest known prefix.
var siteDayAbbrevs = [7]string{"Sun", "M", "Tu", "W", "Th", "F", "S"}

func (d Weekday) String() string {
	if d < Sunday || d > Saturday {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// DaysOfWeekSet is an immutable set of weekdays. Iteration is always
// Sunday-first regardless of construction order.
type DaysOfWeekSet struct {
	bits uint8
}

// NewDaysOfWeekSet builds a set from individual weekdays.
func NewDaysOfWeekSet(days ...Weekday) DaysOfWeekSet {
	var s DaysOfWeekSet
	for _, d := range days {
		s.bits |= 1 << uint(d)
	}
	return s
}

// ParseDays parses the site's concatenated day abbreviations (e.g. "TuTh",
// "MWF") by greedily stripping known prefixes in Sunday-first order. Any
// trailing text that matches no abbreviation is a parse error.
func ParseDays(s string) (DaysOfWeekSet, error) {
	var set DaysOfWeekSet
	rest := s
	for i, abbrev := range siteDayAbbrevs {
		if len(rest) >= len(abbrev) && rest[:len(abbrev)] == abbrev {
			rest = rest[len(abbrev):]
			set.bits |= 1 << uint(i)
		}
	}
	if rest != "" {
		return DaysOfWeekSet{}, fmt.Errorf("unrecognized day abbreviations %q in %q", rest, s)
	}
	return set, nil
}

// Contains reports whether d is in the set.
func (s DaysOfWeekSet) Contains(d Weekday) bool {
	return s.bits&(1<<uint(d)) != 0
}

// Len reports how many days are in the set.
func (s DaysOfWeekSet) Len() int {
	n := 0
	for d := Sunday; d <= Saturday; d++ {
		if s.Contains(d) {
			n++
		}
	}
	return n
}

// Days returns the members in conventional order, Sunday first.
func (s DaysOfWeekSet) Days() []Weekday {
	var days []Weekday
	for d := Sunday; d <= Saturday; d++ {
		if s.Contains(d) {
			days = append(days, d)
		}
	}
	return days
}

func (s DaysOfWeekSet) String() string {
	out := "{"
	for i, d := range s.Days() {
		if i > 0 {
			out += ", "
		}
		out += d.String()
	}
	return out + "}"
}
