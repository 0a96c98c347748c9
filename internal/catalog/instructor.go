package catalog

import (
	"fmt"
	"strings"
)

// staffMarker is what the site prints for a section whose instructor has not
// been assigned yet.
const staffMarker = "Staff"

// Instructor identifies who teaches a meeting. The zero value is invalid;
// construct with NewInstructor, TBAInstructor, or ParseInstructor.
//
// "TBA" is a distinct variant, not a named instructor with empty names: a
// named instructor never equals a TBA one, while two TBA values are equal to
// each other.
type Instructor struct {
	FirstName string
	LastName  string
	// Email may be empty; it never participates in equality.
	Email string

	tba bool
}

// NewInstructor builds a named instructor.
func NewInstructor(first, last, email string) Instructor {
	return Instructor{FirstName: first, LastName: last, Email: email}
}

// TBAInstructor returns the "staff/unassigned" variant.
func TBAInstructor() Instructor {
	return Instructor{tba: true}
}

// TBA reports whether this is the unassigned variant.
func (i Instructor) TBA() bool {
	return i.tba
}

// ParseInstructor parses the site's "Last, First" name format. The literal
// staff marker yields the TBA variant. Names containing extra commas (e.g.
// "Smith, Jr., John") have all but the final separator collapsed first.
func ParseInstructor(fullName, email string) (Instructor, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == staffMarker {
		return TBAInstructor(), nil
	}
	for strings.Count(fullName, ",") > 1 {
		i := strings.LastIndex(fullName, ",")
		fullName = fullName[:i] + fullName[i+1:]
	}
	last, first, ok := strings.Cut(fullName, ", ")
	if !ok {
		return Instructor{}, fmt.Errorf("unparseable instructor name %q", fullName)
	}
	return NewInstructor(first, last, email), nil
}

// Equal reports whether two instructors are the same person. Named
// instructors compare by first and last name only; email differences are
// ignored. A named instructor never equals TBA; TBA equals TBA.
func (i Instructor) Equal(o Instructor) bool {
	if i.tba || o.tba {
		return i.tba && o.tba
	}
	return i.FirstName == o.FirstName && i.LastName == o.LastName
}

func (i Instructor) String() string {
	if i.tba {
		return "(TBA)"
	}
	if i.Email == "" {
		return i.FirstName + " " + i.LastName
	}
	return fmt.Sprintf("%s %s <%s>", i.FirstName, i.LastName, i.Email)
}
