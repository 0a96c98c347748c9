package results

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/tritonscrape/tritonscrape/internal/campus"
	"github.com/tritonscrape/tritonscrape/internal/catalog"
	"github.com/tritonscrape/tritonscrape/internal/logger"
	"github.com/tritonscrape/tritonscrape/internal/siteconfig"
)

const buildingPageHTML = `<html><body><table>
<tr bgcolor="#cccccc"><td>Code</td><td>Name</td><td>Neighborhood</td><td>Grid</td></tr>
<tr><td>CENTER</td><td>Center Hall</td><td>Revelle</td><td>C7</td></tr>
<tr><td>EBU3B</td><td>Engineering Building Unit 3B</td><td>Warren</td><td>D6</td></tr>
<tr><td>WLH</td><td>Warren Lecture Hall</td><td>Warren</td><td>D5</td></tr>
</table></body></html>`

const restrictionPageHTML = `<html><body><table>
<tr bgcolor="#cccccc"><td>Code</td><td>Description</td></tr>
<tr><td>D</td><td>Department approval required</td></tr>
</table></body></html>`

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	return doc
}

func testParser(t *testing.T) *Parser {
	t.Helper()
	cfg := siteconfig.Default()
	registry := campus.NewRegistry(docFrom(t, buildingPageHTML))
	restrictions := campus.NewRestrictionTable(docFrom(t, restrictionPageHTML))
	return NewParser(cfg, registry, restrictions, logger.Discard())
}

// cellsFrom parses a row snippet and returns its cells.
func cellsFrom(t *testing.T, rowHTML string) []*goquery.Selection {
	t.Helper()
	doc := docFrom(t, "<html><body><table>"+rowHTML+"</table></body></html>")
	rows := tableRows(doc.Find("table").First())
	if len(rows) != 1 {
		t.Fatalf("fixture has %d rows, want 1", len(rows))
	}
	return rowCells(rows[0])
}

func TestExtractUnits(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{" (4 Units)", 4},
		{"Seminar in Cognition (1 Unit)", 1},
		{" (2.5 Units)", 2.5},
		{"Independent Study (2-4 Units)", catalog.VariableUnits},
		{"Special Project (1/4 Units)", catalog.VariableUnits},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := extractUnits(tt.input)
			if err != nil {
				t.Fatalf("extractUnits(%q) failed: %v", tt.input, err)
			}
			if math.IsNaN(tt.want) {
				if !math.IsNaN(got) {
					t.Errorf("extractUnits(%q) = %v, want variable units", tt.input, got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("extractUnits(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}

	for _, input := range []string{"no unit suffix", "(VAR Units)", "()"} {
		if _, err := extractUnits(input); err == nil {
			t.Errorf("extractUnits(%q) should have failed", input)
		}
	}
}

func TestParseTimeRange(t *testing.T) {
	tests := []struct {
		input      string
		start, end catalog.TimeOfDay
	}{
		{"9:00a - 9:50a", catalog.TimeOfDay{Hour: 9}, catalog.TimeOfDay{Hour: 9, Minute: 50}},
		{"1:00p - 1:50p", catalog.TimeOfDay{Hour: 13}, catalog.TimeOfDay{Hour: 13, Minute: 50}},
		{"12:30p - 1:20p", catalog.TimeOfDay{Hour: 12, Minute: 30}, catalog.TimeOfDay{Hour: 13, Minute: 20}},
		{"11:00a - 12:20p", catalog.TimeOfDay{Hour: 11}, catalog.TimeOfDay{Hour: 12, Minute: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			start, end, err := parseTimeRange(tt.input)
			if err != nil {
				t.Fatalf("parseTimeRange(%q) failed: %v", tt.input, err)
			}
			if start != tt.start || end != tt.end {
				t.Errorf("parseTimeRange(%q) = %v-%v, want %v-%v", tt.input, start, end, tt.start, tt.end)
			}
		})
	}

	if _, _, err := parseTimeRange("9:00a"); err == nil {
		t.Error("a lone time should not parse as a range")
	}
}

func TestParseSeating(t *testing.T) {
	p := testParser(t)

	t.Run("open seats", func(t *testing.T) {
		cells := cellsFrom(t, "<tr><td>17</td><td>30</td></tr>")
		seats, err := p.parseSeating(cells[0], cells[1])
		if err != nil {
			t.Fatalf("parseSeating failed: %v", err)
		}
		if seats.Available != 17 || seats.Total != 30 {
			t.Errorf("seats = %v, want 17/30", seats)
		}
		if seats.Full() {
			t.Error("17 open seats is not full")
		}
	})

	t.Run("waitlist", func(t *testing.T) {
		cells := cellsFrom(t, `<tr><td><span class="redtxt">Full waitlist(5)</span></td><td>30</td></tr>`)
		seats, err := p.parseSeating(cells[0], cells[1])
		if err != nil {
			t.Fatalf("parseSeating failed: %v", err)
		}
		if seats.Available != -5 || seats.Total != 30 {
			t.Errorf("seats = %v, want -5/30", seats)
		}
		if !seats.Full() {
			t.Error("a waitlisted section is full")
		}
	})

	t.Run("unlimited", func(t *testing.T) {
		cells := cellsFrom(t, "<tr><td><span>Unlim</span></td><td><span>Unlim</span></td></tr>")
		seats, err := p.parseSeating(cells[0], cells[1])
		if err != nil {
			t.Fatalf("parseSeating failed: %v", err)
		}
		if !seats.UnlimitedSeating() {
			t.Errorf("seats = %v, want unlimited", seats)
		}
		if seats.HowFull() != 0 {
			t.Error("unlimited seating is never full")
		}
	})

	t.Run("data unavailable", func(t *testing.T) {
		cells := cellsFrom(t, "<tr><td><span>Data not available</span></td><td></td></tr>")
		_, err := p.parseSeating(cells[0], cells[1])
		if !errors.Is(err, ErrSeatingUnavailable) {
			t.Fatalf("err = %v, want ErrSeatingUnavailable", err)
		}
		if !IsTransient(err) {
			t.Error("seating unavailability must classify as transient")
		}
	})
}

func TestParseInstructorCell(t *testing.T) {
	t.Run("mailto anchor", func(t *testing.T) {
		cells := cellsFrom(t, `<tr><td><a href="mailto:jdoe@example.edu">Doe, Jane</a></td></tr>`)
		inst, err := parseInstructorCell(cells[0])
		if err != nil {
			t.Fatalf("parseInstructorCell failed: %v", err)
		}
		if inst == nil || inst.FirstName != "Jane" || inst.LastName != "Doe" || inst.Email != "jdoe@example.edu" {
			t.Errorf("instructor = %v", inst)
		}
	})

	t.Run("plain text", func(t *testing.T) {
		cells := cellsFrom(t, "<tr><td>Doe, Jane</td></tr>")
		inst, err := parseInstructorCell(cells[0])
		if err != nil {
			t.Fatalf("parseInstructorCell failed: %v", err)
		}
		if inst == nil || inst.FirstName != "Jane" || inst.LastName != "Doe" || inst.Email != "" {
			t.Errorf("instructor = %v", inst)
		}
	})

	t.Run("staff marker", func(t *testing.T) {
		cells := cellsFrom(t, "<tr><td>Staff</td></tr>")
		inst, err := parseInstructorCell(cells[0])
		if err != nil {
			t.Fatalf("parseInstructorCell failed: %v", err)
		}
		if inst == nil || !inst.TBA() {
			t.Errorf("instructor = %v, want TBA", inst)
		}
	})

	t.Run("blank cell", func(t *testing.T) {
		cells := cellsFrom(t, "<tr><td>&#160;</td></tr>")
		inst, err := parseInstructorCell(cells[0])
		if err != nil {
			t.Fatalf("parseInstructorCell failed: %v", err)
		}
		if inst != nil {
			t.Errorf("instructor = %v, want nil for a blank cell", inst)
		}
	})
}

func TestExtractJavaScriptLink(t *testing.T) {
	href := `JavaScript:openLinkInNewWindow('http://example.edu/books?section=12345','bookstore')`
	if got := extractJavaScriptLink(href); got != "http://example.edu/books?section=12345" {
		t.Errorf("extractJavaScriptLink = %q", got)
	}
	if got := extractJavaScriptLink("plain.html"); got != "" {
		t.Errorf("extractJavaScriptLink on a plain href = %q, want empty", got)
	}
}
