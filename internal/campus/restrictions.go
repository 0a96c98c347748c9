package campus

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// RestrictionTable maps course restriction codes to their human-readable
// descriptions, scraped from the restriction-code reference page.
type RestrictionTable struct {
	byCode map[string]string
}

// NewRestrictionTable parses the restriction-code reference page: data rows
// have no background color and alternate code/description cells.
func NewRestrictionTable(doc *goquery.Document) *RestrictionTable {
	var texts []string
	doc.Find("tr:not([bgcolor]) td").Each(func(_ int, cell *goquery.Selection) {
		texts = append(texts, strings.TrimSpace(cell.Text()))
	})

	byCode := make(map[string]string)
	for i := 0; i+1 < len(texts); i += 2 {
		if texts[i] == "" { // blank spacer row
			continue
		}
		byCode[texts[i]] = texts[i+1]
	}
	return &RestrictionTable{byCode: byCode}
}

// Describe returns the description for a restriction code. The reference
// page is not exhaustive; unknown codes come back quoted rather than failing
// the whole course.
func (t *RestrictionTable) Describe(code string) string {
	if desc, ok := t.byCode[code]; ok {
		return desc
	}
	return `"` + code + `"`
}
