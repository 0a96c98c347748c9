package results

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tritonscrape/tritonscrape/internal/catalog"
)

// parseHeader parses a course-header row (the first row of a block) into a
// fresh CourseInstance: restriction codes, subject-relative course number,
// title, unit count, and the prerequisites link.
//
// The title cell comes in two layouts: normally the course name is an anchor
// into the catalog and the unit text trails it; a few courses lack the
// catalog link and print "Name (N Units)" as plain text.
func (p *Parser) parseHeader(row *goquery.Selection, subjectCode string) (*catalog.CourseInstance, error) {
	cells := rowCells(row)
	if len(cells) < 3 {
		return nil, fmt.Errorf("course header row has %d cells, want at least 3", len(cells))
	}

	var restrictions []string
	cells[0].ChildrenFiltered("div").Each(func(_ int, div *goquery.Selection) {
		code := strings.TrimSpace(div.Text())
		if code != "" {
			restrictions = append(restrictions, p.restrictions.Describe(code))
		}
	})

	courseNumber := strings.TrimSpace(directText(cells[1]))

	titleCell := cells[2].Find("td.TITLETXT").First()
	if titleCell.Length() == 0 {
		return nil, fmt.Errorf("course header for %s %s has no title cell", subjectCode, courseNumber)
	}

	var (
		name         string
		unitsText    string
		prereqAnchor *goquery.Selection
	)
	anchors := cells[2].Find("a")
	if direct := strings.TrimSpace(leadingText(titleCell)); direct != "" {
		// No catalog link (cf. COGS 92): name and units share one text run,
		// and the only anchor in the cell is the prerequisites link.
		border := strings.LastIndex(direct, "(")
		if border < 0 {
			return nil, fmt.Errorf("course header title %q has no unit suffix", direct)
		}
		name = strings.TrimSpace(direct[:border])
		unitsText = direct
		prereqAnchor = anchors.First()
	} else {
		// Linked title: the first anchor is the catalog link carrying the
		// name, with the units trailing it; the prerequisites anchor follows.
		nameAnchor := anchors.First()
		if nameAnchor.Length() == 0 {
			return nil, fmt.Errorf("course header for %s %s has neither title text nor link", subjectCode, courseNumber)
		}
		name = strings.TrimSpace(nameAnchor.Text())
		unitsText = tailText(nameAnchor)
		prereqAnchor = anchors.Eq(1)
	}

	units, err := extractUnits(unitsText)
	if err != nil {
		return nil, fmt.Errorf("course %s %s: %w", subjectCode, courseNumber, err)
	}

	inst := catalog.NewCourseInstance(p.cfg.MeetingTypes, subjectCode, courseNumber, name, units, restrictions)

	if prereqAnchor.Length() > 0 {
		inst.PrerequisitesURL = extractJavaScriptLink(prereqAnchor.AttrOr("href", ""))
	}

	p.log.Debug("parsing course instance", "course", inst.Code())
	return inst, nil
}

// extractUnits pulls the credit-unit count out of a parenthesized suffix
// like "(4 Units)". A range or slash means the units are variable, encoded
// as NaN. Any other unparsable text is a hard error: it would mean the site
// changed its title format.
func extractUnits(s string) (float64, error) {
	start := strings.LastIndex(s, "(")
	if start < 0 {
		return 0, fmt.Errorf("no unit suffix in %q", s)
	}
	rest := s[start+1:]
	if end := strings.Index(rest, ")"); end >= 0 {
		rest = rest[:end]
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty unit suffix in %q", s)
	}

	units, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		if strings.ContainsAny(fields[0], "/-") {
			return catalog.VariableUnits, nil
		}
		return 0, fmt.Errorf("unparseable units %q", fields[0])
	}
	return units, nil
}

// extractJavaScriptLink recovers a plain URL from an anchor of the form
// JavaScript:openLinkInNewWindow('http://...', ...).
func extractJavaScriptLink(href string) string {
	start := strings.Index(href, "'")
	if start < 0 {
		return ""
	}
	rest := href[start+1:]
	if end := strings.Index(rest, "'"); end >= 0 {
		return rest[:end]
	}
	return rest
}
