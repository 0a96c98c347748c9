// Package query builds the schedule-search POST request that selects "all
// courses in subject X during term Y, no filters applied" from the search
// page's own form.
package query

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tritonscrape/tritonscrape/internal/siteconfig"
)

// Prepare extracts the subject-search form from the fetched search page and
// returns the absolute POST URL plus the broadest possible field set: all
// hidden fields copied verbatim, every course-number-range checkbox and
// day-of-week checkbox checked, the default option of every start/end time
// selector, the exclude-full-sections toggle disabled, and the requested
// subject and term injected.
//
// A form whose method is not POST is a structural error: it would mean the
// site changed its submission contract and a GET would silently run the
// wrong query.
func Prepare(termCode, subjectCode string, doc *goquery.Document, pageURL string, cfg *siteconfig.Config) (string, url.Values, error) {
	form := doc.Find(fmt.Sprintf("form[name='%s']", cfg.SearchFormName)).First()
	if form.Length() == 0 {
		return "", nil, fmt.Errorf("search form %q not found", cfg.SearchFormName)
	}

	postURL, err := postURLOf(form, pageURL)
	if err != nil {
		return "", nil, err
	}

	fields := url.Values{}

	// Hidden state the form round-trips back to the server.
	form.Find("input[type='hidden']").Each(func(_ int, input *goquery.Selection) {
		name, ok := input.Attr("name")
		if !ok {
			return
		}
		fields.Set(name, input.AttrOr("value", ""))
	})

	// Check every course-number-range box so no range excludes courses.
	form.Find("input").Each(func(_ int, input *goquery.Selection) {
		name := input.AttrOr("name", "")
		if strings.Contains(name, cfg.CourseNumCheckboxPart) {
			fields.Set(name, "on")
		}
	})

	// Check every day-of-week box; the field is multi-valued.
	form.Find(fmt.Sprintf("input[name='%s']", cfg.DaysCheckboxName)).Each(func(_ int, input *goquery.Selection) {
		fields.Add(cfg.DaysCheckboxName, input.AttrOr("value", ""))
	})

	// First option of each time selector is the "any time" default.
	form.Find("select").Each(func(_ int, sel *goquery.Selection) {
		name := sel.AttrOr("name", "")
		if !strings.Contains(name, "start") && !strings.Contains(name, "end") {
			return
		}
		first := sel.Find("option").First()
		if first.Length() > 0 {
			fields.Set(name, first.AttrOr("value", ""))
		}
	})

	fields.Set(cfg.ExcludeFullName, "false")
	fields.Set(cfg.SubjectSelectName, subjectCode)
	fields.Set(cfg.TermSelectName, termCode)

	return postURL, fields, nil
}

// postURLOf resolves the form's action against the page URL, insisting on
// the POST submission method.
func postURLOf(form *goquery.Selection, pageURL string) (string, error) {
	method := strings.ToLower(form.AttrOr("method", ""))
	if method != "post" {
		return "", fmt.Errorf("expected POST form submission method, got %q", method)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parsing search page URL %q: %w", pageURL, err)
	}
	action, err := url.Parse(form.AttrOr("action", ""))
	if err != nil {
		return "", fmt.Errorf("parsing form action: %w", err)
	}
	return base.ResolveReference(action).String(), nil
}
