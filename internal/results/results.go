// Package results parses a schedule search-results page: it locates the
// results table, partitions it into per-course row blocks, classifies each
// data row by its meeting-type code, and accumulates typed meeting events
// into course instances.
//
// Error discipline: transient site conditions (ErrCannotProcess,
// ErrSeatingUnavailable) abort the page so the crawl driver can retry it;
// an unsupported meeting type silently discards its whole course instance;
// free-form rows are logged and skipped; everything else is a structural
// defect that propagates.
package results

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/tritonscrape/tritonscrape/internal/campus"
	"github.com/tritonscrape/tritonscrape/internal/catalog"
	"github.com/tritonscrape/tritonscrape/internal/siteconfig"
)

// ErrCannotProcess means the results page carries no pagination marker:
// the site prints "we cannot process your request at this time" instead of
// results. Transient; retry the page after a delay.
var ErrCannotProcess = errors.New("site cannot process request right now")

// ErrSeatingUnavailable means a seat-count cell reported that seating data
// is temporarily unavailable. Transient; retry the page after a delay.
var ErrSeatingUnavailable = errors.New("seating data temporarily unavailable")

// errUnsupportedCourse aborts a row block whose meeting types this parser
// does not model; the classifier discards the whole course instance.
var errUnsupportedCourse = errors.New("course instance has unsupported meeting type")

// IsTransient reports whether err is a retry-after-delay condition rather
// than a structural defect.
func IsTransient(err error) bool {
	return errors.Is(err, ErrCannotProcess) || errors.Is(err, ErrSeatingUnavailable)
}

// PageResult is everything extracted from one results page.
type PageResult struct {
	Instances []*catalog.CourseInstance
	// NextPageURL is empty on the last page.
	NextPageURL string
}

// Parser turns results pages into course instances. Safe to reuse across
// pages; holds only immutable configuration and reference data.
type Parser struct {
	cfg          *siteconfig.Config
	registry     *campus.Registry
	restrictions *campus.RestrictionTable
	log          *slog.Logger

	oneShot       map[string]bool
	recurring     map[string]bool
	unsupported   map[string]bool
	seatedProblem map[string]bool
}

// NewParser builds a parser around the injected site config and reference
// tables.
func NewParser(cfg *siteconfig.Config, registry *campus.Registry, restrictions *campus.RestrictionTable, log *slog.Logger) *Parser {
	mt := cfg.MeetingTypes
	return &Parser{
		cfg:          cfg,
		registry:     registry,
		restrictions: restrictions,
		log:          log,
		oneShot: codeSet(mt.Final, mt.Midterm, mt.ProblemSession,
			mt.ReviewSession, mt.MakeUpSession),
		recurring: codeSet(mt.Lecture, mt.Discussion, mt.Lab,
			mt.Tutorial, mt.Film, mt.Studio),
		unsupported: codeSet(mt.Unsupported()...),
		// Seat-capped section rows only ever carry a subset of the
		// unsupported types.
		seatedProblem: codeSet(mt.Conference, mt.IndependentStudy, mt.Practicum),
	}
}

func codeSet(codes ...string) map[string]bool {
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set
}

// ParsePage parses one search-results page for the given subject. It
// returns the page's surviving course instances and the URL of the next
// results page ("" on the last page).
func (p *Parser) ParsePage(doc *goquery.Document, subjectCode string) (*PageResult, error) {
	next, err := p.nextPageURL(doc)
	if err != nil {
		return nil, err
	}

	table := doc.Find("table[border='0'][width='100%'][cellspacing='2'][cellpadding='3']").First()
	if table.Length() == 0 {
		return nil, errors.New("results table not found")
	}

	var instances []*catalog.CourseInstance
	for _, block := range courseBlocks(tableRows(table)) {
		inst, err := p.parseCourseBlock(block, subjectCode)
		if err != nil {
			if errors.Is(err, errUnsupportedCourse) {
				p.log.Info("skipping course instance with unsupported meeting type",
					"subject", subjectCode, "reason", err)
				continue
			}
			return nil, err
		}
		if inst.IsCancelled() {
			p.log.Info("entire course instance cancelled", "course", inst.Code())
			continue
		}
		instances = append(instances, inst)
	}

	return &PageResult{Instances: instances, NextPageURL: next}, nil
}

// parseCourseBlock parses one course's header row and its continuation rows.
func (p *Parser) parseCourseBlock(block []*goquery.Selection, subjectCode string) (*catalog.CourseInstance, error) {
	inst, err := p.parseHeader(block[0], subjectCode)
	if err != nil {
		return nil, err
	}
	for _, row := range block[1:] {
		if err := p.parseRow(row, inst); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

// nextPageURL extracts the URL of the following results page. The pagination
// marker being absent altogether is the site's "cannot process request"
// failure mode.
func (p *Parser) nextPageURL(doc *goquery.Document) (string, error) {
	markers := doc.Find("table[width='100%'] td[align='RIGHT']")
	if markers.Length() == 0 {
		return "", ErrCannotProcess
	}
	pagination := markers.Last()

	// Bold text reads "(Page 3 of 32):".
	fields := strings.Fields(pagination.Find("b").First().Text())
	if len(fields) < 2 {
		return "", fmt.Errorf("malformed pagination marker %q", pagination.Text())
	}
	current, err := strconv.Atoi(fields[1])
	if err != nil {
		return "", fmt.Errorf("malformed pagination page number %q: %w", fields[1], err)
	}

	want := strconv.Itoa(current + 1)
	var href string
	pagination.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.TrimSpace(a.Text()) == want {
			href = a.AttrOr("href", "")
			return false
		}
		return true
	})
	return href, nil
}

// courseBlocks drops leading header/decoration rows, then partitions the
// remaining rows into blocks each starting at a section-boundary row.
func courseBlocks(rows []*goquery.Selection) [][]*goquery.Selection {
	var blocks [][]*goquery.Selection
	for _, row := range rows {
		if isBoundaryRow(row) {
			blocks = append(blocks, []*goquery.Selection{row})
		} else if len(blocks) > 0 {
			last := len(blocks) - 1
			blocks[last] = append(blocks[last], row)
		}
		// Rows before the first boundary are table decoration; dropped.
	}
	return blocks
}

// isBoundaryRow reports whether the row starts a new course instance.
func isBoundaryRow(row *goquery.Selection) bool {
	return row.ChildrenFiltered("td[valign='MIDDLE']").Length() > 0
}

// tableRows returns a table's own rows in document order, without descending
// into nested tables (course header rows embed one).
func tableRows(table *goquery.Selection) []*goquery.Selection {
	var rows []*goquery.Selection
	table.Children().Each(func(_ int, child *goquery.Selection) {
		switch goquery.NodeName(child) {
		case "thead", "tbody", "tfoot":
			child.Children().Each(func(_ int, inner *goquery.Selection) {
				if goquery.NodeName(inner) == "tr" {
					rows = append(rows, inner)
				}
			})
		case "tr":
			rows = append(rows, child)
		}
	})
	return rows
}

// rowCells returns the row's own td/th cells.
func rowCells(row *goquery.Selection) []*goquery.Selection {
	var cells []*goquery.Selection
	row.Children().Each(func(_ int, child *goquery.Selection) {
		switch goquery.NodeName(child) {
		case "td", "th":
			cells = append(cells, child)
		}
	})
	return cells
}

// directText concatenates the selection's own text nodes, excluding text
// inside child elements. Cells like the seat-availability one nest a span
// whose text must not leak into the cell's direct value.
func directText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, node := range sel.Nodes {
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.TextNode {
				b.WriteString(child.Data)
			}
		}
	}
	return b.String()
}

// leadingText concatenates the text nodes preceding the selection's first
// child element. A cell whose text all trails a child element (like a linked
// course title followed by its unit count) has no leading text.
func leadingText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, node := range sel.Nodes {
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.ElementNode {
				break
			}
			if child.Type == html.TextNode {
				b.WriteString(child.Data)
			}
		}
	}
	return b.String()
}

// tailText concatenates the text nodes immediately following the selection's
// first node, up to the next element.
func tailText(sel *goquery.Selection) string {
	if len(sel.Nodes) == 0 {
		return ""
	}
	var b strings.Builder
	for n := sel.Nodes[0].NextSibling; n != nil; n = n.NextSibling {
		if n.Type != html.TextNode {
			break
		}
		b.WriteString(n.Data)
	}
	return b.String()
}
