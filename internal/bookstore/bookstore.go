// Package bookstore scrapes the campus bookstore's per-section textbook
// pages, which the schedule results link to from each seat-capped section.
package bookstore

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/tritonscrape/tritonscrape/internal/fetch"
	"github.com/tritonscrape/tritonscrape/internal/siteconfig"
)

// PriceUnavailable marks a new or used price the bookstore does not offer.
var PriceUnavailable = math.NaN()

// Book is one textbook listing.
type Book struct {
	ISBN   string
	Title  string
	Author string
	// NewPrice and UsedPrice are NaN when that condition is out of stock.
	NewPrice  float64
	UsedPrice float64
}

// BookList is the bookstore's answer for one course section.
type BookList struct {
	Required []Book
	Optional []Book
	// ASSoftReserves is set when the section requires a custom course
	// reader from A.S. Soft Reserves rather than a cataloged book.
	ASSoftReserves bool
	// Unknown is set when the bookstore has not yet received a book list
	// for the section.
	Unknown bool
}

// AnyRequired reports whether the section requires any materials at all.
func (l *BookList) AnyRequired() bool {
	return l.ASSoftReserves || len(l.Required) > 0
}

func (l *BookList) add(b Book, required bool) {
	if required {
		l.Required = append(l.Required, b)
	} else {
		l.Optional = append(l.Optional, b)
	}
}

// Fetch retrieves and parses the book list behind one bookstore section URL.
// The bookstore's TLS endpoint rejects the certificate chain the schedule
// links assume, so the scheme is downgraded before fetching.
func Fetch(ctx context.Context, session *fetch.Session, cfg *siteconfig.Config, rawURL string) (*BookList, error) {
	url := strings.Replace(rawURL, "https", "http", 1)
	doc, _, err := session.Fetch(ctx, url, nil, false)
	if err != nil {
		return nil, err
	}
	return parse(doc, cfg)
}

// parse walks the listing table's font cells in groups of six: section
// numbers, instructor, required flag, author, "Title, ISBN", availability.
// Side headers like "New Books" column labels have no direct text and are
// skipped before grouping.
func parse(doc *goquery.Document, cfg *siteconfig.Config) (*BookList, error) {
	var cells []*goquery.Selection
	doc.Find("table[border='1'] tr td font:not([align='right'])").
		Each(func(_ int, cell *goquery.Selection) {
			if strings.TrimSpace(leadingText(cell)) != "" {
				cells = append(cells, cell)
			}
		})

	// A section without a book list yet gets a lone message cell instead of
	// listing rows.
	if len(cells) > 0 && strings.Contains(leadingText(cells[0]), cfg.NoBookListText) {
		return &BookList{Unknown: true}, nil
	}

	list := &BookList{}
	for i := 0; i+6 <= len(cells); i += 6 {
		row := cells[i : i+6]
		required := strings.TrimSpace(leadingText(row[2])) == cfg.RequiredBookCode
		author := strings.TrimSpace(leadingText(row[3]))
		titleISBN := strings.TrimSpace(leadingText(row[4]))

		// "Principles Of General Chemistry, 2 Edition, 9780077470500"
		border := strings.LastIndex(titleISBN, ", ")
		if border < 0 {
			return nil, fmt.Errorf("malformed title/ISBN cell %q", titleISBN)
		}
		title, isbn := titleISBN[:border], titleISBN[border+2:]

		if strings.Contains(title, cfg.NoTextbookText) {
			return &BookList{}, nil
		}
		if strings.Contains(title, cfg.SoftReservesText) {
			list.ASSoftReserves = true
			continue
		}

		newPrice, usedPrice, err := parseAvailability(row[5], cfg)
		if err != nil {
			return nil, fmt.Errorf("book %s: %w", isbn, err)
		}
		list.add(Book{
			ISBN:      isbn,
			Title:     title,
			Author:    author,
			NewPrice:  newPrice,
			UsedPrice: usedPrice,
		}, required)
	}
	return list, nil
}

// parseAvailability reads the availability cell. Normally it holds two lines,
// "New Books, In Stock, Retail Price: $62.50" and the used equivalent. When
// the bookstore discounts the new copies, the discounted price sits in a
// green font element and the used line trails it.
func parseAvailability(cell *goquery.Selection, cfg *siteconfig.Config) (newPrice, usedPrice float64, err error) {
	if discount := cell.Find("font[color='#008000']").First(); discount.Length() > 0 {
		newPrice = PriceUnavailable
		if strings.Contains(leadingText(cell), cfg.InStockText) {
			text := strings.TrimSpace(discount.Text())
			newPrice, err = parsePrice(strings.TrimPrefix(text, "$"))
			if err != nil {
				return 0, 0, err
			}
		}
		usedPrice = lineToPrice(tailText(discount), cfg)
		return newPrice, usedPrice, nil
	}

	var lines []string
	for _, line := range strings.Split(leadingText(cell), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) != 2 {
		return 0, 0, fmt.Errorf("availability cell has %d lines, want 2", len(lines))
	}
	return lineToPrice(lines[0], cfg), lineToPrice(lines[1], cfg), nil
}

// lineToPrice turns "New Books, In Stock, Retail Price: $62.50" into 62.50,
// or NaN when the line does not report the books as in stock.
func lineToPrice(line string, cfg *siteconfig.Config) float64 {
	if !strings.Contains(line, cfg.InStockText) {
		return PriceUnavailable
	}
	_, after, ok := strings.Cut(line, "$")
	if !ok {
		return PriceUnavailable
	}
	price, err := parsePrice(after)
	if err != nil {
		return PriceUnavailable
	}
	return price
}

func parsePrice(s string) (float64, error) {
	price, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable price %q", s)
	}
	return price, nil
}

// leadingText concatenates the text nodes preceding the selection's first
// child element. In the discounted-availability case the text after the
// discount element belongs to the used-copy line and must not leak into the
// new-copy stock check.
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
// first node.
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
