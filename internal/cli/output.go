package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/tritonscrape/tritonscrape/internal/bookstore"
	"github.com/tritonscrape/tritonscrape/internal/browser"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// WriteTerms writes the term listing in the specified format.
func WriteTerms(w io.Writer, terms []browser.Term, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, terms)
	case FormatText:
		for _, t := range terms {
			marker := " "
			if t.IsDefault {
				marker = "*"
			}
			fmt.Fprintf(w, "%s %-8s %s\n", marker, t.Code, t.Name)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteSubjects writes the subject listing in the specified format.
func WriteSubjects(w io.Writer, subjects []browser.Subject, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, subjects)
	case FormatText:
		for _, s := range subjects {
			fmt.Fprintf(w, "%-6s %s\n", s.Code, s.Name)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteBookList prints one section's book list.
func WriteBookList(w io.Writer, list *bookstore.BookList) error {
	switch {
	case list.Unknown:
		fmt.Fprintln(w, "The bookstore has not yet received a book list for this section.")
		return nil
	case !list.AnyRequired() && len(list.Optional) == 0:
		fmt.Fprintln(w, "No textbooks required.")
		return nil
	}

	writeBooks := func(label string, books []bookstore.Book) {
		if len(books) == 0 {
			return
		}
		fmt.Fprintf(w, "%s:\n", label)
		for _, b := range books {
			fmt.Fprintf(w, "  %s by %s (ISBN %s): new %s, used %s\n",
				b.Title, b.Author, b.ISBN, formatPrice(b.NewPrice), formatPrice(b.UsedPrice))
		}
	}
	writeBooks("Required", list.Required)
	if list.ASSoftReserves {
		fmt.Fprintln(w, "Required: custom course reader from A.S. Soft Reserves")
	}
	writeBooks("Optional", list.Optional)
	return nil
}

func formatPrice(price float64) string {
	if math.IsNaN(price) {
		return "out of stock"
	}
	return fmt.Sprintf("$%.2f", price)
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
