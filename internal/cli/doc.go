// Package cli implements the command-line interface for tritonscrape.
//
// The cli package provides the Cobra-based CLI with subcommands for listing
// terms and subjects, crawling the schedule of classes, looking up textbook
// lists, and scraping course evaluation statistics, with text/JSON listing
// output and optional SQLite or iCalendar export.
package cli
