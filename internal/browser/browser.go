// Package browser drives the crawl: it discovers terms and subjects from the
// schedule search page, submits the prepared search query, walks the
// paginated results, and exposes the parsed course instances as a lazy,
// read-once sequence.
package browser

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/tritonscrape/tritonscrape/internal/campus"
	"github.com/tritonscrape/tritonscrape/internal/catalog"
	"github.com/tritonscrape/tritonscrape/internal/fetch"
	"github.com/tritonscrape/tritonscrape/internal/query"
	"github.com/tritonscrape/tritonscrape/internal/results"
	"github.com/tritonscrape/tritonscrape/internal/siteconfig"
)

// Term is one academic term offered by the search form.
type Term struct {
	Name string `json:"name"`
	Code string `json:"code"`
	// IsDefault marks the term the form preselects (the current one).
	IsDefault bool `json:"is_default"`
}

// Subject is one academic subject offered by the search form.
type Subject struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// Browser crawls the schedule of classes within one browsing session. It is
// not safe for concurrent use: the session's cookie store and the crawl
// state belong to one logical user. Run independent Browsers for concurrent
// crawls.
type Browser struct {
	cfg     *siteconfig.Config
	session *fetch.Session
	parser  *results.Parser
	log     *slog.Logger
}

// New builds a Browser: it opens a session, scrapes the building-code and
// restriction-code reference pages once, and wires the results parser with
// that reference data.
func New(ctx context.Context, cfg *siteconfig.Config, log *slog.Logger) (*Browser, error) {
	session, err := fetch.NewSession(cfg, log)
	if err != nil {
		return nil, err
	}

	buildingsDoc, _, err := session.Fetch(ctx, cfg.BuildingCodesURL, nil, false)
	if err != nil {
		return nil, fmt.Errorf("fetching building codes: %w", err)
	}
	registry := campus.NewRegistry(buildingsDoc)
	log.Debug("loaded building registry", "buildings", registry.Len())

	restrictionsDoc, _, err := session.Fetch(ctx, cfg.RestrictionCodesURL, nil, false)
	if err != nil {
		return nil, fmt.Errorf("fetching restriction codes: %w", err)
	}
	restrictions := campus.NewRestrictionTable(restrictionsDoc)

	return &Browser{
		cfg:     cfg,
		session: session,
		parser:  results.NewParser(cfg, registry, restrictions, log),
		log:     log,
	}, nil
}

// scheduleURL finds the schedule-of-classes search page by its link text on
// the home page. If the link text changes, the site has probably changed
// enough to break the rest of the scraper too.
func (b *Browser) scheduleURL(ctx context.Context) (string, error) {
	home, homeURL, err := b.session.Fetch(ctx, b.cfg.HomeURL, nil, false)
	if err != nil {
		return "", err
	}

	var href string
	home.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.TrimSpace(a.Text()) == b.cfg.ScheduleLinkText {
			href = a.AttrOr("href", "")
			return false
		}
		return true
	})
	if href == "" {
		return "", fmt.Errorf("schedule link %q not found on %s", b.cfg.ScheduleLinkText, b.cfg.HomeURL)
	}
	return resolveURL(homeURL, href)
}

// Terms lists the recent, current, and upcoming academic terms the search
// form offers.
func (b *Browser) Terms(ctx context.Context) ([]Term, error) {
	doc, err := b.searchPage(ctx)
	if err != nil {
		return nil, err
	}

	var terms []Term
	doc.Find(fmt.Sprintf("select[name='%s'] option", b.cfg.TermSelectName)).
		Each(func(_ int, opt *goquery.Selection) {
			_, selected := opt.Attr("selected")
			terms = append(terms, Term{
				Name:      strings.TrimSpace(opt.Text()),
				Code:      opt.AttrOr("value", ""),
				IsDefault: selected,
			})
		})
	return terms, nil
}

// Subjects lists the academic subjects the search form offers, minus the
// configured blacklist. Option text reads "CODE - Subject Name".
func (b *Browser) Subjects(ctx context.Context) ([]Subject, error) {
	doc, err := b.searchPage(ctx)
	if err != nil {
		return nil, err
	}

	blacklist := make(map[string]bool, len(b.cfg.SubjectBlacklist))
	for _, code := range b.cfg.SubjectBlacklist {
		blacklist[code] = true
	}

	var subjects []Subject
	doc.Find(fmt.Sprintf("select[name='%s'] option", b.cfg.SubjectSelectName)).
		Each(func(_ int, opt *goquery.Selection) {
			code := opt.AttrOr("value", "")
			if code == "" || blacklist[code] {
				return
			}
			name := ""
			if _, after, ok := strings.Cut(opt.Text(), "-"); ok {
				name = strings.TrimSpace(after)
			}
			subjects = append(subjects, Subject{Name: name, Code: code})
		})
	return subjects, nil
}

func (b *Browser) searchPage(ctx context.Context) (*goquery.Document, error) {
	schedURL, err := b.scheduleURL(ctx)
	if err != nil {
		return nil, err
	}
	doc, _, err := b.session.Fetch(ctx, schedURL, nil, false)
	return doc, err
}

// ClassesFor crawls every course instance in one subject during one term.
//
// The sequence is lazy and read-once: pages are fetched as the caller
// advances, and re-ranging requires a new call (which restarts the crawl
// from the first page). Transient site errors are absorbed by waiting and
// refetching the current page; structural errors end the sequence with a
// non-nil error.
func (b *Browser) ClassesFor(ctx context.Context, termCode, subjectCode string) iter.Seq2[*catalog.CourseInstance, error] {
	return func(yield func(*catalog.CourseInstance, error) bool) {
		b.log.Info("crawling subject", "term", termCode, "subject", subjectCode)

		// current is the URL of the page being parsed; empty means the
		// first page, which is only reachable through the POSTed search.
		current := ""
		var pageURL string

		fetchPage := func() (*goquery.Document, error) {
			if current == "" {
				doc, finalURL, err := b.runSearch(ctx, termCode, subjectCode)
				pageURL = finalURL
				return doc, err
			}
			doc, finalURL, err := b.session.Fetch(ctx, current, nil, true)
			pageURL = finalURL
			return doc, err
		}

		doc, err := fetchPage()
		if err != nil {
			yield(nil, err)
			return
		}
		for {
			page, err := b.parser.ParsePage(doc, subjectCode)
			if err != nil {
				if results.IsTransient(err) {
					b.log.Info("transient site error, waiting before retrying", "error", err)
					if err := sleep(ctx, b.cfg.RetryDelay); err != nil {
						yield(nil, err)
						return
					}
					if doc, err = fetchPage(); err != nil {
						yield(nil, err)
						return
					}
					continue
				}
				yield(nil, fmt.Errorf("parsing results for %s %s: %w", termCode, subjectCode, err))
				return
			}

			for _, inst := range page.Instances {
				if !yield(inst, nil) {
					return
				}
			}

			if page.NextPageURL == "" {
				return
			}
			next, err := resolveURL(pageURL, page.NextPageURL)
			if err != nil {
				yield(nil, err)
				return
			}
			current = next
			if doc, err = fetchPage(); err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// AllClassesDuring crawls every subject for one term, in subject order. A
// fatal error in one subject is yielded and the crawl moves on to the next
// subject.
func (b *Browser) AllClassesDuring(ctx context.Context, termCode string) iter.Seq2[*catalog.CourseInstance, error] {
	return func(yield func(*catalog.CourseInstance, error) bool) {
		subjects, err := b.Subjects(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, subject := range subjects {
			failed := false
			for inst, err := range b.ClassesFor(ctx, termCode, subject.Code) {
				if err != nil {
					failed = true
					if !yield(nil, fmt.Errorf("subject %s: %w", subject.Code, err)) {
						return
					}
					break
				}
				if !yield(inst, nil) {
					return
				}
			}
			if failed && ctx.Err() != nil {
				return
			}
		}
	}
}

// runSearch fetches the search page, prepares the broadest subject query,
// and POSTs it, returning the first results page.
func (b *Browser) runSearch(ctx context.Context, termCode, subjectCode string) (*goquery.Document, string, error) {
	schedURL, err := b.scheduleURL(ctx)
	if err != nil {
		return nil, "", err
	}
	sched, schedFinalURL, err := b.session.Fetch(ctx, schedURL, nil, false)
	if err != nil {
		return nil, "", err
	}
	postURL, fields, err := query.Prepare(termCode, subjectCode, sched, schedFinalURL, b.cfg)
	if err != nil {
		return nil, "", err
	}
	return b.session.Fetch(ctx, postURL, fields, true)
}

func resolveURL(base, ref string) (string, error) {
	if base == "" {
		return ref, nil
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing base URL %q: %w", base, err)
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parsing URL %q: %w", ref, err)
	}
	return baseURL.ResolveReference(refURL).String(), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
