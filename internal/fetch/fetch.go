// Package fetch implements the session-scoped page fetcher: it issues GET and
// form-POST requests, persists cookies across calls, repairs the site's known
// markup defects, and retries transient transport failures forever at a fixed
// delay.
//
// A fetch only fails when its context is cancelled; if the site is
// permanently unreachable and the caller sets no deadline, the fetch blocks
// until the process is killed. Callers that need a bound put one on the
// context.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"

	"github.com/tritonscrape/tritonscrape/internal/siteconfig"
)

// brTags matches line-break tags, which the site sprinkles mid-cell and which
// would otherwise split cell text into spurious fragments.
var brTags = regexp.MustCompile(`(?i)<br\s*/?>`)

// markupRepairs are the literal substring defects in the site's HTML that
// make the parser misread the page: an unterminated image-tag attribute and a
// malformed inline-script terminator. Nothing beyond these two is fixed.
var markupRepairs = [...]struct{ broken, fixed string }{
	{`question.gif"`, `question.gif">`},
	{`')";`, `');"`},
}

// Session fetches pages within one logical browsing session. Cookies set by
// any response are presented on every later request from the same Session.
// A Session must not be shared across concurrent crawls; independent
// Sessions are fully isolated.
type Session struct {
	client     *resty.Client
	retryDelay backoff.BackOff
	log        *slog.Logger
}

// NewSession builds a session with a fresh cookie jar.
func NewSession(cfg *siteconfig.Config, log *slog.Logger) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	client := resty.New().
		SetCookieJar(jar).
		SetHeader("User-Agent", cfg.UserAgent).
		SetTimeout(cfg.SocketTimeout)

	return &Session{
		client:     client,
		retryDelay: backoff.NewConstantBackOff(cfg.RetryDelay),
		log:        log,
	}, nil
}

// Fetch retrieves rawURL and parses it into a document, returning the final
// URL after redirects. A nil form means GET; otherwise the form is POSTed.
// When repair is set the known markup defects are fixed before parsing.
//
// Transport errors, bad status lines, and HTTP error statuses are all
// retried indefinitely after the configured delay; the only error Fetch
// returns is ctx.Err().
func (s *Session) Fetch(ctx context.Context, rawURL string, form url.Values, repair bool) (*goquery.Document, string, error) {
	var (
		doc      *goquery.Document
		finalURL string
	)

	attempt := func() error {
		req := s.client.R().SetContext(ctx)

		var (
			resp *resty.Response
			err  error
		)
		if form != nil {
			resp, err = req.SetFormDataFromValues(form).Post(rawURL)
		} else {
			resp, err = req.Get(rawURL)
		}
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			s.log.Error("transport error, waiting and retrying",
				"url", rawURL, "error", err)
			return err
		}
		if resp.IsError() {
			s.log.Error("error status, waiting and retrying",
				"url", rawURL, "status", resp.StatusCode())
			return fmt.Errorf("status %d fetching %s", resp.StatusCode(), rawURL)
		}

		body := brTags.ReplaceAllString(resp.String(), " ")
		if repair {
			body = RepairMarkup(body)
		}
		d, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err != nil {
			s.log.Error("unparseable response body, waiting and retrying",
				"url", rawURL, "error", err)
			return err
		}

		doc = d
		finalURL = resp.RawResponse.Request.URL.String()
		return nil
	}

	err := backoff.Retry(attempt, backoff.WithContext(s.retryDelay, ctx))
	if err != nil {
		return nil, "", err
	}
	s.log.Debug("fetched page", "url", rawURL, "final_url", finalURL, "post", form != nil)
	return doc, finalURL, nil
}

// RepairMarkup applies the known literal substring fixes to a raw page body.
func RepairMarkup(body string) string {
	for _, r := range markupRepairs {
		body = strings.ReplaceAll(body, r.broken, r.fixed)
	}
	return body
}
