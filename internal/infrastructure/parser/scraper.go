package parser

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	readability "codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"FeedPublisher/internal/ports"
)

const (
	// MinScrapedLength is the number of characters a candidate must exceed.
	MinScrapedLength = 300
	maxPageBytes     = 4 << 20
)

// DefaultSelectors is tried in order: site-specific body classes, the generic
// article container, then main-content landmarks.
var DefaultSelectors = []string{
	".sidearm-story-template-text",
	".article-body",
	".story-content",
	"article",
	"#main-content",
	"main",
}

// PageScraper pulls the main text of an article page.
type PageScraper struct {
	client    *http.Client
	selectors []string
	minLength int
	logger    *slog.Logger
}

var _ ports.ContentScraper = (*PageScraper)(nil)

// NewPageScraper wires an HTTP client; a nil client gets a 10 second timeout.
func NewPageScraper(client *http.Client, log *slog.Logger) *PageScraper {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &PageScraper{
		client:    client,
		selectors: DefaultSelectors,
		minLength: MinScrapedLength,
		logger:    log,
	}
}

// Scrape returns the first candidate text longer than the minimum length, or "".
// Failures are never reported to the caller.
func (s *PageScraper) Scrape(ctx context.Context, pageURL string) string {
	page, err := s.fetch(ctx, pageURL)
	if err != nil {
		s.debug("scrape failed", "url", pageURL, "error", err)
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		s.debug("scrape parse failed", "url", pageURL, "error", err)
		return ""
	}

	for _, selector := range s.selectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		text := selectionText(sel)
		if utf8.RuneCountInString(text) > s.minLength {
			s.debug("scraped content", "url", pageURL, "selector", selector, "chars", utf8.RuneCountInString(text))
			return text
		}
	}

	if text := readableText(page, pageURL); utf8.RuneCountInString(text) > s.minLength {
		s.debug("scraped content", "url", pageURL, "selector", "readability", "chars", utf8.RuneCountInString(text))
		return text
	}

	return ""
}

func (s *PageScraper) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{status: resp.Status}
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
}

func (s *PageScraper) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

type statusError struct{ status string }

func (e *statusError) Error() string { return "unexpected status " + e.status }

// selectionText joins the selection's text nodes with blank lines, skipping
// script and style content.
func selectionText(sel *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, "\n\n")
}

func readableText(page []byte, pageURL string) string {
	var base *url.URL
	if u, err := url.Parse(pageURL); err == nil {
		base = u
	}

	article, err := readability.FromReader(bytes.NewReader(page), base)
	if err != nil {
		return ""
	}

	var buf strings.Builder
	if err := article.RenderText(&buf); err != nil {
		return ""
	}
	return strings.TrimSpace(buf.String())
}
