package parser

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"FeedPublisher/internal/domain"
	"FeedPublisher/internal/ports"
)

// ShortBodyThreshold is the body length (in characters) under which the
// normalizer tries to backfill from the entry's link.
const ShortBodyThreshold = 500

// ErrNoIdentifier marks entries that have neither a native id nor a link.
var ErrNoIdentifier = errors.New("entry has no id or link")

// Normalizer converts raw feed entries into canonical FeedEntry values.
type Normalizer struct {
	scraper ports.ContentScraper
	logger  *slog.Logger
}

// NewNormalizer wires an optional scraper used to backfill short bodies.
func NewNormalizer(scraper ports.ContentScraper, log *slog.Logger) *Normalizer {
	return &Normalizer{scraper: scraper, logger: log}
}

// Normalize resolves identifier, body and media hint for one entry.
func (n *Normalizer) Normalize(ctx context.Context, raw domain.RawEntry, feedURL string) (domain.FeedEntry, error) {
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		id = strings.TrimSpace(raw.Link)
	}
	if id == "" {
		return domain.FeedEntry{}, domain.Fail(domain.StageNormalize, domain.KindData, ErrNoIdentifier)
	}

	title := strings.TrimSpace(raw.Title)
	if title == "" {
		title = "Untitled"
	}

	published := raw.PublishedAt
	if published == nil {
		published = raw.UpdatedAt
	}

	body := raw.Content
	if strings.TrimSpace(body) == "" {
		body = raw.Summary
	}

	link := strings.TrimSpace(raw.Link)
	if length := utf8.RuneCountInString(body); length < ShortBodyThreshold && link != "" && n.scraper != nil {
		n.debug("body short, scraping source page", "id", id, "chars", length, "link", link)
		if scraped := n.scraper.Scrape(ctx, link); scraped != "" {
			body = scraped
		}
	}

	return domain.FeedEntry{
		ID:          id,
		Title:       title,
		Link:        link,
		PublishedAt: published,
		Summary:     raw.Summary,
		Body:        body,
		SourceFeed:  feedURL,
		ImageURL:    ExtractMediaURL(raw),
	}, nil
}

func (n *Normalizer) debug(msg string, args ...interface{}) {
	if n.logger != nil {
		n.logger.Debug(msg, args...)
	}
}
