package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"FeedPublisher/internal/domain"
	"FeedPublisher/internal/scanner"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) FeedPublisher/1.0"

// RSSScanner reads RSS, Atom and JSON feeds through gofeed.
type RSSScanner struct {
	parser *gofeed.Parser
	logger *slog.Logger
}

var _ scanner.Scanner = (*RSSScanner)(nil)

// NewRSSScanner wires an HTTP client; a nil client gets a 30 second timeout.
func NewRSSScanner(client *http.Client, log *slog.Logger) *RSSScanner {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	fp := gofeed.NewParser()
	fp.Client = client
	fp.UserAgent = userAgent
	return &RSSScanner{parser: fp, logger: log}
}

// Name identifies the strategy inside the registry.
func (s *RSSScanner) Name() string {
	return scanner.DefaultName
}

// Scan fetches the feed and converts its leading items.
func (s *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawEntry, error) {
	if strings.TrimSpace(req.FeedURL) == "" {
		return nil, fmt.Errorf("feed url is empty")
	}

	feed, err := s.parser.ParseURLWithContext(req.FeedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", req.FeedURL, err)
	}

	items := feed.Items
	if req.Limit > 0 && len(items) > req.Limit {
		items = items[:req.Limit]
	}

	if s.logger != nil {
		s.logger.Debug("feed parsed", "feed", req.FeedURL, "title", feed.Title, "items", len(feed.Items), "examined", len(items))
	}

	entries := make([]domain.RawEntry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, toRawEntry(item))
	}
	return entries, nil
}

func toRawEntry(item *gofeed.Item) domain.RawEntry {
	raw := domain.RawEntry{
		ID:          strings.TrimSpace(item.GUID),
		Title:       item.Title,
		Link:        strings.TrimSpace(item.Link),
		PublishedAt: item.PublishedParsed,
		UpdatedAt:   item.UpdatedParsed,
		Summary:     item.Description,
		Content:     item.Content,
	}

	if item.Image != nil {
		raw.ImageURL = item.Image.URL
	}

	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		raw.Enclosures = append(raw.Enclosures, domain.Enclosure{URL: enc.URL, Type: enc.Type})
	}

	if media, ok := item.Extensions["media"]; ok {
		raw.MediaContent = mediaURLs(media, "content")
		raw.MediaThumbnails = mediaURLs(media, "thumbnail")
	}

	return raw
}

// mediaURLs collects url attributes of media:<name> elements, including those
// nested in media:group.
func mediaURLs(media map[string][]ext.Extension, name string) []string {
	var urls []string
	collect := func(list []ext.Extension) {
		for _, el := range list {
			if name == "content" && !isImageMedia(el.Attrs) {
				continue
			}
			if u := strings.TrimSpace(el.Attrs["url"]); u != "" {
				urls = append(urls, u)
			}
		}
	}

	collect(media[name])
	for _, group := range media["group"] {
		collect(group.Children[name])
	}
	return urls
}

func isImageMedia(attrs map[string]string) bool {
	if medium := attrs["medium"]; medium != "" && medium != "image" {
		return false
	}
	if typ := attrs["type"]; typ != "" && !strings.HasPrefix(typ, "image/") {
		return false
	}
	return true
}
