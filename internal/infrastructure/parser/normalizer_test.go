package parser

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"FeedPublisher/internal/domain"
)

type fakeScraper struct {
	text  string
	calls []string
}

func (f *fakeScraper) Scrape(_ context.Context, pageURL string) string {
	f.calls = append(f.calls, pageURL)
	return f.text
}

func TestNormalizeDropsEntryWithoutIdentifier(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(nil, nil)
	_, err := n.Normalize(context.Background(), domain.RawEntry{Title: "No id"}, "https://feed.example.com")
	if !errors.Is(err, ErrNoIdentifier) {
		t.Fatalf("expected ErrNoIdentifier, got %v", err)
	}
	if domain.KindOf(err) != domain.KindData {
		t.Fatalf("expected data failure, got %s", domain.KindOf(err))
	}
}

func TestNormalizeIdentifierFallsBackToLink(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(nil, nil)
	entry, err := n.Normalize(context.Background(), domain.RawEntry{Link: "https://news.example.com/a"}, "feed")
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if entry.ID != "https://news.example.com/a" {
		t.Fatalf("unexpected id: %s", entry.ID)
	}
	if entry.Title != "Untitled" {
		t.Fatalf("unexpected title: %s", entry.Title)
	}
	if entry.SourceFeed != "feed" {
		t.Fatalf("unexpected source feed: %s", entry.SourceFeed)
	}
}

func TestNormalizeBodyResolution(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", ShortBodyThreshold)
	updated := time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC)

	n := NewNormalizer(nil, nil)
	entry, err := n.Normalize(context.Background(), domain.RawEntry{
		ID:        "id",
		Summary:   "summary",
		Content:   long,
		UpdatedAt: &updated,
	}, "feed")
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if entry.Body != long {
		t.Fatalf("expected content to win over summary")
	}
	if entry.PublishedAt == nil || !entry.PublishedAt.Equal(updated) {
		t.Fatalf("expected updated time fallback, got %v", entry.PublishedAt)
	}

	entry, err = n.Normalize(context.Background(), domain.RawEntry{ID: "id", Summary: "summary only"}, "feed")
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if entry.Body != "summary only" {
		t.Fatalf("expected summary fallback, got %q", entry.Body)
	}

	entry, err = n.Normalize(context.Background(), domain.RawEntry{ID: "id"}, "feed")
	if err != nil {
		t.Fatalf("empty body must be tolerated: %v", err)
	}
	if entry.Body != "" {
		t.Fatalf("expected empty body, got %q", entry.Body)
	}
}

func TestNormalizeBackfillsShortBody(t *testing.T) {
	t.Parallel()

	scraped := strings.Repeat("Scraped paragraph text. ", 20)
	sc := &fakeScraper{text: scraped}
	n := NewNormalizer(sc, nil)

	entry, err := n.Normalize(context.Background(), domain.RawEntry{
		ID:      "id",
		Link:    "https://news.example.com/story",
		Summary: "Short teaser.",
	}, "feed")
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if entry.Body != scraped {
		t.Fatalf("expected scraped body, got %q", entry.Body)
	}
	if entry.Summary != "Short teaser." {
		t.Fatalf("summary must be preserved, got %q", entry.Summary)
	}
	if len(sc.calls) != 1 || sc.calls[0] != "https://news.example.com/story" {
		t.Fatalf("unexpected scrape calls: %v", sc.calls)
	}
}

func TestNormalizeKeepsShortBodyWhenScrapeFails(t *testing.T) {
	t.Parallel()

	sc := &fakeScraper{}
	n := NewNormalizer(sc, nil)

	entry, err := n.Normalize(context.Background(), domain.RawEntry{
		ID:      "id",
		Link:    "https://news.example.com/story",
		Content: "<p>Short body.</p>",
	}, "feed")
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if entry.Body != "<p>Short body.</p>" {
		t.Fatalf("expected original body, got %q", entry.Body)
	}
}

func TestNormalizeSkipsScrapeForLongBodyOrNoLink(t *testing.T) {
	t.Parallel()

	sc := &fakeScraper{text: "unused"}
	n := NewNormalizer(sc, nil)

	if _, err := n.Normalize(context.Background(), domain.RawEntry{ID: "a", Link: "https://x", Content: strings.Repeat("y", ShortBodyThreshold)}, "feed"); err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if _, err := n.Normalize(context.Background(), domain.RawEntry{ID: "b", Content: "short"}, "feed"); err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if len(sc.calls) != 0 {
		t.Fatalf("expected no scrape calls, got %v", sc.calls)
	}
}
