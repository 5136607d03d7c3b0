package parser

import (
	"context"
	"errors"
	"testing"
	"time"

	"FeedPublisher/internal/config"
	"FeedPublisher/internal/domain"
	"FeedPublisher/internal/scanner"
)

type mapScanner struct {
	feeds map[string][]domain.RawEntry
	fail  map[string]bool
	reqs  []scanner.Request
}

func (m *mapScanner) Name() string { return scanner.DefaultName }

func (m *mapScanner) Scan(_ context.Context, req scanner.Request) ([]domain.RawEntry, error) {
	m.reqs = append(m.reqs, req)
	if m.fail[req.FeedURL] {
		return nil, errors.New("feed unavailable")
	}
	return m.feeds[req.FeedURL], nil
}

func TestStrategySourceFetchEntries(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 11, 8, 12, 0, 0, 0, time.UTC)
	fresh := now.Add(-time.Hour)
	stale := now.Add(-48 * time.Hour)

	sc := &mapScanner{
		feeds: map[string][]domain.RawEntry{
			"https://a.example.com/feed": {
				{ID: "fresh", Title: "Fresh", PublishedAt: &fresh, Content: "body"},
				{ID: "stale", Title: "Stale", PublishedAt: &stale, Content: "body"},
				{ID: "undated", Title: "Undated", Content: "body"},
				{Title: "No identifier"},
			},
			"https://c.example.com/feed": {
				{ID: "other", Title: "Other", Content: "body"},
			},
		},
		fail: map[string]bool{"https://b.example.com/feed": true},
	}
	reg := scanner.NewRegistry()
	reg.Register(sc)

	feeds := []config.FeedConfig{
		{URL: "https://a.example.com/feed"},
		{URL: "https://b.example.com/feed"},
		{URL: "https://c.example.com/feed"},
	}

	src := NewStrategySource(reg, feeds, NewNormalizer(nil, nil), FetchOptions{MaxEntriesPerFeed: 5, MaxAge: 24 * time.Hour}, nil)
	entries, err := src.FetchEntries(context.Background(), now)
	if err != nil {
		t.Fatalf("FetchEntries error: %v", err)
	}

	var ids []string
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	want := []string{"fresh", "undated", "other"}
	if len(ids) != len(want) {
		t.Fatalf("unexpected ids: %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("unexpected ids: %v", ids)
		}
	}

	if len(sc.reqs) != 3 {
		t.Fatalf("expected every feed to be scanned, got %d", len(sc.reqs))
	}
	for _, req := range sc.reqs {
		if req.Limit != 5 {
			t.Fatalf("expected per-feed limit 5, got %d", req.Limit)
		}
	}
	if entries[2].SourceFeed != "https://c.example.com/feed" {
		t.Fatalf("unexpected source feed: %s", entries[2].SourceFeed)
	}
}

func TestStrategySourceFreshnessDisabled(t *testing.T) {
	t.Parallel()

	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	sc := &mapScanner{feeds: map[string][]domain.RawEntry{
		"f": {{ID: "old", PublishedAt: &old}},
	}}
	reg := scanner.NewRegistry()
	reg.Register(sc)

	src := NewStrategySource(reg, []config.FeedConfig{{URL: "f"}}, NewNormalizer(nil, nil), FetchOptions{}, nil)
	entries, err := src.FetchEntries(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("FetchEntries error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected old entry to pass without max age, got %d", len(entries))
	}
}

func TestStrategySourceUnknownScannerIsIsolated(t *testing.T) {
	t.Parallel()

	sc := &mapScanner{feeds: map[string][]domain.RawEntry{"ok": {{ID: "1"}}}}
	reg := scanner.NewRegistry()
	reg.Register(sc)

	feeds := []config.FeedConfig{{URL: "bad", Scanner: "unknown"}, {URL: "ok"}}
	src := NewStrategySource(reg, feeds, NewNormalizer(nil, nil), FetchOptions{}, nil)
	entries, err := src.FetchEntries(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("FetchEntries error: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "1" {
		t.Fatalf("unexpected entries: %v", entries)
	}
}
