package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"FeedPublisher/internal/config"
	"FeedPublisher/internal/domain"
	"FeedPublisher/internal/metrics"
	"FeedPublisher/internal/ports"
	"FeedPublisher/internal/scanner"
)

// FetchOptions bounds how much of each feed is considered.
type FetchOptions struct {
	MaxEntriesPerFeed int
	// MaxAge drops entries with a known publish time older than now-MaxAge; 0 disables.
	MaxAge time.Duration
}

// StrategySource implements FeedSource via registered scanner strategies.
type StrategySource struct {
	registry   *scanner.Registry
	feeds      []config.FeedConfig
	normalizer *Normalizer
	opts       FetchOptions
	logger     *slog.Logger
}

var _ ports.FeedSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined feeds.
func NewStrategySource(reg *scanner.Registry, feeds []config.FeedConfig, normalizer *Normalizer, opts FetchOptions, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry:   reg,
		feeds:      feeds,
		normalizer: normalizer,
		opts:       opts,
		logger:     log,
	}
}

// FetchEntries reads every feed in turn. A failing feed is logged and skipped.
func (s *StrategySource) FetchEntries(ctx context.Context, now time.Time) ([]domain.FeedEntry, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}
	if s.normalizer == nil {
		return nil, fmt.Errorf("normalizer is not configured")
	}

	var cutoff time.Time
	if s.opts.MaxAge > 0 {
		cutoff = now.Add(-s.opts.MaxAge)
	}

	var aggregated []domain.FeedEntry
	for _, feed := range s.feeds {
		entries, err := s.fetchFeed(ctx, feed, cutoff)
		if err != nil {
			s.warn("feed fetch failed", "feed", feed.URL, "error", err)
			metrics.StageFailures.WithLabelValues(domain.StageFetch).Inc()
			continue
		}
		s.info("feed fetched", "feed", feed.URL, "entries", len(entries), "limit", s.opts.MaxEntriesPerFeed, "max_age", s.opts.MaxAge)
		aggregated = append(aggregated, entries...)
	}

	s.info("fetch done", "feeds", len(s.feeds), "total_entries", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) fetchFeed(ctx context.Context, feed config.FeedConfig, cutoff time.Time) ([]domain.FeedEntry, error) {
	strategy, err := s.registry.Resolve(feed.Scanner)
	if err != nil {
		return nil, err
	}

	raws, err := strategy.Scan(ctx, scanner.Request{FeedURL: feed.URL, Limit: s.opts.MaxEntriesPerFeed})
	if err != nil {
		return nil, err
	}

	entries := make([]domain.FeedEntry, 0, len(raws))
	for _, raw := range raws {
		if isStale(raw, cutoff) {
			s.debug("skipping stale entry", "feed", feed.URL, "title", raw.Title)
			continue
		}

		entry, err := s.normalizer.Normalize(ctx, raw, feed.URL)
		if err != nil {
			s.warn("entry dropped", "feed", feed.URL, "title", raw.Title, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// isStale reports whether the entry has a known timestamp older than cutoff.
// Entries without any timestamp are never stale.
func isStale(raw domain.RawEntry, cutoff time.Time) bool {
	if cutoff.IsZero() {
		return false
	}
	ts := raw.PublishedAt
	if ts == nil {
		ts = raw.UpdatedAt
	}
	return ts != nil && ts.Before(cutoff)
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) info(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
