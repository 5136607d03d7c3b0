package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"FeedPublisher/internal/domain"
	"FeedPublisher/internal/metrics"
	"FeedPublisher/internal/ports"
)

// RunResult summarises one pass over all feeds.
type RunResult struct {
	Processed int
	Errors    int
	Published []domain.PublishedArticle
}

// Failed reports whether every processed entry errored and none succeeded.
func (r RunResult) Failed() bool {
	return r.Errors > 0 && r.Processed == 0
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.FeedSource
	Store      ports.DedupStore
	Rewriter   ports.Rewriter
	Images     ports.ImageResolver
	Publishers ports.PublisherFactory
	Notifiers  []ports.Notifier
	// EntryPause is the minimum spacing between two entries; 0 disables it.
	EntryPause time.Duration
	PostStatus string
	// SiteURL builds destination links when the backend returns none.
	SiteURL string
	Logger  *slog.Logger
	Now     func() time.Time
}

// Pipeline implements the feed-to-post workflow.
type Pipeline struct {
	source     ports.FeedSource
	store      ports.DedupStore
	rewriter   ports.Rewriter
	images     ports.ImageResolver
	publishers ports.PublisherFactory
	notifiers  []ports.Notifier
	entryPause time.Duration
	postStatus string
	siteURL    string
	logger     *slog.Logger
	now        func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		source:     deps.Source,
		store:      deps.Store,
		rewriter:   deps.Rewriter,
		images:     deps.Images,
		publishers: deps.Publishers,
		notifiers:  deps.Notifiers,
		entryPause: deps.EntryPause,
		postStatus: deps.PostStatus,
		siteURL:    strings.TrimRight(deps.SiteURL, "/"),
		logger:     deps.Logger,
		now:        now,
	}
}

// RunOnce drives PREFLIGHT, FETCH, FILTER, PROCESS and NOTIFY once.
func (p *Pipeline) RunOnce(ctx context.Context) RunResult {
	log := p.logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log = log.With("run_id", uuid.NewString())
	started := p.now()
	defer metrics.LastRunTimestamp.SetToCurrentTime()

	if p.source == nil || p.store == nil || p.rewriter == nil || p.publishers == nil {
		log.Error("pipeline is not fully configured")
		metrics.RunsTotal.WithLabelValues("misconfigured").Inc()
		return RunResult{Errors: 1}
	}

	log.Info("run started", "at", started.Format(time.RFC3339))

	publisher := p.publishers()
	if _, err := publisher.CheckConnection(ctx); err != nil {
		log.Error("publisher connection check failed", "error", err)
		metrics.StageFailures.WithLabelValues(domain.StagePreflight).Inc()
		metrics.RunsTotal.WithLabelValues("preflight_failed").Inc()
		return RunResult{Errors: 1}
	}

	entries, err := p.source.FetchEntries(ctx, started)
	if err != nil {
		log.Error("fetch failed", "error", err)
		metrics.StageFailures.WithLabelValues(domain.StageFetch).Inc()
		metrics.RunsTotal.WithLabelValues("fetch_failed").Inc()
		return RunResult{Errors: 1}
	}
	log.Info("entries fetched", "total", len(entries))

	fresh, filterErrors := p.filter(ctx, log, entries)
	result := RunResult{Errors: filterErrors}
	log.Info("new entries to process", "count", len(fresh))

	limit := rate.Inf
	if p.entryPause > 0 {
		limit = rate.Every(p.entryPause)
	}
	pacer := rate.NewLimiter(limit, 1)

	for _, entry := range fresh {
		if err := pacer.Wait(ctx); err != nil {
			log.Warn("run interrupted", "error", err)
			break
		}

		entryLog := log.With("id", entry.ID, "feed", entry.SourceFeed)
		published, err := p.processEntry(ctx, entryLog, publisher, entry)
		if err != nil {
			result.Errors++
			metrics.EntriesTotal.WithLabelValues("failed").Inc()
			metrics.StageFailures.WithLabelValues(stageLabel(err)).Inc()
			entryLog.Error("entry failed", "title", entry.Title, "stage", domain.StageOf(err), "kind", domain.KindOf(err), "error", err)
			continue
		}

		result.Processed++
		result.Published = append(result.Published, published)
		metrics.EntriesTotal.WithLabelValues("published").Inc()
	}

	if len(result.Published) > 0 {
		p.notify(ctx, log, result.Published)
	}

	stored, err := p.store.Count(ctx)
	if err != nil {
		log.Warn("count dedup store failed", "error", err)
	}
	log.Info("run finished",
		"processed", result.Processed,
		"errors", result.Errors,
		"stored_entries", stored,
		"duration", p.now().Sub(started))
	outcome := "ok"
	if result.Failed() {
		outcome = "failed"
	}
	metrics.RunsTotal.WithLabelValues(outcome).Inc()

	return result
}

// filter drops entries already in the store and repeats within this batch.
func (p *Pipeline) filter(ctx context.Context, log *slog.Logger, entries []domain.FeedEntry) ([]domain.FeedEntry, int) {
	var fresh []domain.FeedEntry
	errs := 0
	inBatch := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if _, dup := inBatch[entry.ID]; dup {
			log.Debug("skipping repeated entry", "id", entry.ID)
			metrics.EntriesTotal.WithLabelValues("skipped").Inc()
			continue
		}
		inBatch[entry.ID] = struct{}{}

		seen, err := p.store.Seen(ctx, entry.ID)
		if err != nil {
			log.Error("dedup lookup failed", "id", entry.ID, "error", err)
			metrics.StageFailures.WithLabelValues(domain.StageRecord).Inc()
			errs++
			continue
		}
		if seen {
			log.Debug("skipping already processed", "id", entry.ID)
			metrics.EntriesTotal.WithLabelValues("skipped").Inc()
			continue
		}
		fresh = append(fresh, entry)
	}
	return fresh, errs
}

func (p *Pipeline) processEntry(ctx context.Context, log *slog.Logger, publisher ports.Publisher, entry domain.FeedEntry) (domain.PublishedArticle, error) {
	log.Info("processing entry", "title", entry.Title)

	article, err := p.rewriter.Rewrite(ctx, entry)
	if err != nil {
		return domain.PublishedArticle{}, err
	}

	imagePath := p.resolveImage(ctx, log, entry)

	var categoryIDs []int64
	if id, err := publisher.ResolveCategory(ctx, article.Category); err != nil {
		log.Warn("category skipped", "category", article.Category, "error", err)
		metrics.StageFailures.WithLabelValues(domain.StageTaxonomy).Inc()
	} else {
		categoryIDs = append(categoryIDs, id)
	}

	var tagIDs []int64
	for _, tag := range article.Tags {
		id, err := publisher.ResolveTag(ctx, tag)
		if err != nil {
			log.Warn("tag skipped", "tag", tag, "error", err)
			metrics.StageFailures.WithLabelValues(domain.StageTaxonomy).Inc()
			continue
		}
		tagIDs = append(tagIDs, id)
	}
	log.Debug("taxonomy resolved", "categories", categoryIDs, "tags", tagIDs)

	var mediaID int64
	if imagePath != "" {
		mediaID, err = publisher.UploadMedia(ctx, domain.MediaUpload{
			Path:    imagePath,
			AltText: article.Headline,
			Caption: "Image for: " + article.Headline,
		})
		if err != nil {
			log.Warn("media upload failed, posting without featured image", "path", imagePath, "error", err)
			metrics.StageFailures.WithLabelValues(domain.StageMedia).Inc()
			mediaID = 0
		}
	}

	ref, err := publisher.CreatePost(ctx, domain.PostDraft{
		Title:         article.Headline,
		Content:       article.Body,
		Status:        p.postStatus,
		CategoryIDs:   categoryIDs,
		TagIDs:        tagIDs,
		FeaturedMedia: mediaID,
	})
	if err != nil {
		return domain.PublishedArticle{}, err
	}

	if err := p.store.Record(ctx, domain.DedupRecord{
		ID:          entry.ID,
		PostID:      ref.ID,
		SourceFeed:  entry.SourceFeed,
		Title:       entry.Title,
		ProcessedAt: p.now().UTC(),
	}); err != nil {
		if domain.KindOf(err) == domain.KindDuplicate {
			log.Warn("entry was already recorded", "post_id", ref.ID, "error", err)
		} else {
			log.Error("dedup record failed, entry may be republished", "post_id", ref.ID, "error", err)
			metrics.StageFailures.WithLabelValues(domain.StageRecord).Inc()
		}
	}

	log.Info("entry published", "post_id", ref.ID, "headline", article.Headline, "featured_media", mediaID)
	return domain.PublishedArticle{
		Headline:       article.Headline,
		SourceURL:      entry.Link,
		DestinationURL: p.destinationURL(ref),
		PostID:         ref.ID,
	}, nil
}

// resolveImage returns "" when no image could be obtained.
func (p *Pipeline) resolveImage(ctx context.Context, log *slog.Logger, entry domain.FeedEntry) string {
	if p.images == nil {
		return ""
	}
	path, err := p.images.Resolve(ctx, domain.ImageRequest{
		MediaURL: entry.ImageURL,
		Title:    entry.Title,
		Content:  entry.Body,
	})
	if err != nil {
		log.Warn("no image available", "title", entry.Title, "error", err)
		metrics.StageFailures.WithLabelValues(domain.StageImage).Inc()
		return ""
	}
	return path
}

func (p *Pipeline) notify(ctx context.Context, log *slog.Logger, published []domain.PublishedArticle) {
	for _, n := range p.notifiers {
		if n == nil {
			continue
		}
		if err := n.NotifyPublished(ctx, published); err != nil {
			log.Warn("notification failed", "error", err)
			metrics.StageFailures.WithLabelValues(domain.StageNotify).Inc()
		}
	}
}

func (p *Pipeline) destinationURL(ref domain.PostRef) string {
	if ref.Link != "" {
		return ref.Link
	}
	return fmt.Sprintf("%s/?p=%d", p.siteURL, ref.ID)
}

func stageLabel(err error) string {
	if stage := domain.StageOf(err); stage != "" {
		return stage
	}
	return "unknown"
}
