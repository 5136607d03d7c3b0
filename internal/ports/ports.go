package ports

import (
	"context"
	"time"

	"FeedPublisher/internal/domain"
)

// FeedSource pulls normalized entries from every configured feed.
type FeedSource interface {
	FetchEntries(ctx context.Context, now time.Time) ([]domain.FeedEntry, error)
}

// ContentScraper extracts the main article text from a web page.
// An empty result means nothing usable was found.
type ContentScraper interface {
	Scrape(ctx context.Context, pageURL string) string
}

// DedupStore is the authority on which entries were already published.
type DedupStore interface {
	Seen(ctx context.Context, id string) (bool, error)
	Record(ctx context.Context, record domain.DedupRecord) error
	Count(ctx context.Context) (int, error)
}

// Rewriter turns a feed entry into a styled article.
type Rewriter interface {
	Rewrite(ctx context.Context, entry domain.FeedEntry) (domain.RewrittenArticle, error)
}

// ChatRequest is a single chat-style completion call.
type ChatRequest struct {
	Model        string
	System       string
	User         string
	Temperature  float32
	JSONResponse bool
}

// ChatClient performs chat completions against an LLM API.
type ChatClient interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// ImageGenerator produces an image from a text prompt and returns a fetchable URL.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// ImageResolver finds an illustrative image and returns its local path.
type ImageResolver interface {
	Resolve(ctx context.Context, req domain.ImageRequest) (string, error)
}

// Publisher talks to the content-management backend.
type Publisher interface {
	CheckConnection(ctx context.Context) (string, error)
	ResolveCategory(ctx context.Context, name string) (int64, error)
	ResolveTag(ctx context.Context, name string) (int64, error)
	UploadMedia(ctx context.Context, upload domain.MediaUpload) (int64, error)
	CreatePost(ctx context.Context, draft domain.PostDraft) (domain.PostRef, error)
}

// PublisherFactory builds a publisher with a fresh term cache for one run.
type PublisherFactory func() Publisher

// Notifier delivers the summary of a run's publications.
type Notifier interface {
	NotifyPublished(ctx context.Context, articles []domain.PublishedArticle) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Run(ctx context.Context, job func(context.Context)) error
}
