package domain

import "time"

// RawEntry is the provider-neutral shape returned by a feed source collaborator.
type RawEntry struct {
	ID              string
	Title           string
	Link            string
	PublishedAt     *time.Time
	UpdatedAt       *time.Time
	Summary         string
	Content         string
	MediaContent    []string
	MediaThumbnails []string
	ImageURL        string
	Enclosures      []Enclosure
}

// Enclosure is a feed attachment with its declared MIME type.
type Enclosure struct {
	URL  string
	Type string
}

// FeedEntry is the canonical, normalized form of a single feed item.
type FeedEntry struct {
	ID          string
	Title       string
	Link        string
	PublishedAt *time.Time
	Summary     string
	Body        string
	SourceFeed  string
	// ImageURL is the media hint surfaced for the image resolver; may be empty.
	ImageURL string
}

// RewrittenArticle is the styled article produced by the rewrite engine.
type RewrittenArticle struct {
	Headline string
	Body     string
	Category string
	Tags     []string
}

// DedupRecord is one row of the dedup store.
type DedupRecord struct {
	ID          string
	PostID      int64
	SourceFeed  string
	Title       string
	ProcessedAt time.Time
}

// PublishedArticle is the notification projection of a successful publish.
type PublishedArticle struct {
	Headline       string
	SourceURL      string
	DestinationURL string
	PostID         int64
}

// ImageRequest carries everything the image resolver may use.
type ImageRequest struct {
	MediaURL string
	Title    string
	Content  string
}

// MediaUpload describes a local file to push to the publishing backend.
type MediaUpload struct {
	Path    string
	AltText string
	Caption string
}

// PostDraft is the payload of a post creation call.
type PostDraft struct {
	Title         string
	Content       string
	Status        string
	CategoryIDs   []int64
	TagIDs        []int64
	FeaturedMedia int64
}

// PostRef identifies a created post.
type PostRef struct {
	ID   int64
	Link string
}
