package images

import (
	"context"
	"errors"
	"log/slog"

	"FeedPublisher/internal/domain"
	"FeedPublisher/internal/ports"
)

// ErrNoImage means neither the feed nor the fallback produced an image.
var ErrNoImage = errors.New("no image available")

// Source is a secondary image provider used when the feed has no usable image.
type Source interface {
	Name() string
	Fetch(ctx context.Context, req domain.ImageRequest, dir string) (string, error)
}

// Resolver prefers the feed's own image and falls back to a Source.
type Resolver struct {
	dir        string
	downloader *Downloader
	fallback   Source
	logger     *slog.Logger
}

var _ ports.ImageResolver = (*Resolver)(nil)

// NewResolver wires the output directory and an optional fallback.
func NewResolver(dir string, downloader *Downloader, fallback Source, log *slog.Logger) *Resolver {
	if downloader == nil {
		downloader = NewDownloader(nil)
	}
	return &Resolver{dir: dir, downloader: downloader, fallback: fallback, logger: log}
}

// Resolve returns a local image path or a StageError for the image stage.
func (r *Resolver) Resolve(ctx context.Context, req domain.ImageRequest) (string, error) {
	if req.MediaURL != "" {
		p, err := r.downloader.Download(ctx, req.MediaURL, r.dir, "image", req.MediaURL)
		if err == nil {
			r.info("feed image saved", "url", req.MediaURL, "path", p)
			return p, nil
		}
		r.warn("feed image unusable, trying fallback", "url", req.MediaURL, "error", err)
	}

	if r.fallback == nil {
		return "", domain.Fail(domain.StageImage, domain.KindData, ErrNoImage)
	}

	p, err := r.fallback.Fetch(ctx, req, r.dir)
	if err != nil {
		return "", domain.Fail(domain.StageImage, domain.KindTransient, err)
	}
	r.info("fallback image saved", "source", r.fallback.Name(), "path", p)
	return p, nil
}

func (r *Resolver) info(msg string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}

func (r *Resolver) warn(msg string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
