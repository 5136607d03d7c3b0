package scanner

import (
	"context"
	"fmt"

	"FeedPublisher/internal/domain"
)

// DefaultName is the strategy used when a feed does not name one.
const DefaultName = "rss"

// Request carries all parameters required to read one feed.
type Request struct {
	FeedURL string
	// Limit caps how many of the feed's leading items are returned; 0 means no cap.
	Limit int
}

// Scanner captures a single feed-reading strategy.
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]domain.RawEntry, error)
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
// An empty name resolves to DefaultName.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if name == "" {
		name = DefaultName
	}
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner %s is not registered", name)
}
