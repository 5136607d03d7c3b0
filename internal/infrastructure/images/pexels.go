package images

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"FeedPublisher/internal/domain"
)

// DefaultPexelsURL is the Pexels photo search endpoint.
const DefaultPexelsURL = "https://api.pexels.com/v1/search"

// ErrNoPhoto is returned when the stock search has no usable result.
var ErrNoPhoto = errors.New("no stock photo found")

type pexelsResponse struct {
	Photos []struct {
		Src struct {
			Large string `json:"large"`
		} `json:"src"`
	} `json:"photos"`
}

// PexelsSource looks up a keyword-matched landscape stock photo.
type PexelsSource struct {
	apiKey     string
	endpoint   string
	client     *http.Client
	downloader *Downloader
}

// NewPexelsSource wires the search endpoint; empty endpoint uses DefaultPexelsURL.
func NewPexelsSource(apiKey, endpoint string, client *http.Client, downloader *Downloader) *PexelsSource {
	if endpoint == "" {
		endpoint = DefaultPexelsURL
	}
	if client == nil {
		client = downloader.client
	}
	return &PexelsSource{apiKey: apiKey, endpoint: endpoint, client: client, downloader: downloader}
}

// Name identifies the source in logs.
func (p *PexelsSource) Name() string { return "pexels" }

// Fetch searches by title keywords and stores the photo as pexels_<hash12(title)>.
func (p *PexelsSource) Fetch(ctx context.Context, req domain.ImageRequest, dir string) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("pexels api key is not set")
	}

	query := SearchQuery(req.Title)
	photoURL, err := p.search(ctx, query)
	if err != nil {
		return "", fmt.Errorf("pexels search %q: %w", query, err)
	}

	return p.downloader.Download(ctx, photoURL, dir, "pexels", req.Title)
}

func (p *PexelsSource) search(ctx context.Context, query string) (string, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("query", query)
	q.Set("per_page", "1")
	q.Set("orientation", "landscape")
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", p.apiKey)
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return "", fmt.Errorf("unexpected status %s: %s", resp.Status, body)
	}

	var payload pexelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(payload.Photos) == 0 || payload.Photos[0].Src.Large == "" {
		return "", ErrNoPhoto
	}
	return payload.Photos[0].Src.Large, nil
}
