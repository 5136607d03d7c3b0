package images

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const (
	userAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) FeedPublisher/1.0"
	defaultExt    = ".jpg"
	maxImageBytes = 20 << 20
)

// Downloader fetches remote images and stores them under a directory.
type Downloader struct {
	client *http.Client
}

// NewDownloader wires an HTTP client; nil gets a 30 second timeout.
func NewDownloader(client *http.Client) *Downloader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Downloader{client: client}
}

// Download retrieves imageURL and writes it to dir as <prefix>_<hash12(key)><ext>.
// The response must be 2xx with a non-empty body that sniffs as an image.
func (d *Downloader) Download(ctx context.Context, imageURL, dir, prefix, key string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("download %s: unexpected status %s", imageURL, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", imageURL, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("download %s: empty body", imageURL)
	}
	if detected := mimetype.Detect(data); !strings.HasPrefix(detected.String(), "image/") {
		return "", fmt.Errorf("download %s: content is %s, not an image", imageURL, detected.String())
	}

	ext := extensionFor(resp.Header.Get("Content-Type"), imageURL)
	return writeFile(dir, prefix+"_"+hash12(key)+ext, data)
}

// extensionFor derives the file extension from the declared content type,
// then the URL path, then defaults to .jpg.
func extensionFor(contentType, rawURL string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && strings.HasPrefix(mediaType, "image/") {
		if mt := mimetype.Lookup(mediaType); mt != nil && mt.Extension() != "" {
			return mt.Extension()
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		if ext := path.Ext(u.Path); ext != "" && len(ext) <= 5 {
			return strings.ToLower(ext)
		}
	}
	return defaultExt
}

func writeFile(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return p, nil
}

func hash12(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}
