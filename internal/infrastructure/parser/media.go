package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"FeedPublisher/internal/domain"
)

// ExtractMediaURL returns the best image hint for an entry.
// Priority: media:content > media:thumbnail > item image > image enclosure >
// first <img> in the content (or summary when content is empty).
func ExtractMediaURL(raw domain.RawEntry) string {
	for _, u := range raw.MediaContent {
		if isHTTPURL(u) {
			return u
		}
	}
	for _, u := range raw.MediaThumbnails {
		if isHTTPURL(u) {
			return u
		}
	}
	if isHTTPURL(raw.ImageURL) {
		return raw.ImageURL
	}
	for _, enc := range raw.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") && isHTTPURL(enc.URL) {
			return enc.URL
		}
	}

	html := raw.Content
	if strings.TrimSpace(html) == "" {
		html = raw.Summary
	}
	return firstImageSrc(html)
}

// firstImageSrc inspects the first <img> tag, honoring data-src for lazy-loaded images.
func firstImageSrc(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	img := doc.Find("img").First()
	if img.Length() == 0 {
		return ""
	}
	if src, ok := img.Attr("src"); ok && isHTTPURL(src) {
		return src
	}
	if src, ok := img.Attr("data-src"); ok && isHTTPURL(src) {
		return src
	}
	return ""
}

func isHTTPURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
