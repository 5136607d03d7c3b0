package images

import (
	"context"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"FeedPublisher/internal/domain"
	"FeedPublisher/internal/ports"
)

const maxExcerptChars = 300

var excerptPolicy = bluemonday.StrictPolicy()

// GeneratedSource asks a text-to-image model for an illustration.
type GeneratedSource struct {
	generator  ports.ImageGenerator
	downloader *Downloader
}

// NewGeneratedSource wires an image generator.
func NewGeneratedSource(gen ports.ImageGenerator, downloader *Downloader) *GeneratedSource {
	return &GeneratedSource{generator: gen, downloader: downloader}
}

// Name identifies the source in logs.
func (g *GeneratedSource) Name() string { return "generate" }

// Fetch generates an image and stores it as generated_<hash12(prompt)>.
func (g *GeneratedSource) Fetch(ctx context.Context, req domain.ImageRequest, dir string) (string, error) {
	if g.generator == nil {
		return "", fmt.Errorf("image generator is not configured")
	}

	prompt := BuildPrompt(req.Title, req.Content)
	imageURL, err := g.generator.GenerateImage(ctx, prompt)
	if err != nil {
		return "", err
	}
	return g.downloader.Download(ctx, imageURL, dir, "generated", prompt)
}

// BuildPrompt embeds the title and a short plain-text excerpt and forbids any
// lettering in the picture.
func BuildPrompt(title, content string) string {
	excerpt := strings.Join(strings.Fields(html.UnescapeString(excerptPolicy.Sanitize(strings.ReplaceAll(content, "<", " <")))), " ")
	if utf8.RuneCountInString(excerpt) > maxExcerptChars {
		excerpt = string([]rune(excerpt)[:maxExcerptChars])
	}

	var b strings.Builder
	b.WriteString("A realistic editorial news photograph illustrating the story \"")
	b.WriteString(strings.TrimSpace(title))
	b.WriteString("\".")
	if excerpt != "" {
		b.WriteString(" Context: ")
		b.WriteString(excerpt)
	}
	b.WriteString(" Natural lighting, landscape composition. Do not include any text, letters, captions, logos or watermarks.")
	return b.String()
}
