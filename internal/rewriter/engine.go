package rewriter

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"FeedPublisher/internal/domain"
	"FeedPublisher/internal/ports"
)

const defaultTemperature = 0.7

// Engine rewrites feed entries through a chat model.
type Engine struct {
	chat        ports.ChatClient
	model       string
	temperature float32
	logger      *slog.Logger
}

var _ ports.Rewriter = (*Engine)(nil)

// NewEngine wires a chat client; a non-positive temperature uses 0.7.
func NewEngine(chat ports.ChatClient, model string, temperature float32, log *slog.Logger) *Engine {
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	return &Engine{chat: chat, model: model, temperature: temperature, logger: log}
}

// Rewrite produces an AP-style article. Every failure is a StageError for the
// rewrite stage.
func (e *Engine) Rewrite(ctx context.Context, entry domain.FeedEntry) (domain.RewrittenArticle, error) {
	if e.chat == nil {
		return domain.RewrittenArticle{}, domain.Fail(domain.StageRewrite, domain.KindConfig, errors.New("chat client is not configured"))
	}

	content := StripMarkup(entry.Body)
	if content == "" {
		e.warn("entry body empty after cleaning, using title", "id", entry.ID)
		content = entry.Title
	}
	if strings.TrimSpace(content) == "" {
		return domain.RewrittenArticle{}, domain.Fail(domain.StageRewrite, domain.KindData, errors.New("no source text"))
	}

	content, truncated := Truncate(content, MaxSourceChars)
	if truncated {
		e.info("source truncated", "id", entry.ID, "max_chars", MaxSourceChars)
	}

	words := len(strings.Fields(content))
	e.info("rewriting entry", "id", entry.ID, "title", entry.Title, "words", words)

	resp, err := e.chat.Complete(ctx, ports.ChatRequest{
		Model:        e.model,
		System:       systemPrompt,
		User:         buildUserPrompt(entry.Title, entry.Link, content, words),
		Temperature:  e.temperature,
		JSONResponse: true,
	})
	if err != nil {
		return domain.RewrittenArticle{}, domain.Fail(domain.StageRewrite, domain.KindTransient, err)
	}

	obj, attempt, err := ParseResponse(resp)
	if err != nil {
		e.warn("unparseable model response", "id", entry.ID, "response", preview(resp, 200))
		return domain.RewrittenArticle{}, domain.Fail(domain.StageRewrite, domain.KindData, err)
	}
	e.debug("model response parsed", "id", entry.ID, "attempt", attempt)

	article, err := NormalizeArticle(obj, entry.Title)
	if err != nil {
		return domain.RewrittenArticle{}, domain.Fail(domain.StageRewrite, domain.KindData, err)
	}

	e.info("entry rewritten", "id", entry.ID, "headline", article.Headline, "category", article.Category, "tags", len(article.Tags))
	return article, nil
}

func preview(s string, max int) string {
	out, _ := Truncate(s, max)
	return out
}

func (e *Engine) debug(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

func (e *Engine) info(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Info(msg, args...)
	}
}

func (e *Engine) warn(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}
