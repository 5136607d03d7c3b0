package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"FeedPublisher/internal/domain"
	"FeedPublisher/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier sends the run digest to a Telegram chat via bot API.
type Notifier struct {
	apiBase  string
	botToken string
	chatID   string
	client   *http.Client
	logger   *slog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string, log *slog.Logger) *Notifier {
	return &Notifier{
		apiBase:  defaultAPIBase,
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   log,
	}
}

// NotifyPublished posts a Markdown list of the published headlines.
func (n *Notifier) NotifyPublished(ctx context.Context, articles []domain.PublishedArticle) error {
	if len(articles) == 0 {
		return nil
	}
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", Digest(articles))
	form.Set("parse_mode", "Markdown")
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	if n.logger != nil {
		n.logger.Info("telegram digest sent", "chat_id", n.chatID, "articles", len(articles))
	}
	return nil
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "[", "\\[", "`", "\\`")

// linkEscaper percent-encodes the characters that would end a Markdown link target.
var linkEscaper = strings.NewReplacer("(", "%28", ")", "%29", " ", "%20")

// Digest renders the message text.
func Digest(articles []domain.PublishedArticle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%d new article(s) published*\n", len(articles))
	for i, a := range articles {
		fmt.Fprintf(&b, "\n%d. [%s](%s)", i+1, markdownEscaper.Replace(a.Headline), linkEscaper.Replace(a.DestinationURL))
	}
	return b.String()
}
