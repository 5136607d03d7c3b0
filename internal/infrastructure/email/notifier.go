package email

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	texttemplate "text/template"
	"time"

	mail "github.com/wneessen/go-mail"

	"FeedPublisher/internal/config"
	"FeedPublisher/internal/domain"
	"FeedPublisher/internal/ports"
)

const sendTimeout = 30 * time.Second

var textBody = texttemplate.Must(texttemplate.New("text").
	Funcs(texttemplate.FuncMap{"inc": func(i int) int { return i + 1 }}).
	Parse(`New Articles Published ({{len .}} total)
==================================================
{{range $i, $a := .}}
{{inc $i}}. {{$a.Headline}}
   Source: {{$a.SourceURL}}
   Published: {{$a.DestinationURL}}
   Post ID: {{$a.PostID}}
{{end}}`))

var htmlBody = htmltemplate.Must(htmltemplate.New("html").Parse(`<html>
<head>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
.header { background: #2563eb; color: white; padding: 20px; border-radius: 8px 8px 0 0; }
.content { padding: 20px; background: #f8fafc; }
.article { background: white; padding: 15px; margin: 10px 0; border-radius: 8px; border-left: 4px solid #2563eb; }
.article h3 { margin: 0 0 10px 0; color: #1e40af; }
.links a { display: inline-block; margin-right: 15px; color: #2563eb; text-decoration: none; }
.footer { padding: 15px; background: #e2e8f0; border-radius: 0 0 8px 8px; font-size: 12px; color: #64748b; }
</style>
</head>
<body>
<div class="header"><h1>📰 {{len .}} New Article(s) Published</h1></div>
<div class="content">
{{- range .}}
<div class="article">
<h3>{{.Headline}}</h3>
<div class="links">
<a href="{{.SourceURL}}">📄 Original Source</a>
<a href="{{.DestinationURL}}">🌐 View on WordPress</a>
</div>
</div>
{{- end}}
</div>
<div class="footer">This is an automated notification from FeedPublisher.</div>
</body>
</html>
`))

// Sender submits prepared messages.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Notifier emails a summary of the run's publications.
type Notifier struct {
	from   string
	to     string
	sender Sender
	logger *slog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier builds an SMTP client: STARTTLS by default, implicit TLS when
// configured, PLAIN auth.
func NewNotifier(cfg config.EmailConfig, log *slog.Logger) (*Notifier, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTimeout(sendTimeout),
	}
	if cfg.ImplicitTLS {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return NewNotifierWithSender(from, cfg.To, client, log), nil
}

// NewNotifierWithSender wires an explicit Sender.
func NewNotifierWithSender(from, to string, sender Sender, log *slog.Logger) *Notifier {
	return &Notifier{from: from, to: to, sender: sender, logger: log}
}

// NotifyPublished sends one multipart message; an empty list sends nothing.
func (n *Notifier) NotifyPublished(ctx context.Context, articles []domain.PublishedArticle) error {
	if len(articles) == 0 {
		return nil
	}

	msg, err := n.buildMessage(articles)
	if err != nil {
		return err
	}

	if err := n.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send notification email: %w", err)
	}

	if n.logger != nil {
		n.logger.Info("notification email sent", "to", n.to, "articles", len(articles))
	}
	return nil
}

func (n *Notifier) buildMessage(articles []domain.PublishedArticle) (*mail.Msg, error) {
	text, html, err := Render(articles)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(n.to); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	msg.Subject(Subject(len(articles)))
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.AddAlternativeString(mail.TypeTextHTML, html)
	return msg, nil
}

// Subject is the notification subject for n articles.
func Subject(n int) string {
	return fmt.Sprintf("📰 %d New Article(s) Published to WordPress", n)
}

// Render produces the plain-text and HTML bodies.
func Render(articles []domain.PublishedArticle) (string, string, error) {
	var text, html bytes.Buffer
	if err := textBody.Execute(&text, articles); err != nil {
		return "", "", fmt.Errorf("render text body: %w", err)
	}
	if err := htmlBody.Execute(&html, articles); err != nil {
		return "", "", fmt.Errorf("render html body: %w", err)
	}
	return text.String(), html.String(), nil
}
