package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"FeedPublisher/internal/config"
	"FeedPublisher/internal/domain"
	"FeedPublisher/internal/ports"
)

const (
	apiPath        = "/wp-json/wp/v2"
	errorBodyLimit = 500
)

// Client talks to the WordPress REST API with application-password auth.
// Term caches live as long as the client, so build one per run.
type Client struct {
	apiBase    string
	username   string
	password   string
	httpClient *http.Client
	logger     *slog.Logger

	categories map[string]int64
	tags       map[string]int64
}

var _ ports.Publisher = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.WordPressConfig, log *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiBase:    strings.TrimRight(cfg.URL, "/") + apiPath,
		username:   cfg.Username,
		password:   cfg.AppPassword,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
		categories: make(map[string]int64),
		tags:       make(map[string]int64),
	}
}

// NewFactory returns a PublisherFactory producing fresh clients.
func NewFactory(cfg config.WordPressConfig, log *slog.Logger) ports.PublisherFactory {
	return func() ports.Publisher { return NewClient(cfg, log) }
}

// APIError is a non-2xx answer from WordPress.
type APIError struct {
	Method string
	URL    string
	Status int
	Code   string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wordpress %s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// CheckConnection probes users/me and returns the authenticated display name.
func (c *Client) CheckConnection(ctx context.Context) (string, error) {
	var me struct {
		Name string `json:"name"`
	}
	if _, err := c.doJSON(ctx, http.MethodGet, "users/me", nil, &me); err != nil {
		return "", domain.Fail(domain.StagePreflight, domain.KindTransient, err)
	}
	c.info("wordpress connection ok", "user", me.Name)
	return me.Name, nil
}

// doJSON sends an optional JSON body and decodes a JSON answer into out.
func (c *Client) doJSON(ctx context.Context, method, endpoint string, payload, out any) (http.Header, error) {
	var body io.Reader
	contentType := ""
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}
	return c.do(ctx, method, endpoint, body, contentType, nil, out)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, contentType string, headers map[string]string, out any) (http.Header, error) {
	url := c.apiBase + "/" + strings.TrimLeft(endpoint, "/")

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logError("wordpress request failed", "method", method, "url", url, "error", err)
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		apiErr := &APIError{Method: method, URL: url, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		var wpErr struct {
			Code string `json:"code"`
		}
		if json.Unmarshal(raw, &wpErr) == nil {
			apiErr.Code = wpErr.Code
		}
		c.logError("wordpress request failed", "method", method, "url", url, "status", resp.StatusCode, "body", apiErr.Body)
		return resp.Header, apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.Header, fmt.Errorf("decode %s %s: %w", method, url, err)
		}
	}
	return resp.Header, nil
}

func (c *Client) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Client) info(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Client) warn(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *Client) logError(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Error(msg, args...)
	}
}
