package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv        = "FEEDPUBLISHER_CONFIG"
	openAIKeyEnv         = "OPENAI_API_KEY"
	openAIModelEnv       = "OPENAI_MODEL"
	openAIBaseURLEnv     = "OPENAI_BASE_URL"
	wpURLEnv             = "WP_URL"
	wpUsernameEnv        = "WP_USERNAME"
	wpPasswordEnv        = "WP_APP_PASSWORD"
	wpPostStatusEnv      = "WP_POST_STATUS"
	rssFeedsEnv          = "RSS_FEEDS"
	pollIntervalEnv      = "POLL_INTERVAL_MINUTES"
	imageDirEnv          = "IMAGE_DIR"
	imageFallbackEnv     = "IMAGE_FALLBACK"
	pexelsKeyEnv         = "PEXELS_API_KEY"
	databasePathEnv      = "DATABASE_PATH"
	notifyEmailEnv       = "NOTIFY_EMAIL"
	smtpHostEnv          = "SMTP_HOST"
	smtpPortEnv          = "SMTP_PORT"
	smtpUsernameEnv      = "SMTP_USERNAME"
	smtpPasswordEnv      = "SMTP_PASSWORD"
	smtpFromEnv          = "SMTP_FROM"
	smtpImplicitTLSEnv   = "SMTP_IMPLICIT_TLS"
	telegramTokenEnv     = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv    = "TELEGRAM_CHAT_ID"
	logLevelEnv          = "LOG_LEVEL"
	logFileEnv           = "LOG_FILE"
	metricsListenEnv     = "METRICS_LISTEN"
	defaultFeedsFile     = "feeds.txt"
	defaultPollInterval  = 30 * time.Minute
	defaultEntryPause    = 2 * time.Second
	defaultMaxEntries    = 5
	defaultMaxAge        = 24 * time.Hour
	defaultModel         = "gpt-4.1-nano"
	defaultImageModel    = "dall-e-3"
	defaultPostStatus    = "publish"
	defaultSMTPHost      = "smtp.gmail.com"
	defaultSMTPPort      = 587
	defaultImageFallback = ImageFallbackPexels
)

// Image fallback sources used when the feed carries no usable image.
const (
	ImageFallbackPexels   = "pexels"
	ImageFallbackGenerate = "generate"
	ImageFallbackNone     = "none"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Feeds         FeedsConfig        `yaml:"feeds"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
	WordPress     WordPressConfig    `yaml:"wordpress"`
	Images        ImagesConfig       `yaml:"images"`
	Notifications NotificationConfig `yaml:"notifications"`
	Metrics       MetricsConfig      `yaml:"metrics"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DatabaseConfig points at the local dedup database file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SchedulerConfig defines how often the pipeline runs in scheduled mode.
type SchedulerConfig struct {
	PollInterval time.Duration `yaml:"pollInterval"`
	EntryPause   time.Duration `yaml:"entryPause"`
}

// FeedsConfig lists the feeds to poll and how much of each to consider.
type FeedsConfig struct {
	URLs              []FeedConfig  `yaml:"urls"`
	File              string        `yaml:"file"`
	MaxEntriesPerFeed int           `yaml:"maxEntriesPerFeed"`
	MaxAge            time.Duration `yaml:"maxAge"`
}

// FeedConfig describes one feed and the scanner strategy that reads it.
type FeedConfig struct {
	URL     string `yaml:"url"`
	Scanner string `yaml:"scanner"`
}

// ChatGPTConfig defines how to contact the OpenAI-compatible API.
type ChatGPTConfig struct {
	BaseURL     string        `yaml:"baseUrl"`
	Model       string        `yaml:"model"`
	ImageModel  string        `yaml:"imageModel"`
	APIKey      string        `yaml:"apiKey"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// WordPressConfig holds REST API credentials.
type WordPressConfig struct {
	URL         string        `yaml:"url"`
	Username    string        `yaml:"username"`
	AppPassword string        `yaml:"appPassword"`
	PostStatus  string        `yaml:"postStatus"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ImagesConfig controls featured image resolution.
type ImagesConfig struct {
	Dir          string        `yaml:"dir"`
	Fallback     string        `yaml:"fallback"`
	PexelsAPIKey string        `yaml:"pexelsApiKey"`
	PexelsURL    string        `yaml:"pexelsUrl"`
	Timeout      time.Duration `yaml:"timeout"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Email    EmailConfig    `yaml:"email"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// EmailConfig describes SMTP submission.
type EmailConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	From        string `yaml:"from"`
	To          string `yaml:"to"`
	ImplicitTLS bool   `yaml:"implicitTls"`
}

// Enabled reports whether recipient and credentials are all present.
func (e EmailConfig) Enabled() bool {
	return e.To != "" && e.Username != "" && e.Password != ""
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both token and chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// MetricsConfig enables the Prometheus listener in scheduled mode.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// Load reads .env, the YAML file (explicit path or FEEDPUBLISHER_CONFIG),
// environment overrides and the feeds file. It does not validate.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)

		var explicit zeroableDurations
		if err := yaml.Unmarshal(raw, &explicit); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		explicit.apply(&cfg)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}

	if err := cfg.loadFeeds(); err != nil {
		return Config{}, err
	}

	cfg.WordPress.URL = strings.TrimRight(strings.TrimSpace(cfg.WordPress.URL), "/")
	if cfg.Notifications.Email.From == "" {
		cfg.Notifications.Email.From = cfg.Notifications.Email.Username
	}

	return cfg, nil
}

// Validate reports missing required settings.
func (c Config) Validate() error {
	var missing []string
	if c.ChatGPT.APIKey == "" {
		missing = append(missing, openAIKeyEnv)
	}
	if c.WordPress.URL == "" {
		missing = append(missing, wpURLEnv)
	}
	if c.WordPress.Username == "" {
		missing = append(missing, wpUsernameEnv)
	}
	if c.WordPress.AppPassword == "" {
		missing = append(missing, wpPasswordEnv)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}

	if len(c.Feeds.URLs) == 0 {
		return fmt.Errorf("no feeds configured: add them to %s, the config file or %s", c.Feeds.File, rssFeedsEnv)
	}

	switch c.Images.Fallback {
	case ImageFallbackPexels, ImageFallbackGenerate, ImageFallbackNone:
	default:
		return fmt.Errorf("unknown image fallback %q", c.Images.Fallback)
	}

	if c.Scheduler.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	return nil
}

// FeedURLs returns the configured feed URLs in order.
func (c Config) FeedURLs() []string {
	urls := make([]string, 0, len(c.Feeds.URLs))
	for _, f := range c.Feeds.URLs {
		urls = append(urls, f.URL)
	}
	return urls
}

func (c *Config) applyEnvOverrides() error {
	setString(&c.ChatGPT.APIKey, openAIKeyEnv)
	setString(&c.ChatGPT.Model, openAIModelEnv)
	setString(&c.ChatGPT.BaseURL, openAIBaseURLEnv)

	setString(&c.WordPress.URL, wpURLEnv)
	setString(&c.WordPress.Username, wpUsernameEnv)
	setString(&c.WordPress.AppPassword, wpPasswordEnv)
	setString(&c.WordPress.PostStatus, wpPostStatusEnv)

	setString(&c.Images.Dir, imageDirEnv)
	setString(&c.Images.Fallback, imageFallbackEnv)
	setString(&c.Images.PexelsAPIKey, pexelsKeyEnv)

	setString(&c.Database.Path, databasePathEnv)

	setString(&c.Notifications.Email.To, notifyEmailEnv)
	setString(&c.Notifications.Email.Host, smtpHostEnv)
	setString(&c.Notifications.Email.Username, smtpUsernameEnv)
	setString(&c.Notifications.Email.Password, smtpPasswordEnv)
	setString(&c.Notifications.Email.From, smtpFromEnv)
	setString(&c.Notifications.Telegram.BotToken, telegramTokenEnv)
	setString(&c.Notifications.Telegram.ChatID, telegramChatIDEnv)

	setString(&c.Logging.Level, logLevelEnv)
	setString(&c.Logging.File, logFileEnv)
	setString(&c.Metrics.Listen, metricsListenEnv)

	if v := os.Getenv(pollIntervalEnv); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			return fmt.Errorf("%s must be a positive integer, got %q", pollIntervalEnv, v)
		}
		c.Scheduler.PollInterval = time.Duration(minutes) * time.Minute
	}

	if v := os.Getenv(smtpPortEnv); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer, got %q", smtpPortEnv, v)
		}
		c.Notifications.Email.Port = port
	}

	if v := os.Getenv(smtpImplicitTLSEnv); v != "" {
		implicit, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s must be a boolean, got %q", smtpImplicitTLSEnv, v)
		}
		c.Notifications.Email.ImplicitTLS = implicit
	}

	return nil
}

// loadFeeds appends feeds-file entries to the YAML list and falls back to RSS_FEEDS.
func (c *Config) loadFeeds() error {
	if c.Feeds.File != "" {
		urls, err := readFeedsFile(c.Feeds.File)
		if err != nil {
			return err
		}
		for _, u := range urls {
			c.Feeds.URLs = append(c.Feeds.URLs, FeedConfig{URL: u})
		}
	}

	if len(c.Feeds.URLs) == 0 {
		for _, u := range strings.Split(os.Getenv(rssFeedsEnv), ",") {
			if u = strings.TrimSpace(u); u != "" {
				c.Feeds.URLs = append(c.Feeds.URLs, FeedConfig{URL: u})
			}
		}
	}

	return nil
}

func readFeedsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open feeds file %s: %w", path, err)
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read feeds file %s: %w", path, err)
	}
	return urls, nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.File != "" {
		base.Logging.File = override.Logging.File
	}

	if override.Database.Path != "" {
		base.Database.Path = override.Database.Path
	}

	if override.Scheduler.PollInterval > 0 {
		base.Scheduler.PollInterval = override.Scheduler.PollInterval
	}

	if len(override.Feeds.URLs) > 0 {
		base.Feeds.URLs = override.Feeds.URLs
	}
	if override.Feeds.File != "" {
		base.Feeds.File = override.Feeds.File
	}
	if override.Feeds.MaxEntriesPerFeed > 0 {
		base.Feeds.MaxEntriesPerFeed = override.Feeds.MaxEntriesPerFeed
	}

	if override.ChatGPT.BaseURL != "" {
		base.ChatGPT.BaseURL = override.ChatGPT.BaseURL
	}
	if override.ChatGPT.Model != "" {
		base.ChatGPT.Model = override.ChatGPT.Model
	}
	if override.ChatGPT.ImageModel != "" {
		base.ChatGPT.ImageModel = override.ChatGPT.ImageModel
	}
	if override.ChatGPT.APIKey != "" {
		base.ChatGPT.APIKey = override.ChatGPT.APIKey
	}
	if override.ChatGPT.Temperature > 0 {
		base.ChatGPT.Temperature = override.ChatGPT.Temperature
	}
	if override.ChatGPT.Timeout > 0 {
		base.ChatGPT.Timeout = override.ChatGPT.Timeout
	}

	if override.WordPress.URL != "" {
		base.WordPress.URL = override.WordPress.URL
	}
	if override.WordPress.Username != "" {
		base.WordPress.Username = override.WordPress.Username
	}
	if override.WordPress.AppPassword != "" {
		base.WordPress.AppPassword = override.WordPress.AppPassword
	}
	if override.WordPress.PostStatus != "" {
		base.WordPress.PostStatus = override.WordPress.PostStatus
	}
	if override.WordPress.Timeout > 0 {
		base.WordPress.Timeout = override.WordPress.Timeout
	}

	if override.Images.Dir != "" {
		base.Images.Dir = override.Images.Dir
	}
	if override.Images.Fallback != "" {
		base.Images.Fallback = override.Images.Fallback
	}
	if override.Images.PexelsAPIKey != "" {
		base.Images.PexelsAPIKey = override.Images.PexelsAPIKey
	}
	if override.Images.PexelsURL != "" {
		base.Images.PexelsURL = override.Images.PexelsURL
	}
	if override.Images.Timeout > 0 {
		base.Images.Timeout = override.Images.Timeout
	}

	email := override.Notifications.Email
	if email.Host != "" {
		base.Notifications.Email.Host = email.Host
	}
	if email.Port != 0 {
		base.Notifications.Email.Port = email.Port
	}
	if email.Username != "" {
		base.Notifications.Email.Username = email.Username
	}
	if email.Password != "" {
		base.Notifications.Email.Password = email.Password
	}
	if email.From != "" {
		base.Notifications.Email.From = email.From
	}
	if email.To != "" {
		base.Notifications.Email.To = email.To
	}
	if email.ImplicitTLS {
		base.Notifications.Email.ImplicitTLS = true
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Metrics.Listen != "" {
		base.Metrics.Listen = override.Metrics.Listen
	}

	return base
}

// zeroableDurations picks up settings where an explicit 0 disables the feature,
// which mergeConfig cannot tell apart from an absent key.
type zeroableDurations struct {
	Scheduler struct {
		EntryPause *time.Duration `yaml:"entryPause"`
	} `yaml:"scheduler"`
	Feeds struct {
		MaxAge *time.Duration `yaml:"maxAge"`
	} `yaml:"feeds"`
}

func (z zeroableDurations) apply(cfg *Config) {
	if z.Scheduler.EntryPause != nil {
		cfg.Scheduler.EntryPause = *z.Scheduler.EntryPause
	}
	if z.Feeds.MaxAge != nil {
		cfg.Feeds.MaxAge = *z.Feeds.MaxAge
	}
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{Path: "./processed.db"},
		Scheduler: SchedulerConfig{
			PollInterval: defaultPollInterval,
			EntryPause:   defaultEntryPause,
		},
		Feeds: FeedsConfig{
			File:              defaultFeedsFile,
			MaxEntriesPerFeed: defaultMaxEntries,
			MaxAge:            defaultMaxAge,
		},
		ChatGPT: ChatGPTConfig{
			Model:       defaultModel,
			ImageModel:  defaultImageModel,
			Temperature: 0.7,
			Timeout:     120 * time.Second,
		},
		WordPress: WordPressConfig{
			PostStatus: defaultPostStatus,
			Timeout:    60 * time.Second,
		},
		Images: ImagesConfig{
			Dir:       "./images",
			Fallback:  defaultImageFallback,
			PexelsURL: "https://api.pexels.com/v1/search",
			Timeout:   30 * time.Second,
		},
		Notifications: NotificationConfig{
			Email: EmailConfig{Host: defaultSMTPHost, Port: defaultSMTPPort},
		},
	}
}
