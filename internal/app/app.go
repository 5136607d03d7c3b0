package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"FeedPublisher/internal/config"
	"FeedPublisher/internal/infrastructure/email"
	"FeedPublisher/internal/infrastructure/images"
	"FeedPublisher/internal/infrastructure/llm"
	"FeedPublisher/internal/infrastructure/parser"
	"FeedPublisher/internal/infrastructure/scheduler"
	"FeedPublisher/internal/infrastructure/storage"
	"FeedPublisher/internal/infrastructure/telegram"
	"FeedPublisher/internal/infrastructure/wordpress"
	"FeedPublisher/internal/metrics"
	"FeedPublisher/internal/ports"
	"FeedPublisher/internal/rewriter"
	"FeedPublisher/internal/scanner"
	"FeedPublisher/internal/usecase"
	"FeedPublisher/pkg/logger"
)

// ErrRunFailed is returned when a run had errors and published nothing.
var ErrRunFailed = errors.New("run finished with errors and no published entries")

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	store      *storage.SQLiteRepository
	publishers ports.PublisherFactory
	pipeline   *usecase.Pipeline
}

// New builds the full adapter graph. The caller owns Close.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	feedClient := &http.Client{Timeout: 30 * time.Second}
	registry := scanner.NewRegistry()
	registry.Register(parser.NewRSSScanner(feedClient, baseLogger.With("component", "scanner.rss")))

	scraper := parser.NewPageScraper(feedClient, baseLogger.With("component", "scraper"))
	normalizer := parser.NewNormalizer(scraper, baseLogger.With("component", "normalizer"))
	source := parser.NewStrategySource(registry, cfg.Feeds.URLs, normalizer, parser.FetchOptions{
		MaxEntriesPerFeed: cfg.Feeds.MaxEntriesPerFeed,
		MaxAge:            cfg.Feeds.MaxAge,
	}, baseLogger.With("component", "source"))
	baseLogger.Debug("feeds configured", "count", len(cfg.Feeds.URLs), "urls", cfg.FeedURLs())

	store, err := storage.OpenSQLite(ctx, cfg.Database.Path, baseLogger.With("component", "store"))
	if err != nil {
		return nil, fmt.Errorf("open dedup store: %w", err)
	}

	chat := llm.NewChatGPTClient(cfg.ChatGPT, baseLogger.With("component", "llm"))
	engine := rewriter.NewEngine(chat, cfg.ChatGPT.Model, cfg.ChatGPT.Temperature, baseLogger.With("component", "rewriter"))

	imageClient := &http.Client{Timeout: cfg.Images.Timeout}
	downloader := images.NewDownloader(imageClient)
	resolver := images.NewResolver(cfg.Images.Dir, downloader, imageFallback(cfg.Images, chat, imageClient, downloader),
		baseLogger.With("component", "images"))

	publishers := wordpress.NewFactory(cfg.WordPress, baseLogger.With("component", "wordpress"))

	notifiers, err := buildNotifiers(cfg.Notifications, baseLogger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Store:      store,
		Rewriter:   engine,
		Images:     resolver,
		Publishers: publishers,
		Notifiers:  notifiers,
		EntryPause: cfg.Scheduler.EntryPause,
		PostStatus: cfg.WordPress.PostStatus,
		SiteURL:    cfg.WordPress.URL,
		Logger:     baseLogger.With("component", "pipeline"),
	})

	return &Application{
		cfg:        cfg,
		logger:     baseLogger,
		store:      store,
		publishers: publishers,
		pipeline:   pipeline,
	}, nil
}

func imageFallback(cfg config.ImagesConfig, gen ports.ImageGenerator, client *http.Client, downloader *images.Downloader) images.Source {
	switch cfg.Fallback {
	case config.ImageFallbackPexels:
		if cfg.PexelsAPIKey == "" {
			return nil
		}
		return images.NewPexelsSource(cfg.PexelsAPIKey, cfg.PexelsURL, client, downloader)
	case config.ImageFallbackGenerate:
		return images.NewGeneratedSource(gen, downloader)
	default:
		return nil
	}
}

func buildNotifiers(cfg config.NotificationConfig, log *slog.Logger) ([]ports.Notifier, error) {
	var notifiers []ports.Notifier
	if cfg.Email.Enabled() {
		n, err := email.NewNotifier(cfg.Email, log.With("component", "email"))
		if err != nil {
			return nil, fmt.Errorf("email notifier: %w", err)
		}
		notifiers = append(notifiers, n)
	}
	if cfg.Telegram.Enabled() {
		notifiers = append(notifiers, telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, log.With("component", "telegram")))
	}
	return notifiers, nil
}

// TestConnection checks publisher credentials and reports the account name.
func (a *Application) TestConnection(ctx context.Context) error {
	name, err := a.publishers().CheckConnection(ctx)
	if err != nil {
		a.logger.Error("publisher connection failed", "error", err)
		return err
	}
	a.logger.Info("publisher connection ok", "user", name, "url", a.cfg.WordPress.URL)
	return nil
}

// RunOnce executes a single pass and fails only when nothing was published
// and at least one error occurred.
func (a *Application) RunOnce(ctx context.Context) (usecase.RunResult, error) {
	result := a.pipeline.RunOnce(ctx)
	if result.Failed() {
		return result, ErrRunFailed
	}
	return result, nil
}

// RunScheduled repeats the pipeline every poll interval until SIGINT or
// SIGTERM. The cycle in flight finishes before it returns.
func (a *Application) RunScheduled(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.cfg.Metrics.Listen != "" {
		go func() {
			errLog := logger.New(a.logger, "metrics", slog.LevelError)
			if err := metrics.Serve(ctx, a.cfg.Metrics.Listen, errLog); err != nil {
				a.logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	a.logger.Info("scheduler started", "interval", a.cfg.Scheduler.PollInterval)
	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.PollInterval, a.logger.With("component", "scheduler"))
	sched := usecase.NewScheduler(driver, a.pipeline, func(r usecase.RunResult) {
		a.logger.Info("cycle finished", "processed", r.Processed, "errors", r.Errors,
			"next_in", a.cfg.Scheduler.PollInterval)
	})
	return sched.Run(ctx)
}

// Close releases the dedup store.
func (a *Application) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
