package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"FeedPublisher/internal/app"
	"FeedPublisher/internal/config"
	"FeedPublisher/internal/logging"
)

// version is set at build time via ldflags
var version = "dev"

type options struct {
	configPath     string
	schedule       bool
	verbose        bool
	testConnection bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "feedpublisher",
		Short: "Rewrite RSS entries in AP style and publish them to WordPress",
		Long: `feedpublisher polls the configured RSS feeds, rewrites every new entry with
an OpenAI-compatible model, attaches an image and publishes it to WordPress.

Example usage:
  feedpublisher                      # single run
  feedpublisher --schedule           # run every poll interval until interrupted
  feedpublisher --test-connection    # verify WordPress credentials and exit`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config file (default $FEEDPUBLISHER_CONFIG)")
	flags.BoolVar(&opts.schedule, "schedule", false, "run continuously at the poll interval")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	flags.BoolVar(&opts.testConnection, "test-connection", false, "check WordPress credentials and exit")
	return cmd
}

func run(ctx context.Context, opts options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closer, err := logging.New(logging.Level(cfg.Logging.Level, opts.verbose), cfg.Logging.File)
	if err != nil {
		return err
	}
	defer closer.Close()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close dedup store", "error", err)
		}
	}()

	switch {
	case opts.testConnection:
		return application.TestConnection(ctx)
	case opts.schedule:
		return application.RunScheduled(ctx)
	default:
		result, err := application.RunOnce(ctx)
		if errors.Is(err, app.ErrRunFailed) {
			logger.Error("run failed", "errors", result.Errors)
		}
		return err
	}
}
