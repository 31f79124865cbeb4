package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"github.com/vncsmyrnk/gradgate/internal/app"
	"github.com/vncsmyrnk/gradgate/internal/config"
	"github.com/vncsmyrnk/gradgate/internal/core/domain"
	"github.com/vncsmyrnk/gradgate/internal/logging"
)

func main() {
	var (
		envFile   string
		lookback  time.Duration
		timeout   time.Duration
		skipIssue bool
	)

	flag.StringVar(&envFile, "env-file", ".env", "dotenv file to load")
	flag.DurationVar(&lookback, "lookback", 0, "incremental window; zero runs a full sync")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "job deadline")
	flag.BoolVar(&skipIssue, "skip-issue", false, "do not issue missing credentials after the sync")
	flag.Parse()

	cfg, err := config.Load(envFile)
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat).With("job", "syncjob")

	// Use a timeout for the job execution to prevent it from hanging indefinitely
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	var opts domain.SyncOptions
	if lookback > 0 {
		opts.Since = time.Now().Add(-lookback)
	}

	logger.Info("starting graduate sync job", "full", opts.Full())

	summary, err := a.Sync.RunSync(ctx, opts)
	if errors.Is(err, domain.ErrSyncInProgress) {
		logger.Warn("another sync holds the lock, exiting")
		return
	}
	if err != nil {
		a.Close()
		log.Fatalf("Error synchronizing graduates: %v", err)
	}
	logger.Info("graduate sync completed",
		"inserted", summary.Inserted,
		"updated", summary.Updated,
		"deactivated", summary.Deactivated,
		"record_errors", len(summary.Errors),
	)

	if skipIssue {
		return
	}
	issued, err := a.Credentials.IssueMissingCredentials(ctx)
	if err != nil {
		a.Close()
		log.Fatalf("Error issuing credentials: %v", err)
	}
	logger.Info("credential issuance completed", "issued", issued)
}
