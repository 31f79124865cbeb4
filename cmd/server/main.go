package main

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vncsmyrnk/gradgate/internal/adapters/handler/http"
	"github.com/vncsmyrnk/gradgate/internal/app"
	"github.com/vncsmyrnk/gradgate/internal/config"
	"github.com/vncsmyrnk/gradgate/internal/jobs"
	"github.com/vncsmyrnk/gradgate/internal/logging"
	"github.com/vncsmyrnk/gradgate/internal/scheduler"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireAdminToken(); err != nil {
		return err
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := scheduler.New(scheduler.Config{
		Enabled:  cfg.AutoSync.Enabled,
		Schedule: cfg.AutoSync.Schedule,
		Lookback: cfg.AutoSync.Lookback,
	}, a.Sync, a.Credentials, logger, nil)
	if err != nil {
		return err
	}
	jobManager := jobs.NewManager(a.Sync, a.Credentials, a.Dispatch, logger, nil)

	handler := http.NewHandler(
		http.NewVerifyHandler(a.Verification),
		http.NewAdminHandler(a.Sync, a.Credentials, a.Dispatch, a.Admin, cfg.Location),
		http.NewJobsHandler(jobManager, sched),
		http.NewHealthHandler(a.Admin),
		cfg.AdminToken,
		logger.With("component", "http"),
	)
	server := &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver, "source", cfg.SourceDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return err
		}
		return nil
	})

	// The scheduler always runs so auto-sync can be resumed at runtime.
	g.Go(func() error { return sched.Run(gctx) })

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("gracefully shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return jobManager.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
