// Package cli holds the gatectl subcommands. Each one loads configuration,
// builds the application graph and runs a single operation against it.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/vncsmyrnk/gradgate/internal/app"
	"github.com/vncsmyrnk/gradgate/internal/config"
	"github.com/vncsmyrnk/gradgate/internal/logging"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
	dimColor  = color.New(color.Faint)
)

// AddPersistentFlags registers the flags every subcommand understands.
func AddPersistentFlags(root *cobra.Command) {
	root.PersistentFlags().String("env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().String("log-level", "", "override GATE_LOG_LEVEL")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, nil
}

// withApp runs fn with a fully wired application. Logs go to stderr so
// command output stays pipeable.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func printField(cmd *cobra.Command, name string, value any) {
	fmt.Fprintf(cmd.OutOrStdout(), "  %-20s %v\n", name+":", value)
}
