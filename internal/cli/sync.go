package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/vncsmyrnk/gradgate/internal/app"
	"github.com/vncsmyrnk/gradgate/internal/core/domain"
)

func SyncCmd() *cobra.Command {
	var (
		since string
		issue bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull paid graduates from the registrar",
		Long: `Run one synchronization against the configured remote source.

Without --since the run is full: graduates missing from the feed are
deactivated. With --since (RFC 3339 timestamp or YYYY-MM-DD) only payments
from that point on are read and nobody is deactivated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				var opts domain.SyncOptions
				if since != "" {
					t, err := parseSince(since, a.Config.Location)
					if err != nil {
						return err
					}
					opts.Since = t
				}

				summary, err := a.Sync.RunSync(ctx, opts)
				if errors.Is(err, domain.ErrSyncInProgress) {
					warnColor.Fprintln(cmd.OutOrStdout(), "Another sync is running, nothing done.")
					return nil
				}
				if summary != nil {
					printSyncSummary(cmd, summary)
				}
				if err != nil {
					return err
				}

				if issue {
					n, err := a.Credentials.IssueMissingCredentials(ctx)
					if err != nil {
						return err
					}
					printField(cmd, "credentials issued", n)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "only read payments made at or after this time")
	cmd.Flags().BoolVar(&issue, "issue", false, "issue missing credentials after a successful sync")
	return cmd
}

func parseSince(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since %q: want RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

func printSyncSummary(cmd *cobra.Command, s *domain.SyncRunSummary) {
	out := cmd.OutOrStdout()
	mode := "incremental"
	if s.Full {
		mode = "full"
	}
	if s.Completed {
		okColor.Fprintf(out, "Sync (%s) completed\n", mode)
	} else {
		errColor.Fprintf(out, "Sync (%s) aborted\n", mode)
	}

	printField(cmd, "fetched", s.Fetched)
	printField(cmd, "inserted", s.Inserted)
	printField(cmd, "updated", s.Updated)
	printField(cmd, "unchanged", s.Unchanged)
	printField(cmd, "deactivated", s.Deactivated)
	printField(cmd, "companions created", s.CompanionsCreated)

	reasons := make([]string, 0, len(s.Skipped))
	for r := range s.Skipped {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		printField(cmd, "skipped "+r, s.Skipped[domain.SkipReason(r)])
	}

	for _, e := range s.Errors {
		warnColor.Fprintf(out, "  ! %s\n", e)
	}
	dimColor.Fprintf(out, "  took %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
}
