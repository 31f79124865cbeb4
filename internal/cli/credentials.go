package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/vncsmyrnk/gradgate/internal/app"
)

func IssueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "issue",
		Short: "Assign credential tokens to companions that lack one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				n, err := a.Credentials.IssueMissingCredentials(ctx)
				if err != nil {
					return err
				}
				okColor.Fprintf(cmd.OutOrStdout(), "Issued %d credential(s)\n", n)
				return nil
			})
		},
	}
}

func DispatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch",
		Short: "Write invitation previews for issued, undelivered credentials",
		Long: `Group every issued but undelivered credential by graduate and hand one
invitation per graduate to the preview sender (GATE_DISPATCH_PREVIEW_DIR).
Failed invitations stay undelivered and are retried on the next run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				summary, err := a.Dispatch.DeliverPending(ctx)
				if summary != nil {
					out := cmd.OutOrStdout()
					if summary.Failed == 0 {
						okColor.Fprintln(out, "Dispatch completed")
					} else {
						warnColor.Fprintln(out, "Dispatch completed with failures")
					}
					printField(cmd, "invitations", summary.Invitations)
					printField(cmd, "passes delivered", summary.Delivered)
					printField(cmd, "failed", summary.Failed)
					for _, e := range summary.Errors {
						warnColor.Fprintf(out, "  ! %s\n", e)
					}
				}
				return err
			})
		},
	}
}
