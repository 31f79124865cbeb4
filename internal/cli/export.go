package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vncsmyrnk/gradgate/internal/app"
	"github.com/vncsmyrnk/gradgate/internal/export"
)

func ExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the graduate and companion state as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				rows, err := a.Admin.ExportState(ctx)
				if err != nil {
					return err
				}

				var w io.Writer = cmd.OutOrStdout()
				if output != "" && output != "-" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("failed to create %s: %w", output, err)
					}
					defer f.Close()
					w = f
				}

				if err := export.WriteCSV(w, rows, a.Config.Location); err != nil {
					return err
				}
				if output != "" && output != "-" {
					okColor.Fprintf(cmd.ErrOrStderr(), "Exported %d row(s) to %s\n", len(rows), output)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	return cmd
}

func GraduatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graduates",
		Short: "List synchronized graduates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				graduates, err := a.Admin.ListGraduates(ctx)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "REMOTE ID\tNATIONAL ID\tNAME\tCAREER\tEMAIL\tPAID")
				for _, g := range graduates {
					paid := okColor.Sprint("yes")
					if !g.PaymentConfirmed {
						paid = errColor.Sprint("no")
					}
					fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\t%s\t%s\n",
						g.RemoteID, g.NationalID, g.FirstName, g.LastName, g.Career, g.Email, paid)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				dimColor.Fprintf(cmd.OutOrStdout(), "%d graduate(s)\n", len(graduates))
				return nil
			})
		},
	}
}
