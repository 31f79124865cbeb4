package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vncsmyrnk/gradgate/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gatectl",
		Short: "Operate the graduation ceremony gate",
		Long: `gatectl runs the administrative operations of the companion gate:
synchronization with the registrar, credential issuance, invitation
dispatch, check-in resets and exports.`,
		SilenceUsage: true,
	}
	cli.AddPersistentFlags(rootCmd)

	rootCmd.AddCommand(cli.SyncCmd())
	rootCmd.AddCommand(cli.IssueCmd())
	rootCmd.AddCommand(cli.DispatchCmd())
	rootCmd.AddCommand(cli.ResetCmd())
	rootCmd.AddCommand(cli.VerifyCmd())
	rootCmd.AddCommand(cli.ExportCmd())
	rootCmd.AddCommand(cli.GraduatesCmd())
	rootCmd.AddCommand(cli.MigrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
