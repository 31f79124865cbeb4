package cli

import (
	"github.com/spf13/cobra"
	"github.com/vncsmyrnk/gradgate/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/gradgate/internal/app"
	"github.com/vncsmyrnk/gradgate/internal/config"
)

func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			store, err := app.OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.DB.Close()

			if cfg.StoreDriver == config.StorePostgres {
				for _, name := range postgres.MigrationNames() {
					dimColor.Fprintf(cmd.OutOrStdout(), "  %s\n", name)
				}
			}
			okColor.Fprintf(cmd.OutOrStdout(), "Schema up to date (%s)\n", cfg.StoreDriver)
			return nil
		},
	}
}
