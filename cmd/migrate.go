package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"partychat/internal/logging"
	"partychat/pkg/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the message store schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := logging.New(cfg.Env, cfg.Log.Level)

		ctx := context.Background()
		repos, closeStore, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeStore()

		logger.Info().Str("store", cfg.Store.Driver).Msg("running migrations...")
		if err := repos.Message.EnsureSchema(ctx); err != nil {
			return err
		}
		logger.Info().Msg("migrations completed")
		return nil
	},
}
