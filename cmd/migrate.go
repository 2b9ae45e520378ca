package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"intake/internal/repository/storefactory"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create indexes and tables for the configured store",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	flags := migrateCmd.Flags()
	flags.String("store", "", "store backend (mongo/postgres/sqlite)")
	flags.String("store-dsn", "", "DSN for postgres/sqlite stores")
	flags.Duration("timeout", time.Minute, "migration timeout")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	// serve 已将 store.* 绑定到自己的 flag，这里直接覆盖
	if v, _ := cmd.Flags().GetString("store"); v != "" {
		cfg.Store.Type = v
	}
	if v, _ := cmd.Flags().GetString("store-dsn"); v != "" {
		cfg.Store.DSN = v
	}
	if cfg.Store.Type == "memory" {
		log.Warn().Msg("memory store has no schema, nothing to migrate")
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	store, err := storefactory.NewStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	log.Info().Str("store", cfg.Store.Type).Msg("schema is up to date")
	return nil
}
