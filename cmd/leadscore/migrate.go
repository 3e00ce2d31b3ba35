package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Bizoholic-Digital/leadscore/internal/config"
	"github.com/Bizoholic-Digital/leadscore/pkg/logger"
)

var errNotPostgres = errors.New("migrate needs store_backend=postgres")

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending PostgreSQL schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			if cfg.StoreBackend != config.StorePostgres {
				return errNotPostgres
			}
			pool, err := openPostgres(ctx, cfg)
			if err != nil {
				return err
			}
			pool.Close()
			logger.Get().Info(ctx, "migrations applied")
			return nil
		},
	}
}
