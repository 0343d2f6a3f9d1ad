package main

import (
	"github.com/eliseohh/shipbot/internal/store"
	"github.com/spf13/cobra"
)

func newInitDBCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "initdb",
		Short: "Create the tables and seed the default providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			if err := store.Migrate(cfg.Database.Path); err != nil {
				return err
			}
			logger.Info("database initialized", "path", cfg.Database.Path)
			return nil
		},
	}
}
