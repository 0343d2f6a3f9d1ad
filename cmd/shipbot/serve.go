package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/eliseohh/shipbot/internal/bot"
	"github.com/eliseohh/shipbot/internal/services/carriers"
	"github.com/eliseohh/shipbot/internal/services/shipments"
	"github.com/eliseohh/shipbot/internal/snapshot"
	"github.com/eliseohh/shipbot/internal/store"
	"github.com/spf13/cobra"
)

func newServeCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			// No token, no bot: fail before touching the database.
			if err := cfg.Validate(); err != nil {
				return err
			}

			if err := store.Migrate(cfg.Database.Path); err != nil {
				return err
			}
			db, err := store.NewDB(cfg.Database.Path, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			snaps := snapshot.New(&snapshot.ChromeRenderer{
				Width:    cfg.Snapshot.Width,
				Height:   cfg.Snapshot.Height,
				ExecPath: cfg.Snapshot.ChromePath,
				Log:      logger,
			}, snapshot.Config{
				Dir:     cfg.Snapshot.Dir,
				Timeout: cfg.CaptureTimeout(),
			}, logger)

			b, err := bot.New(bot.Config{
				Token:       cfg.Telegram.Token,
				PollTimeout: cfg.PollTimeout(),
			}, carriers.New(db), shipments.New(db), snaps, logger)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return b.Run(ctx)
		},
	}
}
