package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/eliseohh/shipbot/config"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "shipbot",
		Short:         "Telegram bot that tracks package shipments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("SHIPBOT_CONFIG"), "path to YAML config")

	load := func() (*config.Config, *slog.Logger, error) {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, nil, err
		}
		return cfg, newLogger(cfg.Log), nil
	}

	cmd.AddCommand(newServeCmd(load))
	cmd.AddCommand(newInitDBCmd(load))
	return cmd
}

type loader func() (*config.Config, *slog.Logger, error)

func newLogger(c config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
