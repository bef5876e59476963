package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"garage-skill/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	envFiles   []string
}

func run() error {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "garage",
		Short: "Voice skill for garage door openers",
		Long: `Voice skill for garage door openers.

  garage serve             Answer skill requests over HTTP (and NATS if configured)
  garage invoke            Answer a single request from a file, stdin or flags`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to an optional YAML config file")
	rootCmd.PersistentFlags().StringSliceVar(&flags.envFiles, "env", nil, ".env files to load (default .env)")

	rootCmd.AddCommand(newServeCmd(flags))
	rootCmd.AddCommand(newInvokeCmd(flags))

	return rootCmd.ExecuteContext(context.Background())
}

func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath, flags.envFiles...)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	// stdout carries invoke output, so logs go to stderr.
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
