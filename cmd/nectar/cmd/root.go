// Package cmd provides the nectar CLI commands.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/thostetler/nectar-sub000/internal/app"
	"github.com/thostetler/nectar-sub000/pkg/config"
	"github.com/thostetler/nectar-sub000/pkg/logger"
)

var envFiles []string

var rootCmd = &cobra.Command{
	Use:   "nectar",
	Short: "nectar - session and token lifecycle server",
	Long: `nectar issues and reuses API tokens for browser sessions.

Each request gets a sealed session cookie. Sessions live in Redis when
REDIS_SESSIONS_ENABLED is set and in the cookie alone otherwise; a Redis
outage falls back to the cookie without failing requests.

Configuration is read from the environment and from a .env file in the
working directory. Pass --env-file to read other files instead.

Commands:
  serve              Run the HTTP server
  sessions cleanup   Remove index entries of expired sessions
  sessions stats     Count stored sessions and indexes
  version            Print version information`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default: .env if present)")
}

// loadConfig reads the configuration and builds the process logger.
func loadConfig() (app.Config, *slog.Logger, error) {
	var (
		cfg app.Config
		err error
	)
	if len(envFiles) > 0 {
		err = config.LoadFile(&cfg, envFiles...)
	} else {
		cfg, err = app.LoadConfig()
	}
	if err != nil {
		return app.Config{}, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := app.NewLogger(cfg)
	logger.SetAsDefault(log)
	return cfg, log, nil
}
