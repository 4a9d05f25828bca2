package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/thostetler/nectar-sub000/internal/app"
)

var sessionsTimeout time.Duration

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Maintain the Redis session store",
}

var sessionsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove index entries of expired sessions",
	Long: `Scan the per-user session indexes and delete entries whose session has
expired. Prints {"cleaned": n, "errors": n}.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(cmd, func(ctx context.Context, a *app.App) (any, error) {
			return a.Store().Cleanup(ctx), nil
		})
	},
}

var sessionsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count stored sessions and indexes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(cmd, func(ctx context.Context, a *app.App) (any, error) {
			return a.Store().Stats(ctx), nil
		})
	},
}

func init() {
	sessionsCmd.PersistentFlags().DurationVar(&sessionsTimeout, "timeout", time.Minute, "overall deadline")
	sessionsCmd.AddCommand(sessionsCleanupCmd, sessionsStatsCmd)
	rootCmd.AddCommand(sessionsCmd)
}

// withStore runs fn against a healthy Redis and prints its result as JSON.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) (any, error)) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), sessionsTimeout)
	defer cancel()

	if !a.Healthy(ctx) {
		return errors.New("redis is not reachable at the configured REDIS_URL")
	}

	out, err := fn(ctx, a)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
