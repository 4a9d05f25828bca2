package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thostetler/nectar-sub000/internal/app"
	"github.com/thostetler/nectar-sub000/pkg/httpserver"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Run the HTTP server until SIGINT or SIGTERM.

Endpoints:
  GET  /api/user                 current token (rate limited)
  GET  /api/sessions             list the signed-in user's sessions
  POST /api/sessions/revoke      revoke one session
  POST /api/sessions/revoke-all  revoke all other sessions
  GET  /api/health               Redis and session status
  GET  /livez, /readyz           probes
  GET  /metrics                  Prometheus metrics`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides HTTP_ADDR)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.HTTP.Addr = serveAddr
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	// Serve closes a on shutdown.
	return a.Serve(cmd.Context(), httpserver.WithStartHook(func(addr string) {
		log.Info("nectar ready", slog.String("addr", addr), slog.String("version", Version))
	}))
}
