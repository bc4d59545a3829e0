package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bryanchriswhite/hotshot/internal/api"
	"github.com/bryanchriswhite/hotshot/internal/logger"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the hotshot HTTP API",
	Long: `Start an HTTP server that takes captures on request.

POST /api/capture returns the encoded image; /api/captures/stream is a
websocket that receives an event for every completed capture.`,
	Example: `  # Start server on default port (8080)
  hotshot serve

  # Start server on custom port
  hotshot serve --port 9090

  # Take a capture
  curl -X POST -d '{"mode":"fullscreen"}' localhost:8080/api/capture > shot.png`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Int("port", 0, "server port (default is 8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := configMgr.GetViper().BindPFlag("server_port", cmd.Flags().Lookup("port")); err != nil {
		return fmt.Errorf("failed to bind flag: %w", err)
	}
	cfg, err := effectiveConfig()
	if err != nil {
		return err
	}

	log := logger.WithComponent("serve")
	log.Info().
		Str("config", configMgr.GetConfigPath()).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(newEngine(cfg), cfg.Capture)
	if err := server.Start(ctx, cfg.ServerPort); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info().Msg("Shut down gracefully")
	return nil
}
