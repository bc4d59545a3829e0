package commands

import (
	"fmt"
	"os"

	"github.com/bryanchriswhite/hotshot/internal/config"
	"github.com/bryanchriswhite/hotshot/internal/logger"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	prettyLog bool
	configMgr *config.Manager

	rootCmd = &cobra.Command{
		Use:   "hotshot",
		Short: "hotshot - screenshots on X11 and Wayland",
		Long: `hotshot captures the screen on X11 and Wayland desktops.

Features:
  • Full screen, rectangle, interactive region and active window captures
  • Click-and-drag region selection overlay on X11
  • xdg-desktop-portal screenshots on Wayland
  • Per-monitor captures by index or output name
  • PNG, JPEG, BMP and TIFF output
  • Persistent configuration
  • REST API with a live capture event stream`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/hotshot/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error, off)")
	rootCmd.PersistentFlags().BoolVar(&prettyLog, "pretty", false, "human readable log output")
}

// initConfig loads the config file and binds the global flags before any
// subcommand runs.
func initConfig(cmd *cobra.Command, args []string) error {
	mgr, err := config.NewManager(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	configMgr = mgr

	if err := mgr.GetViper().BindPFlag("log_level", cmd.Flags().Lookup("log-level")); err != nil {
		return fmt.Errorf("failed to bind flag: %w", err)
	}
	logger.Init(mgr.GetViper().GetString("log_level"), prettyLog)
	return nil
}

// effectiveConfig returns the stored config with bound flags applied.
func effectiveConfig() (*config.Config, error) {
	cfg, err := configMgr.Effective()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
