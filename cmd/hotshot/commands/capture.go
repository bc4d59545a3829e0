package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanchriswhite/hotshot/internal/capture"
	"github.com/bryanchriswhite/hotshot/internal/capture/x11"
	"github.com/bryanchriswhite/hotshot/internal/config"
	"github.com/bryanchriswhite/hotshot/internal/engine"
	"github.com/bryanchriswhite/hotshot/internal/output"
	"github.com/spf13/cobra"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Take a screenshot",
	Long: `Take a screenshot of the whole screen, a rectangle, an interactively
selected region, or the active window.

The display server is detected from the environment. On Wayland every
capture goes through the xdg-desktop-portal, which may show its own
dialog.`,
}

var captureFullscreenCmd = &cobra.Command{
	Use:   "fullscreen",
	Short: "Capture the whole screen",
	Example: `  # Capture every monitor
  hotshot capture fullscreen

  # Capture only the second monitor
  hotshot capture fullscreen --display 1

  # Capture a monitor by output name as JPEG
  hotshot capture fullscreen --display HDMI-1 -o shot.jpg`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCapture(cmd, capture.Fullscreen{})
	},
}

var captureRegionCmd = &cobra.Command{
	Use:   "region",
	Short: "Capture a rectangle, or select one interactively",
	Long: `Capture a rectangle given with --geometry as WxH+X+Y or X,Y,W,H.

Without --geometry an overlay lets you drag out the region with the left
mouse button. Press Escape to cancel.`,
	Example: `  # Drag to select
  hotshot capture region

  # Fixed rectangle
  hotshot capture region --geometry 800x600+100+50`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := capture.ParseMode("region", geometryFlag)
		if err != nil {
			return err
		}
		return runCapture(cmd, mode)
	},
}

var captureWindowCmd = &cobra.Command{
	Use:     "window",
	Aliases: []string{"active-window"},
	Short:   "Capture the focused window",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCapture(cmd, capture.ActiveWindow{})
	},
}

var (
	outputFlag   string
	geometryFlag string
)

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.AddCommand(captureFullscreenCmd)
	captureCmd.AddCommand(captureRegionCmd)
	captureCmd.AddCommand(captureWindowCmd)

	captureCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "", "output file (default is <output_dir>/hotshot-<timestamp>.<ext>)")
	captureCmd.PersistentFlags().StringP("format", "f", "", "image format (png, jpeg, bmp, tiff)")
	captureCmd.PersistentFlags().StringP("display", "d", "", "monitor index or output name")
	captureRegionCmd.Flags().StringVarP(&geometryFlag, "geometry", "g", "", "region as WxH+X+Y or X,Y,W,H")
}

// newEngine builds a dispatcher from the effective configuration.
func newEngine(cfg *config.Config) *engine.Dispatcher {
	return engine.New(engine.Options{
		Overlay: x11.Options{
			DimAlpha:    uint16(cfg.Overlay.DimAlpha),
			BorderWidth: cfg.Overlay.BorderWidth,
		},
		PortalTimeout: cfg.Capture.PortalTimeoutDuration(),
	})
}

func bindCaptureFlags(cmd *cobra.Command) error {
	v := configMgr.GetViper()
	if err := v.BindPFlag("capture.format", cmd.Flags().Lookup("format")); err != nil {
		return fmt.Errorf("failed to bind flag: %w", err)
	}
	if err := v.BindPFlag("capture.display", cmd.Flags().Lookup("display")); err != nil {
		return fmt.Errorf("failed to bind flag: %w", err)
	}
	return nil
}

func runCapture(cmd *cobra.Command, mode capture.Mode) error {
	if err := bindCaptureFlags(cmd); err != nil {
		return err
	}
	cfg, err := effectiveConfig()
	if err != nil {
		return err
	}

	// An explicit --format wins; otherwise the output extension decides.
	format := cfg.Capture.Format
	if !cmd.Flags().Changed("format") && outputFlag != "" {
		if inferred := output.FormatFromPath(outputFlag); inferred != "" {
			format = inferred
		}
	}
	enc, err := output.NewEncoder(format, cfg.Capture.JPEGQuality)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := newEngine(cfg)
	server, err := eng.DisplayServer()
	if err != nil {
		return err
	}

	var bounds *capture.Region
	if cfg.Capture.Display != "" {
		m, err := eng.ResolveDisplay(ctx, cfg.Capture.Display)
		if err != nil {
			return err
		}
		r := m.Region()
		bounds = &r
	}

	img, err := eng.Capture(ctx, mode, bounds)
	if capture.IsCancelled(err) {
		fmt.Println("selection cancelled")
		return nil
	}
	if err != nil {
		return err
	}

	path := outputFlag
	if path == "" {
		path = output.DefaultPath(cfg.Capture.OutputDir, enc, time.Now())
	}
	if err := output.Save(path, img, enc); err != nil {
		return err
	}

	fmt.Printf("Display server: %s\n", server)
	fmt.Printf("Mode:           %s\n", mode.Name())
	fmt.Printf("Size:           %dx%d\n", img.Bounds().Dx(), img.Bounds().Dy())
	fmt.Printf("Saved:          %s\n", path)
	return nil
}
