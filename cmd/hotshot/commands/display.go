package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var displayCmd = &cobra.Command{
	Use:   "display",
	Short: "Inspect monitors",
}

var displayListCmd = &cobra.Command{
	Use:   "list",
	Short: "List monitors",
	Long: `List connected monitors with their index, output name and geometry.

Either form can be passed to --display. Monitor enumeration is only
available on X11.`,
	Args: cobra.NoArgs,
	RunE: runDisplayList,
}

func init() {
	rootCmd.AddCommand(displayCmd)
	displayCmd.AddCommand(displayListCmd)
}

func runDisplayList(cmd *cobra.Command, args []string) error {
	cfg, err := effectiveConfig()
	if err != nil {
		return err
	}

	monitors, err := newEngine(cfg).ListMonitors(context.Background())
	if err != nil {
		return err
	}
	if len(monitors) == 0 {
		fmt.Println("No monitors found")
		return nil
	}

	for i, m := range monitors {
		fmt.Printf("%d: %s\n", i, m)
	}
	return nil
}
