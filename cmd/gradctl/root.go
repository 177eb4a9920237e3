package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/gradviz/internal/logging"
	"github.com/copyleftdev/gradviz/internal/optimization"
)

var (
	logLevel string
	logger   *logging.Logger
	registry = optimization.DefaultRegistry()
)

var rootCmd = &cobra.Command{
	Use:   "gradctl",
	Short: "Headless gradient descent over the visualizer's test functions",
	Long: `gradctl runs the same descent engine as the visualizer server without
a cadence, printing trajectories for the convex bowl, curved valley and
multi-term test functions.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.NewLogger(&logging.Config{
			Level:  logLevel,
			Format: "text",
			Output: "stderr",
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.SetOut(os.Stdout)
}
