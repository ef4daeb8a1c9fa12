package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fluidpower-lab/pistonsweep/internal/config"
	"github.com/fluidpower-lab/pistonsweep/internal/events"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pistonsweep",
	Short: "DOE variant synthesis and mesh rescaling for piston gap simulations",
	Long: `pistonsweep prepares a parametric design-of-experiments sweep for a
piston/cylinder gap simulation: from a base case and a list of scale
factors it synthesizes one independent variant per factor, derives the
scaled geometry parameters, and runs the variants' mesh rescaling in
parallel.

Typical flow:
  pistonsweep verify  <base-folder>
  pistonsweep setup   <base-folder> --scales doe_table.csv
  pistonsweep run     <base-folder> --workers 8`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// loadSweepConfig loads sweep.yaml from the base folder unless --config
// points somewhere else. A missing file yields defaults.
func loadSweepConfig(baseFolder string) (*config.Config, error) {
	path := configPath
	if path == "" {
		path = filepath.Join(baseFolder, "sweep.yaml")
	}
	return config.Load(path)
}

func sink() events.Sink {
	return events.NewZapSink(logger)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to sweep.yaml (default: <base>/sweep.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
