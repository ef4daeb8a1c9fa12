package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fluidpower-lab/pistonsweep/internal/batch"
	"github.com/fluidpower-lab/pistonsweep/internal/config"
	"github.com/fluidpower-lab/pistonsweep/internal/sweep"
)

var (
	copyOnly     bool
	scaleOnly    bool
	batchMode    string
	workers      int
	scalerScript string
)

// runCmd drives the batch phase over the synthesized variants
var runCmd = &cobra.Command{
	Use:   "run [base-folder]",
	Short: "Copy piston_pr inputs and rescale every variant's mesh",
	Long: `Discovers the synthesized variant directories, copies piston_pr.inp
into each variant's working subfolder, then runs the mesh rescale for every
variant on a worker pool. Variants without a scalar config are skipped; one
variant's failure never stops the others.

Execution modes:
  direct      run each rescale in-process (default)
  subprocess  run each rescale as an isolated child process with a timeout`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func runBatch(cmd *cobra.Command, args []string) error {
	base := args[0]
	cfg, err := loadSweepConfig(base)
	if err != nil {
		return err
	}
	if batchMode != "" {
		cfg.Batch.Mode = config.BatchMode(batchMode)
	}
	if workers > 0 {
		cfg.Batch.Workers = workers
	}
	if scalerScript != "" {
		cfg.Batch.ScalerScript = scalerScript
	}
	if copyOnly && scaleOnly {
		return fmt.Errorf("--copy-only and --scale-only are mutually exclusive")
	}

	s := sink()
	layout := sweep.NewLayout(base, cfg)
	if _, ok := layout.Verify(s); !ok {
		return fmt.Errorf("base folder %s failed verification, run `pistonsweep verify` for details", base)
	}

	runner, err := buildRunner(base, cfg)
	if err != nil {
		return err
	}
	coord := batch.NewCoordinator(layout, cfg, runner, s)

	if !scaleOnly {
		copied, failed, err := coord.CopyPistonPrFiles()
		if err != nil {
			return err
		}
		fmt.Printf("copied piston_pr.inp into %d variants (%d failed)\n", copied, failed)
	}
	if copyOnly {
		return nil
	}

	summary, err := coord.RunBatch(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Print(summary.String())
	if !summary.AllSucceeded() {
		// Partial failure is data for the caller, surfaced via exit code.
		// Exiting here skips PersistentPostRun, so flush the logger first.
		_ = logger.Sync()
		exitFunc(1)
	}
	return nil
}

// exitFunc is indirected for tests.
var exitFunc = os.Exit

// buildRunner selects the execution mode. In subprocess mode the default
// child command is this binary's own rescale command; an external helper
// can be pointed at via --scaler-script or the config, resolved through the
// ordered search chain.
func buildRunner(base string, cfg *config.Config) (batch.Runner, error) {
	switch cfg.Batch.Mode {
	case config.ModeDirect:
		return &batch.DirectRunner{Sink: sink()}, nil
	case config.ModeSubprocess:
		timeout := cfg.Batch.TaskTimeoutDuration()
		if cfg.Batch.ScalerScript != "" {
			script, err := batch.FindScalerScript(cfg.Batch.ScalerScript, base, "")
			if err != nil {
				return nil, err
			}
			return &batch.SubprocessRunner{Binary: script, Timeout: timeout}, nil
		}
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve own executable: %w", err)
		}
		return &batch.SubprocessRunner{Binary: exe, Args: []string{"rescale"}, Timeout: timeout}, nil
	default:
		return nil, fmt.Errorf("unknown batch mode %q", cfg.Batch.Mode)
	}
}

func init() {
	runCmd.Flags().BoolVar(&copyOnly, "copy-only", false, "only copy piston_pr.inp files, do not rescale")
	runCmd.Flags().BoolVar(&scaleOnly, "scale-only", false, "only rescale, do not copy files")
	runCmd.Flags().StringVar(&batchMode, "mode", "", "execution mode: direct or subprocess")
	runCmd.Flags().IntVar(&workers, "workers", 0, "worker pool size (default: available parallelism)")
	runCmd.Flags().StringVar(&scalerScript, "scaler-script", "", "path to an external rescale helper for subprocess mode")
	rootCmd.AddCommand(runCmd)
}
