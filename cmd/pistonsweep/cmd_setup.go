package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fluidpower-lab/pistonsweep/internal/geometry"
	"github.com/fluidpower-lab/pistonsweep/internal/sweep"
)

var (
	scalesFile string
	skipSeed   bool
)

// setupCmd synthesizes one variant directory per scale factor
var setupCmd = &cobra.Command{
	Use:   "setup [base-folder]",
	Short: "Synthesize the DOE variant directories",
	Long: `Extracts the geometry parameters from the base case, reads the
scale-factor table and synthesizes one variant per factor: a derived
scalar-config file, a replica of every template sub-case, a rewritten
geometry file and a rewritten solver-option file.

Re-running setup overwrites existing variants (destructive, no versioning).`,
	Args: cobra.ExactArgs(1),
	RunE: runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	base := args[0]
	cfg, err := loadSweepConfig(base)
	if err != nil {
		return err
	}
	s := sink()

	layout := sweep.NewLayout(base, cfg)
	if _, ok := layout.Verify(s); !ok {
		return fmt.Errorf("base folder %s failed verification, run `pistonsweep verify` for details", base)
	}

	if !skipSeed {
		if err := layout.SeedZscalar(s); err != nil {
			return err
		}
	}

	params, missing, err := geometry.ExtractParameters(layout.GeometryFile(), geometry.RequiredParams)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("geometry file %s is missing required parameters: %s",
			layout.GeometryFile(), strings.Join(missing, ", "))
	}
	for _, name := range geometry.RequiredParams {
		logger.Info("extracted geometry parameter",
			zap.String("name", name), zap.String("value", fmt.Sprintf("%.6f mm", params[name])))
	}

	scales, err := sweep.ReadScaleFactors(scalesFile, s)
	if err != nil {
		return err
	}
	if len(scales) == 0 {
		return fmt.Errorf("scale-factor table %s contains no usable rows", scalesFile)
	}

	outcomes := sweep.NewSynthesizer(layout, cfg, s).Synthesize(scales, params)

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			fmt.Printf("  %-28s FAILED: %v\n", o.Name, o.Err)
		} else {
			fmt.Printf("  %-28s ok\n", o.Name)
		}
	}
	fmt.Printf("synthesized %d/%d variants\n", len(outcomes)-failed, len(outcomes))
	if failed == len(outcomes) {
		return fmt.Errorf("all %d variants failed to synthesize", failed)
	}
	return nil
}

func init() {
	setupCmd.Flags().StringVar(&scalesFile, "scales", "", "path to the scale-factor table (required)")
	setupCmd.Flags().BoolVar(&skipSeed, "skip-seed", false, "do not copy piston_pr.inp into the Zscalar folder first")
	_ = setupCmd.MarkFlagRequired("scales")
	rootCmd.AddCommand(setupCmd)
}
