package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fluidpower-lab/pistonsweep/internal/sweep"
)

// verifyCmd checks the base-folder structure without touching anything
var verifyCmd = &cobra.Command{
	Use:   "verify [base-folder]",
	Short: "Verify the base folder structure",
	Long: `Checks that the base folder contains the expected tree: INP/,
simulation/, influgen/, Zscalar/, geometry.txt, INP/piston_pr.inp and the
scalar template. Critical items gate setup and run; the rest are advisory.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	base := args[0]
	cfg, err := loadSweepConfig(base)
	if err != nil {
		return err
	}

	layout := sweep.NewLayout(base, cfg)
	checks, ok := layout.Verify(sink())

	for _, c := range checks {
		mark := "ok "
		if !c.OK {
			mark = "MISSING"
		}
		fmt.Printf("  %-20s %-7s %s\n", c.Name, mark, c.Path)
	}
	if !ok {
		return fmt.Errorf("critical files or folders are missing in %s", base)
	}
	fmt.Println("all critical files and folders are present")
	return nil
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
