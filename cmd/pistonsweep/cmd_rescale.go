package main

import (
	"github.com/spf13/cobra"

	"github.com/fluidpower-lab/pistonsweep/internal/mesh"
)

// rescaleCmd runs one mesh rescale from a scalar-config file. The batch
// coordinator's subprocess mode re-invokes this command per variant.
var rescaleCmd = &cobra.Command{
	Use:   "rescale [scalar-config]",
	Short: "Rescale one mesh file from a scalar-config file",
	Long: `Reads a scalar-config file (source mesh, destination mesh, and the
two Z breakpoint pairs) and writes the destination mesh with node
Z-coordinates remapped through the piecewise-linear transform. Everything
outside node blocks, and any malformed node line, is copied unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mesh.RescaleFile(args[0], sink())
	},
}

func init() {
	rootCmd.AddCommand(rescaleCmd)
}
