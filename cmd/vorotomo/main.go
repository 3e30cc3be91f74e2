// Command vorotomo runs the iterative traveltime inversion
// over a simulated process group.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vorotomo",
	Short: "Stochastic Voronoi-cell seismic traveltime inversion",
	Long: `vorotomo inverts seismic arrival times for P and S velocity
models. Each iteration averages randomized coarse inversions, then
relocates the event catalog against the refined models.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
