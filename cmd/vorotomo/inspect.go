package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/seismon/vorotomo/store"
)

var inspectFlags struct {
	dir       string
	iteration int
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Summarize one iteration's saved snapshot",
	RunE:  inspectSnapshot,
}

func init() {
	flags := inspectCmd.Flags()
	flags.StringVarP(&inspectFlags.dir, "output-dir", "o", "output", "snapshot directory")
	flags.IntVarP(&inspectFlags.iteration, "iteration", "i", 1, "iteration to inspect")
	rootCmd.AddCommand(inspectCmd)
}

func inspectSnapshot(cmd *cobra.Command, args []string) error {
	writer, err := store.NewDirWriter(inspectFlags.dir)
	if err != nil {
		return err
	}
	snap, err := writer.ReadSnapshot(inspectFlags.iteration)
	if err != nil {
		return err
	}

	fmt.Printf("iteration %d: %d events, %d arrivals\n",
		snap.Iteration, len(snap.Events), len(snap.Arrivals))
	summarize := func(name string, values []float64) {
		if len(values) == 0 {
			fmt.Printf("%s: empty\n", name)
			return
		}
		fmt.Printf("%s: min=%.4f max=%.4f mean=%.4f\n",
			name, floats.Min(values), floats.Max(values), stat.Mean(values, nil))
	}
	summarize("pwave velocity", snap.PwaveModel.Values)
	summarize("swave velocity", snap.SwaveModel.Values)
	summarize("pwave variance", snap.PwaveVariance)
	summarize("swave variance", snap.SwaveVariance)

	var rms []float64
	for _, event := range snap.Events {
		rms = append(rms, event.Residual)
	}
	summarize("event rms", rms)
	return nil
}
