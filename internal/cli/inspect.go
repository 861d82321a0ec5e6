package cli

import (
	"fmt"
	"math"

	"github.com/k0kubun/pp"
	"github.com/montanaflynn/stats"
	"github.com/spf13/cobra"

	"github.com/banddepth/banddepth/internal/ensemble"
	"github.com/banddepth/banddepth/pkg/mbd"
)

// Summary describes an ensemble file.
type Summary struct {
	Path       string
	Samples    int
	Timepoints int
	Strategy   string
	Degenerate bool
	// Min and Max are the extremes over all timepoints.
	Min, Max float64
	// TiedTimepoints counts timepoints where at least two curves share a value.
	TiedTimepoints int
	// SpreadMedian and SpreadP90 summarise the envelope width upper-lower.
	SpreadMedian, SpreadP90 float64
	Lower, Upper            []float64
}

func summarize(path string, ix *mbd.Index) Summary {
	lower, upper := ix.Envelope()
	s := Summary{
		Path:       path,
		Samples:    ix.NumSamples(),
		Timepoints: ix.NumTimepoints(),
		Strategy:   ix.Strategy().String(),
		Degenerate: ix.NumSamples() < 2,
		Min:        math.Inf(1),
		Max:        math.Inf(-1),
		Lower:      lower,
		Upper:      upper,
	}
	spread := make([]float64, ix.NumTimepoints())
	for t := 0; t < ix.NumTimepoints(); t++ {
		s.Min = math.Min(s.Min, lower[t])
		s.Max = math.Max(s.Max, upper[t])
		spread[t] = upper[t] - lower[t]
		block := ix.Block(t)
		for i := 1; i < len(block); i++ {
			if block[i] == block[i-1] {
				s.TiedTimepoints++
				break
			}
		}
	}
	// Errors only occur on empty input, which an index never has.
	s.SpreadMedian, _ = stats.Median(spread)
	s.SpreadP90, _ = stats.Percentile(spread, 90)
	return s
}

func newInspectCmd() *cobra.Command {
	var (
		dump    bool
		noColor bool
	)
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Summarise an ensemble file",
		Long: `The 'inspect' command builds an index from the file and prints its shape,
value range and tie statistics. --dump pretty-prints the full summary
including the per-timepoint envelope.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := ensemble.LoadFile(args[0])
			if err != nil {
				return err
			}
			s := summarize(args[0], ix)
			w := cmd.OutOrStdout()

			if dump {
				pp.ColoringEnabled = !noColor
				_, err := pp.Fprintln(w, s)
				return err
			}

			fmt.Fprintf(w, "file:        %s\n", s.Path)
			fmt.Fprintf(w, "samples:     %d\n", s.Samples)
			fmt.Fprintf(w, "timepoints:  %d\n", s.Timepoints)
			fmt.Fprintf(w, "strategy:    %s\n", s.Strategy)
			fmt.Fprintf(w, "range:       [%g, %g]\n", s.Min, s.Max)
			fmt.Fprintf(w, "tied:        %d/%d timepoints\n", s.TiedTimepoints, s.Timepoints)
			fmt.Fprintf(w, "spread:      median %g, p90 %g\n", s.SpreadMedian, s.SpreadP90)
			if s.Degenerate {
				fmt.Fprintln(w, "warning:     fewer than 2 curves, depth is undefined")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dump, "dump", false, "pretty-print the full summary")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colours in --dump output")
	return cmd
}
