package cli

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banddepth/banddepth/internal/config"
	"github.com/banddepth/banddepth/internal/ensemble"
	"github.com/banddepth/banddepth/internal/scoring"
	"github.com/banddepth/banddepth/pkg/mbd"
)

type depthOptions struct {
	ensemble string
	query    string
	strategy string
	workers  int
	format   string
}

func newDepthCmd() *cobra.Command {
	o := depthOptions{}
	cmd := &cobra.Command{
		Use:   "depth",
		Short: "Score query curves against an ensemble file",
		Long: `The 'depth' command builds an index from the ensemble file and prints the
modified band depth of every curve in the query file. Both files may be
.csv (one curve per line), .yaml/.yml or .json ({"curves": [[...], ...]}).`,
		Example: "  mbd depth --ensemble reference.csv --query candidates.csv",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDepth(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.ensemble, "ensemble", "e", "", "reference ensemble file (required)")
	f.StringVarP(&o.query, "query", "q", "", "file holding the curves to score (required)")
	f.StringVar(&o.strategy, "strategy", "auto", "rank counting strategy: auto|scan|search")
	f.IntVarP(&o.workers, "workers", "w", runtime.NumCPU(), "curves scored in parallel")
	f.StringVarP(&o.format, "output", "o", formatTable, "output format: table|json")
	_ = cmd.MarkFlagRequired("ensemble")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func runDepth(cmd *cobra.Command, o depthOptions) error {
	if err := checkFormat(o.format); err != nil {
		return err
	}
	strategy, err := mbd.ParseStrategy(o.strategy)
	if err != nil {
		return err
	}
	ix, err := ensemble.LoadFile(o.ensemble, mbd.WithStrategy(strategy))
	if err != nil {
		return err
	}
	curves, err := ensemble.ReadCurves(o.query)
	if err != nil {
		return err
	}

	id := strings.TrimSuffix(filepath.Base(o.ensemble), filepath.Ext(o.ensemble))
	st := ensemble.NewStore(0)
	st.Put(id, ix, ensemble.OriginFile, true)

	engine := scoring.NewEngine(st, scoring.Options{
		Workers:              max(o.workers, 1),
		ConcurrentTimepoints: config.DefaultConcurrentTP,
		MaxCurves:            max(len(curves), 1),
	})
	batch, err := engine.Score(cmd.Context(), scoring.Request{EnsembleID: id, Curves: curves})
	if err != nil {
		return fmt.Errorf("score %s: %w", o.query, err)
	}
	return writeDepths(cmd.OutOrStdout(), o.format, batch.Response())
}
