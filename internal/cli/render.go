package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/banddepth/banddepth/pkg/depthv1"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	deepestStyle = cellStyle.Foreground(lipgloss.Color("42"))
)

func checkFormat(f string) error {
	switch f {
	case formatTable, formatJSON:
		return nil
	default:
		return fmt.Errorf("unknown output format %q: want table|json", f)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeDepths prints a query response in the chosen format.
func writeDepths(w io.Writer, format string, resp *depthv1.QueryResponse) error {
	if format == formatJSON {
		return writeJSON(w, resp)
	}

	deepest := -1
	rows := make([][]string, 0, len(resp.Results))
	for i, r := range resp.Results {
		if r.CurveID == resp.Deepest && deepest < 0 {
			deepest = i
		}
		rows = append(rows, []string{
			r.CurveID,
			strconv.FormatFloat(r.Depth, 'f', 6, 64),
			strconv.FormatUint(r.Count, 10),
			strconv.FormatUint(r.Total, 10),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("CURVE", "DEPTH", "COUNT", "TOTAL").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == deepest:
				return deepestStyle
			default:
				return cellStyle
			}
		})

	_, err := fmt.Fprintf(w, "%s\nensemble %s v%d: %d samples x %d timepoints, %.2fms\n",
		t.Render(), resp.EnsembleID, resp.Version, resp.Samples, resp.Timepoints, resp.ElapsedMs)
	return err
}

// writeEnsembles prints ensemble summaries in the chosen format.
func writeEnsembles(w io.Writer, format string, infos []depthv1.EnsembleInfo) error {
	if format == formatJSON {
		return writeJSON(w, infos)
	}
	rows := make([][]string, 0, len(infos))
	for _, e := range infos {
		rows = append(rows, []string{
			e.ID,
			e.Origin,
			strconv.FormatBool(e.Pinned),
			strconv.Itoa(e.Samples),
			strconv.Itoa(e.Timepoints),
			e.Strategy,
			strconv.FormatUint(e.Version, 10),
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "ORIGIN", "PINNED", "SAMPLES", "TIMEPOINTS", "STRATEGY", "VERSION").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
