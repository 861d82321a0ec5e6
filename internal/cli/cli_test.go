package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/banddepth/banddepth/internal/auth"
	"github.com/banddepth/banddepth/internal/ensemble"
	"github.com/banddepth/banddepth/internal/receiver"
	"github.com/banddepth/banddepth/internal/scoring"
	"github.com/banddepth/banddepth/pkg/depthv1"
)

// run executes mbd with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const (
	referenceCSV = "1,2,3\n4,5,6\n"
	queryCSV     = "2,3,4\n9,9,9\n"
)

func TestRoot_SubcommandsPresent(t *testing.T) {
	have := map[string]*cobra.Command{}
	for _, c := range NewRootCmd().Commands() {
		have[c.Name()] = c
	}
	for _, want := range []string{"depth", "inspect", "remote", "token"} {
		assert.Contains(t, have, want)
	}

	sub := map[string]bool{}
	for _, c := range have["remote"].Commands() {
		sub[c.Name()] = true
	}
	assert.Equal(t, map[string]bool{"query": true, "list": true, "put": true}, sub)
}

func TestCommands_HaveDescriptions(t *testing.T) {
	var check func(*cobra.Command)
	check = func(cmd *cobra.Command) {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return
		}
		assert.NotEmpty(t, cmd.Short, "command %s missing Short", cmd.CommandPath())
		assert.NotEmpty(t, cmd.Long, "command %s missing Long", cmd.CommandPath())
		for _, sc := range cmd.Commands() {
			check(sc)
		}
	}
	check(NewRootCmd())
}

func TestDepth_JSON(t *testing.T) {
	ref := writeFile(t, "reference.csv", referenceCSV)
	query := writeFile(t, "query.csv", queryCSV)

	out, err := run(t, "depth", "--ensemble", ref, "--query", query, "-o", "json")
	require.NoError(t, err)

	var resp depthv1.QueryResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "reference", resp.EnsembleID)
	assert.Equal(t, 2, resp.Samples)
	assert.Equal(t, 3, resp.Timepoints)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, 1.0, resp.Results[0].Depth)
	assert.Equal(t, 0.0, resp.Results[1].Depth)
	assert.Equal(t, "0", resp.Deepest)
}

func TestDepth_Table(t *testing.T) {
	ref := writeFile(t, "reference.csv", referenceCSV)
	query := writeFile(t, "query.csv", queryCSV)

	out, err := run(t, "depth", "-e", ref, "-q", query, "--strategy", "search", "-w", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "DEPTH")
	assert.Contains(t, out, "1.000000")
	assert.Contains(t, out, "0.000000")
	assert.Contains(t, out, "2 samples x 3 timepoints")
}

func TestDepth_Errors(t *testing.T) {
	ref := writeFile(t, "reference.csv", referenceCSV)
	short := writeFile(t, "short.csv", "1,2\n")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing flags", []string{"depth"}, "required flag"},
		{"bad format", []string{"depth", "-e", ref, "-q", ref, "-o", "xml"}, "output format"},
		{"bad strategy", []string{"depth", "-e", ref, "-q", ref, "--strategy", "fast"}, "strategy"},
		{"dimension mismatch", []string{"depth", "-e", ref, "-q", short}, "score"},
		{"missing file", []string{"depth", "-e", "/nonexistent.csv", "-q", ref}, "open"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInspect(t *testing.T) {
	path := writeFile(t, "ties.csv", "1,5\n1,7\n3,6\n")

	out, err := run(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "samples:     3")
	assert.Contains(t, out, "timepoints:  2")
	assert.Contains(t, out, "range:       [1, 7]")
	assert.Contains(t, out, "tied:        1/2 timepoints")
	assert.Contains(t, out, "spread:      median")
	assert.NotContains(t, out, "warning")
}

func TestInspect_DegenerateWarning(t *testing.T) {
	path := writeFile(t, "one.csv", "1,2,3\n")
	out, err := run(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "fewer than 2 curves")
}

func TestInspect_Dump(t *testing.T) {
	path := writeFile(t, "ref.csv", referenceCSV)
	out, err := run(t, "inspect", path, "--dump", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "Samples:")
	assert.Contains(t, out, "Lower:")
}

func TestSummarize(t *testing.T) {
	ix, err := ensemble.LoadFile(writeFile(t, "ref.yaml", "curves:\n  - [1, 2]\n  - [3, 2]\n"))
	require.NoError(t, err)

	s := summarize("ref.yaml", ix)
	assert.Equal(t, 2, s.Samples)
	assert.Equal(t, []float64{1, 2}, s.Lower)
	assert.Equal(t, []float64{3, 2}, s.Upper)
	assert.Equal(t, 1, s.TiedTimepoints)
	assert.Equal(t, 1.0, s.SpreadMedian)
	assert.False(t, s.Degenerate)
}

// startDepthd runs a depth service on a random port.
func startDepthd(t *testing.T) (string, *ensemble.Manager) {
	t.Helper()
	st := ensemble.NewStore(time.Hour)
	m := ensemble.NewManager(st, nil, "auto")
	srv := grpc.NewServer()
	depthv1.RegisterDepthServiceServer(srv, receiver.New(scoring.NewEngine(st, scoring.Options{Workers: 2, MaxCurves: 10}), m))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(lis) //nolint:errcheck
	t.Cleanup(srv.Stop)
	return lis.Addr().String(), m
}

func TestRemote_PutListQuery(t *testing.T) {
	addr, _ := startDepthd(t)
	ref := writeFile(t, "reference.csv", referenceCSV)
	query := writeFile(t, "query.csv", queryCSV)
	common := []string{"--endpoint", addr, "--attempts", "1"}

	out, err := run(t, append([]string{"remote", "put", "--id", "ref", "-f", ref}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "ref")

	out, err = run(t, append([]string{"remote", "list", "-o", "json"}, common...)...)
	require.NoError(t, err)
	var infos []depthv1.EnsembleInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "ref", infos[0].ID)
	assert.Equal(t, 2, infos[0].Samples)

	out, err = run(t, append([]string{"remote", "query", "-e", "ref", "-q", query, "-o", "json"}, common...)...)
	require.NoError(t, err)
	var resp depthv1.QueryResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, 1.0, resp.Results[0].Depth)
}

func TestRemote_QueryUnknownEnsemble(t *testing.T) {
	addr, m := startDepthd(t)
	_, err := m.Put(context.Background(), "other", [][]float64{{1}, {2}}, "")
	require.NoError(t, err)
	query := writeFile(t, "query.csv", queryCSV)

	_, err = run(t, "remote", "query", "-e", "missing", "-q", query, "--endpoint", addr, "--attempts", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NotFound")
}

func TestToken(t *testing.T) {
	t.Setenv("MBD_TEST_SECRET", "cli-secret")
	out, err := run(t, "token", "--secret-env", "MBD_TEST_SECRET", "--subject", "ci", "--ttl", "5m")
	require.NoError(t, err)

	claims, err := auth.VerifyToken([]byte("cli-secret"), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ci", claims.Subject)

	t.Setenv("MBD_TEST_SECRET", "")
	_, err = run(t, "token", "--secret-env", "MBD_TEST_SECRET")
	require.Error(t, err)
}

func TestRemote_BadAuthMode(t *testing.T) {
	_, err := run(t, "remote", "list", "--auth", "oauth2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown auth mode")
}
