package ensemble

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banddepth/banddepth/pkg/mbd"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadFile_Formats(t *testing.T) {
	files := map[string]string{
		"ref.csv":  "t0,t1,t2\n4,5,6\n# comment\n\n1, 2, 3\n",
		"ref.yaml": "curves:\n  - [4, 5, 6]\n  - [1, 2, 3]\n",
		"ref.yml":  "curves: [[4, 5, 6], [1, 2, 3]]\n",
		"ref.json": `{"curves": [[4, 5, 6], [1, 2, 3]]}`,
	}
	want, err := mbd.FromCurves([][]float64{{4, 5, 6}, {1, 2, 3}})
	if err != nil {
		t.Fatalf("FromCurves: %v", err)
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			ix, err := LoadFile(writeFile(t, name, content))
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			if !ix.Equal(want) {
				t.Errorf("index mismatch: got blocks %v %v %v", ix.Block(0), ix.Block(1), ix.Block(2))
			}
			d, err := ix.Query([]float64{2, 3, 4})
			if err != nil || d != 1 {
				t.Errorf("Query: got %v, %v; want 1, nil", d, err)
			}
		})
	}
}

func TestLoadFile_Strategy(t *testing.T) {
	p := writeFile(t, "ref.csv", "1,2\n3,4\n")
	ix, err := LoadFile(p, mbd.WithStrategy(mbd.StrategySearch))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if ix.Strategy() != mbd.StrategySearch {
		t.Errorf("Strategy: got %v, want search", ix.Strategy())
	}
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantIs  error
		wantMsg string
	}{
		{"unsupported", "ref.txt", "1,2\n", ErrUnsupportedFormat, ""},
		{"ragged", "ref.csv", "1,2,3\n1,2\n", mbd.ErrInvalidInput, ""},
		{"nan", "ref.csv", "1,NaN\n1,2\n", mbd.ErrInvalidInput, ""},
		{"empty", "ref.csv", "", mbd.ErrInvalidInput, ""},
		{"bad field after data", "ref.csv", "1,2\nx,3\n", nil, "record 2"},
		{"bad field in first record", "ref.csv", "1,2,x\n4,5,6\n", nil, "record 1"},
		{"bad yaml", "ref.yaml", "curves: [[1, a]]\n", nil, "parse"},
		{"bad json", "ref.json", `{"curves": 3}`, nil, "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeFile(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("error %v is not %v", err, tt.wantIs)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestParseCSV_HeaderOnlyOnFirstRecord(t *testing.T) {
	curves, err := ParseCSV(strings.NewReader("a,b\n1,2\n"))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(curves) != 1 || curves[0][0] != 1 || curves[0][1] != 2 {
		t.Errorf("curves: got %v", curves)
	}
}

func TestParseCSV_FirstRecordTypoIsNotAHeader(t *testing.T) {
	curves, err := ParseCSV(strings.NewReader("1,2,x\n4,5,6\n7,8,9\n"))
	if err == nil {
		t.Fatalf("expected error, got curves %v", curves)
	}
	if !strings.Contains(err.Error(), "record 1") || !strings.Contains(err.Error(), "field 3") {
		t.Errorf("error %q does not name record 1 field 3", err)
	}
}

func TestParseCSV_HeaderAfterComment(t *testing.T) {
	curves, err := ParseCSV(strings.NewReader("# exported\nt0,t1\n1,2\n3,4\n"))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(curves) != 2 {
		t.Errorf("curves: got %v, want 2 rows", curves)
	}
}
