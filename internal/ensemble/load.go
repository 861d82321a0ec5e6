package ensemble

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banddepth/banddepth/pkg/mbd"
)

// ErrUnsupportedFormat is returned for files whose extension is not
// .csv, .yaml, .yml or .json.
var ErrUnsupportedFormat = errors.New("unsupported ensemble file format")

// Document is the YAML / JSON layout of an ensemble file.
type Document struct {
	Curves [][]float64 `yaml:"curves" json:"curves"`
}

// LoadFile reads the curves in path and builds an index from them.
func LoadFile(path string, opts ...mbd.Option) (*mbd.Index, error) {
	curves, err := ReadCurves(path)
	if err != nil {
		return nil, err
	}
	ix, err := mbd.FromCurves(curves, opts...)
	if err != nil {
		return nil, fmt.Errorf("ensemble: build %q: %w", path, err)
	}
	return ix, nil
}

// ReadCurves returns the curves stored in path, one per row.
// The format is chosen by file extension.
func ReadCurves(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ensemble: open %q: %w", path, err)
	}
	defer f.Close()

	var curves [][]float64
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		curves, err = ParseCSV(f)
	case ".yaml", ".yml":
		var doc Document
		err = yaml.NewDecoder(f).Decode(&doc)
		curves = doc.Curves
	case ".json":
		var doc Document
		err = json.NewDecoder(f).Decode(&doc)
		curves = doc.Curves
	default:
		return nil, fmt.Errorf("ensemble: %q: %w %q", path, ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("ensemble: parse %q: %w", path, err)
	}
	return curves, nil
}

// ParseCSV reads one curve per record. Blank lines and lines starting with
// '#' are skipped. The first record is treated as a header only when none of
// its fields is a number; a first record with a bad field is an error like
// any other. Ragged rows are accepted here and rejected when the index is
// built.
func ParseCSV(r io.Reader) ([][]float64, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var curves [][]float64
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return curves, nil
		}
		if err != nil {
			return nil, err
		}
		curve, err := parseRecord(rec)
		if err != nil {
			if line == 1 && isHeader(rec) {
				continue
			}
			return nil, fmt.Errorf("record %d: %w", line, err)
		}
		curves = append(curves, curve)
	}
}

func isHeader(rec []string) bool {
	for _, field := range rec {
		if _, err := strconv.ParseFloat(strings.TrimSpace(field), 64); err == nil {
			return false
		}
	}
	return true
}

func parseRecord(rec []string) ([]float64, error) {
	curve := make([]float64, len(rec))
	for i, field := range rec {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i+1, err)
		}
		curve[i] = v
	}
	return curve, nil
}
