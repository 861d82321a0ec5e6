package mbd

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromCurves_ColumnMajorLayout(t *testing.T) {
	ix, err := FromCurves([][]float64{{4, 5, 6}, {1, 2, 3}})
	require.NoError(t, err)

	assert.Equal(t, 2, ix.NumSamples())
	assert.Equal(t, 3, ix.NumTimepoints())
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, ix.sorted)
	assert.Equal(t, []float64{2, 5}, ix.Block(1))
}

func TestFromMatrix_MatchesFromCurves(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for iter := 0; iter < 50; iter++ {
		rows, timepoints := 1+rng.Intn(20), 1+rng.Intn(15)
		curves := make([][]float64, rows)
		flat := make([]float64, 0, rows*timepoints)
		for i := range curves {
			curves[i] = make([]float64, timepoints)
			for j := range curves[i] {
				curves[i][j] = math.Round(rng.NormFloat64()*4) / 2
			}
			flat = append(flat, curves[i]...)
		}

		a, err := FromMatrix(rows, timepoints, flat)
		require.NoError(t, err)
		b, err := FromCurves(curves)
		require.NoError(t, err)
		require.True(t, a.Equal(b), "rows=%d timepoints=%d", rows, timepoints)

		for tp := 0; tp < timepoints; tp++ {
			block := a.Block(tp)
			require.Len(t, block, rows)
			for k := 1; k < len(block); k++ {
				require.LessOrEqual(t, block[k-1], block[k])
			}
		}
	}
}

func TestFromMatrix_Errors(t *testing.T) {
	tests := []struct {
		name       string
		rows, cols int
		data       []float64
		want       error
	}{
		{"length mismatch", 2, 3, []float64{1, 2, 3, 4, 5}, ErrDimensionMismatch},
		{"zero rows", 0, 3, nil, ErrInvalidInput},
		{"zero timepoints", 2, 0, nil, ErrInvalidInput},
		{"negative rows", -1, 3, nil, ErrInvalidInput},
		{"nan", 2, 2, []float64{1, math.NaN(), 3, 4}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix, err := FromMatrix(tt.rows, tt.cols, tt.data)
			assert.Nil(t, ix)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFromCurves_Errors(t *testing.T) {
	tests := []struct {
		name   string
		curves [][]float64
	}{
		{"nil", nil},
		{"empty list", [][]float64{}},
		{"zero timepoints", [][]float64{{}, {}}},
		{"ragged", [][]float64{{1, 2, 3}, {1, 2}}},
		{"nan", [][]float64{{1, 2}, {math.NaN(), 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix, err := FromCurves(tt.curves)
			assert.Nil(t, ix)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestFromCurves_DoesNotAliasInput(t *testing.T) {
	curves := [][]float64{{3, 1}, {1, 3}}
	ix, err := FromCurves(curves)
	require.NoError(t, err)

	curves[0][0] = 100
	assert.Equal(t, []float64{1, 3}, ix.Block(0))

	b := ix.Block(0)
	b[0] = -100
	assert.Equal(t, []float64{1, 3}, ix.Block(0), "Block must return a copy")
}

func TestIndex_Envelope(t *testing.T) {
	ix, err := FromCurves([][]float64{{4, 5, 6}, {1, 9, 3}, {2, 2, 2}})
	require.NoError(t, err)

	lower, upper := ix.Envelope()
	assert.Equal(t, []float64{1, 2, 2}, lower)
	assert.Equal(t, []float64{4, 9, 6}, upper)
}

func TestIndex_Equal(t *testing.T) {
	a, err := FromCurves([][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	b, err := FromCurves([][]float64{{3, 4}, {1, 2}}, WithStrategy(StrategyScan))
	require.NoError(t, err)
	c, err := FromCurves([][]float64{{1, 2}, {3, 5}})
	require.NoError(t, err)

	assert.True(t, a.Equal(b), "curve order and strategy do not matter")
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
	assert.Equal(t, StrategyScan, b.Strategy())
}
