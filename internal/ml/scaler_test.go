package ml

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardScaler_FitTransform(t *testing.T) {
	X := [][]float64{
		{1, 10},
		{3, 10},
	}

	s := &StandardScaler{}
	scaled, err := s.FitTransform(X)
	require.NoError(t, err)

	assert.InDelta(t, 2, s.Mean[0], 1e-9)
	assert.InDelta(t, math.Sqrt2, s.Std[0], 1e-9)

	// Constant column must not divide by zero.
	assert.Equal(t, 1.0, s.Std[1])
	assert.Equal(t, 0.0, scaled[0][1])

	assert.InDelta(t, -1/math.Sqrt2, scaled[0][0], 1e-9)
	assert.InDelta(t, 1/math.Sqrt2, scaled[1][0], 1e-9)
}

func TestStandardScaler_TransformCentersColumns(t *testing.T) {
	X := [][]float64{{1, 100}, {2, 200}, {3, 300}, {4, 400}}

	s := &StandardScaler{}
	scaled, err := s.FitTransform(X)
	require.NoError(t, err)

	for j := 0; j < 2; j++ {
		sum := 0.0
		for i := range scaled {
			sum += scaled[i][j]
		}
		assert.InDelta(t, 0, sum, 1e-9, "column %d should be centered", j)
	}
}

func TestStandardScaler_SingleRow(t *testing.T) {
	s := &StandardScaler{}
	scaled, err := s.FitTransform([][]float64{{5, -3}})
	require.NoError(t, err)

	// A single row has no spread; it scales to the origin.
	assert.Equal(t, []float64{0, 0}, scaled[0])
}

func TestStandardScaler_EmptyMatrix(t *testing.T) {
	s := &StandardScaler{}
	err := s.Fit(nil)
	assert.Error(t, err)
}
