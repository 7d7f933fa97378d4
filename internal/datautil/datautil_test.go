package datautil

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestHandleInputDimensionality(t *testing.T) {
	x, y, err := HandleInputDimensionality([][]float64{{1, 2}, {3, 4}}, []float64{5, 6})
	require.NoError(t, err)

	n, d := x.Dims()
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, d)
	assert.Equal(t, []float64{5, 6}, y)
}

func TestHandleInputDimensionalityErrors(t *testing.T) {
	_, _, err := HandleInputDimensionality(nil, nil)
	assert.Error(t, err)

	_, _, err = HandleInputDimensionality([][]float64{{1}}, []float64{1, 2})
	assert.Error(t, err)

	_, _, err = HandleInputDimensionality([][]float64{{1, 2}, {3}}, []float64{1, 2})
	assert.Error(t, err)

	_, _, err = HandleInputDimensionality([][]float64{{}}, []float64{1})
	assert.Error(t, err)
}

func TestColumns(t *testing.T) {
	assert.Equal(t, [][]float64{{1}, {2}}, Columns([]float64{1, 2}))
}

func TestStandardizer(t *testing.T) {
	x := mat.NewDense(4, 1, []float64{0, 2, 4, 6})
	y := []float64{1, 3, 5, 7}

	s := FitStandardizer(x, y)
	xn := s.NormalizeX(x)
	yn := s.NormalizeY(y)

	// normalized data has zero mean and unit std
	meanX, meanY := 0.0, 0.0
	for i := 0; i < 4; i++ {
		meanX += xn.At(i, 0) / 4
		meanY += yn[i] / 4
	}
	assert.InDelta(t, 0, meanX, 1e-10)
	assert.InDelta(t, 0, meanY, 1e-10)

	varY := 0.0
	for _, v := range yn {
		varY += v * v / 3 // sample variance, matching the fit
	}
	assert.InDelta(t, 1, varY, 1e-10)
}

func TestFitStandardizerPerColumn(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
	})
	y := []float64{0, 0, 0}

	s := FitStandardizer(x, y)

	require.Len(t, s.XMean, 2)
	assert.InDelta(t, 2, s.XMean[0], 1e-10)
	assert.InDelta(t, 20, s.XMean[1], 1e-10)
	assert.InDelta(t, 1, s.XStd[0], 1e-10)
	assert.InDelta(t, 10, s.XStd[1], 1e-10)
	assert.Equal(t, minStd, s.YStd) // constant targets are floored
}

func TestIdentityStandardizer(t *testing.T) {
	s := Identity(2)
	x := mat.NewDense(1, 2, []float64{3, -4})
	y := []float64{5}

	xn := s.NormalizeX(x)
	assert.Equal(t, 3.0, xn.At(0, 0))
	assert.Equal(t, -4.0, xn.At(0, 1))
	assert.Equal(t, []float64{5}, s.NormalizeY(y))
}

func TestSampleSinusoidTask(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	x, y := SampleSinusoidTask(rng, 20, SinusoidConfig{})

	require.Len(t, x, 20)
	require.Len(t, y, 20)
	for _, row := range x {
		require.Len(t, row, 1)
		assert.GreaterOrEqual(t, row[0], XLow)
		assert.LessOrEqual(t, row[0], XHigh)
	}
}
