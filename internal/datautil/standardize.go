package datautil

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// minStd avoids division by zero for constant columns.
const minStd = 1e-8

// Standardizer tracks per-column input statistics and target statistics so
// that predictions can be mapped back to the original scale.
type Standardizer struct {
	XMean []float64
	XStd  []float64
	YMean float64
	YStd  float64
}

// FitStandardizer computes mean and standard deviation of the input columns
// and targets.
func FitStandardizer(x *mat.Dense, y []float64) *Standardizer {
	n, d := x.Dims()
	s := &Standardizer{
		XMean: make([]float64, d),
		XStd:  make([]float64, d),
	}
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, x)
		mean, std := stat.MeanStdDev(col, nil)
		s.XMean[j] = mean
		s.XStd[j] = math.Max(std, minStd)
	}
	mean, std := stat.MeanStdDev(y, nil)
	s.YMean = mean
	s.YStd = math.Max(std, minStd)
	return s
}

// NormalizeX returns a standardized copy of the inputs.
func (s *Standardizer) NormalizeX(x *mat.Dense) *mat.Dense {
	n, d := x.Dims()
	out := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			out.Set(i, j, (x.At(i, j)-s.XMean[j])/s.XStd[j])
		}
	}
	return out
}

// NormalizeY returns a standardized copy of the targets.
func (s *Standardizer) NormalizeY(y []float64) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = (v - s.YMean) / s.YStd
	}
	return out
}

// Identity returns a standardizer that leaves d-dimensional data unchanged.
func Identity(d int) *Standardizer {
	s := &Standardizer{
		XMean: make([]float64, d),
		XStd:  make([]float64, d),
		YMean: 0,
		YStd:  1,
	}
	for j := range s.XStd {
		s.XStd[j] = 1
	}
	return s
}
