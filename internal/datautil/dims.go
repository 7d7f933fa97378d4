// Package datautil provides the data-shape handling, standardization, and
// synthetic task sampling shared by the GP trainers and their tests.
package datautil

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// HandleInputDimensionality converts raw per-task arrays into a (n, d)
// input matrix and a flat target vector.
//
// Rows of x must all have the same width; a width of zero is rejected. The
// leading dimensions of x and y must match.
func HandleInputDimensionality(x [][]float64, y []float64) (*mat.Dense, []float64, error) {
	n := len(x)
	if n == 0 {
		return nil, nil, fmt.Errorf("datautil: empty input data")
	}
	if len(y) != n {
		return nil, nil, fmt.Errorf("datautil: %d input rows but %d targets", n, len(y))
	}
	d := len(x[0])
	if d == 0 {
		return nil, nil, fmt.Errorf("datautil: input rows must have at least one feature")
	}
	xm := mat.NewDense(n, d, nil)
	for i, row := range x {
		if len(row) != d {
			return nil, nil, fmt.Errorf("datautil: input row %d has %d features, want %d", i, len(row), d)
		}
		xm.SetRow(i, row)
	}
	yv := make([]float64, n)
	copy(yv, y)
	return xm, yv, nil
}

// Columns reshapes a 1-D input slice into the (n, 1) layout the trainers
// expect.
func Columns(x []float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, v := range x {
		out[i] = []float64{v}
	}
	return out
}
