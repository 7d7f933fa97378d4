// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import "fmt"

// NumParams returns the total number of scalar entries across params.
func NumParams(params []*Parameter) int {
	n := 0
	for _, p := range params {
		n += p.Size()
	}
	return n
}

// FlattenParams copies the parameter values into dst in order. A nil dst
// allocates a fresh vector of the right length.
func FlattenParams(params []*Parameter, dst []float64) []float64 {
	n := NumParams(params)
	if dst == nil {
		dst = make([]float64, n)
	}
	if len(dst) != n {
		panic(fmt.Sprintf("nn: flatten destination length %d, want %d", len(dst), n))
	}
	i := 0
	for _, p := range params {
		i += copy(dst[i:], p.data)
	}
	return dst
}

// FlattenGrads copies the accumulated parameter gradients into dst in the
// same order as FlattenParams.
func FlattenGrads(params []*Parameter, dst []float64) []float64 {
	n := NumParams(params)
	if dst == nil {
		dst = make([]float64, n)
	}
	if len(dst) != n {
		panic(fmt.Sprintf("nn: flatten destination length %d, want %d", len(dst), n))
	}
	i := 0
	for _, p := range params {
		i += copy(dst[i:], p.grad)
	}
	return dst
}

// SetFlatParams writes a flat vector back into the parameters in order.
func SetFlatParams(params []*Parameter, src []float64) {
	if len(src) != NumParams(params) {
		panic(fmt.Sprintf("nn: flat vector length %d, want %d", len(src), NumParams(params)))
	}
	i := 0
	for _, p := range params {
		i += copy(p.data, src[i:i+p.Size()])
	}
}
