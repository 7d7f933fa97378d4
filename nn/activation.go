// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Tanh is a hyperbolic tangent activation module.
//
// Applies the element-wise function f(x) = tanh(x). The output is cached
// for the backward pass: f'(x) = 1 - tanh(x)².
type Tanh struct {
	lastOutput *mat.Dense
}

// NewTanh creates a new Tanh activation module.
func NewTanh() *Tanh { return &Tanh{} }

// Forward applies tanh element-wise.
func (t *Tanh) Forward(x *mat.Dense) *mat.Dense {
	n, d := x.Dims()
	out := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			out.Set(i, j, math.Tanh(x.At(i, j)))
		}
	}
	t.lastOutput = out
	return out
}

// Backward computes grad * (1 - tanh(x)²) using the cached output.
func (t *Tanh) Backward(grad *mat.Dense) *mat.Dense {
	if t.lastOutput == nil {
		panic("nn: tanh backward called before forward")
	}
	n, d := grad.Dims()
	dx := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			y := t.lastOutput.At(i, j)
			dx.Set(i, j, grad.At(i, j)*(1-y*y))
		}
	}
	return dx
}

// Parameters returns nil (Tanh has no trainable parameters).
func (t *Tanh) Parameters() []*Parameter { return nil }
