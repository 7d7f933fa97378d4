// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Linear implements a fully connected layer: y = x Wᵀ + b.
//
// The weight has shape (out, in) and the bias shape (out). Weights are
// initialized with Xavier-uniform, biases with zeros.
type Linear struct {
	in, out int
	weight  *Parameter
	bias    *Parameter

	// input cached by the last Forward call
	lastInput *mat.Dense
}

// NewLinear creates a fully connected layer with Xavier initialization.
//
// The name prefixes the parameter names, e.g. "mean_map.0" yields
// "mean_map.0.weight" and "mean_map.0.bias".
func NewLinear(name string, in, out int, rng *rand.Rand) *Linear {
	return &Linear{
		in:     in,
		out:    out,
		weight: NewParameter(name+".weight", []int{out, in}, Xavier(in, out, rng)),
		bias:   NewParameter(name+".bias", []int{out}, make([]float64, out)),
	}
}

// Forward computes y = x Wᵀ + b for a (n, in) batch.
func (l *Linear) Forward(x *mat.Dense) *mat.Dense {
	n, d := x.Dims()
	if d != l.in {
		panic(fmt.Sprintf("nn: linear %s: input has %d features, want %d", l.weight.Name(), d, l.in))
	}
	l.lastInput = x

	w := mat.NewDense(l.out, l.in, l.weight.data)
	out := mat.NewDense(n, l.out, nil)
	out.Mul(x, w.T())
	for i := 0; i < n; i++ {
		for j := 0; j < l.out; j++ {
			out.Set(i, j, out.At(i, j)+l.bias.data[j])
		}
	}
	return out
}

// Backward accumulates dW += gradᵀ x and db += Σ grad, returning grad · W.
func (l *Linear) Backward(grad *mat.Dense) *mat.Dense {
	if l.lastInput == nil {
		panic("nn: linear backward called before forward")
	}
	n, _ := grad.Dims()

	// dW = gradᵀ · x
	dw := mat.NewDense(l.out, l.in, nil)
	dw.Mul(grad.T(), l.lastInput)
	l.weight.AddGrad(dw.RawMatrix().Data)

	// db = column sums of grad
	db := make([]float64, l.out)
	for i := 0; i < n; i++ {
		for j := 0; j < l.out; j++ {
			db[j] += grad.At(i, j)
		}
	}
	l.bias.AddGrad(db)

	// dx = grad · W
	w := mat.NewDense(l.out, l.in, l.weight.data)
	dx := mat.NewDense(n, l.in, nil)
	dx.Mul(grad, w)
	return dx
}

// Parameters returns the weight and bias parameters.
func (l *Linear) Parameters() []*Parameter {
	return []*Parameter{l.weight, l.bias}
}
