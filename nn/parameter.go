// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import "fmt"

// Parameter represents a trainable parameter with gradient accumulation.
//
// Parameters are owned by exactly one module but may be referenced by any
// number of GP models built on top of that module. Gradients accumulate
// across calls to Backward until ZeroGrad; the optimizer is the only writer
// of the parameter data.
type Parameter struct {
	name  string
	shape []int
	data  []float64
	grad  []float64
}

// NewParameter creates a trainable parameter backed by data.
//
// The data slice is used directly, not copied, so callers holding the slice
// observe optimizer updates.
func NewParameter(name string, shape []int, data []float64) *Parameter {
	n := 1
	for _, s := range shape {
		n *= s
	}
	if n != len(data) {
		panic(fmt.Sprintf("nn: parameter %s: shape %v does not match data length %d", name, shape, len(data)))
	}
	return &Parameter{
		name:  name,
		shape: shape,
		data:  data,
		grad:  make([]float64, n),
	}
}

// Name returns the parameter name (e.g. "kernel_map.0.weight").
func (p *Parameter) Name() string { return p.name }

// Shape returns the parameter shape.
func (p *Parameter) Shape() []int { return p.shape }

// Size returns the number of scalar entries.
func (p *Parameter) Size() int { return len(p.data) }

// Data returns the parameter values. Mutations are visible to every model
// referencing this parameter.
func (p *Parameter) Data() []float64 { return p.data }

// Grad returns the accumulated gradient.
func (p *Parameter) Grad() []float64 { return p.grad }

// AddGrad accumulates g into the gradient buffer.
func (p *Parameter) AddGrad(g []float64) {
	if len(g) != len(p.grad) {
		panic(fmt.Sprintf("nn: parameter %s: gradient length %d, want %d", p.name, len(g), len(p.grad)))
	}
	for i, v := range g {
		p.grad[i] += v
	}
}

// ZeroGrad clears the accumulated gradient in place.
func (p *Parameter) ZeroGrad() {
	for i := range p.grad {
		p.grad[i] = 0
	}
}
