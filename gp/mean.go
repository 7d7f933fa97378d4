// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package gp

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/wubeen/meta-learning-pacoh/nn"
)

// Mean is a GP mean function. The three variants are resolved once at
// trainer construction; no tag is inspected afterwards.
type Mean interface {
	// Forward returns the mean vector for a (n, d) input batch.
	Forward(x *mat.Dense) []float64

	// Backward accumulates dL/d(mean parameters) from the per-point mean
	// gradient of the last Forward call.
	Backward(grad []float64)

	// Parameters returns the trainable parameters, if any.
	Parameters() []*nn.Parameter
}

// ZeroMean is the zero mean function.
type ZeroMean struct{}

// NewZeroMean creates a zero mean function.
func NewZeroMean() *ZeroMean { return &ZeroMean{} }

// Forward returns a zero vector.
func (z *ZeroMean) Forward(x *mat.Dense) []float64 {
	n, _ := x.Dims()
	return make([]float64, n)
}

// Backward is a no-op.
func (z *ZeroMean) Backward(grad []float64) {}

// Parameters returns nil.
func (z *ZeroMean) Parameters() []*nn.Parameter { return nil }

// ConstantMeanParamName is the parameter name of the constant mean value.
const ConstantMeanParamName = "mean.constant"

// ConstantMean is a constant mean function with a single trainable value,
// initialized to zero.
type ConstantMean struct {
	value *nn.Parameter
}

// NewConstantMean creates a constant mean function initialized to zero.
func NewConstantMean() *ConstantMean {
	return &ConstantMean{value: nn.NewParameter(ConstantMeanParamName, []int{1}, make([]float64, 1))}
}

// Value returns the current constant.
func (c *ConstantMean) Value() float64 { return c.value.Data()[0] }

// Forward returns the constant repeated per input point.
func (c *ConstantMean) Forward(x *mat.Dense) []float64 {
	n, _ := x.Dims()
	mean := make([]float64, n)
	for i := range mean {
		mean[i] = c.value.Data()[0]
	}
	return mean
}

// Backward accumulates the summed per-point gradient onto the constant.
func (c *ConstantMean) Backward(grad []float64) {
	c.value.AddGrad([]float64{floats.Sum(grad)})
}

// Parameters returns the constant value parameter.
func (c *ConstantMean) Parameters() []*nn.Parameter {
	return []*nn.Parameter{c.value}
}

// FeatureMapMean uses a neural feature map with scalar output as the mean
// function.
type FeatureMapMean struct {
	fm *nn.FeatureMap
}

// NewFeatureMapMean wraps a scalar-output feature map as a mean function.
func NewFeatureMapMean(fm *nn.FeatureMap) (*FeatureMapMean, error) {
	if fm.OutputDim() != 1 {
		return nil, fmt.Errorf("gp: mean feature map must have scalar output, got dim %d", fm.OutputDim())
	}
	return &FeatureMapMean{fm: fm}, nil
}

// FeatureMap returns the underlying network.
func (m *FeatureMapMean) FeatureMap() *nn.FeatureMap { return m.fm }

// Forward evaluates the network and flattens its (n, 1) output.
func (m *FeatureMapMean) Forward(x *mat.Dense) []float64 {
	out := m.fm.Forward(x)
	n, _ := out.Dims()
	mean := make([]float64, n)
	for i := range mean {
		mean[i] = out.At(i, 0)
	}
	return mean
}

// Backward propagates the per-point mean gradient through the network.
func (m *FeatureMapMean) Backward(grad []float64) {
	g := mat.NewDense(len(grad), 1, nil)
	for i, v := range grad {
		g.Set(i, 0, v)
	}
	m.fm.Backward(g)
}

// Parameters returns the network parameters.
func (m *FeatureMapMean) Parameters() []*nn.Parameter {
	return m.fm.Parameters()
}
