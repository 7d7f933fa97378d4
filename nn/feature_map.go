// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// DefaultHiddenLayers is the hidden-layer configuration used when a trainer
// does not specify one.
var DefaultHiddenLayers = []int{32, 32}

// FeatureMap is a feedforward network mapping (n, inputDim) batches to
// (n, outputDim) embeddings through fully connected layers with Tanh
// between them.
//
// Two instantiations are used by the GP trainers: one producing
// feature-dim-sized embeddings that feed a stationary kernel, and one
// producing a single scalar used directly as the GP mean.
type FeatureMap struct {
	inputDim  int
	outputDim int
	layers    []Module
}

// NewFeatureMap builds a feedforward stack
//
//	inputDim -> hidden[0] -> ... -> hidden[k-1] -> outputDim
//
// with Tanh activations between the linear layers. The name prefixes all
// parameter names. A nil or empty hidden configuration falls back to
// DefaultHiddenLayers.
func NewFeatureMap(name string, inputDim int, hidden []int, outputDim int, rng *rand.Rand) *FeatureMap {
	if len(hidden) == 0 {
		hidden = DefaultHiddenLayers
	}
	sizes := make([]int, 0, len(hidden)+2)
	sizes = append(sizes, inputDim)
	sizes = append(sizes, hidden...)
	sizes = append(sizes, outputDim)

	layers := make([]Module, 0, 2*len(hidden)+1)
	for i := 0; i < len(sizes)-1; i++ {
		layers = append(layers, NewLinear(layerName(name, i), sizes[i], sizes[i+1], rng))
		if i < len(sizes)-2 {
			layers = append(layers, NewTanh())
		}
	}
	return &FeatureMap{inputDim: inputDim, outputDim: outputDim, layers: layers}
}

func layerName(prefix string, i int) string {
	return prefix + "." + strconv.Itoa(i)
}

// InputDim returns the expected input feature dimension.
func (f *FeatureMap) InputDim() int { return f.inputDim }

// OutputDim returns the embedding dimension.
func (f *FeatureMap) OutputDim() int { return f.outputDim }

// Forward maps a (n, inputDim) batch to a (n, outputDim) batch.
func (f *FeatureMap) Forward(x *mat.Dense) *mat.Dense {
	out := x
	for _, l := range f.layers {
		out = l.Forward(out)
	}
	return out
}

// Backward propagates an output gradient through the stack, accumulating
// parameter gradients, and returns the gradient with respect to the input.
func (f *FeatureMap) Backward(grad *mat.Dense) *mat.Dense {
	for i := len(f.layers) - 1; i >= 0; i-- {
		grad = f.layers[i].Backward(grad)
	}
	return grad
}

// Parameters returns all layer parameters in stack order.
func (f *FeatureMap) Parameters() []*Parameter {
	var params []*Parameter
	for _, l := range f.layers {
		params = append(params, l.Parameters()...)
	}
	return params
}
