// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim implements gradient-based optimizers for the shared GP
// prior parameters and SVGD particle ensembles.
//
// This package provides:
//   - Optimizer interface: base interface for all optimizers
//   - SGD: stochastic gradient descent with optional momentum
//   - Adam: adaptive moment estimation with bias correction
//
// Optimizers consume named parameter groups, each carrying its own
// learning rate and weight-decay coefficient, and perform in-place updates
// from the gradients accumulated on the parameters.
//
// Example:
//
//	optimizer := optim.NewAdam([]optim.ParamGroup{
//	    {Params: kernelMap.Parameters(), LR: 1e-3, WeightDecay: 1e-3},
//	    {Params: meanMap.Parameters(), LR: 1e-3, WeightDecay: 1e-3},
//	}, optim.AdamConfig{})
//
//	for itr := 0; itr < numIter; itr++ {
//	    optimizer.ZeroGrad()
//	    loss := accumulateGradients()
//	    optimizer.Step()
//	}
package optim

import "github.com/wubeen/meta-learning-pacoh/nn"

// ParamGroup is a named set of parameters sharing a learning rate and
// weight-decay coefficient.
type ParamGroup struct {
	Params      []*nn.Parameter
	LR          float64
	WeightDecay float64
}

// Optimizer is the base interface for all optimization algorithms.
//
// Step applies one in-place update from the gradients currently accumulated
// on the parameters; ZeroGrad clears those gradients before the next
// accumulation pass.
type Optimizer interface {
	Step()
	ZeroGrad()
}

// zeroGroups clears gradients on every parameter of every group.
func zeroGroups(groups []ParamGroup) {
	for _, g := range groups {
		for _, p := range g.Params {
			p.ZeroGrad()
		}
	}
}
