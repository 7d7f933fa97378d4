// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dist implements the predictive distributions produced by the GP
// models and the combinators applied at the prediction boundary: an affine
// transform that undoes data normalization and an equal-weight mixture that
// merges per-particle predictives.
package dist

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"
)

// Distribution is a predictive distribution over a fixed set of query
// points.
type Distribution interface {
	// Mean returns the per-point predictive means.
	Mean() []float64

	// Std returns the per-point predictive standard deviations.
	Std() []float64

	// LogProb returns the joint log-density of the observation vector y.
	LogProb(y []float64) float64
}

// Normal is an independent normal distribution per query point.
type Normal struct {
	mean []float64
	std  []float64
}

// NewNormal creates an independent per-point normal distribution.
func NewNormal(mean, std []float64) *Normal {
	if len(mean) != len(std) {
		panic(fmt.Sprintf("dist: mean length %d, std length %d", len(mean), len(std)))
	}
	return &Normal{mean: mean, std: std}
}

// Mean returns the per-point means.
func (n *Normal) Mean() []float64 { return n.mean }

// Std returns the per-point standard deviations.
func (n *Normal) Std() []float64 { return n.std }

// LogProb returns the joint log-density, the sum of the pointwise normal
// log-densities.
func (n *Normal) LogProb(y []float64) float64 {
	if len(y) != len(n.mean) {
		panic(fmt.Sprintf("dist: observation length %d, want %d", len(y), len(n.mean)))
	}
	ll := 0.0
	for i, yi := range y {
		ll += distuv.Normal{Mu: n.mean[i], Sigma: n.std[i]}.LogProb(yi)
	}
	return ll
}
