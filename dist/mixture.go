// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dist

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// EqualWeightedMixture merges several predictive distributions into one
// mixture with identical component weights. It is used to combine the
// per-particle predictives of an SVGD ensemble.
type EqualWeightedMixture struct {
	components []Distribution
}

// NewEqualWeightedMixture creates an equal-weight mixture of components.
func NewEqualWeightedMixture(components []Distribution) *EqualWeightedMixture {
	if len(components) == 0 {
		panic("dist: mixture needs at least one component")
	}
	return &EqualWeightedMixture{components: components}
}

// NumComponents returns the number of mixture components.
func (e *EqualWeightedMixture) NumComponents() int { return len(e.components) }

// Components returns the mixture components.
func (e *EqualWeightedMixture) Components() []Distribution { return e.components }

// Mean returns the arithmetic mean of the component means per point.
func (e *EqualWeightedMixture) Mean() []float64 {
	p := float64(len(e.components))
	mean := make([]float64, len(e.components[0].Mean()))
	for _, c := range e.components {
		for i, m := range c.Mean() {
			mean[i] += m / p
		}
	}
	return mean
}

// Std returns the mixture standard deviation per point, via the
// mixture-of-Gaussians variance identity
//
//	Var = E[var_c] + E[mean_c²] - E[mean_c]²
func (e *EqualWeightedMixture) Std() []float64 {
	p := float64(len(e.components))
	n := len(e.components[0].Mean())
	avgVar := make([]float64, n)
	avgMean := make([]float64, n)
	avgMeanSq := make([]float64, n)
	for _, c := range e.components {
		mean, std := c.Mean(), c.Std()
		for i := 0; i < n; i++ {
			avgVar[i] += std[i] * std[i] / p
			avgMean[i] += mean[i] / p
			avgMeanSq[i] += mean[i] * mean[i] / p
		}
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = math.Sqrt(math.Max(avgVar[i]+avgMeanSq[i]-avgMean[i]*avgMean[i], 0))
	}
	return out
}

// LogProb returns the joint mixture log-density,
// logsumexp over the component joint log-densities minus log(P).
func (e *EqualWeightedMixture) LogProb(y []float64) float64 {
	lps := make([]float64, len(e.components))
	for i, c := range e.components {
		lps[i] = c.LogProb(y)
	}
	maxLp := floats.Max(lps)
	if math.IsInf(maxLp, -1) {
		return maxLp
	}
	sum := 0.0
	for _, lp := range lps {
		sum += math.Exp(lp - maxLp)
	}
	return maxLp + math.Log(sum) - math.Log(float64(len(e.components)))
}
