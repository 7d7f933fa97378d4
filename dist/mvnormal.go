// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dist

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const log2Pi = 1.8378770664093453

// MultivariateNormal is a dense multivariate normal over the query points,
// as produced by exact GP inference.
type MultivariateNormal struct {
	mean []float64
	cov  *mat.SymDense
	chol *mat.Cholesky // factorized lazily
}

// NewMultivariateNormal creates a multivariate normal with the given mean
// vector and covariance matrix.
func NewMultivariateNormal(mean []float64, cov *mat.SymDense) *MultivariateNormal {
	if n := cov.SymmetricDim(); n != len(mean) {
		panic(fmt.Sprintf("dist: mean length %d, covariance dim %d", len(mean), n))
	}
	return &MultivariateNormal{mean: mean, cov: cov}
}

// Dim returns the number of query points.
func (m *MultivariateNormal) Dim() int { return len(m.mean) }

// Mean returns the mean vector.
func (m *MultivariateNormal) Mean() []float64 { return m.mean }

// Cov returns the covariance matrix.
func (m *MultivariateNormal) Cov() *mat.SymDense { return m.cov }

// Std returns the square root of the covariance diagonal, clamped at zero.
func (m *MultivariateNormal) Std() []float64 {
	std := make([]float64, len(m.mean))
	for i := range std {
		std[i] = math.Sqrt(math.Max(m.cov.At(i, i), 0))
	}
	return std
}

// WithNoise returns a copy with noiseVar added to the covariance diagonal.
func (m *MultivariateNormal) WithNoise(noiseVar float64) *MultivariateNormal {
	n := len(m.mean)
	cov := mat.NewSymDense(n, nil)
	cov.CopySym(m.cov)
	for i := 0; i < n; i++ {
		cov.SetSym(i, i, cov.At(i, i)+noiseVar)
	}
	return NewMultivariateNormal(m.mean, cov)
}

// LogProb returns the joint log-density of y under the distribution.
//
// The covariance is factorized on first use with an escalating diagonal
// jitter; if it cannot be factorized at all, -Inf is returned.
func (m *MultivariateNormal) LogProb(y []float64) float64 {
	n := len(m.mean)
	if len(y) != n {
		panic(fmt.Sprintf("dist: observation length %d, want %d", len(y), n))
	}
	if m.chol == nil {
		chol, ok := FactorizeWithJitter(m.cov)
		if !ok {
			return math.Inf(-1)
		}
		m.chol = chol
	}

	r := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		r.SetVec(i, y[i]-m.mean[i])
	}
	alpha := mat.NewVecDense(n, nil)
	if err := m.chol.SolveVecTo(alpha, r); err != nil {
		return math.Inf(-1)
	}
	return -0.5*mat.Dot(r, alpha) - 0.5*m.chol.LogDet() - 0.5*float64(n)*log2Pi
}

// FactorizeWithJitter attempts a Cholesky factorization of cov, adding an
// escalating jitter to the diagonal when the factorization fails.
//
// Reports false if the matrix stays indefinite after the jitter ladder.
func FactorizeWithJitter(cov *mat.SymDense) (*mat.Cholesky, bool) {
	var chol mat.Cholesky
	if chol.Factorize(cov) {
		return &chol, true
	}
	n := cov.SymmetricDim()
	jittered := mat.NewSymDense(n, nil)
	for jitter := 1e-8; jitter <= 1e-2; jitter *= 10 {
		jittered.CopySym(cov)
		for i := 0; i < n; i++ {
			jittered.SetSym(i, i, jittered.At(i, i)+jitter)
		}
		if chol.Factorize(jittered) {
			return &chol, true
		}
	}
	return nil, false
}
