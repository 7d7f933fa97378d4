// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dist

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestNormalLogProbIsSum(t *testing.T) {
	n := NewNormal([]float64{0, 1}, []float64{1, 2})
	y := []float64{0.5, -1}

	want := distuv.Normal{Mu: 0, Sigma: 1}.LogProb(0.5) +
		distuv.Normal{Mu: 1, Sigma: 2}.LogProb(-1)
	assert.InDelta(t, want, n.LogProb(y), 1e-12)
}

func TestMultivariateNormalDiagonalMatchesUnivariate(t *testing.T) {
	mean := []float64{1, -2}
	cov := mat.NewSymDense(2, []float64{
		4, 0,
		0, 9,
	})
	m := NewMultivariateNormal(mean, cov)

	y := []float64{2, 0}
	want := distuv.Normal{Mu: 1, Sigma: 2}.LogProb(2) +
		distuv.Normal{Mu: -2, Sigma: 3}.LogProb(0)
	assert.InDelta(t, want, m.LogProb(y), 1e-10)

	std := m.Std()
	assert.InDelta(t, 2, std[0], 1e-12)
	assert.InDelta(t, 3, std[1], 1e-12)
}

func TestMultivariateNormalWithNoise(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{
		1, 0.5,
		0.5, 1,
	})
	m := NewMultivariateNormal([]float64{0, 0}, cov)
	noisy := m.WithNoise(0.25)

	assert.InDelta(t, 1.25, noisy.Cov().At(0, 0), 1e-12)
	assert.InDelta(t, 0.5, noisy.Cov().At(0, 1), 1e-12)
	// original is untouched
	assert.InDelta(t, 1.0, m.Cov().At(0, 0), 1e-12)
}

func TestFactorizeWithJitterRecoversSemiDefinite(t *testing.T) {
	// rank-deficient matrix, plain Cholesky fails
	cov := mat.NewSymDense(2, []float64{
		1, 1,
		1, 1,
	})
	_, ok := FactorizeWithJitter(cov)
	assert.True(t, ok)
}

func TestAffineTransformed(t *testing.T) {
	base := NewNormal([]float64{0, 1}, []float64{1, 1})
	a := NewAffineTransformed(base, 2.0, 3.0)

	mean := a.Mean()
	assert.InDelta(t, 2, mean[0], 1e-12) // 0*3+2
	assert.InDelta(t, 5, mean[1], 1e-12) // 1*3+2
	std := a.Std()
	assert.InDelta(t, 3, std[0], 1e-12)
	assert.InDelta(t, 3, std[1], 1e-12)

	// change of variables: log p(y) = log p_base((y-shift)/scale) - n log scale
	y := []float64{2.6, 4.1}
	want := base.LogProb([]float64{0.2, 0.7}) - 2*math.Log(3.0)
	assert.InDelta(t, want, a.LogProb(y), 1e-10)
}

func TestMixtureOfIdenticalComponents(t *testing.T) {
	c := NewNormal([]float64{1, 2}, []float64{0.5, 0.5})
	mix := NewEqualWeightedMixture([]Distribution{c, c, c})
	require.Equal(t, 3, mix.NumComponents())

	y := []float64{1.1, 1.9}
	assert.InDelta(t, c.LogProb(y), mix.LogProb(y), 1e-10)
	assert.InDelta(t, c.Mean()[0], mix.Mean()[0], 1e-12)
	assert.InDelta(t, c.Std()[1], mix.Std()[1], 1e-12)
}

func TestMixtureMoments(t *testing.T) {
	a := NewNormal([]float64{0}, []float64{1})
	b := NewNormal([]float64{2}, []float64{1})
	mix := NewEqualWeightedMixture([]Distribution{a, b})

	assert.InDelta(t, 1, mix.Mean()[0], 1e-12)
	// Var = E[var] + E[mean²] - E[mean]² = 1 + 2 - 1 = 2
	assert.InDelta(t, math.Sqrt(2), mix.Std()[0], 1e-12)
}

func TestMixtureLogProbAveragesDensities(t *testing.T) {
	a := NewNormal([]float64{0}, []float64{1})
	b := NewNormal([]float64{3}, []float64{2})
	mix := NewEqualWeightedMixture([]Distribution{a, b})

	y := []float64{0.5}
	want := math.Log(0.5*math.Exp(a.LogProb(y)) + 0.5*math.Exp(b.LogProb(y)))
	assert.InDelta(t, want, mix.LogProb(y), 1e-10)
}
