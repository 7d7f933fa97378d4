// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package gp

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/wubeen/meta-learning-pacoh/nn"
)

func TestKernelMatrixBasics(t *testing.T) {
	k := NewRBFKernel(2)
	x := mat.NewDense(3, 2, []float64{
		0, 0,
		1, 0,
		3, 4,
	})
	phi := k.Features(x)
	kmat := k.MatrixFromFeatures(phi)

	// unit diagonal, symmetric, decaying with distance
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 1.0, kmat.At(i, i), 1e-12)
	}
	assert.InDelta(t, kmat.At(0, 1), kmat.At(1, 0), 1e-12)
	assert.InDelta(t, math.Exp(-0.5), kmat.At(0, 1), 1e-12)
	assert.Less(t, kmat.At(0, 2), kmat.At(0, 1))
}

func TestMarginalLogLikelihoodSinglePoint(t *testing.T) {
	x := mat.NewDense(1, 1, []float64{0})
	y := []float64{1.5}
	lik := NewGaussianLikelihood(0.1)

	model, err := NewExactGP(x, y, lik, NewZeroMean(), NewRBFKernel(1))
	require.NoError(t, err)

	mll, err := model.MarginalLogLikelihood()
	require.NoError(t, err)

	ky := 1.0 + 0.1
	want := -0.5*y[0]*y[0]/ky - 0.5*math.Log(ky) - 0.5*math.Log(2*math.Pi)
	assert.InDelta(t, want, mll, 1e-10)
}

func newTestModel(t *testing.T, rng *rand.Rand, n int) (*ExactGP, []*nn.Parameter) {
	t.Helper()
	kernelMap := nn.NewFeatureMap("k", 1, []int{4}, 2, rng)
	meanMap := nn.NewFeatureMap("m", 1, []int{3}, 1, rng)
	mean, err := NewFeatureMapMean(meanMap)
	require.NoError(t, err)

	x := mat.NewDense(n, 1, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		xi := rng.NormFloat64()
		x.Set(i, 0, xi)
		y[i] = math.Sin(xi) + 0.1*rng.NormFloat64()
	}

	model, err := NewExactGP(x, y, NewGaussianLikelihood(0.1), mean, NewNNKernel(kernelMap))
	require.NoError(t, err)
	return model, model.Parameters()
}

func TestMarginalLogLikelihoodGradFiniteDifference(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	model, params := newTestModel(t, rng, 6)

	for _, p := range params {
		p.ZeroGrad()
	}
	_, err := model.MarginalLogLikelihoodGrad(1.0)
	require.NoError(t, err)

	const eps = 1e-5
	for _, p := range params {
		data, grad := p.Data(), p.Grad()
		for k := 0; k < p.Size(); k += 5 { // spot-check entries
			orig := data[k]
			data[k] = orig + eps
			plus, err := model.MarginalLogLikelihood()
			require.NoError(t, err)
			data[k] = orig - eps
			minus, err := model.MarginalLogLikelihood()
			require.NoError(t, err)
			data[k] = orig

			numeric := (plus - minus) / (2 * eps)
			tol := 1e-4 * math.Max(1, math.Abs(numeric))
			assert.InDeltaf(t, numeric, grad[k], tol,
				"param %s entry %d", p.Name(), k)
		}
	}
}

func TestMarginalLogLikelihoodGradScale(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	model, params := newTestModel(t, rng, 5)

	for _, p := range params {
		p.ZeroGrad()
	}
	_, err := model.MarginalLogLikelihoodGrad(1.0)
	require.NoError(t, err)
	full := nn.FlattenGrads(params, nil)

	for _, p := range params {
		p.ZeroGrad()
	}
	_, err = model.MarginalLogLikelihoodGrad(-0.5)
	require.NoError(t, err)
	scaled := nn.FlattenGrads(params, nil)

	for i := range full {
		assert.InDelta(t, -0.5*full[i], scaled[i], 1e-10)
	}
}

func TestPriorForward(t *testing.T) {
	x := mat.NewDense(2, 1, []float64{0, 10})
	model, err := NewExactGP(x, []float64{0, 0}, NewGaussianLikelihood(0.1), NewZeroMean(), NewRBFKernel(1))
	require.NoError(t, err)
	require.Equal(t, StatePrior, model.State())

	prior, err := model.Forward(x)
	require.NoError(t, err)
	assert.InDelta(t, 0, prior.Mean()[0], 1e-12)
	assert.InDelta(t, 1.0, prior.Cov().At(0, 0), 1e-12)
	// distant points are nearly independent
	assert.InDelta(t, 0, prior.Cov().At(0, 1), 1e-10)
}

func TestPosteriorInterpolatesTrainingData(t *testing.T) {
	x := mat.NewDense(5, 1, []float64{-2, -1, 0, 1, 2})
	y := []float64{0.5, -0.3, 0.0, 0.8, -0.1}

	model, err := NewExactGP(x, y, NewGaussianLikelihood(1e-6), NewZeroMean(), NewRBFKernel(1))
	require.NoError(t, err)
	model.SetState(StatePosterior)

	post, err := model.Forward(x)
	require.NoError(t, err)
	for i, yi := range y {
		assert.InDelta(t, yi, post.Mean()[i], 1e-3)
		assert.Less(t, post.Cov().At(i, i), 1e-3)
	}
}

func TestPosteriorRevertsToPriorFarAway(t *testing.T) {
	x := mat.NewDense(3, 1, []float64{-1, 0, 1})
	y := []float64{1, 1, 1}

	model, err := NewExactGP(x, y, NewGaussianLikelihood(0.01), NewZeroMean(), NewRBFKernel(1))
	require.NoError(t, err)
	model.SetState(StatePosterior)

	far := mat.NewDense(1, 1, []float64{100})
	post, err := model.Forward(far)
	require.NoError(t, err)
	assert.InDelta(t, 0, post.Mean()[0], 1e-6)
	assert.InDelta(t, 1.0, post.Cov().At(0, 0), 1e-6)
}

func TestConstantMeanLearnsOffsetGradient(t *testing.T) {
	x := mat.NewDense(3, 1, []float64{-1, 0, 1})
	y := []float64{5, 5, 5}
	mean := NewConstantMean()

	model, err := NewExactGP(x, y, NewGaussianLikelihood(0.1), mean, NewRBFKernel(1))
	require.NoError(t, err)

	_, err = model.MarginalLogLikelihoodGrad(1.0)
	require.NoError(t, err)
	// targets above the constant: MLL increases with the constant
	assert.Positive(t, mean.Parameters()[0].Grad()[0])
}

func TestDimensionValidation(t *testing.T) {
	x := mat.NewDense(2, 2, []float64{0, 0, 1, 1})

	_, err := NewExactGP(x, []float64{0, 0}, NewGaussianLikelihood(0.1), NewZeroMean(), NewRBFKernel(3))
	assert.Error(t, err)

	_, err = NewExactGP(x, []float64{0}, NewGaussianLikelihood(0.1), NewZeroMean(), NewRBFKernel(2))
	assert.Error(t, err)

	model, err := NewExactGP(x, []float64{0, 0}, NewGaussianLikelihood(0.1), NewZeroMean(), NewRBFKernel(2))
	require.NoError(t, err)
	_, err = model.Forward(mat.NewDense(1, 3, []float64{0, 0, 0}))
	assert.Error(t, err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "prior", StatePrior.String())
	assert.Equal(t, "posterior", StatePosterior.String())
}
