// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package meta

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/wubeen/meta-learning-pacoh/internal/datautil"
)

func smallSVGDConfig() SVGDConfig {
	return SVGDConfig{
		NumIterFit:     5,
		NumParticles:   3,
		FeatureDim:     2,
		MeanNNLayers:   []int{4},
		KernelNNLayers: []int{4},
		RandomSeed:     1,
	}
}

func svgdTrainData(seed int64, n int) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	return datautil.SampleSinusoidTask(rng, n, datautil.SinusoidConfig{})
}

func TestSVGDConfigValidation(t *testing.T) {
	x, y := svgdTrainData(1, 8)

	cfg := smallSVGDConfig()
	cfg.Kernel = "bogus"
	_, err := NewGPRegressionLearnedSVGD(x, y, cfg)
	assert.Error(t, err)

	cfg = smallSVGDConfig()
	cfg.Optimizer = "bogus"
	_, err = NewGPRegressionLearnedSVGD(x, y, cfg)
	assert.Error(t, err)

	cfg = smallSVGDConfig()
	cfg.NumParticles = -1
	_, err = NewGPRegressionLearnedSVGD(x, y, cfg)
	assert.Error(t, err)
}

func TestSVGDFitUpdatesParticles(t *testing.T) {
	x, y := svgdTrainData(2, 10)
	s, err := NewGPRegressionLearnedSVGD(x, y, smallSVGDConfig())
	require.NoError(t, err)
	require.Equal(t, 3, s.NumParticles())

	before := s.Particles()
	require.NoError(t, s.Fit(nil, nil))
	assert.True(t, s.Fitted())
	assert.False(t, mat.EqualApprox(before, s.Particles(), 0))

	// the ensemble is never resized by fitting
	assert.Equal(t, 3, s.NumParticles())
	p, d := s.Particles().Dims()
	br, bd := before.Dims()
	assert.Equal(t, br, p)
	assert.Equal(t, bd, d)
}

func TestSVGDPredictiveMixture(t *testing.T) {
	x, y := svgdTrainData(3, 10)
	s, err := NewGPRegressionLearnedSVGD(x, y, smallSVGDConfig())
	require.NoError(t, err)
	require.NoError(t, s.Fit(nil, nil))

	query := [][]float64{{-1}, {0}, {2}}
	pred, err := s.PredictDist(query)
	require.NoError(t, err)
	assert.Equal(t, s.NumParticles(), pred.NumComponents())

	mean, std, err := s.Predict(query)
	require.NoError(t, err)
	require.Len(t, mean, 3)
	require.Len(t, std, 3)
	for i := range std {
		assert.Positive(t, std[i])
		assert.False(t, math.IsNaN(mean[i]))
	}

	// the mixture mean is the arithmetic mean of the component means
	for i := range mean {
		sum := 0.0
		for _, c := range pred.Components() {
			sum += c.Mean()[i]
		}
		assert.InDelta(t, sum/float64(pred.NumComponents()), mean[i], 1e-10)
	}
}

func TestSVGDPredictRejectsDimensionMismatch(t *testing.T) {
	x, y := svgdTrainData(4, 8)
	s, err := NewGPRegressionLearnedSVGD(x, y, smallSVGDConfig())
	require.NoError(t, err)

	_, _, err = s.Predict([][]float64{{0, 0}})
	assert.Error(t, err)
}

func TestSVGDNormalizationRoundTrip(t *testing.T) {
	// targets far from zero: without denormalization the near-prior
	// predictions would sit around zero
	rng := rand.New(rand.NewSource(5))
	n := 10
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		xi := rng.Float64()*8 - 4
		x[i] = []float64{xi}
		y[i] = 100 + math.Sin(xi)
	}

	cfg := smallSVGDConfig()
	cfg.NormalizeData = true
	cfg.NumIterFit = 3
	s, err := NewGPRegressionLearnedSVGD(x, y, cfg)
	require.NoError(t, err)
	require.NoError(t, s.Fit(nil, nil))

	mean, _, err := s.Predict(x)
	require.NoError(t, err)
	for _, m := range mean {
		assert.InDelta(t, 100, m, 5)
	}
}

func TestSVGDEval(t *testing.T) {
	x, y := svgdTrainData(6, 12)
	s, err := NewGPRegressionLearnedSVGD(x[:8], y[:8], smallSVGDConfig())
	require.NoError(t, err)
	require.NoError(t, s.Fit(nil, nil))

	ll, rmse, err := s.Eval(x[8:], y[8:])
	require.NoError(t, err)
	assert.False(t, math.IsNaN(ll))
	assert.GreaterOrEqual(t, rmse, 0.0)

	_, _, err = s.Eval(x[8:], y[8:9])
	assert.Error(t, err)
}

func TestSVGDIMQAndSGDVariants(t *testing.T) {
	x, y := svgdTrainData(7, 8)

	cfg := smallSVGDConfig()
	cfg.Kernel = KernelIMQ
	cfg.Optimizer = OptimizerSGD
	cfg.LR = 1e-3
	cfg.NumIterFit = 2
	s, err := NewGPRegressionLearnedSVGD(x, y, cfg)
	require.NoError(t, err)
	require.NoError(t, s.Fit(nil, nil))
	assert.True(t, s.Fitted())
}
