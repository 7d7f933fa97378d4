// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package svgd

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/wubeen/meta-learning-pacoh/nn"
	"github.com/wubeen/meta-learning-pacoh/optim"
)

// standardNormalTarget scores particles under log p(z) = -‖z‖²/2.
type standardNormalTarget struct{}

func (standardNormalTarget) LogProbGrad(particles *mat.Dense, x *mat.Dense, y []float64) (*mat.Dense, error) {
	p, d := particles.Dims()
	score := mat.NewDense(p, d, nil)
	score.Scale(-1, particles)
	return score, nil
}

// zeroTarget has a flat log-density, leaving only the repulsion term.
type zeroTarget struct{}

func (zeroTarget) LogProbGrad(particles *mat.Dense, x *mat.Dense, y []float64) (*mat.Dense, error) {
	p, d := particles.Dims()
	return mat.NewDense(p, d, nil), nil
}

func TestMedianHeuristic(t *testing.T) {
	z := mat.NewDense(3, 1, []float64{0, 1, 2})
	sq := pairwiseSquaredDists(z)

	// pairwise squared distances {1, 1, 4}, median 1
	want := 1.0 / math.Log(3)
	assert.InDelta(t, want, MedianHeuristic(sq), 1e-12)

	// deterministic
	assert.Equal(t, MedianHeuristic(sq), MedianHeuristic(sq))
}

func TestMedianHeuristicFloor(t *testing.T) {
	z := mat.NewDense(3, 2, nil) // coincident particles
	sq := pairwiseSquaredDists(z)
	assert.Equal(t, BandwidthFloor, MedianHeuristic(sq))
}

func TestMedianHeuristicSingleParticle(t *testing.T) {
	sq := mat.NewDense(1, 1, nil)
	assert.Equal(t, 1.0, MedianHeuristic(sq))
}

func TestRBFKernelMatrix(t *testing.T) {
	z := mat.NewDense(2, 1, []float64{0, 1})
	k := &RBFKernel{Bandwidth: 2.0}
	kmat, _ := k.Eval(z)

	assert.InDelta(t, 1.0, kmat.At(0, 0), 1e-12)
	assert.InDelta(t, math.Exp(-0.5), kmat.At(0, 1), 1e-12)
	assert.InDelta(t, kmat.At(0, 1), kmat.At(1, 0), 1e-12)
}

func TestIMQKernelMatrix(t *testing.T) {
	z := mat.NewDense(2, 1, []float64{0, 2})
	k := &IMQKernel{Bandwidth: 1.0}
	kmat, _ := k.Eval(z)

	assert.InDelta(t, 1.0, kmat.At(0, 0), 1e-12)
	assert.InDelta(t, 1/math.Sqrt(5), kmat.At(0, 1), 1e-12)
}

func TestSingleParticleStepIsPlainGradientAscent(t *testing.T) {
	particles := nn.NewParameter("particles", []int{1, 2}, []float64{3, -4})
	opt := optim.NewSGD([]optim.ParamGroup{{Params: []*nn.Parameter{particles}, LR: 0.1}}, optim.SGDConfig{})

	s, err := New(standardNormalTarget{}, &RBFKernel{Bandwidth: 1.0}, particles, opt)
	require.NoError(t, err)
	require.NoError(t, s.Step(nil, nil))

	// with one particle the repulsion vanishes and φ = score = -z,
	// so SGD yields z ← z - lr·z
	assert.InDelta(t, 2.7, particles.Data()[0], 1e-12)
	assert.InDelta(t, -3.6, particles.Data()[1], 1e-12)
}

func TestRepulsionPushesParticlesApart(t *testing.T) {
	particles := nn.NewParameter("particles", []int{2, 1}, []float64{0, 1})
	opt := optim.NewSGD([]optim.ParamGroup{{Params: []*nn.Parameter{particles}, LR: 0.1}}, optim.SGDConfig{})

	s, err := New(zeroTarget{}, &RBFKernel{Bandwidth: 1.0}, particles, opt)
	require.NoError(t, err)
	require.NoError(t, s.Step(nil, nil))

	gap := particles.Data()[1] - particles.Data()[0]
	assert.Greater(t, gap, 1.0)
}

func TestParticlesViewAliasesParameter(t *testing.T) {
	particles := nn.NewParameter("particles", []int{2, 2}, []float64{1, 2, 3, 4})
	opt := optim.NewSGD([]optim.ParamGroup{{Params: []*nn.Parameter{particles}, LR: 0.1}}, optim.SGDConfig{})

	s, err := New(standardNormalTarget{}, &RBFKernel{Bandwidth: 1.0}, particles, opt)
	require.NoError(t, err)

	view := s.Particles()
	particles.Data()[0] = 9
	assert.Equal(t, 9.0, view.At(0, 0))
}

func TestNewRejectsFlatParameter(t *testing.T) {
	flat := nn.NewParameter("flat", []int{4}, []float64{1, 2, 3, 4})
	_, err := New(standardNormalTarget{}, &RBFKernel{}, flat, nil)
	assert.Error(t, err)
}

func TestEnsembleContractsTowardTargetMode(t *testing.T) {
	particles := nn.NewParameter("particles", []int{4, 1}, []float64{-3, -1, 2, 4})
	opt := optim.NewSGD([]optim.ParamGroup{{Params: []*nn.Parameter{particles}, LR: 0.05}}, optim.SGDConfig{})

	s, err := New(standardNormalTarget{}, &RBFKernel{}, particles, opt)
	require.NoError(t, err)

	spread := func() float64 {
		total := 0.0
		for _, v := range particles.Data() {
			total += v * v
		}
		return total
	}
	before := spread()
	for i := 0; i < 50; i++ {
		require.NoError(t, s.Step(nil, nil))
	}
	assert.Less(t, spread(), before)
}
