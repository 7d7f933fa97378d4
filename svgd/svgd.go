// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package svgd implements Stein Variational Gradient Descent, a
// deterministic particle-based variational inference procedure.
//
// Each step combines every particle's own log-posterior gradient with a
// kernel-weighted smoothing and repulsion term from the other particles:
//
//	φ(z_i) = (1/P) Σ_j [ k(z_j, z_i) ∇ log p(z_j | data) + ∇_{z_j} k(z_j, z_i) ]
//
// The engine negates φ into the particle parameter's gradient and delegates
// the numeric update to an external optimizer, so any minimizer over the
// particle tensor can be plugged in.
//
// Reference: "Stein Variational Gradient Descent: A General Purpose
// Bayesian Inference Algorithm" (Liu & Wang, 2016)
package svgd

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/wubeen/meta-learning-pacoh/nn"
	"github.com/wubeen/meta-learning-pacoh/optim"
)

// Target is a distribution over particle vectors exposing a
// log-probability-gradient oracle.
type Target interface {
	// LogProbGrad returns the (P, D) matrix of per-particle gradients
	// ∇_z log p(z | x, y) for the current particle matrix.
	LogProbGrad(particles *mat.Dense, x *mat.Dense, y []float64) (*mat.Dense, error)
}

// SVGD runs Stein Variational Gradient Descent over a fixed-size particle
// ensemble bound to an external optimizer.
type SVGD struct {
	target    Target
	kernel    Kernel
	particles *nn.Parameter // flattened (P, D) ensemble, shared with the optimizer
	opt       optim.Optimizer
	numP      int
	dim       int
}

// New creates an SVGD engine over a particle parameter of shape (P, D).
// The optimizer must be bound to the same parameter.
func New(target Target, kernel Kernel, particles *nn.Parameter, opt optim.Optimizer) (*SVGD, error) {
	shape := particles.Shape()
	if len(shape) != 2 {
		return nil, fmt.Errorf("svgd: particle parameter must be 2-dimensional, got shape %v", shape)
	}
	return &SVGD{
		target:    target,
		kernel:    kernel,
		particles: particles,
		opt:       opt,
		numP:      shape[0],
		dim:       shape[1],
	}, nil
}

// NumParticles returns the fixed ensemble size.
func (s *SVGD) NumParticles() int { return s.numP }

// Particles returns a matrix view of the ensemble backed by the parameter
// data. Rows are particles.
func (s *SVGD) Particles() *mat.Dense {
	return mat.NewDense(s.numP, s.dim, s.particles.Data())
}

// Step performs one SVGD update on the ensemble given data (x, y):
// score each particle, evaluate the kernel and its repulsion term, form the
// update direction, and delegate the numeric step to the optimizer.
func (s *SVGD) Step(x *mat.Dense, y []float64) error {
	z := s.Particles()

	score, err := s.target.LogProbGrad(z, x, y)
	if err != nil {
		return err
	}
	kmat, kgrad := s.kernel.Eval(z)

	// φ = (K·score + kgrad) / P
	var phi mat.Dense
	phi.Mul(kmat, score)
	phi.Add(&phi, kgrad)
	phi.Scale(1/float64(s.numP), &phi)

	// descent direction for the external minimizer
	s.opt.ZeroGrad()
	grad := make([]float64, s.numP*s.dim)
	for i := 0; i < s.numP; i++ {
		for j := 0; j < s.dim; j++ {
			grad[i*s.dim+j] = -phi.At(i, j)
		}
	}
	s.particles.AddGrad(grad)
	s.opt.Step()
	return nil
}
