// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package svgd

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// BandwidthFloor is the smallest bandwidth the median heuristic may return.
// It guards against a zero median when particles coincide.
const BandwidthFloor = 1e-5

// Kernel is a positive-definite kernel over particle vectors.
//
// Eval returns the pairwise kernel matrix K with K[i,j] = k(z_i, z_j) and
// the repulsion matrix grad with grad[i] = Σ_j ∇_{z_j} k(z_j, z_i).
type Kernel interface {
	Eval(particles *mat.Dense) (k *mat.Dense, grad *mat.Dense)
}

// RBFKernel is the squared-exponential Stein kernel
//
//	k(z, z') = exp(-‖z - z'‖² / h)
//
// with bandwidth h either fixed or chosen by the median heuristic.
type RBFKernel struct {
	// Bandwidth is the fixed bandwidth h. Non-positive selects the median
	// heuristic per Eval call.
	Bandwidth float64
}

// Eval computes the kernel matrix and repulsion term for the particles.
func (k *RBFKernel) Eval(particles *mat.Dense) (*mat.Dense, *mat.Dense) {
	p, d := particles.Dims()
	sq := pairwiseSquaredDists(particles)
	h := k.Bandwidth
	if h <= 0 {
		h = MedianHeuristic(sq)
	}

	kmat := mat.NewDense(p, p, nil)
	for i := 0; i < p; i++ {
		for j := 0; j < p; j++ {
			kmat.Set(i, j, math.Exp(-sq.At(i, j)/h))
		}
	}

	// grad[i] = Σ_j ∇_{z_j} k(z_j, z_i) = (2/h) Σ_j (z_i - z_j) K[i,j]
	grad := mat.NewDense(p, d, nil)
	for i := 0; i < p; i++ {
		zi := particles.RawRowView(i)
		for j := 0; j < p; j++ {
			w := 2 * kmat.At(i, j) / h
			zj := particles.RawRowView(j)
			for dd := 0; dd < d; dd++ {
				grad.Set(i, dd, grad.At(i, dd)+w*(zi[dd]-zj[dd]))
			}
		}
	}
	return kmat, grad
}

// IMQKernel is the inverse-multiquadric Stein kernel
//
//	k(z, z') = (1 + ‖z - z'‖² / h)^(-1/2)
//
// with the same bandwidth policy as RBFKernel.
type IMQKernel struct {
	// Bandwidth is the fixed bandwidth h. Non-positive selects the median
	// heuristic per Eval call.
	Bandwidth float64
}

// Eval computes the kernel matrix and repulsion term for the particles.
func (k *IMQKernel) Eval(particles *mat.Dense) (*mat.Dense, *mat.Dense) {
	p, d := particles.Dims()
	sq := pairwiseSquaredDists(particles)
	h := k.Bandwidth
	if h <= 0 {
		h = MedianHeuristic(sq)
	}

	const beta = -0.5
	kmat := mat.NewDense(p, p, nil)
	base := mat.NewDense(p, p, nil)
	for i := 0; i < p; i++ {
		for j := 0; j < p; j++ {
			b := 1 + sq.At(i, j)/h
			base.Set(i, j, b)
			kmat.Set(i, j, math.Pow(b, beta))
		}
	}

	// ∇_{z_j} k(z_j, z_i) = β (1 + ‖z_j-z_i‖²/h)^(β-1) · 2(z_j - z_i)/h
	grad := mat.NewDense(p, d, nil)
	for i := 0; i < p; i++ {
		zi := particles.RawRowView(i)
		for j := 0; j < p; j++ {
			w := beta * math.Pow(base.At(i, j), beta-1) * 2 / h
			zj := particles.RawRowView(j)
			for dd := 0; dd < d; dd++ {
				grad.Set(i, dd, grad.At(i, dd)+w*(zj[dd]-zi[dd]))
			}
		}
	}
	return kmat, grad
}

// MedianHeuristic returns the SVGD bandwidth
//
//	h = median(pairwise squared distances) / log(P)
//
// clamped below at BandwidthFloor. The heuristic is a deterministic
// function of the pairwise distances.
func MedianHeuristic(sq *mat.Dense) float64 {
	p, _ := sq.Dims()
	if p < 2 {
		return 1.0
	}
	dists := make([]float64, 0, p*(p-1)/2)
	for i := 0; i < p; i++ {
		for j := i + 1; j < p; j++ {
			dists = append(dists, sq.At(i, j))
		}
	}
	sort.Float64s(dists)
	var med float64
	if n := len(dists); n%2 == 1 {
		med = dists[n/2]
	} else {
		med = 0.5 * (dists[n/2-1] + dists[n/2])
	}

	logP := math.Log(float64(p))
	h := med / logP
	if h < BandwidthFloor || math.IsNaN(h) {
		return BandwidthFloor
	}
	return h
}

func pairwiseSquaredDists(particles *mat.Dense) *mat.Dense {
	p, d := particles.Dims()
	sq := mat.NewDense(p, p, nil)
	for i := 0; i < p; i++ {
		zi := particles.RawRowView(i)
		for j := i + 1; j < p; j++ {
			zj := particles.RawRowView(j)
			s := 0.0
			for dd := 0; dd < d; dd++ {
				diff := zi[dd] - zj[dd]
				s += diff * diff
			}
			sq.Set(i, j, s)
			sq.Set(j, i, s)
		}
	}
	return sq
}
