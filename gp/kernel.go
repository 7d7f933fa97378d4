// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package gp

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/wubeen/meta-learning-pacoh/nn"
)

// RBFKernel is a scaled squared-exponential kernel with ARD lengthscales,
// evaluated either directly on raw inputs or on the embedding produced by a
// neural feature map:
//
//	k(x, x') = s · exp(-½ Σ_d (φ(x)_d - φ(x')_d)² / l_d²)
//
// Lengthscales and output scale are fixed hyperparameters; only the feature
// map weights (when present) are trained.
type RBFKernel struct {
	featureMap   *nn.FeatureMap // nil: stationary kernel on raw inputs
	dims         int            // dimension the kernel operates on
	lengthscales []float64
	outputScale  float64
}

// NewRBFKernel creates a stationary kernel over raw inputs of the given
// dimension, with unit lengthscales and output scale.
func NewRBFKernel(dims int) *RBFKernel {
	return &RBFKernel{dims: dims, lengthscales: unitScales(dims), outputScale: 1.0}
}

// NewNNKernel creates a stationary kernel over the embeddings of a feature
// map, with unit lengthscales and output scale over the embedding dims.
func NewNNKernel(fm *nn.FeatureMap) *RBFKernel {
	return &RBFKernel{
		featureMap:   fm,
		dims:         fm.OutputDim(),
		lengthscales: unitScales(fm.OutputDim()),
		outputScale:  1.0,
	}
}

func unitScales(n int) []float64 {
	l := make([]float64, n)
	for i := range l {
		l[i] = 1.0
	}
	return l
}

// FeatureMap returns the feature map, or nil for a raw-input kernel.
func (k *RBFKernel) FeatureMap() *nn.FeatureMap { return k.featureMap }

// InputDim returns the raw input dimension the kernel accepts.
func (k *RBFKernel) InputDim() int {
	if k.featureMap != nil {
		return k.featureMap.InputDim()
	}
	return k.dims
}

// Parameters returns the feature map parameters, or nil.
func (k *RBFKernel) Parameters() []*nn.Parameter {
	if k.featureMap == nil {
		return nil
	}
	return k.featureMap.Parameters()
}

// Features maps raw inputs to the space the kernel operates on. For a
// raw-input kernel this is the identity.
func (k *RBFKernel) Features(x *mat.Dense) *mat.Dense {
	if k.featureMap == nil {
		return x
	}
	return k.featureMap.Forward(x)
}

func (k *RBFKernel) eval(a, b []float64) float64 {
	sq := 0.0
	for d := range a {
		diff := (a[d] - b[d]) / k.lengthscales[d]
		sq += diff * diff
	}
	return k.outputScale * math.Exp(-0.5*sq)
}

// MatrixFromFeatures computes the symmetric kernel matrix over the rows of
// phi, without observation noise.
func (k *RBFKernel) MatrixFromFeatures(phi *mat.Dense) *mat.SymDense {
	n, _ := phi.Dims()
	kmat := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		ri := phi.RawRowView(i)
		kmat.SetSym(i, i, k.outputScale)
		for j := i + 1; j < n; j++ {
			kmat.SetSym(i, j, k.eval(ri, phi.RawRowView(j)))
		}
	}
	return kmat
}

// CrossFromFeatures computes the (n1, n2) cross-kernel matrix between the
// rows of phi1 and phi2.
func (k *RBFKernel) CrossFromFeatures(phi1, phi2 *mat.Dense) *mat.Dense {
	n1, _ := phi1.Dims()
	n2, _ := phi2.Dims()
	kmat := mat.NewDense(n1, n2, nil)
	for i := 0; i < n1; i++ {
		ri := phi1.RawRowView(i)
		for j := 0; j < n2; j++ {
			kmat.Set(i, j, k.eval(ri, phi2.RawRowView(j)))
		}
	}
	return kmat
}

// BackwardFeatures backpropagates a kernel-matrix gradient into the feature
// map parameters. kf must be the noiseless kernel matrix computed from phi,
// and grad the (symmetric) dL/dK.
//
// For the squared-exponential kernel,
//
//	dL/dφ_id = 2 Σ_j grad_ij · K_ij · (-(φ_id - φ_jd) / l_d²)
//
// A raw-input kernel has no trainable parameters; the call is a no-op.
func (k *RBFKernel) BackwardFeatures(phi *mat.Dense, kf *mat.SymDense, grad *mat.SymDense) {
	if k.featureMap == nil {
		return
	}
	n, d := phi.Dims()
	dphi := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		ri := phi.RawRowView(i)
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			w := 2 * grad.At(i, j) * kf.At(i, j)
			rj := phi.RawRowView(j)
			for dd := 0; dd < d; dd++ {
				l2 := k.lengthscales[dd] * k.lengthscales[dd]
				dphi.Set(i, dd, dphi.At(i, dd)-w*(ri[dd]-rj[dd])/l2)
			}
		}
	}
	k.featureMap.Backward(dphi)
}
