// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dist

import "math"

// AffineTransformed wraps a distribution over normalized targets and maps
// it back to the original target scale: z -> z*scale + shift.
//
// It is used at the prediction boundary to undo target normalization.
type AffineTransformed struct {
	base  Distribution
	shift float64
	scale float64
}

// NewAffineTransformed wraps base with the de-normalization transform
// y = z*scale + shift. The scale must be positive.
func NewAffineTransformed(base Distribution, shift, scale float64) *AffineTransformed {
	if scale <= 0 {
		panic("dist: affine scale must be positive")
	}
	return &AffineTransformed{base: base, shift: shift, scale: scale}
}

// Mean returns base mean * scale + shift per point.
func (a *AffineTransformed) Mean() []float64 {
	base := a.base.Mean()
	mean := make([]float64, len(base))
	for i, m := range base {
		mean[i] = m*a.scale + a.shift
	}
	return mean
}

// Std returns base std * scale per point.
func (a *AffineTransformed) Std() []float64 {
	base := a.base.Std()
	std := make([]float64, len(base))
	for i, s := range base {
		std[i] = s * a.scale
	}
	return std
}

// LogProb evaluates the base density at the normalized observation with the
// change-of-variables correction -n*log(scale).
func (a *AffineTransformed) LogProb(y []float64) float64 {
	z := make([]float64, len(y))
	for i, yi := range y {
		z[i] = (yi - a.shift) / a.scale
	}
	return a.base.LogProb(z) - float64(len(y))*math.Log(a.scale)
}
