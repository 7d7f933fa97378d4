// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package gp

import (
	"github.com/wubeen/meta-learning-pacoh/dist"
)

// DefaultNoiseVar is the observation noise variance used when a trainer
// does not configure one.
const DefaultNoiseVar = 1e-2

// GaussianLikelihood models i.i.d. Gaussian observation noise on top of the
// latent GP function. The noise variance is a fixed hyperparameter.
type GaussianLikelihood struct {
	noiseVar float64
}

// NewGaussianLikelihood creates a Gaussian likelihood. A non-positive
// noiseVar falls back to DefaultNoiseVar.
func NewGaussianLikelihood(noiseVar float64) *GaussianLikelihood {
	if noiseVar <= 0 {
		noiseVar = DefaultNoiseVar
	}
	return &GaussianLikelihood{noiseVar: noiseVar}
}

// NoiseVar returns the observation noise variance.
func (l *GaussianLikelihood) NoiseVar() float64 { return l.noiseVar }

// Marginal maps a latent predictive distribution to the observed-target
// predictive by adding the noise variance to the covariance diagonal.
func (l *GaussianLikelihood) Marginal(latent *dist.MultivariateNormal) *dist.MultivariateNormal {
	return latent.WithNoise(l.noiseVar)
}
