// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"math"

	"github.com/wubeen/meta-learning-pacoh/nn"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule per parameter entry:
//
//	g_t = grad + weight_decay * param
//	m_t = beta1 * m_{t-1} + (1-beta1) * g_t
//	v_t = beta2 * v_{t-1} + (1-beta2) * g_t²
//	m_hat = m_t / (1 - beta1^t)
//	v_hat = v_t / (1 - beta2^t)
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)
//
// Weight decay is folded into the gradient, matching the coupled L2
// formulation of the reference Adam implementation.
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam struct {
	groups []ParamGroup
	beta1  float64
	beta2  float64
	eps    float64
	t      int // timestep for bias correction
	m      map[*nn.Parameter][]float64
	v      map[*nn.Parameter][]float64
}

// AdamConfig holds configuration for the Adam optimizer.
type AdamConfig struct {
	Betas [2]float64 // coefficients for the moment averages (default: [0.9, 0.999])
	Eps   float64    // numerical stability term (default: 1e-8)
}

// NewAdam creates a new Adam optimizer over the given parameter groups.
//
// A group with LR == 0 falls back to the default learning rate 1e-3.
func NewAdam(groups []ParamGroup, config AdamConfig) *Adam {
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	for i := range groups {
		if groups[i].LR == 0 {
			groups[i].LR = 1e-3
		}
	}
	return &Adam{
		groups: groups,
		beta1:  config.Betas[0],
		beta2:  config.Betas[1],
		eps:    config.Eps,
		m:      make(map[*nn.Parameter][]float64),
		v:      make(map[*nn.Parameter][]float64),
	}
}

// Step performs a single optimization step from the accumulated gradients.
func (a *Adam) Step() {
	a.t++
	biasCorrection1 := 1.0 - math.Pow(a.beta1, float64(a.t))
	biasCorrection2 := 1.0 - math.Pow(a.beta2, float64(a.t))

	for _, group := range a.groups {
		for _, param := range group.Params {
			m, ok := a.m[param]
			if !ok {
				m = make([]float64, param.Size())
				a.m[param] = m
			}
			v, ok := a.v[param]
			if !ok {
				v = make([]float64, param.Size())
				a.v[param] = v
			}

			data := param.Data()
			grad := param.Grad()
			for i := range data {
				g := grad[i] + group.WeightDecay*data[i]

				m[i] = a.beta1*m[i] + (1.0-a.beta1)*g
				v[i] = a.beta2*v[i] + (1.0-a.beta2)*g*g

				mHat := m[i] / biasCorrection1
				vHat := v[i] / biasCorrection2

				data[i] -= group.LR * mHat / (math.Sqrt(vHat) + a.eps)
			}
		}
	}
}

// ZeroGrad clears gradients for all parameters.
func (a *Adam) ZeroGrad() { zeroGroups(a.groups) }

// Timestep returns the current timestep.
func (a *Adam) Timestep() int { return a.t }
