// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import "github.com/wubeen/meta-learning-pacoh/nn"

// SGD implements stochastic gradient descent with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * (grad + weight_decay * param)
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + (grad + weight_decay * param)
//	param = param - lr * velocity
type SGD struct {
	groups     []ParamGroup
	momentum   float64
	velocities map[*nn.Parameter][]float64
}

// SGDConfig holds configuration for the SGD optimizer.
type SGDConfig struct {
	Momentum float64 // momentum factor (default: 0, range [0, 1))
}

// NewSGD creates a new SGD optimizer over the given parameter groups.
//
// A group with LR == 0 falls back to the default learning rate 1e-2.
func NewSGD(groups []ParamGroup, config SGDConfig) *SGD {
	for i := range groups {
		if groups[i].LR == 0 {
			groups[i].LR = 1e-2
		}
	}
	return &SGD{
		groups:     groups,
		momentum:   config.Momentum,
		velocities: make(map[*nn.Parameter][]float64),
	}
}

// Step performs a single optimization step from the accumulated gradients.
func (s *SGD) Step() {
	for _, group := range s.groups {
		for _, param := range group.Params {
			data := param.Data()
			grad := param.Grad()

			if s.momentum == 0 {
				for i := range data {
					data[i] -= group.LR * (grad[i] + group.WeightDecay*data[i])
				}
				continue
			}

			velocity, ok := s.velocities[param]
			if !ok {
				velocity = make([]float64, param.Size())
				s.velocities[param] = velocity
			}
			for i := range data {
				g := grad[i] + group.WeightDecay*data[i]
				velocity[i] = s.momentum*velocity[i] + g
				data[i] -= group.LR * velocity[i]
			}
		}
	}
}

// ZeroGrad clears gradients for all parameters.
func (s *SGD) ZeroGrad() { zeroGroups(s.groups) }
