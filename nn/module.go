// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import "gonum.org/v1/gonum/mat"

// Module is the base interface for all neural network components.
//
// Every module must implement:
//   - Forward: compute the output batch from an input batch
//   - Backward: propagate an output gradient, accumulating parameter
//     gradients and returning the input gradient
//   - Parameters: return all trainable parameters
//
// Backward relies on activations cached by the most recent Forward call,
// so forward/backward pairs must not be interleaved on a single module.
type Module interface {
	// Forward computes the output of the module for a (n, in) input batch.
	Forward(x *mat.Dense) *mat.Dense

	// Backward takes the gradient of the loss with respect to the output
	// of the last Forward call, accumulates parameter gradients, and
	// returns the gradient with respect to the input.
	Backward(grad *mat.Dense) *mat.Dense

	// Parameters returns all trainable parameters of this module.
	// Returns nil for modules without trainable parameters.
	Parameters() []*Parameter
}
