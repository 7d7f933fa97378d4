// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn implements the neural feature maps that parameterize learned
// GP mean and covariance functions.
//
// The package provides:
//   - Parameter: trainable float64 parameter with accumulated gradients
//   - Linear: fully connected layer with manual backpropagation
//   - Tanh: activation module
//   - FeatureMap: fixed-architecture feedforward stack mapping raw inputs
//     to a fixed-size embedding (or a scalar mean value)
//
// All modules operate on gonum mat.Dense batches of shape (n, features).
// Forward caches the activations needed by Backward; Backward accumulates
// parameter gradients and returns the gradient with respect to the input.
// Modules are stateless apart from their weights and the single cached
// forward pass, so one FeatureMap instance can be shared by many GP models
// as long as forward/backward pairs are not interleaved.
package nn
