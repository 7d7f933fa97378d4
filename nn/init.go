// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math"
	"math/rand"
)

// Xavier returns fanIn*fanOut values drawn from the Xavier (Glorot) uniform
// distribution U(-sqrt(6/(fanIn+fanOut)), sqrt(6/(fanIn+fanOut))).
//
// This initialization keeps the variance of activations roughly constant
// across layers.
func Xavier(fanIn, fanOut int, rng *rand.Rand) []float64 {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	data := make([]float64, fanIn*fanOut)
	for i := range data {
		data[i] = (rng.Float64()*2.0 - 1.0) * bound
	}
	return data
}
