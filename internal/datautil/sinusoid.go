package datautil

import (
	"math"
	"math/rand"
)

// Sinusoid parameters mirror the synthetic task family the trainers are
// benchmarked on: y = amplitude * sin(x - shift) + offset + noise, with x
// drawn uniformly from [XLow, XHigh].
const (
	XLow  = -5.0
	XHigh = 5.0
)

// SinusoidConfig controls the sampled task family.
type SinusoidConfig struct {
	AmpLow    float64 // minimum amplitude (default 0.2)
	AmpHigh   float64 // maximum amplitude (default 2.0)
	YShiftStd float64 // std of the Gaussian vertical shift (default 0.3)
	NoiseStd  float64 // std of the observation noise (default 0.1)
}

func (c *SinusoidConfig) defaults() {
	if c.AmpLow == 0 {
		c.AmpLow = 0.2
	}
	if c.AmpHigh == 0 {
		c.AmpHigh = 2.0
	}
	if c.YShiftStd == 0 {
		c.YShiftStd = 0.3
	}
}

// SampleSinusoidTask samples one sinusoid from the family and draws n noisy
// observations from it. Inputs have shape (n, 1).
func SampleSinusoidTask(rng *rand.Rand, n int, cfg SinusoidConfig) ([][]float64, []float64) {
	cfg.defaults()
	amplitude := cfg.AmpLow + rng.Float64()*(cfg.AmpHigh-cfg.AmpLow)
	yShift := rng.NormFloat64() * cfg.YShiftStd

	x := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		xi := XLow + rng.Float64()*(XHigh-XLow)
		x[i] = []float64{xi}
		y[i] = amplitude*math.Sin(xi) + yShift + rng.NormFloat64()*cfg.NoiseStd
	}
	return x, y
}
