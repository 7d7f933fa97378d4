// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package meta

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/wubeen/meta-learning-pacoh/gp"
	"github.com/wubeen/meta-learning-pacoh/nn"
	"github.com/wubeen/meta-learning-pacoh/svgd"
)

// Default standard deviations of the Gaussian weight hyper-prior. Bias
// entries (and the constant mean value) get the looser prior.
const (
	DefaultWeightPriorStd = 1.0
	DefaultBiasPriorStd   = 3.0
)

// RandomGPConfig configures a RandomGP template.
type RandomGPConfig struct {
	InputDim   int
	FeatureDim int // output dim of the kernel feature map (default 1)

	// PriorFactor scales the contribution of the weight hyper-prior to the
	// particle score. Zero disables the prior term.
	PriorFactor float64

	WeightPriorStd float64 // default DefaultWeightPriorStd
	BiasPriorStd   float64 // default DefaultBiasPriorStd

	CovarModule    string // CovarNN or CovarSE (default CovarNN)
	MeanModule     string // MeanNN or MeanConstant (default MeanNN)
	MeanNNLayers   []int  // default 32, 32
	KernelNNLayers []int  // default 32, 32

	NoiseVar float64 // observation noise variance (default gp.DefaultNoiseVar)

	// PerSampleNormalization divides the data log-likelihood term of the
	// score by the number of observations.
	PerSampleNormalization bool
}

func (c *RandomGPConfig) setDefaults() {
	if c.FeatureDim == 0 {
		c.FeatureDim = 1
	}
	if c.WeightPriorStd == 0 {
		c.WeightPriorStd = DefaultWeightPriorStd
	}
	if c.BiasPriorStd == 0 {
		c.BiasPriorStd = DefaultBiasPriorStd
	}
	if c.CovarModule == "" {
		c.CovarModule = CovarNN
	}
	if c.MeanModule == "" {
		c.MeanModule = MeanNN
	}
	if len(c.MeanNNLayers) == 0 {
		c.MeanNNLayers = nn.DefaultHiddenLayers
	}
	if len(c.KernelNNLayers) == 0 {
		c.KernelNNLayers = nn.DefaultHiddenLayers
	}
}

func (c *RandomGPConfig) validate() error {
	if c.InputDim <= 0 {
		return errors.New("meta: random GP input dim must be positive")
	}
	if c.FeatureDim <= 0 {
		return errors.New("meta: random GP feature dim must be positive")
	}
	if c.WeightPriorStd <= 0 || c.BiasPriorStd <= 0 {
		return errors.New("meta: weight prior stds must be positive")
	}
	switch c.MeanModule {
	case MeanNN, MeanConstant:
	default:
		return fmt.Errorf("meta: unsupported random GP mean module %q", c.MeanModule)
	}
	switch c.CovarModule {
	case CovarNN, CovarSE:
	default:
		return fmt.Errorf("meta: unsupported random GP covariance module %q", c.CovarModule)
	}
	if c.MeanModule != MeanNN && c.CovarModule != CovarNN {
		return errors.New("meta: random GP needs at least one network module")
	}
	return nil
}

// RandomGP is a GP whose mean and covariance networks are themselves random
// variables under an entrywise Gaussian hyper-prior. A flat weight vector
// identifies one concrete GP; a matrix of such vectors is a particle
// ensemble.
//
// RandomGP satisfies svgd.Target: LogProbGrad scores each particle with the
// gradient of log p(y | x, theta) + prior_factor * log p(theta).
type RandomGP struct {
	cfg RandomGPConfig

	// Template modules. Writing a particle row into params re-points the
	// template at that particle's GP.
	mean       gp.Mean
	kernel     *gp.RBFKernel
	likelihood *gp.GaussianLikelihood
	params     []*nn.Parameter

	priorStd []float64 // per-entry hyper-prior std, aligned with the flat order
	dim      int
}

var _ svgd.Target = (*RandomGP)(nil)

// NewRandomGP builds the template modules and the per-entry hyper-prior
// standard deviations.
func NewRandomGP(cfg RandomGPConfig, rng *rand.Rand) (*RandomGP, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	r := &RandomGP{
		cfg:        cfg,
		likelihood: gp.NewGaussianLikelihood(cfg.NoiseVar),
	}
	mean, kernel, err := buildRandomGPModules(cfg, rng)
	if err != nil {
		return nil, err
	}
	r.mean = mean
	r.kernel = kernel
	r.params = append(append([]*nn.Parameter{}, mean.Parameters()...), kernel.Parameters()...)
	r.dim = nn.NumParams(r.params)

	r.priorStd = make([]float64, 0, r.dim)
	for _, p := range r.params {
		std := cfg.WeightPriorStd
		if strings.HasSuffix(p.Name(), ".bias") || p.Name() == gp.ConstantMeanParamName {
			std = cfg.BiasPriorStd
		}
		for i := 0; i < p.Size(); i++ {
			r.priorStd = append(r.priorStd, std)
		}
	}
	return r, nil
}

func buildRandomGPModules(cfg RandomGPConfig, rng *rand.Rand) (gp.Mean, *gp.RBFKernel, error) {
	var kernel *gp.RBFKernel
	if cfg.CovarModule == CovarNN {
		fm := nn.NewFeatureMap("kernel_map", cfg.InputDim, cfg.KernelNNLayers, cfg.FeatureDim, rng)
		kernel = gp.NewNNKernel(fm)
	} else {
		kernel = gp.NewRBFKernel(cfg.InputDim)
	}

	var mean gp.Mean
	if cfg.MeanModule == MeanNN {
		fm := nn.NewFeatureMap("mean_map", cfg.InputDim, cfg.MeanNNLayers, 1, rng)
		fmMean, err := gp.NewFeatureMapMean(fm)
		if err != nil {
			return nil, nil, err
		}
		mean = fmMean
	} else {
		mean = gp.NewConstantMean()
	}
	return mean, kernel, nil
}

// NumParams returns the length of one particle vector.
func (r *RandomGP) NumParams() int { return r.dim }

// PriorStd returns the per-entry hyper-prior standard deviations.
func (r *RandomGP) PriorStd() []float64 { return r.priorStd }

// SampleParamsFromPrior draws a (p, NumParams) particle matrix from the
// entrywise Gaussian hyper-prior.
func (r *RandomGP) SampleParamsFromPrior(p int, rng *rand.Rand) *mat.Dense {
	particles := mat.NewDense(p, r.dim, nil)
	for i := 0; i < p; i++ {
		for j := 0; j < r.dim; j++ {
			particles.Set(i, j, rng.NormFloat64()*r.priorStd[j])
		}
	}
	return particles
}

// LogProbGrad scores each particle row with the gradient of its posterior
// log-density on the observations (x, y):
//
//	grad log p(y | x, theta) + prior_factor * grad log p(theta)
//
// The template modules are re-pointed at one particle at a time, so the
// call is not safe for concurrent use.
func (r *RandomGP) LogProbGrad(particles *mat.Dense, x *mat.Dense, y []float64) (*mat.Dense, error) {
	p, d := particles.Dims()
	if d != r.dim {
		return nil, fmt.Errorf("meta: particle dim %d, want %d", d, r.dim)
	}

	scale := 1.0
	if r.cfg.PerSampleNormalization {
		scale = 1.0 / float64(len(y))
	}

	score := mat.NewDense(p, d, nil)
	row := make([]float64, d)
	for i := 0; i < p; i++ {
		mat.Row(row, i, particles)
		nn.SetFlatParams(r.params, row)
		for _, prm := range r.params {
			prm.ZeroGrad()
		}

		model, err := gp.NewExactGP(x, y, r.likelihood, r.mean, r.kernel)
		if err != nil {
			return nil, err
		}
		if _, err := model.MarginalLogLikelihoodGrad(scale); err != nil {
			return nil, fmt.Errorf("meta: particle %d: %w", i, err)
		}

		dst := score.RawRowView(i)
		nn.FlattenGrads(r.params, dst)
		for j := 0; j < d; j++ {
			std := r.priorStd[j]
			dst[j] += r.cfg.PriorFactor * (-row[j] / (std * std))
		}
	}
	return score, nil
}

// ForwardFn returns a builder that instantiates one independent conditioned
// GP per particle row. With train false the models are left in the
// posterior state so a subsequent Forward yields predictive distributions.
func (r *RandomGP) ForwardFn(particles *mat.Dense) func(x *mat.Dense, y []float64, train bool) ([]*gp.ExactGP, *gp.GaussianLikelihood, error) {
	return func(x *mat.Dense, y []float64, train bool) ([]*gp.ExactGP, *gp.GaussianLikelihood, error) {
		p, d := particles.Dims()
		if d != r.dim {
			return nil, nil, fmt.Errorf("meta: particle dim %d, want %d", d, r.dim)
		}
		models := make([]*gp.ExactGP, 0, p)
		row := make([]float64, d)
		rng := rand.New(rand.NewSource(0)) // weights are overwritten below
		for i := 0; i < p; i++ {
			mean, kernel, err := buildRandomGPModules(r.cfg, rng)
			if err != nil {
				return nil, nil, err
			}
			params := append(append([]*nn.Parameter{}, mean.Parameters()...), kernel.Parameters()...)
			mat.Row(row, i, particles)
			nn.SetFlatParams(params, row)

			model, err := gp.NewExactGP(x, y, r.likelihood, mean, kernel)
			if err != nil {
				return nil, nil, err
			}
			if !train {
				model.SetState(gp.StatePosterior)
			}
			models = append(models, model)
		}
		return models, r.likelihood, nil
	}
}
