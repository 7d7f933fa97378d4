// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package meta

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/wubeen/meta-learning-pacoh/dist"
	"github.com/wubeen/meta-learning-pacoh/internal/datautil"
	"github.com/wubeen/meta-learning-pacoh/nn"
	"github.com/wubeen/meta-learning-pacoh/optim"
	"github.com/wubeen/meta-learning-pacoh/svgd"
)

// Optimizer variants for GPRegressionLearnedSVGD.
const (
	OptimizerAdam = "Adam"
	OptimizerSGD  = "SGD"
)

// SVGD kernel variants.
const (
	KernelRBF = "RBF"
	KernelIMQ = "IMQ"
)

// SVGDConfig configures GPRegressionLearnedSVGD.
type SVGDConfig struct {
	LR         float64 // particle learning rate (default 1e-3)
	NumIterFit int     // number of SVGD steps (default 10000)

	// PriorFactor scales the weight hyper-prior term of the particle score
	// (default 1e-2).
	PriorFactor    float64
	WeightPriorStd float64 // default DefaultWeightPriorStd
	BiasPriorStd   float64 // default DefaultBiasPriorStd

	FeatureDim     int    // output dim of the kernel feature map (default 1)
	CovarModule    string // CovarNN or CovarSE (default CovarNN)
	MeanModule     string // MeanNN or MeanConstant (default MeanNN)
	MeanNNLayers   []int  // default 32, 32
	KernelNNLayers []int  // default 32, 32

	Optimizer string  // OptimizerAdam or OptimizerSGD (default OptimizerAdam)
	Kernel    string  // KernelRBF or KernelIMQ (default KernelRBF)
	Bandwidth float64 // non-positive selects the median heuristic per step

	NumParticles int // ensemble size (default 10)

	// NormalizeData standardizes inputs and targets with statistics of the
	// training set; predictions are transformed back to the original scale.
	NormalizeData bool

	NoiseVar float64 // observation noise variance (default gp.DefaultNoiseVar)

	// PerSampleNormalization divides the data log-likelihood term of the
	// particle score by the number of observations.
	PerSampleNormalization bool

	RandomSeed int64
	LogPeriod  int         // progress logging cadence (default 1000)
	Logger     *zap.Logger // nil means no logging
}

func (c *SVGDConfig) setDefaults() {
	if c.LR == 0 {
		c.LR = 1e-3
	}
	if c.NumIterFit == 0 {
		c.NumIterFit = 10000
	}
	if c.PriorFactor == 0 {
		c.PriorFactor = 1e-2
	}
	if c.Optimizer == "" {
		c.Optimizer = OptimizerAdam
	}
	if c.Kernel == "" {
		c.Kernel = KernelRBF
	}
	if c.NumParticles == 0 {
		c.NumParticles = 10
	}
	if c.LogPeriod == 0 {
		c.LogPeriod = 1000
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

func (c *SVGDConfig) validate() error {
	if c.LR < 0 {
		return errors.New("meta: learning rate must be non-negative")
	}
	if c.NumIterFit <= 0 {
		return errors.New("meta: number of fit iterations must be positive")
	}
	if c.NumParticles <= 0 {
		return errors.New("meta: number of particles must be positive")
	}
	switch c.Optimizer {
	case OptimizerAdam, OptimizerSGD:
	default:
		return fmt.Errorf("meta: unsupported optimizer %q", c.Optimizer)
	}
	switch c.Kernel {
	case KernelRBF, KernelIMQ:
	default:
		return fmt.Errorf("meta: unsupported SVGD kernel %q", c.Kernel)
	}
	return nil
}

// GPRegressionLearnedSVGD fits a single regression task by approximating
// the posterior over the GP's network weights with an SVGD particle
// ensemble. Predictions are equal-weight mixtures of the per-particle GP
// predictive distributions.
type GPRegressionLearnedSVGD struct {
	cfg    SVGDConfig
	logger *zap.Logger

	std      *datautil.Standardizer
	trainX   *mat.Dense // normalized
	trainY   []float64  // normalized
	inputDim int

	randomGP  *RandomGP
	particles *nn.Parameter
	engine    *svgd.SVGD

	fitted bool
}

// NewGPRegressionLearnedSVGD validates the configuration, standardizes the
// training data, and initializes the particle ensemble from the weight
// hyper-prior.
func NewGPRegressionLearnedSVGD(trainX [][]float64, trainY []float64, cfg SVGDConfig) (*GPRegressionLearnedSVGD, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	x, y, err := datautil.HandleInputDimensionality(trainX, trainY)
	if err != nil {
		return nil, err
	}
	_, d := x.Dims()

	s := &GPRegressionLearnedSVGD{
		cfg:      cfg,
		logger:   cfg.Logger,
		inputDim: d,
	}
	if cfg.NormalizeData {
		s.std = datautil.FitStandardizer(x, y)
	} else {
		s.std = datautil.Identity(d)
	}
	s.trainX = s.std.NormalizeX(x)
	s.trainY = s.std.NormalizeY(y)

	rng := rand.New(rand.NewSource(cfg.RandomSeed))
	s.randomGP, err = NewRandomGP(RandomGPConfig{
		InputDim:               d,
		FeatureDim:             cfg.FeatureDim,
		PriorFactor:            cfg.PriorFactor,
		WeightPriorStd:         cfg.WeightPriorStd,
		BiasPriorStd:           cfg.BiasPriorStd,
		CovarModule:            cfg.CovarModule,
		MeanModule:             cfg.MeanModule,
		MeanNNLayers:           cfg.MeanNNLayers,
		KernelNNLayers:         cfg.KernelNNLayers,
		NoiseVar:               cfg.NoiseVar,
		PerSampleNormalization: cfg.PerSampleNormalization,
	}, rng)
	if err != nil {
		return nil, err
	}

	init := s.randomGP.SampleParamsFromPrior(cfg.NumParticles, rng)
	s.particles = nn.NewParameter("particles",
		[]int{cfg.NumParticles, s.randomGP.NumParams()}, init.RawMatrix().Data)

	group := []optim.ParamGroup{{Params: []*nn.Parameter{s.particles}, LR: cfg.LR}}
	var opt optim.Optimizer
	if cfg.Optimizer == OptimizerSGD {
		opt = optim.NewSGD(group, optim.SGDConfig{})
	} else {
		opt = optim.NewAdam(group, optim.AdamConfig{})
	}

	var kernel svgd.Kernel
	if cfg.Kernel == KernelIMQ {
		kernel = &svgd.IMQKernel{Bandwidth: cfg.Bandwidth}
	} else {
		kernel = &svgd.RBFKernel{Bandwidth: cfg.Bandwidth}
	}

	s.engine, err = svgd.New(s.randomGP, kernel, s.particles, opt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Fitted reports whether Fit has completed.
func (s *GPRegressionLearnedSVGD) Fitted() bool { return s.fitted }

// NumParticles returns the size of the particle ensemble.
func (s *GPRegressionLearnedSVGD) NumParticles() int { return s.engine.NumParticles() }

// Particles returns a copy of the current particle matrix.
func (s *GPRegressionLearnedSVGD) Particles() *mat.Dense {
	return mat.DenseCopyOf(s.engine.Particles())
}

// Fit runs the configured number of SVGD steps on the particle ensemble.
// An optional held-out set is scored and logged periodically and never
// interrupts fitting.
func (s *GPRegressionLearnedSVGD) Fit(validX [][]float64, validY []float64) error {
	t := time.Now()
	for itr := 1; itr <= s.cfg.NumIterFit; itr++ {
		if err := s.engine.Step(s.trainX, s.trainY); err != nil {
			return fmt.Errorf("meta: iteration %d: %w", itr, err)
		}

		if itr == 1 || itr%s.cfg.LogPeriod == 0 {
			fields := []zap.Field{
				zap.Int("iter", itr),
				zap.Int("total", s.cfg.NumIterFit),
				zap.Duration("elapsed", time.Since(t)),
			}
			t = time.Now()
			if len(validX) > 0 {
				if ll, rmse, err := s.Eval(validX, validY); err == nil {
					fields = append(fields, zap.Float64("valid_ll", ll), zap.Float64("valid_rmse", rmse))
				} else {
					fields = append(fields, zap.Error(err))
				}
			}
			s.logger.Info("svgd-fit", fields...)
		}
	}
	s.fitted = true
	return nil
}

// PredictDist returns the predictive distribution at the query points: an
// equal-weight mixture of the per-particle GP predictives, transformed back
// to the original target scale.
func (s *GPRegressionLearnedSVGD) PredictDist(queryX [][]float64) (*dist.EqualWeightedMixture, error) {
	q, _, err := datautil.HandleInputDimensionality(queryX, make([]float64, len(queryX)))
	if err != nil {
		return nil, err
	}
	_, qd := q.Dims()
	if qd != s.inputDim {
		return nil, fmt.Errorf("meta: query input dim %d, train input dim %d", qd, s.inputDim)
	}
	qn := s.std.NormalizeX(q)

	build := s.randomGP.ForwardFn(s.engine.Particles())
	models, likelihood, err := build(s.trainX, s.trainY, false)
	if err != nil {
		return nil, err
	}

	components := make([]dist.Distribution, 0, len(models))
	for _, model := range models {
		latent, err := model.Forward(qn)
		if err != nil {
			return nil, err
		}
		marginal := likelihood.Marginal(latent)
		components = append(components, dist.NewAffineTransformed(marginal, s.std.YMean, s.std.YStd))
	}
	return dist.NewEqualWeightedMixture(components), nil
}

// Predict returns the predictive mean and standard deviation of the targets
// at the query points.
func (s *GPRegressionLearnedSVGD) Predict(queryX [][]float64) ([]float64, []float64, error) {
	pred, err := s.PredictDist(queryX)
	if err != nil {
		return nil, nil, err
	}
	return pred.Mean(), pred.Std(), nil
}

// Eval computes the average predictive log-likelihood and the RMSE of the
// mixture predictive on a held-out set.
func (s *GPRegressionLearnedSVGD) Eval(testX [][]float64, testY []float64) (float64, float64, error) {
	if len(testY) != len(testX) {
		return 0, 0, fmt.Errorf("meta: %d test inputs but %d targets", len(testX), len(testY))
	}
	pred, err := s.PredictDist(testX)
	if err != nil {
		return 0, 0, err
	}

	avgLL := pred.LogProb(testY) / float64(len(testY))
	mean := pred.Mean()
	sqErr := 0.0
	for i, yi := range testY {
		diff := mean[i] - yi
		sqErr += diff * diff
	}
	rmse := math.Sqrt(sqErr / float64(len(testY)))
	return avgLL, rmse, nil
}
