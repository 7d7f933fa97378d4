// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package meta implements the meta-learning trainers that fit shared GP
// prior structure across regression tasks.
//
// GPRegressionMetaLearned jointly optimizes shared neural feature maps by
// summing per-task exact marginal log-likelihoods. GPRegressionLearnedSVGD
// instead treats the network weights as a random variable and approximates
// the weight hyper-posterior with a Stein Variational Gradient Descent
// particle ensemble built on RandomGP.
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
	"github.com/wubeen/meta-learning-pacoh/gp"
	"github.com/wubeen/meta-learning-pacoh/internal/datautil"
	"github.com/wubeen/meta-learning-pacoh/nn"
	"github.com/wubeen/meta-learning-pacoh/optim"
)

// Learning modes for GPRegressionMetaLearned.
const (
	LearnMean   = "learn_mean"
	LearnKernel = "learn_kernel"
	LearnBoth   = "both"
	Vanilla     = "vanilla"
)

// Mean module variants.
const (
	MeanNN       = "NN"
	MeanConstant = "constant"
	MeanZero     = "zero"
)

// Covariance module variants.
const (
	CovarNN = "NN"
	CovarSE = "SE"
)

// Dataset is one regression task: inputs of shape (n, d) and n targets.
type Dataset struct {
	X [][]float64
	Y []float64
}

// EvalTuple is a context/query evaluation split: the model is conditioned
// on the context pair and scored on the query pair. All four fields must be
// populated.
type EvalTuple struct {
	ContextX [][]float64
	ContextY []float64
	QueryX   [][]float64
	QueryY   []float64
}

func (t EvalTuple) validate() error {
	if len(t.ContextX) == 0 || len(t.ContextY) == 0 || len(t.QueryX) == 0 || len(t.QueryY) == 0 {
		return errors.New("meta: evaluation tuple must have context_x, context_t, query_x, query_t")
	}
	return nil
}

// MetaConfig configures GPRegressionMetaLearned.
type MetaConfig struct {
	// LearningMode selects which GP prior parameters are optimized:
	// LearnMean, LearnKernel, LearnBoth, or Vanilla.
	LearningMode string

	LRParams float64 // learning rate for the shared parameters (default 1e-3)
	// WeightDecay is the weight-decay penalty. nil selects the default of
	// 1e-3; point at zero to disable decay.
	WeightDecay *float64
	FeatureDim  int // output dim of the kernel feature map (default 2)
	NumIterFit  int // number of gradient steps (default 1000)

	CovarModule    string // CovarNN or CovarSE (default CovarNN)
	MeanModule     string // MeanNN, MeanConstant, or MeanZero (default MeanNN)
	MeanNNLayers   []int  // hidden layer sizes of the mean network (default 32, 32)
	KernelNNLayers []int  // hidden layer sizes of the kernel network (default 32, 32)

	NoiseVar float64 // observation noise variance (default gp.DefaultNoiseVar)

	// DisableTaskSizeNormalization switches the per-task loss contribution
	// from mll/n to the raw mll. The per-sample normalization is the
	// historical behavior of the meta objective.
	DisableTaskSizeNormalization bool

	RandomSeed int64
	LogPeriod  int         // progress logging cadence (default 100)
	Logger     *zap.Logger // nil means no logging
}

func (c *MetaConfig) setDefaults() {
	if c.LearningMode == "" {
		c.LearningMode = LearnBoth
	}
	if c.LRParams == 0 {
		c.LRParams = 1e-3
	}
	if c.WeightDecay == nil {
		wd := 1e-3
		c.WeightDecay = &wd
	}
	if c.FeatureDim == 0 {
		c.FeatureDim = 2
	}
	if c.NumIterFit == 0 {
		c.NumIterFit = 1000
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
	if c.LogPeriod == 0 {
		c.LogPeriod = 100
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

func (c *MetaConfig) validate() error {
	switch c.LearningMode {
	case LearnMean, LearnKernel, LearnBoth, Vanilla:
	default:
		return fmt.Errorf("meta: unsupported learning mode %q", c.LearningMode)
	}
	switch c.MeanModule {
	case MeanNN, MeanConstant, MeanZero:
	default:
		return fmt.Errorf("meta: unsupported mean module %q", c.MeanModule)
	}
	switch c.CovarModule {
	case CovarNN, CovarSE:
	default:
		return fmt.Errorf("meta: unsupported covariance module %q", c.CovarModule)
	}
	if c.LRParams < 0 || *c.WeightDecay < 0 {
		return errors.New("meta: learning rate and weight decay must be non-negative")
	}
	if c.FeatureDim <= 0 {
		return errors.New("meta: feature dim must be positive")
	}
	if c.NumIterFit <= 0 {
		return errors.New("meta: number of fit iterations must be positive")
	}
	for _, l := range append(append([]int{}, c.MeanNNLayers...), c.KernelNNLayers...) {
		if l <= 0 {
			return errors.New("meta: network layer sizes must be positive")
		}
	}

	learnsMean := c.LearningMode == LearnMean || c.LearningMode == LearnBoth
	learnsKernel := c.LearningMode == LearnKernel || c.LearningMode == LearnBoth
	if learnsMean != (c.MeanModule == MeanNN) {
		return fmt.Errorf("meta: learning mode %q is incompatible with mean module %q", c.LearningMode, c.MeanModule)
	}
	if learnsKernel != (c.CovarModule == CovarNN) {
		return fmt.Errorf("meta: learning mode %q is incompatible with covariance module %q", c.LearningMode, c.CovarModule)
	}
	return nil
}

type taskModel struct {
	x     *mat.Dense
	y     []float64
	model *gp.ExactGP
}

// GPRegressionMetaLearned learns a GP prior with neural network mean and
// covariance functions across several regression tasks.
//
// One ExactGP is instantiated per meta-train task; all of them reference
// the same feature-map parameter tensors, and the optimizer is the single
// writer of those tensors.
type GPRegressionMetaLearned struct {
	cfg    MetaConfig
	logger *zap.Logger

	inputDim   int
	kernelMap  *nn.FeatureMap // nil unless CovarModule == CovarNN
	meanMap    *nn.FeatureMap // nil unless MeanModule == MeanNN
	likelihood *gp.GaussianLikelihood

	tasks     []taskModel
	shared    []optim.ParamGroup
	optimizer optim.Optimizer // nil in vanilla mode

	fitted bool
}

// NewGPRegressionMetaLearned validates the configuration, builds the shared
// feature maps selected by the learning mode, and instantiates one GP model
// per meta-train task sharing those maps.
func NewGPRegressionMetaLearned(metaTrainData []Dataset, cfg MetaConfig) (*GPRegressionMetaLearned, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(metaTrainData) == 0 {
		return nil, errors.New("meta: need at least one meta-train task")
	}

	m := &GPRegressionMetaLearned{
		cfg:        cfg,
		logger:     cfg.Logger,
		likelihood: gp.NewGaussianLikelihood(cfg.NoiseVar),
	}

	// All tasks must share one input dimension.
	tasks := make([]taskModel, 0, len(metaTrainData))
	for i, ds := range metaTrainData {
		x, y, err := datautil.HandleInputDimensionality(ds.X, ds.Y)
		if err != nil {
			return nil, fmt.Errorf("meta: task %d: %w", i, err)
		}
		_, d := x.Dims()
		if i == 0 {
			m.inputDim = d
		} else if d != m.inputDim {
			return nil, fmt.Errorf("meta: task %d has input dim %d, task 0 has %d", i, d, m.inputDim)
		}
		tasks = append(tasks, taskModel{x: x, y: y})
	}

	rng := rand.New(rand.NewSource(cfg.RandomSeed))
	if cfg.CovarModule == CovarNN {
		m.kernelMap = nn.NewFeatureMap("kernel_map", m.inputDim, cfg.KernelNNLayers, cfg.FeatureDim, rng)
		m.shared = append(m.shared, optim.ParamGroup{
			Params:      m.kernelMap.Parameters(),
			LR:          cfg.LRParams,
			WeightDecay: *cfg.WeightDecay,
		})
	}
	if cfg.MeanModule == MeanNN {
		m.meanMap = nn.NewFeatureMap("mean_map", m.inputDim, cfg.MeanNNLayers, 1, rng)
		m.shared = append(m.shared, optim.ParamGroup{
			Params:      m.meanMap.Parameters(),
			LR:          cfg.LRParams,
			WeightDecay: *cfg.WeightDecay,
		})
	}

	for i := range tasks {
		mean, kernel, err := m.buildModules()
		if err != nil {
			return nil, err
		}
		model, err := gp.NewExactGP(tasks[i].x, tasks[i].y, m.likelihood, mean, kernel)
		if err != nil {
			return nil, fmt.Errorf("meta: task %d: %w", i, err)
		}
		tasks[i].model = model
	}
	m.tasks = tasks

	if len(m.shared) > 0 {
		m.optimizer = optim.NewAdam(m.shared, optim.AdamConfig{})
	}
	return m, nil
}

// buildModules resolves the configured mean/covariance variants into
// concrete strategy objects referencing the shared feature maps.
func (m *GPRegressionMetaLearned) buildModules() (gp.Mean, *gp.RBFKernel, error) {
	var kernel *gp.RBFKernel
	if m.kernelMap != nil {
		kernel = gp.NewNNKernel(m.kernelMap)
	} else {
		kernel = gp.NewRBFKernel(m.inputDim)
	}

	var mean gp.Mean
	switch m.cfg.MeanModule {
	case MeanNN:
		fmMean, err := gp.NewFeatureMapMean(m.meanMap)
		if err != nil {
			return nil, nil, err
		}
		mean = fmMean
	case MeanConstant:
		mean = gp.NewConstantMean()
	case MeanZero:
		mean = gp.NewZeroMean()
	}
	return mean, kernel, nil
}

// Fitted reports whether MetaFit has completed.
func (m *GPRegressionMetaLearned) Fitted() bool { return m.fitted }

// SharedParameters returns the shared feature-map parameters in group
// order. Empty in vanilla mode.
func (m *GPRegressionMetaLearned) SharedParameters() []*nn.Parameter {
	var params []*nn.Parameter
	for _, g := range m.shared {
		params = append(params, g.Params...)
	}
	return params
}

// MetaFit jointly fits the shared prior parameters by summing the per-task
// marginal log-likelihoods, normalized by task size.
//
// In vanilla mode there are no shared parameters and the call is a no-op
// that marks the model fitted. Validation tuples are advisory: their
// log-likelihood/RMSE is logged periodically and never interrupts fitting.
// All task models are left in the posterior (evaluation) state.
func (m *GPRegressionMetaLearned) MetaFit(validTuples []EvalTuple) error {
	for _, tup := range validTuples {
		if err := tup.validate(); err != nil {
			return err
		}
	}

	if m.optimizer == nil {
		m.logger.Info("vanilla mode - nothing to fit")
		m.finishFit()
		return nil
	}

	for i := range m.tasks {
		m.tasks[i].model.SetState(gp.StatePrior)
	}

	t := time.Now()
	for itr := 1; itr <= m.cfg.NumIterFit; itr++ {
		m.optimizer.ZeroGrad()

		loss := 0.0
		for i := range m.tasks {
			n := float64(len(m.tasks[i].y))
			scale := -1.0 / n
			if m.cfg.DisableTaskSizeNormalization {
				scale = -1.0
			}
			mll, err := m.tasks[i].model.MarginalLogLikelihoodGrad(scale)
			if err != nil {
				return fmt.Errorf("meta: iteration %d, task %d: %w", itr, i, err)
			}
			loss += scale * mll
		}
		m.optimizer.Step()

		if itr == 1 || itr%m.cfg.LogPeriod == 0 {
			fields := []zap.Field{
				zap.Int("iter", itr),
				zap.Int("total", m.cfg.NumIterFit),
				zap.Float64("loss", loss),
				zap.Duration("elapsed", time.Since(t)),
			}
			t = time.Now()
			if len(validTuples) > 0 {
				if validLL, validRMSE, err := m.EvalDatasets(validTuples); err == nil {
					fields = append(fields, zap.Float64("valid_ll", validLL), zap.Float64("valid_rmse", validRMSE))
				} else {
					fields = append(fields, zap.Error(err))
				}
			}
			m.logger.Info("meta-fit", fields...)
		}
	}

	m.finishFit()
	return nil
}

func (m *GPRegressionMetaLearned) finishFit() {
	for i := range m.tasks {
		m.tasks[i].model.SetState(gp.StatePosterior)
	}
	m.fitted = true
}

// Predict conditions a fresh GP on the context data using the fitted
// shared parameters and returns the predictive mean and standard deviation
// of the targets at the query points.
func (m *GPRegressionMetaLearned) Predict(contextX [][]float64, contextY []float64, queryX [][]float64) ([]float64, []float64, error) {
	pred, err := m.predictiveDist(contextX, contextY, queryX)
	if err != nil {
		return nil, nil, err
	}
	return pred.Mean(), pred.Std(), nil
}

func (m *GPRegressionMetaLearned) predictiveDist(contextX [][]float64, contextY []float64, queryX [][]float64) (*dist.MultivariateNormal, error) {
	ctxX, ctxY, err := datautil.HandleInputDimensionality(contextX, contextY)
	if err != nil {
		return nil, err
	}
	qX, _, err := datautil.HandleInputDimensionality(queryX, make([]float64, len(queryX)))
	if err != nil {
		return nil, err
	}
	_, ctxD := ctxX.Dims()
	_, qD := qX.Dims()
	if qD != ctxD {
		return nil, fmt.Errorf("meta: query input dim %d, context input dim %d", qD, ctxD)
	}
	if ctxD != m.inputDim {
		return nil, fmt.Errorf("meta: context input dim %d, meta-train input dim %d", ctxD, m.inputDim)
	}

	mean, kernel, err := m.buildModules()
	if err != nil {
		return nil, err
	}
	model, err := gp.NewExactGP(ctxX, ctxY, m.likelihood, mean, kernel)
	if err != nil {
		return nil, err
	}
	model.SetState(gp.StatePosterior)
	latent, err := model.Forward(qX)
	if err != nil {
		return nil, err
	}
	return m.likelihood.Marginal(latent), nil
}

// Eval computes the average predictive log-likelihood and the RMSE on one
// context/query tuple.
func (m *GPRegressionMetaLearned) Eval(contextX [][]float64, contextY []float64, queryX [][]float64, queryY []float64) (float64, float64, error) {
	if len(queryY) != len(queryX) {
		return 0, 0, fmt.Errorf("meta: %d query inputs but %d targets", len(queryX), len(queryY))
	}
	pred, err := m.predictiveDist(contextX, contextY, queryX)
	if err != nil {
		return 0, 0, err
	}

	mean, std := pred.Mean(), pred.Std()
	pointwise := dist.NewNormal(mean, std)
	avgLL := pointwise.LogProb(queryY) / float64(len(queryY))

	sqErr := 0.0
	for i, yi := range queryY {
		diff := mean[i] - yi
		sqErr += diff * diff
	}
	rmse := math.Sqrt(sqErr / float64(len(queryY)))
	return avgLL, rmse, nil
}

// EvalDatasets averages Eval over several context/query tuples.
func (m *GPRegressionMetaLearned) EvalDatasets(tuples []EvalTuple) (float64, float64, error) {
	if len(tuples) == 0 {
		return 0, 0, errors.New("meta: no evaluation tuples")
	}
	sumLL, sumRMSE := 0.0, 0.0
	for _, tup := range tuples {
		if err := tup.validate(); err != nil {
			return 0, 0, err
		}
		ll, rmse, err := m.Eval(tup.ContextX, tup.ContextY, tup.QueryX, tup.QueryY)
		if err != nil {
			return 0, 0, err
		}
		sumLL += ll
		sumRMSE += rmse
	}
	n := float64(len(tuples))
	return sumLL / n, sumRMSE / n, nil
}
