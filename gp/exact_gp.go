// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package gp implements exact Gaussian-process regression with mean and
// covariance functions optionally induced by neural feature maps.
//
// ExactGP is an explicit two-state machine: in StatePrior, Forward returns
// the unconditioned GP prior over the query points (the state used to
// evaluate the marginal likelihood objective); in StatePosterior, Forward
// returns the closed-form posterior conditioned on the stored training
// data. Callers switch states explicitly with SetState.
package gp

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/wubeen/meta-learning-pacoh/dist"
	"github.com/wubeen/meta-learning-pacoh/nn"
)

const log2Pi = 1.8378770664093453

// State selects between prior and posterior inference.
type State int

const (
	// StatePrior evaluates the unconditioned GP prior.
	StatePrior State = iota
	// StatePosterior conditions on the stored training data.
	StatePosterior
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePrior:
		return "prior"
	case StatePosterior:
		return "posterior"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ExactGP is a Gaussian-process regression model over a single task.
//
// The model holds a non-owning reference to the mean and kernel modules, so
// several per-task models can share one set of feature-map parameters.
type ExactGP struct {
	trainX     *mat.Dense
	trainY     []float64
	mean       Mean
	kernel     *RBFKernel
	likelihood *GaussianLikelihood
	state      State
}

// NewExactGP creates an exact GP model over one task's training data.
//
// The kernel's input dimension (and the mean feature map's, when present)
// must match the width of trainX.
func NewExactGP(trainX *mat.Dense, trainY []float64, likelihood *GaussianLikelihood, mean Mean, kernel *RBFKernel) (*ExactGP, error) {
	n, d := trainX.Dims()
	if n == 0 {
		return nil, errors.New("gp: empty training set")
	}
	if len(trainY) != n {
		return nil, fmt.Errorf("gp: %d training inputs but %d targets", n, len(trainY))
	}
	if kernel.InputDim() != d {
		return nil, fmt.Errorf("gp: kernel expects input dim %d, data has %d", kernel.InputDim(), d)
	}
	if fmMean, ok := mean.(*FeatureMapMean); ok && fmMean.FeatureMap().InputDim() != d {
		return nil, fmt.Errorf("gp: mean feature map expects input dim %d, data has %d", fmMean.FeatureMap().InputDim(), d)
	}
	return &ExactGP{
		trainX:     trainX,
		trainY:     trainY,
		mean:       mean,
		kernel:     kernel,
		likelihood: likelihood,
		state:      StatePrior,
	}, nil
}

// State returns the current inference state.
func (g *ExactGP) State() State { return g.state }

// SetState switches between prior and posterior inference.
func (g *ExactGP) SetState(s State) { g.state = s }

// TrainX returns the stored training inputs.
func (g *ExactGP) TrainX() *mat.Dense { return g.trainX }

// TrainY returns the stored training targets.
func (g *ExactGP) TrainY() []float64 { return g.trainY }

// Likelihood returns the observation likelihood.
func (g *ExactGP) Likelihood() *GaussianLikelihood { return g.likelihood }

// Parameters returns the trainable parameters of the mean and kernel, mean
// first.
func (g *ExactGP) Parameters() []*nn.Parameter {
	return append(append([]*nn.Parameter{}, g.mean.Parameters()...), g.kernel.Parameters()...)
}

// Forward returns the latent multivariate-normal distribution over the
// function values at x, computed in the current state.
func (g *ExactGP) Forward(x *mat.Dense) (*dist.MultivariateNormal, error) {
	_, d := x.Dims()
	if _, trainD := g.trainX.Dims(); d != trainD {
		return nil, fmt.Errorf("gp: query input dim %d, training input dim %d", d, trainD)
	}
	if g.state == StatePrior {
		return g.prior(x)
	}
	return g.posterior(x)
}

func (g *ExactGP) prior(x *mat.Dense) (*dist.MultivariateNormal, error) {
	phi := g.kernel.Features(x)
	cov := g.kernel.MatrixFromFeatures(phi)
	return dist.NewMultivariateNormal(g.mean.Forward(x), cov), nil
}

func (g *ExactGP) posterior(x *mat.Dense) (*dist.MultivariateNormal, error) {
	n, _ := g.trainX.Dims()
	q, _ := x.Dims()

	phiTrain := g.kernel.Features(g.trainX)
	ktt := g.kernel.MatrixFromFeatures(phiTrain)
	ky := addDiag(ktt, g.likelihood.NoiseVar())

	chol, ok := dist.FactorizeWithJitter(ky)
	if !ok {
		return nil, errors.New("gp: training covariance is not positive definite")
	}

	meanTrain := g.mean.Forward(g.trainX)
	r := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		r.SetVec(i, g.trainY[i]-meanTrain[i])
	}
	alpha := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(alpha, r); err != nil {
		return nil, fmt.Errorf("gp: posterior solve: %w", err)
	}

	phiQuery := g.kernel.Features(x)
	ks := g.kernel.CrossFromFeatures(phiTrain, phiQuery) // (n, q)
	kqq := g.kernel.MatrixFromFeatures(phiQuery)

	// posterior mean: m(x) + Ksᵀ α
	meanQuery := g.mean.Forward(x)
	for j := 0; j < q; j++ {
		s := 0.0
		for i := 0; i < n; i++ {
			s += ks.At(i, j) * alpha.AtVec(i)
		}
		meanQuery[j] += s
	}

	// posterior covariance: Kqq - Ksᵀ Ky⁻¹ Ks
	v := mat.NewDense(n, q, nil)
	if err := chol.SolveTo(v, ks); err != nil {
		return nil, fmt.Errorf("gp: posterior covariance solve: %w", err)
	}
	var reduction mat.Dense
	reduction.Mul(ks.T(), v)

	cov := mat.NewSymDense(q, nil)
	for i := 0; i < q; i++ {
		for j := i; j < q; j++ {
			val := kqq.At(i, j) - 0.5*(reduction.At(i, j)+reduction.At(j, i))
			cov.SetSym(i, j, val)
		}
	}
	return dist.NewMultivariateNormal(meanQuery, cov), nil
}

// MarginalLogLikelihood returns the exact marginal log-likelihood of the
// stored training targets under the GP prior and Gaussian noise.
func (g *ExactGP) MarginalLogLikelihood() (float64, error) {
	return g.marginalLogLikelihood(0, false)
}

// MarginalLogLikelihoodGrad computes the marginal log-likelihood and
// accumulates scale * dMLL/dθ into the mean and kernel parameters.
//
// The trainers use scale = -1/n to accumulate the gradient of the
// normalized negative-MLL loss in a single pass.
func (g *ExactGP) MarginalLogLikelihoodGrad(scale float64) (float64, error) {
	return g.marginalLogLikelihood(scale, true)
}

func (g *ExactGP) marginalLogLikelihood(scale float64, withGrad bool) (float64, error) {
	n, _ := g.trainX.Dims()

	phi := g.kernel.Features(g.trainX)
	kf := g.kernel.MatrixFromFeatures(phi)
	ky := addDiag(kf, g.likelihood.NoiseVar())

	chol, ok := dist.FactorizeWithJitter(ky)
	if !ok {
		return 0, errors.New("gp: training covariance is not positive definite")
	}

	meanTrain := g.mean.Forward(g.trainX)
	r := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		r.SetVec(i, g.trainY[i]-meanTrain[i])
	}
	alpha := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(alpha, r); err != nil {
		return 0, fmt.Errorf("gp: mll solve: %w", err)
	}

	mll := -0.5*mat.Dot(r, alpha) - 0.5*chol.LogDet() - 0.5*float64(n)*log2Pi
	if !withGrad {
		return mll, nil
	}

	// dMLL/dK = ½ (α αᵀ - K⁻¹)
	kinv := mat.NewSymDense(n, nil)
	if err := chol.InverseTo(kinv); err != nil {
		return 0, fmt.Errorf("gp: mll inverse: %w", err)
	}
	gradK := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			gradK.SetSym(i, j, scale*0.5*(alpha.AtVec(i)*alpha.AtVec(j)-kinv.At(i, j)))
		}
	}
	g.kernel.BackwardFeatures(phi, kf, gradK)

	// dMLL/dm = α
	gradMean := make([]float64, n)
	for i := range gradMean {
		gradMean[i] = scale * alpha.AtVec(i)
	}
	g.mean.Backward(gradMean)

	return mll, nil
}

func addDiag(k *mat.SymDense, v float64) *mat.SymDense {
	n := k.SymmetricDim()
	out := mat.NewSymDense(n, nil)
	out.CopySym(k)
	for i := 0; i < n; i++ {
		out.SetSym(i, i, out.At(i, i)+v)
	}
	return out
}
