// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package config loads trainer configurations from YAML files.
package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wubeen/meta-learning-pacoh/meta"
)

// Meta is the YAML form of meta.MetaConfig. WeightDecay defaults to 1e-3
// when the key is absent; an explicit 0 disables decay.
type Meta struct {
	LearningMode                 string   `yaml:"learning_mode"`
	LR                           float64  `yaml:"lr"`
	WeightDecay                  *float64 `yaml:"weight_decay"`
	FeatureDim                   int      `yaml:"feature_dim"`
	NumIterFit                   int      `yaml:"num_iter_fit"`
	CovarModule                  string   `yaml:"covar_module"`
	MeanModule                   string   `yaml:"mean_module"`
	MeanNNLayers                 []int    `yaml:"mean_nn_layers"`
	KernelNNLayers               []int    `yaml:"kernel_nn_layers"`
	NoiseVar                     float64  `yaml:"noise_var"`
	DisableTaskSizeNormalization bool     `yaml:"disable_task_size_normalization"`
	RandomSeed                   int64    `yaml:"random_seed"`
	LogPeriod                    int      `yaml:"log_period"`
}

// ToMetaConfig converts to the trainer configuration. Unset fields keep
// their zero value and are filled with defaults by the trainer.
func (m Meta) ToMetaConfig() meta.MetaConfig {
	return meta.MetaConfig{
		LearningMode:                 m.LearningMode,
		LRParams:                     m.LR,
		WeightDecay:                  m.WeightDecay,
		FeatureDim:                   m.FeatureDim,
		NumIterFit:                   m.NumIterFit,
		CovarModule:                  m.CovarModule,
		MeanModule:                   m.MeanModule,
		MeanNNLayers:                 m.MeanNNLayers,
		KernelNNLayers:               m.KernelNNLayers,
		NoiseVar:                     m.NoiseVar,
		DisableTaskSizeNormalization: m.DisableTaskSizeNormalization,
		RandomSeed:                   m.RandomSeed,
		LogPeriod:                    m.LogPeriod,
	}
}

// SVGD is the YAML form of meta.SVGDConfig. NormalizeData defaults to true
// when the key is absent.
type SVGD struct {
	LR             float64 `yaml:"lr"`
	NumIterFit     int     `yaml:"num_iter_fit"`
	PriorFactor    float64 `yaml:"prior_factor"`
	WeightPriorStd float64 `yaml:"weight_prior_std"`
	BiasPriorStd   float64 `yaml:"bias_prior_std"`
	FeatureDim     int     `yaml:"feature_dim"`
	CovarModule    string  `yaml:"covar_module"`
	MeanModule     string  `yaml:"mean_module"`
	MeanNNLayers   []int   `yaml:"mean_nn_layers"`
	KernelNNLayers []int   `yaml:"kernel_nn_layers"`
	Optimizer      string  `yaml:"optimizer"`
	Kernel         string  `yaml:"kernel"`
	Bandwidth      float64 `yaml:"bandwidth"`
	NumParticles   int     `yaml:"num_particles"`
	NormalizeData  *bool   `yaml:"normalize_data"`
	NoiseVar       float64 `yaml:"noise_var"`

	PerSampleNormalization bool `yaml:"per_sample_normalization"`

	RandomSeed int64 `yaml:"random_seed"`
	LogPeriod  int   `yaml:"log_period"`
}

// ToSVGDConfig converts to the trainer configuration.
func (s SVGD) ToSVGDConfig() meta.SVGDConfig {
	normalize := true
	if s.NormalizeData != nil {
		normalize = *s.NormalizeData
	}
	return meta.SVGDConfig{
		LR:             s.LR,
		NumIterFit:     s.NumIterFit,
		PriorFactor:    s.PriorFactor,
		WeightPriorStd: s.WeightPriorStd,
		BiasPriorStd:   s.BiasPriorStd,
		FeatureDim:     s.FeatureDim,
		CovarModule:    s.CovarModule,
		MeanModule:     s.MeanModule,
		MeanNNLayers:   s.MeanNNLayers,
		KernelNNLayers: s.KernelNNLayers,
		Optimizer:      s.Optimizer,
		Kernel:         s.Kernel,
		Bandwidth:      s.Bandwidth,
		NumParticles:   s.NumParticles,
		NormalizeData:  normalize,
		NoiseVar:       s.NoiseVar,

		PerSampleNormalization: s.PerSampleNormalization,

		RandomSeed: s.RandomSeed,
		LogPeriod:  s.LogPeriod,
	}
}

// File is the top-level YAML document. Exactly one trainer section is
// expected.
type File struct {
	Meta *Meta `yaml:"meta_gp"`
	SVGD *SVGD `yaml:"svgd_gp"`
}

// Decode reads a YAML document from r. Unknown keys are rejected.
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if f.Meta == nil && f.SVGD == nil {
		return nil, fmt.Errorf("config: document has neither meta_gp nor svgd_gp section")
	}
	return &f, nil
}

// Load reads a YAML configuration file from disk.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}
