// Copyright 2026 The meta-learning-pacoh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wubeen/meta-learning-pacoh/meta"
)

const metaYAML = `
meta_gp:
  learning_mode: both
  lr: 0.01
  weight_decay: 0.001
  feature_dim: 2
  num_iter_fit: 500
  covar_module: NN
  mean_module: NN
  mean_nn_layers: [32, 32]
  kernel_nn_layers: [16]
  disable_task_size_normalization: true
  random_seed: 42
`

const svgdYAML = `
svgd_gp:
  lr: 0.001
  num_iter_fit: 2000
  prior_factor: 0.01
  kernel: IMQ
  optimizer: SGD
  num_particles: 5
  normalize_data: false
  per_sample_normalization: true
`

func TestDecodeMeta(t *testing.T) {
	f, err := Decode(strings.NewReader(metaYAML))
	require.NoError(t, err)
	require.NotNil(t, f.Meta)
	require.Nil(t, f.SVGD)

	cfg := f.Meta.ToMetaConfig()
	assert.Equal(t, meta.LearnBoth, cfg.LearningMode)
	assert.Equal(t, 0.01, cfg.LRParams)
	assert.Equal(t, 500, cfg.NumIterFit)
	assert.Equal(t, []int{32, 32}, cfg.MeanNNLayers)
	assert.Equal(t, []int{16}, cfg.KernelNNLayers)
	assert.True(t, cfg.DisableTaskSizeNormalization)
	assert.Equal(t, int64(42), cfg.RandomSeed)
	require.NotNil(t, cfg.WeightDecay)
	assert.Equal(t, 0.001, *cfg.WeightDecay)
}

func TestDecodeMetaWeightDecay(t *testing.T) {
	// absent key leaves the choice to the trainer default
	f, err := Decode(strings.NewReader("meta_gp:\n  learning_mode: both\n"))
	require.NoError(t, err)
	assert.Nil(t, f.Meta.ToMetaConfig().WeightDecay)

	// an explicit zero disables decay rather than falling back
	f, err = Decode(strings.NewReader("meta_gp:\n  weight_decay: 0\n"))
	require.NoError(t, err)
	cfg := f.Meta.ToMetaConfig()
	require.NotNil(t, cfg.WeightDecay)
	assert.Equal(t, 0.0, *cfg.WeightDecay)
}

func TestDecodeSVGD(t *testing.T) {
	f, err := Decode(strings.NewReader(svgdYAML))
	require.NoError(t, err)
	require.NotNil(t, f.SVGD)

	cfg := f.SVGD.ToSVGDConfig()
	assert.Equal(t, meta.KernelIMQ, cfg.Kernel)
	assert.Equal(t, meta.OptimizerSGD, cfg.Optimizer)
	assert.Equal(t, 5, cfg.NumParticles)
	assert.False(t, cfg.NormalizeData)
	assert.True(t, cfg.PerSampleNormalization)
}

func TestNormalizeDataDefaultsTrue(t *testing.T) {
	f, err := Decode(strings.NewReader("svgd_gp:\n  num_particles: 3\n"))
	require.NoError(t, err)
	assert.True(t, f.SVGD.ToSVGDConfig().NormalizeData)
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode(strings.NewReader("meta_gp:\n  not_a_key: 1\n"))
	assert.Error(t, err)
}

func TestDecodeRejectsEmptyDocument(t *testing.T) {
	_, err := Decode(strings.NewReader("{}\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trainer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(svgdYAML), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.NotNil(t, f.SVGD)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
