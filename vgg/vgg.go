// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package vgg

import (
	"context"

	"github.com/born-ml/zoo/internal/checkpoint"
	"github.com/born-ml/zoo/internal/vgg"
	"github.com/born-ml/zoo/tensor"
)

// Model is a VGG classifier.
type Model[B tensor.Backend] = vgg.Model[B]

// FeatureExtractor returns intermediate feature maps.
type FeatureExtractor[B tensor.Backend] = vgg.FeatureExtractor[B]

// StageInfo describes one feature-extraction point.
type StageInfo = vgg.StageInfo

// Variant is a registered model name with its pretrained metadata.
type Variant = vgg.Variant

// PretrainedCfg is the metadata published with a pretrained weight set.
type PretrainedCfg = vgg.PretrainedCfg

// PoolKind selects the classifier's global pooling.
type PoolKind = vgg.PoolKind

// Pool kinds.
const (
	PoolAvg       = vgg.PoolAvg
	PoolMax       = vgg.PoolMax
	PoolAvgMax    = vgg.PoolAvgMax
	PoolCatAvgMax = vgg.PoolCatAvgMax
	PoolNone      = vgg.PoolNone
)

// Config fully determines a built model.
type Config = vgg.Config

// Option configures model creation.
type Option = vgg.Option

// WeightSource resolves pretrained weights for a variant name.
type WeightSource = checkpoint.WeightSource

// DirSource loads "<variant>.safetensors", ".pth" or ".bin" from a directory.
type DirSource = checkpoint.DirSource

// Errors.
var (
	ErrUnknownModel      = vgg.ErrUnknownModel
	ErrOutputStride      = vgg.ErrOutputStride
	ErrGradCheckpointing = vgg.ErrGradCheckpointing
	ErrNoWeightSource    = vgg.ErrNoWeightSource
	ErrPoolKind          = vgg.ErrPoolKind
	ErrOutIndex          = vgg.ErrOutIndex
	ErrConfig            = vgg.ErrConfig
)

// Options.
var (
	WithNumClasses       = vgg.WithNumClasses
	WithInChannels       = vgg.WithInChannels
	WithOutputStride     = vgg.WithOutputStride
	WithMLPRatio         = vgg.WithMLPRatio
	WithGlobalPool       = vgg.WithGlobalPool
	WithDropRate         = vgg.WithDropRate
	WithConv             = vgg.WithConv
	WithNorm             = vgg.WithNorm
	WithAct              = vgg.WithAct
	WithPretrained       = vgg.WithPretrained
	WithPretrainedStrict = vgg.WithPretrainedStrict
	WithOutIndices       = vgg.WithOutIndices
)

// DefaultConfig returns the ImageNet classifier configuration.
func DefaultConfig() Config {
	return vgg.DefaultConfig()
}

// Create builds a model by name, e.g. "vgg16_bn" or "vgg16_bn.tv_in1k".
func Create[B tensor.Backend](ctx context.Context, name string, backend B, opts ...Option) (*Model[B], error) {
	return vgg.Create(ctx, name, backend, opts...)
}

// CreateFeatureExtractor builds a model by name and returns its
// multi-scale feature extractor.
func CreateFeatureExtractor[B tensor.Backend](ctx context.Context, name string, backend B, opts ...Option) (*FeatureExtractor[B], error) {
	return vgg.CreateFeatureExtractor(ctx, name, backend, opts...)
}

// List returns registered names matching a path.Match pattern.
func List(pattern string) ([]string, error) {
	return vgg.List(pattern)
}

// Lookup resolves a model name.
func Lookup(name string) (Variant, error) {
	return vgg.Lookup(name)
}

// Variants returns all registered variants in registration order.
func Variants() []Variant {
	return vgg.Variants()
}
