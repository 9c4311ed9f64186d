package vgg

import (
	"errors"
	"fmt"
	"math"

	"github.com/born-ml/zoo/internal/checkpoint"
)

// ErrConfig is returned by Create for option values no model can be built from.
var ErrConfig = errors.New("invalid vgg config")

// Config fully determines a built model.
type Config struct {
	NumClasses   int
	InChannels   int
	OutputStride int
	MLPRatio     float64
	GlobalPool   PoolKind
	DropRate     float64

	Conv string // ConvDefault
	Norm string // NormNone, NormBatchNorm
	Act  string // nn.ActReLU, nn.ActGELU, nn.ActSiLU

	Pretrained       bool
	PretrainedStrict bool
	WeightSource     checkpoint.WeightSource

	OutIndices []int // feature extraction points, default all six
}

// DefaultConfig returns the ImageNet classifier configuration.
func DefaultConfig() Config {
	return Config{
		NumClasses:       1000,
		InChannels:       3,
		OutputStride:     32,
		MLPRatio:         1.0,
		GlobalPool:       PoolAvg,
		DropRate:         0,
		Conv:             ConvDefault,
		Norm:             NormNone,
		Act:              "relu",
		PretrainedStrict: true,
		OutIndices:       []int{0, 1, 2, 3, 4, 5},
	}
}

// validate rejects what NewModel would otherwise panic on.
func (c Config) validate() error {
	if c.OutputStride != 32 {
		return fmt.Errorf("%w: got %d", ErrOutputStride, c.OutputStride)
	}
	if c.InChannels <= 0 {
		return fmt.Errorf("%w: in_chans %d", ErrConfig, c.InChannels)
	}
	if c.DropRate < 0 || c.DropRate >= 1 {
		return fmt.Errorf("%w: drop rate %g not in [0, 1)", ErrConfig, c.DropRate)
	}
	if mid := math.Round(HeadHiddenSize * c.MLPRatio); mid < 1 || math.IsNaN(mid) {
		return fmt.Errorf("%w: mlp ratio %g leaves no hidden features", ErrConfig, c.MLPRatio)
	}
	return nil
}

// Option configures model creation.
type Option func(*Config)

// WithNumClasses sets the classifier width; 0 removes the classifier.
func WithNumClasses(n int) Option {
	return func(c *Config) { c.NumClasses = n }
}

// WithInChannels sets the input channel count.
func WithInChannels(n int) Option {
	return func(c *Config) { c.InChannels = n }
}

// WithOutputStride requests a feature stride. Only 32 is supported.
func WithOutputStride(s int) Option {
	return func(c *Config) { c.OutputStride = s }
}

// WithMLPRatio scales the ConvMlp hidden width.
func WithMLPRatio(r float64) Option {
	return func(c *Config) { c.MLPRatio = r }
}

// WithGlobalPool sets the classifier pooling.
func WithGlobalPool(k PoolKind) Option {
	return func(c *Config) { c.GlobalPool = k }
}

// WithDropRate sets the dropout rate of the ConvMlp and the head.
func WithDropRate(p float64) Option {
	return func(c *Config) { c.DropRate = p }
}

// WithConv selects the convolution kind.
func WithConv(kind string) Option {
	return func(c *Config) { c.Conv = kind }
}

// WithNorm selects the normalization kind, overriding the variant's.
func WithNorm(kind string) Option {
	return func(c *Config) { c.Norm = kind }
}

// WithAct selects the activation kind.
func WithAct(kind string) Option {
	return func(c *Config) { c.Act = kind }
}

// WithPretrained loads weights from src after building.
func WithPretrained(src checkpoint.WeightSource) Option {
	return func(c *Config) {
		c.Pretrained = true
		c.WeightSource = src
	}
}

// WithPretrainedStrict controls whether key mismatches fail a pretrained load.
func WithPretrainedStrict(strict bool) Option {
	return func(c *Config) { c.PretrainedStrict = strict }
}

// WithOutIndices selects the feature extraction points.
func WithOutIndices(indices ...int) Option {
	return func(c *Config) { c.OutIndices = append([]int(nil), indices...) }
}
