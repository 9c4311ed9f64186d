package nn

import (
	"fmt"

	"github.com/born-ml/zoo/internal/checkpoint"
	"github.com/born-ml/zoo/internal/tensor"
)

// BatchNormEps is the default numerical-stability epsilon.
const BatchNormEps = 1e-5

// BatchNorm2D normalizes each channel of a [N, C, H, W] input.
//
//	y = (x - mean) / sqrt(var + eps) * weight + bias
//
// In eval mode (the default) mean and var are the running statistics loaded
// from a checkpoint. In training mode the current batch's statistics are used;
// running statistics are not updated since nothing in this module trains.
//
// State dict keys: weight, bias, running_mean, running_var, num_batches_tracked.
type BatchNorm2D[B tensor.Backend] struct {
	numFeatures int
	eps         float32
	training    bool

	weight *Parameter[B] // gamma [C]
	bias   *Parameter[B] // beta [C]

	runningMean       *Parameter[B] // [C]
	runningVar        *Parameter[B] // [C]
	numBatchesTracked *Parameter[B] // scalar

	backend B
}

// NewBatchNorm2D creates a BatchNorm2D layer with weight=1, bias=0,
// running_mean=0 and running_var=1.
func NewBatchNorm2D[B tensor.Backend](numFeatures int, backend B) *BatchNorm2D[B] {
	if numFeatures <= 0 {
		panic(fmt.Sprintf("batchnorm2d: invalid num_features %d", numFeatures))
	}
	shape := tensor.Shape{numFeatures}
	return &BatchNorm2D[B]{
		numFeatures:       numFeatures,
		eps:               BatchNormEps,
		weight:            NewParameter("weight", tensor.Ones(shape, backend)),
		bias:              NewParameter("bias", tensor.Zeros(shape, backend)),
		runningMean:       NewParameter("running_mean", tensor.Zeros(shape, backend)),
		runningVar:        NewParameter("running_var", tensor.Ones(shape, backend)),
		numBatchesTracked: NewParameter("num_batches_tracked", tensor.Zeros(tensor.Shape{}, backend)),
		backend:           backend,
	}
}

// Forward normalizes the input.
func (bn *BatchNorm2D[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("batchnorm2d: expected 4D input [N,C,H,W], got %dD", len(shape)))
	}
	if shape[1] != bn.numFeatures {
		panic(fmt.Sprintf("batchnorm2d: input channels %d != expected %d", shape[1], bn.numFeatures))
	}

	mean, variance := bn.runningMean.Raw(), bn.runningVar.Raw()
	if bn.training {
		mean, variance = bn.backend.ChannelMoments(input.Raw())
	}

	out := bn.backend.BatchNorm2D(input.Raw(), mean, variance, bn.weight.Raw(), bn.bias.Raw(), bn.eps)
	return tensor.New(out, bn.backend)
}

// SetTraining implements Trainable.
func (bn *BatchNorm2D[B]) SetTraining(training bool) {
	bn.training = training
}

// Training reports whether batch statistics are used.
func (bn *BatchNorm2D[B]) Training() bool {
	return bn.training
}

// Parameters returns [weight, bias].
func (bn *BatchNorm2D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{bn.weight, bn.bias}
}

// StateDict returns the affine parameters followed by the running buffers.
func (bn *BatchNorm2D[B]) StateDict() *checkpoint.StateDict {
	return stateOf(bn.weight, bn.bias, bn.runningMean, bn.runningVar, bn.numBatchesTracked)
}

// Weight returns the scale parameter.
func (bn *BatchNorm2D[B]) Weight() *Parameter[B] {
	return bn.weight
}

// Bias returns the shift parameter.
func (bn *BatchNorm2D[B]) Bias() *Parameter[B] {
	return bn.bias
}

// NumFeatures returns the channel count.
func (bn *BatchNorm2D[B]) NumFeatures() int {
	return bn.numFeatures
}

// String returns a string representation of the layer.
func (bn *BatchNorm2D[B]) String() string {
	return fmt.Sprintf("BatchNorm2D(%d, eps=%g)", bn.numFeatures, bn.eps)
}
