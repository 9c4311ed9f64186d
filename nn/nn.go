// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/zoo/internal/nn"
	"github.com/born-ml/zoo/tensor"
)

// Layers

// Linear represents a fully connected (dense) layer.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a new linear layer with Xavier initialization.
//
// Example:
//
//	backend := cpu.New()
//	layer := nn.NewLinear(784, 128, backend)
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, backend)
}

// Conv2D represents a 2D convolutional layer.
type Conv2D[B tensor.Backend] = nn.Conv2D[B]

// NewConv2D creates a new 2D convolutional layer.
//
// Example:
//
//	backend := cpu.New()
//	conv := nn.NewConv2D(3, 64, 3, 3, 1, 1, true, backend)  // in=3, out=64, kernel=3x3, stride=1, padding=1, useBias=true
func NewConv2D[B tensor.Backend](
	inChannels, outChannels int,
	kernelH, kernelW int,
	stride, padding int,
	useBias bool,
	backend B,
) *Conv2D[B] {
	return nn.NewConv2D(inChannels, outChannels, kernelH, kernelW, stride, padding, useBias, backend)
}

// BatchNorm2D normalizes each channel of a [N, C, H, W] input.
type BatchNorm2D[B tensor.Backend] = nn.BatchNorm2D[B]

// NewBatchNorm2D creates a batch norm layer with unit scale and zero shift.
func NewBatchNorm2D[B tensor.Backend](numFeatures int, backend B) *BatchNorm2D[B] {
	return nn.NewBatchNorm2D(numFeatures, backend)
}

// MaxPool2D represents a 2D max pooling layer.
type MaxPool2D[B tensor.Backend] = nn.MaxPool2D[B]

// NewMaxPool2D creates a new 2D max pooling layer.
func NewMaxPool2D[B tensor.Backend](kernelSize, stride int, backend B) *MaxPool2D[B] {
	return nn.NewMaxPool2D(kernelSize, stride, backend)
}

// AdaptiveAvgPool2D averages over variable windows to a fixed output size.
type AdaptiveAvgPool2D[B tensor.Backend] = nn.AdaptiveAvgPool2D[B]

// NewAdaptiveAvgPool2D creates an adaptive average pool.
func NewAdaptiveAvgPool2D[B tensor.Backend](outH, outW int, backend B) *AdaptiveAvgPool2D[B] {
	return nn.NewAdaptiveAvgPool2D(outH, outW, backend)
}

// AdaptiveMaxPool2D takes the max over variable windows.
type AdaptiveMaxPool2D[B tensor.Backend] = nn.AdaptiveMaxPool2D[B]

// NewAdaptiveMaxPool2D creates an adaptive max pool.
func NewAdaptiveMaxPool2D[B tensor.Backend](outH, outW int, backend B) *AdaptiveMaxPool2D[B] {
	return nn.NewAdaptiveMaxPool2D(outH, outW, backend)
}

// Activations

// ReLU applies max(0, x).
type ReLU[B tensor.Backend] = nn.ReLU[B]

// NewReLU creates a ReLU activation.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return nn.NewReLU[B]()
}

// GELU applies the tanh-approximated Gaussian error linear unit.
type GELU[B tensor.Backend] = nn.GELU[B]

// NewGELU creates a GELU activation.
func NewGELU[B tensor.Backend]() *GELU[B] {
	return nn.NewGELU[B]()
}

// SiLU applies x * sigmoid(x).
type SiLU[B tensor.Backend] = nn.SiLU[B]

// NewSiLU creates a SiLU activation.
func NewSiLU[B tensor.Backend]() *SiLU[B] {
	return nn.NewSiLU[B]()
}

// NewActivation creates an activation by name: "relu", "gelu", "silu".
func NewActivation[B tensor.Backend](name string) (Module[B], error) {
	return nn.NewActivation[B](name)
}

// Utilities

// Dropout zeroes elements with probability p in training mode.
type Dropout[B tensor.Backend] = nn.Dropout[B]

// NewDropout creates a dropout layer.
func NewDropout[B tensor.Backend](p float64) *Dropout[B] {
	return nn.NewDropout[B](p)
}

// Flatten collapses all dimensions from a start dimension onwards.
type Flatten[B tensor.Backend] = nn.Flatten[B]

// NewFlatten creates a Flatten module.
func NewFlatten[B tensor.Backend](startDim int) *Flatten[B] {
	return nn.NewFlatten[B](startDim)
}

// Identity returns its input.
type Identity[B tensor.Backend] = nn.Identity[B]

// NewIdentity creates an Identity module.
func NewIdentity[B tensor.Backend]() *Identity[B] {
	return nn.NewIdentity[B]()
}

// Sequential is a container that chains modules together.
//
// Example:
//
//	backend := cpu.New()
//	model := nn.NewSequential[*cpu.Backend](
//	    nn.NewConv2D(3, 8, 3, 3, 1, 1, true, backend),
//	    nn.NewReLU[*cpu.Backend](),
//	)
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential creates a new sequential container.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(modules...)
}

// Initialization

// Xavier returns a tensor drawn from the Glorot uniform distribution.
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[B] {
	return nn.Xavier(fanIn, fanOut, shape, backend)
}

// KaimingNormalFanOut fills w with N(0, 2/fan_out).
func KaimingNormalFanOut[B tensor.Backend](w *tensor.Tensor[B]) {
	nn.KaimingNormalFanOut(w)
}
