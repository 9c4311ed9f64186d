package vgg

import (
	"fmt"
	"math"

	"github.com/born-ml/zoo/internal/checkpoint"
	"github.com/born-ml/zoo/internal/nn"
	"github.com/born-ml/zoo/internal/tensor"
)

// ConvMlp is the VGG head adapter: the two hidden fully connected layers of
// the original classifier expressed as convolutions.
//
//	fc1: k×k conv in -> mid, act1, dropout
//	fc2: 1×1 conv mid -> out, act2
//
// On a k×k input it computes exactly the flat two-layer MLP; larger inputs
// yield a spatial map of embeddings. Inputs smaller than k along either side
// are first average-pooled up to max(k, side).
//
// The size check is data dependent, so ConvMlp reports itself as a Leaf.
type ConvMlp[B tensor.Backend] struct {
	kernelSize  int
	inFeatures  int
	midFeatures int
	outFeatures int

	fc1  nn.Module[B]
	act1 nn.Module[B]
	drop *nn.Dropout[B]
	fc2  nn.Module[B]
	act2 nn.Module[B]

	backend B
}

// NewConvMlp creates the adapter; mid width is round(out * mlpRatio).
func NewConvMlp[B tensor.Backend](in, out, kernelSize int, mlpRatio, dropRate float64, f LayerFactory[B], backend B) *ConvMlp[B] {
	mid := int(math.Round(float64(out) * mlpRatio))
	if mid <= 0 {
		panic(fmt.Sprintf("convmlp: mlp ratio %g gives no hidden units for %d outputs", mlpRatio, out))
	}

	return &ConvMlp[B]{
		kernelSize:  kernelSize,
		inFeatures:  in,
		midFeatures: mid,
		outFeatures: out,
		fc1:         f.Conv(in, mid, kernelSize, 0, backend),
		act1:        f.Act(),
		drop:        nn.NewDropout[B](dropRate),
		fc2:         f.Conv(mid, out, 1, 0, backend),
		act2:        f.Act(),
		backend:     backend,
	}
}

// Forward maps [N, in, H, W] to [N, out, max(k,H)-k+1, max(k,W)-k+1].
func (m *ConvMlp[B]) Forward(x *tensor.Tensor[B]) *tensor.Tensor[B] {
	shape := x.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("convmlp: expected 4D input [N,C,H,W], got %dD", len(shape)))
	}

	h, w := shape[2], shape[3]
	if h < m.kernelSize || w < m.kernelSize {
		x = tensor.New(m.backend.AdaptiveAvgPool2D(x.Raw(), max(m.kernelSize, h), max(m.kernelSize, w)), m.backend)
	}

	x = m.fc1.Forward(x)
	x = m.act1.Forward(x)
	x = m.drop.Forward(x)
	x = m.fc2.Forward(x)
	return m.act2.Forward(x)
}

// IsLeaf implements nn.Leaf.
func (m *ConvMlp[B]) IsLeaf() bool {
	return true
}

// Children implements nn.Container.
func (m *ConvMlp[B]) Children() []nn.Child[B] {
	return []nn.Child[B]{
		{Name: "fc1", Module: m.fc1},
		{Name: "act1", Module: m.act1},
		{Name: "drop", Module: m.drop},
		{Name: "fc2", Module: m.fc2},
		{Name: "act2", Module: m.act2},
	}
}

// Parameters returns fc1 and fc2 parameters.
func (m *ConvMlp[B]) Parameters() []*nn.Parameter[B] {
	return nn.ChildrenParameters(m.Children())
}

// StateDict returns fc1.* and fc2.* tensors.
func (m *ConvMlp[B]) StateDict() *checkpoint.StateDict {
	return nn.ChildrenState(m.Children())
}

// KernelSize returns the nominal receptive field of fc1.
func (m *ConvMlp[B]) KernelSize() int { return m.kernelSize }

// MidFeatures returns the hidden width.
func (m *ConvMlp[B]) MidFeatures() int { return m.midFeatures }

// OutFeatures returns the embedding width.
func (m *ConvMlp[B]) OutFeatures() int { return m.outFeatures }

func (m *ConvMlp[B]) String() string {
	return fmt.Sprintf("ConvMlp(in=%d, mid=%d, out=%d, kernel_size=%d, drop=%g)",
		m.inFeatures, m.midFeatures, m.outFeatures, m.kernelSize, m.drop.P())
}
