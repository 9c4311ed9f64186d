package nn

import (
	"fmt"

	"github.com/born-ml/zoo/internal/tensor"
)

// MaxPool2D is a 2D max pooling layer.
//
// Input shape:  [batch, channels, height, width]
// Output shape: [batch, channels, out_height, out_width]
//
// Where:
//
//	out_height = (height - kernel_size) / stride + 1
//	out_width = (width - kernel_size) / stride + 1
//
// Example:
//
//	pool := nn.NewMaxPool2D(2, 2, backend)
//	output := pool.Forward(input) // [N, C, 112, 112] for a 224x224 input
type MaxPool2D[B tensor.Backend] struct {
	stateless[B]
	kernelSize int
	stride     int
	backend    B
}

// NewMaxPool2D creates a new 2D max pooling layer.
func NewMaxPool2D[B tensor.Backend](kernelSize, stride int, backend B) *MaxPool2D[B] {
	if kernelSize <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid kernel size %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid stride %d", stride))
	}

	return &MaxPool2D[B]{
		kernelSize: kernelSize,
		stride:     stride,
		backend:    backend,
	}
}

// Forward performs max pooling.
func (m *MaxPool2D[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	return tensor.New(m.backend.MaxPool2D(input.Raw(), m.kernelSize, m.stride), m.backend)
}

// String returns a string representation of the layer.
func (m *MaxPool2D[B]) String() string {
	return fmt.Sprintf("MaxPool2D(kernel_size=%d, stride=%d)", m.kernelSize, m.stride)
}

// KernelSize returns the pooling window size.
func (m *MaxPool2D[B]) KernelSize() int {
	return m.kernelSize
}

// Stride returns the stride.
func (m *MaxPool2D[B]) Stride() int {
	return m.stride
}

// AdaptiveAvgPool2D averages variable windows to a fixed output size.
type AdaptiveAvgPool2D[B tensor.Backend] struct {
	stateless[B]
	outH, outW int
	backend    B
}

// NewAdaptiveAvgPool2D creates an adaptive average pool producing outH x outW.
func NewAdaptiveAvgPool2D[B tensor.Backend](outH, outW int, backend B) *AdaptiveAvgPool2D[B] {
	if outH <= 0 || outW <= 0 {
		panic(fmt.Sprintf("adaptive_avg_pool2d: invalid output size %dx%d", outH, outW))
	}
	return &AdaptiveAvgPool2D[B]{outH: outH, outW: outW, backend: backend}
}

// Forward performs adaptive average pooling.
func (p *AdaptiveAvgPool2D[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	return tensor.New(p.backend.AdaptiveAvgPool2D(input.Raw(), p.outH, p.outW), p.backend)
}

func (p *AdaptiveAvgPool2D[B]) String() string {
	return fmt.Sprintf("AdaptiveAvgPool2D(output_size=(%d, %d))", p.outH, p.outW)
}

// AdaptiveMaxPool2D takes the maximum over variable windows.
type AdaptiveMaxPool2D[B tensor.Backend] struct {
	stateless[B]
	outH, outW int
	backend    B
}

// NewAdaptiveMaxPool2D creates an adaptive max pool producing outH x outW.
func NewAdaptiveMaxPool2D[B tensor.Backend](outH, outW int, backend B) *AdaptiveMaxPool2D[B] {
	if outH <= 0 || outW <= 0 {
		panic(fmt.Sprintf("adaptive_max_pool2d: invalid output size %dx%d", outH, outW))
	}
	return &AdaptiveMaxPool2D[B]{outH: outH, outW: outW, backend: backend}
}

// Forward performs adaptive max pooling.
func (p *AdaptiveMaxPool2D[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	return tensor.New(p.backend.AdaptiveMaxPool2D(input.Raw(), p.outH, p.outW), p.backend)
}

func (p *AdaptiveMaxPool2D[B]) String() string {
	return fmt.Sprintf("AdaptiveMaxPool2D(output_size=(%d, %d))", p.outH, p.outW)
}
