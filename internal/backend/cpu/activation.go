package cpu

import (
	"math"

	"github.com/born-ml/zoo/internal/parallel"
	"github.com/born-ml/zoo/internal/tensor"
)

// ReLU computes max(0, x) element-wise.
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary(x, func(v float32) float32 {
		if v > 0 {
			return v
		}
		return 0
	})
}

// GELU uses the tanh approximation:
//
//	0.5 * x * (1 + tanh(sqrt(2/π) * (x + 0.044715 * x³)))
func (cpu *CPUBackend) GELU(x *tensor.RawTensor) *tensor.RawTensor {
	const sqrt2OverPi = 0.7978845608028654
	return cpu.unary(x, func(v float32) float32 {
		x64 := float64(v)
		inner := sqrt2OverPi * (x64 + 0.044715*x64*x64*x64)
		return float32(0.5 * x64 * (1 + math.Tanh(inner)))
	})
}

// SiLU computes x * sigmoid(x).
func (cpu *CPUBackend) SiLU(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary(x, func(v float32) float32 {
		return v / (1 + float32(math.Exp(float64(-v))))
	})
}

// unaryChunk is the number of elements each parallel task handles.
const unaryChunk = 1 << 14

func (cpu *CPUBackend) unary(x *tensor.RawTensor, fn func(float32) float32) *tensor.RawTensor {
	result := tensor.MustRaw(x.Shape(), cpu.device)
	src, dst := x.Data(), result.Data()

	chunks := (len(src) + unaryChunk - 1) / unaryChunk
	parallel.For(chunks, func(k int) {
		end := min((k+1)*unaryChunk, len(src))
		for i := k * unaryChunk; i < end; i++ {
			dst[i] = fn(src[i])
		}
	}, cpu.parallel)

	return result
}
