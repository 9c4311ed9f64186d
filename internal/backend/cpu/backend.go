// Package cpu implements the CPU compute backend on top of gonum BLAS.
package cpu

import (
	"fmt"

	"github.com/born-ml/zoo/internal/parallel"
	"github.com/born-ml/zoo/internal/tensor"
)

// CPUBackend implements tensor.Backend on the CPU.
//
// Matrix products go through gonum's blas32; convolution is im2col + GEMM.
// Per-plane kernels (pooling, normalization) are spread over goroutines with
// the parallel package; results do not depend on scheduling.
type CPUBackend struct {
	device   tensor.Device
	parallel parallel.Config
}

var _ tensor.Backend = (*CPUBackend)(nil)

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{
		device:   tensor.CPU,
		parallel: parallel.DefaultConfig(),
	}
}

// NewSequential creates a CPU backend that never spawns goroutines.
func NewSequential() *CPUBackend {
	return &CPUBackend{
		device:   tensor.CPU,
		parallel: parallel.Sequential(),
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b, func(x, y float32) float32 { return x + y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b, func(x, y float32) float32 { return x * y })
}

func (cpu *CPUBackend) binary(op string, a, b *tensor.RawTensor, fn func(x, y float32) float32) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}

	result := tensor.MustRaw(outShape, cpu.device)
	out := result.Data()
	aData, bData := a.Data(), b.Data()

	// Fast path: identical shapes
	if !needsBroadcast {
		for i := range out {
			out[i] = fn(aData[i], bData[i])
		}
		return result
	}

	aStrides := broadcastStrides(a.Shape(), outShape)
	bStrides := broadcastStrides(b.Shape(), outShape)
	ndim := len(outShape)
	index := make([]int, ndim)

	for i := range out {
		aOff, bOff := 0, 0
		for d := 0; d < ndim; d++ {
			aOff += index[d] * aStrides[d]
			bOff += index[d] * bStrides[d]
		}
		out[i] = fn(aData[aOff], bData[bOff])

		// Advance the multi-dimensional index (row-major)
		for d := ndim - 1; d >= 0; d-- {
			index[d]++
			if index[d] < outShape[d] {
				break
			}
			index[d] = 0
		}
	}

	return result
}

// broadcastStrides returns strides of shape aligned to outShape,
// with 0 for broadcast (size-1 or missing) dimensions.
func broadcastStrides(shape, outShape tensor.Shape) []int {
	strides := make([]int, len(outShape))
	own := shape.ComputeStrides()
	offset := len(outShape) - len(shape)
	for i := range shape {
		if shape[i] != 1 {
			strides[offset+i] = own[i]
		}
	}
	return strides
}
