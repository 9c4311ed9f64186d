package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/zoo/internal/tensor"
)

// raw builds a RawTensor from literal values.
func raw(t *testing.T, data []float32, shape ...int) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.RawFromSlice(data, tensor.Shape(shape), tensor.CPU)
	require.NoError(t, err)
	return r
}

func TestCPUBackend_New(t *testing.T) {
	backend := New()
	assert.Equal(t, "CPU", backend.Name())
	assert.Equal(t, tensor.CPU, backend.Device())
}

func TestCPUBackend_Add(t *testing.T) {
	backend := New()

	a := raw(t, []float32{1, 2, 3, 4}, 2, 2)
	b := raw(t, []float32{10, 20, 30, 40}, 2, 2)
	assert.Equal(t, []float32{11, 22, 33, 44}, backend.Add(a, b).Data())
}

func TestCPUBackend_AddBroadcasting(t *testing.T) {
	backend := New()

	// [2, 3] + [3] adds a bias row to every sample.
	a := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	bias := raw(t, []float32{10, 20, 30}, 3)
	out := backend.Add(a, bias)
	assert.Equal(t, tensor.Shape{2, 3}, out.Shape())
	assert.Equal(t, []float32{11, 22, 33, 14, 25, 36}, out.Data())

	// [1, 2, 2, 2] + [1, 2, 1, 1] adds a per-channel constant.
	x := raw(t, []float32{0, 0, 0, 0, 1, 1, 1, 1}, 1, 2, 2, 2)
	c := raw(t, []float32{5, 7}, 1, 2, 1, 1)
	assert.Equal(t, []float32{5, 5, 5, 5, 8, 8, 8, 8}, backend.Add(x, c).Data())

	assert.Panics(t, func() {
		backend.Add(raw(t, []float32{1, 2, 3}, 3), raw(t, []float32{1, 2}, 2))
	})
}

func TestCPUBackend_Mul(t *testing.T) {
	backend := New()

	a := raw(t, []float32{1, 2, 3, 4}, 2, 2)
	s := raw(t, []float32{2}, 1)
	assert.Equal(t, []float32{2, 4, 6, 8}, backend.Mul(a, s).Data())
}

func TestCPUBackend_MatMul(t *testing.T) {
	backend := New()

	// [2, 3] @ [3, 2]
	a := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	b := raw(t, []float32{7, 8, 9, 10, 11, 12}, 3, 2)
	out := backend.MatMul(a, b)
	assert.Equal(t, tensor.Shape{2, 2}, out.Shape())
	assert.Equal(t, []float32{58, 64, 139, 154}, out.Data())

	assert.Panics(t, func() { backend.MatMul(a, a) })
}

func TestCPUBackend_MatMulTransposed(t *testing.T) {
	backend := New()

	a := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	// bT is b from TestCPUBackend_MatMul stored as [2, 3].
	bT := raw(t, []float32{7, 9, 11, 8, 10, 12}, 2, 3)
	out := backend.MatMulTransposed(a, bT)
	assert.Equal(t, tensor.Shape{2, 2}, out.Shape())
	assert.Equal(t, []float32{58, 64, 139, 154}, out.Data())

	assert.Panics(t, func() { backend.MatMulTransposed(a, raw(t, []float32{1, 2}, 1, 2)) })
}

func TestCPUBackend_Activations(t *testing.T) {
	backend := New()
	x := raw(t, []float32{-2, -0.5, 0, 0.5, 2}, 5)

	assert.Equal(t, []float32{0, 0, 0, 0.5, 2}, backend.ReLU(x).Data())

	gelu := backend.GELU(x).Data()
	assert.InDelta(t, -0.0454, gelu[0], 1e-3)
	assert.InDelta(t, 0, gelu[2], 1e-7)
	assert.InDelta(t, 1.9546, gelu[4], 1e-3)

	silu := backend.SiLU(x).Data()
	assert.InDelta(t, -0.2384, silu[0], 1e-3)
	assert.InDelta(t, 0, silu[2], 1e-7)
	assert.InDelta(t, 1.7616, silu[4], 1e-3)

	// Input is never modified.
	assert.Equal(t, []float32{-2, -0.5, 0, 0.5, 2}, x.Data())
}

func TestCPUBackend_ReLULargeInputParallel(t *testing.T) {
	n := 3*unaryChunk + 7
	data := make([]float32, n)
	for i := range data {
		data[i] = float32(i%5) - 2
	}
	x := raw(t, data, n)

	par := New().ReLU(x).Data()
	seq := NewSequential().ReLU(x).Data()
	assert.Equal(t, seq, par)
}

func TestCPUBackend_ChannelMoments(t *testing.T) {
	backend := New()

	// N=2, C=2, H=1, W=2
	x := raw(t, []float32{
		1, 3, // n0 c0
		10, 10, // n0 c1
		5, 7, // n1 c0
		10, 10, // n1 c1
	}, 2, 2, 1, 2)

	mean, variance := backend.ChannelMoments(x)
	assert.Equal(t, []float32{4, 10}, mean.Data())
	assert.Equal(t, []float32{5, 0}, variance.Data())
}

func TestCPUBackend_BatchNorm2D(t *testing.T) {
	backend := New()

	x := raw(t, []float32{1, 2, 3, 4, 10, 20, 30, 40}, 1, 2, 2, 2)
	mean := raw(t, []float32{2, 0}, 2)
	variance := raw(t, []float32{4, 1}, 2)
	weight := raw(t, []float32{1, 2}, 2)
	bias := raw(t, []float32{0, 1}, 2)

	out := backend.BatchNorm2D(x, mean, variance, weight, bias, 0).Data()
	assert.InDeltaSlice(t, []float32{-0.5, 0, 0.5, 1}, out[:4], 1e-6)
	assert.InDeltaSlice(t, []float32{21, 41, 61, 81}, out[4:], 1e-5)

	assert.Panics(t, func() {
		backend.BatchNorm2D(x, raw(t, []float32{1}, 1), variance, weight, bias, 1e-5)
	})
}
