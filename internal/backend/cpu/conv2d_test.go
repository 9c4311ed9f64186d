package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/zoo/internal/tensor"
)

// naiveConv2D is a direct six-loop convolution used as a reference.
func naiveConv2D(input, kernel *tensor.RawTensor, stride, padding int) []float32 {
	is, ks := input.Shape(), kernel.Shape()
	N, C, H, W := is[0], is[1], is[2], is[3]
	CO, KH, KW := ks[0], ks[2], ks[3]
	HO := (H+2*padding-KH)/stride + 1
	WO := (W+2*padding-KW)/stride + 1
	in, k := input.Data(), kernel.Data()

	out := make([]float32, N*CO*HO*WO)
	for n := 0; n < N; n++ {
		for co := 0; co < CO; co++ {
			for oh := 0; oh < HO; oh++ {
				for ow := 0; ow < WO; ow++ {
					var sum float64
					for c := 0; c < C; c++ {
						for kh := 0; kh < KH; kh++ {
							for kw := 0; kw < KW; kw++ {
								h := oh*stride - padding + kh
								w := ow*stride - padding + kw
								if h < 0 || h >= H || w < 0 || w >= W {
									continue
								}
								sum += float64(in[((n*C+c)*H+h)*W+w]) * float64(k[((co*C+c)*KH+kh)*KW+kw])
							}
						}
					}
					out[((n*CO+co)*HO+oh)*WO+ow] = float32(sum)
				}
			}
		}
	}
	return out
}

func TestConv2D_BasicForward(t *testing.T) {
	backend := New()

	// 1 2 3
	// 4 5 6
	// 7 8 9
	input := raw(t, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, 1, 1, 3, 3)
	// Diagonal kernel:
	// 1 0
	// 0 1
	kernel := raw(t, []float32{1, 0, 0, 1}, 1, 1, 2, 2)

	output := backend.Conv2D(input, kernel, 1, 0)
	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, output.Shape())
	assert.Equal(t, []float32{6, 8, 12, 14}, output.Data())
}

func TestConv2D_WithPadding(t *testing.T) {
	backend := New()

	input := raw(t, []float32{1, 2, 3, 4}, 1, 1, 2, 2)
	kernel := raw(t, []float32{1, 1, 1, 1, 1, 1, 1, 1, 1}, 1, 1, 3, 3)

	// 3x3 box filter with padding 1 keeps the spatial size; every output sums
	// the whole 2x2 image.
	output := backend.Conv2D(input, kernel, 1, 1)
	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, output.Shape())
	assert.Equal(t, []float32{10, 10, 10, 10}, output.Data())
}

func TestConv2D_WithStride(t *testing.T) {
	backend := New()

	data := make([]float32, 16)
	for i := range data {
		data[i] = float32(i)
	}
	input := raw(t, data, 1, 1, 4, 4)
	kernel := raw(t, []float32{1}, 1, 1, 1, 1)

	output := backend.Conv2D(input, kernel, 2, 0)
	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, output.Shape())
	assert.Equal(t, []float32{0, 2, 8, 10}, output.Data())
}

func TestConv2D_MatchesNaive(t *testing.T) {
	tests := []struct {
		name                  string
		n, c, h, w, co, k     int
		stride, padding       int
	}{
		{"3x3 same", 2, 3, 6, 5, 4, 3, 1, 1},
		{"strided", 1, 2, 7, 7, 3, 3, 2, 0},
		{"full window", 3, 4, 7, 7, 5, 7, 1, 0},
		{"pointwise", 2, 6, 3, 4, 2, 1, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewSequential()
			input := tensor.Randn[*CPUBackend](tensor.Shape{tt.n, tt.c, tt.h, tt.w}, b).Raw()
			kernel := tensor.Randn[*CPUBackend](tensor.Shape{tt.co, tt.c, tt.k, tt.k}, b).Raw()

			got := New().Conv2D(input, kernel, tt.stride, tt.padding)
			want := naiveConv2D(input, kernel, tt.stride, tt.padding)
			require.Len(t, got.Data(), len(want))
			assert.InDeltaSlice(t, want, got.Data(), 1e-4)
		})
	}
}

// A full-window convolution is exactly the matrix product of the flattened
// input with the flattened kernel.
func TestConv2D_FullWindowEqualsMatMulTransposed(t *testing.T) {
	b := New()
	const n, c, k, co = 2, 4, 7, 6

	input := tensor.Randn[*CPUBackend](tensor.Shape{n, c, k, k}, b).Raw()
	kernel := tensor.Randn[*CPUBackend](tensor.Shape{co, c, k, k}, b).Raw()

	conv := b.Conv2D(input, kernel, 1, 0)

	flatIn, err := input.Reshape(tensor.Shape{n, -1})
	require.NoError(t, err)
	flatK, err := kernel.Reshape(tensor.Shape{co, -1})
	require.NoError(t, err)
	linear := b.MatMulTransposed(flatIn, flatK)

	assert.Equal(t, linear.Data(), conv.Data())
}

func TestConv2D_Panics(t *testing.T) {
	backend := New()
	input := raw(t, make([]float32, 9), 1, 1, 3, 3)

	assert.Panics(t, func() { backend.Conv2D(input, raw(t, make([]float32, 8), 1, 2, 2, 2), 1, 0) }, "channel mismatch")
	assert.Panics(t, func() { backend.Conv2D(input, raw(t, make([]float32, 16), 1, 1, 4, 4), 1, 0) }, "kernel larger than input")
	assert.Panics(t, func() { backend.Conv2D(raw(t, make([]float32, 9), 3, 3), input, 1, 0) }, "2D input")
}
