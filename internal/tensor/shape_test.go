package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape_NumElements(t *testing.T) {
	assert.Equal(t, 1, Shape{}.NumElements())
	assert.Equal(t, 24, Shape{2, 3, 4}.NumElements())
}

func TestShape_ComputeStrides(t *testing.T) {
	assert.Equal(t, []int{12, 4, 1}, Shape{2, 3, 4}.ComputeStrides())
	assert.Empty(t, Shape{}.ComputeStrides())
}

func TestShape_Infer(t *testing.T) {
	tests := []struct {
		name  string
		shape Shape
		n     int
		want  Shape
		err   bool
	}{
		{"legacy fc1", Shape{-1, 512, 7, 7}, 4096 * 25088, Shape{4096, 512, 7, 7}, false},
		{"legacy fc2", Shape{-1, 4096, 1, 1}, 4096 * 4096, Shape{4096, 4096, 1, 1}, false},
		{"explicit", Shape{2, 3}, 6, Shape{2, 3}, false},
		{"explicit mismatch", Shape{2, 3}, 7, nil, true},
		{"not divisible", Shape{-1, 4}, 6, nil, true},
		{"two unknowns", Shape{-1, -1}, 6, nil, true},
		{"zero dim", Shape{0, 3}, 6, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.shape.Infer(tt.n)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
		})
	}
}

func TestBroadcastShapes(t *testing.T) {
	out, needs, err := BroadcastShapes(Shape{2, 3, 4, 4}, Shape{1, 3, 1, 1})
	require.NoError(t, err)
	assert.True(t, needs)
	assert.Equal(t, Shape{2, 3, 4, 4}, out)

	out, needs, err = BroadcastShapes(Shape{4}, Shape{2, 4})
	require.NoError(t, err)
	assert.True(t, needs)
	assert.Equal(t, Shape{2, 4}, out)

	_, needs, err = BroadcastShapes(Shape{2, 3}, Shape{2, 3})
	require.NoError(t, err)
	assert.False(t, needs)

	_, _, err = BroadcastShapes(Shape{3, 4}, Shape{3, 5})
	assert.Error(t, err)
}

func TestRawTensor_ReshapeIsView(t *testing.T) {
	raw, err := RawFromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{6}, CPU)
	require.NoError(t, err)

	view, err := raw.Reshape(Shape{-1, 3})
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 3}, view.Shape())
	assert.Equal(t, []int{3, 1}, view.Strides())

	view.Data()[0] = 42
	assert.Equal(t, float32(42), raw.Data()[0])
	assert.Equal(t, Shape{6}, raw.Shape(), "original shape must be untouched")

	_, err = raw.Reshape(Shape{4, -1})
	assert.Error(t, err)
}

func TestRawTensor_CloneAndCopy(t *testing.T) {
	raw, err := RawFromSlice([]float32{1, 2, 3, 4}, Shape{2, 2}, CPU)
	require.NoError(t, err)

	clone := raw.Clone()
	clone.Data()[0] = -1
	assert.Equal(t, float32(1), raw.Data()[0])

	dst := MustRaw(Shape{2, 2}, CPU)
	require.NoError(t, dst.CopyFrom(raw))
	assert.Equal(t, raw.Data(), dst.Data())

	assert.Error(t, MustRaw(Shape{4}, CPU).CopyFrom(raw))
}

func TestRawFromSlice_Errors(t *testing.T) {
	_, err := RawFromSlice([]float32{1, 2, 3}, Shape{2, 2}, CPU)
	assert.Error(t, err)

	_, err = NewRaw(Shape{2, -1}, CPU)
	assert.Error(t, err)

	scalar, err := NewRaw(Shape{}, CPU)
	require.NoError(t, err)
	assert.Equal(t, 1, scalar.NumElements())
}
