// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/zoo/backend/cpu"
	"github.com/born-ml/zoo/nn"
	"github.com/born-ml/zoo/tensor"
)

// TestModuleInterface verifies that concrete types implement Module interface.
func TestModuleInterface(t *testing.T) {
	backend := cpu.New()

	tests := []struct {
		name   string
		module nn.Module[*cpu.Backend]
		input  tensor.Shape
		keys   int
	}{
		{
			name:   "Linear",
			module: nn.NewLinear(10, 5, backend),
			input:  tensor.Shape{2, 10},
			keys:   2,
		},
		{
			name: "Sequential",
			module: nn.NewSequential[*cpu.Backend](
				nn.NewConv2D(3, 4, 3, 3, 1, 1, true, backend),
				nn.NewBatchNorm2D(4, backend),
				nn.NewReLU[*cpu.Backend](),
				nn.NewMaxPool2D(2, 2, backend),
			),
			input: tensor.Shape{1, 3, 8, 8},
			keys:  7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.module.Forward(tensor.Randn(tt.input, backend))
			assert.NotNil(t, out)
			assert.NotEmpty(t, tt.module.Parameters())
			assert.Equal(t, tt.keys, tt.module.StateDict().Len())
		})
	}
}

func TestSaveLoad(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "model.safetensors")

	src := nn.NewSequential[*cpu.Backend](
		nn.NewConv2D(1, 2, 3, 3, 1, 0, true, backend),
		nn.NewReLU[*cpu.Backend](),
	)
	require.NoError(t, nn.Save[*cpu.Backend](src, path, map[string]string{"arch": "test"}))

	dst := nn.NewSequential[*cpu.Backend](
		nn.NewConv2D(1, 2, 3, 3, 1, 0, true, backend),
		nn.NewReLU[*cpu.Backend](),
	)
	result, err := nn.Load[*cpu.Backend](context.Background(), path, dst, true)
	require.NoError(t, err)
	assert.Empty(t, result.Missing)
	assert.Empty(t, result.Unexpected)

	x := tensor.Randn(tensor.Shape{1, 1, 5, 5}, backend)
	assert.Equal(t, src.Forward(x).Data(), dst.Forward(x).Data())

	wrong := nn.NewLinear(3, 3, backend)
	_, err = nn.Load[*cpu.Backend](context.Background(), path, wrong, true)
	require.ErrorIs(t, err, nn.ErrStateMismatch)
}
