// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"context"
	"fmt"

	"github.com/born-ml/zoo/internal/checkpoint"
	"github.com/born-ml/zoo/internal/nn"
	"github.com/born-ml/zoo/tensor"
)

// Module is the base interface for all neural network components.
//
// Every module implements:
//   - Forward: Compute output from input
//   - Parameters: Return all learnable parameters
//   - StateDict: Export parameters and buffers under dotted keys
type Module[B tensor.Backend] = nn.Module[B]

// Child is a named submodule.
type Child[B tensor.Backend] = nn.Child[B]

// Container is implemented by modules that own submodules.
type Container[B tensor.Backend] = nn.Container[B]

// Leaf marks modules that tracers must treat as one opaque node.
type Leaf = nn.Leaf

// StateDict is an insertion-ordered map of tensor names to tensors.
type StateDict = checkpoint.StateDict

// LoadResult lists the keys a load could not match.
type LoadResult = nn.LoadResult

// ErrStateMismatch is returned by a strict load whose key sets differ.
var ErrStateMismatch = nn.ErrStateMismatch

// NewStateDict creates an empty state dict.
func NewStateDict() *StateDict {
	return checkpoint.NewStateDict()
}

// LoadStateDict copies matching tensors from sd into module.
// With strict set, missing or unexpected keys are an error.
func LoadStateDict[B tensor.Backend](module Module[B], sd *StateDict, strict bool) (*LoadResult, error) {
	return nn.LoadStateDict(module, sd, strict)
}

// Walk visits module and its descendants with their dotted paths.
func Walk[B tensor.Backend](module Module[B], fn func(path string, m Module[B])) {
	nn.Walk(module, fn)
}

// Trace returns the paths a graph tracer records as nodes.
func Trace[B tensor.Backend](module Module[B]) []string {
	return nn.Trace(module)
}

// SetTraining switches module and all descendants into training or eval mode.
func SetTraining[B tensor.Backend](module Module[B], training bool) {
	nn.SetTraining(module, training)
}

// NumParameters counts the learnable scalars of module.
func NumParameters[B tensor.Backend](module Module[B]) int {
	return nn.NumParameters(module)
}

// Save writes the module's state dict to a safetensors file.
//
// Example:
//
//	backend := cpu.New()
//	model := nn.NewLinear(784, 10, backend)
//	err := nn.Save(model, "model.safetensors", map[string]string{"arch": "linear"})
func Save[B tensor.Backend](module Module[B], path string, metadata map[string]string) error {
	return checkpoint.WriteSafeTensors(path, module.StateDict(), metadata)
}

// Load reads a safetensors or torch checkpoint into module.
//
// Example:
//
//	backend := cpu.New()
//	model := nn.NewLinear(784, 10, backend)
//	_, err := nn.Load(ctx, "model.safetensors", model, true)
func Load[B tensor.Backend](ctx context.Context, path string, module Module[B], strict bool) (*LoadResult, error) {
	sd, err := checkpoint.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	result, err := nn.LoadStateDict(module, sd, strict)
	if err != nil {
		return result, fmt.Errorf("%s: %w", path, err)
	}
	return result, nil
}
