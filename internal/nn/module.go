// Package nn implements the neural network modules used by the model zoo.
//
// This package provides building blocks for convolutional classifiers:
//   - Module interface: Base interface for all NN components
//   - Parameter: Named weights and buffers
//   - Conv2D, Linear, BatchNorm2D
//   - Pooling: MaxPool2D, AdaptiveAvgPool2D, AdaptiveMaxPool2D
//   - Activations: ReLU, GELU, SiLU
//   - Dropout, Flatten, Identity
//   - Sequential: Container for stacking layers
//
// Modules form a tree. Containers expose their named children, which is how
// state dict keys ("features.3.weight"), training mode and tracing reach
// every submodule.
package nn

import (
	"github.com/born-ml/zoo/internal/checkpoint"
	"github.com/born-ml/zoo/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Modules can be composed to build complex architectures:
//
//	model := nn.NewSequential[B](
//	    nn.NewConv2D(3, 64, 3, 3, 1, 1, true, backend),
//	    nn.NewReLU[B](),
//	    nn.NewMaxPool2D(2, 2, backend),
//	)
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[B]) *tensor.Tensor[B]

	// Parameters returns all learnable parameters of this module,
	// including those of nested modules. Buffers are not included.
	Parameters() []*Parameter[B]

	// StateDict returns every persistent tensor (parameters and buffers)
	// keyed by its dotted path relative to this module. The returned
	// tensors alias the module's storage.
	StateDict() *checkpoint.StateDict
}

// Child is a named submodule.
type Child[B tensor.Backend] struct {
	Name   string
	Module Module[B]
}

// Container is implemented by modules that own submodules.
type Container[B tensor.Backend] interface {
	Module[B]
	Children() []Child[B]
}

// Leaf marks a module that graph tracers must treat as a single opaque node,
// even when it owns submodules.
type Leaf interface {
	IsLeaf() bool
}

// Trainable is implemented by modules whose behavior differs between
// training and evaluation (dropout, batch norm).
type Trainable interface {
	SetTraining(training bool)
}

// Walk visits m and all of its descendants depth-first in child order.
// fn receives the dotted path of each module ("" for m itself).
func Walk[B tensor.Backend](m Module[B], fn func(path string, m Module[B])) {
	walk("", m, fn)
}

func walk[B tensor.Backend](path string, m Module[B], fn func(string, Module[B])) {
	fn(path, m)
	c, ok := m.(Container[B])
	if !ok {
		return
	}
	for _, child := range c.Children() {
		walk(join(path, child.Name), child.Module, fn)
	}
}

// Trace returns the paths of the modules a graph tracer would record as
// nodes: every non-container module, plus containers marked as Leaf, whose
// contents are not descended into.
func Trace[B tensor.Backend](m Module[B]) []string {
	var nodes []string
	var visit func(path string, m Module[B])
	visit = func(path string, m Module[B]) {
		if l, ok := m.(Leaf); ok && l.IsLeaf() {
			nodes = append(nodes, path)
			return
		}
		c, ok := m.(Container[B])
		if !ok {
			nodes = append(nodes, path)
			return
		}
		for _, child := range c.Children() {
			visit(join(path, child.Name), child.Module)
		}
	}
	visit("", m)
	return nodes
}

// SetTraining switches m and all descendants into training or eval mode.
func SetTraining[B tensor.Backend](m Module[B], training bool) {
	Walk(m, func(_ string, mod Module[B]) {
		if t, ok := mod.(Trainable); ok {
			t.SetTraining(training)
		}
	})
}

// ChildrenState merges the state dicts of children under their names.
// Containers use it to implement StateDict.
func ChildrenState[B tensor.Backend](children []Child[B]) *checkpoint.StateDict {
	sd := checkpoint.NewStateDict()
	for _, child := range children {
		sd.Merge(child.Name+".", child.Module.StateDict())
	}
	return sd
}

// ChildrenParameters concatenates the parameters of children in order.
func ChildrenParameters[B tensor.Backend](children []Child[B]) []*Parameter[B] {
	var params []*Parameter[B]
	for _, child := range children {
		params = append(params, child.Module.Parameters()...)
	}
	return params
}

// NumParameters counts the learnable scalars of m.
func NumParameters[B tensor.Backend](m Module[B]) int {
	n := 0
	for _, p := range m.Parameters() {
		n += p.Tensor().NumElements()
	}
	return n
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
