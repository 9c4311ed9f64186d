package nn

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/zoo/internal/checkpoint"
	"github.com/born-ml/zoo/internal/tensor"
)

// Sequential is a container module that chains multiple modules together.
//
// Each module's output becomes the next module's input. Children are named
// by their index, so state dict keys look like "0.weight", "3.bias".
//
// Example:
//
//	model := nn.NewSequential[B](
//	    nn.NewConv2D(3, 64, 3, 3, 1, 1, true, backend),
//	    nn.NewReLU[B](),
//	    nn.NewMaxPool2D(2, 2, backend),
//	)
//
//	output := model.Forward(input)
type Sequential[B tensor.Backend] struct {
	modules []Module[B]
}

// NewSequential creates a new Sequential container.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return &Sequential[B]{
		modules: modules,
	}
}

// Forward applies all modules in sequence.
func (s *Sequential[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	output := input
	for _, module := range s.modules {
		output = module.Forward(output)
	}
	return output
}

// ForwardRange applies modules [start, end) to input.
func (s *Sequential[B]) ForwardRange(input *tensor.Tensor[B], start, end int) *tensor.Tensor[B] {
	if start < 0 || end > len(s.modules) || start > end {
		panic(fmt.Sprintf("sequential: invalid range [%d, %d) for %d modules", start, end, len(s.modules)))
	}
	output := input
	for _, module := range s.modules[start:end] {
		output = module.Forward(output)
	}
	return output
}

// Parameters returns all trainable parameters from all modules.
func (s *Sequential[B]) Parameters() []*Parameter[B] {
	return ChildrenParameters(s.Children())
}

// StateDict returns the state of all modules prefixed with their index.
func (s *Sequential[B]) StateDict() *checkpoint.StateDict {
	return ChildrenState(s.Children())
}

// Children implements Container.
func (s *Sequential[B]) Children() []Child[B] {
	children := make([]Child[B], len(s.modules))
	for i, m := range s.modules {
		children[i] = Child[B]{Name: strconv.Itoa(i), Module: m}
	}
	return children
}

// Add appends a module to the sequence.
func (s *Sequential[B]) Add(module Module[B]) {
	s.modules = append(s.modules, module)
}

// Len returns the number of modules in the sequence.
func (s *Sequential[B]) Len() int {
	return len(s.modules)
}

// Module returns the module at the given index.
//
// Panics if index is out of bounds.
func (s *Sequential[B]) Module(index int) Module[B] {
	if index < 0 || index >= len(s.modules) {
		panic(fmt.Sprintf("sequential: index %d out of bounds for %d modules", index, len(s.modules)))
	}
	return s.modules[index]
}

// String lists the children one per line.
func (s *Sequential[B]) String() string {
	var sb strings.Builder
	sb.WriteString("Sequential(\n")
	for i, m := range s.modules {
		fmt.Fprintf(&sb, "  (%d): %v\n", i, m)
	}
	sb.WriteString(")")
	return sb.String()
}
