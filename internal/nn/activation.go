package nn

import (
	"fmt"

	"github.com/born-ml/zoo/internal/checkpoint"
	"github.com/born-ml/zoo/internal/tensor"
)

// stateless provides the empty Parameters/StateDict of parameter-free modules.
type stateless[B tensor.Backend] struct{}

// Parameters returns nil; the module has no parameters.
func (s stateless[B]) Parameters() []*Parameter[B] {
	return nil
}

// StateDict returns an empty state dict.
func (s stateless[B]) StateDict() *checkpoint.StateDict {
	return checkpoint.NewStateDict()
}

// ReLU is a Rectified Linear Unit activation module.
//
// Applies the element-wise function: f(x) = max(0, x)
type ReLU[B tensor.Backend] struct {
	stateless[B]
}

// NewReLU creates a new ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return &ReLU[B]{}
}

// Forward applies ReLU activation: f(x) = max(0, x).
func (r *ReLU[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	b := input.Backend()
	return tensor.New(b.ReLU(input.Raw()), b)
}

func (r *ReLU[B]) String() string { return "ReLU()" }

// GELU is the Gaussian Error Linear Unit (tanh approximation).
type GELU[B tensor.Backend] struct {
	stateless[B]
}

// NewGELU creates a new GELU activation module.
func NewGELU[B tensor.Backend]() *GELU[B] {
	return &GELU[B]{}
}

// Forward applies GELU.
func (g *GELU[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	b := input.Backend()
	return tensor.New(b.GELU(input.Raw()), b)
}

func (g *GELU[B]) String() string { return "GELU()" }

// SiLU (swish) computes x * sigmoid(x).
type SiLU[B tensor.Backend] struct {
	stateless[B]
}

// NewSiLU creates a new SiLU activation module.
func NewSiLU[B tensor.Backend]() *SiLU[B] {
	return &SiLU[B]{}
}

// Forward applies SiLU.
func (s *SiLU[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	b := input.Backend()
	return tensor.New(b.SiLU(input.Raw()), b)
}

func (s *SiLU[B]) String() string { return "SiLU()" }

// Activation names accepted by NewActivation.
const (
	ActReLU = "relu"
	ActGELU = "gelu"
	ActSiLU = "silu"
)

// NewActivation returns the activation module registered under name.
func NewActivation[B tensor.Backend](name string) (Module[B], error) {
	switch name {
	case ActReLU:
		return NewReLU[B](), nil
	case ActGELU:
		return NewGELU[B](), nil
	case ActSiLU, "swish":
		return NewSiLU[B](), nil
	default:
		return nil, fmt.Errorf("unknown activation %q", name)
	}
}
