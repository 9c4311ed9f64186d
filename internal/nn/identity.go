package nn

import (
	"fmt"

	"github.com/born-ml/zoo/internal/tensor"
)

// Identity returns its input.
type Identity[B tensor.Backend] struct {
	stateless[B]
}

// NewIdentity creates an Identity module.
func NewIdentity[B tensor.Backend]() *Identity[B] {
	return &Identity[B]{}
}

// Forward returns input.
func (i *Identity[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	return input
}

func (i *Identity[B]) String() string { return "Identity()" }

// Flatten collapses all dimensions from StartDim onwards.
//
//	[N, C, H, W] -> [N, C*H*W] with StartDim = 1
type Flatten[B tensor.Backend] struct {
	stateless[B]
	startDim int
}

// NewFlatten creates a Flatten module.
func NewFlatten[B tensor.Backend](startDim int) *Flatten[B] {
	return &Flatten[B]{startDim: startDim}
}

// Forward flattens input.
func (f *Flatten[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	return input.Flatten(f.startDim)
}

func (f *Flatten[B]) String() string {
	return fmt.Sprintf("Flatten(start_dim=%d)", f.startDim)
}
