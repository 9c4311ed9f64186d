package nn

import (
	"github.com/born-ml/zoo/internal/checkpoint"
	"github.com/born-ml/zoo/internal/tensor"
)

// Parameter represents a named tensor owned by a module.
//
// Parameters are tensors that hold learned values, typically weights and
// biases of layers. Non-learned state (batch norm running statistics) uses the
// same type but is reported through StateDict only.
//
// Example:
//
//	weight := nn.NewParameter("weight", weightTensor)
//	w := weight.Tensor()
type Parameter[B tensor.Backend] struct {
	name   string            // Local name (e.g., "weight", "running_mean")
	tensor *tensor.Tensor[B] // The parameter tensor
}

// NewParameter creates a new parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[B]) *Parameter[B] {
	return &Parameter[B]{
		name:   name,
		tensor: t,
	}
}

// Name returns the parameter name.
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[B] {
	return p.tensor
}

// Raw returns the underlying RawTensor.
func (p *Parameter[B]) Raw() *tensor.RawTensor {
	return p.tensor.Raw()
}

// stateOf builds a StateDict from a module's own tensors, skipping nils.
func stateOf[B tensor.Backend](params ...*Parameter[B]) *checkpoint.StateDict {
	sd := checkpoint.NewStateDict()
	for _, p := range params {
		if p != nil {
			sd.Set(p.name, p.Raw())
		}
	}
	return sd
}

// nonNil filters out absent optional parameters (e.g. bias=false).
func nonNil[B tensor.Backend](params ...*Parameter[B]) []*Parameter[B] {
	out := make([]*Parameter[B], 0, len(params))
	for _, p := range params {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}
