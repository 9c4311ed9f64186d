package nn

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/zoo/internal/tensor"
)

// Dropout zeroes elements with probability p during training and rescales
// the survivors by 1/(1-p). In eval mode it returns its input unchanged.
type Dropout[B tensor.Backend] struct {
	stateless[B]
	p        float64
	training bool
}

// NewDropout creates a dropout layer. p must be in [0, 1).
func NewDropout[B tensor.Backend](p float64) *Dropout[B] {
	if p < 0 || p >= 1 {
		panic(fmt.Sprintf("dropout: probability must be in [0, 1), got %g", p))
	}
	return &Dropout[B]{p: p}
}

// Forward applies dropout in training mode.
func (d *Dropout[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	if !d.training || d.p == 0 {
		return input
	}

	out := input.Clone()
	data := out.Data()
	scale := float32(1 / (1 - d.p))
	for i := range data {
		//nolint:gosec // G404: weak RNG is fine for dropout masks
		if rand.Float64() < d.p {
			data[i] = 0
		} else {
			data[i] *= scale
		}
	}
	return out
}

// SetTraining implements Trainable.
func (d *Dropout[B]) SetTraining(training bool) {
	d.training = training
}

// P returns the drop probability.
func (d *Dropout[B]) P() float64 {
	return d.p
}

func (d *Dropout[B]) String() string {
	return fmt.Sprintf("Dropout(p=%g)", d.p)
}
