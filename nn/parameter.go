// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/zoo/internal/nn"
	"github.com/born-ml/zoo/tensor"
)

// Parameter is a named tensor owned by a module.
//
// Example:
//
//	weight := nn.NewParameter("weight", tensor.Zeros(tensor.Shape{10, 5}, backend))
//	w := weight.Tensor()
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a new parameter with the given name and tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}
