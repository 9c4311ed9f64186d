// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/zoo/internal/tensor"
)

// RawTensor is the low-level tensor representation shared by backends,
// modules and checkpoints.
//
// Most users should use the high-level Tensor[B] type instead.
//
// Example:
//
//	raw, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.CPU)
//	data := raw.Data()        // row-major float32
//	view, _ := raw.Reshape(tensor.Shape{3, -1})
type RawTensor = tensor.RawTensor

// NewRaw creates a zero-filled RawTensor.
func NewRaw(shape Shape, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, device)
}

// RawFromSlice wraps data without copying.
func RawFromSlice(data []float32, shape Shape, device Device) (*RawTensor, error) {
	return tensor.RawFromSlice(data, shape, device)
}
