// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public tensor API of the model zoo.
//
// # Overview
//
// Tensors are float32, row-major and bound to a compute backend:
//   - Tensor[B]: a tensor on backend B
//   - RawTensor: the backend-level buffer with shape and device
//   - Backend: the compute primitives a convolutional classifier needs
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/zoo/backend/cpu"
//	    "github.com/born-ml/zoo/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    x := tensor.Randn(tensor.Shape{1, 3, 224, 224}, backend)
//	    fmt.Println(x.Shape())
//	}
package tensor
