// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/zoo/internal/tensor"

// Backend defines the compute primitives every engine must implement:
// broadcasting Add and Mul, matrix products, convolution, pooling, batch
// normalization and activations.
//
// Implementations:
//   - backend/cpu: Pure Go, gonum GEMM, im2col convolutions
type Backend = tensor.Backend
