// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for tensor operations.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go implementation (no CGO)
//   - Im2col convolutions over gonum's single-precision GEMM
//   - Batch and channel parallel pooling and normalization
//   - NumPy-compatible broadcasting
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
//	    x := tensor.Randn(tensor.Shape{1, 3, 32, 32}, backend)
//	    y := tensor.New(backend.ReLU(x.Raw()), backend)
//	}
package cpu
