// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides neural network layers and building blocks.
//
// # Overview
//
// This package contains:
//   - Layers: Linear, Conv2D, BatchNorm2D, MaxPool2D, adaptive pooling
//   - Activations: ReLU, GELU, SiLU
//   - Utilities: Sequential, Dropout, Flatten, Identity, Module, Parameter
//   - Checkpoints: StateDict, LoadStateDict, Save, Load
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/zoo/backend/cpu"
//	    "github.com/born-ml/zoo/nn"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    model := nn.NewSequential[*cpu.Backend](
//	        nn.NewConv2D(3, 16, 3, 3, 1, 1, true, backend),
//	        nn.NewReLU[*cpu.Backend](),
//	        nn.NewMaxPool2D(2, 2, backend),
//	    )
//	    if err := nn.Save(model, "model.safetensors", nil); err != nil {
//	        log.Fatal(err)
//	    }
//	}
package nn
