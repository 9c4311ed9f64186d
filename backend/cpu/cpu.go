// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/zoo/internal/backend/cpu"
	"github.com/born-ml/zoo/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a CPU backend that parallelizes kernels across cores.
//
// Example:
//
//	backend := cpu.New()
//	model, err := vgg.Create(ctx, "vgg16", backend)
func New() *Backend {
	return internalcpu.New()
}

// NewSequential creates a CPU backend that runs every kernel on the calling
// goroutine.
func NewSequential() *Backend {
	return internalcpu.NewSequential()
}
