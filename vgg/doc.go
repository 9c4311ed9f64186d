// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package vgg provides the VGG 11/13/16/19 image classifiers, with and
// without batch normalization.
//
// # Overview
//
// Models are built by name from an explicit registry:
//   - vgg11, vgg13, vgg16, vgg19: plain convolution stacks
//   - vgg11_bn ... vgg19_bn: the same with BatchNorm2D after every conv
//
// Every model exposes its feature stack, the convolutional MLP that maps the
// final map to a 4096-wide embedding, and the classifier head. Pretrained
// torchvision checkpoints load through a WeightSource; their flat
// classifier is remapped onto the convolutional head automatically.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/zoo/backend/cpu"
//	    "github.com/born-ml/zoo/vgg"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    model, err := vgg.Create(ctx, "vgg16_bn", backend,
//	        vgg.WithPretrained(vgg.DirSource{Dir: "weights"}))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    logits := model.Forward(x) // [N, 1000]
//	}
//
// # Feature Extraction
//
//	extractor, err := vgg.CreateFeatureExtractor(ctx, "vgg16", backend,
//	    vgg.WithOutIndices(2, 3, 4, 5))
//	maps := extractor.Forward(x) // strides 4, 8, 16, 32
package vgg
