// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package vgg_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/zoo/backend/cpu"
	"github.com/born-ml/zoo/vgg"
)

func TestList(t *testing.T) {
	names, err := vgg.List("vgg1[69]*")
	require.NoError(t, err)
	assert.Equal(t, []string{"vgg16", "vgg16_bn", "vgg19", "vgg19_bn"}, names)
	assert.Len(t, vgg.Variants(), 8)
}

func TestLookup(t *testing.T) {
	v, err := vgg.Lookup("vgg13_bn")
	require.NoError(t, err)
	assert.Equal(t, "features.0", v.Pretrained.FirstConv)
	assert.Equal(t, "head.fc", v.Pretrained.Classifier)
}

func TestCreate_OutputStride(t *testing.T) {
	_, err := vgg.Create(context.Background(), "vgg11", cpu.New(), vgg.WithOutputStride(16))
	require.ErrorIs(t, err, vgg.ErrOutputStride)
}

func TestCreate_PretrainedWithoutSource(t *testing.T) {
	if testing.Short() {
		t.Skip("builds a full-size model")
	}
	_, err := vgg.Create(context.Background(), "vgg11", cpu.New(), vgg.WithPretrained(nil))
	require.ErrorIs(t, err, vgg.ErrNoWeightSource)
}
