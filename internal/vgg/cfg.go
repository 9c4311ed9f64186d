// Package vgg builds the VGG family of convolutional classifiers.
//
// A variant is described by a short layer configuration: channel widths of
// 3x3 convolutions interleaved with Pool markers for 2x downsampling. The
// stage builder turns that list into a flat feature stack, a convolutional
// MLP adapts the final map to a 4096-wide embedding, and a classifier head
// pools and projects it to logits.
package vgg

import (
	"slices"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// LayerSpec is one entry of a layer configuration: either the output width of
// a 3x3 convolution or the Pool marker.
type LayerSpec int

// Pool marks a 2x2, stride-2 max pooling step.
const Pool LayerSpec = -1

// IsPool reports whether s is the downsampling marker.
func (s LayerSpec) IsPool() bool {
	return s == Pool
}

// Channels returns the convolution width. It is meaningless for Pool.
func (s LayerSpec) Channels() int {
	return int(s)
}

// String renders s as in the paper's tables: a width, or "M".
func (s LayerSpec) String() string {
	if s.IsPool() {
		return "M"
	}
	return strconv.Itoa(int(s))
}

// configs holds the four base shapes in declaration order.
//
// Every entry starts with a channel width; the stage builder relies on it.
var configs = newConfigTable([]struct {
	name   string
	layers []LayerSpec
}{
	{"vgg11", []LayerSpec{64, Pool, 128, Pool, 256, 256, Pool, 512, 512, Pool, 512, 512, Pool}},
	{"vgg13", []LayerSpec{64, 64, Pool, 128, 128, Pool, 256, 256, Pool, 512, 512, Pool, 512, 512, Pool}},
	{"vgg16", []LayerSpec{64, 64, Pool, 128, 128, Pool, 256, 256, 256, Pool, 512, 512, 512, Pool, 512, 512, 512, Pool}},
	{"vgg19", []LayerSpec{64, 64, Pool, 128, 128, Pool, 256, 256, 256, 256, Pool, 512, 512, 512, 512, Pool, 512, 512, 512, 512, Pool}},
})

func newConfigTable(entries []struct {
	name   string
	layers []LayerSpec
}) *orderedmap.OrderedMap[string, []LayerSpec] {
	table := orderedmap.New[string, []LayerSpec]()
	for _, e := range entries {
		table.Set(e.name, e.layers)
	}
	return table
}

// LayerConfig returns a copy of the layer configuration for a base shape
// ("vgg16") or any variant derived from it ("vgg16_bn").
func LayerConfig(variant string) ([]LayerSpec, bool) {
	layers, ok := configs.Get(BaseName(variant))
	if !ok {
		return nil, false
	}
	return slices.Clone(layers), true
}

// BaseNames lists the base shapes in declaration order.
func BaseNames() []string {
	names := make([]string, 0, configs.Len())
	for pair := configs.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// BaseName strips everything after the first underscore: "vgg16_bn" -> "vgg16".
func BaseName(variant string) string {
	base, _, _ := strings.Cut(variant, "_")
	return base
}
