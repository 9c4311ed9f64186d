package vgg

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrUnknownModel is returned for a name that is not in the registry.
var ErrUnknownModel = errors.New("unknown model")

// Variant is a registered, buildable model name.
type Variant struct {
	Name       string // e.g. "vgg16_bn"
	Base       string // layer configuration, e.g. "vgg16"
	Norm       string // NormNone or NormBatchNorm
	Pretrained PretrainedCfg
}

// FullName returns "<name>.<tag>".
func (v Variant) FullName() string {
	return v.Name + "." + v.Pretrained.Tag
}

// variants is built once from the configuration table: every base shape
// followed by its batch-normalized form.
var variants = buildVariants()

func buildVariants() []Variant {
	var out []Variant
	for _, base := range BaseNames() {
		out = append(out,
			Variant{Name: base, Base: base, Norm: NormNone, Pretrained: defaultPretrainedCfg()},
			Variant{Name: base + "_bn", Base: base, Norm: NormBatchNorm, Pretrained: defaultPretrainedCfg()},
		)
	}
	return out
}

// Variants returns all registered variants in registration order.
func Variants() []Variant {
	return append([]Variant(nil), variants...)
}

// List returns the names matching a path.Match pattern ("vgg1*_bn"); an
// empty pattern lists everything.
func List(pattern string) ([]string, error) {
	var names []string
	for _, v := range variants {
		if pattern == "" {
			names = append(names, v.Name)
			continue
		}
		ok, err := path.Match(pattern, v.Name)
		if err != nil {
			return nil, fmt.Errorf("list %q: %w", pattern, err)
		}
		if ok {
			names = append(names, v.Name)
		}
	}
	return names, nil
}

// Lookup resolves a model name, optionally carrying a pretrained tag
// ("vgg16.tv_in1k").
func Lookup(name string) (Variant, error) {
	base, tag, hasTag := strings.Cut(name, ".")
	for _, v := range variants {
		if v.Name != base {
			continue
		}
		if hasTag && tag != v.Pretrained.Tag {
			return Variant{}, fmt.Errorf("%w: %s has no pretrained tag %q", ErrUnknownModel, base, tag)
		}
		return v, nil
	}
	return Variant{}, fmt.Errorf("%w: %q", ErrUnknownModel, name)
}
