package vgg

import (
	"errors"
	"fmt"

	"github.com/born-ml/zoo/internal/checkpoint"
	"github.com/born-ml/zoo/internal/nn"
	"github.com/born-ml/zoo/internal/tensor"
)

// PoolKind selects the global pooling of a ClassifierHead.
type PoolKind string

// Supported pool kinds.
const (
	PoolAvg       PoolKind = "avg"
	PoolMax       PoolKind = "max"
	PoolAvgMax    PoolKind = "avgmax"    // 0.5 * (avg + max)
	PoolCatAvgMax PoolKind = "catavgmax" // concat(avg, max) along channels
	PoolNone      PoolKind = ""          // no pooling, no flatten
)

// ErrPoolKind is returned for an unknown or unusable pool kind.
var ErrPoolKind = errors.New("invalid pool kind")

// featMult is the channel multiplier a pool kind applies.
func (k PoolKind) featMult() int {
	if k == PoolCatAvgMax {
		return 2
	}
	return 1
}

func (k PoolKind) validate() error {
	switch k {
	case PoolAvg, PoolMax, PoolAvgMax, PoolCatAvgMax, PoolNone:
		return nil
	}
	return fmt.Errorf("%w %q", ErrPoolKind, string(k))
}

// GlobalPool reduces [N, C, H, W] to [N, C*mult] by global pooling followed by
// flattening. PoolNone passes its input through unchanged.
type GlobalPool[B tensor.Backend] struct {
	kind    PoolKind
	backend B
}

// NewGlobalPool creates a global pooling module.
func NewGlobalPool[B tensor.Backend](kind PoolKind, backend B) (*GlobalPool[B], error) {
	if err := kind.validate(); err != nil {
		return nil, err
	}
	return &GlobalPool[B]{kind: kind, backend: backend}, nil
}

// Forward pools and flattens x.
func (p *GlobalPool[B]) Forward(x *tensor.Tensor[B]) *tensor.Tensor[B] {
	if p.kind == PoolNone {
		return x
	}

	var pooled *tensor.RawTensor
	switch p.kind {
	case PoolAvg:
		pooled = p.backend.AdaptiveAvgPool2D(x.Raw(), 1, 1)
	case PoolMax:
		pooled = p.backend.AdaptiveMaxPool2D(x.Raw(), 1, 1)
	case PoolAvgMax:
		avg := p.backend.AdaptiveAvgPool2D(x.Raw(), 1, 1)
		mx := p.backend.AdaptiveMaxPool2D(x.Raw(), 1, 1)
		half := tensor.Full(tensor.Shape{1}, 0.5, p.backend)
		pooled = p.backend.Mul(p.backend.Add(avg, mx), half.Raw())
	case PoolCatAvgMax:
		avg := p.backend.AdaptiveAvgPool2D(x.Raw(), 1, 1)
		mx := p.backend.AdaptiveMaxPool2D(x.Raw(), 1, 1)
		pooled = concatChannels(avg, mx)
	}

	return tensor.New(pooled, p.backend).Flatten(1)
}

// concatChannels joins two [N, C, 1, 1] tensors into [N, 2C, 1, 1].
func concatChannels(a, b *tensor.RawTensor) *tensor.RawTensor {
	shape := a.Shape()
	n, c := shape[0], shape[1]
	out := tensor.MustRaw(tensor.Shape{n, 2 * c, 1, 1}, a.Device())

	dst, ad, bd := out.Data(), a.Data(), b.Data()
	for i := range n {
		copy(dst[i*2*c:], ad[i*c:(i+1)*c])
		copy(dst[i*2*c+c:], bd[i*c:(i+1)*c])
	}
	return out
}

// Parameters returns nil.
func (p *GlobalPool[B]) Parameters() []*nn.Parameter[B] { return nil }

// StateDict returns an empty state.
func (p *GlobalPool[B]) StateDict() *checkpoint.StateDict { return checkpoint.NewStateDict() }

// Kind returns the pool kind.
func (p *GlobalPool[B]) Kind() PoolKind { return p.kind }

func (p *GlobalPool[B]) String() string {
	return fmt.Sprintf("GlobalPool(pool_type=%q)", string(p.kind))
}

// ClassifierHead pools an embedding map, applies dropout and projects it to
// class logits.
//
//	global_pool -> drop -> fc
//
// With numClasses <= 0 fc is an Identity and the head emits pooled features.
type ClassifierHead[B tensor.Backend] struct {
	inFeatures int
	numClasses int

	globalPool *GlobalPool[B]
	drop       *nn.Dropout[B]
	fc         nn.Module[B]

	backend B
}

// NewClassifierHead creates a head over inFeatures channels.
//
// PoolNone leaves the map unflattened, so it is only accepted without a
// classifier (numClasses <= 0).
func NewClassifierHead[B tensor.Backend](inFeatures, numClasses int, pool PoolKind, dropRate float64, backend B) (*ClassifierHead[B], error) {
	h := &ClassifierHead[B]{
		inFeatures: inFeatures,
		drop:       nn.NewDropout[B](dropRate),
		backend:    backend,
	}
	if err := h.Reset(numClasses, &pool); err != nil {
		return nil, err
	}
	return h, nil
}

// Reset replaces the classifier for numClasses outputs and, when pool is
// non-nil, the pooling. numClasses <= 0 installs an Identity.
// Must not be called concurrently with Forward.
func (h *ClassifierHead[B]) Reset(numClasses int, pool *PoolKind) error {
	kind := PoolAvg
	if h.globalPool != nil {
		kind = h.globalPool.Kind()
	}
	if pool != nil {
		kind = *pool
	}

	if kind == PoolNone && numClasses > 0 {
		return fmt.Errorf("%w: pooling is required with a classifier (%d classes)", ErrPoolKind, numClasses)
	}
	gp, err := NewGlobalPool(kind, h.backend)
	if err != nil {
		return err
	}

	h.globalPool = gp
	h.numClasses = max(numClasses, 0)
	if numClasses > 0 {
		h.fc = nn.NewLinear(h.inFeatures*kind.featMult(), numClasses, h.backend)
	} else {
		h.fc = nn.NewIdentity[B]()
	}
	return nil
}

// Forward returns class logits.
func (h *ClassifierHead[B]) Forward(x *tensor.Tensor[B]) *tensor.Tensor[B] {
	return h.ForwardHead(x, false)
}

// ForwardHead runs the head; with preLogits it stops before fc.
func (h *ClassifierHead[B]) ForwardHead(x *tensor.Tensor[B], preLogits bool) *tensor.Tensor[B] {
	x = h.globalPool.Forward(x)
	x = h.drop.Forward(x)
	if preLogits {
		return x
	}
	return h.fc.Forward(x)
}

// Children implements nn.Container.
func (h *ClassifierHead[B]) Children() []nn.Child[B] {
	return []nn.Child[B]{
		{Name: "global_pool", Module: h.globalPool},
		{Name: "drop", Module: h.drop},
		{Name: "fc", Module: h.fc},
	}
}

// Parameters returns the fc parameters.
func (h *ClassifierHead[B]) Parameters() []*nn.Parameter[B] {
	return nn.ChildrenParameters(h.Children())
}

// StateDict returns fc.weight and fc.bias, or nothing without a classifier.
func (h *ClassifierHead[B]) StateDict() *checkpoint.StateDict {
	return nn.ChildrenState(h.Children())
}

// FC returns the final projection (a Linear or an Identity).
func (h *ClassifierHead[B]) FC() nn.Module[B] { return h.fc }

// NumClasses returns the logit count, 0 when the classifier is removed.
func (h *ClassifierHead[B]) NumClasses() int { return h.numClasses }

// Pool returns the active pool kind.
func (h *ClassifierHead[B]) Pool() PoolKind { return h.globalPool.Kind() }

// NumFeatures returns the width of the pre-logits vector.
func (h *ClassifierHead[B]) NumFeatures() int {
	return h.inFeatures * h.globalPool.Kind().featMult()
}

func (h *ClassifierHead[B]) String() string {
	return fmt.Sprintf("ClassifierHead(in=%d, num_classes=%d, pool_type=%q, drop=%g)",
		h.inFeatures, h.numClasses, string(h.globalPool.Kind()), h.drop.P())
}
