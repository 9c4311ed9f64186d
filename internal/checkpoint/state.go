// Package checkpoint stores, reads and writes named weight collections.
//
// A StateDict maps dotted parameter names ("features.0.weight") to float32
// tensors and remembers insertion order, so checkpoints round-trip with the
// same key order they were produced in. Readers widen every on-disk dtype to
// float32.
package checkpoint

import (
	"errors"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/born-ml/zoo/internal/tensor"
)

// Errors returned by checkpoint readers and sources.
var (
	ErrTensorNotFound   = errors.New("tensor not found")
	ErrUnsupportedDType = errors.New("unsupported dtype")
	ErrNoWeights        = errors.New("no weights available")
)

// StateDict is an insertion-ordered map of tensor name to tensor.
// The zero value is not usable; call NewStateDict.
type StateDict struct {
	m *orderedmap.OrderedMap[string, *tensor.RawTensor]
}

// NewStateDict creates an empty StateDict.
func NewStateDict() *StateDict {
	return &StateDict{m: orderedmap.New[string, *tensor.RawTensor]()}
}

// Set stores t under name. Re-setting an existing name keeps its position.
func (s *StateDict) Set(name string, t *tensor.RawTensor) {
	s.m.Set(name, t)
}

// Get returns the tensor stored under name.
func (s *StateDict) Get(name string) (*tensor.RawTensor, bool) {
	return s.m.Get(name)
}

// MustGet is like Get but returns ErrTensorNotFound for a missing name.
func (s *StateDict) MustGet(name string) (*tensor.RawTensor, error) {
	t, ok := s.m.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTensorNotFound, name)
	}
	return t, nil
}

// Delete removes name and reports whether it was present.
func (s *StateDict) Delete(name string) bool {
	_, ok := s.m.Delete(name)
	return ok
}

// Len returns the number of tensors.
func (s *StateDict) Len() int {
	return s.m.Len()
}

// Keys returns tensor names in insertion order.
func (s *StateDict) Keys() []string {
	keys := make([]string, 0, s.m.Len())
	for pair := s.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Range calls fn for every entry in insertion order until fn returns false.
func (s *StateDict) Range(fn func(name string, t *tensor.RawTensor) bool) {
	for pair := s.m.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

// Merge copies every entry of other into s with prefix prepended to its name.
func (s *StateDict) Merge(prefix string, other *StateDict) {
	other.Range(func(name string, t *tensor.RawTensor) bool {
		s.Set(prefix+name, t)
		return true
	})
}

// Sub returns the entries whose name starts with prefix, with prefix removed.
func (s *StateDict) Sub(prefix string) *StateDict {
	out := NewStateDict()
	s.Range(func(name string, t *tensor.RawTensor) bool {
		if rest, ok := strings.CutPrefix(name, prefix); ok && rest != "" {
			out.Set(rest, t)
		}
		return true
	})
	return out
}

// NumElements returns the total element count across all tensors.
func (s *StateDict) NumElements() int {
	n := 0
	s.Range(func(_ string, t *tensor.RawTensor) bool {
		n += t.NumElements()
		return true
	})
	return n
}
