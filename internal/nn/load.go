package nn

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/born-ml/zoo/internal/checkpoint"
	"github.com/born-ml/zoo/internal/tensor"
)

// ErrStateMismatch is returned by a strict load whose key sets differ.
var ErrStateMismatch = errors.New("state dict mismatch")

// LoadResult lists the keys a load could not match.
type LoadResult struct {
	Missing    []string // expected by the module, absent from the state dict
	Unexpected []string // present in the state dict, unknown to the module
}

// optionalBuffer reports keys that may be absent from older checkpoints.
func optionalBuffer(key string) bool {
	return strings.HasSuffix(key, "num_batches_tracked")
}

// LoadStateDict copies matching tensors from sd into m.
//
// Every key of m.StateDict() present in sd must have the same shape, or an
// error is returned and m may be partially updated. With strict set, missing
// or unexpected keys are an error wrapping ErrStateMismatch; otherwise they are
// only reported in the result.
func LoadStateDict[B tensor.Backend](m Module[B], sd *checkpoint.StateDict, strict bool) (*LoadResult, error) {
	own := m.StateDict()
	result := &LoadResult{}

	sd.Range(func(key string, _ *tensor.RawTensor) bool {
		if _, ok := own.Get(key); !ok {
			result.Unexpected = append(result.Unexpected, key)
		}
		return true
	})
	own.Range(func(key string, _ *tensor.RawTensor) bool {
		if _, ok := sd.Get(key); !ok && !optionalBuffer(key) {
			result.Missing = append(result.Missing, key)
		}
		return true
	})

	if strict && (len(result.Missing) > 0 || len(result.Unexpected) > 0) {
		return result, fmt.Errorf("%w: missing %v, unexpected %v",
			ErrStateMismatch, preview(result.Missing), preview(result.Unexpected))
	}

	var loadErr error
	own.Range(func(key string, dst *tensor.RawTensor) bool {
		src, ok := sd.Get(key)
		if !ok {
			return true
		}
		if err := dst.CopyFrom(src); err != nil {
			loadErr = fmt.Errorf("loading %s: %w", key, err)
			return false
		}
		return true
	})

	return result, loadErr
}

// preview truncates long key lists for error messages.
func preview(keys []string) []string {
	const limit = 8
	if len(keys) <= limit {
		return keys
	}
	return append(slices.Clip(keys[:limit]), fmt.Sprintf("... (%d more)", len(keys)-limit))
}
