package checkpoint

import (
	"fmt"
	"log/slog"

	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/nlpodyssey/gopickle/types"

	"github.com/born-ml/zoo/internal/tensor"
)

// ReadTorch loads a legacy PyTorch state dict (.pth / .bin zip or tar pickle).
//
// The top-level object must be a dict of name to tensor; a dict wrapping the
// weights under "state_dict" or "model" is unwrapped. Non-tensor entries are
// skipped. Key order follows the pickle.
func ReadTorch(path string) (*StateDict, error) {
	obj, err := pytorch.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load torch checkpoint %s: %w", path, err)
	}

	entries, err := dictEntries(obj)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	// Unwrap training checkpoints.
	for _, e := range entries {
		if e.key == "state_dict" || e.key == "model" {
			if inner, err := dictEntries(e.value); err == nil {
				entries = inner
				break
			}
		}
	}

	sd := NewStateDict()
	for _, e := range entries {
		t, ok := e.value.(*pytorch.Tensor)
		if !ok {
			slog.Debug("torch: skipping non-tensor entry", "key", e.key, "type", fmt.Sprintf("%T", e.value))
			continue
		}
		raw, err := torchTensor(t)
		if err != nil {
			return nil, fmt.Errorf("%s: tensor %s: %w", path, e.key, err)
		}
		sd.Set(e.key, raw)
	}

	return sd, nil
}

type dictEntry struct {
	key   string
	value any
}

func dictEntries(obj any) ([]dictEntry, error) {
	var entries []dictEntry
	switch d := obj.(type) {
	case *types.OrderedDict:
		for el := d.List.Front(); el != nil; el = el.Next() {
			entry := el.Value.(*types.OrderedDictEntry)
			key, ok := entry.Key.(string)
			if !ok {
				return nil, fmt.Errorf("non-string key %v", entry.Key)
			}
			entries = append(entries, dictEntry{key, entry.Value})
		}
	case *types.Dict:
		for _, k := range d.Keys() {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string key %v", k)
			}
			entries = append(entries, dictEntry{key, d.MustGet(k)})
		}
	default:
		return nil, fmt.Errorf("expected a state dict, got %T", obj)
	}
	return entries, nil
}

// torchTensor gathers a possibly strided torch tensor into a contiguous
// float32 RawTensor.
func torchTensor(t *pytorch.Tensor) (*tensor.RawTensor, error) {
	storage, err := storageFloat32(t.Source)
	if err != nil {
		return nil, err
	}

	shape := tensor.Shape(append([]int{}, t.Size...))
	n := shape.NumElements()
	out := make([]float32, n)

	if len(t.Stride) != len(shape) {
		return nil, fmt.Errorf("stride %v does not match shape %v", t.Stride, shape)
	}

	index := make([]int, len(shape))
	for i := 0; i < n; i++ {
		off := t.StorageOffset
		for d, idx := range index {
			off += idx * t.Stride[d]
		}
		if off < 0 || off >= len(storage) {
			return nil, fmt.Errorf("element offset %d outside storage of %d", off, len(storage))
		}
		out[i] = storage[off]

		for d := len(index) - 1; d >= 0; d-- {
			index[d]++
			if index[d] < shape[d] {
				break
			}
			index[d] = 0
		}
	}

	return tensor.RawFromSlice(out, shape, tensor.CPU)
}

func storageFloat32(s pytorch.StorageInterface) ([]float32, error) {
	switch st := s.(type) {
	case *pytorch.FloatStorage:
		return st.Data, nil
	case *pytorch.HalfStorage:
		return st.Data, nil
	case *pytorch.BFloat16Storage:
		return st.Data, nil
	case *pytorch.DoubleStorage:
		return widen(st.Data), nil
	case *pytorch.LongStorage:
		return widen(st.Data), nil
	case *pytorch.IntStorage:
		return widen(st.Data), nil
	case *pytorch.ShortStorage:
		return widen(st.Data), nil
	case *pytorch.CharStorage:
		return widen(st.Data), nil
	case *pytorch.ByteStorage:
		return widen(st.Data), nil
	default:
		return nil, fmt.Errorf("%w: torch storage %T", ErrUnsupportedDType, s)
	}
}

func widen[T float64 | int64 | int32 | int16 | int8 | uint8](data []T) []float32 {
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(v)
	}
	return out
}
