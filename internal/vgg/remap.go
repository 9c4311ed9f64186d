package vgg

import (
	"log/slog"
	"strings"

	"github.com/born-ml/zoo/internal/checkpoint"
	"github.com/born-ml/zoo/internal/tensor"
)

// legacyRename maps the flat classifier of torchvision-style checkpoints onto
// the restructured head. Replacement is by substring, applied in order.
var legacyRename = []struct {
	from, to string
	reshape  func(flat tensor.Shape) tensor.Shape // applied to <from>.weight; nil keeps the shape
}{
	{"classifier.0", "pre_logits.fc1", func(tensor.Shape) tensor.Shape { return tensor.Shape{-1, 512, 7, 7} }},
	{"classifier.3", "pre_logits.fc2", func(flat tensor.Shape) tensor.Shape { return tensor.Shape{flat[0], flat[1], 1, 1} }},
	{"classifier.6", "head.fc", nil},
}

// RemapLegacyClassifier returns a copy of sd with the flat classifier keys
// renamed to their ConvMlp and head equivalents:
//
//	classifier.0.* -> pre_logits.fc1.*  (weight reshaped to [-1, 512, 7, 7])
//	classifier.3.* -> pre_logits.fc2.*  (weight [out, mid] reshaped to [out, mid, 1, 1])
//	classifier.6.* -> head.fc.*
//
// Only flat (2D) weights are reshaped. Other keys pass through and the order
// is preserved. Absent legacy keys are not an error, and a weight whose size
// does not fit the target shape keeps its original shape. Reshaped tensors
// share data with sd.
func RemapLegacyClassifier(sd *checkpoint.StateDict) *checkpoint.StateDict {
	out := checkpoint.NewStateDict()

	sd.Range(func(key string, t *tensor.RawTensor) bool {
		newKey := key
		for _, r := range legacyRename {
			newKey = strings.ReplaceAll(newKey, r.from, r.to)
		}

		for _, r := range legacyRename {
			if r.reshape == nil || len(t.Shape()) != 2 || !strings.Contains(key, r.from+".weight") {
				continue
			}
			reshaped, err := t.Reshape(r.reshape(t.Shape()))
			if err != nil {
				slog.Debug("remap: keeping shape", "key", key, "shape", t.Shape(), "error", err)
				break
			}
			t = reshaped
			break
		}

		if newKey != key {
			slog.Debug("remap: renamed", "from", key, "to", newKey, "shape", t.Shape())
		}
		out.Set(newKey, t)
		return true
	})

	return out
}
