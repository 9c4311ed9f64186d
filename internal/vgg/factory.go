package vgg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/born-ml/zoo/internal/checkpoint"
	"github.com/born-ml/zoo/internal/tensor"
)

// ErrNoWeightSource is returned when pretrained weights are requested
// without a source.
var ErrNoWeightSource = errors.New("pretrained weights requested without a weight source")

// Create builds the named variant ("vgg16_bn", optionally "vgg16_bn.tv_in1k").
//
// Options are applied over DefaultConfig and the variant's own settings, so
// WithNorm can override the normalization a name implies. With
// WithPretrained the weights are loaded, remapped from the legacy flat
// classifier layout and installed; a classifier of a different width than
// the pretrained one, or an input conv over other than 3 channels, is
// adapted first.
func Create[B tensor.Backend](ctx context.Context, name string, backend B, opts ...Option) (*Model[B], error) {
	v, err := Lookup(name)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	cfg.Norm = v.Norm
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	layers, ok := LayerConfig(v.Base)
	if !ok {
		return nil, fmt.Errorf("%w: no layer configuration for %q", ErrUnknownModel, v.Base)
	}

	model, err := NewModel(layers, cfg, backend)
	if err != nil {
		return nil, err
	}
	slog.Debug("created model", "model", v.Name, "num_classes", cfg.NumClasses,
		"in_chans", cfg.InChannels, "norm", cfg.Norm, "act", cfg.Act, "global_pool", string(cfg.GlobalPool))

	if cfg.Pretrained {
		if err := loadPretrained(ctx, model, v, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", v.Name, err)
		}
	}
	return model, nil
}

// CreateFeatureExtractor builds the named variant and wraps its feature
// stack to return the stages selected with WithOutIndices.
func CreateFeatureExtractor[B tensor.Backend](ctx context.Context, name string, backend B, opts ...Option) (*FeatureExtractor[B], error) {
	model, err := Create(ctx, name, backend, opts...)
	if err != nil {
		return nil, err
	}
	return NewFeatureExtractor(model.Features(), model.FeatureInfo(), model.Config().OutIndices)
}

func loadPretrained[B tensor.Backend](ctx context.Context, model *Model[B], v Variant, cfg Config) error {
	if cfg.WeightSource == nil {
		return ErrNoWeightSource
	}

	sd, err := cfg.WeightSource.Load(ctx, v.Name)
	if err != nil {
		return fmt.Errorf("loading pretrained weights: %w", err)
	}
	sd = RemapLegacyClassifier(sd)

	pc := v.Pretrained
	strict := cfg.PretrainedStrict

	if cfg.InChannels != pc.InputSize[0] {
		key := pc.FirstConv + ".weight"
		if w, ok := sd.Get(key); ok {
			adapted, err := adaptInputConv(w, cfg.InChannels)
			if err != nil {
				return fmt.Errorf("adapting %s: %w", key, err)
			}
			sd = withTensor(sd, key, adapted)
			slog.Info("adapted input conv", "key", key, "in_chans", cfg.InChannels)
		}
	}

	if cfg.NumClasses != pc.NumClasses {
		sd = withoutPrefix(sd, pc.Classifier+".")
		strict = false
		slog.Info("dropped pretrained classifier", "classifier", pc.Classifier,
			"pretrained_classes", pc.NumClasses, "num_classes", cfg.NumClasses)
	}

	result, err := model.LoadStateDict(sd, strict)
	if err != nil {
		return err
	}
	if len(result.Missing) > 0 || len(result.Unexpected) > 0 {
		slog.Warn("partial pretrained load", "model", v.Name,
			"missing", len(result.Missing), "unexpected", len(result.Unexpected))
	}
	slog.Info("loaded pretrained weights", "model", v.FullName(), "tensors", sd.Len())
	return nil
}

// withTensor returns a copy of sd with key replaced, keeping its position.
func withTensor(sd *checkpoint.StateDict, key string, t *tensor.RawTensor) *checkpoint.StateDict {
	out := checkpoint.NewStateDict()
	sd.Range(func(name string, v *tensor.RawTensor) bool {
		if name == key {
			v = t
		}
		out.Set(name, v)
		return true
	})
	return out
}

// withoutPrefix returns a copy of sd without keys under prefix.
func withoutPrefix(sd *checkpoint.StateDict, prefix string) *checkpoint.StateDict {
	out := checkpoint.NewStateDict()
	sd.Range(func(name string, v *tensor.RawTensor) bool {
		if !strings.HasPrefix(name, prefix) {
			out.Set(name, v)
		}
		return true
	})
	return out
}

// adaptInputConv converts an RGB conv weight [O, 3, kh, kw] to inChans
// inputs. A single channel sums the RGB filters; other counts tile them and
// rescale by 3/inChans so the expected activation is unchanged.
func adaptInputConv(w *tensor.RawTensor, inChans int) (*tensor.RawTensor, error) {
	shape := w.Shape()
	if len(shape) != 4 {
		return nil, fmt.Errorf("expected 4D conv weight, got %v", shape)
	}
	o, i, kh, kw := shape[0], shape[1], shape[2], shape[3]
	if i != 3 {
		return nil, fmt.Errorf("weight has %d input channels, only 3 can be adapted", i)
	}
	if inChans <= 0 {
		return nil, fmt.Errorf("invalid input channel count %d", inChans)
	}

	out := tensor.MustRaw(tensor.Shape{o, inChans, kh, kw}, w.Device())
	plane := kh * kw
	src, dst := w.Data(), out.Data()

	for oc := range o {
		srcBase := oc * i * plane
		dstBase := oc * inChans * plane
		if inChans == 1 {
			for c := range i {
				for p := range plane {
					dst[dstBase+p] += src[srcBase+c*plane+p]
				}
			}
			continue
		}

		scale := float32(3) / float32(inChans)
		for c := range inChans {
			from := src[srcBase+(c%i)*plane : srcBase+(c%i+1)*plane]
			to := dst[dstBase+c*plane : dstBase+(c+1)*plane]
			for p := range plane {
				to[p] = from[p] * scale
			}
		}
	}
	return out, nil
}
