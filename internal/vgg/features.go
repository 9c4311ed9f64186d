package vgg

import (
	"fmt"

	"github.com/born-ml/zoo/internal/nn"
	"github.com/born-ml/zoo/internal/tensor"
)

// StageInfo describes one feature-extraction point of the stage stack.
type StageInfo struct {
	NumChannels int    // channel count of the feature map
	Reduction   int    // cumulative stride relative to the input
	Module      string // dotted path of the stage's last layer, e.g. "features.3"
	LayerIndex  int    // index of that layer inside the feature stack
}

// ConvMaker builds a biased convolution with a square kernel.
type ConvMaker[B tensor.Backend] func(in, out, kernel, padding int, backend B) nn.Module[B]

// NormMaker builds a normalization layer over channels.
type NormMaker[B tensor.Backend] func(channels int, backend B) nn.Module[B]

// ActMaker builds an activation layer.
type ActMaker[B tensor.Backend] func() nn.Module[B]

// LayerFactory is the set of unit constructors a VGG is built from.
// A nil Norm builds the plain (un-normalized) variant.
type LayerFactory[B tensor.Backend] struct {
	Conv ConvMaker[B]
	Norm NormMaker[B]
	Act  ActMaker[B]
}

// Unit kinds understood by NewLayerFactory.
const (
	ConvDefault   = "conv2d"
	NormNone      = ""
	NormBatchNorm = "batchnorm"
)

// NewLayerFactory resolves unit kinds to constructors.
func NewLayerFactory[B tensor.Backend](convKind, normKind, actKind string) (LayerFactory[B], error) {
	var f LayerFactory[B]

	switch convKind {
	case ConvDefault, "":
		f.Conv = func(in, out, kernel, padding int, backend B) nn.Module[B] {
			return nn.NewConv2D(in, out, kernel, kernel, 1, padding, true, backend)
		}
	default:
		return f, fmt.Errorf("unknown conv kind %q", convKind)
	}

	switch normKind {
	case NormNone:
	case NormBatchNorm:
		f.Norm = func(channels int, backend B) nn.Module[B] {
			return nn.NewBatchNorm2D(channels, backend)
		}
	default:
		return f, fmt.Errorf("unknown norm kind %q", normKind)
	}

	if actKind == "" {
		actKind = nn.ActReLU
	}
	if _, err := nn.NewActivation[B](actKind); err != nil {
		return f, err
	}
	f.Act = func() nn.Module[B] {
		act, _ := nn.NewActivation[B](actKind)
		return act
	}

	return f, nil
}

// BuildFeatures instantiates the stage stack for layers.
//
// Each width v appends conv3x3(prev -> v, pad 1), the optional norm and the
// activation. Each Pool records a StageInfo for the map entering it, then
// appends a 2x2 stride-2 max pool. A final StageInfo describes the output
// of the last layer, so a configuration with k pools yields k+1 stages.
func BuildFeatures[B tensor.Backend](layers []LayerSpec, inChannels int, f LayerFactory[B], backend B) (*nn.Sequential[B], []StageInfo) {
	features := nn.NewSequential[B]()
	var info []StageInfo

	prev, stride := inChannels, 1
	stage := func() StageInfo {
		last := features.Len() - 1
		return StageInfo{
			NumChannels: prev,
			Reduction:   stride,
			Module:      fmt.Sprintf("features.%d", last),
			LayerIndex:  last,
		}
	}

	for _, spec := range layers {
		if spec.IsPool() {
			info = append(info, stage())
			features.Add(nn.NewMaxPool2D(2, 2, backend))
			stride *= 2
			continue
		}

		v := spec.Channels()
		features.Add(f.Conv(prev, v, 3, 1, backend))
		if f.Norm != nil {
			features.Add(f.Norm(v, backend))
		}
		features.Add(f.Act())
		prev = v
	}
	info = append(info, stage())

	return features, info
}
