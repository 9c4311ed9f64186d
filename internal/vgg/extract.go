package vgg

import (
	"errors"
	"fmt"
	"slices"

	"github.com/born-ml/zoo/internal/nn"
	"github.com/born-ml/zoo/internal/tensor"
)

// ErrOutIndex is returned for an out index that names no stage.
var ErrOutIndex = errors.New("invalid out index")

// FeatureExtractor returns intermediate feature maps of a feature stack
// instead of logits.
type FeatureExtractor[B tensor.Backend] struct {
	features *nn.Sequential[B]
	stages   []StageInfo
	indices  []int
	last     int // index of the last layer that must run
}

// NewFeatureExtractor selects stages of info by index. Negative indices
// count from the end. Indices are returned in ascending order; duplicates
// and out-of-range values are an error.
func NewFeatureExtractor[B tensor.Backend](features *nn.Sequential[B], info []StageInfo, outIndices []int) (*FeatureExtractor[B], error) {
	if len(outIndices) == 0 {
		return nil, fmt.Errorf("%w: no out indices", ErrOutIndex)
	}

	indices := make([]int, 0, len(outIndices))
	for _, i := range outIndices {
		if i < 0 {
			i += len(info)
		}
		if i < 0 || i >= len(info) {
			return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrOutIndex, i, len(info))
		}
		if slices.Contains(indices, i) {
			return nil, fmt.Errorf("%w: duplicate index %d", ErrOutIndex, i)
		}
		indices = append(indices, i)
	}
	slices.Sort(indices)

	stages := make([]StageInfo, len(indices))
	for j, i := range indices {
		stages[j] = info[i]
	}

	return &FeatureExtractor[B]{
		features: features,
		stages:   stages,
		indices:  indices,
		last:     stages[len(stages)-1].LayerIndex,
	}, nil
}

// Forward returns one feature map per selected stage, shallowest first.
// Layers past the deepest selected stage are not run.
func (e *FeatureExtractor[B]) Forward(x *tensor.Tensor[B]) []*tensor.Tensor[B] {
	out := make([]*tensor.Tensor[B], 0, len(e.stages))
	start := 0
	for _, s := range e.stages {
		x = e.features.ForwardRange(x, start, s.LayerIndex+1)
		out = append(out, x)
		start = s.LayerIndex + 1
	}
	return out
}

// OutIndices returns the selected stage indices.
func (e *FeatureExtractor[B]) OutIndices() []int { return slices.Clone(e.indices) }

// FeatureInfo returns the selected stages.
func (e *FeatureExtractor[B]) FeatureInfo() []StageInfo { return slices.Clone(e.stages) }

// Channels returns the channel count of each output.
func (e *FeatureExtractor[B]) Channels() []int {
	out := make([]int, len(e.stages))
	for i, s := range e.stages {
		out[i] = s.NumChannels
	}
	return out
}

// Reductions returns the stride of each output relative to the input.
func (e *FeatureExtractor[B]) Reductions() []int {
	out := make([]int, len(e.stages))
	for i, s := range e.stages {
		out[i] = s.Reduction
	}
	return out
}

// SetTraining switches the feature stack between training and eval.
func (e *FeatureExtractor[B]) SetTraining(training bool) {
	nn.SetTraining[B](e.features, training)
}

// Parameters returns the parameters of the layers the extractor runs.
func (e *FeatureExtractor[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	for i := 0; i <= e.last; i++ {
		params = append(params, e.features.Module(i).Parameters()...)
	}
	return params
}
