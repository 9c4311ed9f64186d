package vgg

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"

	"github.com/born-ml/zoo/internal/checkpoint"
	"github.com/born-ml/zoo/internal/nn"
	"github.com/born-ml/zoo/internal/tensor"
)

// Fixed widths of the VGG head.
const (
	HeadHiddenSize = 4096
	HeadKernelSize = 7
)

// Errors returned by model construction and configuration.
var (
	ErrOutputStride      = errors.New("vgg supports output stride 32 only")
	ErrGradCheckpointing = errors.New("vgg does not support gradient checkpointing")
)

// Model is a VGG classifier.
//
//	features   Sequential of conv/[norm]/act and max-pool layers
//	pre_logits ConvMlp mapping the final map to a 4096-wide embedding
//	head       ClassifierHead with global pooling and the logit projection
type Model[B tensor.Backend] struct {
	cfg         Config
	features    *nn.Sequential[B]
	preLogits   *ConvMlp[B]
	head        *ClassifierHead[B]
	featureInfo []StageInfo
	numFeatures int
}

// NewModel builds a model for a layer configuration and initializes its
// weights. It panics if cfg.OutputStride is not 32; Create reports that as
// ErrOutputStride before building.
func NewModel[B tensor.Backend](layers []LayerSpec, cfg Config, backend B) (*Model[B], error) {
	if cfg.OutputStride != 32 {
		panic(fmt.Sprintf("vgg: output stride %d requested, only 32 is supported", cfg.OutputStride))
	}

	f, err := NewLayerFactory[B](cfg.Conv, cfg.Norm, cfg.Act)
	if err != nil {
		return nil, fmt.Errorf("vgg: %w", err)
	}

	features, info := BuildFeatures(layers, cfg.InChannels, f, backend)
	numFeatures := info[len(info)-1].NumChannels

	head, err := NewClassifierHead(HeadHiddenSize, cfg.NumClasses, cfg.GlobalPool, cfg.DropRate, backend)
	if err != nil {
		return nil, fmt.Errorf("vgg: %w", err)
	}

	m := &Model[B]{
		cfg:         cfg,
		features:    features,
		preLogits:   NewConvMlp(numFeatures, HeadHiddenSize, HeadKernelSize, cfg.MLPRatio, cfg.DropRate, f, backend),
		head:        head,
		featureInfo: info,
		numFeatures: numFeatures,
	}
	m.initWeights()
	return m, nil
}

// initWeights applies the VGG init policy: Kaiming-normal (fan_out, relu)
// conv weights, unit/zero batch norm affine, N(0, 0.01) linear weights and
// zero biases throughout.
func (m *Model[B]) initWeights() {
	nn.Walk[B](m, func(_ string, mod nn.Module[B]) {
		switch l := mod.(type) {
		case *nn.Conv2D[B]:
			nn.KaimingNormalFanOut(l.Weight().Tensor())
			if l.Bias() != nil {
				nn.ConstantInit(l.Bias().Tensor(), 0)
			}
		case *nn.BatchNorm2D[B]:
			nn.ConstantInit(l.Weight().Tensor(), 1)
			nn.ConstantInit(l.Bias().Tensor(), 0)
		case *nn.Linear[B]:
			nn.NormalInit(l.Weight().Tensor(), 0, 0.01)
			nn.ConstantInit(l.Bias().Tensor(), 0)
		}
	})
}

// Forward returns logits [N, num_classes], or pooled features when the
// classifier has been removed.
func (m *Model[B]) Forward(x *tensor.Tensor[B]) *tensor.Tensor[B] {
	return m.ForwardHead(m.ForwardFeatures(x), false)
}

// ForwardFeatures runs the feature stack: [N, C, H, W] -> [N, 512, H/32, W/32].
func (m *Model[B]) ForwardFeatures(x *tensor.Tensor[B]) *tensor.Tensor[B] {
	return m.features.Forward(x)
}

// ForwardHead maps a feature map to logits, or to the pooled embedding when
// preLogits is set.
func (m *Model[B]) ForwardHead(x *tensor.Tensor[B], preLogits bool) *tensor.Tensor[B] {
	x = m.preLogits.Forward(x)
	return m.head.ForwardHead(x, preLogits)
}

// Classifier returns the final projection.
func (m *Model[B]) Classifier() nn.Module[B] {
	return m.head.FC()
}

// ResetClassifier replaces the classifier for numClasses outputs, keeping
// the pooling. numClasses <= 0 removes it.
func (m *Model[B]) ResetClassifier(numClasses int) error {
	return m.resetClassifier(numClasses, nil)
}

// ResetClassifierPool replaces the classifier and its pooling.
func (m *Model[B]) ResetClassifierPool(numClasses int, pool PoolKind) error {
	return m.resetClassifier(numClasses, &pool)
}

func (m *Model[B]) resetClassifier(numClasses int, pool *PoolKind) error {
	if err := m.head.Reset(numClasses, pool); err != nil {
		return err
	}
	m.cfg.NumClasses = m.head.NumClasses()
	m.cfg.GlobalPool = m.head.Pool()
	return nil
}

// SetGradCheckpointing accepts only false.
func (m *Model[B]) SetGradCheckpointing(enable bool) error {
	if enable {
		return ErrGradCheckpointing
	}
	return nil
}

// SetTraining switches dropout and batch norm between training and eval.
func (m *Model[B]) SetTraining(training bool) {
	for _, c := range m.Children() {
		nn.SetTraining(c.Module, training)
	}
}

// FeatureInfo returns the six extraction points, stem to final stage.
func (m *Model[B]) FeatureInfo() []StageInfo {
	return slices.Clone(m.featureInfo)
}

// Features returns the feature stack.
func (m *Model[B]) Features() *nn.Sequential[B] { return m.features }

// PreLogits returns the ConvMlp.
func (m *Model[B]) PreLogits() *ConvMlp[B] { return m.preLogits }

// Head returns the classifier head.
func (m *Model[B]) Head() *ClassifierHead[B] { return m.head }

// Config returns the configuration the model was built with, reflecting
// later classifier resets.
func (m *Model[B]) Config() Config { return m.cfg }

// NumFeatures returns the channel count of the final feature map.
func (m *Model[B]) NumFeatures() int { return m.numFeatures }

// HeadHiddenSize returns the ConvMlp embedding width.
func (m *Model[B]) HeadHiddenSize() int { return m.preLogits.OutFeatures() }

// NumClasses returns the classifier width, 0 when removed.
func (m *Model[B]) NumClasses() int { return m.head.NumClasses() }

// Children implements nn.Container.
func (m *Model[B]) Children() []nn.Child[B] {
	return []nn.Child[B]{
		{Name: "features", Module: m.features},
		{Name: "pre_logits", Module: m.preLogits},
		{Name: "head", Module: m.head},
	}
}

// Parameters returns all learnable parameters.
func (m *Model[B]) Parameters() []*nn.Parameter[B] {
	return nn.ChildrenParameters(m.Children())
}

// StateDict returns every persistent tensor under its checkpoint key.
func (m *Model[B]) StateDict() *checkpoint.StateDict {
	return nn.ChildrenState(m.Children())
}

// LoadStateDict copies sd into the model. See nn.LoadStateDict.
func (m *Model[B]) LoadStateDict(sd *checkpoint.StateDict, strict bool) (*nn.LoadResult, error) {
	return nn.LoadStateDict[B](m, sd, strict)
}

// GroupMatcher assigns parameter names to layer groups for layer-wise
// learning rate schedules.
type GroupMatcher struct {
	Stem   *regexp.Regexp
	Blocks *regexp.Regexp
}

var vggGroups = GroupMatcher{
	Stem:   regexp.MustCompile(`^features\.0`),
	Blocks: regexp.MustCompile(`^features\.(\d+)`),
}

// GroupMatcher returns the stem/blocks grouping. VGG has no coarser
// grouping, so the coarse flag has no effect.
func (m *Model[B]) GroupMatcher(_ bool) GroupMatcher {
	return vggGroups
}

// Match returns the group of a parameter name: "stem", or "blocks" with the
// layer index. Names outside the feature stack report ok=false.
func (g GroupMatcher) Match(name string) (group string, index int, ok bool) {
	sub := g.Blocks.FindStringSubmatch(name)
	if sub == nil {
		return "", 0, false
	}
	index, err := strconv.Atoi(sub[1])
	if err != nil {
		return "", 0, false
	}
	if index == 0 && g.Stem.MatchString(name) {
		return "stem", 0, true
	}
	return "blocks", index, true
}
