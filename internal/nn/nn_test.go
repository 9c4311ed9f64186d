package nn_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/zoo/internal/backend/cpu"
	"github.com/born-ml/zoo/internal/checkpoint"
	"github.com/born-ml/zoo/internal/nn"
	"github.com/born-ml/zoo/internal/tensor"
)

type B = *cpu.CPUBackend

func fromSlice(t *testing.T, backend B, data []float32, shape ...int) *tensor.Tensor[B] {
	t.Helper()
	x, err := tensor.FromSlice(data, tensor.Shape(shape), backend)
	require.NoError(t, err)
	return x
}

func TestParameter(t *testing.T) {
	backend := cpu.New()
	data := fromSlice(t, backend, []float32{1, 2, 3}, 3)
	param := nn.NewParameter("test_param", data)

	assert.Equal(t, "test_param", param.Name())
	assert.Same(t, data, param.Tensor())
	assert.Same(t, data.Raw(), param.Raw())
}

func TestLinear_Creation(t *testing.T) {
	backend := cpu.New()
	layer := nn.NewLinear(10, 5, backend)

	assert.Equal(t, 10, layer.InFeatures())
	assert.Equal(t, 5, layer.OutFeatures())
	assert.Equal(t, tensor.Shape{5, 10}, layer.Weight().Tensor().Shape())
	assert.Equal(t, tensor.Shape{5}, layer.Bias().Tensor().Shape())
	assert.Len(t, layer.Parameters(), 2)
	assert.Equal(t, []string{"weight", "bias"}, layer.StateDict().Keys())

	// Xavier bound for fan_in=10, fan_out=5
	bound := float32(math.Sqrt(6.0 / 15.0))
	for _, v := range layer.Weight().Tensor().Data() {
		assert.LessOrEqual(t, v, bound)
		assert.GreaterOrEqual(t, v, -bound)
	}
}

func TestLinear_Forward(t *testing.T) {
	backend := cpu.New()
	layer := nn.NewLinear(3, 2, backend)

	copy(layer.Weight().Tensor().Data(), []float32{1, 0, -1, 2, 2, 2})
	copy(layer.Bias().Tensor().Data(), []float32{0.5, -1})

	x := fromSlice(t, backend, []float32{1, 2, 3, 0, 1, 0}, 2, 3)
	y := layer.Forward(x)

	assert.Equal(t, tensor.Shape{2, 2}, y.Shape())
	assert.Equal(t, []float32{-1.5, 11, 0.5, 1}, y.Data())

	assert.Panics(t, func() { layer.Forward(fromSlice(t, backend, []float32{1, 2}, 1, 2)) })
}

func TestConv2D_Forward(t *testing.T) {
	backend := cpu.New()
	conv := nn.NewConv2D(1, 2, 2, 2, 1, 0, true, backend)

	copy(conv.Weight().Tensor().Data(), []float32{
		1, 0, 0, 1, // diagonal
		0, 0, 0, 0, // bias only
	})
	copy(conv.Bias().Tensor().Data(), []float32{0, 7})

	x := fromSlice(t, backend, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, 1, 1, 3, 3)
	y := conv.Forward(x)

	assert.Equal(t, tensor.Shape{1, 2, 2, 2}, y.Shape())
	assert.Equal(t, []float32{6, 8, 12, 14, 7, 7, 7, 7}, y.Data())
	assert.Equal(t, [2]int{2, 2}, conv.ComputeOutputSize(3, 3))
	assert.Equal(t, []string{"weight", "bias"}, conv.StateDict().Keys())
}

func TestConv2D_NoBias(t *testing.T) {
	conv := nn.NewConv2D(3, 4, 1, 1, 1, 0, false, cpu.New())
	assert.Nil(t, conv.Bias())
	assert.Len(t, conv.Parameters(), 1)
	assert.Equal(t, []string{"weight"}, conv.StateDict().Keys())
}

func TestConv2D_InvalidArgs(t *testing.T) {
	backend := cpu.New()
	assert.Panics(t, func() { nn.NewConv2D(0, 4, 3, 3, 1, 1, true, backend) })
	assert.Panics(t, func() { nn.NewConv2D(3, 4, 3, 3, 0, 1, true, backend) })
	assert.Panics(t, func() { nn.NewConv2D(3, 4, 3, 3, 1, -1, true, backend) })

	conv := nn.NewConv2D(3, 4, 3, 3, 1, 1, true, backend)
	assert.Panics(t, func() { conv.Forward(tensor.Zeros(tensor.Shape{1, 2, 4, 4}, backend)) })
}

func TestBatchNorm2D_EvalUsesRunningStats(t *testing.T) {
	backend := cpu.New()
	bn := nn.NewBatchNorm2D(2, backend)

	sd := bn.StateDict()
	assert.Equal(t, []string{"weight", "bias", "running_mean", "running_var", "num_batches_tracked"}, sd.Keys())
	assert.Len(t, bn.Parameters(), 2)

	rm, _ := sd.Get("running_mean")
	rv, _ := sd.Get("running_var")
	copy(rm.Data(), []float32{1, -1})
	copy(rv.Data(), []float32{4, 1})

	x := fromSlice(t, backend, []float32{1, 3, 5, 7, -1, 0, 1, 2}, 1, 2, 2, 2)
	y := bn.Forward(x).Data()

	eps := float64(nn.BatchNormEps)
	s0 := float32(1 / math.Sqrt(4+eps))
	s1 := float32(1 / math.Sqrt(1+eps))
	assert.InDeltaSlice(t, []float32{0, 2 * s0, 4 * s0, 6 * s0}, y[:4], 1e-5)
	assert.InDeltaSlice(t, []float32{0, s1, 2 * s1, 3 * s1}, y[4:], 1e-5)
}

func TestBatchNorm2D_TrainingUsesBatchStats(t *testing.T) {
	backend := cpu.New()
	bn := nn.NewBatchNorm2D(1, backend)
	bn.SetTraining(true)
	assert.True(t, bn.Training())

	x := fromSlice(t, backend, []float32{2, 4, 6, 8}, 1, 1, 2, 2)
	y := bn.Forward(x).Data()

	// mean 5, biased var 5
	std := math.Sqrt(5 + nn.BatchNormEps)
	want := []float32{float32(-3 / std), float32(-1 / std), float32(1 / std), float32(3 / std)}
	assert.InDeltaSlice(t, want, y, 1e-5)

	rm, _ := bn.StateDict().Get("running_mean")
	assert.Equal(t, []float32{0}, rm.Data(), "running stats stay untouched")
}

func TestActivations(t *testing.T) {
	backend := cpu.New()
	x := fromSlice(t, backend, []float32{-1, 0, 2}, 3)

	for _, name := range []string{nn.ActReLU, nn.ActGELU, nn.ActSiLU, "swish"} {
		act, err := nn.NewActivation[B](name)
		require.NoError(t, err, name)
		y := act.Forward(x)
		assert.Equal(t, x.Shape(), y.Shape())
		assert.Empty(t, act.Parameters())
		assert.Zero(t, act.StateDict().Len())
	}

	assert.Equal(t, []float32{0, 0, 2}, nn.NewReLU[B]().Forward(x).Data())

	_, err := nn.NewActivation[B]("tanh")
	assert.Error(t, err)
}

func TestDropout(t *testing.T) {
	backend := cpu.New()
	x := tensor.Ones(tensor.Shape{1000}, backend)

	d := nn.NewDropout[B](0.5)
	assert.Same(t, x, d.Forward(x), "eval mode is identity")

	d.SetTraining(true)
	y := d.Forward(x).Data()
	zeros := 0
	for _, v := range y {
		if v == 0 {
			zeros++
		} else {
			assert.Equal(t, float32(2), v)
		}
	}
	assert.Greater(t, zeros, 350)
	assert.Less(t, zeros, 650)
	assert.Equal(t, float32(1), x.Data()[0], "input is not modified")

	assert.Panics(t, func() { nn.NewDropout[B](1) })
}

func TestPooling(t *testing.T) {
	backend := cpu.New()
	x := tensor.Arange(tensor.Shape{2, 3, 4, 4}, backend)

	assert.Equal(t, tensor.Shape{2, 3, 2, 2}, nn.NewMaxPool2D(2, 2, backend).Forward(x).Shape())
	assert.Equal(t, tensor.Shape{2, 3, 7, 7}, nn.NewAdaptiveAvgPool2D(7, 7, backend).Forward(x).Shape())

	m := nn.NewAdaptiveMaxPool2D(1, 1, backend).Forward(x)
	assert.Equal(t, tensor.Shape{2, 3, 1, 1}, m.Shape())
	assert.Equal(t, float32(15), m.Data()[0])
}

func TestFlattenAndIdentity(t *testing.T) {
	backend := cpu.New()
	x := tensor.Zeros(tensor.Shape{2, 3, 4, 5}, backend)

	assert.Equal(t, tensor.Shape{2, 60}, nn.NewFlatten[B](1).Forward(x).Shape())
	assert.Same(t, x, nn.NewIdentity[B]().Forward(x))
}

func TestSequential(t *testing.T) {
	backend := cpu.New()
	model := nn.NewSequential[B](
		nn.NewConv2D(1, 2, 3, 3, 1, 1, true, backend),
		nn.NewBatchNorm2D(2, backend),
		nn.NewReLU[B](),
	)
	model.Add(nn.NewMaxPool2D(2, 2, backend))

	assert.Equal(t, 4, model.Len())
	assert.Len(t, model.Parameters(), 4)
	assert.Equal(t, []string{
		"0.weight", "0.bias",
		"1.weight", "1.bias", "1.running_mean", "1.running_var", "1.num_batches_tracked",
	}, model.StateDict().Keys())

	y := model.Forward(tensor.Randn(tensor.Shape{1, 1, 6, 6}, backend))
	assert.Equal(t, tensor.Shape{1, 2, 3, 3}, y.Shape())

	partial := model.ForwardRange(tensor.Randn(tensor.Shape{1, 1, 6, 6}, backend), 0, 1)
	assert.Equal(t, tensor.Shape{1, 2, 6, 6}, partial.Shape())

	assert.Panics(t, func() { model.Module(4) })
}

// opaque is a container that declares itself a leaf.
type opaque struct {
	*nn.Sequential[B]
}

func (opaque) IsLeaf() bool { return true }

func TestWalkTraceAndTraining(t *testing.T) {
	backend := cpu.New()
	inner := opaque{nn.NewSequential[B](nn.NewDropout[B](0.1), nn.NewReLU[B]())}
	model := nn.NewSequential[B](
		nn.NewConv2D(1, 1, 1, 1, 1, 0, true, backend),
		inner,
		nn.NewBatchNorm2D(1, backend),
	)

	var paths []string
	nn.Walk[B](model, func(path string, _ nn.Module[B]) {
		paths = append(paths, path)
	})
	assert.Equal(t, []string{"", "0", "1", "1.0", "1.1", "2"}, paths)

	assert.Equal(t, []string{"0", "1", "2"}, nn.Trace[B](model), "tracing stops at leaf modules")

	nn.SetTraining[B](model, true)
	assert.True(t, model.Module(2).(*nn.BatchNorm2D[B]).Training())
	nn.SetTraining[B](model, false)
	assert.False(t, model.Module(2).(*nn.BatchNorm2D[B]).Training())
}

func TestLoadStateDict(t *testing.T) {
	backend := cpu.New()
	newModel := func() *nn.Sequential[B] {
		return nn.NewSequential[B](nn.NewLinear(2, 2, backend), nn.NewBatchNorm2D(2, backend))
	}

	src := newModel()
	dst := newModel()

	sd := src.StateDict()
	res, err := nn.LoadStateDict[B](dst, sd, true)
	require.NoError(t, err)
	assert.Empty(t, res.Missing)
	assert.Empty(t, res.Unexpected)
	assert.Equal(t, src.Module(0).(*nn.Linear[B]).Weight().Tensor().Data(),
		dst.Module(0).(*nn.Linear[B]).Weight().Tensor().Data())

	// Older checkpoints lack num_batches_tracked; that is not a mismatch.
	sd.Delete("1.num_batches_tracked")
	_, err = nn.LoadStateDict[B](dst, sd, true)
	require.NoError(t, err)

	sd.Delete("0.bias")
	extra, _ := tensor.RawFromSlice([]float32{1}, tensor.Shape{1}, tensor.CPU)
	sd.Set("extra", extra)

	res, err = nn.LoadStateDict[B](dst, sd, true)
	assert.ErrorIs(t, err, nn.ErrStateMismatch)
	assert.Equal(t, []string{"0.bias"}, res.Missing)
	assert.Equal(t, []string{"extra"}, res.Unexpected)

	res, err = nn.LoadStateDict[B](dst, sd, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"0.bias"}, res.Missing)

	bad := checkpoint.NewStateDict()
	wrong, _ := tensor.RawFromSlice([]float32{1, 2, 3}, tensor.Shape{3}, tensor.CPU)
	bad.Set("0.weight", wrong)
	_, err = nn.LoadStateDict[B](dst, bad, false)
	assert.Error(t, err, "shape mismatch always fails")
}

func TestInitialization(t *testing.T) {
	backend := cpu.New()

	w := tensor.Zeros(tensor.Shape{64, 32, 3, 3}, backend)
	nn.KaimingNormalFanOut(w)
	var sum, sq float64
	for _, v := range w.Data() {
		sum += float64(v)
		sq += float64(v) * float64(v)
	}
	n := float64(w.NumElements())
	std := math.Sqrt(sq/n - (sum/n)*(sum/n))
	assert.InDelta(t, math.Sqrt(2.0/(64*9)), std, 0.005)

	l := tensor.Zeros(tensor.Shape{100, 100}, backend)
	nn.NormalInit(l, 0, 0.01)
	sq = 0
	for _, v := range l.Data() {
		sq += float64(v) * float64(v)
	}
	assert.InDelta(t, 0.01, math.Sqrt(sq/1e4), 0.001)

	nn.ConstantInit(l, 3)
	assert.Equal(t, float32(3), l.At(99, 99))

	assert.Equal(t, 2*3+3, nn.NumParameters[B](nn.NewLinear(2, 3, backend)))
}
