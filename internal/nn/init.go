package nn

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/born-ml/zoo/internal/tensor"
)

// Xavier (Glorot) initialization for weights.
//
// Initializes weights with values drawn from a uniform distribution:
// U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out)))
//
// Layers use it as their default; model builders usually overwrite it with
// their own policy.
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[B] {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	t := tensor.Zeros(shape, backend)
	fill(t.Data(), distuv.Uniform{Min: -bound, Max: bound})
	return t
}

// KaimingNormalFanOut fills w with N(0, 2/fan_out), the ReLU-gain He
// initialization computed over the output side.
//
// For a conv weight [out, in, kh, kw], fan_out = out * kh * kw.
func KaimingNormalFanOut[B tensor.Backend](w *tensor.Tensor[B]) {
	shape := w.Shape()
	if len(shape) < 2 {
		panic("kaiming_normal: weight must have at least 2 dimensions")
	}
	fanOut := shape[0]
	for _, d := range shape[2:] {
		fanOut *= d
	}
	std := math.Sqrt(2.0 / float64(fanOut))
	fill(w.Data(), distuv.Normal{Mu: 0, Sigma: std})
}

// NormalInit fills w with N(mean, std²).
func NormalInit[B tensor.Backend](w *tensor.Tensor[B], mean, std float64) {
	fill(w.Data(), distuv.Normal{Mu: mean, Sigma: std})
}

// ConstantInit fills w with value.
func ConstantInit[B tensor.Backend](w *tensor.Tensor[B], value float32) {
	data := w.Data()
	for i := range data {
		data[i] = value
	}
}

type sampler interface {
	Rand() float64
}

func fill(data []float32, dist sampler) {
	for i := range data {
		data[i] = float32(dist.Rand())
	}
}
