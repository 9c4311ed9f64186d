package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/zoo/internal/parallel"
	"github.com/born-ml/zoo/internal/tensor"
)

// ChannelMoments returns the per-channel mean and biased variance over the
// batch and spatial dimensions of a [N, C, H, W] tensor.
//
// Accumulation is done in float64 so large feature maps do not drift.
func (cpu *CPUBackend) ChannelMoments(input *tensor.RawTensor) (mean, variance *tensor.RawTensor) {
	N, C, H, W := dims4("channel_moments", input)
	count := N * H * W
	if count == 0 {
		panic("channel_moments: empty input")
	}

	mean = tensor.MustRaw(tensor.Shape{C}, cpu.device)
	variance = tensor.MustRaw(tensor.Shape{C}, cpu.device)
	data := input.Data()
	meanData, varData := mean.Data(), variance.Data()
	plane := H * W

	parallel.For(C, func(c int) {
		var sum float64
		for n := 0; n < N; n++ {
			for _, v := range data[(n*C+c)*plane : (n*C+c+1)*plane] {
				sum += float64(v)
			}
		}
		mu := sum / float64(count)

		var sq float64
		for n := 0; n < N; n++ {
			for _, v := range data[(n*C+c)*plane : (n*C+c+1)*plane] {
				d := float64(v) - mu
				sq += d * d
			}
		}
		meanData[c] = float32(mu)
		varData[c] = float32(sq / float64(count))
	}, cpu.parallel)

	return mean, variance
}

// BatchNorm2D applies y = (x - mean) / sqrt(var + eps) * weight + bias per channel.
// mean, variance, weight and bias are all [C] tensors.
func (cpu *CPUBackend) BatchNorm2D(input, mean, variance, weight, bias *tensor.RawTensor, eps float32) *tensor.RawTensor {
	N, C, H, W := dims4("batchnorm2d", input)
	for name, p := range map[string]*tensor.RawTensor{"mean": mean, "var": variance, "weight": weight, "bias": bias} {
		if p.NumElements() != C {
			panic(fmt.Sprintf("batchnorm2d: %s has %d elements, expected %d", name, p.NumElements(), C))
		}
	}

	result := tensor.MustRaw(input.Shape(), cpu.device)
	src, dst := input.Data(), result.Data()
	meanData, varData := mean.Data(), variance.Data()
	weightData, biasData := weight.Data(), bias.Data()
	plane := H * W

	parallel.ForPlanes(N, C, func(n, c int) {
		scale := weightData[c] / float32(math.Sqrt(float64(varData[c]+eps)))
		shift := biasData[c] - meanData[c]*scale
		off := (n*C + c) * plane
		for i, v := range src[off : off+plane] {
			dst[off+i] = v*scale + shift
		}
	}, cpu.parallel)

	return result
}
