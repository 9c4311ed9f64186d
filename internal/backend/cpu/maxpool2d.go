package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/zoo/internal/parallel"
	"github.com/born-ml/zoo/internal/tensor"
)

// MaxPool2D performs 2D max pooling without padding.
//
// Input shape:  [batch, channels, height, width]
// Output shape: [batch, channels, out_height, out_width]
//
// Where:
//
//	out_height = (height - kernelSize) / stride + 1
//	out_width = (width - kernelSize) / stride + 1
//
// Example (2x2 pool, stride=2):
//
//	Input: [[1,2,3,4],    Output: [[6,8],
//	        [5,6,7,8],             [14,16]]
//	        [9,10,11,12],
//	        [13,14,15,16]]
func (cpu *CPUBackend) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	N, C, H, W := dims4("maxpool2d", input)

	if kernelSize <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid kernel size %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid stride %d", stride))
	}
	if kernelSize > H || kernelSize > W {
		panic(fmt.Sprintf("maxpool2d: kernel size %d too large for input %dx%d", kernelSize, H, W))
	}

	HOut := (H-kernelSize)/stride + 1
	WOut := (W-kernelSize)/stride + 1

	output := tensor.MustRaw(tensor.Shape{N, C, HOut, WOut}, cpu.device)
	inputData := input.Data()
	outputData := output.Data()

	parallel.ForPlanes(N, C, func(n, c int) {
		plane := (n*C + c)
		src := inputData[plane*H*W : (plane+1)*H*W]
		dst := outputData[plane*HOut*WOut : (plane+1)*HOut*WOut]

		for outH := 0; outH < HOut; outH++ {
			hStart := outH * stride
			for outW := 0; outW < WOut; outW++ {
				wStart := outW * stride
				maxVal := float32(math.Inf(-1))
				for kh := 0; kh < kernelSize; kh++ {
					row := src[(hStart+kh)*W : (hStart+kh+1)*W]
					for kw := 0; kw < kernelSize; kw++ {
						if v := row[wStart+kw]; v > maxVal {
							maxVal = v
						}
					}
				}
				dst[outH*WOut+outW] = maxVal
			}
		}
	}, cpu.parallel)

	return output
}

// AdaptiveAvgPool2D averages variable windows so the output is outH x outW.
//
// Output cell i along an axis of length L reads [floor(i*L/out), ceil((i+1)*L/out)).
// When out > L windows overlap and inputs are replicated.
func (cpu *CPUBackend) AdaptiveAvgPool2D(input *tensor.RawTensor, outH, outW int) *tensor.RawTensor {
	return cpu.adaptivePool("adaptive_avg_pool2d", input, outH, outW, func(window []float32) float32 {
		var sum float32
		for _, v := range window {
			sum += v
		}
		return sum / float32(len(window))
	})
}

// AdaptiveMaxPool2D takes the maximum over the same windows as AdaptiveAvgPool2D.
func (cpu *CPUBackend) AdaptiveMaxPool2D(input *tensor.RawTensor, outH, outW int) *tensor.RawTensor {
	return cpu.adaptivePool("adaptive_max_pool2d", input, outH, outW, func(window []float32) float32 {
		maxVal := float32(math.Inf(-1))
		for _, v := range window {
			if v > maxVal {
				maxVal = v
			}
		}
		return maxVal
	})
}

func (cpu *CPUBackend) adaptivePool(op string, input *tensor.RawTensor, outH, outW int, reduce func([]float32) float32) *tensor.RawTensor {
	N, C, H, W := dims4(op, input)
	if outH <= 0 || outW <= 0 {
		panic(fmt.Sprintf("%s: invalid output size %dx%d", op, outH, outW))
	}
	if H == 0 || W == 0 {
		panic(fmt.Sprintf("%s: empty input %dx%d", op, H, W))
	}

	output := tensor.MustRaw(tensor.Shape{N, C, outH, outW}, cpu.device)
	inputData := input.Data()
	outputData := output.Data()

	parallel.ForPlanes(N, C, func(n, c int) {
		plane := (n*C + c)
		src := inputData[plane*H*W : (plane+1)*H*W]
		dst := outputData[plane*outH*outW : (plane+1)*outH*outW]
		window := make([]float32, 0, H*W)

		for i := 0; i < outH; i++ {
			h0, h1 := adaptiveRange(i, H, outH)
			for j := 0; j < outW; j++ {
				w0, w1 := adaptiveRange(j, W, outW)
				window = window[:0]
				for h := h0; h < h1; h++ {
					window = append(window, src[h*W+w0:h*W+w1]...)
				}
				dst[i*outW+j] = reduce(window)
			}
		}
	}, cpu.parallel)

	return output
}

// adaptiveRange returns the half-open input window for output cell i.
func adaptiveRange(i, in, out int) (start, end int) {
	start = (i * in) / out
	end = ((i+1)*in + out - 1) / out
	return start, end
}

func dims4(op string, t *tensor.RawTensor) (n, c, h, w int) {
	shape := t.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("%s: expected 4D input [N,C,H,W], got %dD", op, len(shape)))
	}
	return shape[0], shape[1], shape[2], shape[3]
}
