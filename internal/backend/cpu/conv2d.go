package cpu

import (
	"fmt"

	"github.com/born-ml/zoo/internal/parallel"
	"github.com/born-ml/zoo/internal/tensor"
)

// Conv2D performs 2D convolution using the im2col algorithm.
//
// Input shape: [batch, in_channels, height, width]
// Kernel shape: [out_channels, in_channels, kernel_h, kernel_w]
// Output shape: [batch, out_channels, out_h, out_w]
//
// Where:
//
//	out_h = (H + 2*padding - K_h) / stride + 1
//	out_w = (W + 2*padding - K_w) / stride + 1
//
// Algorithm (per image):
//  1. Im2col: [C, H, W] -> cols [H_out * W_out, C * K_h * K_w]
//  2. GEMM:   cols @ kernel^T -> [H_out * W_out, C_out]
//  3. Scatter into [C_out, H_out, W_out]
//
// Images of a batch are processed independently so the im2col buffer stays
// bounded by a single image.
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	inputShape := input.Shape()
	kernelShape := kernel.Shape()

	if len(inputShape) != 4 {
		panic(fmt.Sprintf("conv2d: input must be 4D [N,C,H,W], got %dD", len(inputShape)))
	}
	if len(kernelShape) != 4 {
		panic(fmt.Sprintf("conv2d: kernel must be 4D [C_out,C_in,K_h,K_w], got %dD", len(kernelShape)))
	}
	if stride <= 0 || padding < 0 {
		panic(fmt.Sprintf("conv2d: invalid stride %d / padding %d", stride, padding))
	}

	N, CIn, H, W := inputShape[0], inputShape[1], inputShape[2], inputShape[3]
	COut, CInK, KH, KW := kernelShape[0], kernelShape[1], kernelShape[2], kernelShape[3]

	if CIn != CInK {
		panic(fmt.Sprintf("conv2d: input channels %d != kernel channels %d", CIn, CInK))
	}

	HOut := (H+2*padding-KH)/stride + 1
	WOut := (W+2*padding-KW)/stride + 1
	if H+2*padding < KH || W+2*padding < KW || HOut <= 0 || WOut <= 0 {
		panic(fmt.Sprintf("conv2d: kernel %dx%d does not fit input %dx%d with padding %d", KH, KW, H, W, padding))
	}

	output := tensor.MustRaw(tensor.Shape{N, COut, HOut, WOut}, cpu.device)

	inputData := input.Data()
	kernelData := kernel.Data()
	outputData := output.Data()

	colWidth := CIn * KH * KW
	colHeight := HOut * WOut
	imageIn := CIn * H * W
	imageOut := COut * colHeight

	parallel.For(N, func(n int) {
		colBuf := make([]float32, colHeight*colWidth)
		im2col(colBuf, inputData[n*imageIn:(n+1)*imageIn], CIn, H, W, KH, KW, HOut, WOut, stride, padding)

		// [H_out*W_out, C_out]
		prod := make([]float32, colHeight*COut)
		gemmNT(colHeight, COut, colWidth, colBuf, kernelData, prod)

		dst := outputData[n*imageOut : (n+1)*imageOut]
		for p := 0; p < colHeight; p++ {
			row := prod[p*COut : (p+1)*COut]
			for c, v := range row {
				dst[c*colHeight+p] = v
			}
		}
	}, cpu.batchConfig())

	return output
}

// batchConfig parallelizes across images even for small batches.
func (cpu *CPUBackend) batchConfig() parallel.Config {
	cfg := cpu.parallel
	cfg.MinChunkSize = 1
	return cfg
}

// im2col transforms one image [C, H, W] into a column matrix.
//
// Each row of colBuf corresponds to one output position; each column to one
// kernel weight in (c, kh, kw) order, i.e. the flattened kernel layout.
func im2col(colBuf, image []float32, C, H, W, KH, KW, HOut, WOut, stride, padding int) {
	colWidth := C * KH * KW
	row := 0

	for outH := 0; outH < HOut; outH++ {
		for outW := 0; outW < WOut; outW++ {
			hStart := outH*stride - padding
			wStart := outW*stride - padding
			bufIdx := row * colWidth

			for c := 0; c < C; c++ {
				plane := image[c*H*W : (c+1)*H*W]
				for kh := 0; kh < KH; kh++ {
					h := hStart + kh
					for kw := 0; kw < KW; kw++ {
						w := wStart + kw
						if h >= 0 && h < H && w >= 0 && w < W {
							colBuf[bufIdx] = plane[h*W+w]
						} else {
							colBuf[bufIdx] = 0
						}
						bufIdx++
					}
				}
			}
			row++
		}
	}
}
