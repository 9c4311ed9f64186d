package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/born-ml/zoo/internal/tensor"
)

// MatMul computes [M, K] @ [K, N] -> [M, N].
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: expected 2D operands, got %v and %v", aShape, bShape))
	}
	if aShape[1] != bShape[0] {
		panic(fmt.Sprintf("matmul: inner dimensions differ: %v @ %v", aShape, bShape))
	}

	m, k, n := aShape[0], aShape[1], bShape[1]
	result := tensor.MustRaw(tensor.Shape{m, n}, cpu.device)
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
		general(m, k, a.Data()),
		general(k, n, b.Data()),
		0, general(m, n, result.Data()))
	return result
}

// MatMulTransposed computes [M, K] @ [N, K]^T -> [M, N].
func (cpu *CPUBackend) MatMulTransposed(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: expected 2D operands, got %v and %v", aShape, bShape))
	}
	if aShape[1] != bShape[1] {
		panic(fmt.Sprintf("matmul: inner dimensions differ: %v @ %v^T", aShape, bShape))
	}

	m, k, n := aShape[0], aShape[1], bShape[0]
	result := tensor.MustRaw(tensor.Shape{m, n}, cpu.device)
	gemmNT(m, n, k, a.Data(), b.Data(), result.Data())
	return result
}

// gemmNT writes a[m, k] @ b[n, k]^T into c[m, n].
//
// Conv2D and Linear both funnel through this call, so a k×k convolution over
// a k×k input and the equivalent flat matrix product see identical operands.
func gemmNT(m, n, k int, a, b, c []float32) {
	blas32.Gemm(blas.NoTrans, blas.Trans, 1,
		general(m, k, a),
		general(n, k, b),
		0, general(m, n, c))
}

func general(rows, cols int, data []float32) blas32.General {
	return blas32.General{Rows: rows, Cols: cols, Stride: cols, Data: data}
}
