package tensor

// Backend defines the compute primitives the model zoo relies on.
//
// Modules never implement arithmetic themselves: convolution, pooling,
// normalization and matrix products are all delegated here. The interface is
// deliberately narrow so alternative engines only have to provide what a
// convolutional classifier actually calls.
//
// All operations allocate and return a new tensor unless documented otherwise.
// Shape violations are programming errors and panic with an "op: message" text.
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor

	// MatMul computes [M, K] @ [K, N] -> [M, N].
	MatMul(a, b *RawTensor) *RawTensor

	// MatMulTransposed computes [M, K] @ [N, K]^T -> [M, N].
	// Linear layers use it so weights stay in [out, in] layout.
	MatMulTransposed(a, b *RawTensor) *RawTensor

	// Convolutional operations
	Conv2D(input, kernel *RawTensor, stride, padding int) *RawTensor
	MaxPool2D(input *RawTensor, kernelSize, stride int) *RawTensor

	// Adaptive pooling resizes [N, C, H, W] to [N, C, outH, outW] using
	// variable windows; outH/outW may exceed H/W.
	AdaptiveAvgPool2D(input *RawTensor, outH, outW int) *RawTensor
	AdaptiveMaxPool2D(input *RawTensor, outH, outW int) *RawTensor

	// Normalization
	//
	// ChannelMoments returns the per-channel mean and biased variance of a
	// [N, C, H, W] tensor as two [C] tensors.
	ChannelMoments(input *RawTensor) (mean, variance *RawTensor)
	// BatchNorm2D normalizes with the given per-channel statistics and applies
	// the affine scale/shift: y = (x - mean) / sqrt(var + eps) * weight + bias.
	BatchNorm2D(input, mean, variance, weight, bias *RawTensor, eps float32) *RawTensor

	// Activation functions
	ReLU(x *RawTensor) *RawTensor
	GELU(x *RawTensor) *RawTensor
	SiLU(x *RawTensor) *RawTensor

	// Metadata
	Name() string
	Device() Device
}
