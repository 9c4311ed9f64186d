package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/zoo/internal/checkpoint"
	"github.com/born-ml/zoo/internal/tensor"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestList(t *testing.T) {
	out, err := run(t, "list", "vgg11*")
	require.NoError(t, err)
	assert.Contains(t, out, "vgg11.tv_in1k")
	assert.Contains(t, out, "vgg11_bn.tv_in1k")
	assert.NotContains(t, out, "vgg13")
	assert.Contains(t, out, "64 M 128 M")
}

func TestInfo(t *testing.T) {
	out, err := run(t, "info", "vgg11")
	require.NoError(t, err)
	assert.Contains(t, out, "features.20")
	assert.Contains(t, out, "132863336") // vgg11 parameter count
	assert.Contains(t, out, "bilinear")

	_, err = run(t, "info", "lenet")
	require.Error(t, err)
}

func TestRemap(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "legacy.safetensors")
	out := filepath.Join(dir, "remapped.safetensors")

	sd := checkpoint.NewStateDict()
	sd.Set("features.0.bias", tensor.MustRaw(tensor.Shape{2}, tensor.CPU))
	sd.Set("classifier.3.weight", tensor.MustRaw(tensor.Shape{3, 4096}, tensor.CPU))
	sd.Set("classifier.6.bias", tensor.MustRaw(tensor.Shape{5}, tensor.CPU))
	require.NoError(t, checkpoint.WriteSafeTensors(in, sd, nil))

	_, err := run(t, "remap", in, out)
	require.NoError(t, err)

	got, err := checkpoint.ReadSafeTensors(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, []string{"features.0.bias", "pre_logits.fc2.weight", "head.fc.bias"}, got.Keys())
	w, _ := got.Get("pre_logits.fc2.weight")
	assert.Equal(t, tensor.Shape{3, 4096, 1, 1}, w.Shape())
}

func TestSoftmaxTopK(t *testing.T) {
	probs := softmax([]float32{1, 3, 2})
	assert.InDelta(t, 1.0, probs[0]+probs[1]+probs[2], 1e-9)
	assert.Equal(t, []int{1, 2}, topK(probs, 2))
	assert.Equal(t, []int{1, 2, 0}, topK(probs, 10))
	assert.Empty(t, topK(probs, 0))
	assert.Empty(t, topK(probs, -1))
}

func TestPredict_InvalidTopK(t *testing.T) {
	_, err := run(t, "predict", "vgg11", "missing.png", "--topk", "-1")
	require.ErrorContains(t, err, "--topk")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}
