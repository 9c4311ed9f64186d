package transforms

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/zoo/internal/tensor"
)

func imagenet() Config {
	return Config{
		Size:          224,
		CropPct:       0.875,
		Interpolation: "bilinear",
		Mean:          [3]float64{0.485, 0.456, 0.406},
		Std:           [3]float64{0.229, 0.224, 0.225},
	}
}

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestConfig_ResizeSize(t *testing.T) {
	assert.Equal(t, 256, imagenet().ResizeSize())

	cfg := imagenet()
	cfg.CropPct = 1
	assert.Equal(t, 224, cfg.ResizeSize())
}

func TestNewEval_Validation(t *testing.T) {
	_, err := NewEval(imagenet())
	require.NoError(t, err)

	bad := imagenet()
	bad.Size = 0
	_, err = NewEval(bad)
	require.Error(t, err)

	bad = imagenet()
	bad.CropPct = 1.5
	_, err = NewEval(bad)
	require.Error(t, err)

	bad = imagenet()
	bad.Std[1] = 0
	_, err = NewEval(bad)
	require.Error(t, err)

	bad = imagenet()
	bad.Interpolation = "lanczos"
	_, err = NewEval(bad)
	require.ErrorIs(t, err, ErrInterpolation)
}

func TestEval_SolidColor(t *testing.T) {
	e, err := NewEval(imagenet())
	require.NoError(t, err)

	out := e.Apply(solid(400, 300, color.NRGBA{R: 255, G: 128, B: 0, A: 255}))
	require.Equal(t, tensor.Shape{3, 224, 224}, out.Shape())

	want := [3]float32{
		float32((1 - 0.485) / 0.229),
		float32((128.0/255 - 0.456) / 0.224),
		float32((0 - 0.406) / 0.225),
	}
	plane := 224 * 224
	data := out.Data()
	for c := range 3 {
		for _, i := range []int{0, plane / 2, plane - 1} {
			assert.InDelta(t, want[c], data[c*plane+i], 0.02, "channel %d index %d", c, i)
		}
	}
}

func TestEval_ResizeShorter(t *testing.T) {
	e, err := NewEval(imagenet())
	require.NoError(t, err)

	tests := []struct {
		w, h         int
		wantW, wantH int
	}{
		{400, 300, 341, 256},
		{300, 400, 256, 341},
		{100, 100, 256, 256},
	}
	for _, tt := range tests {
		got := e.resizeShorter(solid(tt.w, tt.h, color.NRGBA{A: 255}), 256)
		assert.Equal(t, tt.wantW, got.Bounds().Dx(), "%dx%d", tt.w, tt.h)
		assert.Equal(t, tt.wantH, got.Bounds().Dy(), "%dx%d", tt.w, tt.h)
	}
}

func TestCenterCrop(t *testing.T) {
	// Column index encoded in the red channel.
	img := image.NewNRGBA(image.Rect(0, 0, 7, 3))
	for y := range 3 {
		for x := range 7 {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}

	got := centerCrop(img, 3)
	assert.Equal(t, image.Rect(0, 0, 3, 3), got.Bounds())
	assert.Equal(t, uint8(2), got.NRGBAAt(0, 0).R)
	assert.Equal(t, uint8(4), got.NRGBAAt(2, 2).R)
	assert.Equal(t, uint8(2), got.NRGBAAt(2, 2).G)
}

func TestNormalize(t *testing.T) {
	img := solid(2, 1, color.NRGBA{R: 255, G: 0, B: 51, A: 10})
	out := normalize(img, [3]float64{0, 0, 0}, [3]float64{1, 1, 1})

	assert.Equal(t, tensor.Shape{3, 1, 2}, out.Shape())
	assert.InDeltaSlice(t, []float32{1, 1, 0, 0, 0.2, 0.2}, out.Data(), 1e-6)
}

func TestEval_Batch(t *testing.T) {
	cfg := imagenet()
	cfg.Size = 8
	e, err := NewEval(cfg)
	require.NoError(t, err)

	out := e.Batch([]image.Image{
		solid(16, 12, color.NRGBA{R: 255, A: 255}),
		solid(9, 20, color.NRGBA{B: 255, A: 255}),
	})
	require.Equal(t, tensor.Shape{2, 3, 8, 8}, out.Shape())

	data := out.Data()
	assert.InDelta(t, (1-0.485)/0.229, data[0], 0.02)
	assert.InDelta(t, (1-0.406)/0.225, data[3*64+2*64], 0.02)
}

func TestLoad(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(5, 4, color.NRGBA{G: 255, A: 255})))

	path := filepath.Join(t.TempDir(), "green.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	img, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 5, 4), img.Bounds())

	_, err = Decode(bytes.NewReader([]byte("not an image")))
	require.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
}
