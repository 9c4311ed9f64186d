// Package transforms turns images into normalized model inputs.
//
// The evaluation pipeline matches the one pretrained ImageNet classifiers
// were scored with: resize the shorter side to size/crop_pct, center crop to
// size, scale to [0, 1] and normalize per channel.
package transforms

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/born-ml/zoo/internal/tensor"
)

// ErrInterpolation is returned for an unsupported interpolation name.
var ErrInterpolation = errors.New("unsupported interpolation")

// Config describes the evaluation preprocessing of a model.
type Config struct {
	Size          int     // square crop side
	CropPct       float64 // fraction of the resized image kept by the crop
	Interpolation string  // "bilinear", "bicubic", "nearest"
	Mean          [3]float64
	Std           [3]float64
}

// ResizeSize returns the shorter-side length before cropping.
func (c Config) ResizeSize() int {
	return int(math.Floor(float64(c.Size) / c.CropPct))
}

// Eval is the resize, center crop and normalize pipeline.
type Eval struct {
	cfg    Config
	scaler draw.Scaler
}

// NewEval validates cfg and builds the pipeline.
func NewEval(cfg Config) (*Eval, error) {
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("transforms: invalid size %d", cfg.Size)
	}
	if cfg.CropPct <= 0 || cfg.CropPct > 1 {
		return nil, fmt.Errorf("transforms: crop_pct %g not in (0, 1]", cfg.CropPct)
	}
	for i, s := range cfg.Std {
		if s == 0 {
			return nil, fmt.Errorf("transforms: zero std for channel %d", i)
		}
	}

	scaler, err := interpolator(cfg.Interpolation)
	if err != nil {
		return nil, err
	}
	return &Eval{cfg: cfg, scaler: scaler}, nil
}

func interpolator(name string) (draw.Scaler, error) {
	switch name {
	case "bilinear", "":
		return draw.BiLinear, nil
	case "bicubic":
		return draw.CatmullRom, nil
	case "nearest":
		return draw.NearestNeighbor, nil
	}
	return nil, fmt.Errorf("%w %q", ErrInterpolation, name)
}

// Config returns the pipeline configuration.
func (e *Eval) Config() Config { return e.cfg }

// Apply returns a [3, size, size] tensor.
func (e *Eval) Apply(img image.Image) *tensor.RawTensor {
	resized := e.resizeShorter(img, e.cfg.ResizeSize())
	cropped := centerCrop(resized, e.cfg.Size)
	return normalize(cropped, e.cfg.Mean, e.cfg.Std)
}

// Batch applies the pipeline to each image and stacks the results into a
// [N, 3, size, size] tensor.
func (e *Eval) Batch(images []image.Image) *tensor.RawTensor {
	size := e.cfg.Size
	plane := 3 * size * size
	out := tensor.MustRaw(tensor.Shape{len(images), 3, size, size}, tensor.CPU)
	for i, img := range images {
		copy(out.Data()[i*plane:(i+1)*plane], e.Apply(img).Data())
	}
	return out
}

// resizeShorter scales img so its shorter side equals size, keeping the
// aspect ratio.
func (e *Eval) resizeShorter(img image.Image, size int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	newW, newH := size, size
	if w < h {
		newH = int(float64(size) * float64(h) / float64(w))
	} else {
		newW = int(float64(size) * float64(w) / float64(h))
	}

	dst := image.NewNRGBA(image.Rect(0, 0, newW, newH))
	e.scaler.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// centerCrop cuts a size×size window from the middle of img, padding with
// black when img is smaller.
func centerCrop(img *image.NRGBA, size int) *image.NRGBA {
	b := img.Bounds()
	top := int(math.RoundToEven(float64(b.Dy()-size) / 2))
	left := int(math.RoundToEven(float64(b.Dx()-size) / 2))

	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.Draw(dst, dst.Bounds(), img, image.Pt(b.Min.X+left, b.Min.Y+top), draw.Src)
	return dst
}

// normalize converts img to CHW float32 in [0, 1] and applies (x-mean)/std.
// Alpha is dropped.
func normalize(img *image.NRGBA, mean, std [3]float64) *tensor.RawTensor {
	b := img.Bounds()
	h, w := b.Dy(), b.Dx()
	out := tensor.MustRaw(tensor.Shape{3, h, w}, tensor.CPU)
	data := out.Data()
	plane := h * w

	var scale, shift [3]float32
	for c := range 3 {
		scale[c] = float32(1 / (255 * std[c]))
		shift[c] = float32(mean[c] / std[c])
	}

	for y := range h {
		row := img.Pix[y*img.Stride:]
		for x := range w {
			px := row[4*x : 4*x+3]
			i := y*w + x
			for c := range 3 {
				data[c*plane+i] = float32(px[c])*scale[c] - shift[c]
			}
		}
	}
	return out
}

// Decode reads a JPEG, PNG, GIF or WebP image.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// Load decodes the image at path.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}
