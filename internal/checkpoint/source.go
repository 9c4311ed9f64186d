package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// WeightSource resolves pretrained weights for a model variant.
type WeightSource interface {
	Load(ctx context.Context, variant string) (*StateDict, error)
}

// Read loads a checkpoint file, choosing the reader by extension.
// ".safetensors" files use the safetensors reader; everything else is
// treated as a torch pickle.
func Read(ctx context.Context, path string) (*StateDict, error) {
	if strings.EqualFold(filepath.Ext(path), ".safetensors") {
		return ReadSafeTensors(ctx, path)
	}
	return ReadTorch(path)
}

// DirSource looks up "<variant>.safetensors", then "<variant>.pth" and
// "<variant>.bin" inside Dir.
type DirSource struct {
	Dir string
}

var dirExtensions = []string{".safetensors", ".pth", ".bin"}

// Load implements WeightSource.
func (s DirSource) Load(ctx context.Context, variant string) (*StateDict, error) {
	for _, ext := range dirExtensions {
		path := filepath.Join(s.Dir, variant+ext)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}

		slog.Debug("loading weights", "variant", variant, "path", path)
		return Read(ctx, path)
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrNoWeights, variant, s.Dir)
}

// MapSource serves in-memory state dicts keyed by variant name.
type MapSource map[string]*StateDict

// Load implements WeightSource.
func (s MapSource) Load(_ context.Context, variant string) (*StateDict, error) {
	sd, ok := s[variant]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoWeights, variant)
	}
	return sd, nil
}
