package checkpoint

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/sync/errgroup"

	"github.com/born-ml/zoo/internal/tensor"
)

// SafeTensors format:
// [8 bytes: header_size (uint64 LE)]
// [header_size bytes: JSON header]
// [tensor data: raw bytes]

const (
	metadataKey   = "__metadata__"
	maxHeaderSize = 100 * 1024 * 1024
)

// TensorInfo describes one tensor entry of a safetensors header.
type TensorInfo struct {
	DType       DType    `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"` // [start, end) relative to the data section
}

// SafeTensorsReader reads tensors from a safetensors file.
// Tensor data is fetched with ReadAt, so concurrent reads are safe.
type SafeTensorsReader struct {
	file       *os.File
	names      []string
	tensors    map[string]TensorInfo
	metadata   map[string]string
	dataOffset int64
	dataSize   int64
}

// OpenSafeTensors opens path and parses its header.
func OpenSafeTensors(path string) (*SafeTensorsReader, error) {
	//nolint:gosec // G304: path comes from the caller, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	r, err := newSafeTensorsReader(file)
	if err != nil {
		_ = file.Close() // Best effort close on error
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func newSafeTensorsReader(file *os.File) (*SafeTensorsReader, error) {
	var headerSize uint64
	if err := binary.Read(file, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > maxHeaderSize {
		return nil, fmt.Errorf("invalid header size: %d (too large)", headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Decoding into an ordered map keeps the file's key order.
	raw := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(headerBytes, raw); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	r := &SafeTensorsReader{
		file:       file,
		tensors:    make(map[string]TensorInfo, raw.Len()),
		dataOffset: int64(8 + headerSize), //nolint:gosec // G115: bounded by maxHeaderSize
	}
	r.dataSize = stat.Size() - r.dataOffset

	for pair := raw.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key == metadataKey {
			if err := json.Unmarshal(pair.Value, &r.metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
			continue
		}

		var info TensorInfo
		if err := json.Unmarshal(pair.Value, &info); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tensor %s: %w", pair.Key, err)
		}
		if err := r.validate(pair.Key, info); err != nil {
			return nil, err
		}
		r.names = append(r.names, pair.Key)
		r.tensors[pair.Key] = info
	}

	return r, nil
}

func (r *SafeTensorsReader) validate(name string, info TensorInfo) error {
	start, end := info.DataOffsets[0], info.DataOffsets[1]
	if start < 0 || end < start || end > r.dataSize {
		return fmt.Errorf("invalid data offsets for tensor %s: [%d, %d]", name, start, end)
	}

	size := info.DType.Size()
	if size == 0 {
		slog.Warn("safetensors: unknown dtype", "tensor", name, "dtype", info.DType)
		return nil
	}

	n := 1
	for _, d := range info.Shape {
		if d < 0 {
			return fmt.Errorf("invalid shape for tensor %s: %v", name, info.Shape)
		}
		n *= d
	}
	if int64(n*size) != end-start {
		return fmt.Errorf("tensor %s: shape %v %s needs %d bytes, header spans %d", name, info.Shape, info.DType, n*size, end-start)
	}
	return nil
}

// Close closes the underlying file.
func (r *SafeTensorsReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// Metadata returns the optional string metadata of the header.
func (r *SafeTensorsReader) Metadata() map[string]string {
	return r.metadata
}

// TensorNames returns tensor names in header order.
func (r *SafeTensorsReader) TensorNames() []string {
	return r.names
}

// TensorInfo returns the header entry for name.
func (r *SafeTensorsReader) TensorInfo(name string) (TensorInfo, error) {
	info, ok := r.tensors[name]
	if !ok {
		return TensorInfo{}, fmt.Errorf("%w: %s", ErrTensorNotFound, name)
	}
	return info, nil
}

// LoadTensor reads and widens one tensor to float32.
func (r *SafeTensorsReader) LoadTensor(name string) (*tensor.RawTensor, error) {
	info, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, info.DataOffsets[1]-info.DataOffsets[0])
	if _, err := r.file.ReadAt(buf, r.dataOffset+info.DataOffsets[0]); err != nil {
		return nil, fmt.Errorf("failed to read tensor %s: %w", name, err)
	}

	data, err := decodeFloat32(info.DType, buf)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}

	return tensor.RawFromSlice(data, tensor.Shape(info.Shape), tensor.CPU)
}

// LoadAll decodes every tensor concurrently and returns them in header order.
// Tensors of an unknown dtype are skipped.
func (r *SafeTensorsReader) LoadAll(ctx context.Context) (*StateDict, error) {
	loaded := make([]*tensor.RawTensor, len(r.names))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, name := range r.names {
		if r.tensors[name].DType.Size() == 0 {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := r.LoadTensor(name)
			if err != nil {
				return err
			}
			loaded[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sd := NewStateDict()
	for i, name := range r.names {
		if loaded[i] != nil {
			sd.Set(name, loaded[i])
		}
	}
	return sd, nil
}

// ReadSafeTensors loads a whole safetensors file into a StateDict.
func ReadSafeTensors(ctx context.Context, path string) (*StateDict, error) {
	r, err := OpenSafeTensors(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = r.Close() // Best effort close
	}()

	return r.LoadAll(ctx)
}

// WriteSafeTensors writes sd to path as F32 tensors in sd's order.
func WriteSafeTensors(path string, sd *StateDict, metadata map[string]string) (err error) {
	//nolint:gosec // G304: path comes from the caller, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	w := bufio.NewWriter(file)
	if err := EncodeSafeTensors(w, sd, metadata); err != nil {
		return err
	}
	return w.Flush()
}

// EncodeSafeTensors serializes sd to w in the safetensors layout.
func EncodeSafeTensors(w io.Writer, sd *StateDict, metadata map[string]string) error {
	header := orderedmap.New[string, any]()
	if len(metadata) > 0 {
		header.Set(metadataKey, metadata)
	}

	var offset int64
	sd.Range(func(name string, t *tensor.RawTensor) bool {
		size := int64(t.NumElements() * F32.Size())
		header.Set(name, TensorInfo{
			DType:       F32,
			Shape:       append([]int{}, t.Shape()...),
			DataOffsets: [2]int64{offset, offset + size},
		})
		offset += size
		return true
	})

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	// Pad the header with spaces so the data section is 8-byte aligned.
	for (8+len(headerJSON))%8 != 0 {
		headerJSON = append(headerJSON, ' ')
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	var werr error
	sd.Range(func(name string, t *tensor.RawTensor) bool {
		if _, err := w.Write(encodeFloat32(t.Data())); err != nil {
			werr = fmt.Errorf("failed to write tensor %s: %w", name, err)
			return false
		}
		return true
	})
	return werr
}
