// Package digits trains and runs a small convolutional network for
// handwritten digit recognition on MNIST-format data.
package digits

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrFormat is returned for data that is not a well-formed unsigned-byte IDX file.
var ErrFormat = errors.New("invalid IDX data")

const (
	idxUnsignedByte = 0x08
	maxIDXElements  = 1 << 30
)

// ReadIDX decodes an unsigned-byte IDX stream and returns its dimensions and raw bytes.
func ReadIDX(r io.Reader) ([]int, []byte, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, nil, fmt.Errorf("%w: reading magic: %v", ErrFormat, err)
	}
	if magic[0] != 0 || magic[1] != 0 || magic[2] != idxUnsignedByte || magic[3] == 0 {
		return nil, nil, fmt.Errorf("%w: bad magic %x", ErrFormat, magic)
	}

	dims := make([]int, magic[3])
	total := 1
	for i := range dims {
		var d uint32
		if err := binary.Read(r, binary.BigEndian, &d); err != nil {
			return nil, nil, fmt.Errorf("%w: reading dimension %d: %v", ErrFormat, i, err)
		}
		if d == 0 {
			return nil, nil, fmt.Errorf("%w: dimension %d is zero", ErrFormat, i)
		}
		dims[i] = int(d)
		total *= dims[i]
		if total > maxIDXElements {
			return nil, nil, fmt.Errorf("%w: %v elements is too large", ErrFormat, dims)
		}
	}

	data := make([]byte, total)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, nil, fmt.Errorf("%w: reading %d bytes: %v", ErrFormat, total, err)
	}
	return dims, data, nil
}

// openIDX opens path, transparently decompressing gzip content.
func openIDX(path string) ([]int, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }()

	br := bufio.NewReader(f)
	var r io.Reader = br
	if head, err := br.Peek(2); err == nil && head[0] == 0x1f && head[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	dims, data, err := ReadIDX(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return dims, data, nil
}

// LoadImages reads an IDX image file and scales pixels to [0, 1].
func LoadImages(path string) ([][]float64, Shape, error) {
	dims, data, err := openIDX(path)
	if err != nil {
		return nil, Shape{}, err
	}
	if len(dims) != 3 {
		return nil, Shape{}, fmt.Errorf("%w: %s has %d dimensions, want 3", ErrFormat, path, len(dims))
	}

	shape := Shape{H: dims[1], W: dims[2], C: 1}
	size := shape.Size()
	images := make([][]float64, dims[0])
	for i := range images {
		img := make([]float64, size)
		for j, v := range data[i*size : (i+1)*size] {
			img[j] = float64(v) / 255
		}
		images[i] = img
	}
	return images, shape, nil
}

// LoadLabels reads an IDX label file.
func LoadLabels(path string) ([]int, error) {
	dims, data, err := openIDX(path)
	if err != nil {
		return nil, err
	}
	if len(dims) != 1 {
		return nil, fmt.Errorf("%w: %s has %d dimensions, want 1", ErrFormat, path, len(dims))
	}
	labels := make([]int, len(data))
	for i, v := range data {
		labels[i] = int(v)
	}
	return labels, nil
}
