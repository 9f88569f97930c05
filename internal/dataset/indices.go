package dataset

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// MaxIndexCount bounds the count prefix accepted by ReadIndices so a corrupt
// file cannot trigger a huge allocation.
const MaxIndexCount = 1 << 24

// ErrCorruptIndexFile is returned when an index list cannot be decoded.
var ErrCorruptIndexFile = errors.New("corrupt index file")

// WriteIndices writes a selection as a big-endian uint32 count followed by
// that many big-endian uint32 indices.
func WriteIndices(w io.Writer, indices []int) error {
	buf := make([]byte, 4*(len(indices)+1))
	binary.BigEndian.PutUint32(buf, uint32(len(indices)))
	for i, idx := range indices {
		if idx < 0 || idx > math.MaxUint32 {
			return fmt.Errorf("%w: %d", ErrIndexOutOfRange, idx)
		}
		binary.BigEndian.PutUint32(buf[4*(i+1):], uint32(idx))
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write indices: %w", err)
	}
	return nil
}

// ReadIndices decodes a list written by WriteIndices.
func ReadIndices(r io.Reader) ([]int, error) {
	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: reading count: %v", ErrCorruptIndexFile, err)
	}
	if count > MaxIndexCount {
		return nil, fmt.Errorf("%w: count %d exceeds limit", ErrCorruptIndexFile, count)
	}

	raw := make([]uint32, count)
	if err := binary.Read(r, binary.BigEndian, raw); err != nil {
		return nil, fmt.Errorf("%w: reading %d indices: %v", ErrCorruptIndexFile, count, err)
	}

	indices := make([]int, count)
	for i, v := range raw {
		indices[i] = int(v)
	}
	return indices, nil
}

// SaveIndices writes a selection to path, replacing any existing file.
func SaveIndices(path string, indices []int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close index file: %w", cerr)
		}
	}()

	w := bufio.NewWriter(f)
	if err := WriteIndices(w, indices); err != nil {
		return err
	}
	return w.Flush()
}

// LoadIndices reads a selection from path.
func LoadIndices(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	defer f.Close()

	return ReadIndices(bufio.NewReader(f))
}
