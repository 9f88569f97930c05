package dataset

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteIndices_Layout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIndices(&buf, []int{7, 1}))

	assert.Equal(t, []byte{
		0, 0, 0, 2,
		0, 0, 0, 7,
		0, 0, 0, 1,
	}, buf.Bytes())
}

func TestIndices_RoundTrip(t *testing.T) {
	indices := []int{300, 0, 17, 299}

	var buf bytes.Buffer
	require.NoError(t, WriteIndices(&buf, indices))

	got, err := ReadIndices(&buf)
	require.NoError(t, err)
	assert.Equal(t, indices, got)
}

func TestReadIndices_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short count", []byte{0, 0}},
		{"truncated body", []byte{0, 0, 0, 2, 0, 0, 0, 1}},
		{"count too large", []byte{0xff, 0xff, 0xff, 0xff}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadIndices(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, ErrCorruptIndexFile)
		})
	}
}

func TestWriteIndices_Negative(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteIndices(&buf, []int{-1}), ErrIndexOutOfRange)
}

func TestSaveLoadIndices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selected.idx")
	indices := []int{5, 4, 3}

	require.NoError(t, SaveIndices(path, indices))
	got, err := LoadIndices(path)
	require.NoError(t, err)
	assert.Equal(t, indices, got)
}

func TestLoadIndices_Missing(t *testing.T) {
	_, err := LoadIndices(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
