package dataset

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidShape is returned when a feature set would have zero rows or
	// columns, or when the supplied buffers disagree with the declared shape.
	ErrInvalidShape = errors.New("invalid feature set shape")

	// ErrIndexOutOfRange is returned when a projection references a column
	// that does not exist.
	ErrIndexOutOfRange = errors.New("feature index out of range")

	// ErrNoLabels is returned by operations that need labels on an unlabeled set.
	ErrNoLabels = errors.New("feature set has no labels")

	// ErrEmptySubset is returned when a filter keeps no samples.
	ErrEmptySubset = errors.New("filter matched no samples")
)

// FeatureSet is a numSamples x numFeatures matrix of descriptors with an
// optional parallel label slice.
//
// The matrix is a row-major gonum Dense, so a sample is a contiguous row and
// Row returns a view without copying. A FeatureSet is not safe for concurrent
// mutation; concurrent reads (training, scoring, inference) are fine.
type FeatureSet struct {
	data   *mat.Dense
	labels []uint8
}

// NewFeatureSet builds a feature set from a row-major buffer.
//
// Parameters:
//   - numSamples, numFeatures: matrix shape, both must be positive.
//   - data: row-major values of length numSamples*numFeatures, or nil for a
//     zero-filled matrix to be populated with SetRow.
//   - labels: one label per sample, or nil for an unlabeled inference set.
//
// The buffers are owned by the returned set afterwards.
func NewFeatureSet(numSamples, numFeatures int, data []float64, labels []uint8) (*FeatureSet, error) {
	if numSamples <= 0 || numFeatures <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidShape, numSamples, numFeatures)
	}
	if data != nil && len(data) != numSamples*numFeatures {
		return nil, fmt.Errorf("%w: data has %d values, want %d", ErrInvalidShape, len(data), numSamples*numFeatures)
	}
	if labels != nil && len(labels) != numSamples {
		return nil, fmt.Errorf("%w: %d labels for %d samples", ErrInvalidShape, len(labels), numSamples)
	}
	return &FeatureSet{
		data:   mat.NewDense(numSamples, numFeatures, data),
		labels: labels,
	}, nil
}

// FromRows builds a feature set from per-sample vectors of identical length.
func FromRows(rows [][]float64, labels []uint8) (*FeatureSet, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidShape)
	}
	n := len(rows[0])
	data := make([]float64, 0, len(rows)*n)
	for i, r := range rows {
		if len(r) != n {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrInvalidShape, i, len(r), n)
		}
		data = append(data, r...)
	}
	return NewFeatureSet(len(rows), n, data, labels)
}

// NumSamples returns the number of rows.
func (fs *FeatureSet) NumSamples() int {
	r, _ := fs.data.Dims()
	return r
}

// NumFeatures returns the number of columns.
func (fs *FeatureSet) NumFeatures() int {
	_, c := fs.data.Dims()
	return c
}

// Row returns sample i. The slice aliases the set's storage and must be
// treated as read-only.
func (fs *FeatureSet) Row(i int) []float64 {
	return fs.data.RawRowView(i)
}

// SetRow copies values into sample i.
// Distinct rows may be written from different goroutines.
func (fs *FeatureSet) SetRow(i int, values []float64) {
	fs.data.SetRow(i, values)
}

// At returns the value of feature f for sample i.
func (fs *FeatureSet) At(i, f int) float64 {
	return fs.data.At(i, f)
}

// Column copies feature f across all samples into dst, allocating when dst
// is nil, and returns it.
func (fs *FeatureSet) Column(f int, dst []float64) []float64 {
	return mat.Col(dst, f, fs.data)
}

// Matrix exposes the underlying matrix for read-only gonum operations.
func (fs *FeatureSet) Matrix() mat.Matrix {
	return fs.data
}

// HasLabels reports whether the set carries labels.
func (fs *FeatureSet) HasLabels() bool {
	return fs.labels != nil
}

// Labels returns the label slice (nil for unlabeled sets). Read-only.
func (fs *FeatureSet) Labels() []uint8 {
	return fs.labels
}

// Label returns the label of sample i. It panics on unlabeled sets.
func (fs *FeatureSet) Label(i int) uint8 {
	return fs.labels[i]
}

// Project builds a new set with the same samples and labels whose columns
// are gathered from indices, in the order given.
//
// Column j of the result equals column indices[j] of fs for every sample.
// Duplicates are allowed and simply repeat a column.
func (fs *FeatureSet) Project(indices []int) (*FeatureSet, error) {
	if len(indices) == 0 {
		return nil, fmt.Errorf("%w: empty index list", ErrInvalidShape)
	}
	numFeatures := fs.NumFeatures()
	for _, idx := range indices {
		if idx < 0 || idx >= numFeatures {
			return nil, fmt.Errorf("%w: %d (have %d features)", ErrIndexOutOfRange, idx, numFeatures)
		}
	}

	numSamples := fs.NumSamples()
	data := make([]float64, numSamples*len(indices))
	for i := 0; i < numSamples; i++ {
		src := fs.Row(i)
		dst := data[i*len(indices) : (i+1)*len(indices)]
		for j, idx := range indices {
			dst[j] = src[idx]
		}
	}

	var labels []uint8
	if fs.labels != nil {
		labels = make([]uint8, numSamples)
		copy(labels, fs.labels)
	}
	return NewFeatureSet(numSamples, len(indices), data, labels)
}

// Filter keeps the samples for which keep returns true and relabels them
// with the returned label. It is how binary subsets are carved out of a
// multi-class training set.
func (fs *FeatureSet) Filter(keep func(label uint8) (uint8, bool)) (*FeatureSet, error) {
	if fs.labels == nil {
		return nil, ErrNoLabels
	}

	var rows []int
	var labels []uint8
	for i, l := range fs.labels {
		if nl, ok := keep(l); ok {
			rows = append(rows, i)
			labels = append(labels, nl)
		}
	}
	if len(rows) == 0 {
		return nil, ErrEmptySubset
	}

	numFeatures := fs.NumFeatures()
	data := make([]float64, 0, len(rows)*numFeatures)
	for _, i := range rows {
		data = append(data, fs.Row(i)...)
	}
	return NewFeatureSet(len(rows), numFeatures, data, labels)
}
