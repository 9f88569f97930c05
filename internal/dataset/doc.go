// Package dataset defines the FeatureSet exchanged between the descriptor
// extractor, the feature selector and the classifiers, plus the two file
// boundaries the pipeline touches.
//
// # FeatureSet
//
// A FeatureSet is a numSamples x numFeatures matrix backed by a row-major
// gonum Dense and an optional label slice. Unlabeled sets are used for
// inference. Projection (Project) gathers columns in caller-supplied order and
// copies labels unchanged.
//
// # Index Lists
//
// A feature selection is persisted as a big-endian uint32 count followed by
// that many uint32 column indices. WriteIndices/ReadIndices and the
// SaveIndices/LoadIndices file helpers implement that layout.
//
// # IDX Files
//
// LoadIDX reads the MNIST/EMNIST IDX format: a 16-byte image header (magic
// 2051, count, rows, cols) and an 8-byte label header (magic 2049, count),
// both big-endian, followed by raw unsigned bytes.
package dataset
