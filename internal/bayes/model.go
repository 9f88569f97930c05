package bayes

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/ironsheep/glyphrec/internal/dataset"
	"github.com/ironsheep/glyphrec/internal/mathx"
)

const (
	// MaxClasses is the largest class count representable by uint8 labels.
	MaxClasses = 256

	// probFloor is applied to priors and likelihoods before taking logs.
	probFloor = 1e-10
)

var (
	// ErrInvalidParameter is returned by New for zero or negative dimensions
	// and negative smoothing.
	ErrInvalidParameter = errors.New("invalid model parameter")

	// ErrAllocation is returned when the probability tables cannot be sized.
	ErrAllocation = errors.New("cannot allocate model tables")

	// ErrDimensionMismatch is returned by Train when the feature set width
	// differs from the model's NumFeatures.
	ErrDimensionMismatch = errors.New("feature dimension mismatch")

	// ErrNoTrainingSamples is returned by Train when no sample carries a label
	// within [0, NumClasses).
	ErrNoTrainingSamples = errors.New("no trainable samples")
)

// Model is a discretized Naive Bayes classifier.
//
// The likelihood table is one flat buffer addressed by
// (class*numFeatures + feature)*numBins + bin.
type Model struct {
	numClasses  int
	numFeatures int
	numBins     int
	binWidth    float64
	alpha       float64

	prior      []float64
	likelihood []float64
	trained    bool

	logger zerolog.Logger
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger used for training warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// TrainStats summarizes a training pass.
type TrainStats struct {
	// Samples is the number of samples that contributed to the counts.
	Samples int `json:"samples"`

	// Skipped is the number of samples whose label was out of range.
	Skipped int `json:"skipped"`

	// ClassCounts is the number of contributing samples per class.
	ClassCounts []int `json:"class_counts"`
}

// New allocates an untrained model.
//
// Parameters:
//   - numClasses: number of labels, 1..256.
//   - numFeatures: descriptor length.
//   - numBins: discretization bins over [0, 1].
//   - alpha: additive smoothing pseudo-count, >= 0.
//
// # Errors
//
//   - ErrInvalidParameter for out-of-range arguments
//   - ErrAllocation if the table size overflows
func New(numClasses, numFeatures, numBins int, alpha float64, opts ...Option) (*Model, error) {
	if numClasses <= 0 || numClasses > MaxClasses || numFeatures <= 0 || numBins <= 0 {
		return nil, fmt.Errorf("%w: classes=%d features=%d bins=%d", ErrInvalidParameter, numClasses, numFeatures, numBins)
	}
	if alpha < 0 || math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return nil, fmt.Errorf("%w: alpha=%v", ErrInvalidParameter, alpha)
	}
	size, ok := tableSize(numClasses, numFeatures, numBins)
	if !ok {
		return nil, fmt.Errorf("%w: %d x %d x %d", ErrAllocation, numClasses, numFeatures, numBins)
	}

	m := &Model{
		numClasses:  numClasses,
		numFeatures: numFeatures,
		numBins:     numBins,
		binWidth:    1.0 / float64(numBins),
		alpha:       alpha,
		prior:       make([]float64, numClasses),
		likelihood:  make([]float64, size),
		logger:      zerolog.Nop(),
	}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// tableSize multiplies the dimensions, reporting overflow.
func tableSize(dims ...int) (int, bool) {
	size := 1
	for _, d := range dims {
		if size > math.MaxInt/d {
			return 0, false
		}
		size *= d
	}
	return size, true
}

// NumClasses returns the number of classes.
func (m *Model) NumClasses() int { return m.numClasses }

// NumFeatures returns the expected descriptor length.
func (m *Model) NumFeatures() int { return m.numFeatures }

// NumBins returns the number of discretization bins.
func (m *Model) NumBins() int { return m.numBins }

// Alpha returns the smoothing pseudo-count.
func (m *Model) Alpha() float64 { return m.alpha }

// Trained reports whether Train has completed at least once.
func (m *Model) Trained() bool { return m.trained }

// Prior returns P(class c).
func (m *Model) Prior(c int) float64 { return m.prior[c] }

// Likelihood returns P(bin b | class c, feature f).
func (m *Model) Likelihood(c, f, b int) float64 {
	return m.likelihood[m.offset(c, f)+b]
}

func (m *Model) offset(c, f int) int {
	return (c*m.numFeatures + f) * m.numBins
}

// bin maps a feature value to its bin index.
func (m *Model) bin(v float64) int {
	return mathx.Bin(mathx.Clamp(v, 0, 1), 0, m.binWidth, m.numBins)
}

// Train estimates priors and likelihoods from a labeled feature set,
// replacing anything learned before.
//
// Samples whose label is >= NumClasses are skipped, counted in
// TrainStats.Skipped and reported as a warning on the model's logger.
//
// # Errors
//
//   - ErrDimensionMismatch if fs.NumFeatures() != NumFeatures()
//   - dataset.ErrNoLabels for unlabeled sets
//   - ErrNoTrainingSamples if every label is out of range
//
// The model is left untouched when an error is returned.
func (m *Model) Train(fs *dataset.FeatureSet) (TrainStats, error) {
	if fs.NumFeatures() != m.numFeatures {
		return TrainStats{}, fmt.Errorf("%w: feature set has %d features, model expects %d",
			ErrDimensionMismatch, fs.NumFeatures(), m.numFeatures)
	}
	if !fs.HasLabels() {
		return TrainStats{}, dataset.ErrNoLabels
	}

	stats := TrainStats{ClassCounts: make([]int, m.numClasses)}
	counts := make([]int, len(m.likelihood))
	firstBad := -1

	for i := 0; i < fs.NumSamples(); i++ {
		label := int(fs.Label(i))
		if label >= m.numClasses {
			if firstBad < 0 {
				firstBad = label
			}
			stats.Skipped++
			continue
		}
		stats.ClassCounts[label]++
		stats.Samples++

		row := fs.Row(i)
		for f, v := range row {
			counts[m.offset(label, f)+m.bin(v)]++
		}
	}

	if stats.Skipped > 0 {
		m.logger.Warn().
			Str("component", "bayes").
			Int("skipped", stats.Skipped).
			Int("first_label", firstBad).
			Int("num_classes", m.numClasses).
			Msg("skipped samples with out-of-range labels")
	}
	if stats.Samples == 0 {
		return stats, ErrNoTrainingSamples
	}

	prior := make([]float64, m.numClasses)
	likelihood := make([]float64, len(m.likelihood))
	for c := 0; c < m.numClasses; c++ {
		prior[c] = float64(stats.ClassCounts[c]) / float64(stats.Samples)

		denom := float64(stats.ClassCounts[c]) + m.alpha*float64(m.numBins)
		for f := 0; f < m.numFeatures; f++ {
			base := m.offset(c, f)
			for b := 0; b < m.numBins; b++ {
				likelihood[base+b] = mathx.SafeDiv(float64(counts[base+b])+m.alpha, denom, 0)
			}
		}
	}

	m.prior = prior
	m.likelihood = likelihood
	m.trained = true

	m.logger.Debug().
		Str("component", "bayes").
		Int("samples", stats.Samples).
		Int("classes", m.numClasses).
		Int("features", m.numFeatures).
		Msg("model trained")

	return stats, nil
}
