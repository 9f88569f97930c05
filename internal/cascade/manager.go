package cascade

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/glyphrec/internal/bayes"
	"github.com/ironsheep/glyphrec/internal/dataset"
)

var (
	// ErrInvalidParameter is returned for identical pair classes, invalid
	// model dimensions or thresholds outside [0, 1].
	ErrInvalidParameter = errors.New("invalid cascade parameter")

	// ErrDuplicatePair is returned when an unordered pair is registered twice.
	ErrDuplicatePair = errors.New("class pair already registered")

	// ErrUnknownClassifier is returned for an index that was never registered.
	ErrUnknownClassifier = errors.New("unknown specialized classifier")
)

// Predictor is the general model consulted by the first stage.
// *bayes.Model satisfies it.
type Predictor interface {
	PredictWithConfidence(features []float64, topN int) bayes.Prediction
}

// Policy holds the cascade cutoffs.
type Policy struct {
	// HighConfidence is the general confidence above which the cascade
	// never intervenes.
	HighConfidence float64 `mapstructure:"high_confidence" json:"high_confidence"`
	// SpecializedConfidence is the binary confidence required to override.
	SpecializedConfidence float64 `mapstructure:"specialized_confidence" json:"specialized_confidence"`
}

// DefaultPolicy returns the 0.8 / 0.7 cutoffs.
func DefaultPolicy() Policy {
	return Policy{HighConfidence: 0.8, SpecializedConfidence: 0.7}
}

// Validate checks both cutoffs lie in [0, 1].
func (p Policy) Validate() error {
	if p.HighConfidence < 0 || p.HighConfidence > 1 {
		return fmt.Errorf("%w: high confidence %g", ErrInvalidParameter, p.HighConfidence)
	}
	if p.SpecializedConfidence < 0 || p.SpecializedConfidence > 1 {
		return fmt.Errorf("%w: specialized confidence %g", ErrInvalidParameter, p.SpecializedConfidence)
	}
	return nil
}

// Specialized is a binary classifier for one confusable pair. Binary label 0
// stands for ClassA and 1 for ClassB.
type Specialized struct {
	ClassA    uint8
	ClassB    uint8
	Threshold float64
	Model     *bayes.Model
}

// Label maps a binary prediction back to the original class.
func (s *Specialized) Label(binary uint8) uint8 {
	if binary == 0 {
		return s.ClassA
	}
	return s.ClassB
}

// Pair is an unordered class pair, stored smaller class first.
type Pair struct {
	A uint8 `json:"a"`
	B uint8 `json:"b"`
}

func newPair(a, b uint8) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for training and override events.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Manager owns the specialized classifiers in registration order.
type Manager struct {
	policy      Policy
	classifiers []*Specialized
	byPair      map[Pair]int
	logger      zerolog.Logger
}

// NewManager creates an empty manager with the given policy.
func NewManager(policy Policy, opts ...Option) (*Manager, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		policy: policy,
		byPair: make(map[Pair]int),
		logger: zerolog.Nop(),
	}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// Policy returns the manager's cutoffs.
func (m *Manager) Policy() Policy { return m.policy }

// Len returns the number of registered classifiers.
func (m *Manager) Len() int { return len(m.classifiers) }

// AddClassifier registers an untrained binary classifier for classes a and b.
//
// Parameters:
//   - a, b: the confusable classes, which must differ.
//   - threshold: the general confidence below which this pair is consulted.
//   - numFeatures, numBins, alpha: binary model shape, as for bayes.New.
//
// Returns the classifier index used by Train.
func (m *Manager) AddClassifier(a, b uint8, threshold float64, numFeatures, numBins int, alpha float64) (int, error) {
	if a == b {
		return -1, fmt.Errorf("%w: pair (%d, %d) has identical classes", ErrInvalidParameter, a, b)
	}
	if threshold < 0 || threshold > 1 {
		return -1, fmt.Errorf("%w: threshold %g", ErrInvalidParameter, threshold)
	}
	key := newPair(a, b)
	if _, ok := m.byPair[key]; ok {
		return -1, fmt.Errorf("%w: (%d, %d)", ErrDuplicatePair, key.A, key.B)
	}

	model, err := bayes.New(2, numFeatures, numBins, alpha, bayes.WithLogger(m.logger))
	if err != nil {
		return -1, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}

	m.classifiers = append(m.classifiers, &Specialized{
		ClassA:    a,
		ClassB:    b,
		Threshold: threshold,
		Model:     model,
	})
	idx := len(m.classifiers) - 1
	m.byPair[key] = idx
	return idx, nil
}

// Classifier returns the classifier registered at index.
func (m *Manager) Classifier(index int) (*Specialized, error) {
	if index < 0 || index >= len(m.classifiers) {
		return nil, fmt.Errorf("%w: index %d (have %d)", ErrUnknownClassifier, index, len(m.classifiers))
	}
	return m.classifiers[index], nil
}

// Lookup finds the classifier for the unordered pair {a, b}.
func (m *Manager) Lookup(a, b uint8) (*Specialized, bool) {
	idx, ok := m.byPair[newPair(a, b)]
	if !ok {
		return nil, false
	}
	return m.classifiers[idx], true
}

// Pairs lists the registered pairs in registration order.
func (m *Manager) Pairs() []Pair {
	out := make([]Pair, len(m.classifiers))
	for i, c := range m.classifiers {
		out[i] = Pair{A: c.ClassA, B: c.ClassB}
	}
	return out
}

// Train fits classifier index on the samples of fs labeled with its two
// classes, relabeled to 0 (ClassA) and 1 (ClassB).
func (m *Manager) Train(index int, fs *dataset.FeatureSet) error {
	c, err := m.Classifier(index)
	if err != nil {
		return err
	}

	subset, err := fs.Filter(func(l uint8) (uint8, bool) {
		switch l {
		case c.ClassA:
			return 0, true
		case c.ClassB:
			return 1, true
		}
		return 0, false
	})
	if err != nil {
		return fmt.Errorf("failed to select samples for pair (%d, %d): %w", c.ClassA, c.ClassB, err)
	}

	stats, err := c.Model.Train(subset)
	if err != nil {
		return fmt.Errorf("failed to train pair (%d, %d): %w", c.ClassA, c.ClassB, err)
	}

	m.logger.Info().
		Str("component", "cascade").
		Uint8("class_a", c.ClassA).
		Uint8("class_b", c.ClassB).
		Int("samples", stats.Samples).
		Msg("specialized classifier trained")
	return nil
}

// TrainAll trains every registered classifier concurrently on fs. Each
// goroutine owns one model; fs is only read.
func (m *Manager) TrainAll(ctx context.Context, fs *dataset.FeatureSet) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := range m.classifiers {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return m.Train(i, fs)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
