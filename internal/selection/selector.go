package selection

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/glyphrec/internal/dataset"
)

// ErrInvalidParameter is returned for a zero count, an empty or unlabeled
// feature set where labels are needed, or too few target classes.
var ErrInvalidParameter = errors.New("invalid selection parameter")

// Score is the discriminative score of one original feature.
type Score struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
}

// Indices lists selected original feature indices, best first.
type Indices []int

// Rank sorts scores by value descending, breaking ties by ascending index.
// The input is sorted in place and returned.
func Rank(scores []Score) []Score {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Value != scores[j].Value {
			return scores[i].Value > scores[j].Value
		}
		return scores[i].Index < scores[j].Index
	})
	return scores
}

// Selector scores and selects features.
//
// The zero value is usable for Variance; label-based methods need
// NumClasses. Workers <= 0 uses GOMAXPROCS.
type Selector struct {
	NumClasses int
	Workers    int
	Logger     zerolog.Logger
	// Progress, when set, is called after each feature is scored. It may be
	// called from several goroutines at once.
	Progress func(done, total int)
}

// Scores computes one score per feature of fs using method, returned in
// feature index order.
func (s *Selector) Scores(ctx context.Context, fs *dataset.FeatureSet, method Method) ([]Score, error) {
	if err := s.validate(fs, method); err != nil {
		return nil, err
	}
	if method == Fisher {
		return nil, fmt.Errorf("%w: fisher scoring needs target classes, use SelectClassSpecific", ErrInvalidParameter)
	}

	labels := fs.Labels()
	return s.scoreFeatures(ctx, fs, func(values []float64) float64 {
		switch method {
		case ChiSquare:
			return ChiSquareScore(values, labels, s.NumClasses)
		case MutualInformation:
			return MutualInformationScore(values, labels, s.NumClasses)
		default:
			return VarianceScore(values)
		}
	})
}

// Select returns the min(k, NumFeatures) best features of fs under method.
//
// Parameters:
//   - fs: the training set; must carry labels unless method is Variance.
//   - method: Variance, ChiSquare or MutualInformation.
//   - k: requested number of features, must be positive.
//
// Returns indices that are unique, within range and ordered by descending
// score (ascending index on ties).
func (s *Selector) Select(ctx context.Context, fs *dataset.FeatureSet, method Method, k int) (Indices, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: feature count %d", ErrInvalidParameter, k)
	}
	scores, err := s.Scores(ctx, fs, method)
	if err != nil {
		return nil, err
	}

	selected := top(scores, k)
	s.Logger.Debug().
		Str("component", "selection").
		Str("method", method.String()).
		Int("requested", k).
		Int("selected", len(selected)).
		Msg("features selected")
	return selected, nil
}

// SelectClassSpecific returns the min(k, NumFeatures) features that best
// separate the target classes, scored by the mean Fisher score over every
// unordered pair of targets.
func (s *Selector) SelectClassSpecific(ctx context.Context, fs *dataset.FeatureSet, targets []uint8, k int) (Indices, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: feature count %d", ErrInvalidParameter, k)
	}
	if err := s.validate(fs, Fisher); err != nil {
		return nil, err
	}
	targets = distinct(targets)
	if len(targets) < 2 {
		return nil, fmt.Errorf("%w: need at least two distinct target classes, got %d", ErrInvalidParameter, len(targets))
	}

	labels := fs.Labels()
	scores, err := s.scoreFeatures(ctx, fs, func(values []float64) float64 {
		return PairwiseFisherScore(values, labels, targets)
	})
	if err != nil {
		return nil, err
	}

	selected := top(scores, k)
	s.Logger.Debug().
		Str("component", "selection").
		Str("method", Fisher.String()).
		Ints("targets", toInts(targets)).
		Int("selected", len(selected)).
		Msg("class-specific features selected")
	return selected, nil
}

func (s *Selector) validate(fs *dataset.FeatureSet, method Method) error {
	if fs == nil || fs.NumSamples() == 0 || fs.NumFeatures() == 0 {
		return fmt.Errorf("%w: empty feature set", ErrInvalidParameter)
	}
	if !method.needsLabels() {
		return nil
	}
	if !fs.HasLabels() {
		return fmt.Errorf("%w: %s needs labels: %w", ErrInvalidParameter, method, dataset.ErrNoLabels)
	}
	if method != Fisher && s.NumClasses <= 0 {
		return fmt.Errorf("%w: %s needs a positive class count", ErrInvalidParameter, method)
	}
	return nil
}

// scoreFeatures applies score to every column of fs on a bounded pool. Each
// worker reuses one column buffer and writes a distinct slot of the result.
func (s *Selector) scoreFeatures(ctx context.Context, fs *dataset.FeatureSet, score func([]float64) float64) ([]Score, error) {
	numFeatures := fs.NumFeatures()
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, numFeatures)

	scores := make([]Score, numFeatures)
	var next, done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			column := make([]float64, fs.NumSamples())
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				f := int(next.Add(1) - 1)
				if f >= numFeatures {
					return nil
				}
				fs.Column(f, column)
				scores[f] = Score{Index: f, Value: score(column)}
				if s.Progress != nil {
					s.Progress(int(done.Add(1)), numFeatures)
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return scores, nil
}

// top ranks scores and keeps the first k indices.
func top(scores []Score, k int) Indices {
	Rank(scores)
	k = min(k, len(scores))
	out := make(Indices, k)
	for i := range out {
		out[i] = scores[i].Index
	}
	return out
}

func distinct(labels []uint8) []uint8 {
	seen := make(map[uint8]bool, len(labels))
	out := make([]uint8, 0, len(labels))
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}

func toInts(labels []uint8) []int {
	out := make([]int, len(labels))
	for i, l := range labels {
		out[i] = int(l)
	}
	return out
}

// Reduce projects fs onto indices, keeping their order and copying labels.
// Column j of the result is column indices[j] of fs.
func Reduce(fs *dataset.FeatureSet, indices Indices) (*dataset.FeatureSet, error) {
	if fs == nil {
		return nil, fmt.Errorf("%w: nil feature set", ErrInvalidParameter)
	}
	return fs.Project(indices)
}

// Merge combines index lists for the hybrid strategy: lists are
// concatenated in order, duplicates dropped, and the result capped at k.
// Passing the class-specific list first biases the projection towards the
// confusable classes.
func Merge(k int, lists ...Indices) Indices {
	seen := make(map[int]bool)
	var out Indices
	for _, list := range lists {
		for _, idx := range list {
			if len(out) >= k {
				return out
			}
			if seen[idx] {
				continue
			}
			seen[idx] = true
			out = append(out, idx)
		}
	}
	return out
}
