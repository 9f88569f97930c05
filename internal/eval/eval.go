package eval

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/glyphrec/internal/dataset"
	"github.com/ironsheep/glyphrec/internal/mathx"
)

// ErrInvalidParameter is returned for an empty or unlabeled set or a
// non-positive class count.
var ErrInvalidParameter = errors.New("invalid evaluation parameter")

// Outcome is the result of classifying one sample.
type Outcome struct {
	Label uint8
	// Overridden is set when a cascade replaced the general label.
	Overridden bool
}

// ClassifyFunc classifies one feature vector. It is called concurrently.
type ClassifyFunc func(features []float64) Outcome

// Option configures Evaluate.
type Option func(*options)

type options struct {
	workers  int
	progress func(done, total int)
}

// WithWorkers bounds the number of concurrent classifications. Values <= 0
// use GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithProgress registers a callback invoked after each sample.
func WithProgress(fn func(done, total int)) Option {
	return func(o *options) { o.progress = fn }
}

// Report aggregates the outcomes of one evaluation run.
type Report struct {
	NumClasses int `json:"num_classes"`
	// Total counts evaluated samples; samples whose label is outside
	// [0, NumClasses) are counted in Skipped instead.
	Total     int `json:"total"`
	Correct   int `json:"correct"`
	Skipped   int `json:"skipped"`
	Overrides int `json:"overrides"`
	// Confusion is indexed [actual][predicted]. Predictions outside the
	// class range are counted in Unmapped only.
	Confusion [][]int `json:"confusion"`
	Unmapped  int     `json:"unmapped"`
}

// Evaluate classifies every sample of fs with classify and builds a Report.
//
// Parameters:
//   - fs: labeled feature set, already projected the way classify expects.
//   - numClasses: size of the confusion matrix.
//   - classify: classifier under test, called from several goroutines.
//
// Cancelling ctx stops scheduling and returns ctx.Err().
func Evaluate(ctx context.Context, fs *dataset.FeatureSet, numClasses int, classify ClassifyFunc, opts ...Option) (*Report, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers <= 0 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	if numClasses <= 0 {
		return nil, fmt.Errorf("%w: %d classes", ErrInvalidParameter, numClasses)
	}
	if fs == nil || fs.NumSamples() == 0 {
		return nil, fmt.Errorf("%w: empty feature set", ErrInvalidParameter)
	}
	if !fs.HasLabels() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParameter, dataset.ErrNoLabels)
	}

	n := fs.NumSamples()
	outcomes := make([]Outcome, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	var done atomic.Int64
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = classify(fs.Row(i))
			if o.progress != nil {
				o.progress(int(done.Add(1)), n)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := newReport(numClasses)
	for i, out := range outcomes {
		r.add(fs.Label(i), out)
	}
	return r, nil
}

func newReport(numClasses int) *Report {
	r := &Report{NumClasses: numClasses, Confusion: make([][]int, numClasses)}
	for i := range r.Confusion {
		r.Confusion[i] = make([]int, numClasses)
	}
	return r
}

func (r *Report) add(actual uint8, out Outcome) {
	if int(actual) >= r.NumClasses {
		r.Skipped++
		return
	}
	r.Total++
	if out.Overridden {
		r.Overrides++
	}
	if out.Label == actual {
		r.Correct++
	}
	if int(out.Label) >= r.NumClasses {
		r.Unmapped++
		return
	}
	r.Confusion[actual][out.Label]++
}

// Accuracy returns Correct/Total, or 0 for an empty report.
func (r *Report) Accuracy() float64 {
	return mathx.SafeDiv(float64(r.Correct), float64(r.Total), 0)
}

// ClassSupport returns how many evaluated samples carry label c.
func (r *Report) ClassSupport(c int) int {
	var n int
	for _, v := range r.Confusion[c] {
		n += v
	}
	return n
}

// ClassAccuracy returns the recall of class c and whether c had any samples.
func (r *Report) ClassAccuracy(c int) (float64, bool) {
	support := r.ClassSupport(c)
	if support == 0 {
		return 0, false
	}
	return float64(r.Confusion[c][c]) / float64(support), true
}

// ClassAccuracies returns the recall of every class, 0 for absent classes.
func (r *Report) ClassAccuracies() []float64 {
	out := make([]float64, r.NumClasses)
	for c := range out {
		out[c], _ = r.ClassAccuracy(c)
	}
	return out
}
