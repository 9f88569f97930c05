package recognizer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ironsheep/glyphrec/internal/bayes"
	"github.com/ironsheep/glyphrec/internal/cascade"
	"github.com/ironsheep/glyphrec/internal/dataset"
	"github.com/ironsheep/glyphrec/internal/eval"
	"github.com/ironsheep/glyphrec/internal/hog"
	"github.com/ironsheep/glyphrec/internal/selection"
)

var (
	// ErrNotTrained is returned by inference before Train succeeded.
	ErrNotTrained = errors.New("recognizer is not trained")

	// ErrShapeMismatch is returned for glyphs whose size differs from the
	// training glyphs.
	ErrShapeMismatch = errors.New("glyph size differs from training glyphs")
)

// Progress stages reported through Options.Progress.
const (
	StageExtract  = "extract"
	StageSelect   = "select"
	StageEvaluate = "evaluate"
)

// PairSpec registers one specialized classifier.
type PairSpec struct {
	A, B      uint8
	Threshold float64
}

// SelectionOptions configures feature selection. With Indices set the list
// is used as is; otherwise Count features are chosen by Method, preceded by
// ClassSpecificCount Fisher-selected features for Targets. Zero counts and
// no Indices keep every feature.
type SelectionOptions struct {
	Method             selection.Method
	Count              int
	Targets            []uint8
	ClassSpecificCount int
	Indices            selection.Indices
}

func (s SelectionOptions) enabled() bool {
	return s.Indices != nil || s.Count > 0 || (s.ClassSpecificCount > 0 && len(s.Targets) >= 2)
}

// Options configures a Recognizer.
type Options struct {
	NumClasses int
	Alphabet   Alphabet
	HOG        hog.Params
	NumBins    int
	Alpha      float64
	Selection  SelectionOptions
	Policy     cascade.Policy
	Pairs      []PairSpec

	// AutoPairs adds that many pairs suggested by the general model's
	// training-set confusions, each with PairThreshold.
	AutoPairs     int
	PairThreshold float64
	Workers       int
	Logger        zerolog.Logger

	// Progress, when set, receives per-item progress of the long stages.
	Progress func(stage string, done, total int)
}

// DefaultOptions returns settings for 28x28 digits.
func DefaultOptions() Options {
	digits, _ := ParseAlphabet("digits", 10)
	return Options{
		NumClasses:    10,
		Alphabet:      digits,
		HOG:           hog.DefaultParams(),
		NumBins:       32,
		Alpha:         1.0,
		Selection:     SelectionOptions{Method: selection.MutualInformation},
		Policy:        cascade.DefaultPolicy(),
		PairThreshold: 0.7,
		Logger:        zerolog.Nop(),
	}
}

// TrainSummary describes a finished training run.
type TrainSummary struct {
	Samples     int            `json:"samples"`
	Skipped     int            `json:"skipped"`
	RawFeatures int            `json:"raw_features"`
	Features    int            `json:"features"`
	Pairs       []cascade.Pair `json:"pairs"`
}

// Recognizer is the trained end-to-end pipeline.
type Recognizer struct {
	opts       Options
	rows, cols int
	indices    selection.Indices
	model      *bayes.Model
	cascade    *cascade.Manager
	summary    TrainSummary
}

// New validates opts and returns an untrained Recognizer.
func New(opts Options) (*Recognizer, error) {
	if opts.NumClasses <= 0 || opts.NumClasses > bayes.MaxClasses {
		return nil, fmt.Errorf("%w: %d classes", bayes.ErrInvalidParameter, opts.NumClasses)
	}
	if opts.HOG.CellSize <= 0 || opts.HOG.NumBins <= 0 {
		return nil, fmt.Errorf("%w: cell size %d, %d orientation bins", hog.ErrInvalidParameter, opts.HOG.CellSize, opts.HOG.NumBins)
	}
	if err := opts.Policy.Validate(); err != nil {
		return nil, err
	}
	if opts.Selection.Method == selection.Fisher && opts.Selection.Count > 0 && opts.Selection.Indices == nil {
		return nil, fmt.Errorf("%w: fisher selects only class-specific features, use Targets and ClassSpecificCount",
			selection.ErrInvalidParameter)
	}
	return &Recognizer{opts: opts}, nil
}

func (r *Recognizer) progress(stage string) func(done, total int) {
	if r.opts.Progress == nil {
		return nil
	}
	return func(done, total int) { r.opts.Progress(stage, done, total) }
}

// Glyphs views an IDX dataset as descriptor inputs without copying pixels.
func Glyphs(im *dataset.Images) []hog.Image {
	out := make([]hog.Image, im.Count)
	for i := range out {
		out[i] = hog.Image{Pixels: im.Glyph(i), Rows: im.Rows, Cols: im.Cols}
	}
	return out
}

// Train fits the whole pipeline on labeled glyphs that share one size.
func (r *Recognizer) Train(ctx context.Context, images []hog.Image, labels []uint8) (*TrainSummary, error) {
	log := r.opts.Logger.With().Str("component", "recognizer").Logger()

	if len(images) == 0 || len(labels) != len(images) {
		return nil, fmt.Errorf("%w: %d images, %d labels", hog.ErrInvalidParameter, len(images), len(labels))
	}

	fs, err := hog.ExtractBatch(ctx, images, labels, r.opts.HOG,
		hog.WithWorkers(r.opts.Workers), hog.WithProgress(r.progress(StageExtract)))
	if err != nil {
		return nil, fmt.Errorf("failed to extract descriptors: %w", err)
	}
	log.Info().Int("samples", fs.NumSamples()).Int("features", fs.NumFeatures()).Msg("descriptors extracted")

	indices, err := r.selectFeatures(ctx, fs)
	if err != nil {
		return nil, err
	}
	reduced := fs
	if indices != nil {
		if reduced, err = selection.Reduce(fs, indices); err != nil {
			return nil, fmt.Errorf("failed to project descriptors: %w", err)
		}
		log.Info().Int("selected", len(indices)).Msg("feature selection applied")
	}

	model, err := bayes.New(r.opts.NumClasses, reduced.NumFeatures(), r.opts.NumBins, r.opts.Alpha, bayes.WithLogger(r.opts.Logger))
	if err != nil {
		return nil, err
	}
	stats, err := model.Train(reduced)
	if err != nil {
		return nil, fmt.Errorf("failed to train general model: %w", err)
	}

	manager, err := r.trainCascade(ctx, model, reduced)
	if err != nil {
		return nil, err
	}

	r.rows, r.cols = images[0].Rows, images[0].Cols
	r.indices = indices
	r.model = model
	r.cascade = manager
	r.summary = TrainSummary{
		Samples:     stats.Samples,
		Skipped:     stats.Skipped,
		RawFeatures: fs.NumFeatures(),
		Features:    reduced.NumFeatures(),
		Pairs:       manager.Pairs(),
	}
	log.Info().
		Int("samples", stats.Samples).
		Int("skipped", stats.Skipped).
		Int("pairs", manager.Len()).
		Msg("recognizer trained")

	summary := r.summary
	return &summary, nil
}

// selectFeatures returns nil when every feature is kept.
func (r *Recognizer) selectFeatures(ctx context.Context, fs *dataset.FeatureSet) (selection.Indices, error) {
	opts := r.opts.Selection
	if !opts.enabled() {
		return nil, nil
	}
	if opts.Indices != nil {
		return opts.Indices, nil
	}

	sel := &selection.Selector{
		NumClasses: r.opts.NumClasses,
		Workers:    r.opts.Workers,
		Logger:     r.opts.Logger,
		Progress:   r.progress(StageSelect),
	}

	var classSpecific, general selection.Indices
	var err error
	if opts.ClassSpecificCount > 0 && len(opts.Targets) >= 2 {
		classSpecific, err = sel.SelectClassSpecific(ctx, fs, opts.Targets, opts.ClassSpecificCount)
		if err != nil {
			return nil, fmt.Errorf("failed to select class-specific features: %w", err)
		}
	}
	if opts.Count > 0 {
		general, err = sel.Select(ctx, fs, opts.Method, opts.Count)
		if err != nil {
			return nil, fmt.Errorf("failed to select features: %w", err)
		}
	}
	return selection.Merge(opts.Count+opts.ClassSpecificCount, classSpecific, general), nil
}

// trainCascade registers the configured and suggested pairs and trains them.
func (r *Recognizer) trainCascade(ctx context.Context, model *bayes.Model, fs *dataset.FeatureSet) (*cascade.Manager, error) {
	manager, err := cascade.NewManager(r.opts.Policy, cascade.WithLogger(r.opts.Logger))
	if err != nil {
		return nil, err
	}

	add := func(p PairSpec) error {
		_, err := manager.AddClassifier(p.A, p.B, p.Threshold, fs.NumFeatures(), r.opts.NumBins, r.opts.Alpha)
		return err
	}
	for _, p := range r.opts.Pairs {
		if err := add(p); err != nil {
			return nil, fmt.Errorf("failed to register pair (%d, %d): %w", p.A, p.B, err)
		}
	}

	if r.opts.AutoPairs > 0 {
		report, err := eval.Evaluate(ctx, fs, r.opts.NumClasses, func(f []float64) eval.Outcome {
			return eval.Outcome{Label: model.Predict(f)}
		}, eval.WithWorkers(r.opts.Workers), eval.WithProgress(r.progress(StageEvaluate)))
		if err != nil {
			return nil, fmt.Errorf("failed to measure training confusions: %w", err)
		}

		added := 0
		for _, s := range report.SuggestPairs(-1) {
			if added == r.opts.AutoPairs {
				break
			}
			if _, ok := manager.Lookup(s.A, s.B); ok {
				continue
			}
			if err := add(PairSpec{A: s.A, B: s.B, Threshold: r.opts.PairThreshold}); err != nil {
				return nil, fmt.Errorf("failed to register suggested pair (%d, %d): %w", s.A, s.B, err)
			}
			added++
		}
	}

	if err := manager.TrainAll(ctx, fs); err != nil {
		return nil, fmt.Errorf("failed to train specialized classifiers: %w", err)
	}
	return manager, nil
}
