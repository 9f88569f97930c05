package recognizer

import (
	"context"
	"fmt"

	"github.com/ironsheep/glyphrec/internal/cascade"
	"github.com/ironsheep/glyphrec/internal/eval"
	"github.com/ironsheep/glyphrec/internal/hog"
	"github.com/ironsheep/glyphrec/internal/selection"
)

// Result is the outcome of recognizing one glyph.
type Result struct {
	cascade.Decision
	Symbol string `json:"symbol"`
	// Alternatives lists the ranked labels with their general-model
	// probabilities, best first.
	Alternatives []Alternative `json:"alternatives"`
}

// Alternative is one ranked candidate.
type Alternative struct {
	Label       uint8   `json:"label"`
	Symbol      string  `json:"symbol"`
	Probability float64 `json:"probability"`
}

// Trained reports whether Train has succeeded.
func (r *Recognizer) Trained() bool {
	return r.model != nil
}

// Features returns the projected descriptor of img as fed to the models.
func (r *Recognizer) Features(img hog.Image) ([]float64, error) {
	if !r.Trained() {
		return nil, ErrNotTrained
	}
	if img.Rows != r.rows || img.Cols != r.cols {
		return nil, fmt.Errorf("%w: got %dx%d, want %dx%d", ErrShapeMismatch, img.Rows, img.Cols, r.rows, r.cols)
	}

	raw, err := hog.Extract(img, r.opts.HOG)
	if err != nil {
		return nil, err
	}
	if r.indices == nil {
		return raw, nil
	}
	out := make([]float64, len(r.indices))
	for j, idx := range r.indices {
		out[j] = raw[idx]
	}
	return out, nil
}

// Recognize classifies img and returns up to topN ranked alternatives.
func (r *Recognizer) Recognize(img hog.Image, topN int) (*Result, error) {
	features, err := r.Features(img)
	if err != nil {
		return nil, err
	}

	d := r.cascade.TwoStageClassify(r.model, features, topN)
	res := &Result{
		Decision:     d,
		Symbol:       r.opts.Alphabet.Symbol(d.Label),
		Alternatives: make([]Alternative, len(d.Ranked)),
	}
	for i, l := range d.Ranked {
		res.Alternatives[i] = Alternative{Label: l, Symbol: r.opts.Alphabet.Symbol(l), Probability: d.Probabilities[l]}
	}
	return res, nil
}

// Classify runs the cascade on an already projected feature vector.
func (r *Recognizer) Classify(features []float64) eval.Outcome {
	d := r.cascade.TwoStageClassify(r.model, features, 2)
	return eval.Outcome{Label: d.Label, Overridden: d.Overridden()}
}

// ClassifyGeneral runs only the general model, for comparison runs.
func (r *Recognizer) ClassifyGeneral(features []float64) eval.Outcome {
	return eval.Outcome{Label: r.model.Predict(features)}
}

// Evaluate extracts, projects and classifies labeled glyphs. With general
// set the cascade is bypassed.
func (r *Recognizer) Evaluate(ctx context.Context, images []hog.Image, labels []uint8, general bool) (*eval.Report, error) {
	if !r.Trained() {
		return nil, ErrNotTrained
	}
	fs, err := hog.ExtractBatch(ctx, images, labels, r.opts.HOG,
		hog.WithWorkers(r.opts.Workers), hog.WithProgress(r.progress(StageExtract)))
	if err != nil {
		return nil, fmt.Errorf("failed to extract descriptors: %w", err)
	}
	if fs.NumFeatures() != r.summary.RawFeatures {
		return nil, fmt.Errorf("%w: descriptor length %d, want %d", ErrShapeMismatch, fs.NumFeatures(), r.summary.RawFeatures)
	}
	if r.indices != nil {
		if fs, err = selection.Reduce(fs, r.indices); err != nil {
			return nil, err
		}
	}

	classify := r.Classify
	if general {
		classify = r.ClassifyGeneral
	}
	return eval.Evaluate(ctx, fs, r.opts.NumClasses, classify,
		eval.WithWorkers(r.opts.Workers), eval.WithProgress(r.progress(StageEvaluate)))
}

// Info summarizes the trained pipeline.
type Info struct {
	Trained    bool              `json:"trained"`
	NumClasses int               `json:"num_classes"`
	GlyphRows  int               `json:"glyph_rows"`
	GlyphCols  int               `json:"glyph_cols"`
	HOG        hog.Params        `json:"hog"`
	NumBins    int               `json:"num_bins"`
	Alpha      float64           `json:"alpha"`
	Summary    TrainSummary      `json:"training"`
	Indices    selection.Indices `json:"selected_indices,omitempty"`
	Policy     cascade.Policy    `json:"policy"`
}

// Info reports the configuration and training summary.
func (r *Recognizer) Info() Info {
	return Info{
		Trained:    r.Trained(),
		NumClasses: r.opts.NumClasses,
		GlyphRows:  r.rows,
		GlyphCols:  r.cols,
		HOG:        r.opts.HOG,
		NumBins:    r.opts.NumBins,
		Alpha:      r.opts.Alpha,
		Summary:    r.summary,
		Indices:    r.indices,
		Policy:     r.opts.Policy,
	}
}

// Alphabet returns the label alphabet.
func (r *Recognizer) Alphabet() Alphabet {
	return r.opts.Alphabet
}

// Indices returns the selected feature indices, nil when all are kept.
func (r *Recognizer) Indices() selection.Indices {
	return r.indices
}
