package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/ironsheep/glyphrec/internal/config"
	"github.com/ironsheep/glyphrec/internal/dataset"
	"github.com/ironsheep/glyphrec/internal/imaging"
	"github.com/ironsheep/glyphrec/internal/logging"
	"github.com/ironsheep/glyphrec/internal/recognizer"
	"github.com/ironsheep/glyphrec/internal/selection"
)

var errNoTrainingData = errors.New("no training data: set data.train_images and data.train_labels or pass --train-images/--train-labels")

// recognizerOptions maps loaded settings onto recognizer options. An
// existing selection.index_file takes precedence over selection.count.
func recognizerOptions(c config.Config, log zerolog.Logger) (recognizer.Options, error) {
	opts := recognizer.DefaultOptions()

	alphabet, err := recognizer.ParseAlphabet(c.Classes.Alphabet, c.Classes.Count)
	if err != nil {
		return opts, err
	}
	method, err := selection.ParseMethod(c.Selection.Method)
	if err != nil {
		return opts, err
	}

	opts.NumClasses = c.Classes.Count
	opts.Alphabet = alphabet
	opts.HOG = c.HOG
	opts.NumBins = c.Bayes.NumBins
	opts.Alpha = c.Bayes.Alpha
	opts.Policy = c.Cascade.Policy
	opts.AutoPairs = c.Cascade.AutoPairs
	opts.PairThreshold = c.Cascade.PairThreshold
	opts.Workers = c.Workers
	opts.Logger = log

	opts.Selection = recognizer.SelectionOptions{
		Method:             method,
		Count:              c.Selection.Count,
		Targets:            toLabels(c.Selection.Targets),
		ClassSpecificCount: c.Selection.ClassSpecificCount,
	}
	if c.Selection.IndexFile != "" {
		indices, err := dataset.LoadIndices(c.Selection.IndexFile)
		switch {
		case err == nil:
			opts.Selection.Indices = indices
			log.Info().Str("file", c.Selection.IndexFile).Int("features", len(indices)).Msg("using saved feature selection")
		case errors.Is(err, fs.ErrNotExist):
			log.Debug().Str("file", c.Selection.IndexFile).Msg("index file not found, selecting from scratch")
		default:
			return opts, err
		}
	}

	for _, p := range c.Cascade.Pairs {
		threshold := p.Threshold
		if threshold == 0 {
			threshold = c.Cascade.PairThreshold
		}
		opts.Pairs = append(opts.Pairs, recognizer.PairSpec{A: uint8(p.A), B: uint8(p.B), Threshold: threshold})
	}
	return opts, nil
}

func toLabels(ints []int) []uint8 {
	if len(ints) == 0 {
		return nil
	}
	out := make([]uint8, len(ints))
	for i, v := range ints {
		out[i] = uint8(v)
	}
	return out
}

func loadTrainSet(c config.Config) (*dataset.Images, error) {
	if c.Data.TrainImages == "" || c.Data.TrainLabels == "" {
		return nil, errNoTrainingData
	}
	return loadIDX(c, c.Data.TrainImages, c.Data.TrainLabels)
}

// loadTestSet falls back to the training files when no test split is set.
func loadTestSet(c config.Config) (*dataset.Images, error) {
	if c.Data.TestImages == "" || c.Data.TestLabels == "" {
		logger.Warn().Msg("no test split configured, evaluating on the training data")
		return loadTrainSet(c)
	}
	return loadIDX(c, c.Data.TestImages, c.Data.TestLabels)
}

func loadIDX(c config.Config, images, labels string) (*dataset.Images, error) {
	ds, err := dataset.LoadIDX(images, labels, dataset.LoadOptions{
		LabelOffset: c.Data.LabelOffset,
		Transpose:   c.Data.Transpose,
	})
	if err != nil {
		return nil, err
	}
	if ds.Unmapped > 0 {
		logger.Warn().
			Str("file", labels).
			Int("labels", ds.Unmapped).
			Int("label_offset", c.Data.LabelOffset).
			Msg("labels below the offset will be skipped")
	}
	return ds, nil
}

// trainRecognizer loads the training split and fits a recognizer on it.
func trainRecognizer(ctx context.Context, c config.Config, progress *stageProgress) (*recognizer.Recognizer, *recognizer.TrainSummary, error) {
	log := logging.Component(logger, "train")

	opts, err := recognizerOptions(c, logger)
	if err != nil {
		return nil, nil, err
	}
	opts.Progress = progress.Update

	images, err := loadTrainSet(c)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Int("glyphs", images.Count).Int("rows", images.Rows).Int("cols", images.Cols).Msg("training data loaded")

	rec, err := recognizer.New(opts)
	if err != nil {
		return nil, nil, err
	}
	summary, err := rec.Train(ctx, recognizer.Glyphs(images), images.Labels)
	progress.Finish()
	if err != nil {
		return nil, nil, err
	}
	return rec, summary, nil
}

// glyphOptions frames input images the way rec was trained.
func glyphOptions(rec *recognizer.Recognizer, invert string, margin int) (imaging.GlyphOptions, error) {
	opts := imaging.DefaultGlyphOptions()
	mode, err := imaging.ParseInvertMode(invert)
	if err != nil {
		return opts, err
	}
	opts.Invert = mode
	if margin >= 0 {
		opts.Margin = margin
	}
	if info := rec.Info(); info.Trained {
		opts.Rows, opts.Cols = info.GlyphRows, info.GlyphCols
	}
	return opts, nil
}

// stageProgress renders one progress bar per pipeline stage. Update may be
// called from several goroutines.
type stageProgress struct {
	mu    sync.Mutex
	w     io.Writer
	stage string
	bar   *progressbar.ProgressBar
}

// newStageProgress returns nil when disabled; a nil *stageProgress is a
// valid no-op.
func newStageProgress(w io.Writer, enabled bool) *stageProgress {
	if !enabled {
		return nil
	}
	return &stageProgress{w: w}
}

func (p *stageProgress) Update(stage string, done, total int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	restart := p.bar != nil && p.bar.IsFinished() && done < int(p.bar.State().CurrentNum)
	if p.bar == nil || restart || stage != p.stage || int64(total) != p.bar.GetMax64() {
		p.finishLocked()
		p.stage = stage
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionSetDescription(fmt.Sprintf("%-9s", stage)),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(p.w)
			}),
		)
	}
	// done values from concurrent workers can arrive out of order.
	if cur := int(p.bar.State().CurrentNum); done > cur {
		_ = p.bar.Set(done)
	}
}

func (p *stageProgress) Finish() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishLocked()
}

func (p *stageProgress) finishLocked() {
	if p.bar != nil && !p.bar.IsFinished() {
		_ = p.bar.Finish()
	}
	p.bar = nil
}

// progressEnabled reports whether bars should be drawn on stderr.
func progressEnabled() bool {
	if noProgress {
		return false
	}
	fi, err := os.Stderr.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
