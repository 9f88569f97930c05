package recognizer

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/glyphrec/internal/bayes"
	"github.com/ironsheep/glyphrec/internal/cascade"
	"github.com/ironsheep/glyphrec/internal/dataset"
	"github.com/ironsheep/glyphrec/internal/hog"
	"github.com/ironsheep/glyphrec/internal/selection"
)

const side = 16

// strokeGlyph draws a two-pixel stroke: class 0 horizontal, class 1
// vertical, class 2 diagonal, shifted by offset.
func strokeGlyph(class, offset int) hog.Image {
	img := hog.Image{Rows: side, Cols: side, Pixels: make([]byte, side*side)}
	set := func(y, x int) {
		if y >= 0 && y < side && x >= 0 && x < side {
			img.Pixels[y*side+x] = 255
		}
	}
	for i := 2; i < side-2; i++ {
		switch class {
		case 0:
			set(offset, i)
			set(offset+1, i)
		case 1:
			set(i, offset)
			set(i, offset+1)
		default:
			set(i, i+offset-7)
			set(i, i+offset-6)
		}
	}
	return img
}

func strokeSet() ([]hog.Image, []uint8) {
	var images []hog.Image
	var labels []uint8
	for class := 0; class < 3; class++ {
		for offset := 4; offset < 12; offset++ {
			images = append(images, strokeGlyph(class, offset))
			labels = append(labels, uint8(class))
		}
	}
	return images, labels
}

func strokeOptions(t *testing.T) Options {
	t.Helper()
	opts := DefaultOptions()
	opts.NumClasses = 3
	alphabet, err := ParseAlphabet("-|/", 3)
	require.NoError(t, err)
	opts.Alphabet = alphabet
	opts.NumBins = 8
	opts.Workers = 2
	return opts
}

func trained(t *testing.T, opts Options) *Recognizer {
	t.Helper()
	r, err := New(opts)
	require.NoError(t, err)
	images, labels := strokeSet()
	_, err = r.Train(context.Background(), images, labels)
	require.NoError(t, err)
	return r
}

func TestTrainAndRecognize(t *testing.T) {
	r := trained(t, strokeOptions(t))

	for class, symbol := range []string{"-", "|", "/"} {
		res, err := r.Recognize(strokeGlyph(class, 7), 3)
		require.NoError(t, err)
		assert.Equal(t, uint8(class), res.Label)
		assert.Equal(t, symbol, res.Symbol)
		require.Len(t, res.Alternatives, 3)
		assert.Equal(t, res.Label, res.Alternatives[0].Label)
		assert.InDelta(t, res.Probabilities[res.Label], res.Alternatives[0].Probability, 1e-12)
		assert.Equal(t, cascade.StageGeneral, res.Stage)
	}

	info := r.Info()
	assert.True(t, info.Trained)
	assert.Equal(t, 24, info.Summary.Samples)
	assert.Equal(t, hog.DefaultParams().NumFeatures(side, side), info.Summary.RawFeatures)
	assert.Equal(t, info.Summary.RawFeatures, info.Summary.Features)
	assert.Nil(t, r.Indices())
}

func TestTrainWithSelection(t *testing.T) {
	opts := strokeOptions(t)
	opts.Selection = SelectionOptions{
		Method:             selection.ChiSquare,
		Count:              20,
		Targets:            []uint8{0, 1},
		ClassSpecificCount: 5,
	}
	r := trained(t, opts)

	// Class-specific picks come first and may repeat general picks.
	indices := r.Indices()
	assert.GreaterOrEqual(t, len(indices), 20)
	assert.LessOrEqual(t, len(indices), 25)
	seen := map[int]bool{}
	for _, idx := range indices {
		assert.False(t, seen[idx])
		seen[idx] = true
	}

	features, err := r.Features(strokeGlyph(1, 6))
	require.NoError(t, err)
	assert.Len(t, features, len(indices))

	raw, err := hog.Extract(strokeGlyph(1, 6), opts.HOG)
	require.NoError(t, err)
	for j, idx := range indices {
		assert.Equal(t, raw[idx], features[j])
	}

	res, err := r.Recognize(strokeGlyph(1, 6), 1)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), res.Label)
	assert.Len(t, res.Ranked, 1)
}

func TestTrainWithPreloadedIndices(t *testing.T) {
	opts := strokeOptions(t)
	opts.Selection.Indices = selection.Indices{3, 1, 4, 1, 5}
	r := trained(t, opts)
	assert.Equal(t, selection.Indices{3, 1, 4, 1, 5}, r.Indices())
	assert.Equal(t, 5, r.Info().Summary.Features)

	opts.Selection.Indices = selection.Indices{10_000}
	bad, err := New(opts)
	require.NoError(t, err)
	images, labels := strokeSet()
	_, err = bad.Train(context.Background(), images, labels)
	assert.ErrorIs(t, err, dataset.ErrIndexOutOfRange)
}

func TestTrainRegistersPairs(t *testing.T) {
	opts := strokeOptions(t)
	opts.Pairs = []PairSpec{{A: 0, B: 2, Threshold: 0.7}}
	opts.AutoPairs = 2
	r := trained(t, opts)

	pairs := r.Info().Summary.Pairs
	require.NotEmpty(t, pairs)
	assert.Equal(t, cascade.Pair{A: 0, B: 2}, pairs[0])
	assert.LessOrEqual(t, len(pairs), 3)

	opts.Pairs = []PairSpec{{A: 1, B: 1, Threshold: 0.7}}
	bad, err := New(opts)
	require.NoError(t, err)
	images, labels := strokeSet()
	_, err = bad.Train(context.Background(), images, labels)
	assert.ErrorIs(t, err, cascade.ErrInvalidParameter)
}

func TestEvaluate(t *testing.T) {
	r := trained(t, strokeOptions(t))
	images, labels := strokeSet()

	for _, general := range []bool{false, true} {
		report, err := r.Evaluate(context.Background(), images, labels, general)
		require.NoError(t, err)
		assert.Equal(t, 24, report.Total)
		assert.GreaterOrEqual(t, report.Accuracy(), 0.9)
		if general {
			assert.Zero(t, report.Overrides)
		}
	}
}

func TestProgressStages(t *testing.T) {
	opts := strokeOptions(t)
	opts.Selection.Count = 10
	opts.AutoPairs = 1

	var mu sync.Mutex
	stages := map[string]int{}
	opts.Progress = func(stage string, done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if done == total {
			stages[stage]++
		}
	}
	trained(t, opts)

	assert.Equal(t, 1, stages[StageExtract])
	assert.Equal(t, 1, stages[StageSelect])
	assert.Equal(t, 1, stages[StageEvaluate])
}

func TestInferenceErrors(t *testing.T) {
	r, err := New(strokeOptions(t))
	require.NoError(t, err)

	_, err = r.Recognize(strokeGlyph(0, 5), 1)
	assert.ErrorIs(t, err, ErrNotTrained)
	_, err = r.Evaluate(context.Background(), []hog.Image{strokeGlyph(0, 5)}, []uint8{0}, false)
	assert.ErrorIs(t, err, ErrNotTrained)
	assert.False(t, r.Info().Trained)

	r = trained(t, strokeOptions(t))
	_, err = r.Recognize(hog.Image{Rows: 8, Cols: 8, Pixels: make([]byte, 64)}, 1)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestNewRejectsBadOptions(t *testing.T) {
	opts := strokeOptions(t)
	opts.NumClasses = 0
	_, err := New(opts)
	assert.ErrorIs(t, err, bayes.ErrInvalidParameter)

	opts = strokeOptions(t)
	opts.HOG.CellSize = 0
	_, err = New(opts)
	assert.ErrorIs(t, err, hog.ErrInvalidParameter)

	opts = strokeOptions(t)
	opts.Policy.HighConfidence = 2
	_, err = New(opts)
	assert.ErrorIs(t, err, cascade.ErrInvalidParameter)

	opts = strokeOptions(t)
	opts.Selection = SelectionOptions{Method: selection.Fisher, Count: 10}
	_, err = New(opts)
	assert.ErrorIs(t, err, selection.ErrInvalidParameter)

	r, err := New(strokeOptions(t))
	require.NoError(t, err)
	_, err = r.Train(context.Background(), []hog.Image{strokeGlyph(0, 5)}, nil)
	assert.ErrorIs(t, err, hog.ErrInvalidParameter)
}

func TestConcurrentRecognize(t *testing.T) {
	r := trained(t, strokeOptions(t))

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			class := i % 3
			res, err := r.Recognize(strokeGlyph(class, 4+i%8), 2)
			assert.NoError(t, err)
			assert.Equal(t, uint8(class), res.Label)
		}()
	}
	wg.Wait()
}

func TestGlyphs(t *testing.T) {
	im := &dataset.Images{Count: 2, Rows: 2, Cols: 2, Pixels: []byte{1, 2, 3, 4, 5, 6, 7, 8}, Labels: []uint8{0, 1}}
	glyphs := Glyphs(im)
	require.Len(t, glyphs, 2)
	assert.Equal(t, []byte{5, 6, 7, 8}, glyphs[1].Pixels)
	assert.Equal(t, 2, glyphs[1].Rows)
}

func TestAlphabet(t *testing.T) {
	letters, err := ParseAlphabet("letters", 26)
	require.NoError(t, err)
	assert.Equal(t, "A", letters.Symbol(0))
	assert.Equal(t, "Z", letters.Symbol(25))
	assert.Equal(t, "30", letters.Symbol(30))
	l, ok := letters.Label("Q")
	assert.True(t, ok)
	assert.Equal(t, uint8(16), l)
	_, ok = letters.Label("q")
	assert.False(t, ok)
	assert.Equal(t, "ABC", letters.Symbols(3))

	_, err = ParseAlphabet("digits", 26)
	assert.Error(t, err)

	custom, err := ParseAlphabet("xo", 2)
	require.NoError(t, err)
	assert.Equal(t, "custom", custom.Name)
	assert.Equal(t, "o", custom.Symbol(1))
}
