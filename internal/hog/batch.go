package hog

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/glyphrec/internal/dataset"
)

// BatchOption configures ExtractBatch.
type BatchOption func(*batchConfig)

type batchConfig struct {
	workers  int
	progress func(done, total int)
}

// WithWorkers bounds the number of concurrent extractions. Values <= 0 use
// GOMAXPROCS.
func WithWorkers(n int) BatchOption {
	return func(c *batchConfig) { c.workers = n }
}

// WithProgress registers a callback invoked after each image. It may be
// called from several goroutines at once.
func WithProgress(fn func(done, total int)) BatchOption {
	return func(c *batchConfig) { c.progress = fn }
}

// ExtractBatch computes descriptors for images that all share one shape and
// returns them as a FeatureSet with the given labels (nil for inference sets).
//
// Extraction runs on a bounded errgroup pool. Cancelling ctx stops new images
// from being scheduled and returns ctx.Err().
func ExtractBatch(ctx context.Context, images []Image, labels []uint8, p Params, opts ...BatchOption) (*dataset.FeatureSet, error) {
	cfg := batchConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.workers <= 0 {
		cfg.workers = runtime.GOMAXPROCS(0)
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("%w: no images", ErrInvalidParameter)
	}
	rows, cols := images[0].Rows, images[0].Cols
	if err := p.Validate(rows, cols); err != nil {
		return nil, err
	}
	for i, img := range images {
		if img.Rows != rows || img.Cols != cols || len(img.Pixels) != rows*cols {
			return nil, fmt.Errorf("%w: image %d is %dx%d (%d pixels), want %dx%d",
				ErrInvalidParameter, i, img.Rows, img.Cols, len(img.Pixels), rows, cols)
		}
	}

	numFeatures := p.NumFeatures(rows, cols)
	data := make([]float64, len(images)*numFeatures)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers)

	var done atomic.Int64
	for i := range images {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			extractInto(images[i], p, data[i*numFeatures:(i+1)*numFeatures])
			if cfg.progress != nil {
				cfg.progress(int(done.Add(1)), len(images))
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

	return dataset.NewFeatureSet(len(images), numFeatures, data, labels)
}
