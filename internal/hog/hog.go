package hog

import (
	"errors"
	"fmt"
	"math"

	"github.com/ironsheep/glyphrec/internal/mathx"
)

// normEpsilon keeps blank cells from dividing by zero.
const normEpsilon = 1e-6

// ErrInvalidParameter is returned for non-positive cell/bin counts, cells
// larger than the image, or pixel buffers that disagree with the image shape.
var ErrInvalidParameter = errors.New("invalid HOG parameter")

// Image is a borrowed row-major grid of 8-bit intensities.
type Image struct {
	Pixels []byte
	Rows   int
	Cols   int
}

// At returns the intensity at row y, column x.
func (img Image) At(y, x int) float64 {
	return float64(img.Pixels[y*img.Cols+x])
}

// Params configures the descriptor.
type Params struct {
	// CellSize is the side of a square cell in pixels.
	CellSize int `mapstructure:"cell_size" json:"cell_size"`

	// NumBins is the number of orientation bins over [0, 180) degrees.
	NumBins int `mapstructure:"num_bins" json:"num_bins"`
}

// DefaultParams returns 4x4 cells with 9 orientation bins, the setting used
// for 28x28 MNIST/EMNIST glyphs (441 features).
func DefaultParams() Params {
	return Params{CellSize: 4, NumBins: 9}
}

// NumFeatures returns the descriptor length for a rows x cols image.
func (p Params) NumFeatures(rows, cols int) int {
	if p.CellSize <= 0 {
		return 0
	}
	return (rows / p.CellSize) * (cols / p.CellSize) * p.NumBins
}

// Validate checks p against an image shape.
func (p Params) Validate(rows, cols int) error {
	if p.CellSize <= 0 || p.NumBins <= 0 {
		return fmt.Errorf("%w: cell size %d, bins %d", ErrInvalidParameter, p.CellSize, p.NumBins)
	}
	if rows < p.CellSize || cols < p.CellSize {
		return fmt.Errorf("%w: %dx%d image smaller than %d-pixel cell", ErrInvalidParameter, rows, cols, p.CellSize)
	}
	return nil
}

// Extract computes the HOG descriptor of img.
//
// Returns a vector of p.NumFeatures(img.Rows, img.Cols) values in [0, 1].
// A uniformly blank image yields all zeros.
//
// # Errors
//
// ErrInvalidParameter when p is invalid for the image or len(img.Pixels)
// differs from Rows*Cols.
func Extract(img Image, p Params) ([]float64, error) {
	if err := p.Validate(img.Rows, img.Cols); err != nil {
		return nil, err
	}
	if len(img.Pixels) != img.Rows*img.Cols {
		return nil, fmt.Errorf("%w: %d pixels for %dx%d image", ErrInvalidParameter, len(img.Pixels), img.Rows, img.Cols)
	}

	out := make([]float64, p.NumFeatures(img.Rows, img.Cols))
	extractInto(img, p, out)
	return out, nil
}

// extractInto writes the descriptor of img into out, which must already have
// the right length.
func extractInto(img Image, p Params, out []float64) {
	cellsX := img.Cols / p.CellSize
	cellsY := img.Rows / p.CellSize
	hist := make([]float64, p.NumBins)

	for cy := 0; cy < cellsY; cy++ {
		for cx := 0; cx < cellsX; cx++ {
			for b := range hist {
				hist[b] = 0
			}

			for y := cy * p.CellSize; y < (cy+1)*p.CellSize; y++ {
				for x := cx * p.CellSize; x < (cx+1)*p.CellSize; x++ {
					mag, orient := gradient(img, x, y)
					bin := mathx.ClampInt(int(orient*float64(p.NumBins)/180.0), 0, p.NumBins-1)
					hist[bin] += mag
				}
			}

			var sum float64
			for _, h := range hist {
				sum += h * h
			}
			norm := math.Sqrt(sum + normEpsilon)

			offset := (cy*cellsX + cx) * p.NumBins
			for b, h := range hist {
				out[offset+b] = h / norm
			}
		}
	}
}

// gradient returns the magnitude and unsigned orientation in degrees
// [0, 180) at (x, y) using central differences with clamped borders.
func gradient(img Image, x, y int) (float64, float64) {
	left := mathx.ClampInt(x-1, 0, img.Cols-1)
	right := mathx.ClampInt(x+1, 0, img.Cols-1)
	top := mathx.ClampInt(y-1, 0, img.Rows-1)
	bottom := mathx.ClampInt(y+1, 0, img.Rows-1)

	dx := img.At(y, right) - img.At(y, left)
	dy := img.At(bottom, x) - img.At(top, x)

	if dx == 0 && dy == 0 {
		return 0, 0
	}

	deg := math.Atan2(dy, dx) * 180.0 / math.Pi
	orient := math.Mod(deg+180.0, 180.0)
	// Mod can round up to exactly 180 for tiny negative angles.
	if orient >= 180.0 {
		orient = 0
	}
	return math.Hypot(dx, dy), orient
}
