package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/glyphrec/internal/hog"
)

// InvertMode controls polarity correction.
type InvertMode string

const (
	// InvertAuto inverts when the image border is brighter than mid-gray,
	// i.e. a dark symbol drawn on paper.
	InvertAuto InvertMode = "auto"
	// InvertAlways inverts unconditionally.
	InvertAlways InvertMode = "always"
	// InvertNever keeps the input polarity.
	InvertNever InvertMode = "never"
)

// ParseInvertMode validates a mode name; the empty string means InvertAuto.
func ParseInvertMode(s string) (InvertMode, error) {
	switch InvertMode(s) {
	case "", InvertAuto:
		return InvertAuto, nil
	case InvertAlways, InvertNever:
		return InvertMode(s), nil
	}
	return "", fmt.Errorf("unknown invert mode: %s", s)
}

// inkThreshold is the luminance above which a pixel counts as part of the
// symbol when trimming.
const inkThreshold = 32

// GlyphOptions describes the target framing.
type GlyphOptions struct {
	// Rows and Cols are the output size; they must match the training glyphs.
	Rows int `json:"rows"`
	Cols int `json:"cols"`
	// Margin is the black border kept around the fitted symbol.
	Margin int        `json:"margin"`
	Invert InvertMode `json:"invert"`
	// Region, when set, crops the source before anything else.
	Region *Region `json:"region,omitempty"`
}

// DefaultGlyphOptions returns MNIST framing: a 20x20 box centered in 28x28.
func DefaultGlyphOptions() GlyphOptions {
	return GlyphOptions{Rows: 28, Cols: 28, Margin: 4, Invert: InvertAuto}
}

// ToGlyph normalizes img into a Rows x Cols glyph with a light symbol on a
// black background.
//
// The symbol is trimmed to its ink bounding box, scaled up or down to fit
// the box inside Margin with its aspect ratio kept, and centered. An image
// without ink yields an all-black glyph.
func ToGlyph(img image.Image, opts GlyphOptions) (hog.Image, error) {
	if opts.Rows <= 0 || opts.Cols <= 0 || opts.Margin < 0 ||
		2*opts.Margin >= opts.Rows || 2*opts.Margin >= opts.Cols {
		return hog.Image{}, fmt.Errorf("invalid glyph size %dx%d with margin %d", opts.Rows, opts.Cols, opts.Margin)
	}
	mode, err := ParseInvertMode(string(opts.Invert))
	if err != nil {
		return hog.Image{}, err
	}

	if opts.Region != nil {
		if img, err = Crop(img, *opts.Region); err != nil {
			return hog.Image{}, err
		}
	}

	gray := imaging.Grayscale(img)
	if mode == InvertAlways || (mode == InvertAuto && borderMean(gray) > 127) {
		gray = imaging.Invert(gray)
	}

	canvas := imaging.New(opts.Cols, opts.Rows, color.Black)
	if ink, ok := inkBounds(gray); ok {
		symbol := imaging.Crop(gray, ink)
		w, h := fitSize(ink.Dx(), ink.Dy(), opts.Cols-2*opts.Margin, opts.Rows-2*opts.Margin)
		symbol = imaging.Resize(symbol, w, h, imaging.Lanczos)
		canvas = imaging.PasteCenter(canvas, symbol)
	}

	return fromNRGBA(canvas), nil
}

// fitSize scales w x h to fit inside maxW x maxH, keeping the aspect ratio.
func fitSize(w, h, maxW, maxH int) (int, int) {
	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	fw := max(1, min(maxW, int(math.Round(float64(w)*scale))))
	fh := max(1, min(maxH, int(math.Round(float64(h)*scale))))
	return fw, fh
}

// borderMean returns the mean luminance of the outermost pixel ring.
func borderMean(img *image.NRGBA) float64 {
	b := img.Bounds()
	var sum, n float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if y != b.Min.Y && y != b.Max.Y-1 && x != b.Min.X && x != b.Max.X-1 {
				continue
			}
			sum += float64(img.Pix[img.PixOffset(x, y)])
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / n
}

// inkBounds returns the bounding box of pixels brighter than inkThreshold.
func inkBounds(img *image.NRGBA) (image.Rectangle, bool) {
	b := img.Bounds()
	box := image.Rectangle{Min: b.Max, Max: b.Min}
	found := false
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.Pix[img.PixOffset(x, y)] <= inkThreshold {
				continue
			}
			found = true
			box.Min.X = min(box.Min.X, x)
			box.Min.Y = min(box.Min.Y, y)
			box.Max.X = max(box.Max.X, x+1)
			box.Max.Y = max(box.Max.Y, y+1)
		}
	}
	return box, found
}

// fromNRGBA copies the red channel of a grayscale NRGBA image.
func fromNRGBA(img *image.NRGBA) hog.Image {
	b := img.Bounds()
	out := hog.Image{Rows: b.Dy(), Cols: b.Dx(), Pixels: make([]byte, b.Dx()*b.Dy())}
	for y := 0; y < out.Rows; y++ {
		for x := 0; x < out.Cols; x++ {
			out.Pixels[y*out.Cols+x] = img.Pix[img.PixOffset(b.Min.X+x, b.Min.Y+y)]
		}
	}
	return out
}

// ToImage wraps a glyph as an *image.Gray for encoding or OCR.
func ToImage(g hog.Image) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.Cols, g.Rows))
	copy(img.Pix, g.Pixels)
	return img
}
