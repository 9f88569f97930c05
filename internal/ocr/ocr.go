package ocr

import (
	"errors"
	"image"

	"github.com/disintegration/imaging"
)

// ErrUnavailable is returned when the binary was built without Tesseract.
var ErrUnavailable = errors.New("tesseract OCR not available in this build")

// Options tunes a single-glyph read.
type Options struct {
	// Language is the Tesseract language code, "eng" when empty.
	Language string `json:"language"`
	// Whitelist restricts the answer to these characters when non-empty.
	Whitelist string `json:"whitelist,omitempty"`
}

// Reading is Tesseract's answer for one glyph.
type Reading struct {
	// Text is the recognized character, empty when Tesseract found nothing.
	Text string `json:"text"`
	// Confidence is Tesseract's confidence scaled to [0, 1].
	Confidence float64 `json:"confidence"`
}

// glyphScale enlarges glyphs to roughly the x-height Tesseract is tuned for.
const glyphScale = 4

// paperBorder is the white padding Tesseract needs around a lone symbol.
const paperBorder = 16

// prepare turns a light-on-dark glyph into an enlarged dark-on-light page.
func prepare(glyph image.Image) image.Image {
	b := glyph.Bounds()
	page := imaging.Invert(glyph)
	page = imaging.Resize(page, b.Dx()*glyphScale, b.Dy()*glyphScale, imaging.Lanczos)
	canvas := imaging.New(page.Bounds().Dx()+2*paperBorder, page.Bounds().Dy()+2*paperBorder, image.White)
	return imaging.PasteCenter(canvas, page)
}

func (o Options) language() string {
	if o.Language == "" {
		return "eng"
	}
	return o.Language
}
