package ocr

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// renderGlyph draws one character light-on-dark with basicfont, the way
// recognizer glyphs look.
func renderGlyph(ch string) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 28, 28))
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(10), Y: fixed.I(19)},
	}
	d.DrawString(ch)
	return img
}

func TestPrepareInvertsAndPads(t *testing.T) {
	glyph := renderGlyph("7")
	page := prepare(glyph)

	b := page.Bounds()
	assert.Equal(t, 28*glyphScale+2*paperBorder, b.Dx())
	assert.Equal(t, 28*glyphScale+2*paperBorder, b.Dy())

	r, _, _, _ := page.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r, "border is white paper")
	r, _, _, _ = page.At(paperBorder+1, paperBorder+1).RGBA()
	assert.Equal(t, uint32(0xffff), r, "glyph background becomes paper")

	var dark int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if r, _, _, _ := page.At(x, y).RGBA(); r < 0x4000 {
				dark++
			}
		}
	}
	assert.Positive(t, dark, "stroke becomes ink")
}

func TestOptionsLanguage(t *testing.T) {
	assert.Equal(t, "eng", Options{}.language())
	assert.Equal(t, "deu", Options{Language: "deu"}.language())
}

func TestReadGlyph(t *testing.T) {
	reading, err := ReadGlyph(renderGlyph("7"), Options{Whitelist: "0123456789"})
	if errors.Is(err, ErrUnavailable) {
		t.Skip("tesseract not linked into this build")
	}
	if err != nil {
		t.Skipf("tesseract not usable here: %v", err)
	}
	require.NotNil(t, reading)
	assert.GreaterOrEqual(t, reading.Confidence, 0.0)
	assert.LessOrEqual(t, reading.Confidence, 1.0)
	if reading.Text != "" {
		assert.Contains(t, "0123456789", reading.Text)
	}
}

func TestVersion(t *testing.T) {
	v, err := Version()
	if errors.Is(err, ErrUnavailable) {
		t.Skip("tesseract not linked into this build")
	}
	require.NoError(t, err)
	assert.NotEmpty(t, v)
}
