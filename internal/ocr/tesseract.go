//go:build cgo

package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// ReadGlyph asks Tesseract which character glyph shows.
//
// Parameters:
//   - glyph: a normalized light-on-dark glyph.
//   - opts: language and optional character whitelist.
//
// Returns the best symbol with its confidence, or an error when Tesseract
// cannot be initialized or the image cannot be handed over.
func ReadGlyph(glyph image.Image, opts Options) (*Reading, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(opts.language()); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_CHAR); err != nil {
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if opts.Whitelist != "" {
		if err := client.SetWhitelist(opts.Whitelist); err != nil {
			return nil, fmt.Errorf("failed to set whitelist: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, prepare(glyph)); err != nil {
		return nil, fmt.Errorf("failed to encode glyph: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_SYMBOL)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	best := &Reading{}
	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		if word == "" {
			continue
		}
		if conf := float64(box.Confidence) / 100.0; conf > best.Confidence {
			best = &Reading{Text: word, Confidence: conf}
		}
	}
	return best, nil
}

// Version returns the linked Tesseract version.
func Version() (string, error) {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version(), nil
}
