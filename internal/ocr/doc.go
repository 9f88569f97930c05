// Package ocr cross-checks recognizer output with Tesseract.
//
// ReadGlyph runs Tesseract (through gosseract/v2) in single-character page
// segmentation mode on one normalized glyph, optionally restricted to the
// symbols of the active alphabet. The answer is advisory: it is reported next
// to the recognizer's label and never feeds back into classification.
//
// # Prerequisites
//
// Tesseract and its language data must be installed:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// Builds without cgo get a stub whose functions return ErrUnavailable.
//
// # Input polarity
//
// Tesseract expects dark text on a light page, the opposite of recognizer
// glyphs, so ReadGlyph inverts and enlarges the glyph before OCR.
package ocr
