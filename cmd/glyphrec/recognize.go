package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ironsheep/glyphrec/internal/imaging"
	"github.com/ironsheep/glyphrec/internal/logging"
	"github.com/ironsheep/glyphrec/internal/ocr"
	"github.com/ironsheep/glyphrec/internal/recognizer"
)

func recognizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recognize IMAGE...",
		Short: "Train, then recognize the symbol in each image file",
		Long: `Recognize trains the recognizer and classifies one symbol per image file.
Each image is cropped (--region), polarity-corrected, trimmed to its ink and
fitted into the training glyph size before classification.

Examples:
  glyphrec recognize seven.png
  glyphrec recognize --preview --top-n 5 scan.jpg
  glyphrec recognize --region 10,10,90,90 --ocr form.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRecognize,
	}

	addModelFlags(cmd)
	cmd.Flags().Int("top-n", 3, "ranked alternatives to show")
	cmd.Flags().String("invert", "auto", "polarity correction (auto, always, never)")
	cmd.Flags().Int("margin", -1, "blank border around the fitted symbol (-1 = default)")
	cmd.Flags().String("region", "", "crop x1,y1,x2,y2 before normalizing")
	cmd.Flags().Bool("ocr", false, "cross-check with Tesseract")
	cmd.Flags().Bool("preview", false, "print the normalized glyph as ASCII art")
	cmd.Flags().Bool("json", false, "print results as JSON lines")
	return cmd
}

// recognition is one line of recognize --json output.
type recognition struct {
	Path string `json:"path"`
	*recognizer.Result
	OCR      *ocr.Reading `json:"ocr,omitempty"`
	OCRError string       `json:"ocr_error,omitempty"`
}

func runRecognize(cmd *cobra.Command, args []string) error {
	log := logging.Component(logger, "recognize")
	flags := cmd.Flags()
	topN, _ := flags.GetInt("top-n")
	invert, _ := flags.GetString("invert")
	margin, _ := flags.GetInt("margin")
	regionSpec, _ := flags.GetString("region")
	withOCR, _ := flags.GetBool("ocr")
	preview, _ := flags.GetBool("preview")
	asJSON, _ := flags.GetBool("json")

	region, err := parseRegion(regionSpec)
	if err != nil {
		return err
	}

	progress := newStageProgress(os.Stderr, progressEnabled())
	rec, _, err := trainRecognizer(cmd.Context(), cfg, progress)
	if err != nil {
		return err
	}

	opts, err := glyphOptions(rec, invert, margin)
	if err != nil {
		return err
	}
	opts.Region = region

	ocrOpts := ocr.Options{Whitelist: rec.Alphabet().Symbols(rec.Info().NumClasses)}
	cache := imaging.NewImageCache()
	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)

	var failed int
	for _, path := range args {
		glyph, err := cache.LoadGlyph(path, opts)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("cannot load glyph")
			failed++
			continue
		}
		cache.Evict(path)

		res, err := rec.Recognize(glyph, topN)
		if err != nil {
			return err
		}
		line := recognition{Path: path, Result: res}
		if withOCR {
			if line.OCR, err = ocr.ReadGlyph(imaging.ToImage(glyph), ocrOpts); err != nil {
				line.OCRError = err.Error()
			}
		}

		if asJSON {
			if err := enc.Encode(line); err != nil {
				return err
			}
			continue
		}
		writeRecognition(out, line, rec.Alphabet())
		if preview {
			fmt.Fprint(out, imaging.ASCII(glyph))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d images could not be read", failed, len(args))
	}
	return nil
}

func writeRecognition(w io.Writer, r recognition, alphabet recognizer.Alphabet) {
	fmt.Fprintf(w, "%s: %s (%.1f%%, %s", r.Path, r.Symbol, 100*r.Confidence, r.Stage)
	if r.Overridden() {
		fmt.Fprintf(w, ", general model said %s", alphabet.Symbol(r.GeneralLabel))
	}
	fmt.Fprintln(w, ")")

	var alts []string
	for _, a := range r.Alternatives {
		alts = append(alts, fmt.Sprintf("%s %.1f%%", a.Symbol, 100*a.Probability))
	}
	fmt.Fprintf(w, "  alternatives: %s\n", strings.Join(alts, ", "))

	switch {
	case r.OCR != nil:
		fmt.Fprintf(w, "  tesseract: %q (%.0f%%)\n", r.OCR.Text, 100*r.OCR.Confidence)
	case r.OCRError != "":
		fmt.Fprintf(w, "  tesseract: %s\n", r.OCRError)
	}
}

// parseRegion reads "x1,y1,x2,y2"; the empty string means no crop.
func parseRegion(s string) (*imaging.Region, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, errors.New("region must be x1,y1,x2,y2")
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid region coordinate %q: %w", p, err)
		}
		v[i] = n
	}
	return &imaging.Region{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}, nil
}
