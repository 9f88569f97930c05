package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ironsheep/glyphrec/internal/eval"
	"github.com/ironsheep/glyphrec/internal/logging"
	"github.com/ironsheep/glyphrec/internal/recognizer"
	"github.com/ironsheep/glyphrec/internal/report"
)

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Train, then measure accuracy on the test split",
		Long: `Evaluate trains the recognizer, classifies every glyph of the test split
and prints overall accuracy, per-class accuracy and the most frequent
confusions. The suggested pairs are candidates for cascade.pairs.

Examples:
  glyphrec evaluate --test-images t10k-images.idx3-ubyte --test-labels t10k-labels.idx1-ubyte
  glyphrec evaluate --general            # bypass the specialized classifiers
  glyphrec evaluate --plot accuracy.png --suggest-pairs 5`,
		RunE: runEvaluate,
	}

	addModelFlags(cmd)
	cmd.Flags().String("test-images", "", "IDX test image file (default: the training split)")
	cmd.Flags().String("test-labels", "", "IDX test label file")
	cmd.Flags().Bool("general", false, "classify with the general model only")
	cmd.Flags().Int("top-confusions", 10, "confusions to list")
	cmd.Flags().Int("suggest-pairs", 3, "pair classifiers to suggest from the confusions")
	cmd.Flags().String("plot", "", "chart per-class accuracy to this file (.png, .svg, .pdf)")
	cmd.Flags().Bool("json", false, "print the report as JSON")
	return cmd
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := logging.Component(logger, "evaluate")
	general, _ := cmd.Flags().GetBool("general")

	progress := newStageProgress(os.Stderr, progressEnabled())
	rec, _, err := trainRecognizer(ctx, cfg, progress)
	if err != nil {
		return err
	}

	test, err := loadTestSet(cfg)
	if err != nil {
		return err
	}
	r, err := rec.Evaluate(ctx, recognizer.Glyphs(test), test.Labels, general)
	progress.Finish()
	if err != nil {
		return err
	}
	log.Info().
		Int("samples", r.Total).
		Float64("accuracy", r.Accuracy()).
		Int("overrides", r.Overrides).
		Bool("general_only", general).
		Msg("evaluation finished")

	alphabet := rec.Alphabet()
	suggest, _ := cmd.Flags().GetInt("suggest-pairs")
	out := cmd.OutOrStdout()

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Accuracy        float64               `json:"accuracy"`
			ClassAccuracies []float64             `json:"class_accuracies"`
			Suggested       []eval.PairSuggestion `json:"suggested_pairs"`
			Report          *eval.Report          `json:"report"`
		}{r.Accuracy(), r.ClassAccuracies(), r.SuggestPairs(suggest), r})
	}

	top, _ := cmd.Flags().GetInt("top-confusions")
	if err := r.WriteText(out, alphabet.Symbol, top); err != nil {
		return err
	}
	if pairs := r.SuggestPairs(suggest); len(pairs) > 0 {
		fmt.Fprintln(out, "\nSuggested pairs:")
		for _, p := range pairs {
			fmt.Fprintf(out, "  %s/%s  (%d confusions)  {a: %d, b: %d}\n",
				alphabet.Symbol(p.A), alphabet.Symbol(p.B), p.Count, p.A, p.B)
		}
	}

	if plotPath, _ := cmd.Flags().GetString("plot"); plotPath != "" {
		if err := report.PlotClassAccuracy(r, alphabet.Symbol, plotPath); err != nil {
			return err
		}
		log.Info().Str("file", plotPath).Msg("accuracy chart written")
	}
	return nil
}
