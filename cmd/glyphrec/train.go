package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ironsheep/glyphrec/internal/recognizer"
)

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the recognizer and report what was built",
		Long: `Train extracts HOG descriptors from the training split, applies feature
selection when configured, fits the general Naive Bayes model and every
specialized pair classifier, then prints a summary.

Nothing but the selected indices is persisted, so train is mainly useful to
check settings and timings before evaluate or serve.

Examples:
  glyphrec train --train-images train-images.idx3-ubyte --train-labels train-labels.idx1-ubyte
  glyphrec train --select-count 200 --method chi-square
  glyphrec train --auto-pairs 3 --json`,
		RunE: runTrain,
	}

	addModelFlags(cmd)
	cmd.Flags().Bool("json", false, "print the summary as JSON")
	return cmd
}

// addModelFlags registers the flags every training command shares.
func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().Int("select-count", 0, "number of features to keep (0 = all)")
	cmd.Flags().String("method", "", "selection method (variance, chi-square, mutual-info)")
	cmd.Flags().String("index-file", "", "saved feature selection to load")
	cmd.Flags().Int("auto-pairs", 0, "pair classifiers to add from training confusions")
}

func runTrain(cmd *cobra.Command, _ []string) error {
	progress := newStageProgress(os.Stderr, progressEnabled())
	rec, summary, err := trainRecognizer(cmd.Context(), cfg, progress)
	if err != nil {
		return err
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rec.Info())
	}
	return writeSummary(cmd.OutOrStdout(), rec, summary)
}

func writeSummary(w io.Writer, rec *recognizer.Recognizer, s *recognizer.TrainSummary) error {
	info := rec.Info()
	alphabet := rec.Alphabet()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Samples:\t%d (%d skipped)\n", s.Samples, s.Skipped)
	fmt.Fprintf(tw, "Glyph size:\t%dx%d\n", info.GlyphRows, info.GlyphCols)
	fmt.Fprintf(tw, "Classes:\t%d (%s)\n", info.NumClasses, alphabet.Symbols(info.NumClasses))
	fmt.Fprintf(tw, "HOG:\tcell %d, %d bins\n", info.HOG.CellSize, info.HOG.NumBins)
	fmt.Fprintf(tw, "Features:\t%d of %d\n", s.Features, s.RawFeatures)
	fmt.Fprintf(tw, "Value bins:\t%d (alpha %g)\n", info.NumBins, info.Alpha)
	fmt.Fprintf(tw, "Policy:\thigh %.2f, specialized %.2f\n", info.Policy.HighConfidence, info.Policy.SpecializedConfidence)
	if len(s.Pairs) == 0 {
		fmt.Fprintf(tw, "Pairs:\tnone\n")
	}
	for i, p := range s.Pairs {
		label := ""
		if i == 0 {
			label = "Pairs:"
		}
		fmt.Fprintf(tw, "%s\t%s/%s\n", label, alphabet.Symbol(p.A), alphabet.Symbol(p.B))
	}
	return tw.Flush()
}
