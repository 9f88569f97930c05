package main

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/ironsheep/glyphrec/internal/dataset"
	"github.com/ironsheep/glyphrec/internal/hog"
	"github.com/ironsheep/glyphrec/internal/logging"
	"github.com/ironsheep/glyphrec/internal/recognizer"
	"github.com/ironsheep/glyphrec/internal/report"
	"github.com/ironsheep/glyphrec/internal/selection"
)

func selectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Rank HOG features and save the selected indices",
		Long: `Select scores every HOG feature of the training split, keeps the best
ones and writes their indices to the index file. Later runs of train,
evaluate, recognize and serve load that file instead of selecting again.

With --class-specific-count and selection.targets set, Fisher-selected
features that separate the target classes come first.

Examples:
  glyphrec select --select-count 200 --index-file selected.idx
  glyphrec select --select-count 150 --method chi-square --index-file chi.idx --plot scores.png`,
		RunE: runSelect,
	}

	cmd.Flags().Int("select-count", 0, "number of features to keep")
	cmd.Flags().String("method", "", "selection method (variance, chi-square, mutual-info)")
	cmd.Flags().String("index-file", "", "where to write the selected indices")
	cmd.Flags().Int("class-specific-count", 0, "Fisher-selected features for selection.targets")
	cmd.Flags().String("plot", "", "also chart the scores to this file (.png, .svg, .pdf)")
	return cmd
}

func runSelect(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := logging.Component(logger, "select")
	s := cfg.Selection

	if s.IndexFile == "" {
		return errors.New("no index file: pass --index-file or set selection.index_file")
	}
	if s.Count <= 0 && s.ClassSpecificCount <= 0 {
		return errors.New("nothing to select: pass --select-count or --class-specific-count")
	}
	method, err := selection.ParseMethod(s.Method)
	if err != nil {
		return err
	}

	images, err := loadTrainSet(cfg)
	if err != nil {
		return err
	}

	progress := newStageProgress(os.Stderr, progressEnabled())
	defer progress.Finish()

	fs, err := hog.ExtractBatch(ctx, recognizer.Glyphs(images), images.Labels, cfg.HOG,
		hog.WithWorkers(cfg.Workers),
		hog.WithProgress(func(done, total int) { progress.Update(recognizer.StageExtract, done, total) }))
	if err != nil {
		return fmt.Errorf("failed to extract descriptors: %w", err)
	}

	sel := &selection.Selector{
		NumClasses: cfg.Classes.Count,
		Workers:    cfg.Workers,
		Logger:     logger,
		Progress:   func(done, total int) { progress.Update(recognizer.StageSelect, done, total) },
	}

	var classSpecific, general selection.Indices
	targets := toLabels(s.Targets)
	if s.ClassSpecificCount > 0 {
		if len(targets) < 2 {
			return errors.New("class-specific selection needs at least two selection.targets")
		}
		if classSpecific, err = sel.SelectClassSpecific(ctx, fs, targets, s.ClassSpecificCount); err != nil {
			return err
		}
	}

	var scores []selection.Score
	if s.Count > 0 {
		// Scores are needed for the chart anyway; top-k is taken from them
		// exactly as Select does.
		if scores, err = sel.Scores(ctx, fs, method); err != nil {
			return err
		}
		general = topIndices(scores, s.Count)
	}
	indices := selection.Merge(s.Count+s.ClassSpecificCount, classSpecific, general)
	progress.Finish()

	if err := dataset.SaveIndices(s.IndexFile, indices); err != nil {
		return err
	}
	log.Info().
		Str("method", method.String()).
		Int("features", len(indices)).
		Int("of", fs.NumFeatures()).
		Str("file", s.IndexFile).
		Msg("selection saved")
	fmt.Fprintf(cmd.OutOrStdout(), "Selected %d of %d features -> %s\n", len(indices), fs.NumFeatures(), s.IndexFile)

	plotPath, _ := cmd.Flags().GetString("plot")
	if plotPath != "" {
		if scores == nil {
			return errors.New("--plot needs --select-count: class-specific selection has no single score per feature")
		}
		title := fmt.Sprintf("%s scores (%d of %d kept)", method, len(general), len(scores))
		if err := report.PlotScores(scores, general, title, plotPath); err != nil {
			return err
		}
		log.Info().Str("file", plotPath).Msg("score chart written")
	}
	return nil
}

// topIndices returns the indices of the k best scores, leaving scores in
// index order for plotting.
func topIndices(scores []selection.Score, k int) selection.Indices {
	ranked := selection.Rank(slices.Clone(scores))
	k = min(k, len(ranked))
	out := make(selection.Indices, k)
	for i := range out {
		out[i] = ranked[i].Index
	}
	return out
}
