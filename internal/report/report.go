// Package report renders selection and evaluation results as charts with
// gonum.org/v1/plot. The output format follows the file extension (.png,
// .svg, .pdf, ...).
package report

import (
	"errors"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ironsheep/glyphrec/internal/eval"
	"github.com/ironsheep/glyphrec/internal/selection"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no data to plot")

var (
	scoreColor    = color.RGBA{R: 70, G: 110, B: 180, A: 255}
	selectedColor = color.RGBA{R: 210, G: 60, B: 40, A: 255}
)

// PlotScores draws feature scores against feature index and marks the
// selected features.
//
// Parameters:
//   - scores: one score per feature in index order, as Selector.Scores returns.
//   - selected: indices to highlight; may be empty.
//   - title: chart title, typically the selection method.
//   - path: output file.
func PlotScores(scores []selection.Score, selected selection.Indices, title, path string) error {
	if len(scores) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "feature index"
	p.Y.Label.Text = "score"

	pts := make(plotter.XYs, len(scores))
	for i, s := range scores {
		pts[i] = plotter.XY{X: float64(s.Index), Y: s.Value}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to build score line: %w", err)
	}
	line.LineStyle.Color = scoreColor
	line.LineStyle.Width = vg.Points(1)
	p.Add(line)

	if len(selected) > 0 {
		byIndex := make(map[int]float64, len(scores))
		for _, s := range scores {
			byIndex[s.Index] = s.Value
		}
		marks := make(plotter.XYs, 0, len(selected))
		for _, idx := range selected {
			if v, ok := byIndex[idx]; ok {
				marks = append(marks, plotter.XY{X: float64(idx), Y: v})
			}
		}
		if len(marks) > 0 {
			s, err := plotter.NewScatter(marks)
			if err != nil {
				return fmt.Errorf("failed to build selection marks: %w", err)
			}
			s.GlyphStyle.Color = selectedColor
			s.GlyphStyle.Radius = vg.Points(2)
			p.Add(s)
			p.Legend.Add("selected", s)
		}
	}

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save chart: %w", err)
	}
	return nil
}

// PlotClassAccuracy draws one bar per class with its recall in percent.
// name renders labels on the x axis; nil prints the numeric label.
func PlotClassAccuracy(r *eval.Report, name func(uint8) string, path string) error {
	if r == nil || r.NumClasses == 0 || r.Total == 0 {
		return ErrNoData
	}

	values := make(plotter.Values, r.NumClasses)
	labels := make([]string, r.NumClasses)
	for c := 0; c < r.NumClasses; c++ {
		acc, _ := r.ClassAccuracy(c)
		values[c] = 100 * acc
		if name != nil {
			labels[c] = name(uint8(c))
		} else {
			labels[c] = fmt.Sprint(c)
		}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Per-class accuracy (overall %.2f%%)", 100*r.Accuracy())
	p.Y.Label.Text = "accuracy %"
	p.Y.Min, p.Y.Max = 0, 100

	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return fmt.Errorf("failed to build bar chart: %w", err)
	}
	bars.Color = scoreColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(labels...)

	width := vg.Length(max(6, r.NumClasses/3)) * vg.Inch
	if err := p.Save(width, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save chart: %w", err)
	}
	return nil
}
