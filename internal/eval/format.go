package eval

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
)

// WriteText prints the report as aligned text: the summary line, per-class
// accuracy and the top confusions. name renders a label; nil prints the
// numeric label.
func (r *Report) WriteText(w io.Writer, name func(uint8) string, topConfusions int) error {
	if name == nil {
		name = func(l uint8) string { return strconv.Itoa(int(l)) }
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Accuracy:\t%.2f%% (%d/%d)\n", 100*r.Accuracy(), r.Correct, r.Total)
	if r.Overrides > 0 {
		fmt.Fprintf(tw, "Cascade overrides:\t%d\n", r.Overrides)
	}
	if r.Skipped > 0 {
		fmt.Fprintf(tw, "Skipped (label out of range):\t%d\n", r.Skipped)
	}

	fmt.Fprintln(tw, "\nClass\tAccuracy\tSamples")
	for c := 0; c < r.NumClasses; c++ {
		acc, ok := r.ClassAccuracy(c)
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%.2f%%\t%d\n", name(uint8(c)), 100*acc, r.ClassSupport(c))
	}

	if top := r.TopConfusions(topConfusions); len(top) > 0 {
		fmt.Fprintln(tw, "\nActual\tPredicted\tCount")
		for _, c := range top {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", name(c.Actual), name(c.Predicted), c.Count)
		}
	}
	return tw.Flush()
}
