// Package selection scores descriptor dimensions and keeps the most
// discriminative ones.
//
// # Methods
//
//   - Variance: unbiased sample variance, ignores labels.
//   - ChiSquare: Pearson chi-square of an 8-bin x class contingency table.
//   - MutualInformation: I(bin; class) over the same 8-bin discretization, in nats.
//   - Fisher: mean over all pairs of target classes of
//     (mean1-mean2)² / (var1+var2).
//
// Binning uses 8 equal-width bins spanning the feature's observed [min, max];
// a constant feature gets bin width 1 so every sample lands in bin 0.
// Degenerate statistics (empty cells, zero variance, absent classes) score 0,
// which the selector treats as uninformative.
//
// # Ordering
//
// Scores are ranked by value descending with the original feature index
// ascending on ties, so selection is deterministic and repeatable.
//
// # Performance
//
// Every method visits every sample for every feature. Selector spreads the
// features over a bounded worker pool; each worker writes only its own score.
package selection
