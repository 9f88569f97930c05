// Package bayes implements a discretized Naive Bayes classifier over
// real-valued descriptors in [0, 1].
//
// Each feature value is clamped to [0, 1] and dropped into one of NumBins
// equal-width bins. Training counts, per class, how often each feature lands
// in each bin and turns the counts into Laplace-smoothed likelihoods:
//
//	P(bin b | class c, feature f) = (count[c][f][b] + alpha) / (count[c] + alpha*NumBins)
//
// Inference sums log-likelihoods with the log prior and converts the scores
// into a posterior with a max-subtracted softmax.
//
// # Numeric Policy
//
// Priors and likelihoods are floored at 1e-10 before taking the log. This
// covers classes that had no training samples (prior 0) and models trained
// with alpha = 0; such classes stay in the ranking with a negligible
// probability instead of producing -Inf or NaN.
//
// # Thread Safety
//
// A trained Model is read-only during prediction and may be shared by any
// number of goroutines. Train must not run concurrently with itself or with
// prediction on the same Model.
package bayes
