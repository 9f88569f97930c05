// Package eval measures a trained classifier on a labeled feature set.
//
// Evaluate classifies every sample on a bounded worker pool and aggregates
// the outcomes into a Report: overall accuracy, a confusion matrix indexed
// [actual][predicted], per-class accuracy, the most frequent confusions and
// how often a cascade overrode the general model.
//
// SuggestPairs folds the confusion matrix over both directions to propose
// the class pairs most worth a specialized classifier.
package eval
