// Package cascade refines low-confidence predictions of a general classifier
// with binary classifiers specialized on confusable class pairs.
//
// # Decision policy
//
// TwoStageClassify runs the general model first. A confident general call
// (confidence above Policy.HighConfidence) is returned as is. Otherwise, when
// the two best-ranked classes form a registered pair, the general confidence
// is below that pair's own threshold and the pair's model is trained, the
// binary model votes on the same feature vector. If it is more confident
// than Policy.SpecializedConfidence its label wins and is moved to rank 0;
// the general probability table is never modified.
//
// Exactly one model's label is emitted; the two stages are never blended.
//
// # Concurrency
//
// Registration and training are setup-time operations and must not run
// concurrently with classification. Once trained, a Manager is read-only and
// TwoStageClassify may be called from any number of goroutines.
package cascade
