// Package recognizer wires the descriptor, selection, classifier and cascade
// packages into one train-then-recognize pipeline.
//
// Training runs, in order: HOG extraction over all glyphs, optional feature
// selection (or a preloaded index list), general Naive Bayes training, and
// training of the specialized pair classifiers, whose pairs come from
// configuration and, optionally, from the general model's own confusions on
// the training set.
//
// Recognition extracts the descriptor of one glyph, projects it onto the
// selected features and runs the two-stage cascade.
//
// A Recognizer must be trained before use and must not be retrained while
// other goroutines recognize with it; after Train returns it is read-only and
// safe for concurrent Recognize calls.
package recognizer
