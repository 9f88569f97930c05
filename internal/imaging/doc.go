// Package imaging turns arbitrary raster images into recognizer-ready glyphs.
//
// The recognizer is trained on MNIST-style glyphs: a light symbol on a dark
// background, scaled to fit a fixed box and centered. ToGlyph reproduces that
// framing for any decoded image:
//
//  1. optional crop to a region of interest
//  2. grayscale conversion
//  3. inversion when the symbol is dark on light (InvertAuto decides from
//     the border brightness)
//  4. aspect-preserving fit into the box minus a margin, Lanczos filtered
//  5. centering on a black canvas of the target size
//
// All geometry is done with github.com/disintegration/imaging.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner. For
// regions, (X1,Y1) is inclusive and (X2,Y2) is exclusive.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. All other functions are stateless.
package imaging
