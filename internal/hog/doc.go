// Package hog extracts Histogram-of-Oriented-Gradients descriptors from small
// grayscale glyph images.
//
// # Algorithm
//
// The image is split into non-overlapping CellSize x CellSize cells. For every
// pixel:
//
//  1. Gradients are central differences with edge-clamped neighbours:
//     dx = I(y, x+1) - I(y, x-1), dy = I(y+1, x) - I(y-1, x)
//  2. magnitude = sqrt(dx² + dy²), orientation = atan2(dy, dx) folded into
//     [0, 180) degrees, so a gradient and its negation share a bin. A zero
//     gradient has orientation 0.
//  3. The magnitude is added to bin floor(orientation * NumBins / 180),
//     clamped to NumBins-1.
//
// Each cell histogram is L2-normalised as h / sqrt(Σh² + 1e-6) and the cells
// are concatenated in row-major cell order, giving
// (Rows/CellSize) * (Cols/CellSize) * NumBins values in [0, 1]. Pixels beyond
// the last complete cell row or column are ignored.
//
// # Thread Safety
//
// Extract is a pure function of its inputs. ExtractBatch fans images out over
// a worker pool; each worker writes only its own row of the result.
package hog
