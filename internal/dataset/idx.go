package dataset

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"
)

// IDX magic numbers for unsigned-byte image and label files.
const (
	imageMagic = 2051
	labelMagic = 2049
)

// MaxIDXPixels bounds the pixel buffer DecodeIDX allocates from a header so
// a corrupt count or glyph size cannot trigger a huge allocation.
const MaxIDXPixels = 1 << 30

// UnmappedLabel replaces labels smaller than LoadOptions.LabelOffset. A
// positive offset maps every other label into 0..254, so it never collides
// with a real class.
const UnmappedLabel = 255

// ErrInvalidIDX is returned for files that are not IDX image/label files or
// whose headers disagree.
var ErrInvalidIDX = errors.New("invalid IDX file")

// Images is a decoded IDX image/label pair: Count glyphs of Rows x Cols
// unsigned bytes stored back to back, with one label each.
type Images struct {
	Count  int
	Rows   int
	Cols   int
	Pixels []byte
	Labels []uint8

	// Unmapped counts labels below the offset, now set to UnmappedLabel.
	Unmapped int
}

// LoadOptions adjusts a freshly decoded dataset.
type LoadOptions struct {
	// LabelOffset is subtracted from every label. EMNIST letters store
	// A..Z as 1..26, so an offset of 1 makes them 0-based. Labels smaller
	// than the offset become UnmappedLabel and are counted in
	// Images.Unmapped; training and evaluation skip them as out of range.
	LabelOffset int

	// Transpose swaps rows and columns of each glyph (EMNIST stores images
	// transposed relative to MNIST).
	Transpose bool
}

// Glyph returns the pixels of glyph i. The slice aliases the dataset buffer.
func (im *Images) Glyph(i int) []byte {
	size := im.Rows * im.Cols
	return im.Pixels[i*size : (i+1)*size]
}

// LoadIDX reads an IDX3 image file and its IDX1 label file.
//
// Both headers are big-endian. The image and label counts must agree.
//
// # Errors
//
//   - ErrInvalidIDX when a magic number is wrong, the counts differ or
//     the header describes more than MaxIDXPixels pixels
//   - wrapped I/O errors for missing or truncated files
func LoadIDX(imagesPath, labelsPath string, opts LoadOptions) (*Images, error) {
	imgFile, err := os.Open(imagesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer imgFile.Close()

	lblFile, err := os.Open(labelsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open label file: %w", err)
	}
	defer lblFile.Close()

	return DecodeIDX(bufio.NewReader(imgFile), bufio.NewReader(lblFile), opts)
}

// DecodeIDX is LoadIDX over arbitrary readers.
func DecodeIDX(images, labels io.Reader, opts LoadOptions) (*Images, error) {
	var imgHdr [4]uint32
	if err := binary.Read(images, binary.BigEndian, &imgHdr); err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}
	var lblHdr [2]uint32
	if err := binary.Read(labels, binary.BigEndian, &lblHdr); err != nil {
		return nil, fmt.Errorf("failed to read label header: %w", err)
	}

	if imgHdr[0] != imageMagic || lblHdr[0] != labelMagic {
		return nil, fmt.Errorf("%w: magic %d/%d", ErrInvalidIDX, imgHdr[0], lblHdr[0])
	}
	if imgHdr[1] != lblHdr[1] {
		return nil, fmt.Errorf("%w: %d images but %d labels", ErrInvalidIDX, imgHdr[1], lblHdr[1])
	}

	count, rows, cols := uint64(imgHdr[1]), uint64(imgHdr[2]), uint64(imgHdr[3])
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("%w: %dx%d glyphs", ErrInvalidIDX, rows, cols)
	}
	// count*rows*cols can overflow uint64, rows*cols cannot.
	if glyph := rows * cols; glyph > MaxIDXPixels || count > MaxIDXPixels/glyph {
		return nil, fmt.Errorf("%w: %d glyphs of %dx%d exceed %d pixels",
			ErrInvalidIDX, count, rows, cols, MaxIDXPixels)
	}

	ds := &Images{Count: int(count), Rows: int(rows), Cols: int(cols)}

	ds.Pixels = make([]byte, ds.Count*ds.Rows*ds.Cols)
	if _, err := io.ReadFull(images, ds.Pixels); err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	ds.Labels = make([]uint8, ds.Count)
	if _, err := io.ReadFull(labels, ds.Labels); err != nil {
		return nil, fmt.Errorf("failed to read label data: %w", err)
	}

	if opts.LabelOffset > 0 {
		for i, l := range ds.Labels {
			if int(l) < opts.LabelOffset {
				ds.Labels[i] = UnmappedLabel
				ds.Unmapped++
				continue
			}
			ds.Labels[i] = uint8(int(l) - opts.LabelOffset)
		}
	}
	if opts.Transpose {
		ds.transpose()
	}
	return ds, nil
}

// transpose flips every glyph about its main diagonal.
func (im *Images) transpose() {
	for i := 0; i < im.Count; i++ {
		glyph := im.Glyph(i)
		src := &image.Gray{Pix: glyph, Stride: im.Cols, Rect: image.Rect(0, 0, im.Cols, im.Rows)}
		dst := imaging.Transpose(src)
		for y := 0; y < im.Cols; y++ {
			for x := 0; x < im.Rows; x++ {
				glyph[y*im.Rows+x] = dst.Pix[y*dst.Stride+x*4]
			}
		}
	}
	im.Rows, im.Cols = im.Cols, im.Rows
}
