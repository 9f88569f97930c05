package imaging

import (
	"strings"

	"github.com/ironsheep/glyphrec/internal/hog"
)

// ASCII renders a glyph one character per pixel: '#' above 200, '+' above
// 150, '-' above 100, '.' above 50 and a space otherwise.
func ASCII(g hog.Image) string {
	var sb strings.Builder
	sb.Grow((g.Cols + 1) * g.Rows)
	for y := 0; y < g.Rows; y++ {
		for x := 0; x < g.Cols; x++ {
			sb.WriteByte(shade(g.Pixels[y*g.Cols+x]))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func shade(v byte) byte {
	switch {
	case v > 200:
		return '#'
	case v > 150:
		return '+'
	case v > 100:
		return '-'
	case v > 50:
		return '.'
	}
	return ' '
}
