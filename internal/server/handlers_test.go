package server

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/glyphrec/internal/hog"
	"github.com/ironsheep/glyphrec/internal/imaging"
	"github.com/ironsheep/glyphrec/internal/recognizer"
)

const side = 28

// barGlyph draws a two-pixel bar spanning columns (or rows) 4..23:
// class 0 horizontal, class 1 vertical.
func barGlyph(class, offset int) hog.Image {
	img := hog.Image{Rows: side, Cols: side, Pixels: make([]byte, side*side)}
	for i := 4; i < 24; i++ {
		for d := 0; d < 2; d++ {
			if class == 0 {
				img.Pixels[(offset+d)*side+i] = 255
			} else {
				img.Pixels[i*side+offset+d] = 255
			}
		}
	}
	return img
}

func trainedRecognizer(t *testing.T) *recognizer.Recognizer {
	t.Helper()

	opts := recognizer.DefaultOptions()
	opts.NumClasses = 2
	alphabet, err := recognizer.ParseAlphabet("-|", 2)
	require.NoError(t, err)
	opts.Alphabet = alphabet
	opts.NumBins = 8

	var images []hog.Image
	var labels []uint8
	for class := 0; class < 2; class++ {
		for offset := 9; offset < 18; offset++ {
			images = append(images, barGlyph(class, offset))
			labels = append(labels, uint8(class))
		}
	}

	r, err := recognizer.New(opts)
	require.NoError(t, err)
	_, err = r.Train(context.Background(), images, labels)
	require.NoError(t, err)
	return r
}

// writeDrawing saves a white canvas with a black bar as PNG and returns its
// path. horizontal selects the bar's orientation.
func writeDrawing(t *testing.T, horizontal bool) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 60, 60))
	for y := 0; y < 60; y++ {
		for x := 0; x < 60; x++ {
			ink := (horizontal && y >= 28 && y < 32 && x >= 10 && x < 50) ||
				(!horizontal && x >= 28 && x < 32 && y >= 10 && y < 50)
			if ink {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "glyph.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(trainedRecognizer(t), imaging.DefaultGlyphOptions())
}

// callTool runs a tools/call request and returns the response.
func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()

	params, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	require.NoError(t, err)
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	require.NotNil(t, resp)
	return resp
}

// toolText decodes the JSON text content of a successful tool response into v.
func toolText(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()

	require.Nil(t, resp.Error, "unexpected error: %+v", resp.Error)
	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	content, ok := result["content"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, content, 1)
	assert.Equal(t, "text", content[0]["type"])
	require.NoError(t, json.Unmarshal([]byte(content[0]["text"].(string)), v))
}

func TestGlyphRecognize(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		horizontal bool
		want       string
	}{
		{"horizontal bar", true, "-"},
		{"vertical bar", false, "|"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeDrawing(t, tt.horizontal)

			var got struct {
				Label        uint8   `json:"label"`
				Symbol       string  `json:"symbol"`
				Confidence   float64 `json:"confidence"`
				Stage        string  `json:"stage"`
				Alternatives []struct {
					Symbol      string  `json:"symbol"`
					Probability float64 `json:"probability"`
				} `json:"alternatives"`
			}
			toolText(t, callTool(t, s, "glyph_recognize", map[string]interface{}{"path": path, "top_n": 2}), &got)

			assert.Equal(t, tt.want, got.Symbol)
			assert.Equal(t, "general", got.Stage)
			assert.Greater(t, got.Confidence, 0.5)
			require.Len(t, got.Alternatives, 2)
			assert.Equal(t, tt.want, got.Alternatives[0].Symbol)
		})
	}
}

func TestGlyphRecognize_Region(t *testing.T) {
	s := newTestServer(t)
	path := writeDrawing(t, true)

	var got struct {
		Symbol string `json:"symbol"`
	}
	args := map[string]interface{}{
		"path":   path,
		"region": map[string]int{"x1": 5, "y1": 5, "x2": 55, "y2": 55},
	}
	toolText(t, callTool(t, s, "glyph_recognize", args), &got)
	assert.Equal(t, "-", got.Symbol)

	resp := callTool(t, s, "glyph_recognize", map[string]interface{}{
		"path":   path,
		"region": map[string]int{"x1": 0, "y1": 0, "x2": 100, "y2": 10},
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32000, resp.Error.Code)
	assert.Contains(t, resp.Error.Data, "outside image bounds")
}

func TestGlyphRecognize_OCRNeverHidesAnswer(t *testing.T) {
	s := newTestServer(t)
	path := writeDrawing(t, true)

	var got struct {
		Symbol   string          `json:"symbol"`
		OCR      json.RawMessage `json:"ocr"`
		OCRError string          `json:"ocr_error"`
	}
	toolText(t, callTool(t, s, "glyph_recognize", map[string]interface{}{"path": path, "ocr": true}), &got)

	assert.Equal(t, "-", got.Symbol)
	// Either Tesseract answered or the failure is reported alongside.
	assert.True(t, len(got.OCR) > 0 || got.OCRError != "")
}

func TestGlyphRecognize_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name    string
		args    map[string]interface{}
		wantErr string
	}{
		{"missing path", map[string]interface{}{}, "path is required"},
		{"missing file", map[string]interface{}{"path": filepath.Join(t.TempDir(), "none.png")}, "failed to open image"},
		{"bad invert", map[string]interface{}{"path": writeDrawing(t, true), "invert": "sometimes"}, "unknown invert mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, "glyph_recognize", tt.args)
			require.NotNil(t, resp.Error)
			assert.Equal(t, -32000, resp.Error.Code)
			assert.Equal(t, "Tool execution failed", resp.Error.Message)
			assert.Contains(t, resp.Error.Data, tt.wantErr)
		})
	}
}

func TestGlyphRecognize_Untrained(t *testing.T) {
	r, err := recognizer.New(recognizer.DefaultOptions())
	require.NoError(t, err)
	s := New(r, imaging.DefaultGlyphOptions())

	resp := callTool(t, s, "glyph_recognize", map[string]interface{}{"path": writeDrawing(t, true)})
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Data, recognizer.ErrNotTrained.Error())
}

func TestGlyphFeatures(t *testing.T) {
	s := newTestServer(t)
	path := writeDrawing(t, false)

	var got featureSummary
	toolText(t, callTool(t, s, "glyph_features", map[string]interface{}{"path": path, "include_values": true}), &got)

	want := hog.DefaultParams().NumFeatures(side, side)
	assert.Equal(t, side, got.Rows)
	assert.Equal(t, side, got.Cols)
	assert.Equal(t, want, got.RawFeatures)
	assert.Equal(t, want, got.Features)
	assert.Len(t, got.Values, want)
	assert.Greater(t, got.Norm, 0.0)
	assert.GreaterOrEqual(t, got.Min, 0.0)
	assert.LessOrEqual(t, got.Max, 1.0)
	assert.Greater(t, got.NonZero, 0)

	toolText(t, callTool(t, s, "glyph_features", map[string]interface{}{"path": path}), &got)
	assert.Empty(t, got.Values)
}

func TestGlyphPreview(t *testing.T) {
	s := newTestServer(t)
	path := writeDrawing(t, true)

	var got previewResult
	toolText(t, callTool(t, s, "glyph_preview", map[string]interface{}{"path": path, "png": true, "scale": 2}), &got)

	lines := strings.Split(strings.TrimSuffix(got.ASCII, "\n"), "\n")
	require.Len(t, lines, side)
	assert.Equal(t, strings.Repeat(" ", side), lines[0], "margin rows stay blank")
	assert.Contains(t, got.ASCII, "#")

	require.NotNil(t, got.Image)
	assert.Equal(t, 2*side, got.Image.Width)
	assert.Equal(t, "image/png", got.Image.MimeType)
	assert.NotEmpty(t, got.Image.ImageBase64)
}

func TestModelInfo(t *testing.T) {
	s := newTestServer(t)

	var got struct {
		Trained    bool   `json:"trained"`
		NumClasses int    `json:"num_classes"`
		GlyphRows  int    `json:"glyph_rows"`
		Alphabet   string `json:"alphabet"`
		Training   struct {
			Samples int `json:"samples"`
		} `json:"training"`
	}
	toolText(t, callTool(t, s, "model_info", map[string]interface{}{}), &got)

	assert.True(t, got.Trained)
	assert.Equal(t, 2, got.NumClasses)
	assert.Equal(t, side, got.GlyphRows)
	assert.Equal(t, "-|", got.Alphabet)
	assert.Equal(t, 18, got.Training.Samples)
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 7, Method: "tools/call", Params: json.RawMessage(`[1,2]`)})

	require.NotNil(t, resp.Error)
	assert.Equal(t, -32602, resp.Error.Code)
	assert.Equal(t, 7, resp.ID)
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s := newTestServer(t)
	resp := callTool(t, s, "image_load", map[string]interface{}{})

	require.NotNil(t, resp.Error)
	assert.Equal(t, -32000, resp.Error.Code)
	assert.Contains(t, resp.Error.Data, "unknown tool: image_load")
}

func TestCacheReuse(t *testing.T) {
	s := newTestServer(t)
	path := writeDrawing(t, true)

	callTool(t, s, "glyph_preview", map[string]interface{}{"path": path})
	callTool(t, s, "glyph_recognize", map[string]interface{}{"path": path})
	assert.Equal(t, 1, s.cache.Len())
}
