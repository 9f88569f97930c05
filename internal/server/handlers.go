package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/glyphrec/internal/hog"
	"github.com/ironsheep/glyphrec/internal/imaging"
	"github.com/ironsheep/glyphrec/internal/ocr"
	"github.com/ironsheep/glyphrec/internal/recognizer"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "glyph_recognize").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.Warn().Err(err).Str("tool", params.Name).Msg("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "glyph_recognize":
		return s.handleGlyphRecognize(args)
	case "glyph_features":
		return s.handleGlyphFeatures(args)
	case "glyph_preview":
		return s.handleGlyphPreview(args)
	case "model_info":
		return s.handleModelInfo()
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
// An empty data string is omitted.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	resp := &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
		},
	}
	if data != "" {
		resp.Error.Data = data
	}
	return resp
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// glyphArgs are the arguments shared by every tool that reads an image.
type glyphArgs struct {
	Path   string          `json:"path"`
	Region *imaging.Region `json:"region"`
	Invert string          `json:"invert"`
}

// loadGlyph reads a.Path through the cache and normalizes it with the
// server's framing.
func (s *Server) loadGlyph(a glyphArgs) (hog.Image, error) {
	if a.Path == "" {
		return hog.Image{}, errors.New("path is required")
	}
	opts := s.glyph
	opts.Region = a.Region
	if a.Invert != "" {
		mode, err := imaging.ParseInvertMode(a.Invert)
		if err != nil {
			return hog.Image{}, err
		}
		opts.Invert = mode
	}
	return s.cache.LoadGlyph(a.Path, opts)
}

type glyphRecognizeArgs struct {
	glyphArgs
	TopN int  `json:"top_n"`
	OCR  bool `json:"ocr"`
}

// recognizeResult is the glyph_recognize payload. OCR fields are present
// only when requested.
type recognizeResult struct {
	*recognizer.Result
	OCR      *ocr.Reading `json:"ocr,omitempty"`
	OCRError string       `json:"ocr_error,omitempty"`
	Agrees   *bool        `json:"ocr_agrees,omitempty"`
}

func (s *Server) handleGlyphRecognize(args json.RawMessage) (interface{}, error) {
	var a glyphRecognizeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.TopN <= 0 {
		a.TopN = 3
	}

	glyph, err := s.loadGlyph(a.glyphArgs)
	if err != nil {
		return nil, err
	}
	res, err := s.rec.Recognize(glyph, a.TopN)
	if err != nil {
		return nil, err
	}
	out := recognizeResult{Result: res}

	if a.OCR {
		reading, err := ocr.ReadGlyph(imaging.ToImage(glyph), s.ocr)
		if err != nil {
			// A missing Tesseract install must not hide the model's answer.
			out.OCRError = err.Error()
		} else {
			out.OCR = reading
			agrees := reading.Text == res.Symbol
			out.Agrees = &agrees
		}
	}

	s.log.Debug().Str("path", a.Path).Str("symbol", res.Symbol).
		Float64("confidence", res.Confidence).Stringer("stage", res.Stage).Msg("recognized")
	return out, nil
}

// featureSummary describes a descriptor without dumping every value.
type featureSummary struct {
	Rows        int       `json:"rows"`
	Cols        int       `json:"cols"`
	RawFeatures int       `json:"raw_features"`
	Features    int       `json:"features"`
	Norm        float64   `json:"l2_norm"`
	Mean        float64   `json:"mean"`
	Min         float64   `json:"min"`
	Max         float64   `json:"max"`
	NonZero     int       `json:"non_zero"`
	Values      []float64 `json:"values,omitempty"`
}

type glyphFeaturesArgs struct {
	glyphArgs
	IncludeValues bool `json:"include_values"`
}

func (s *Server) handleGlyphFeatures(args json.RawMessage) (interface{}, error) {
	var a glyphFeaturesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	glyph, err := s.loadGlyph(a.glyphArgs)
	if err != nil {
		return nil, err
	}
	features, err := s.rec.Features(glyph)
	if err != nil {
		return nil, err
	}

	sum := featureSummary{
		Rows:        glyph.Rows,
		Cols:        glyph.Cols,
		RawFeatures: s.rec.Info().Summary.RawFeatures,
		Features:    len(features),
		Norm:        floats.Norm(features, 2),
		Mean:        stat.Mean(features, nil),
		Min:         floats.Min(features),
		Max:         floats.Max(features),
	}
	for _, v := range features {
		if v != 0 {
			sum.NonZero++
		}
	}
	if a.IncludeValues {
		sum.Values = features
	}
	return sum, nil
}

type glyphPreviewArgs struct {
	glyphArgs
	PNG   bool `json:"png"`
	Scale int  `json:"scale"`
}

type previewResult struct {
	Rows  int                   `json:"rows"`
	Cols  int                   `json:"cols"`
	ASCII string                `json:"ascii"`
	Image *imaging.EncodedImage `json:"image,omitempty"`
}

func (s *Server) handleGlyphPreview(args json.RawMessage) (interface{}, error) {
	var a glyphPreviewArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale <= 0 {
		a.Scale = 8
	}

	glyph, err := s.loadGlyph(a.glyphArgs)
	if err != nil {
		return nil, err
	}
	out := previewResult{Rows: glyph.Rows, Cols: glyph.Cols, ASCII: imaging.ASCII(glyph)}
	if a.PNG {
		if out.Image, err = imaging.EncodePNG(imaging.ToImage(glyph), a.Scale); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type modelInfoResult struct {
	recognizer.Info
	Alphabet    string `json:"alphabet"`
	CachedFiles int    `json:"cached_images"`
	OCRVersion  string `json:"ocr_version,omitempty"`
}

func (s *Server) handleModelInfo() (interface{}, error) {
	info := s.rec.Info()
	out := modelInfoResult{
		Info:        info,
		Alphabet:    s.rec.Alphabet().Symbols(info.NumClasses),
		CachedFiles: s.cache.Len(),
	}
	if v, err := ocr.Version(); err == nil {
		out.OCRVersion = v
	}
	return out, nil
}
