package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/ironsheep/glyphrec/internal/imaging"
	"github.com/ironsheep/glyphrec/internal/ocr"
	"github.com/ironsheep/glyphrec/internal/recognizer"
)

// protocolVersion is the MCP revision the server speaks.
const protocolVersion = "2024-11-05"

// Server handles MCP protocol communication
type Server struct {
	cache   *imaging.ImageCache
	rec     *recognizer.Recognizer
	glyph   imaging.GlyphOptions
	ocr     ocr.Options
	log     zerolog.Logger
	version string
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the diagnostic logger. It must not write to the protocol
// stream.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithVersion sets the version reported in serverInfo.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithOCR sets the Tesseract options used by glyph_recognize.
func WithOCR(o ocr.Options) Option {
	return func(s *Server) { s.ocr = o }
}

// New creates a server answering with rec.
//
// glyph is the default framing for tool inputs. When rec is trained its
// glyph size overrides glyph.Rows and glyph.Cols so that every normalized
// input matches the training data.
func New(rec *recognizer.Recognizer, glyph imaging.GlyphOptions, opts ...Option) *Server {
	s := &Server{
		cache:   imaging.NewImageCache(),
		rec:     rec,
		glyph:   glyph,
		log:     zerolog.Nop(),
		version: "dev",
	}
	for _, o := range opts {
		o(s)
	}
	if rec != nil && rec.Trained() {
		info := rec.Info()
		s.glyph.Rows, s.glyph.Cols = info.GlyphRows, info.GlyphCols
	}
	if s.ocr.Whitelist == "" && rec != nil {
		s.ocr.Whitelist = rec.Alphabet().Symbols(rec.Info().NumClasses)
	}
	return s
}

// Run serves newline-delimited JSON-RPC requests from in, writing responses
// to out, until in is exhausted or ctx is cancelled. Cancellation is noticed
// between requests.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	encoder := json.NewEncoder(out)

	s.log.Info().Str("protocol", protocolVersion).Msg("serving MCP over stdio")
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.Warn().Err(err).Msg("failed to parse request")
			continue
		}

		s.log.Debug().Str("method", req.Method).Interface("id", req.ID).Msg("request")
		resp := s.handleRequest(&req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.log.Error().Err(err).Msg("failed to encode response")
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return s.errorResponse(req.ID, -32601, fmt.Sprintf("Method not found: %s", req.Method), "")
	}
}

func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "glyphrec",
				"version": s.version,
			},
		},
	}
}
