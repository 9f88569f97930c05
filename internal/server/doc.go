// Package server implements the MCP (Model Context Protocol) server that
// exposes the glyph recognizer to MCP clients.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Diagnostics go to the zerolog logger passed with WithLogger, which must
// write to stderr or a file, never to the protocol stream.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - glyph_recognize: classify the symbol in an image, optionally
//     cross-checked with Tesseract
//   - glyph_features: summarize the HOG descriptor of an image
//   - glyph_preview: show the normalized glyph as ASCII art or PNG
//   - model_info: describe the trained model
//
// Every image tool accepts a path, an optional crop region and an invert
// mode. Inputs are normalized to the training glyph size before anything
// else, so the preview shows exactly what the model sees.
//
// # Model Lifetime
//
// The recognizer is trained once by the caller before New; the server only
// reads it, so concurrent tool calls would be safe even though the stdio
// loop serves one request at a time. Decoded images are cached by path for
// the lifetime of the process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// A failed OCR cross-check is not an error: the model's answer is returned
// with an ocr_error field instead.
//
// # Usage
//
//	rec, _ := recognizer.New(opts)
//	if _, err := rec.Train(ctx, glyphs, labels); err != nil {
//	    return err
//	}
//	srv := server.New(rec, imaging.DefaultGlyphOptions(), server.WithLogger(log))
//	return srv.Run(ctx, os.Stdin, os.Stdout)
package server
