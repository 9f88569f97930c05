package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/glyphrec/internal/imaging"
	"github.com/ironsheep/glyphrec/internal/ocr"
	"github.com/ironsheep/glyphrec/internal/recognizer"
)

func TestNew(t *testing.T) {
	s := newTestServer(t)
	require.NotNil(t, s.cache)
	assert.Equal(t, "-|", s.ocr.Whitelist, "whitelist defaults to the alphabet")
	assert.Equal(t, side, s.glyph.Rows)
	assert.Equal(t, side, s.glyph.Cols)
}

func TestNew_GlyphSizeFollowsTraining(t *testing.T) {
	glyph := imaging.DefaultGlyphOptions()
	glyph.Rows, glyph.Cols = 64, 48
	s := New(trainedRecognizer(t), glyph, WithOCR(ocr.Options{Language: "deu", Whitelist: "x"}))

	assert.Equal(t, side, s.glyph.Rows)
	assert.Equal(t, side, s.glyph.Cols)
	assert.Equal(t, glyph.Margin, s.glyph.Margin)
	assert.Equal(t, "x", s.ocr.Whitelist)
}

func TestMCPRequest_Unmarshal(t *testing.T) {
	tests := []struct {
		name       string
		json       string
		wantID     interface{}
		wantMethod string
	}{
		{"string id", `{"jsonrpc":"2.0","id":"test-1","method":"tools/list"}`, "test-1", "tools/list"},
		// JSON numbers decode as float64
		{"number id", `{"jsonrpc":"2.0","id":42,"method":"ping"}`, float64(42), "ping"},
		{"null id", `{"jsonrpc":"2.0","id":null,"method":"initialize"}`, nil, "initialize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req MCPRequest
			require.NoError(t, json.Unmarshal([]byte(tt.json), &req))
			assert.Equal(t, tt.wantID, req.ID)
			assert.Equal(t, tt.wantMethod, req.Method)
			assert.Equal(t, "2.0", req.JSONRPC)
		})
	}
}

func TestMCPResponse_OmitsEmptyFields(t *testing.T) {
	s := newTestServer(t)

	data, err := json.Marshal(s.errorResponse(3, -32601, "Method not found: x", ""))
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"result"`)
	assert.NotContains(t, string(data), `"data"`)

	data, err = json.Marshal(s.errorResponse(3, -32000, "Tool execution failed", "boom"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"data":"boom"`)
}

func TestHandleRequest_Initialize(t *testing.T) {
	s := New(trainedRecognizer(t), imaging.DefaultGlyphOptions(), WithVersion("1.2.3"))
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "initialize"})

	require.NotNil(t, resp)
	require.Nil(t, resp.Error)
	assert.Equal(t, 1, resp.ID)

	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "2024-11-05", result["protocolVersion"])
	info := result["serverInfo"].(map[string]interface{})
	assert.Equal(t, "glyphrec", info["name"])
	assert.Equal(t, "1.2.3", info["version"])
}

func TestHandleRequest_Routing(t *testing.T) {
	s := newTestServer(t)

	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: "ping-1", Method: "ping"})
	require.NotNil(t, resp)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "ping-1", resp.ID)

	assert.Nil(t, s.handleRequest(&MCPRequest{JSONRPC: "2.0", Method: "notifications/initialized"}))

	resp = s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 2, Method: "resources/list"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32601, resp.Error.Code)
	assert.Equal(t, "Method not found: resources/list", resp.Error.Message)
}

func TestRun(t *testing.T) {
	s := newTestServer(t)
	path := writeDrawing(t, true)

	call, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0", "id": 3, "method": "tools/call",
		"params": map[string]interface{}{"name": "glyph_recognize", "arguments": map[string]interface{}{"path": path}},
	})
	require.NoError(t, err)

	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`not json`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		string(call),
	}, "\n")

	var out, logs bytes.Buffer
	s.log = zerolog.New(&logs)
	require.NoError(t, s.Run(context.Background(), strings.NewReader(in), &out))

	var responses []MCPResponse
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var r MCPResponse
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		responses = append(responses, r)
	}
	require.Len(t, responses, 3, "notifications, blank and malformed lines get no reply")
	assert.Equal(t, float64(1), responses[0].ID)
	assert.Equal(t, float64(2), responses[1].ID)
	assert.Equal(t, float64(3), responses[2].ID)
	assert.Nil(t, responses[2].Error)
	assert.Contains(t, logs.String(), "failed to parse request")
}

func TestRun_Cancelled(t *testing.T) {
	r, err := recognizer.New(recognizer.DefaultOptions())
	require.NoError(t, err)
	s := New(r, imaging.DefaultGlyphOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err = s.Run(ctx, strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"), &out)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}
