package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// glyphProperties are the input properties every image tool accepts.
func glyphProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Absolute path to a PNG, JPEG or GIF image containing one symbol",
		},
		"region": map[string]interface{}{
			"type":        "object",
			"description": "Optional crop applied before normalization; x2 and y2 are exclusive",
			"properties": map[string]interface{}{
				"x1": map[string]interface{}{"type": "integer"},
				"y1": map[string]interface{}{"type": "integer"},
				"x2": map[string]interface{}{"type": "integer"},
				"y2": map[string]interface{}{"type": "integer"},
			},
			"required": []string{"x1", "y1", "x2", "y2"},
		},
		"invert": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"auto", "always", "never"},
			"description": "Polarity correction. auto inverts dark-on-light drawings (default: server setting)",
		},
	}
}

// withProperties extends the shared glyph properties.
func withProperties(extra map[string]interface{}) map[string]interface{} {
	props := glyphProperties()
	for k, v := range extra {
		props[k] = v
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name: "glyph_recognize",
			Description: "Recognize the single handwritten or printed symbol in an image. " +
				"Returns the label, its confidence, whether a specialized pair classifier overrode the general model, " +
				"and the ranked alternatives. Set ocr to cross-check with Tesseract.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"top_n": map[string]interface{}{
						"type":        "integer",
						"description": "Number of ranked alternatives to return (default: 3)",
					},
					"ocr": map[string]interface{}{
						"type":        "boolean",
						"description": "Also read the glyph with Tesseract (default: false)",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "glyph_features",
			Description: "Summarize the HOG descriptor the model sees for an image: length, L2 norm and value range.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"include_values": map[string]interface{}{
						"type":        "boolean",
						"description": "Include every descriptor value (default: false)",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name: "glyph_preview",
			Description: "Show the normalized glyph exactly as the recognizer receives it, as ASCII art " +
				"and optionally as an enlarged base64 PNG. Use it to check cropping and polarity.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"png": map[string]interface{}{
						"type":        "boolean",
						"description": "Include a base64 PNG rendering (default: false)",
					},
					"scale": map[string]interface{}{
						"type":        "integer",
						"description": "PNG enlargement factor (default: 8)",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "model_info",
			Description: "Report the trained model: classes, alphabet, HOG parameters, selected features, cascade pairs and policy.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
