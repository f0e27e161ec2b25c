package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strings"

	"panel-filter/internal/logger"
	"panel-filter/internal/ocr"
)

type OllamaEngine struct {
	baseURL   string
	model     string
	languages []string
	useGPU    bool
	client    *http.Client
}

type OllamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type OllamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaDetections struct {
	Detections []struct {
		Box        [][2]float64 `json:"box"`
		Text       string       `json:"text"`
		Confidence float64      `json:"confidence"`
	} `json:"detections"`
}

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llama3.2-vision"
)

const promptTemplate = `
You are an OCR helper.
Find every piece of visible text in the image (speech bubbles, captions, signs, sound effects).
Expected languages: %s.

Return **only** a JSON object with this exact schema:

{
  "detections": [
    {"box": [[x1,y1],[x2,y2],[x3,y3],[x4,y4]], "text": "<text>", "confidence": <0..1>}
  ]
}

* Corners are pixel coordinates in the order top-left, top-right, bottom-right, bottom-left.
* If there is no text, return {"detections": []}.
* Do not add any other text, explanations, or formatting.
`

func NewOllamaEngine(baseURL, model string, languages []string, useGPU bool) *OllamaEngine {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}

	return &OllamaEngine{
		baseURL:   strings.TrimRight(baseURL, "/"),
		model:     model,
		languages: languages,
		useGPU:    useGPU,
		client:    &http.Client{},
	}
}

func (o *OllamaEngine) Recognize(ctx context.Context, img *image.Gray) ([]ocr.Detection, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	request := OllamaRequest{
		Model:  o.model,
		Prompt: fmt.Sprintf(promptTemplate, strings.Join(o.languages, ", ")),
		Images: []string{base64.StdEncoding.EncodeToString(buf.Bytes())},
		Stream: false,
		Format: "json",
	}
	if !o.useGPU {
		request.Options = map[string]any{"num_gpu": 0}
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama request failed with status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var ollamaResp OllamaResponse
	if err := json.Unmarshal(body, &ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	// format=json normally yields a bare object; chatty models fall back to extraction
	if json.Valid([]byte(ollamaResp.Response)) && strings.HasPrefix(strings.TrimSpace(ollamaResp.Response), "{") {
		return parseDetections(json.RawMessage(ollamaResp.Response))
	}

	jsonObj, err := extractJSON(ollamaResp.Response)
	if err != nil {
		return nil, fmt.Errorf("failed to extract JSON from response: %w", err)
	}

	return parseDetections(jsonObj)
}

func (o *OllamaEngine) Close() error {
	return nil
}

func parseDetections(raw json.RawMessage) ([]ocr.Detection, error) {
	var parsed ollamaDetections
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decoding detections: %w", err)
	}

	detections := make([]ocr.Detection, 0, len(parsed.Detections))
	for i, d := range parsed.Detections {
		if len(d.Box) != 4 {
			logger.DebugLog("[ollama]: dropping detection %d with %d corners", i, len(d.Box))
			continue
		}
		var quad ocr.Quad
		for j, p := range d.Box {
			quad[j] = ocr.Point{X: p[0], Y: p[1]}
		}
		detections = append(detections, ocr.Detection{
			Region:     quad,
			Text:       d.Text,
			Confidence: min(max(d.Confidence, 0), 1),
		})
	}
	return detections, nil
}

func extractJSON(input string) (json.RawMessage, error) {
	logger.DebugLog("[ollama]: extracting JSON from input: %s", input)
	text := strings.TrimSpace(input)

	// some models wrap their whole answer in a JSON string literal
	var unquoted string
	if strings.HasPrefix(text, `"`) && json.Unmarshal([]byte(text), &unquoted) == nil {
		text = unquoted
	}

	start := strings.IndexByte(text, '{')
	if start == -1 {
		return nil, fmt.Errorf("no JSON found in text")
	}

	// Track brace depth outside string literals to find the matching closing brace
	braceCount := 0
	end := -1
	inString, escaped := false, false

matchingBrace:
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			braceCount++
		case c == '}':
			braceCount--
			if braceCount == 0 {
				end = i + 1
				break matchingBrace
			}
		}
	}

	if end == -1 {
		return nil, fmt.Errorf("no matching closing brace found")
	}

	jsonStr := text[start:end]

	var temp any
	if err := json.Unmarshal([]byte(jsonStr), &temp); err != nil {
		return nil, fmt.Errorf("extracted text is not valid JSON: %w", err)
	}

	return json.RawMessage(jsonStr), nil
}
