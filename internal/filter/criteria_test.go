package filter

import (
	"testing"

	"panel-filter/internal/ocr"

	"github.com/stretchr/testify/assert"
)

func det(text string, conf float64) ocr.Detection {
	return ocr.Detection{Text: text, Confidence: conf}
}

func TestEvaluate(t *testing.T) {
	criteria := Criteria{MinConfidence: 0.5, MinCharsPerBox: 2, MinValidBoxes: 2}

	testCases := []struct {
		name       string
		detections []ocr.Detection
		found      bool
		snippet    string
	}{
		{
			name: "empty",
		},
		{
			name:       "inclusive boundaries",
			detections: []ocr.Detection{det("ab", 0.5), det("cd", 0.5)},
			found:      true,
			snippet:    "ab cd",
		},
		{
			name:       "one short of valid box count",
			detections: []ocr.Detection{det("ab", 0.9), det("cd", 0.49)},
		},
		{
			name:       "text too short after trim",
			detections: []ocr.Detection{det(" a ", 0.9), det("cd", 0.9)},
		},
		{
			name:       "snippet keeps engine order and trims",
			detections: []ocr.Detection{det(" zz ", 0.9), det("x", 0.9), det("aa\n", 0.7)},
			found:      true,
			snippet:    "zz aa",
		},
		{
			name:       "multibyte text counts runes",
			detections: []ocr.Detection{det("あい", 0.8), det("うえ", 0.8)},
			found:      true,
			snippet:    "あい うえ",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			found, snippet := Evaluate(tc.detections, criteria)

			assert.Equal(t, tc.found, found)
			assert.Equal(t, tc.snippet, snippet)
		})
	}
}

func TestEvaluate_SingleBoxBoundary(t *testing.T) {
	criteria := Criteria{MinConfidence: 0.6, MinCharsPerBox: 5, MinValidBoxes: 1}

	found, _ := Evaluate([]ocr.Detection{det("Hello", 0.6)}, criteria)
	assert.True(t, found, "exactly at both thresholds is valid")

	found, _ = Evaluate([]ocr.Detection{det("Hell", 0.6)}, criteria)
	assert.False(t, found, "one char short")

	found, _ = Evaluate([]ocr.Detection{det("Hello", 0.5999)}, criteria)
	assert.False(t, found, "confidence just below")
}
