package filter

import (
	"strings"
	"unicode/utf8"

	"panel-filter/internal/ocr"
)

// Evaluate applies c to detections. A detection is valid when its confidence
// and trimmed rune count both reach the thresholds, inclusively. The snippet
// joins the valid texts in engine order and is empty unless text was found.
func Evaluate(detections []ocr.Detection, c Criteria) (bool, string) {
	if len(detections) == 0 {
		return false, ""
	}

	var valid []string
	for _, d := range detections {
		text := strings.TrimSpace(d.Text)
		if d.Confidence >= c.MinConfidence && utf8.RuneCountInString(text) >= c.MinCharsPerBox {
			valid = append(valid, text)
		}
	}

	if len(valid) >= c.MinValidBoxes {
		return true, strings.Join(valid, " ")
	}
	return false, ""
}
