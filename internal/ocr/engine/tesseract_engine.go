package engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"panel-filter/internal/ocr"

	"github.com/otiai10/gosseract/v2"
)

// tesseractLanguages maps short language codes to Tesseract traineddata names.
var tesseractLanguages = map[string]string{
	"ja": "jpn",
	"en": "eng",
	"ko": "kor",
	"zh": "chi_sim",
}

// TesseractEngine wraps a single long-lived gosseract client.
type TesseractEngine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

func NewTesseractEngine(languages []string) (*TesseractEngine, error) {
	client := gosseract.NewClient()

	if langs := tesseractLanguageNames(languages); len(langs) > 0 {
		if err := client.SetLanguage(langs...); err != nil {
			client.Close()
			return nil, fmt.Errorf("setting tesseract languages %v: %w", langs, err)
		}
	}
	if err := client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting page segmentation mode: %w", err)
	}

	return &TesseractEngine{client: client}, nil
}

// Recognize returns one detection per recognized word. Tesseract reports
// confidence in percent; it is normalized to [0,1].
func (t *TesseractEngine) Recognize(ctx context.Context, img *image.Gray) ([]ocr.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding image for tesseract: %w", err)
	}

	// a gosseract client holds the current image, calls must not interleave
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("failed to get boxes: %w", err)
	}

	detections := make([]ocr.Detection, 0, len(boxes))
	for _, box := range boxes {
		if strings.TrimSpace(box.Word) == "" {
			continue
		}
		detections = append(detections, ocr.Detection{
			Region:     ocr.QuadFromRect(box.Box),
			Text:       box.Word,
			Confidence: box.Confidence / 100.0,
		})
	}
	return detections, nil
}

func (t *TesseractEngine) Close() error {
	if t.client != nil {
		return t.client.Close()
	}
	return nil
}

func tesseractLanguageNames(languages []string) []string {
	names := make([]string, 0, len(languages))
	for _, lang := range languages {
		lang = strings.TrimSpace(lang)
		if lang == "" {
			continue
		}
		if name, ok := tesseractLanguages[lang]; ok {
			names = append(names, name)
			continue
		}
		names = append(names, lang)
	}
	return names
}
