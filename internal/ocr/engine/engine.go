package engine

import (
	"fmt"

	"panel-filter/internal/ocr"
)

// Options configures engine construction.
type Options struct {
	Languages   []string
	UseGPU      bool
	OllamaURL   string
	OllamaModel string
}

// New builds the named OCR engine. It is called once per process.
func New(engineType string, opts Options) (ocr.Engine, error) {
	var e ocr.Engine
	var err error

	switch engineType {
	case "ollama":
		e = NewOllamaEngine(opts.OllamaURL, opts.OllamaModel, opts.Languages, opts.UseGPU)
	case "tesseract", "gosseract", "":
		e, err = NewTesseractEngine(opts.Languages)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown engine type: %s", engineType)
	}

	return e, nil
}
