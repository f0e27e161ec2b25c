package config

import (
	"bytes"
	"fmt"
	"os"

	"panel-filter/internal/filter"
	imgutil "panel-filter/internal/image"

	"gopkg.in/yaml.v3"
)

type strategyFile struct {
	Preprocessing map[string]profileConfig  `yaml:"preprocessing"`
	Criteria      map[string]criteriaConfig `yaml:"criteria"`
	Strategies    []strategyConfig          `yaml:"strategies"`
}

type profileConfig struct {
	ScaleFactor    *float64 `yaml:"scale_factor"`
	BlurKernelSize int      `yaml:"blur_kernel_size"`
}

type criteriaConfig struct {
	MinConfidence  float64 `yaml:"min_confidence"`
	MinCharsPerBox int     `yaml:"min_chars_per_box"`
	MinValidBoxes  int     `yaml:"min_valid_boxes"`
}

type strategyConfig struct {
	Preprocessing string `yaml:"preprocessing"`
	Criteria      string `yaml:"criteria"`
}

var defaultProfiles = map[string]imgutil.Profile{
	"preprocess_aggressive_scale_for_small_text": {ScaleFactor: 2.5},
	"preprocess_moderate_scale_sharp":            {ScaleFactor: 2.0},
	"preprocess_default_no_change":               {ScaleFactor: 1.0},
}

var defaultCriteria = map[string]filter.Criteria{
	"ocr_more_sensitive_v3":               {MinConfidence: 0.38, MinCharsPerBox: 1, MinValidBoxes: 1},
	"ocr_balanced_recall_v3":              {MinConfidence: 0.48, MinCharsPerBox: 2, MinValidBoxes: 1},
	"ocr_cautious_but_more_permissive_v3": {MinConfidence: 0.60, MinCharsPerBox: 2, MinValidBoxes: 1},
}

// Ordered from most sensitive to most conservative.
var defaultStrategies = []filter.Strategy{
	{Preprocessing: "preprocess_aggressive_scale_for_small_text", Criteria: "ocr_more_sensitive_v3"},
	{Preprocessing: "preprocess_moderate_scale_sharp", Criteria: "ocr_balanced_recall_v3"},
	{Preprocessing: "preprocess_default_no_change", Criteria: "ocr_more_sensitive_v3"},
	{Preprocessing: "preprocess_moderate_scale_sharp", Criteria: "ocr_cautious_but_more_permissive_v3"},
}

// DefaultStrategies returns the built-in registry and cascade.
func DefaultStrategies() (*filter.Registry, []filter.Strategy) {
	return filter.NewRegistry(defaultProfiles, defaultCriteria), append([]filter.Strategy(nil), defaultStrategies...)
}

// LoadStrategies reads a YAML strategy file. An empty path yields the
// defaults. Strategies naming unknown profiles are accepted here and skipped
// at classification time.
func LoadStrategies(path string) (*filter.Registry, []filter.Strategy, error) {
	if path == "" {
		registry, strategies := DefaultStrategies()
		return registry, strategies, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading strategy file: %w", err)
	}
	return parseStrategies(data)
}

func parseStrategies(data []byte) (*filter.Registry, []filter.Strategy, error) {
	var file strategyFile

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&file); err != nil {
		return nil, nil, fmt.Errorf("parsing strategy file: %w", err)
	}

	profiles := make(map[string]imgutil.Profile, len(file.Preprocessing))
	for name, p := range file.Preprocessing {
		scale := 1.0
		if p.ScaleFactor != nil {
			scale = *p.ScaleFactor
		}
		if scale <= 0 {
			return nil, nil, fmt.Errorf("preprocessing %q: scale_factor must be positive, got %v", name, scale)
		}
		if p.BlurKernelSize < 0 {
			return nil, nil, fmt.Errorf("preprocessing %q: blur_kernel_size must be >= 0, got %d", name, p.BlurKernelSize)
		}
		profiles[name] = imgutil.Profile{ScaleFactor: scale, BlurKernelSize: p.BlurKernelSize}
	}

	criteria := make(map[string]filter.Criteria, len(file.Criteria))
	for name, c := range file.Criteria {
		if c.MinConfidence < 0 || c.MinConfidence > 1 {
			return nil, nil, fmt.Errorf("criteria %q: min_confidence must be between 0 and 1, got %v", name, c.MinConfidence)
		}
		if c.MinCharsPerBox < 1 || c.MinValidBoxes < 1 {
			return nil, nil, fmt.Errorf("criteria %q: min_chars_per_box and min_valid_boxes must be positive", name)
		}
		criteria[name] = filter.Criteria{
			MinConfidence:  c.MinConfidence,
			MinCharsPerBox: c.MinCharsPerBox,
			MinValidBoxes:  c.MinValidBoxes,
		}
	}

	if len(file.Strategies) == 0 {
		return nil, nil, fmt.Errorf("strategy file defines no strategies")
	}
	strategies := make([]filter.Strategy, 0, len(file.Strategies))
	for _, s := range file.Strategies {
		strategies = append(strategies, filter.Strategy{Preprocessing: s.Preprocessing, Criteria: s.Criteria})
	}

	return filter.NewRegistry(profiles, criteria), strategies, nil
}
