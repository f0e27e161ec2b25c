// Package config loads run settings from the environment (optionally seeded
// from a .env file) and the strategy cascade from YAML.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	imgutil "panel-filter/internal/image"
)

const envPrefix = "PANEL_FILTER_"

// Config holds the process-level settings of a filter run.
type Config struct {
	SourceDir      string
	DestinationDir string
	DebugDir       string
	EnableDebug    bool

	// OCR engine
	Engine      string
	Languages   []string
	UseGPU      bool
	OllamaURL   string
	OllamaModel string

	MaxFiles           int
	DebugMinConfidence float64
	RenameSequential   bool
	OutputExtension    string

	StrategyFile string
	ReportFile   string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		SourceDir:          getEnvOrDefault(envPrefix+"SRC_DIR", "datasets/image_dataset/db_illustrations_bw"),
		DestinationDir:     getEnvOrDefault(envPrefix+"DST_DIR", "datasets/image_dataset/filtered_illustrations_bw"),
		DebugDir:           getEnvOrDefault(envPrefix+"DEBUG_DIR", "datasets/image_dataset/debug_images"),
		EnableDebug:        getEnvAsBoolOrDefault(envPrefix+"DEBUG", false),
		Engine:             getEnvOrDefault(envPrefix+"ENGINE", "tesseract"),
		Languages:          SplitList(getEnvOrDefault(envPrefix+"LANGUAGES", "ja,en")),
		UseGPU:             getEnvAsBoolOrDefault(envPrefix+"GPU", true),
		OllamaURL:          getEnvOrDefault("OLLAMA_URL", ""),
		OllamaModel:        getEnvOrDefault("OLLAMA_MODEL", ""),
		MaxFiles:           getEnvAsIntOrDefault(envPrefix+"MAX_FILES", 0),
		DebugMinConfidence: getEnvAsFloatOrDefault(envPrefix+"DEBUG_MIN_CONFIDENCE", imgutil.DefaultDebugMinConfidence),
		RenameSequential:   getEnvAsBoolOrDefault(envPrefix+"RENAME", true),
		OutputExtension:    getEnvOrDefault(envPrefix+"OUTPUT_EXT", "jpg"),
		StrategyFile:       getEnvOrDefault(envPrefix+"STRATEGY_FILE", ""),
		ReportFile:         getEnvOrDefault(envPrefix+"REPORT", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.SourceDir == "" {
		return fmt.Errorf("source directory is required")
	}
	if c.DestinationDir == "" {
		return fmt.Errorf("destination directory is required")
	}
	if c.EnableDebug && c.DebugDir == "" {
		return fmt.Errorf("debug directory is required when debug output is enabled")
	}
	if c.MaxFiles < 0 {
		return fmt.Errorf("max files must be >= 0, got %d", c.MaxFiles)
	}
	if c.DebugMinConfidence < 0 || c.DebugMinConfidence > 1 {
		return fmt.Errorf("debug min confidence must be between 0 and 1, got %v", c.DebugMinConfidence)
	}
	if strings.Trim(c.OutputExtension, ".") == "" {
		return fmt.Errorf("output extension is required")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// SplitList splits a comma separated list, trimming entries and dropping
// empty ones.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
