package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"panel-filter/internal/config"
	"panel-filter/internal/logger"
	"panel-filter/internal/ocr/engine"
	"panel-filter/internal/pipeline"
)

type CLI struct {
	cfg       *config.Config
	languages string
}

func NewCLI() *CLI {
	return &CLI{}
}

func (c *CLI) Run(ctx context.Context, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.languages = strings.Join(cfg.Languages, ",")

	fs := flag.NewFlagSet("panel-filter", flag.ExitOnError)

	fs.StringVar(&c.cfg.SourceDir, "src", c.cfg.SourceDir, "Directory containing images to filter")
	fs.StringVar(&c.cfg.DestinationDir, "dst", c.cfg.DestinationDir, "Directory receiving images without text")
	fs.StringVar(&c.cfg.DebugDir, "debug-dir", c.cfg.DebugDir, "Directory for debug overlays")
	fs.BoolVar(&c.cfg.EnableDebug, "debug", c.cfg.EnableDebug, "Write debug overlays")
	fs.StringVar(&c.cfg.Engine, "engine", c.cfg.Engine, "OCR engine type (tesseract, ollama)")
	fs.StringVar(&c.languages, "lang", c.languages, "Comma separated OCR languages")
	fs.BoolVar(&c.cfg.UseGPU, "gpu", c.cfg.UseGPU, "Allow the OCR engine to use the GPU")
	fs.IntVar(&c.cfg.MaxFiles, "max", c.cfg.MaxFiles, "Process at most N files (0 = all)")
	fs.Float64Var(&c.cfg.DebugMinConfidence, "debug-min-conf", c.cfg.DebugMinConfidence, "Overlay threshold when no text was detected")
	fs.BoolVar(&c.cfg.RenameSequential, "rename", c.cfg.RenameSequential, "Rename kept files to 1.<ext>, 2.<ext>, ...")
	fs.StringVar(&c.cfg.OutputExtension, "ext", c.cfg.OutputExtension, "Extension used when renaming")
	fs.StringVar(&c.cfg.StrategyFile, "strategies", c.cfg.StrategyFile, "YAML strategy file (built-in cascade if empty)")
	fs.StringVar(&c.cfg.ReportFile, "report", c.cfg.ReportFile, "Optional CSV report path")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}
	c.cfg.Languages = config.SplitList(c.languages)
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	return c.filter(ctx)
}

func (c *CLI) filter(ctx context.Context) error {
	registry, strategies, err := config.LoadStrategies(c.cfg.StrategyFile)
	if err != nil {
		return err
	}

	fmt.Printf("Initializing %s OCR engine...\n", c.cfg.Engine)
	ocrEngine, err := engine.New(c.cfg.Engine, engine.Options{
		Languages:   c.cfg.Languages,
		UseGPU:      c.cfg.UseGPU,
		OllamaURL:   c.cfg.OllamaURL,
		OllamaModel: c.cfg.OllamaModel,
	})
	if err != nil {
		return fmt.Errorf("initializing OCR engine: %w", err)
	}
	defer func() {
		logger.DebugLog("Closing OCR engine")
		ocrEngine.Close()
	}()

	summary, err := pipeline.Run(ctx, ocrEngine, registry, pipeline.Options{
		SourceDir:          c.cfg.SourceDir,
		DestinationDir:     c.cfg.DestinationDir,
		DebugDir:           c.cfg.DebugDir,
		EnableDebug:        c.cfg.EnableDebug,
		Strategies:         strategies,
		RenameSequential:   c.cfg.RenameSequential,
		OutputExtension:    c.cfg.OutputExtension,
		MaxFiles:           c.cfg.MaxFiles,
		DebugMinConfidence: c.cfg.DebugMinConfidence,
		ReportFile:         c.cfg.ReportFile,
	})
	logger.Info("run finished", "summary", summary)
	return err
}
