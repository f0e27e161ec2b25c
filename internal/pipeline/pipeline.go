package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"panel-filter/internal/filter"
	imgutil "panel-filter/internal/image"
	"panel-filter/internal/logger"
	"panel-filter/internal/ocr"
	"panel-filter/internal/writer"
)

const DefaultOutputExtension = "jpg"

// ErrSourceDirMissing aborts a run before any file is processed.
var ErrSourceDirMissing = errors.New("source directory does not exist")

type Options struct {
	SourceDir      string
	DestinationDir string
	DebugDir       string
	EnableDebug    bool

	Strategies       []filter.Strategy
	RenameSequential bool
	OutputExtension  string
	// MaxFiles bounds the run to the first N sorted files; 0 means all.
	MaxFiles           int
	DebugMinConfidence float64

	// ReportFile, when set, receives one CSV row per processed image.
	ReportFile string
	// Stdout receives KEEP/SKIP lines and the summary. Defaults to os.Stdout.
	Stdout io.Writer

	// ClassifierOptions are passed through to filter.NewClassifier.
	ClassifierOptions []filter.Option
}

type Summary struct {
	Kept    int
	Skipped int
	// Failed counts kept images that could not be copied.
	Failed int
	Total  int
}

// Record is one row of the CSV report.
type Record struct {
	Filename string
	Verdict  string
	Strategy string
	Snippet  string
	Output   string
}

func mapRecord(r Record) []string {
	return []string{r.Filename, r.Verdict, r.Strategy, r.Snippet, r.Output}
}

func recordHeader() []string {
	return []string{"filename", "verdict", "strategy", "snippet", "output"}
}

// Run classifies every image in opts.SourceDir, sequentially and in sorted
// order, and copies the ones without text to opts.DestinationDir. The engine
// is shared by all images. Only a missing source directory (or a setup
// failure) is returned as an error; per-image problems are logged.
func Run(ctx context.Context, engine ocr.Engine, registry *filter.Registry, opts Options) (Summary, error) {
	var summary Summary
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}
	if opts.OutputExtension == "" {
		opts.OutputExtension = DefaultOutputExtension
	}

	if info, err := os.Stat(opts.SourceDir); err != nil || !info.IsDir() {
		logger.Error("source directory missing", "dir", opts.SourceDir)
		return summary, fmt.Errorf("%w: %s", ErrSourceDirMissing, opts.SourceDir)
	}
	if err := os.MkdirAll(opts.DestinationDir, 0755); err != nil {
		return summary, fmt.Errorf("creating destination directory: %w", err)
	}
	if opts.EnableDebug {
		if err := os.MkdirAll(opts.DebugDir, 0755); err != nil {
			return summary, fmt.Errorf("creating debug directory: %w", err)
		}
	}

	files, err := listImages(opts.SourceDir, opts.MaxFiles)
	if err != nil {
		return summary, err
	}
	summary.Total = len(files)

	var report *writer.CSVWriter[Record]
	if opts.ReportFile != "" {
		report, err = writer.NewCSVWriter(opts.ReportFile, mapRecord, recordHeader)
		if err != nil {
			return summary, fmt.Errorf("opening report: %w", err)
		}
		defer report.Close()
	}

	classifier := filter.NewClassifier(engine, registry, opts.ClassifierOptions...)
	logger.DebugLog("Pipeline started with source=%s, destination=%s, files=%d", opts.SourceDir, opts.DestinationDir, len(files))

	for i, name := range files {
		if err := ctx.Err(); err != nil {
			logger.Warn("run cancelled", "processed", i, "total", len(files))
			return summary, err
		}

		srcPath := filepath.Join(opts.SourceDir, name)
		res := classifier.Classify(ctx, srcPath, opts.Strategies)
		// strategies cut short by cancellation prove nothing about the image
		if err := ctx.Err(); err != nil && !res.ContainsText {
			logger.Warn("run cancelled", "processed", i, "total", len(files), "file", name)
			return summary, err
		}

		if opts.EnableDebug {
			writeDebug(srcPath, name, res, opts)
		}

		rec := Record{Filename: name, Strategy: res.MatchedName(), Snippet: res.Snippet}
		if res.ContainsText {
			summary.Skipped++
			rec.Verdict = "skip"
			fmt.Fprintf(out, "[SKIP] (%d/%d) %s (detected: %s, text: %s...)\n", i+1, len(files), name, res.MatchedName(), snippetPreview(res.Snippet))
		} else {
			dst := outputName(name, summary.Kept+1, opts.RenameSequential, opts.OutputExtension)
			if err := copyFile(srcPath, filepath.Join(opts.DestinationDir, dst)); err != nil {
				summary.Failed++
				rec.Verdict = "error"
				logger.Error("copy failed", "file", name, "err", err)
			} else {
				summary.Kept++
				rec.Verdict = "keep"
				rec.Output = dst
				fmt.Fprintf(out, "[KEEP] (%d/%d) %s -> %s\n", i+1, len(files), name, dst)
			}
		}

		if report != nil {
			if err := report.Write(rec); err != nil {
				logger.Warn("report write failed", "file", name, "err", err)
			}
		}
	}

	fmt.Fprintf(out, "\ndone: kept %d of %d -> %s, skipped %d\n", summary.Kept, summary.Total, opts.DestinationDir, summary.Skipped)
	if summary.Failed > 0 {
		fmt.Fprintf(out, "failed to copy: %d\n", summary.Failed)
	}
	return summary, nil
}

func writeDebug(srcPath, name string, res filter.Result, opts Options) {
	minConf := opts.DebugMinConfidence
	if res.ContainsText {
		minConf = res.MatchedCriteria.MinConfidence
	}
	path := filepath.Join(opts.DebugDir, debugName(name, res))

	if res.Image != nil {
		imgutil.RenderDebug(res.Image, res.Detections, path, minConf)
		return
	}
	imgutil.RenderDebugFromFile(srcPath, res.Detections, path, minConf)
}

func (s Summary) String() string {
	return fmt.Sprintf("kept=%d skipped=%d failed=%d total=%d", s.Kept, s.Skipped, s.Failed, s.Total)
}
