package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"panel-filter/internal/filter"
	imgutil "panel-filter/internal/image"
	"panel-filter/internal/ocr"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	calls  int
	detect func(img *image.Gray) []ocr.Detection
}

func (f *fakeEngine) Recognize(_ context.Context, img *image.Gray) ([]ocr.Detection, error) {
	f.calls++
	return f.detect(img), nil
}

func (f *fakeEngine) Close() error { return nil }

var hello = []ocr.Detection{{Region: ocr.QuadFromRect(image.Rect(0, 0, 4, 4)), Text: "Hello", Confidence: 0.9}}

func registry() *filter.Registry {
	return filter.NewRegistry(
		map[string]imgutil.Profile{
			"A": {ScaleFactor: 1.0},
			"B": {ScaleFactor: 2.0},
		},
		map[string]filter.Criteria{
			"X": {MinConfidence: 0.5, MinCharsPerBox: 1, MinValidBoxes: 1},
			"Y": {MinConfidence: 0.6, MinCharsPerBox: 1, MinValidBoxes: 1},
		},
	)
}

// writeImages creates one 10px wide PNG per name; the height of the n-th
// file is 10+n so a fake engine can tell them apart.
func writeImages(t *testing.T, dir string, names ...string) {
	t.Helper()
	for i, name := range names {
		img := imaging.New(10, 10+i, color.NRGBA{R: 240, G: 240, B: 240, A: 255})
		require.NoError(t, imaging.Save(img, filepath.Join(dir, name)))
	}
}

func assertSameFile(t *testing.T, expected, actual string) {
	t.Helper()
	want, err := os.ReadFile(expected)
	require.NoError(t, err)
	got, err := os.ReadFile(actual)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(want, got), "%s differs from %s", actual, expected)
}

func TestRun_EndToEnd(t *testing.T) {
	// Arrange
	src, dst := t.TempDir(), filepath.Join(t.TempDir(), "out")
	writeImages(t, src, "p1.png", "p2.png", "p3.png")
	engine := &fakeEngine{detect: func(img *image.Gray) []ocr.Detection {
		// only profile B (doubled) on the second file shows text
		if img.Bounds().Dx() == 20 && img.Bounds().Dy() == 22 {
			return hello
		}
		return nil
	}}
	var stdout bytes.Buffer

	// Act
	summary, err := Run(context.Background(), engine, registry(), Options{
		SourceDir:        src,
		DestinationDir:   dst,
		Strategies:       []filter.Strategy{{Preprocessing: "A", Criteria: "X"}, {Preprocessing: "B", Criteria: "Y"}},
		RenameSequential: true,
		OutputExtension:  "jpg",
		Stdout:           &stdout,
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, Summary{Kept: 2, Skipped: 1, Total: 3}, summary)
	assert.Equal(t, 6, engine.calls)
	assertSameFile(t, filepath.Join(src, "p1.png"), filepath.Join(dst, "1.jpg"))
	assertSameFile(t, filepath.Join(src, "p3.png"), filepath.Join(dst, "2.jpg"))
	assert.NoFileExists(t, filepath.Join(dst, "3.jpg"))
	assert.Contains(t, stdout.String(), "[SKIP] (2/3) p2.png (detected: B/Y, text: Hello...)")
	assert.Contains(t, stdout.String(), "done: kept 2 of 3")
}

func TestRun_SequentialNumberingSkipsDetected(t *testing.T) {
	// Arrange
	src, dst := t.TempDir(), t.TempDir()
	names := []string{"a.png", "b.png", "c.png", "d.png", "e.png"}
	writeImages(t, src, names...)
	engine := &fakeEngine{detect: func(img *image.Gray) []ocr.Detection {
		if h := img.Bounds().Dy(); h == 11 || h == 13 {
			return hello
		}
		return nil
	}}

	// Act
	summary, err := Run(context.Background(), engine, registry(), Options{
		SourceDir:        src,
		DestinationDir:   dst,
		Strategies:       []filter.Strategy{{Preprocessing: "A", Criteria: "Y"}},
		RenameSequential: true,
		Stdout:           &bytes.Buffer{},
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, Summary{Kept: 3, Skipped: 2, Total: 5}, summary)
	assertSameFile(t, filepath.Join(src, "a.png"), filepath.Join(dst, "1.jpg"))
	assertSameFile(t, filepath.Join(src, "c.png"), filepath.Join(dst, "2.jpg"))
	assertSameFile(t, filepath.Join(src, "e.png"), filepath.Join(dst, "3.jpg"))
	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestRun_PreservesNamesAndMtime(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeImages(t, src, "keep.png")
	engine := &fakeEngine{detect: func(*image.Gray) []ocr.Detection { return nil }}

	summary, err := Run(context.Background(), engine, registry(), Options{
		SourceDir:      src,
		DestinationDir: dst,
		Strategies:     []filter.Strategy{{Preprocessing: "A", Criteria: "Y"}},
		Stdout:         &bytes.Buffer{},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Kept)
	srcInfo, err := os.Stat(filepath.Join(src, "keep.png"))
	require.NoError(t, err)
	dstInfo, err := os.Stat(filepath.Join(dst, "keep.png"))
	require.NoError(t, err)
	assert.True(t, srcInfo.ModTime().Equal(dstInfo.ModTime()))
}

func TestRun_MissingSourceDir(t *testing.T) {
	engine := &fakeEngine{detect: func(*image.Gray) []ocr.Detection { return nil }}
	dst := filepath.Join(t.TempDir(), "out")

	summary, err := Run(context.Background(), engine, registry(), Options{
		SourceDir:      filepath.Join(t.TempDir(), "nope"),
		DestinationDir: dst,
	})

	require.ErrorIs(t, err, ErrSourceDirMissing)
	assert.Equal(t, Summary{}, summary)
	assert.Equal(t, 0, engine.calls)
	assert.NoDirExists(t, dst)
}

func TestRun_MaxFiles(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeImages(t, src, "a.png", "b.png", "c.png")
	engine := &fakeEngine{detect: func(*image.Gray) []ocr.Detection { return nil }}

	summary, err := Run(context.Background(), engine, registry(), Options{
		SourceDir:        src,
		DestinationDir:   dst,
		Strategies:       []filter.Strategy{{Preprocessing: "A", Criteria: "Y"}},
		RenameSequential: true,
		MaxFiles:         2,
		Stdout:           &bytes.Buffer{},
	})

	require.NoError(t, err)
	assert.Equal(t, Summary{Kept: 2, Total: 2}, summary)
	assert.Equal(t, 2, engine.calls)
}

func TestRun_DebugAndReport(t *testing.T) {
	// Arrange
	src, dst, debug := t.TempDir(), t.TempDir(), t.TempDir()
	report := filepath.Join(t.TempDir(), "report.csv")
	writeImages(t, src, "clean.png", "talk:1.png")
	engine := &fakeEngine{detect: func(img *image.Gray) []ocr.Detection {
		if img.Bounds().Dy() == 11 {
			return hello
		}
		return nil
	}}

	// Act
	summary, err := Run(context.Background(), engine, registry(), Options{
		SourceDir:          src,
		DestinationDir:     dst,
		DebugDir:           debug,
		EnableDebug:        true,
		Strategies:         []filter.Strategy{{Preprocessing: "A", Criteria: "Y"}},
		RenameSequential:   true,
		DebugMinConfidence: 0.3,
		ReportFile:         report,
		Stdout:             &bytes.Buffer{},
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, Summary{Kept: 1, Skipped: 1, Total: 2}, summary)
	assert.FileExists(t, filepath.Join(debug, "NOTEXT_clean.png"))
	assert.FileExists(t, filepath.Join(debug, "TEXT_talk_1_by_A-Y.png"))

	content, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Equal(t, "filename,verdict,strategy,snippet,output\n"+
		"clean.png,keep,none,,1.jpg\n"+
		"talk:1.png,skip,A/Y,Hello,\n", string(content))
}

func TestRun_Cancelled(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeImages(t, src, "a.png")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	engine := &fakeEngine{detect: func(*image.Gray) []ocr.Detection { return nil }}

	summary, err := Run(ctx, engine, registry(), Options{
		SourceDir:      src,
		DestinationDir: dst,
		Strategies:     []filter.Strategy{{Preprocessing: "A", Criteria: "Y"}},
		Stdout:         &bytes.Buffer{},
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.Kept)
	assert.Equal(t, 0, engine.calls)
}

// cancellingEngine cancels the run on its first call and then fails like a
// real engine whose context is gone.
type cancellingEngine struct {
	calls  int
	cancel context.CancelFunc
}

func (c *cancellingEngine) Recognize(ctx context.Context, _ *image.Gray) ([]ocr.Detection, error) {
	c.calls++
	c.cancel()
	return nil, ctx.Err()
}

func (c *cancellingEngine) Close() error { return nil }

func TestRun_CancelledMidCascadeKeepsNothing(t *testing.T) {
	// Arrange
	src, dst := t.TempDir(), t.TempDir()
	writeImages(t, src, "a.png", "b.png")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine := &cancellingEngine{cancel: cancel}

	// Act
	summary, err := Run(ctx, engine, registry(), Options{
		SourceDir:        src,
		DestinationDir:   dst,
		Strategies:       []filter.Strategy{{Preprocessing: "A", Criteria: "Y"}, {Preprocessing: "B", Criteria: "Y"}},
		RenameSequential: true,
		Stdout:           &bytes.Buffer{},
	})

	// Assert
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Summary{Total: 2}, summary)
	assert.Equal(t, 2, engine.calls)
	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	assert.Empty(t, entries, "an image whose cascade was interrupted must not be kept")
}
