package image

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"

	"panel-filter/internal/logger"
	"panel-filter/internal/ocr"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultDebugMinConfidence is the overlay threshold used when no strategy
// detected text.
const DefaultDebugMinConfidence = 0.30

const boxThickness = 2

var boxColor = color.RGBA{G: 255, A: 255}

// DrawDetections returns a color copy of img with a rectangle around each
// detection whose confidence is at least minConfidence.
func DrawDetections(img image.Image, detections []ocr.Detection, minConfidence float64) *image.RGBA {
	b := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Src)

	for _, d := range detections {
		if d.Confidence < minConfidence {
			continue
		}
		r := d.Region.Bounds()
		drawRect(canvas, r)
		drawLabel(canvas, r.Min, fmt.Sprintf("%.2f", d.Confidence))
	}
	return canvas
}

// RenderDebug writes the overlay for img to path. Failures are logged and
// reported through the return value only; they never propagate.
func RenderDebug(img image.Image, detections []ocr.Detection, path string, minConfidence float64) bool {
	if img == nil {
		logger.Warn("debug render skipped, no image", "path", path)
		return false
	}
	if err := saveDebug(DrawDetections(img, detections, minConfidence), path); err != nil {
		logger.Error("debug render failed", "code", "DEBUG_RENDER", "path", path, "err", err)
		return false
	}
	return true
}

// RenderDebugFromFile is RenderDebug for when no processed image exists and
// the source file has to be drawn on instead.
func RenderDebugFromFile(source string, detections []ocr.Detection, path string, minConfidence float64) bool {
	img, err := imaging.Open(source, imaging.AutoOrientation(true))
	if err != nil {
		logger.Error("debug render failed", "code", "DEBUG_RENDER", "path", path, "err", err)
		return false
	}
	return RenderDebug(img, detections, path, minConfidence)
}

func saveDebug(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating debug directory: %w", err)
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("saving debug image %s: %w", path, err)
	}
	return nil
}

func drawRect(canvas *image.RGBA, r image.Rectangle) {
	r = r.Intersect(canvas.Bounds())
	if r.Empty() {
		return
	}
	src := image.NewUniform(boxColor)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+boxThickness),
		image.Rect(r.Min.X, r.Max.Y-boxThickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+boxThickness, r.Max.Y),
		image.Rect(r.Max.X-boxThickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(canvas, e.Intersect(r), src, image.Point{}, draw.Src)
	}
}

func drawLabel(canvas *image.RGBA, at image.Point, label string) {
	face := basicfont.Face7x13
	y := at.Y - 2
	if y-face.Ascent < 0 {
		y = at.Y + face.Ascent + boxThickness
	}
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(boxColor),
		Face: face,
		Dot:  fixed.P(at.X, y),
	}
	d.DrawString(label)
}
