package ocr

import (
	"context"
	"image"
)

// Point is a vertex of a detected text region in processed-image pixels.
type Point struct {
	X float64
	Y float64
}

// Quad is a text region given as four corners: top-left, top-right,
// bottom-right, bottom-left.
type Quad [4]Point

// QuadFromRect builds a Quad from an axis aligned rectangle.
func QuadFromRect(r image.Rectangle) Quad {
	return Quad{
		{X: float64(r.Min.X), Y: float64(r.Min.Y)},
		{X: float64(r.Max.X), Y: float64(r.Min.Y)},
		{X: float64(r.Max.X), Y: float64(r.Max.Y)},
		{X: float64(r.Min.X), Y: float64(r.Max.Y)},
	}
}

// Bounds returns the smallest rectangle containing every corner.
func (q Quad) Bounds() image.Rectangle {
	minX, minY := q[0].X, q[0].Y
	maxX, maxY := q[0].X, q[0].Y
	for _, p := range q[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return image.Rect(int(minX), int(minY), int(maxX), int(maxY))
}

// Detection is a single recognized box. Confidence is in [0,1].
type Detection struct {
	Region     Quad
	Text       string
	Confidence float64
}

// Engine recognizes text in a grayscale raster. Implementations are
// expensive to build and are constructed once per process.
type Engine interface {
	Recognize(ctx context.Context, img *image.Gray) ([]Detection, error)
	Close() error
}
