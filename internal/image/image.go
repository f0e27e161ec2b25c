package image

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

// Profile is a named preprocessing step applied before OCR.
type Profile struct {
	ScaleFactor    float64
	BlurKernelSize int
}

// LoadGrayscale reads path from disk and converts it to 8-bit grayscale.
// EXIF orientation is applied.
func LoadGrayscale(path string) (*image.Gray, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("opening image %s: %w", path, err)
	}
	return toGray(img), nil
}

// Preprocess applies p to img and returns a new image. img is never modified
// and never shared with the result.
func Preprocess(img *image.Gray, p Profile) *image.Gray {
	var processed image.Image = img

	if k := KernelSize(p.BlurKernelSize); k > 0 {
		processed = imaging.Blur(processed, Sigma(k))
	}

	if p.ScaleFactor != 1.0 && p.ScaleFactor > 0 {
		b := processed.Bounds()
		w := max(1, int(float64(b.Dx())*p.ScaleFactor))
		h := max(1, int(float64(b.Dy())*p.ScaleFactor))
		filter := imaging.CatmullRom
		if p.ScaleFactor < 1.0 {
			filter = imaging.Box
		}
		processed = imaging.Resize(processed, w, h, filter)
	}

	if processed == image.Image(img) {
		return cloneGray(img)
	}
	return toGray(processed)
}

// KernelSize returns the blur kernel actually used for a configured size:
// zero or negative disables blurring, even sizes are bumped to the next odd.
func KernelSize(configured int) int {
	if configured <= 0 {
		return 0
	}
	if configured%2 == 0 {
		return configured + 1
	}
	return configured
}

// Sigma derives the Gaussian standard deviation from an odd kernel size.
func Sigma(kernelSize int) float64 {
	return 0.3*(float64(kernelSize-1)*0.5-1) + 0.8
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return cloneGray(g)
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

func cloneGray(src *image.Gray) *image.Gray {
	dst := &image.Gray{
		Pix:    make([]uint8, len(src.Pix)),
		Stride: src.Stride,
		Rect:   src.Rect,
	}
	copy(dst.Pix, src.Pix)
	return dst
}
