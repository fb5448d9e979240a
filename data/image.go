package data

import (
	"fmt"
	"image"
	_ "image/jpeg" // Essential: Registers JPEG format
	_ "image/png"
	"os"

	"golang.org/x/image/draw"

	"github.com/b0tShaman/neuro-blocks/ml"
)

// LoadGrayGrid decodes a JPEG or PNG and returns it as a targetH x targetW
// grayscale grid in [0, 1], ready for pooling.
func LoadGrayGrid(path string, targetW, targetH int) (*ml.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return GrayGrid(src, targetW, targetH)
}

// GrayGrid rescales src to targetW x targetH and converts it to grayscale.
func GrayGrid(src image.Image, targetW, targetH int) (*ml.Matrix, error) {
	if targetW <= 0 || targetH <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", targetW, targetH)
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.CatmullRom.Scale(dst, dst.Rect, src, src.Bounds(), draw.Over, nil)

	out := make([]float64, 0, targetW*targetH)
	bounds := dst.Bounds()

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := dst.At(x, y).RGBA()
			// Standard Grayscale formula
			gray := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			out = append(out, gray/255.0)
		}
	}
	return ml.NewMatrixFromSlice(targetH, targetW, out)
}
