package digits

import (
	"fmt"
	"image"
	"os"

	// Registered decoders for LoadImage.
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// LoadImage decodes a PNG or JPEG file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

// PrepareImage converts img to the network's input: grayscale, bilinear
// resize to 28×28, inverted so ink is bright, scaled to [0, 1].
func PrepareImage(img image.Image) []float64 {
	dst := image.NewGray(image.Rect(0, 0, ImageSize, ImageSize))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	out := make([]float64, ImageSize*ImageSize)
	for y := 0; y < ImageSize; y++ {
		for x := 0; x < ImageSize; x++ {
			out[y*ImageSize+x] = float64(255-dst.GrayAt(x, y).Y) / 255
		}
	}
	return out
}
