package compositor

import (
	"fmt"
	"image"
	"image/color"

	"tryon/internal/codec"
	"tryon/internal/domain"
)

// DefaultWhiteThreshold is the channel value above which a pixel counts as background.
const DefaultWhiteThreshold = 240

// RemoveLightBackground makes every pixel whose R, G and B all exceed
// threshold fully transparent. It is a luminance cut, not segmentation.
func RemoveLightBackground(img domain.Image, threshold uint8) (domain.Image, error) {
	if threshold == 0 {
		threshold = DefaultWhiteThreshold
	}
	src, _, err := codec.DecodePixels(img)
	if err != nil {
		return domain.Image{}, fmt.Errorf("compositor: remove background: %w", err)
	}
	b := src.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			if c.R > threshold && c.G > threshold && c.B > threshold {
				c.A = 0
			}
			out.SetNRGBA(x-b.Min.X, y-b.Min.Y, c)
		}
	}
	return codec.EncodePNG(out)
}
