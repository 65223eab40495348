// Package compositor merges garment images and performs the local
// background-removal fallback.
package compositor

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"tryon/internal/codec"
	"tryon/internal/domain"
)

// MaxGarments is the number of images Composite accepts. Additional
// garments are rejected rather than silently dropped.
const MaxGarments = 2

// Layout describes where each garment lands on the output canvas.
type Layout struct {
	Canvas image.Rectangle
	Top    image.Rectangle
	Bottom image.Rectangle
}

// Composite merges a top and a bottom garment into one image. A single
// image is returned unchanged.
func Composite(images []domain.Image) (domain.Image, error) {
	switch n := len(images); {
	case n == 0:
		return domain.Image{}, fmt.Errorf("%w: no garments to composite", domain.ErrInvalidInput)
	case n == 1:
		return images[0], nil
	case n > MaxGarments:
		return domain.Image{}, fmt.Errorf("%w: at most %d garments can be combined, got %d", domain.ErrInvalidInput, MaxGarments, n)
	}

	top, _, err := codec.DecodePixels(images[0])
	if err != nil {
		return domain.Image{}, fmt.Errorf("compositor: top garment: %w", err)
	}
	bottom, _, err := codec.DecodePixels(images[1])
	if err != nil {
		return domain.Image{}, fmt.Errorf("compositor: bottom garment: %w", err)
	}

	layout := ComputeLayout(top.Bounds().Size(), bottom.Bounds().Size())
	canvas := image.NewNRGBA(layout.Canvas)
	draw.CatmullRom.Scale(canvas, layout.Top, top, top.Bounds(), draw.Over, nil)
	draw.CatmullRom.Scale(canvas, layout.Bottom, bottom, bottom.Bounds(), draw.Over, nil)

	return codec.EncodePNG(canvas)
}

// ComputeLayout sizes the canvas to the larger of both inputs and fits each
// garment, centered, into its half.
func ComputeLayout(top, bottom image.Point) Layout {
	w := max(top.X, bottom.X)
	h := max(top.Y, bottom.Y)
	half := h / 2
	upper := image.Rect(0, 0, w, half)
	lower := image.Rect(0, half, w, h)
	return Layout{
		Canvas: image.Rect(0, 0, w, h),
		Top:    fit(top, upper),
		Bottom: fit(bottom, lower),
	}
}

func fit(src image.Point, box image.Rectangle) image.Rectangle {
	bw, bh := box.Dx(), box.Dy()
	if src.X <= 0 || src.Y <= 0 || bw <= 0 || bh <= 0 {
		return image.Rectangle{Min: box.Min, Max: box.Min}
	}
	// Compare src.X/src.Y against bw/bh without floating point.
	var w, h int
	if src.X*bh >= src.Y*bw {
		w = bw
		h = max(1, src.Y*bw/src.X)
	} else {
		h = bh
		w = max(1, src.X*bh/src.Y)
	}
	x := box.Min.X + (bw-w)/2
	y := box.Min.Y + (bh-h)/2
	return image.Rect(x, y, x+w, y+h)
}
