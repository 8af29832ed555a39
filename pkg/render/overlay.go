package render

import (
	"image"
	"image/color"
)

// overlayColor is the segmentation outline color, matching the conventional
// red contour.
var overlayColor = color.RGBA{R: 255, A: 255}

// Composite draws the segmentation edge mask over a windowed grayscale slice
// and returns the combined RGBA image. The mask must come from an EdgeMask
// pass over a label image resampled with the same plane as the base slice,
// so mask index and base pixel index name the same physical point.
func Composite(base *image.Gray, edges []bool) *image.RGBA {
	b := base.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := y*b.Dx() + x
			if i < len(edges) && edges[i] {
				out.SetRGBA(x, y, overlayColor)
				continue
			}
			g := base.GrayAt(x, y).Y
			out.SetRGBA(x, y, color.RGBA{R: g, G: g, B: g, A: 255})
		}
	}
	return out
}
