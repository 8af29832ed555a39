// Package render maps resampled slice data to display pixels: window/level
// intensity mapping, segmentation overlay compositing, and on-disk slice
// sequence export.
package render

import (
	"image"
	"sort"

	"gonum.org/v1/gonum/stat"

	"mprview/pkg/resample"
	"mprview/pkg/volume"
)

// WindowLevel is an intensity display window. Values at or below Min map to
// black, values at or above Max map to white, values between map linearly.
type WindowLevel struct {
	Min float64
	Max float64
}

// Width returns the window width.
func (w WindowLevel) Width() float64 { return w.Max - w.Min }

// Level returns the window center.
func (w WindowLevel) Level() float64 { return (w.Max + w.Min) / 2 }

// FromCenterWidth builds a window from DICOM-style center/width values.
func FromCenterWidth(center, width float64) WindowLevel {
	if width < 1 {
		width = 1
	}
	return WindowLevel{Min: center - width/2, Max: center + width/2}
}

// Adjust shifts the window by interactive contrast-drag deltas: horizontal
// motion widens or narrows the window, vertical motion moves the level.
func (w WindowLevel) Adjust(widthDelta, levelDelta float64) WindowLevel {
	width := w.Width() + widthDelta
	if width < 1 {
		width = 1
	}
	return FromCenterWidth(w.Level()+levelDelta, width)
}

// AutoWindow derives a default window from the volume's foreground-intensity
// distribution: voxels above the volume minimum, windowed between the given
// quantiles. Which quantiles to use is modality-dependent, so the caller
// passes them in (normally from config). A volume with no foreground spread
// falls back to its full range.
func AutoWindow(g *volume.Grid, lowQuantile, highQuantile float64) WindowLevel {
	data := g.Data()
	min := data[0]
	max := data[0]
	for _, v := range data {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	foreground := make([]float64, 0, len(data))
	for _, v := range data {
		if v > min {
			foreground = append(foreground, v)
		}
	}
	if len(foreground) == 0 {
		if max == min {
			max = min + 1
		}
		return WindowLevel{Min: min, Max: max}
	}

	sort.Float64s(foreground)
	lo := stat.Quantile(lowQuantile, stat.Empirical, foreground, nil)
	hi := stat.Quantile(highQuantile, stat.Empirical, foreground, nil)
	if hi <= lo {
		hi = lo + 1
	}
	return WindowLevel{Min: lo, Max: hi}
}

// Map converts a resampled slice to an 8-bit grayscale image through the
// window.
func Map(im *resample.Image, w WindowLevel) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, im.Width, im.Height))
	scale := 255 / w.Width()
	for i, v := range im.Pix {
		if v <= w.Min {
			continue // already zero
		}
		if v >= w.Max {
			out.Pix[i] = 255
			continue
		}
		out.Pix[i] = uint8((v - w.Min) * scale)
	}
	return out
}
