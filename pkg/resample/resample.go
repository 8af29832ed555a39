// Package resample turns a cutting plane through a volume into a 2D sample
// array. The same plane geometry drives both the intensity volume and any
// aligned label volume, so a pixel in the two outputs always names the same
// physical point; overlay correctness depends on that.
package resample

import (
	"fmt"

	"mprview/pkg/geom"
	"mprview/pkg/volume"
)

// Image is a 2D array of resampled values in row-major order.
type Image struct {
	Width  int
	Height int
	Pix    []float64
}

// NewImage allocates a zeroed image of the given size.
func NewImage(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]float64, width*height),
	}
}

// At returns the sample at pixel (i, j).
func (im *Image) At(i, j int) float64 {
	return im.Pix[j*im.Width+i]
}

// Set stores v at pixel (i, j).
func (im *Image) Set(i, j int, v float64) {
	im.Pix[j*im.Width+i] = v
}

// Resample fills a width x height image by sampling the grid trilinearly at
// the physical point of each output pixel on the plane. Pixel (i, j) maps to
// plane coordinates ((i+0.5)/width, (j+0.5)/height), so pixels sample cell
// centers and the plane origin falls on the image center.
func Resample(g *volume.Grid, plane geom.PlaneSpec, width, height int) *Image {
	return resampleWith(g, plane, width, height, g.Sample)
}

// ResampleNearest is Resample with nearest-neighbor lookup, for label
// (segmentation) volumes where interpolated category values are meaningless.
func ResampleNearest(g *volume.Grid, plane geom.PlaneSpec, width, height int) *Image {
	return resampleWith(g, plane, width, height, g.SampleNearest)
}

func resampleWith(g *volume.Grid, plane geom.PlaneSpec, width, height int, sample func(geom.Vec3) float64) *Image {
	im := NewImage(width, height)
	for j := 0; j < height; j++ {
		v := (float64(j) + 0.5) / float64(height)
		for i := 0; i < width; i++ {
			u := (float64(i) + 0.5) / float64(width)
			im.Pix[j*width+i] = sample(plane.PointAt(u, v))
		}
	}
	return im
}

// ResampleOverlay resamples the intensity grid and a label grid against the
// identical plane, returning both images. The label grid must share the
// primary grid's geometry; a mismatched overlay is refused before any
// sampling happens.
func ResampleOverlay(primary, labels *volume.Grid, plane geom.PlaneSpec, width, height int) (intensity, label *Image, err error) {
	if !primary.SameGeometry(labels) {
		return nil, nil, fmt.Errorf("resample: label volume: %w", volume.ErrVolumeMismatch)
	}
	return Resample(primary, plane, width, height),
		ResampleNearest(labels, plane, width, height),
		nil
}
