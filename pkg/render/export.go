package render

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"mprview/pkg/resample"
	"mprview/pkg/volume"
)

// Exporter writes windowed slice sequences to disk. Exports honor an
// optional crop range per view, so a cropped study exports only the slices
// the operator selected.
type Exporter struct {
	grid   *volume.Grid
	window WindowLevel
}

// NewExporter creates an exporter for the given volume and display window.
func NewExporter(grid *volume.Grid, window WindowLevel) *Exporter {
	return &Exporter{grid: grid, window: window}
}

// Slice resamples and windows a single slice at index pos along the
// derivation's normal axis.
func (e *Exporter) Slice(deriv resample.PlaneDerivation, pos int) (*image.Gray, error) {
	axis := deriv.NormalAxis()
	if axis < 0 {
		return nil, fmt.Errorf("render: slice export requires an axis-aligned view")
	}
	if pos < 0 || pos >= e.grid.Dim(axis) {
		return nil, fmt.Errorf("render: slice %d outside axis %d of %d slices", pos, axis, e.grid.Dim(axis))
	}

	// Cursor at the volume center, moved to the requested slice along the
	// view normal.
	i, j, k := e.grid.PhysicalToVoxel(e.grid.Center())
	voxel := [3]float64{i, j, k}
	voxel[axis] = float64(pos)
	cursor := e.grid.VoxelToPhysical(voxel[0], voxel[1], voxel[2])

	w, h := deriv.PixelDims(e.grid)
	im := resample.Resample(e.grid, deriv.Derive(e.grid, cursor), w, h)
	return Map(im, e.window), nil
}

// SaveSlice saves a windowed slice as a JPEG image.
func (e *Exporter) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence extracts and saves the slices [lo, hi] along the
// derivation's normal axis into outputDir. Pass 0 and Dim(axis)-1 for an
// uncropped export.
func (e *Exporter) SaveSliceSequence(deriv resample.PlaneDerivation, lo, hi int, outputDir string) error {
	axis := deriv.NormalAxis()
	if axis < 0 {
		return fmt.Errorf("render: slice export requires an axis-aligned view")
	}
	if lo < 0 || hi >= e.grid.Dim(axis) || lo > hi {
		return fmt.Errorf("render: slice range [%d, %d] outside axis %d of %d slices", lo, hi, axis, e.grid.Dim(axis))
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for pos := lo; pos <= hi; pos++ {
		img, err := e.Slice(deriv, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%03d.jpg", pos))
		if err := e.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
