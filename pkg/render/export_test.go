package render

import (
	"os"
	"path/filepath"
	"testing"

	"mprview/pkg/geom"
	"mprview/pkg/resample"
	"mprview/pkg/volume"
)

// TestSaveSliceSequence verifies that the exporter writes one JPEG per slice
// in the requested range
func TestSaveSliceSequence(t *testing.T) {
	data := make([]float64, 8*8*8)
	for i := range data {
		data[i] = float64(i)
	}
	g, err := volume.NewGrid(8, 8, 8, geom.Vec3{X: 1, Y: 1, Z: 1}, geom.Vec3{}, nil, data)
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}

	dir := t.TempDir()
	e := NewExporter(g, AutoWindow(g, 0.01, 0.99))

	if err := e.SaveSliceSequence(resample.Axial(), 2, 5, dir); err != nil {
		t.Fatalf("SaveSliceSequence failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("Exported %d files, want 4", len(entries))
	}
	if _, err := os.Stat(filepath.Join(dir, "slice_002.jpg")); err != nil {
		t.Errorf("Missing expected slice file: %v", err)
	}

	// Out-of-range exports are refused.
	if err := e.SaveSliceSequence(resample.Axial(), 0, 99, dir); err == nil {
		t.Error("Expected error for range past the axis end")
	}
	if err := e.SaveSliceSequence(resample.NewOblique(g), 0, 1, dir); err == nil {
		t.Error("Expected error for oblique export")
	}
}

// TestSingleSlice verifies the aspect-corrected dimensions of one exported
// slice
func TestSingleSlice(t *testing.T) {
	data := make([]float64, 8*8*8)
	for i := range data {
		data[i] = float64(i)
	}
	g, err := volume.NewGrid(8, 8, 8, geom.Vec3{X: 1, Y: 1, Z: 2}, geom.Vec3{}, nil, data)
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}

	e := NewExporter(g, WindowLevel{Min: 0, Max: 512})
	img, err := e.Slice(resample.Sagittal(), 3)
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}

	b := img.Bounds()
	if b.Dx() != 8 || b.Dy() != 16 {
		t.Errorf("Sagittal slice is %dx%d, want 8x16 for z spacing 2", b.Dx(), b.Dy())
	}

	if _, err := e.Slice(resample.Sagittal(), 99); err == nil {
		t.Error("Expected error for slice index past the axis end")
	}
}
