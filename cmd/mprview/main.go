package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"mprview/internal/models"
	"mprview/pkg/config"
	"mprview/pkg/render"
	"mprview/pkg/resample"
	"mprview/pkg/view"
	"mprview/pkg/volume"
)

func main() {
	// Parse command line arguments
	input := flag.String("input", "", "Volume path (expects <path>.yaml and <path>.raw)")
	labelPath := flag.String("labels", "", "Optional segmentation volume path, same raw format")
	configPath := flag.String("config", "mprview.yaml", "Viewer configuration file")
	exportDir := flag.String("export-dir", "exported_slices", "Directory to save exported slice sequences")
	views := flag.String("views", "axial,coronal,sagittal", "Comma-separated views to export")
	crop := flag.String("crop", "", "Slice crop as axis:lo:hi (axis 0=x, 1=y, 2=z); may repeat comma-separated")
	windowMin := flag.Float64("window-min", 0, "Display window minimum (overrides auto window)")
	windowMax := flag.Float64("window-max", 0, "Display window maximum (overrides auto window)")
	saveCropped := flag.String("save-cropped", "", "Write the cropped volume to this path before exporting")
	flag.Parse()

	if *input == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fmt.Printf("Loading volume from %s...\n", *input)
	grid, err := volume.Load(*input)
	if err != nil {
		log.Fatalf("Failed to load volume: %v", err)
	}
	fmt.Printf("Volume: %dx%dx%d voxels, spacing (%.2f, %.2f, %.2f) mm\n",
		grid.Nx, grid.Ny, grid.Nz, grid.Spacing.X, grid.Spacing.Y, grid.Spacing.Z)

	viewer := view.NewViewer(grid, cfg)

	if *labelPath != "" {
		labels, err := volume.Load(*labelPath)
		if err != nil {
			log.Fatalf("Failed to load segmentation volume: %v", err)
		}
		labels.SetBackground(0)
		if err := viewer.SetLabelVolume(labels); err != nil {
			log.Fatalf("Failed to attach segmentation volume: %v", err)
		}
		fmt.Println("Segmentation overlay attached.")
	}

	if *windowMax > *windowMin {
		viewer.SetWindow(render.WindowLevel{Min: *windowMin, Max: *windowMax})
	}
	w := viewer.Window()
	fmt.Printf("Display window: [%.1f, %.1f]\n", w.Min, w.Max)

	for _, spec := range splitNonEmpty(*crop) {
		axis, lo, hi, err := parseCrop(spec)
		if err != nil {
			log.Fatalf("Invalid -crop %q: %v", spec, err)
		}
		if err := viewer.Crop(axis, lo, hi); err != nil {
			log.Fatalf("Failed to apply crop %q: %v", spec, err)
		}
		fmt.Printf("Crop: axis %d restricted to slices [%d, %d]\n", axis, lo, hi)
	}

	if *saveCropped != "" {
		if err := saveWithCrop(viewer, grid, *saveCropped); err != nil {
			log.Fatalf("Failed to save cropped volume: %v", err)
		}
		fmt.Printf("Cropped volume saved to %s\n", *saveCropped)
	}

	exporter := viewer.Exporter()
	for _, name := range splitNonEmpty(*views) {
		id, ok := viewByName(name)
		if !ok {
			log.Fatalf("Unknown view %q (want axial, coronal, or sagittal)", name)
		}

		axis, lo, hi, err := viewer.ExportRange(id)
		if err != nil {
			log.Fatalf("Failed to resolve export range for %s: %v", name, err)
		}

		outDir := filepath.Join(*exportDir, name)
		fmt.Printf("Exporting %s slices %d-%d (axis %d) to %s...\n", name, lo, hi, axis, outDir)
		if err := exporter.SaveSliceSequence(derivationFor(id), lo, hi, outDir); err != nil {
			log.Fatalf("Failed to export %s slices: %v", name, err)
		}
	}

	fmt.Println("Export completed.")
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseCrop(spec string) (axis, lo, hi int, err error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("want axis:lo:hi")
	}
	vals := [3]int{}
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return 0, 0, 0, err
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], nil
}

func viewByName(name string) (models.View, bool) {
	switch strings.ToLower(name) {
	case "axial":
		return models.Axial, true
	case "coronal":
		return models.Coronal, true
	case "sagittal":
		return models.Sagittal, true
	default:
		return 0, false
	}
}

func derivationFor(id models.View) resample.PlaneDerivation {
	switch id {
	case models.Coronal:
		return resample.Coronal()
	case models.Sagittal:
		return resample.Sagittal()
	default:
		return resample.Axial()
	}
}

// saveWithCrop writes the volume restricted to the first active crop range,
// or the full volume without one.
func saveWithCrop(viewer *view.Viewer, grid *volume.Grid, path string) error {
	for axis := 0; axis < 3; axis++ {
		lo, hi := viewer.Transforms().CropFor(axis, grid.Dim(axis))
		if lo != 0 || hi != grid.Dim(axis)-1 {
			return volume.SaveCropped(grid, path, axis, lo, hi)
		}
	}
	return volume.Save(grid, path)
}
