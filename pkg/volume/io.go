package volume

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"mprview/pkg/geom"
)

// Loader failures. DICOM and NIfTI parsing live outside this module; the raw
// format below is the seam those loaders feed into.
var (
	// ErrUnsupportedFormat is returned for files that are not mprview raw
	// volumes or that use an unknown sample type.
	ErrUnsupportedFormat = errors.New("volume: unsupported format")

	// ErrCorruptData is returned when the header and the voxel payload
	// disagree, or the header cannot describe a rectilinear grid.
	ErrCorruptData = errors.New("volume: corrupt data")
)

const rawFormatTag = "mprview-raw-v1"

// rawHeader is the YAML sidecar describing a raw voxel file. The sidecar
// lives at <path>.yaml next to the <path>.raw payload.
type rawHeader struct {
	Format     string     `yaml:"format"`
	Dimensions [3]int     `yaml:"dimensions"`
	Spacing    [3]float64 `yaml:"spacing"`
	Origin     [3]float64 `yaml:"origin"`
	// Axes is the 3x3 index-to-physical direction matrix, row-major.
	// Omitted means identity.
	Axes  []float64 `yaml:"axes,omitempty"`
	Dtype string    `yaml:"dtype"`
}

// Load reads a volume from a raw file pair: path.yaml (header) and path.raw
// (little-endian voxel payload, row-major). It returns a complete Grid or an
// error; a partially read volume is never exposed.
func Load(path string) (*Grid, error) {
	headerBytes, err := os.ReadFile(path + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("volume: reading header: %w", err)
	}
	var hdr rawHeader
	if err := yaml.Unmarshal(headerBytes, &hdr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	if hdr.Format != rawFormatTag {
		return nil, fmt.Errorf("%w: format tag %q", ErrUnsupportedFormat, hdr.Format)
	}

	nx, ny, nz := hdr.Dimensions[0], hdr.Dimensions[1], hdr.Dimensions[2]
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("%w: dimensions %v", ErrCorruptData, hdr.Dimensions)
	}
	n := nx * ny * nz

	payload, err := os.ReadFile(path + ".raw")
	if err != nil {
		return nil, fmt.Errorf("volume: reading voxel data: %w", err)
	}

	data, err := decodeSamples(payload, n, strings.ToLower(hdr.Dtype))
	if err != nil {
		return nil, err
	}

	var axes *mat.Dense
	if len(hdr.Axes) > 0 {
		if len(hdr.Axes) != 9 {
			return nil, fmt.Errorf("%w: axes has %d entries, want 9", ErrCorruptData, len(hdr.Axes))
		}
		axes = mat.NewDense(3, 3, hdr.Axes)
	}

	g, err := NewGrid(nx, ny, nz,
		geom.Vec3{X: hdr.Spacing[0], Y: hdr.Spacing[1], Z: hdr.Spacing[2]},
		geom.Vec3{X: hdr.Origin[0], Y: hdr.Origin[1], Z: hdr.Origin[2]},
		axes, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	return g, nil
}

func decodeSamples(payload []byte, n int, dtype string) ([]float64, error) {
	var size int
	switch dtype {
	case "float64":
		size = 8
	case "float32":
		size = 4
	case "uint16":
		size = 2
	case "uint8":
		size = 1
	default:
		return nil, fmt.Errorf("%w: dtype %q", ErrUnsupportedFormat, dtype)
	}
	if len(payload) != n*size {
		return nil, fmt.Errorf("%w: payload is %d bytes, want %d", ErrCorruptData, len(payload), n*size)
	}

	data := make([]float64, n)
	switch dtype {
	case "float64":
		for i := range data {
			data[i] = math.Float64frombits(binary.LittleEndian.Uint64(payload[i*8:]))
		}
	case "float32":
		for i := range data {
			data[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:])))
		}
	case "uint16":
		for i := range data {
			data[i] = float64(binary.LittleEndian.Uint16(payload[i*2:]))
		}
	case "uint8":
		for i := range data {
			data[i] = float64(payload[i])
		}
	}
	return data, nil
}

// Save writes the grid as a raw file pair, preserving spacing, origin, and
// axes exactly. Samples are written as little-endian float64.
func Save(g *Grid, path string) error {
	return saveRange(g, path, 2, 0, g.Nz-1)
}

// SaveCropped writes the sub-volume restricted to slice indices [lo, hi]
// along the given index axis, adjusting dimensions and shifting the origin
// so the cropped grid names the same physical points as the source region.
func SaveCropped(g *Grid, path string, axis, lo, hi int) error {
	if axis < 0 || axis > 2 {
		return fmt.Errorf("volume: invalid crop axis %d", axis)
	}
	if lo < 0 || hi > g.Dim(axis)-1 || lo > hi {
		return fmt.Errorf("volume: crop range [%d, %d] outside axis %d of %d slices", lo, hi, axis, g.Dim(axis))
	}
	return saveRange(g, path, axis, lo, hi)
}

func saveRange(g *Grid, path string, axis, lo, hi int) error {
	dims := [3]int{g.Nx, g.Ny, g.Nz}
	dims[axis] = hi - lo + 1

	idxLo := [3]int{0, 0, 0}
	idxLo[axis] = lo

	// Origin of voxel idxLo in the source grid becomes the new origin.
	origin := g.VoxelToPhysical(float64(idxLo[0]), float64(idxLo[1]), float64(idxLo[2]))

	hdr := rawHeader{
		Format:     rawFormatTag,
		Dimensions: dims,
		Spacing:    [3]float64{g.Spacing.X, g.Spacing.Y, g.Spacing.Z},
		Origin:     [3]float64{origin.X, origin.Y, origin.Z},
		Axes:       g.axes.RawMatrix().Data,
		Dtype:      "float64",
	}
	headerBytes, err := yaml.Marshal(&hdr)
	if err != nil {
		return fmt.Errorf("volume: encoding header: %w", err)
	}
	if err := os.WriteFile(path+".yaml", headerBytes, 0644); err != nil {
		return fmt.Errorf("volume: writing header: %w", err)
	}

	payload := make([]byte, 8*dims[0]*dims[1]*dims[2])
	w := 0
	for k := 0; k < dims[2]; k++ {
		for j := 0; j < dims[1]; j++ {
			for i := 0; i < dims[0]; i++ {
				v := g.At(i+idxLo[0], j+idxLo[1], k+idxLo[2])
				binary.LittleEndian.PutUint64(payload[w:], math.Float64bits(v))
				w += 8
			}
		}
	}
	if err := os.WriteFile(path+".raw", payload, 0644); err != nil {
		return fmt.Errorf("volume: writing voxel data: %w", err)
	}
	return nil
}
