// Package volume holds the immutable voxel grid the slicing engine samples
// from. A Grid couples the flattened scalar data with its physical
// description: voxel spacing, origin, and the axes matrix that maps voxel
// index directions to physical directions (capturing orientation and flips
// from the source format).
package volume

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"mprview/pkg/geom"
)

// ErrVolumeMismatch is returned when a label volume's grid geometry disagrees
// with the primary volume it should overlay.
var ErrVolumeMismatch = errors.New("volume: grids do not share dimensions, spacing, and axes")

// gridEps is the tolerance used when comparing spacing and axes of two grids.
const gridEps = 1e-6

// Grid is a 3D scalar volume with a physical coordinate frame. It is
// immutable after construction: loaders build a complete Grid and hand it
// over, and all views share it by reference without locking.
type Grid struct {
	// Nx, Ny, Nz are the voxel counts along each index axis.
	Nx, Ny, Nz int

	// Spacing is the physical size of one voxel along each index axis,
	// in physical units (mm) per voxel. All components are positive.
	Spacing geom.Vec3

	// Origin is the physical coordinate of voxel (0, 0, 0).
	Origin geom.Vec3

	// axes maps voxel index directions to physical directions. Orthonormal
	// (or near-orthonormal) for rectilinear medical volumes.
	axes *mat.Dense

	// invAxes is the cached inverse used for physical-to-voxel transforms.
	invAxes *mat.Dense

	// data holds Nx*Ny*Nz samples in row-major order: index (i,j,k) lives
	// at k*Nx*Ny + j*Nx + i.
	data []float64

	// background is the value reported for samples outside the grid.
	background float64
}

// NewGrid constructs a Grid and validates its invariants: positive
// dimensions and spacing, an invertible axes matrix, and a data slice of
// exactly Nx*Ny*Nz samples. The background value defaults to the volume
// minimum, which keeps out-of-volume regions dark regardless of the
// modality's intensity range.
func NewGrid(nx, ny, nz int, spacing, origin geom.Vec3, axes *mat.Dense, data []float64) (*Grid, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("volume: dimensions must be positive, got %dx%dx%d", nx, ny, nz)
	}
	if spacing.X <= 0 || spacing.Y <= 0 || spacing.Z <= 0 {
		return nil, fmt.Errorf("volume: spacing must be positive, got %+v", spacing)
	}
	if len(data) != nx*ny*nz {
		return nil, fmt.Errorf("volume: data length %d does not match %dx%dx%d", len(data), nx, ny, nz)
	}
	if axes == nil {
		axes = identityAxes()
	}
	if r, c := axes.Dims(); r != 3 || c != 3 {
		return nil, fmt.Errorf("volume: axes must be 3x3, got %dx%d", r, c)
	}
	inv := mat.NewDense(3, 3, nil)
	if err := inv.Inverse(axes); err != nil {
		return nil, fmt.Errorf("volume: axes matrix is singular: %w", err)
	}

	g := &Grid{
		Nx:      nx,
		Ny:      ny,
		Nz:      nz,
		Spacing: spacing,
		Origin:  origin,
		axes:    mat.DenseCopyOf(axes),
		invAxes: inv,
		data:    data,
	}
	g.background = g.minValue()
	return g, nil
}

func identityAxes() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
}

func (g *Grid) minValue() float64 {
	min := math.Inf(1)
	for _, v := range g.data {
		if v < min {
			min = v
		}
	}
	if math.IsInf(min, 1) {
		return 0
	}
	return min
}

// SetBackground overrides the out-of-bounds sample value. Label volumes use
// 0 so that off-grid samples read as "no label".
func (g *Grid) SetBackground(v float64) {
	g.background = v
}

// Background returns the value reported for out-of-bounds samples.
func (g *Grid) Background() float64 {
	return g.background
}

// At returns the stored value at integer voxel index (i, j, k). Indices must
// be in range; the interpolating samplers are the ones meant for arbitrary
// points.
func (g *Grid) At(i, j, k int) float64 {
	return g.data[k*g.Nx*g.Ny+j*g.Nx+i]
}

// Data returns the underlying flattened sample slice. Callers must treat it
// as read-only.
func (g *Grid) Data() []float64 {
	return g.data
}

// Axes returns a copy of the index-to-physical direction matrix.
func (g *Grid) Axes() *mat.Dense {
	return mat.DenseCopyOf(g.axes)
}

// AxisDir returns the physical direction of index axis a (0, 1, or 2) as a
// unit vector: column a of the axes matrix.
func (g *Grid) AxisDir(a int) geom.Vec3 {
	return geom.Vec3{
		X: g.axes.At(0, a),
		Y: g.axes.At(1, a),
		Z: g.axes.At(2, a),
	}.Unit()
}

// SpacingAlong returns the voxel spacing along index axis a.
func (g *Grid) SpacingAlong(a int) float64 {
	switch a {
	case 0:
		return g.Spacing.X
	case 1:
		return g.Spacing.Y
	default:
		return g.Spacing.Z
	}
}

// Dim returns the voxel count along index axis a.
func (g *Grid) Dim(a int) int {
	switch a {
	case 0:
		return g.Nx
	case 1:
		return g.Ny
	default:
		return g.Nz
	}
}

// VoxelToPhysical maps a continuous voxel index to its physical coordinate:
// origin + axes * (i*sx, j*sy, k*sz).
func (g *Grid) VoxelToPhysical(i, j, k float64) geom.Vec3 {
	sx := i * g.Spacing.X
	sy := j * g.Spacing.Y
	sz := k * g.Spacing.Z
	return geom.Vec3{
		X: g.Origin.X + g.axes.At(0, 0)*sx + g.axes.At(0, 1)*sy + g.axes.At(0, 2)*sz,
		Y: g.Origin.Y + g.axes.At(1, 0)*sx + g.axes.At(1, 1)*sy + g.axes.At(1, 2)*sz,
		Z: g.Origin.Z + g.axes.At(2, 0)*sx + g.axes.At(2, 1)*sy + g.axes.At(2, 2)*sz,
	}
}

// PhysicalToVoxel maps a physical point to continuous voxel index space via
// the inverse axes matrix.
func (g *Grid) PhysicalToVoxel(p geom.Vec3) (i, j, k float64) {
	dx := p.X - g.Origin.X
	dy := p.Y - g.Origin.Y
	dz := p.Z - g.Origin.Z
	i = (g.invAxes.At(0, 0)*dx + g.invAxes.At(0, 1)*dy + g.invAxes.At(0, 2)*dz) / g.Spacing.X
	j = (g.invAxes.At(1, 0)*dx + g.invAxes.At(1, 1)*dy + g.invAxes.At(1, 2)*dz) / g.Spacing.Y
	k = (g.invAxes.At(2, 0)*dx + g.invAxes.At(2, 1)*dy + g.invAxes.At(2, 2)*dz) / g.Spacing.Z
	return i, j, k
}

// Center returns the physical center of the volume.
func (g *Grid) Center() geom.Vec3 {
	return g.VoxelToPhysical(
		float64(g.Nx-1)/2,
		float64(g.Ny-1)/2,
		float64(g.Nz-1)/2,
	)
}

// Clamp returns p moved to the nearest point inside the volume's physical
// bounding box. Points already inside are returned unchanged.
func (g *Grid) Clamp(p geom.Vec3) geom.Vec3 {
	i, j, k := g.PhysicalToVoxel(p)
	ci := math.Min(math.Max(i, 0), float64(g.Nx-1))
	cj := math.Min(math.Max(j, 0), float64(g.Ny-1))
	ck := math.Min(math.Max(k, 0), float64(g.Nz-1))
	if ci == i && cj == j && ck == k {
		return p
	}
	return g.VoxelToPhysical(ci, cj, ck)
}

// SameGeometry reports whether two grids share dimensions, spacing, and axes
// within tolerance. Overlays require it: a label grid that fails this check
// cannot be rendered against the primary volume.
func (g *Grid) SameGeometry(o *Grid) bool {
	if o == nil {
		return false
	}
	if g.Nx != o.Nx || g.Ny != o.Ny || g.Nz != o.Nz {
		return false
	}
	if math.Abs(g.Spacing.X-o.Spacing.X) > gridEps ||
		math.Abs(g.Spacing.Y-o.Spacing.Y) > gridEps ||
		math.Abs(g.Spacing.Z-o.Spacing.Z) > gridEps {
		return false
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if math.Abs(g.axes.At(r, c)-o.axes.At(r, c)) > gridEps {
				return false
			}
		}
	}
	return true
}
