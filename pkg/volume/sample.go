package volume

import (
	"math"

	"mprview/pkg/geom"
)

// Sample returns the trilinearly interpolated value at the physical point p.
//
// The point is converted to continuous voxel index space and interpolated
// over the 8 surrounding voxels, weighted by the fractional parts of the
// index. At an exact integer index the result equals the stored voxel value;
// outside [0, dim-1] on any axis the background value is returned. Sampling
// never fails: oblique planes routinely extend beyond the volume's hull and
// those pixels simply read as background.
func (g *Grid) Sample(p geom.Vec3) float64 {
	x, y, z := g.PhysicalToVoxel(p)
	// The physical transform leaves rounding noise on what should be exact
	// integer indices; snapping keeps the voxel round-trip exact and stops
	// the far boundary voxels from reading as out of bounds.
	x, y, z = snapIndex(x), snapIndex(y), snapIndex(z)
	if x < 0 || x > float64(g.Nx-1) ||
		y < 0 || y > float64(g.Ny-1) ||
		z < 0 || z > float64(g.Nz-1) {
		return g.background
	}

	x0, y0, z0 := int(math.Floor(x)), int(math.Floor(y)), int(math.Floor(z))
	x1, y1, z1 := x0+1, y0+1, z0+1
	// On the far face the floor index is the last voxel; collapse the cell
	// so the weights still sum over valid samples.
	if x1 > g.Nx-1 {
		x1 = g.Nx - 1
	}
	if y1 > g.Ny-1 {
		y1 = g.Ny - 1
	}
	if z1 > g.Nz-1 {
		z1 = g.Nz - 1
	}

	fx := x - float64(x0)
	fy := y - float64(y0)
	fz := z - float64(z0)

	c000 := g.At(x0, y0, z0)
	c100 := g.At(x1, y0, z0)
	c010 := g.At(x0, y1, z0)
	c110 := g.At(x1, y1, z0)
	c001 := g.At(x0, y0, z1)
	c101 := g.At(x1, y0, z1)
	c011 := g.At(x0, y1, z1)
	c111 := g.At(x1, y1, z1)

	c00 := c000*(1-fx) + c100*fx
	c10 := c010*(1-fx) + c110*fx
	c01 := c001*(1-fx) + c101*fx
	c11 := c011*(1-fx) + c111*fx

	c0 := c00*(1-fy) + c10*fy
	c1 := c01*(1-fy) + c11*fy

	return c0*(1-fz) + c1*fz
}

// SampleNearest returns the value of the voxel nearest to the physical point
// p, or the background value outside the grid. Label (segmentation) volumes
// must be sampled this way: averaging category values across voxels produces
// labels that exist nowhere in the data.
func (g *Grid) SampleNearest(p geom.Vec3) float64 {
	x, y, z := g.PhysicalToVoxel(p)
	x, y, z = snapIndex(x), snapIndex(y), snapIndex(z)
	if x < 0 || x > float64(g.Nx-1) ||
		y < 0 || y > float64(g.Ny-1) ||
		z < 0 || z > float64(g.Nz-1) {
		return g.background
	}
	i := clampIndex(int(math.Round(x)), g.Nx)
	j := clampIndex(int(math.Round(y)), g.Ny)
	k := clampIndex(int(math.Round(z)), g.Nz)
	return g.At(i, j, k)
}

const snapEps = 1e-9

func snapIndex(x float64) float64 {
	r := math.Round(x)
	if math.Abs(x-r) < snapEps {
		return r
	}
	return x
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}
