package resample

import (
	"math"

	"mprview/pkg/geom"
	"mprview/pkg/volume"
)

// PlaneDerivation produces the cutting plane for one view from the shared
// cursor. The three canonical derivations are pure functions of the grid and
// cursor; the oblique derivation additionally carries an accumulated
// rotation.
type PlaneDerivation interface {
	// Derive returns the view's plane through the cursor point.
	Derive(g *volume.Grid, cursor geom.Vec3) geom.PlaneSpec

	// PixelDims returns the aspect-ratio-corrected output size in pixels.
	// Physical voxel size, not index count, decides on-screen proportions:
	// a 2mm slice spacing renders twice as tall as a 1mm in-plane spacing.
	PixelDims(g *volume.Grid) (width, height int)

	// NormalAxis returns the grid index axis along the plane normal, or -1
	// when the plane is not axis-aligned.
	NormalAxis() int
}

type axialDerivation struct{}
type coronalDerivation struct{}
type sagittalDerivation struct{}

// Axial returns the derivation for the axial view: the plane normal to the
// volume's z physical axis, spanned by the x and y axes.
func Axial() PlaneDerivation { return axialDerivation{} }

// Coronal returns the derivation for the coronal view: normal along y,
// spanned by x and z.
func Coronal() PlaneDerivation { return coronalDerivation{} }

// Sagittal returns the derivation for the sagittal view: normal along x,
// spanned by y and z.
func Sagittal() PlaneDerivation { return sagittalDerivation{} }

// halfExtent is the physical half-width of the full cross-section along
// index axis a.
func halfExtent(g *volume.Grid, a int) float64 {
	return float64(g.Dim(a)) * g.SpacingAlong(a) / 2
}

func canonicalPlane(g *volume.Grid, cursor geom.Vec3, uAxis, vAxis int) geom.PlaneSpec {
	return geom.PlaneSpec{
		Origin:  cursor,
		UAxis:   g.AxisDir(uAxis),
		VAxis:   g.AxisDir(vAxis),
		ExtentU: halfExtent(g, uAxis),
		ExtentV: halfExtent(g, vAxis),
	}
}

// canonicalDims sizes the output so the u axis keeps one pixel per voxel and
// the v axis is scaled by the spacing ratio.
func canonicalDims(g *volume.Grid, uAxis, vAxis int) (int, int) {
	w := g.Dim(uAxis)
	h := int(math.Round(float64(g.Dim(vAxis)) * g.SpacingAlong(vAxis) / g.SpacingAlong(uAxis)))
	if h < 1 {
		h = 1
	}
	return w, h
}

func (axialDerivation) Derive(g *volume.Grid, cursor geom.Vec3) geom.PlaneSpec {
	return canonicalPlane(g, cursor, 0, 1)
}
func (axialDerivation) PixelDims(g *volume.Grid) (int, int) { return canonicalDims(g, 0, 1) }
func (axialDerivation) NormalAxis() int                     { return 2 }

func (coronalDerivation) Derive(g *volume.Grid, cursor geom.Vec3) geom.PlaneSpec {
	return canonicalPlane(g, cursor, 0, 2)
}
func (coronalDerivation) PixelDims(g *volume.Grid) (int, int) { return canonicalDims(g, 0, 2) }
func (coronalDerivation) NormalAxis() int                     { return 1 }

func (sagittalDerivation) Derive(g *volume.Grid, cursor geom.Vec3) geom.PlaneSpec {
	return canonicalPlane(g, cursor, 1, 2)
}
func (sagittalDerivation) PixelDims(g *volume.Grid) (int, int) { return canonicalDims(g, 1, 2) }
func (sagittalDerivation) NormalAxis() int                     { return 0 }

// ObliqueDerivation derives a freely rotated plane. It starts as a copy of
// the axial orientation and accumulates interactive rotation increments;
// replaying the same increments from the same start reproduces the same
// plane. Each increment re-orthonormalizes the basis, so the orthonormality
// invariant holds across arbitrarily long interactions.
type ObliqueDerivation struct {
	uAxis geom.Vec3
	vAxis geom.Vec3
}

// NewOblique returns an oblique derivation initialized to the grid's axial
// orientation.
func NewOblique(g *volume.Grid) *ObliqueDerivation {
	return &ObliqueDerivation{
		uAxis: g.AxisDir(0),
		vAxis: g.AxisDir(1),
	}
}

// Derive returns the oblique plane through the cursor. Extents cover the
// volume's physical half-diagonal so the plane spans the whole volume at any
// rotation.
func (o *ObliqueDerivation) Derive(g *volume.Grid, cursor geom.Vec3) geom.PlaneSpec {
	ext := physicalDiagonal(g) / 2
	return geom.PlaneSpec{
		Origin:  cursor,
		UAxis:   o.uAxis,
		VAxis:   o.vAxis,
		ExtentU: ext,
		ExtentV: ext,
	}
}

// PixelDims returns a square output sized to the voxel-space diagonal, the
// largest cross-section any rotation can expose.
func (o *ObliqueDerivation) PixelDims(g *volume.Grid) (int, int) {
	n := int(math.Ceil(math.Sqrt(
		float64(g.Nx*g.Nx) + float64(g.Ny*g.Ny) + float64(g.Nz*g.Nz))))
	return n, n
}

// NormalAxis returns -1: the oblique plane is not tied to a grid axis.
func (o *ObliqueDerivation) NormalAxis() int { return -1 }

// UAxis returns the current in-plane u basis vector.
func (o *ObliqueDerivation) UAxis() geom.Vec3 { return o.uAxis }

// VAxis returns the current in-plane v basis vector.
func (o *ObliqueDerivation) VAxis() geom.Vec3 { return o.vAxis }

// Normal returns the current plane normal.
func (o *ObliqueDerivation) Normal() geom.Vec3 { return o.uAxis.Cross(o.vAxis) }

// Rotate applies an incremental rotation of theta radians about the given
// axis. A degenerate result is refused: the error is returned and the
// previous basis kept, never a partially applied rotation.
func (o *ObliqueDerivation) Rotate(axis geom.Vec3, theta float64) error {
	p := geom.PlaneSpec{UAxis: o.uAxis, VAxis: o.vAxis, ExtentU: 1, ExtentV: 1}
	rotated, err := p.Rotate(axis, theta)
	if err != nil {
		return err
	}
	o.uAxis = rotated.UAxis
	o.vAxis = rotated.VAxis
	return nil
}

// Reset restores the grid's axial orientation.
func (o *ObliqueDerivation) Reset(g *volume.Grid) {
	o.uAxis = g.AxisDir(0)
	o.vAxis = g.AxisDir(1)
}

func physicalDiagonal(g *volume.Grid) float64 {
	dx := float64(g.Nx) * g.Spacing.X
	dy := float64(g.Ny) * g.Spacing.Y
	dz := float64(g.Nz) * g.Spacing.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
