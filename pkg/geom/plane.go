package geom

import (
	"errors"
	"math"
)

// ErrInvalidPlane is returned when a rotation increment would leave the plane
// with a degenerate (near-collinear) basis. The previous plane is kept; the
// rotation is refused rather than partially applied.
var ErrInvalidPlane = errors.New("geom: rotation produces degenerate plane basis")

// degenerateEps is the smallest acceptable length of UAxis×VAxis. Below this
// the basis no longer spans a plane.
const degenerateEps = 1e-9

// PlaneSpec describes a cutting plane in physical space: the point the plane
// passes through, two orthonormal in-plane basis vectors, and the physical
// half-extents sampled on each side of the origin along those vectors.
//
// PlaneSpecs are derived values: view controllers recompute them from the
// shared cursor (plus an accumulated rotation for the oblique view) whenever
// either changes.
type PlaneSpec struct {
	Origin  Vec3
	UAxis   Vec3
	VAxis   Vec3
	ExtentU float64
	ExtentV float64
}

// Normal returns the plane normal, UAxis × VAxis. For an orthonormal basis
// this is a unit vector.
func (p PlaneSpec) Normal() Vec3 {
	return p.UAxis.Cross(p.VAxis)
}

// PointAt maps normalized in-plane coordinates (u, v in [0,1]) to the
// physical point they name. (0.5, 0.5) is the plane origin; 0 and 1 are the
// negative and positive extents.
func (p PlaneSpec) PointAt(u, v float64) Vec3 {
	return p.Origin.
		Add(p.UAxis.Scale((u - 0.5) * 2 * p.ExtentU)).
		Add(p.VAxis.Scale((v - 0.5) * 2 * p.ExtentV))
}

// Project returns the normalized in-plane coordinates (u, v) of the physical
// point q, the inverse of PointAt. The out-of-plane component of q is
// discarded.
func (p PlaneSpec) Project(q Vec3) (u, v float64) {
	d := q.Sub(p.Origin)
	u = d.Dot(p.UAxis)/(2*p.ExtentU) + 0.5
	v = d.Dot(p.VAxis)/(2*p.ExtentV) + 0.5
	return u, v
}

// Rotate applies an incremental rotation of theta radians about the given
// axis to the plane basis, re-orthonormalizes it to counter floating-point
// drift, and returns the rotated plane. The receiver is not modified.
//
// If the rotated basis is degenerate the increment is refused: the original
// plane is returned together with ErrInvalidPlane.
func (p PlaneSpec) Rotate(axis Vec3, theta float64) (PlaneSpec, error) {
	if axis.Len() < degenerateEps {
		return p, ErrInvalidPlane
	}
	axis = axis.Unit()

	q := p
	q.UAxis = p.UAxis.Rotate(axis, theta)
	q.VAxis = p.VAxis.Rotate(axis, theta)
	if err := q.orthonormalize(); err != nil {
		return p, err
	}
	return q, nil
}

// orthonormalize restores an orthonormal basis via Gram–Schmidt. Repeated
// incremental rotations accumulate rounding error; without this step the
// orthonormality invariant decays over long interactions.
func (p *PlaneSpec) orthonormalize() error {
	if p.UAxis.Len() < degenerateEps {
		return ErrInvalidPlane
	}
	u := p.UAxis.Unit()
	v := p.VAxis.Sub(u.Scale(u.Dot(p.VAxis)))
	if v.Len() < degenerateEps {
		return ErrInvalidPlane
	}
	p.UAxis = u
	p.VAxis = v.Unit()
	return nil
}

// Degrees converts d degrees to radians.
func Degrees(d float64) float64 {
	return d * math.Pi / 180
}
