// Package geom provides the 3D vector and cutting-plane math used by the
// multi-planar reconstruction engine. A cutting plane is described in the
// volume's physical space (millimeters) by an origin point and two in-plane
// basis vectors; the slicing code never works in voxel indices directly.
package geom

import "math"

// Vec3 is a point or direction in physical space.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns the sum of vectors a and b.
func (a Vec3) Add(b Vec3) Vec3 {
	return Vec3{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z}
}

// Sub returns the difference of vectors a and b.
func (a Vec3) Sub(b Vec3) Vec3 {
	return Vec3{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z}
}

// Scale returns the vector a multiplied by the scalar s.
func (a Vec3) Scale(s float64) Vec3 {
	return Vec3{X: s * a.X, Y: s * a.Y, Z: s * a.Z}
}

// Dot returns the dot product of a and b.
func (a Vec3) Dot(b Vec3) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

// Cross returns the cross product of a and b.
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

// Len returns the Euclidean length of a.
func (a Vec3) Len() float64 {
	return math.Sqrt(a.Dot(a))
}

// Unit returns a normalized to unit length. The zero vector is returned
// unchanged; callers that cannot tolerate a degenerate direction must check
// Len themselves.
func (a Vec3) Unit() Vec3 {
	l := a.Len()
	if l == 0 {
		return a
	}
	return a.Scale(1 / l)
}

// Rotate returns a rotated by theta radians about the unit axis using
// Rodrigues' rotation formula.
func (a Vec3) Rotate(axis Vec3, theta float64) Vec3 {
	cos, sin := math.Cos(theta), math.Sin(theta)
	return a.Scale(cos).
		Add(axis.Cross(a).Scale(sin)).
		Add(axis.Scale(axis.Dot(a) * (1 - cos)))
}
