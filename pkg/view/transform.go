// Package view ties the slicing engine together: the shared 3D cursor, the
// per-view zoom/pan/crop transforms, and the Viewer that routes UI events to
// cursor, plane, and transform updates and keeps every view resampled
// against identical state.
package view

import (
	"fmt"

	"mprview/internal/models"
)

// Transform is one view's display transform: a clamped zoom factor and an
// unclamped pan offset in display pixels. Display coordinates relate to
// resampled-image coordinates by d = p*zoom + pan.
type Transform struct {
	Zoom float64
	PanX float64
	PanY float64

	minZoom float64
	maxZoom float64
}

func newTransform(minZoom, maxZoom float64) *Transform {
	return &Transform{Zoom: 1, minZoom: minZoom, maxZoom: maxZoom}
}

// ZoomBy scales the zoom factor by factor, clamped to the configured limits,
// and adjusts pan so the image point under the display anchor stays at the
// anchor.
func (t *Transform) ZoomBy(factor, anchorX, anchorY float64) {
	z := t.Zoom * factor
	if z < t.minZoom {
		z = t.minZoom
	}
	if z > t.maxZoom {
		z = t.maxZoom
	}
	if z == t.Zoom {
		return
	}
	// Keep (anchor - pan)/zoom, the image point under the anchor, fixed.
	ratio := z / t.Zoom
	t.PanX = anchorX - (anchorX-t.PanX)*ratio
	t.PanY = anchorY - (anchorY-t.PanY)*ratio
	t.Zoom = z
}

// PanBy accumulates a pan offset. Any offset is legal; content may scroll
// fully off-screen.
func (t *Transform) PanBy(dx, dy float64) {
	t.PanX += dx
	t.PanY += dy
}

// ToImage maps a display point to resampled-image coordinates.
func (t *Transform) ToImage(dx, dy float64) (x, y float64) {
	return (dx - t.PanX) / t.Zoom, (dy - t.PanY) / t.Zoom
}

// ToDisplay maps resampled-image coordinates to display coordinates.
func (t *Transform) ToDisplay(x, y float64) (dx, dy float64) {
	return x*t.Zoom + t.PanX, y*t.Zoom + t.PanY
}

// Reset restores identity zoom and zero pan.
func (t *Transform) Reset() {
	t.Zoom = 1
	t.PanX = 0
	t.PanY = 0
}

// CropRange is an inclusive slice-index interval along one grid axis. It
// restricts export and cine playback; the volume itself is untouched.
type CropRange struct {
	Lo, Hi int
	active bool
}

// Active reports whether a crop has been set on this axis.
func (c CropRange) Active() bool { return c.active }

// TransformStack owns the per-view transforms and the crop ranges. In
// coordinated mode, zoom and pan against any of the three orthogonal views
// broadcast identically to the other two so relative scale and framing stay
// locked; the oblique view always zooms and pans independently.
type TransformStack struct {
	transforms  map[models.View]*Transform
	crops       [3]CropRange
	coordinated bool
}

// NewTransformStack builds a stack with identity transforms for all four
// views and coordinated mode enabled.
func NewTransformStack(minZoom, maxZoom float64) *TransformStack {
	ts := &TransformStack{
		transforms:  make(map[models.View]*Transform, 4),
		coordinated: true,
	}
	for _, v := range []models.View{models.Axial, models.Coronal, models.Sagittal, models.Oblique} {
		ts.transforms[v] = newTransform(minZoom, maxZoom)
	}
	return ts
}

// SetCoordinated enables or disables coordinated zoom/pan across the
// orthogonal views.
func (ts *TransformStack) SetCoordinated(on bool) { ts.coordinated = on }

// Get returns the transform for a view.
func (ts *TransformStack) Get(v models.View) *Transform {
	return ts.transforms[v]
}

// targets returns the transforms an interaction against view v applies to.
func (ts *TransformStack) targets(v models.View) []*Transform {
	if v == models.Oblique || !ts.coordinated {
		return []*Transform{ts.transforms[v]}
	}
	out := make([]*Transform, 0, len(models.Orthogonal))
	for _, o := range models.Orthogonal {
		out = append(out, ts.transforms[o])
	}
	return out
}

// Zoom applies an anchor-preserving zoom against view v, broadcasting to the
// coordinated views when applicable.
func (ts *TransformStack) Zoom(v models.View, factor, anchorX, anchorY float64) {
	for _, t := range ts.targets(v) {
		t.ZoomBy(factor, anchorX, anchorY)
	}
}

// Pan applies a pan delta against view v, broadcasting to the coordinated
// views when applicable.
func (ts *TransformStack) Pan(v models.View, dx, dy float64) {
	for _, t := range ts.targets(v) {
		t.PanBy(dx, dy)
	}
}

// Crop sets the renderable slice range [lo, hi] along the given grid axis.
func (ts *TransformStack) Crop(axis, lo, hi, dim int) error {
	if axis < 0 || axis > 2 {
		return fmt.Errorf("view: invalid crop axis %d", axis)
	}
	if lo < 0 || hi > dim-1 || lo > hi {
		return fmt.Errorf("view: crop range [%d, %d] outside axis %d of %d slices", lo, hi, axis, dim)
	}
	ts.crops[axis] = CropRange{Lo: lo, Hi: hi, active: true}
	return nil
}

// ClearCrop removes the crop along the given grid axis.
func (ts *TransformStack) ClearCrop(axis int) {
	if axis >= 0 && axis <= 2 {
		ts.crops[axis] = CropRange{}
	}
}

// CropFor returns the effective slice range along axis for a grid dimension
// of dim slices: the crop range if one is set, otherwise the full range.
func (ts *TransformStack) CropFor(axis, dim int) (lo, hi int) {
	if axis >= 0 && axis <= 2 && ts.crops[axis].active {
		return ts.crops[axis].Lo, ts.crops[axis].Hi
	}
	return 0, dim - 1
}

// Reset restores identity transforms and clears all crops.
func (ts *TransformStack) Reset() {
	for _, t := range ts.transforms {
		t.Reset()
	}
	ts.crops = [3]CropRange{}
}
