package view

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"mprview/internal/models"
	"mprview/pkg/config"
	"mprview/pkg/geom"
	"mprview/pkg/render"
	"mprview/pkg/resample"
	"mprview/pkg/volume"
)

// ErrUnknownView is returned when an event names a view the viewer does not
// have.
var ErrUnknownView = errors.New("view: unknown view")

// RotationAxis selects which in-plane handle axis an oblique rotation drag
// turns the plane about.
type RotationAxis int

const (
	// RotationU rotates about the plane's current u basis vector.
	RotationU RotationAxis = iota
	// RotationV rotates about the plane's current v basis vector.
	RotationV
)

// Viewer is the slicing engine's front door. It owns the shared cursor, the
// four view controllers, the transform stack, and the display window, and it
// re-resamples every view synchronously after each mutation: when any Handle
// call returns, no view reflects a stale cursor, plane, or transform.
//
// All mutation is serialized behind one mutex (the single-writer contract),
// which also lets the cine ticker goroutine drive the same path safely.
type Viewer struct {
	mu sync.Mutex

	cfg *config.Config

	grid   *volume.Grid
	labels *volume.Grid

	cursor geom.Vec3

	controllers map[models.View]*Controller
	oblique     *resample.ObliqueDerivation

	transforms *TransformStack
	window     render.WindowLevel
	mode       models.Mode

	overlayVisible bool

	cine *cinePlayer
}

// NewViewer builds a viewer for the loaded volume with the cursor at the
// volume center and a window derived from the configured intensity
// percentiles.
func NewViewer(grid *volume.Grid, cfg *config.Config) *Viewer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	oblique := resample.NewOblique(grid)
	v := &Viewer{
		cfg:     cfg,
		grid:    grid,
		cursor:  grid.Center(),
		oblique: oblique,
		controllers: map[models.View]*Controller{
			models.Axial:    newController(models.Axial, resample.Axial()),
			models.Coronal:  newController(models.Coronal, resample.Coronal()),
			models.Sagittal: newController(models.Sagittal, resample.Sagittal()),
			models.Oblique:  newController(models.Oblique, oblique),
		},
		transforms: NewTransformStack(cfg.Interaction.MinZoom, cfg.Interaction.MaxZoom),
		window:     render.AutoWindow(grid, cfg.Display.WindowLowPercentile, cfg.Display.WindowHighPercentile),
		mode:       models.ModeSlide,
	}
	v.updateAll()
	return v
}

// SetLabelVolume attaches a segmentation volume for overlay rendering. The
// label grid must match the primary grid's geometry; a mismatch is refused
// before any resampling happens.
func (v *Viewer) SetLabelVolume(labels *volume.Grid) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if labels != nil && !v.grid.SameGeometry(labels) {
		return fmt.Errorf("view: label volume: %w", volume.ErrVolumeMismatch)
	}
	v.labels = labels
	v.overlayVisible = labels != nil
	v.updateAll()
	return nil
}

// SetOverlayVisible toggles the segmentation outline without detaching the
// label volume.
func (v *Viewer) SetOverlayVisible(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.overlayVisible = on
}

// SetMode changes the active interaction mode. The viewer only records the
// mode; the presentation layer owns mode-based event dispatch and reads it
// back through Mode to decide which Handle* call a pointer event becomes.
func (v *Viewer) SetMode(m models.Mode) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mode = m
}

// Mode returns the active interaction mode.
func (v *Viewer) Mode() models.Mode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mode
}

// Cursor returns the shared physical cursor point.
func (v *Viewer) Cursor() geom.Vec3 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cursor
}

// SetCursor moves the cursor to p, clamped to the volume bounds, and
// re-resamples every view.
func (v *Viewer) SetCursor(p geom.Vec3) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cursor = v.grid.Clamp(p)
	v.updateAll()
}

// ResetCursor recenters the cursor on the volume.
func (v *Viewer) ResetCursor() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cursor = v.grid.Center()
	v.updateAll()
}

// HandleScroll moves the cursor along the named view's plane normal by delta
// voxel-equivalent steps, clamped to the volume bounds.
func (v *Viewer) HandleScroll(id models.View, delta int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	c, ok := v.controllers[id]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownView, id)
	}
	normal := c.Plane().Normal()
	step := v.stepAlong(normal)
	v.cursor = v.grid.Clamp(v.cursor.Add(normal.Scale(float64(delta) * step)))
	v.updateAll()
	return nil
}

// HandleDrag moves the cursor to the physical point under the display
// coordinates in the named view. The point is inverse-transformed through
// the view's zoom/pan and plane; only the two in-plane coordinates change,
// the coordinate along the view's own normal is preserved because the plane
// passes through the previous cursor.
func (v *Viewer) HandleDrag(id models.View, displayX, displayY float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	c, ok := v.controllers[id]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownView, id)
	}
	t := v.transforms.Get(id)
	ix, iy := t.ToImage(displayX, displayY)

	w, h := c.Size()
	u := clamp01(ix / float64(w))
	vv := clamp01(iy / float64(h))

	v.cursor = v.grid.Clamp(c.Plane().PointAt(u, vv))
	v.updateAll()
	return nil
}

// CursorDisplay reports where the shared cursor falls on the named view in
// display coordinates, for crosshair placement. It is the inverse of
// HandleDrag: the cursor is projected onto the view's plane, scaled to pixel
// coordinates, and run through the view's zoom/pan transform.
func (v *Viewer) CursorDisplay(id models.View) (x, y float64, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	c, ok := v.controllers[id]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %v", ErrUnknownView, id)
	}
	u, vv := c.Plane().Project(v.cursor)
	w, h := c.Size()
	t := v.transforms.Get(id)
	x, y = t.ToDisplay(u*float64(w), vv*float64(h))
	return x, y, nil
}

// HandleZoom applies an anchor-preserving zoom of the given factor against
// the named view. In coordinated mode the identical factor reaches the other
// orthogonal views; the oblique view always zooms alone.
func (v *Viewer) HandleZoom(id models.View, factor, anchorX, anchorY float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.controllers[id]; !ok {
		return fmt.Errorf("%w: %v", ErrUnknownView, id)
	}
	v.transforms.Zoom(id, factor, anchorX, anchorY)
	return nil
}

// ZoomStep returns the configured per-notch zoom factor for wheel events;
// pass it (or its reciprocal) to HandleZoom.
func (v *Viewer) ZoomStep() float64 {
	return v.cfg.Interaction.ZoomStep
}

// HandlePan accumulates a pan offset against the named view, broadcast in
// coordinated mode.
func (v *Viewer) HandlePan(id models.View, dx, dy float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.controllers[id]; !ok {
		return fmt.Errorf("%w: %v", ErrUnknownView, id)
	}
	v.transforms.Pan(id, dx, dy)
	return nil
}

// HandleRotate applies an incremental oblique rotation of deltaDeg degrees
// about the selected in-plane handle axis. A rotation that would degenerate
// the plane basis is refused: the previous plane stays in effect and
// geom.ErrInvalidPlane is returned.
func (v *Viewer) HandleRotate(about RotationAxis, deltaDeg float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	axis := v.oblique.UAxis()
	if about == RotationV {
		axis = v.oblique.VAxis()
	}
	if err := v.oblique.Rotate(axis, geom.Degrees(deltaDeg)); err != nil {
		return err
	}
	v.controllers[models.Oblique].update(v.grid, v.labels, v.cursor)
	return nil
}

// ResetRotation restores the oblique plane to the axial orientation.
func (v *Viewer) ResetRotation() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.oblique.Reset(v.grid)
	v.controllers[models.Oblique].update(v.grid, v.labels, v.cursor)
}

// HandleContrast adjusts the display window from contrast-drag deltas:
// horizontal motion changes the window width, vertical motion the level.
func (v *Viewer) HandleContrast(dx, dy float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.window = v.window.Adjust(dx*2, -dy*2)
}

// Window returns the current display window.
func (v *Viewer) Window() render.WindowLevel {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.window
}

// SetWindow replaces the display window.
func (v *Viewer) SetWindow(w render.WindowLevel) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.window = w
}

// Crop restricts the renderable slice range along a grid axis for export and
// cine playback. The volume itself is untouched.
func (v *Viewer) Crop(axis, lo, hi int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.transforms.Crop(axis, lo, hi, v.grid.Dim(axis))
}

// ClearCrop removes the crop along a grid axis.
func (v *Viewer) ClearCrop(axis int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.transforms.ClearCrop(axis)
}

// Transforms exposes the transform stack, for presentation code that needs
// the display mapping.
func (v *Viewer) Transforms() *TransformStack {
	return v.transforms
}

// Plane returns the named view's current cutting plane.
func (v *Viewer) Plane(id models.View) (geom.PlaneSpec, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	c, ok := v.controllers[id]
	if !ok {
		return geom.PlaneSpec{}, fmt.Errorf("%w: %v", ErrUnknownView, id)
	}
	return c.Plane(), nil
}

// GetViewImage returns the named view's display pixels: the resampled slice
// through the current window, with the segmentation outline composited on
// top when an overlay volume is attached and visible.
func (v *Viewer) GetViewImage(id models.View) (image.Image, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	c, ok := v.controllers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownView, id)
	}
	gray := render.Map(c.Intensity(), v.window)
	if v.overlayVisible && c.Label() != nil {
		edges := resample.EdgeMask(c.Label(), v.cfg.Display.EdgeThreshold)
		return render.Composite(gray, edges), nil
	}
	return gray, nil
}

// Exporter returns a slice exporter bound to the primary volume and the
// current display window.
func (v *Viewer) Exporter() *render.Exporter {
	v.mu.Lock()
	defer v.mu.Unlock()
	return render.NewExporter(v.grid, v.window)
}

// ExportRange returns the effective slice range for export along the named
// orthogonal view's normal axis, honoring any crop.
func (v *Viewer) ExportRange(id models.View) (axis, lo, hi int, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	c, ok := v.controllers[id]
	if !ok {
		return 0, 0, 0, fmt.Errorf("%w: %v", ErrUnknownView, id)
	}
	axis = c.deriv.NormalAxis()
	if axis < 0 {
		return 0, 0, 0, fmt.Errorf("view: %v has no export axis", id)
	}
	lo, hi = v.transforms.CropFor(axis, v.grid.Dim(axis))
	return axis, lo, hi, nil
}

// updateAll re-derives every view's plane from the cursor and re-resamples.
// Callers hold the mutex.
func (v *Viewer) updateAll() {
	for _, c := range v.controllers {
		c.update(v.grid, v.labels, v.cursor)
	}
}

// stepAlong returns one voxel-equivalent physical step along an arbitrary
// unit direction: the spacing of the grid axis the direction is most aligned
// with. For canonical views this is exactly the slice spacing of that view.
func (v *Viewer) stepAlong(dir geom.Vec3) float64 {
	return v.grid.SpacingAlong(v.dominantAxis(dir))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
