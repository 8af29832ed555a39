package view

import (
	"image"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mprview/internal/models"
	"mprview/pkg/config"
	"mprview/pkg/geom"
	"mprview/pkg/volume"
)

func makeViewer(t *testing.T, nx, ny, nz int, spacing geom.Vec3) (*Viewer, *volume.Grid) {
	t.Helper()
	data := make([]float64, nx*ny*nz)
	for i := range data {
		data[i] = float64(i % 251)
	}
	g, err := volume.NewGrid(nx, ny, nz, spacing, geom.Vec3{}, nil, data)
	require.NoError(t, err)
	return NewViewer(g, config.DefaultConfig()), g
}

// planeDistance is the distance from point p to the plane.
func planeDistance(plane geom.PlaneSpec, p geom.Vec3) float64 {
	return math.Abs(p.Sub(plane.Origin).Dot(plane.Normal()))
}

// assertAllViewsThroughCursor checks the synchronization contract: after any event,
// every view's plane passes through the one shared cursor.
func assertAllViewsThroughCursor(t *testing.T, v *Viewer) {
	t.Helper()
	cursor := v.Cursor()
	for _, id := range []models.View{models.Axial, models.Coronal, models.Sagittal, models.Oblique} {
		plane, err := v.Plane(id)
		require.NoError(t, err)
		assert.InDelta(t, 0, planeDistance(plane, cursor), 1e-9,
			"%v plane does not pass through the cursor", id)
	}
}

func TestViewerStartsAtCenter(t *testing.T) {
	v, g := makeViewer(t, 16, 16, 16, geom.Vec3{X: 1, Y: 1, Z: 1})
	assert.Equal(t, g.Center(), v.Cursor())
	assertAllViewsThroughCursor(t, v)
}

func TestScrollMovesAlongNormal(t *testing.T) {
	v, _ := makeViewer(t, 16, 16, 16, geom.Vec3{X: 1, Y: 1, Z: 2})

	before := v.Cursor()
	require.NoError(t, v.HandleScroll(models.Axial, 3))
	after := v.Cursor()

	// Axial normal is z; one step is the z spacing of 2.
	assert.InDelta(t, before.Z+3*2, after.Z, 1e-9)
	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)
	assertAllViewsThroughCursor(t, v)
}

func TestScrollClampsToVolume(t *testing.T) {
	v, g := makeViewer(t, 8, 8, 8, geom.Vec3{X: 1, Y: 1, Z: 1})

	require.NoError(t, v.HandleScroll(models.Sagittal, 1000))
	i, _, _ := g.PhysicalToVoxel(v.Cursor())
	assert.InDelta(t, 7, i, 1e-9, "scroll must clamp at the last slice")

	require.NoError(t, v.HandleScroll(models.Sagittal, -1000))
	i, _, _ = g.PhysicalToVoxel(v.Cursor())
	assert.InDelta(t, 0, i, 1e-9, "scroll must clamp at the first slice")
	assertAllViewsThroughCursor(t, v)
}

func TestScrollUnknownView(t *testing.T) {
	v, _ := makeViewer(t, 8, 8, 8, geom.Vec3{X: 1, Y: 1, Z: 1})
	err := v.HandleScroll(models.View(99), 1)
	assert.ErrorIs(t, err, ErrUnknownView)
}

func TestDragPreservesOutOfPlaneCoordinate(t *testing.T) {
	v, _ := makeViewer(t, 32, 32, 32, geom.Vec3{X: 1, Y: 1, Z: 1})

	before := v.Cursor()
	// Sagittal normal is x: a click in the sagittal view may change y and z
	// but never the cursor's x.
	require.NoError(t, v.HandleDrag(models.Sagittal, 5, 9))
	after := v.Cursor()

	assert.InDelta(t, before.X, after.X, 1e-9,
		"a 2D click must not move the cursor along the viewed plane's normal")
	assert.NotEqual(t, before, after, "the in-plane coordinates should move")
	assertAllViewsThroughCursor(t, v)
}

func TestDragHonorsTransform(t *testing.T) {
	v, _ := makeViewer(t, 32, 32, 32, geom.Vec3{X: 1, Y: 1, Z: 1})

	// Without zoom, dragging to the display center puts the cursor at the
	// plane center.
	c, _ := v.Plane(models.Axial)
	w, h := 32, 32
	require.NoError(t, v.HandleDrag(models.Axial, float64(w)/2, float64(h)/2))
	assert.InDelta(t, 0, v.Cursor().Sub(c.Origin).Len(), 1e-9)

	// With a 2x zoom the same display point names a different image point.
	require.NoError(t, v.HandleZoom(models.Axial, 2, 0, 0))
	before := v.Cursor()
	require.NoError(t, v.HandleDrag(models.Axial, float64(w)/2, float64(h)/2))
	assert.NotEqual(t, before, v.Cursor())
	assertAllViewsThroughCursor(t, v)
}

func TestCursorDisplayTracksTransform(t *testing.T) {
	v, _ := makeViewer(t, 32, 32, 32, geom.Vec3{X: 1, Y: 1, Z: 1})

	// Every view's plane is re-derived through the cursor, so the cursor
	// projects to the image center; with an identity transform that is the
	// display center too.
	x, y, err := v.CursorDisplay(models.Axial)
	require.NoError(t, err)
	assert.InDelta(t, 16, x, 1e-9)
	assert.InDelta(t, 16, y, 1e-9)

	// Zoom about the display origin, then pan: the crosshair position moves
	// with the transform.
	require.NoError(t, v.HandleZoom(models.Axial, 2, 0, 0))
	require.NoError(t, v.HandlePan(models.Axial, 5, -3))
	x, y, err = v.CursorDisplay(models.Axial)
	require.NoError(t, err)
	assert.InDelta(t, 16*2+5, x, 1e-9)
	assert.InDelta(t, 16*2-3, y, 1e-9)

	_, _, err = v.CursorDisplay(models.View(99))
	assert.ErrorIs(t, err, ErrUnknownView)
}

func TestResetRecentersCursor(t *testing.T) {
	v, g := makeViewer(t, 16, 16, 16, geom.Vec3{X: 1, Y: 1, Z: 1})

	require.NoError(t, v.HandleScroll(models.Coronal, 4))
	v.ResetCursor()
	assert.Equal(t, g.Center(), v.Cursor())
	assertAllViewsThroughCursor(t, v)
}

func TestCoordinatedZoom(t *testing.T) {
	v, _ := makeViewer(t, 16, 16, 16, geom.Vec3{X: 1, Y: 1, Z: 1})

	anchorX, anchorY := 10.0, 20.0
	tA := v.Transforms().Get(models.Axial)
	// The image point under the anchor before zooming.
	px, py := tA.ToImage(anchorX, anchorY)

	require.NoError(t, v.HandleZoom(models.Axial, 1.5, anchorX, anchorY))

	// Anchor preservation in the zoomed view.
	dx, dy := tA.ToDisplay(px, py)
	assert.InDelta(t, anchorX, dx, 1e-9)
	assert.InDelta(t, anchorY, dy, 1e-9)

	// Identical factor in the other orthogonal views, oblique untouched.
	assert.Equal(t, 1.5, v.Transforms().Get(models.Coronal).Zoom)
	assert.Equal(t, 1.5, v.Transforms().Get(models.Sagittal).Zoom)
	assert.Equal(t, 1.0, v.Transforms().Get(models.Oblique).Zoom)
}

func TestZoomClamped(t *testing.T) {
	v, _ := makeViewer(t, 16, 16, 16, geom.Vec3{X: 1, Y: 1, Z: 1})

	require.NoError(t, v.HandleZoom(models.Axial, 1e6, 0, 0))
	assert.Equal(t, config.DefaultConfig().Interaction.MaxZoom, v.Transforms().Get(models.Axial).Zoom)

	require.NoError(t, v.HandleZoom(models.Axial, 1e-6, 0, 0))
	assert.Equal(t, config.DefaultConfig().Interaction.MinZoom, v.Transforms().Get(models.Axial).Zoom)
}

func TestCoordinatedPanAndObliqueExemption(t *testing.T) {
	v, _ := makeViewer(t, 16, 16, 16, geom.Vec3{X: 1, Y: 1, Z: 1})

	require.NoError(t, v.HandlePan(models.Coronal, 7, -3))
	for _, id := range models.Orthogonal {
		tr := v.Transforms().Get(id)
		assert.Equal(t, 7.0, tr.PanX, "%v pan x", id)
		assert.Equal(t, -3.0, tr.PanY, "%v pan y", id)
	}
	assert.Equal(t, 0.0, v.Transforms().Get(models.Oblique).PanX)

	require.NoError(t, v.HandlePan(models.Oblique, 2, 2))
	assert.Equal(t, 7.0, v.Transforms().Get(models.Axial).PanX, "oblique pan must not broadcast")
}

func TestUncoordinatedZoomIsLocal(t *testing.T) {
	v, _ := makeViewer(t, 16, 16, 16, geom.Vec3{X: 1, Y: 1, Z: 1})
	v.Transforms().SetCoordinated(false)

	require.NoError(t, v.HandleZoom(models.Axial, 2, 0, 0))
	assert.Equal(t, 2.0, v.Transforms().Get(models.Axial).Zoom)
	assert.Equal(t, 1.0, v.Transforms().Get(models.Coronal).Zoom)
}

func TestRotateUpdatesObliqueOnly(t *testing.T) {
	v, _ := makeViewer(t, 16, 16, 16, geom.Vec3{X: 1, Y: 1, Z: 1})

	axialBefore, _ := v.Plane(models.Axial)
	require.NoError(t, v.HandleRotate(RotationU, 30))

	oblique, _ := v.Plane(models.Oblique)
	axialAfter, _ := v.Plane(models.Axial)

	assert.Greater(t, oblique.Normal().Sub(geom.Vec3{Z: 1}).Len(), 0.1, "oblique normal must tilt")
	assert.Equal(t, axialBefore, axialAfter, "canonical planes are unaffected by oblique rotation")
	assertAllViewsThroughCursor(t, v)
}

func TestRotateFullTurn(t *testing.T) {
	v, _ := makeViewer(t, 16, 16, 16, geom.Vec3{X: 1, Y: 1, Z: 1})

	start, _ := v.Plane(models.Oblique)
	for i := 0; i < 36; i++ {
		require.NoError(t, v.HandleRotate(RotationV, 10))
	}
	end, _ := v.Plane(models.Oblique)

	assert.InDelta(t, 0, end.UAxis.Sub(start.UAxis).Len(), 1e-9)
	assert.InDelta(t, 0, end.VAxis.Sub(start.VAxis).Len(), 1e-9)
}

func TestLabelVolumeMismatchRejected(t *testing.T) {
	v, _ := makeViewer(t, 16, 16, 16, geom.Vec3{X: 1, Y: 1, Z: 1})

	bad, err := volume.NewGrid(16, 16, 16, geom.Vec3{X: 1, Y: 1, Z: 2}, geom.Vec3{}, nil, make([]float64, 16*16*16))
	require.NoError(t, err)
	assert.ErrorIs(t, v.SetLabelVolume(bad), volume.ErrVolumeMismatch)
}

func TestGetViewImage(t *testing.T) {
	v, g := makeViewer(t, 16, 16, 16, geom.Vec3{X: 1, Y: 1, Z: 1})

	img, err := v.GetViewImage(models.Axial)
	require.NoError(t, err)
	_, isGray := img.(*image.Gray)
	assert.True(t, isGray, "without an overlay the view image is grayscale")

	// Attach a matching label volume: image becomes a color composite.
	labelData := make([]float64, 16*16*16)
	for k := 6; k < 10; k++ {
		for j := 6; j < 10; j++ {
			for i := 6; i < 10; i++ {
				labelData[k*256+j*16+i] = 1
			}
		}
	}
	labels, err := volume.NewGrid(16, 16, 16, geom.Vec3{X: 1, Y: 1, Z: 1}, geom.Vec3{}, nil, labelData)
	require.NoError(t, err)
	labels.SetBackground(0)
	require.NoError(t, v.SetLabelVolume(labels))
	require.True(t, g.SameGeometry(labels))

	img, err = v.GetViewImage(models.Axial)
	require.NoError(t, err)
	_, isRGBA := img.(*image.RGBA)
	assert.True(t, isRGBA, "with an overlay the view image is composited")

	_, err = v.GetViewImage(models.View(42))
	assert.ErrorIs(t, err, ErrUnknownView)
}

func TestCropRestrictsExportRange(t *testing.T) {
	v, _ := makeViewer(t, 16, 16, 16, geom.Vec3{X: 1, Y: 1, Z: 1})

	axis, lo, hi, err := v.ExportRange(models.Axial)
	require.NoError(t, err)
	assert.Equal(t, 2, axis)
	assert.Equal(t, 0, lo)
	assert.Equal(t, 15, hi)

	require.NoError(t, v.Crop(2, 4, 9))
	_, lo, hi, err = v.ExportRange(models.Axial)
	require.NoError(t, err)
	assert.Equal(t, 4, lo)
	assert.Equal(t, 9, hi)

	v.ClearCrop(2)
	_, lo, hi, _ = v.ExportRange(models.Axial)
	assert.Equal(t, 0, lo)
	assert.Equal(t, 15, hi)

	assert.Error(t, v.Crop(2, 10, 99), "crop past the axis end is refused")
	assert.Error(t, v.Crop(7, 0, 1), "invalid axis is refused")
}

func TestCineStepWrapsWithinCrop(t *testing.T) {
	v, g := makeViewer(t, 16, 16, 16, geom.Vec3{X: 1, Y: 1, Z: 1})
	require.NoError(t, v.Crop(2, 4, 6))

	// Cursor starts at k=7.5; the first step leaves the crop range and
	// wraps to its start.
	v.cineStep(models.Axial)
	_, _, k := g.PhysicalToVoxel(v.Cursor())
	assert.InDelta(t, 4, k, 1e-9)

	v.cineStep(models.Axial)
	_, _, k = g.PhysicalToVoxel(v.Cursor())
	assert.InDelta(t, 5, k, 1e-9)

	v.cineStep(models.Axial)
	v.cineStep(models.Axial)
	_, _, k = g.PhysicalToVoxel(v.Cursor())
	assert.InDelta(t, 4, k, 1e-9, "playback wraps back to the crop start")
	assertAllViewsThroughCursor(t, v)
}

func TestCineStartStop(t *testing.T) {
	v, _ := makeViewer(t, 16, 16, 16, geom.Vec3{X: 1, Y: 1, Z: 1})

	before := v.Cursor()
	require.NoError(t, v.StartCine(models.Axial))
	assert.True(t, v.CineActive())
	require.NoError(t, v.StartCine(models.Axial), "starting twice is a no-op")

	// Default playback is 10 fps; wait long enough for at least one tick.
	time.Sleep(350 * time.Millisecond)
	v.StopCine()
	assert.False(t, v.CineActive())

	after := v.Cursor()
	assert.NotEqual(t, before, after, "playback should have advanced the cursor")

	// Stopping must be idempotent and safe with no playback running.
	v.StopCine()
	assertAllViewsThroughCursor(t, v)
}

func TestSetCursorClamps(t *testing.T) {
	v, g := makeViewer(t, 16, 16, 16, geom.Vec3{X: 1, Y: 1, Z: 1})

	v.SetCursor(geom.Vec3{X: 1e6, Y: -1e6, Z: 3})
	i, j, _ := g.PhysicalToVoxel(v.Cursor())
	assert.InDelta(t, 15, i, 1e-9)
	assert.InDelta(t, 0, j, 1e-9)
	assertAllViewsThroughCursor(t, v)
}

func TestContrastAdjustsWindow(t *testing.T) {
	v, _ := makeViewer(t, 16, 16, 16, geom.Vec3{X: 1, Y: 1, Z: 1})

	before := v.Window()
	v.HandleContrast(10, 0)
	after := v.Window()
	assert.InDelta(t, before.Width()+20, after.Width(), 1e-9, "horizontal drag widens the window")
	assert.InDelta(t, before.Level(), after.Level(), 1e-9)

	v.HandleContrast(0, 5)
	assert.InDelta(t, after.Level()-10, v.Window().Level(), 1e-9, "vertical drag moves the level")
}
