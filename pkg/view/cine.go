package view

import (
	"fmt"
	"math"
	"time"

	"mprview/internal/models"
	"mprview/pkg/geom"
)

// cinePlayer drives timed slice playback. The ticker goroutine calls back
// into the viewer's normal mutation path, so cine frames go through the same
// synchronous resample as interactive scrolling.
type cinePlayer struct {
	view   models.View
	ticker *time.Ticker
	stop   chan struct{}
	done   chan struct{}
}

// StartCine begins playback in the named view at the configured frame rate,
// advancing one slice per tick with wraparound inside the crop range.
// Starting while playback is already running is a no-op.
func (v *Viewer) StartCine(id models.View) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.controllers[id]; !ok {
		return fmt.Errorf("%w: %v", ErrUnknownView, id)
	}
	if v.cine != nil {
		return nil
	}

	cp := &cinePlayer{
		view:   id,
		ticker: time.NewTicker(time.Second / time.Duration(v.cfg.Cine.FPS)),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	v.cine = cp
	go cp.run(v)
	return nil
}

// StopCine halts playback. It returns only after the playback goroutine has
// exited, so no resample is in flight once StopCine returns; stopping is
// always aligned to a tick boundary.
func (v *Viewer) StopCine() {
	v.mu.Lock()
	cp := v.cine
	v.cine = nil
	v.mu.Unlock()

	if cp == nil {
		return
	}
	cp.ticker.Stop()
	close(cp.stop)
	<-cp.done
}

// CineActive reports whether playback is running.
func (v *Viewer) CineActive() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cine != nil
}

func (cp *cinePlayer) run(v *Viewer) {
	defer close(cp.done)
	for {
		select {
		case <-cp.stop:
			return
		case <-cp.ticker.C:
			v.cineStep(cp.view)
		}
	}
}

// cineStep advances the cursor one slice along the view's normal axis,
// wrapping inside the crop range (or the full axis without one).
func (v *Viewer) cineStep(id models.View) {
	v.mu.Lock()
	defer v.mu.Unlock()

	c, ok := v.controllers[id]
	if !ok {
		return
	}
	axis := c.deriv.NormalAxis()
	if axis < 0 {
		axis = v.dominantAxis(c.Plane().Normal())
	}

	i, j, k := v.grid.PhysicalToVoxel(v.cursor)
	voxel := [3]float64{i, j, k}

	lo, hi := v.transforms.CropFor(axis, v.grid.Dim(axis))
	idx := int(math.Round(voxel[axis])) + 1
	if idx > hi || idx < lo {
		idx = lo
	}
	voxel[axis] = float64(idx)

	v.cursor = v.grid.Clamp(v.grid.VoxelToPhysical(voxel[0], voxel[1], voxel[2]))
	v.updateAll()
}

// dominantAxis returns the grid index axis a direction is most aligned with.
func (v *Viewer) dominantAxis(dir geom.Vec3) int {
	best, bestDot := 2, 0.0
	for a := 0; a < 3; a++ {
		d := math.Abs(dir.Dot(v.grid.AxisDir(a)))
		if d > bestDot {
			best, bestDot = a, d
		}
	}
	return best
}
