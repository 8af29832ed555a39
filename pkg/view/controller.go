package view

import (
	"mprview/internal/models"
	"mprview/pkg/geom"
	"mprview/pkg/resample"
	"mprview/pkg/volume"
)

// Controller owns one view's derived plane and its resampled images. All
// four views share the identical resample pipeline; they differ only in the
// PlaneDerivation strategy injected here.
type Controller struct {
	id    models.View
	deriv resample.PlaneDerivation

	plane  geom.PlaneSpec
	width  int
	height int

	intensity *resample.Image
	label     *resample.Image
}

func newController(id models.View, deriv resample.PlaneDerivation) *Controller {
	return &Controller{id: id, deriv: deriv}
}

// update re-derives the plane from the cursor and re-resamples the intensity
// volume, plus the label volume against the identical plane when present.
func (c *Controller) update(g, labels *volume.Grid, cursor geom.Vec3) {
	c.plane = c.deriv.Derive(g, cursor)
	c.width, c.height = c.deriv.PixelDims(g)
	c.intensity = resample.Resample(g, c.plane, c.width, c.height)
	if labels != nil {
		c.label = resample.ResampleNearest(labels, c.plane, c.width, c.height)
	} else {
		c.label = nil
	}
}

// Plane returns the view's current cutting plane.
func (c *Controller) Plane() geom.PlaneSpec { return c.plane }

// Size returns the resampled image dimensions in pixels.
func (c *Controller) Size() (width, height int) { return c.width, c.height }

// Intensity returns the view's current resampled intensity image.
func (c *Controller) Intensity() *resample.Image { return c.intensity }

// Label returns the view's resampled label image, or nil without an overlay
// volume.
func (c *Controller) Label() *resample.Image { return c.label }
