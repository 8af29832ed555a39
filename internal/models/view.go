// Package models defines the small shared identifiers used across the
// viewer: which view a UI event belongs to and which interaction mode is
// active.
package models

// View identifies one of the four slice views.
type View int

const (
	Axial View = iota
	Coronal
	Sagittal
	Oblique
)

// Orthogonal lists the three canonical views, the ones coordinated zoom and
// cursor synchronization span.
var Orthogonal = []View{Axial, Coronal, Sagittal}

func (v View) String() string {
	switch v {
	case Axial:
		return "axial"
	case Coronal:
		return "coronal"
	case Sagittal:
		return "sagittal"
	case Oblique:
		return "oblique"
	default:
		return "unknown"
	}
}

// Mode is the active pointer-interaction mode. The geometry and resampling
// core is mode-agnostic; the mode only selects which handler a pointer event
// is routed to.
type Mode int

const (
	// ModeSlide scrolls through slices with the wheel.
	ModeSlide Mode = iota
	// ModeCrosshair drags the shared 3D cursor within the viewed plane.
	ModeCrosshair
	// ModeContrast drags window/level.
	ModeContrast
	// ModeZoom zooms with the wheel and pans with drag.
	ModeZoom
	// ModeCrop selects a slice-index export range.
	ModeCrop
	// ModeRotate drags the oblique rotation handle.
	ModeRotate
	// ModeCine toggles timed playback.
	ModeCine
)

func (m Mode) String() string {
	switch m {
	case ModeSlide:
		return "slide"
	case ModeCrosshair:
		return "crosshair"
	case ModeContrast:
		return "contrast"
	case ModeZoom:
		return "zoom"
	case ModeCrop:
		return "crop"
	case ModeRotate:
		return "rotate"
	case ModeCine:
		return "cine"
	default:
		return "unknown"
	}
}
