package engine

import (
	"math"

	"github.com/inamate/draftview/internal/geom"
)

const (
	DefaultZoomStep   = 1.1
	DefaultZoomMin    = 0.1
	DefaultZoomMax    = 10.0
	DefaultFitPadding = 0.9
)

// ViewportConfig holds the zoom limits and fit padding.
type ViewportConfig struct {
	ZoomStep   float64 `toml:"zoom_step"`
	ZoomMin    float64 `toml:"zoom_min"`
	ZoomMax    float64 `toml:"zoom_max"`
	FitPadding float64 `toml:"fit_padding"`
}

func DefaultViewportConfig() ViewportConfig {
	return ViewportConfig{
		ZoomStep:   DefaultZoomStep,
		ZoomMin:    DefaultZoomMin,
		ZoomMax:    DefaultZoomMax,
		FitPadding: DefaultFitPadding,
	}
}

func (c ViewportConfig) withDefaults() ViewportConfig {
	d := DefaultViewportConfig()
	if c.ZoomStep <= 1 {
		c.ZoomStep = d.ZoomStep
	}
	if c.ZoomMin <= 0 {
		c.ZoomMin = d.ZoomMin
	}
	if c.ZoomMax < c.ZoomMin {
		c.ZoomMax = math.Max(d.ZoomMax, c.ZoomMin)
	}
	if c.FitPadding <= 0 || c.FitPadding > 1 {
		c.FitPadding = d.FitPadding
	}
	return c
}

// ViewportState is the user-controlled part of the view.
type ViewportState struct {
	Zoom float64    `json:"zoom"`
	Pan  geom.Point `json:"pan"`
}

// PanMode is the pointer state of a ViewportController.
type PanMode int

const (
	Idle PanMode = iota
	Panning
)

func (m PanMode) String() string {
	if m == Panning {
		return "panning"
	}
	return "idle"
}

// Button identifies a pointer button.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonMiddle
	ButtonSecondary
)

// ScreenToWorld maps a screen point into the zoomed and panned space.
func ScreenToWorld(p geom.Point, zoom float64, pan geom.Point) geom.Point {
	return p.Sub(pan).Div(zoom)
}

// WorldToScreen is the inverse of ScreenToWorld.
func WorldToScreen(p geom.Point, zoom float64, pan geom.Point) geom.Point {
	return p.Mul(zoom).Add(pan)
}

// ViewportController owns the zoom and pan state and turns pointer input into
// view changes. The full view transform is Translate(pan)·Scale(zoom)·fit where
// fit centres the document in the viewport.
type ViewportController struct {
	cfg        ViewportConfig
	state      ViewportState
	fit        geom.Matrix2D
	fitScale   float64
	size       geom.Size
	mode       PanMode
	last       geom.Point
	invalidate func()
}

// NewViewportController returns an Idle controller at zoom 1. invalidate, if
// non-nil, is called after every change to request a redraw.
func NewViewportController(cfg ViewportConfig, invalidate func()) *ViewportController {
	return &ViewportController{
		cfg:        cfg.withDefaults(),
		state:      ViewportState{Zoom: 1},
		fit:        geom.Identity(),
		fitScale:   1,
		invalidate: invalidate,
	}
}

func (v *ViewportController) State() ViewportState { return v.state }
func (v *ViewportController) Mode() PanMode        { return v.mode }
func (v *ViewportController) Size() geom.Size      { return v.size }
func (v *ViewportController) Config() ViewportConfig {
	return v.cfg
}

// FitScale is the document-to-screen scale chosen by the last FitToView.
func (v *ViewportController) FitScale() float64 { return v.fitScale }

// Scale is the effective document-to-screen scale.
func (v *ViewportController) Scale() float64 { return v.fitScale * v.state.Zoom }

// SetSize records the viewport size without changing the view.
func (v *ViewportController) SetSize(size geom.Size) {
	if size.IsDegenerate() {
		return
	}
	v.size = size
}

// ViewTransform maps document coordinates to screen pixels.
func (v *ViewportController) ViewTransform() geom.Matrix2D {
	return geom.Translate(v.state.Pan.X, v.state.Pan.Y).
		Multiply(geom.Scale(v.state.Zoom, v.state.Zoom)).
		Multiply(v.fit)
}

// ScreenToDocument maps a screen point to document coordinates.
func (v *ViewportController) ScreenToDocument(p geom.Point) geom.Point {
	inv, ok := v.fit.Invert()
	if !ok {
		return p
	}
	return inv.Apply(ScreenToWorld(p, v.state.Zoom, v.state.Pan))
}

// DocumentToScreen maps a document point to screen pixels.
func (v *ViewportController) DocumentToScreen(p geom.Point) geom.Point {
	return WorldToScreen(v.fit.Apply(p), v.state.Zoom, v.state.Pan)
}

// FitToView scales and centres bounds in the viewport with padding, then resets
// zoom and pan. A degenerate document or viewport leaves the view unchanged and
// returns false.
func (v *ViewportController) FitToView(bounds geom.BoundingBox, viewport geom.Size) bool {
	if bounds.IsEmpty() || viewport.IsDegenerate() {
		return false
	}
	dw, dh := bounds.Width(), bounds.Height()
	if dw <= 0 || dh <= 0 || !geom.IsFinite(dw) || !geom.IsFinite(dh) {
		return false
	}
	scale := math.Min(viewport.Width/dw, viewport.Height/dh) * v.cfg.FitPadding
	c := bounds.Center()
	v.size = viewport
	v.fitScale = scale
	v.fit = geom.Translate(viewport.Width/2, viewport.Height/2).
		Multiply(geom.Scale(scale, scale)).
		Multiply(geom.Translate(-c.X, -c.Y))
	v.state = ViewportState{Zoom: 1}
	v.changed()
	return true
}

// ResetView returns to zoom 1 and no pan, keeping the last fit.
func (v *ViewportController) ResetView() {
	v.state = ViewportState{Zoom: 1}
	v.changed()
}

// ZoomBy multiplies the zoom by factor, clamped to the configured range.
func (v *ViewportController) ZoomBy(factor float64) {
	if factor <= 0 || !geom.IsFinite(factor) {
		return
	}
	v.state.Zoom = v.clamp(v.state.Zoom * factor)
	v.changed()
}

// PanBy moves the view by a screen-space delta.
func (v *ViewportController) PanBy(d geom.Point) {
	if !d.IsFinite() {
		return
	}
	v.state.Pan = v.state.Pan.Add(d)
	v.changed()
}

// Wheel zooms in by ZoomStep per positive notch and out per negative notch.
func (v *ViewportController) Wheel(notches int) {
	if notches == 0 {
		return
	}
	v.ZoomBy(math.Pow(v.cfg.ZoomStep, float64(notches)))
}

// WheelAt zooms like Wheel but keeps the point under the cursor fixed.
func (v *ViewportController) WheelAt(p geom.Point, notches int) {
	if notches == 0 || !p.IsFinite() {
		return
	}
	anchor := ScreenToWorld(p, v.state.Zoom, v.state.Pan)
	v.state.Zoom = v.clamp(v.state.Zoom * math.Pow(v.cfg.ZoomStep, float64(notches)))
	v.state.Pan = p.Sub(anchor.Mul(v.state.Zoom))
	v.changed()
}

// PointerDown starts panning on the primary or middle button.
func (v *ViewportController) PointerDown(b Button, p geom.Point) {
	if b != ButtonPrimary && b != ButtonMiddle {
		return
	}
	v.mode = Panning
	v.last = p
}

// PointerMove pans by the delta since the previous move while panning.
func (v *ViewportController) PointerMove(p geom.Point) {
	if v.mode != Panning {
		return
	}
	d := p.Sub(v.last)
	v.last = p
	if d.X == 0 && d.Y == 0 {
		return
	}
	v.PanBy(d)
}

func (v *ViewportController) PointerUp() { v.mode = Idle }
func (v *ViewportController) FocusLost() { v.mode = Idle }

func (v *ViewportController) clamp(z float64) float64 {
	return math.Max(v.cfg.ZoomMin, math.Min(v.cfg.ZoomMax, z))
}

func (v *ViewportController) changed() {
	if v.invalidate != nil {
		v.invalidate()
	}
}
