package engine

import (
	"github.com/inamate/draftview/internal/document"
	"github.com/inamate/draftview/internal/geom"
)

// Style is the stroke and fill state for one draw call. Width and Dash are in
// device pixels and do not scale with zoom.
type Style struct {
	Stroke string    `json:"stroke,omitempty"`
	Fill   string    `json:"fill,omitempty"`
	Width  float64   `json:"width,omitempty"`
	Dash   []float64 `json:"dash,omitempty"`
}

// Surface receives draw calls in local coordinates. SetTransform is called with
// the composed view and block transform before an entity is drawn.
type Surface interface {
	SetTransform(m geom.Matrix2D)
	StrokePath(p *Path, style Style) error
	FillPath(p *Path, style Style) error
	// DrawText draws s anchored at a local point. size is in pixels and
	// rotation in radians relative to the local x axis.
	DrawText(s string, at geom.Point, size, rotation float64, style Style) error
}

// EntityTracker is implemented by surfaces that attribute draw calls to entities.
type EntityTracker interface {
	BeginEntity(e document.Entity)
}
