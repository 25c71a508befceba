package engine

import (
	"log/slog"

	"github.com/inamate/draftview/internal/document"
	"github.com/inamate/draftview/internal/geom"
)

const (
	DefaultEllipseSegments = 64
	DefaultPointRadius     = 2.0 // px
	DefaultTextHeight      = 2.5 // drawing units, for dimensions without one
	pixelsPerMillimeter    = 96 / 25.4
)

// DefaultStyle is used for entities without a resolvable colour or weight.
var DefaultStyle = Style{Stroke: "#ffffff", Width: 1}

// DefaultHighlight is applied to the selected entity.
var DefaultHighlight = Style{Stroke: "#00a8ff", Width: 3}

var placeholderDash = []float64{4, 3}

// RenderContext carries everything one render pass needs. It is built per call
// and never kept across passes.
type RenderContext struct {
	Surface   Surface
	Stack     *TransformStack
	Hits      *HitTestIndex
	Visible   LayerSet
	Selection document.Entity
	LOD       LODFilter
	Space     document.Space

	Style           Style
	Highlight       Style
	EllipseSegments int
	PointRadius     float64

	Logger *slog.Logger
}

// NewRenderContext returns a context drawing to surface through view.
func NewRenderContext(surface Surface, view geom.Matrix2D) *RenderContext {
	return &RenderContext{
		Surface: surface,
		Stack:   NewTransformStack(view),
		Hits:    NewHitTestIndex(),
	}
}

func (rc *RenderContext) applyDefaults() {
	if rc.Stack == nil {
		rc.Stack = NewTransformStack(geom.Identity())
	}
	if rc.Hits == nil {
		rc.Hits = NewHitTestIndex()
	}
	if rc.Style.Stroke == "" {
		rc.Style.Stroke = DefaultStyle.Stroke
	}
	if rc.Style.Width <= 0 {
		rc.Style.Width = DefaultStyle.Width
	}
	if rc.Highlight.Stroke == "" {
		rc.Highlight.Stroke = DefaultHighlight.Stroke
	}
	if rc.Highlight.Width <= 0 {
		rc.Highlight.Width = DefaultHighlight.Width
	}
	if rc.EllipseSegments < 4 {
		rc.EllipseSegments = DefaultEllipseSegments
	}
	if rc.PointRadius <= 0 {
		rc.PointRadius = DefaultPointRadius
	}
	if rc.Logger == nil {
		rc.Logger = slog.Default()
	}
}
