package engine

import (
	"github.com/inamate/draftview/internal/document"
	"github.com/inamate/draftview/internal/geom"
)

// DefaultBounds is what ComputeBounds returns when no entity has bounds.
var DefaultBounds = geom.Box(geom.Pt(0, 0), geom.Pt(100, 100))

// BoundsOf returns an entity's bounding box in its own coordinate space.
// Lines, circles, arcs and points have bounds; every other kind is Empty.
// Arcs use the full circle. Malformed entities yield Empty, never a panic.
func BoundsOf(e document.Entity) (b geom.BoundingBox) {
	if e == nil {
		return geom.Empty()
	}
	defer func() {
		if recover() != nil {
			b = geom.Empty()
		}
	}()
	if e.Validate() != nil {
		return geom.Empty()
	}
	var v boundsVisitor
	e.Accept(&v)
	return v.box
}

type boundsVisitor struct {
	box geom.BoundingBox
}

func (v *boundsVisitor) VisitLine(e *document.Line) {
	v.box = geom.Box(e.Start, e.End)
}

func (v *boundsVisitor) VisitArc(e *document.Arc) {
	v.box = circleBox(e.Center, e.Radius)
}

func (v *boundsVisitor) VisitCircle(e *document.Circle) {
	v.box = circleBox(e.Center, e.Radius)
}

func (v *boundsVisitor) VisitPoint(e *document.Point) {
	v.box = geom.Box(e.Position, e.Position)
}

func (v *boundsVisitor) VisitEllipse(*document.Ellipse)     {}
func (v *boundsVisitor) VisitPolyline(*document.Polyline)   {}
func (v *boundsVisitor) VisitText(*document.Text)           {}
func (v *boundsVisitor) VisitInsert(*document.Insert)       {}
func (v *boundsVisitor) VisitHatch(*document.Hatch)         {}
func (v *boundsVisitor) VisitDimension(*document.Dimension) {}
func (v *boundsVisitor) VisitUnknown(*document.Unknown)     {}

func circleBox(c geom.Point, r float64) geom.BoundingBox {
	return geom.Box(geom.Pt(c.X-r, c.Y-r), geom.Pt(c.X+r, c.Y+r))
}

// ComputeBounds merges the bounds of all entities. If none contributes, it
// returns DefaultBounds so viewport math always has a box to fit.
func ComputeBounds(entities []document.Entity) geom.BoundingBox {
	out := geom.Empty()
	for _, e := range entities {
		out = out.Merge(BoundsOf(e))
	}
	if out.IsEmpty() {
		return DefaultBounds
	}
	return out
}
