package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/inamate/draftview/internal/document"
	"github.com/inamate/draftview/internal/geom"
)

var (
	ErrNilDocument = errors.New("engine: nil document")
	ErrNilSurface  = errors.New("engine: nil surface")
)

// RenderStats summarises one render pass.
type RenderStats struct {
	Drawn         int `json:"drawn"`
	Hidden        int `json:"hidden"`
	Culled        int `json:"culled"`
	Skipped       int `json:"skipped"`
	CyclesSkipped int `json:"cyclesSkipped"`
	Recorded      int `json:"recorded"`
	Pushes        int `json:"pushes"`
	Pops          int `json:"pops"`
}

// Render draws the active space of doc onto rc.Surface in document order and
// rebuilds rc.Hits. A failing entity is skipped and counted; only a nil document
// or surface is returned as an error.
func Render(doc *document.Document, rc *RenderContext) (RenderStats, error) {
	if doc == nil {
		return RenderStats{}, ErrNilDocument
	}
	if rc == nil || rc.Surface == nil {
		return RenderStats{}, ErrNilSurface
	}
	rc.applyDefaults()
	rc.Hits.Reset()

	d := &dispatcher{
		doc:      doc,
		rc:       rc,
		visiting: make(map[string]bool),
	}
	if t, ok := rc.Surface.(EntityTracker); ok {
		d.tracker = t
	}

	depth := rc.Stack.Depth()
	pushes, pops := rc.Stack.Counts()
	for _, e := range doc.Entities(rc.Space) {
		d.renderEntity(e, inherited{})
	}
	if d.tracker != nil {
		d.tracker.BeginEntity(nil)
	}

	afterPushes, afterPops := rc.Stack.Counts()
	d.stats.Pushes = afterPushes - pushes
	d.stats.Pops = afterPops - pops
	if d.stats.Pushes != d.stats.Pops || rc.Stack.Depth() != depth {
		rc.Logger.Error("transform stack unbalanced after render",
			"pushes", d.stats.Pushes, "pops", d.stats.Pops, "depth", rc.Stack.Depth(), "want_depth", depth)
		rc.Stack.Reset(rc.Stack.base)
	}
	rc.Surface.SetTransform(rc.Stack.Current())
	d.stats.Recorded = rc.Hits.Len()
	return d.stats, nil
}

// inherited is what block children take from the Insert that placed them.
type inherited struct {
	color    string
	width    float64
	selected bool
}

// frame is the state of the entity currently being dispatched.
type frame struct {
	entity   document.Entity
	style    Style
	inherit  inherited
	selected bool
}

type dispatcher struct {
	doc      *document.Document
	rc       *RenderContext
	tracker  EntityTracker
	visiting map[string]bool
	cur      frame
	err      error
	// cycle is set when the current Insert was skipped as re-entrant.
	cycle bool
	stats RenderStats
}

func (d *dispatcher) renderEntity(e document.Entity, parent inherited) {
	if e == nil {
		d.stats.Skipped++
		return
	}
	prev := d.cur
	defer func() {
		d.cur = prev
		if r := recover(); r != nil {
			d.err = nil
			d.cycle = false
			d.stats.Skipped++
			d.rc.Logger.Warn("skipping entity", "entity", document.EntityID(e), "kind", e.Kind(), "panic", r)
		}
	}()

	if !IsVisible(e, d.rc.Visible) {
		d.stats.Hidden++
		return
	}
	if err := e.Validate(); err != nil {
		d.stats.Skipped++
		d.rc.Logger.Warn("skipping entity", "entity", e.Head().ID, "kind", e.Kind(), "error", err)
		return
	}

	m := d.rc.Stack.Current()
	screen := BoundsOf(e).Transform(m)
	d.rc.Hits.Record(e, screen)

	selected := parent.selected || (d.rc.Selection != nil && e == d.rc.Selection)
	if d.rc.LOD.ShouldCull(screen, selected) {
		d.stats.Culled++
		return
	}

	style, inherit := d.resolveStyle(e.Head(), parent, selected)
	d.cur = frame{entity: e, style: style, inherit: inherit, selected: selected}
	d.err = nil
	d.cycle = false
	if d.tracker != nil {
		d.tracker.BeginEntity(e)
	}
	d.rc.Surface.SetTransform(m)

	e.Accept(d)

	if d.cycle {
		d.cycle = false
		return
	}
	if d.err != nil {
		d.stats.Skipped++
		d.rc.Logger.Warn("skipping entity", "entity", e.Head().ID, "kind", e.Kind(), "error", d.err)
		d.err = nil
		return
	}
	d.stats.Drawn++
}

// resolveStyle picks the colour and width for an entity: explicit colour, then
// the Insert's colour for "byblock" and layer-0 children, then the layer colour.
func (d *dispatcher) resolveStyle(h *document.Header, parent inherited, selected bool) (Style, inherited) {
	color := h.Color
	switch {
	case color == document.ColorByBlock:
		color = parent.color
	case color == "" && h.OnDefaultLayer() && parent.color != "":
		color = parent.color
	}
	if color == "" || color == document.ColorByBlock {
		layer := h.Layer
		if layer == "" {
			layer = document.DefaultLayer
		}
		if l, ok := d.doc.Layer(layer); ok && l.Color != "" {
			color = l.Color
		}
	}
	if color == "" {
		color = d.rc.Style.Stroke
	}

	width := d.rc.Style.Width
	switch {
	case h.LineWeight > 0:
		width = math.Max(1, h.LineWeight.Millimeters()*pixelsPerMillimeter)
	case h.LineWeight == document.LineWeightByBlock && parent.width > 0:
		width = parent.width
	}

	next := inherited{color: color, width: width, selected: selected}
	style := Style{Stroke: color, Fill: color, Width: width}
	if selected {
		style.Stroke = d.rc.Highlight.Stroke
		style.Fill = d.rc.Highlight.Stroke
		style.Width = math.Max(width*2, d.rc.Highlight.Width)
	}
	return style, next
}

func (d *dispatcher) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *dispatcher) stroke(p *Path) {
	if p.IsEmpty() {
		return
	}
	if err := d.rc.Surface.StrokePath(p, d.cur.style); err != nil {
		d.fail(err)
	}
}

func (d *dispatcher) text(s string, at geom.Point, height, rotation float64) {
	if s == "" {
		return
	}
	size := height * d.rc.Stack.Current().ScaleFactor()
	if size <= 0 || !geom.IsFinite(size) {
		return
	}
	if err := d.rc.Surface.DrawText(s, at, size, rotation, d.cur.style); err != nil {
		d.fail(err)
	}
}

func (d *dispatcher) VisitLine(e *document.Line) {
	d.stroke((&Path{}).MoveTo(e.Start).LineTo(e.End))
}

func (d *dispatcher) VisitArc(e *document.Arc) {
	d.stroke((&Path{}).Arc(e.Center, e.Radius, geom.Degrees(e.StartAngle), e.SweepDegrees()))
}

func (d *dispatcher) VisitCircle(e *document.Circle) {
	d.stroke((&Path{}).Arc(e.Center, e.Radius, 0, 360))
}

func (d *dispatcher) VisitEllipse(e *document.Ellipse) {
	n := d.rc.EllipseSegments
	start, end := e.ParamRange()
	full := end-start >= 2*math.Pi-1e-12
	pts := make([]geom.Point, 0, n+1)
	count := n + 1
	if full {
		count = n
	}
	for i := 0; i < count; i++ {
		pts = append(pts, e.PointAt(start+(end-start)*float64(i)/float64(n)))
	}
	d.stroke(Polyline(pts, full))
}

func (d *dispatcher) VisitPolyline(e *document.Polyline) {
	if len(e.Vertices) < 2 {
		return
	}
	d.stroke(Polyline(e.Vertices, e.Closed))
}

func (d *dispatcher) VisitText(e *document.Text) {
	d.text(e.Value, e.Insertion, e.Height, e.Rotation)
}

func (d *dispatcher) VisitPoint(e *document.Point) {
	scale := d.rc.Stack.Current().ScaleFactor()
	if scale <= 0 {
		return
	}
	p := (&Path{}).Arc(e.Position, d.rc.PointRadius/scale, 0, 360).Close()
	if err := d.rc.Surface.FillPath(p, d.cur.style); err != nil {
		d.fail(err)
	}
}

func (d *dispatcher) VisitInsert(e *document.Insert) {
	block, err := d.doc.Block(e.Block)
	if err != nil {
		d.fail(fmt.Errorf("insert %q of %q: %w", e.ID, e.Block, err))
		return
	}
	if d.visiting[block.Name] {
		d.cycle = true
		d.stats.CyclesSkipped++
		d.rc.Logger.Debug("skipping recursive insert", "entity", e.ID, "block", block.Name)
		return
	}
	d.visiting[block.Name] = true
	defer delete(d.visiting, block.Name)

	parent := d.cur.inherit
	d.rc.Stack.With(e.Placement(block), func() {
		for _, child := range block.Entities {
			d.renderEntity(child, parent)
		}
	})
}

func (d *dispatcher) VisitHatch(e *document.Hatch) {
	p := &Path{}
	for _, loop := range e.Loops {
		for _, edge := range loop.Edges {
			switch edge.Type {
			case document.EdgeLine:
				p.MoveTo(edge.Start).LineTo(edge.End)
			case document.EdgeArc:
				start := geom.Degrees(edge.StartAngle)
				sweep := document.SweepDegrees(edge.StartAngle, edge.EndAngle)
				a := geom.Radians(start)
				p.MoveTo(geom.Pt(edge.Center.X+edge.Radius*math.Cos(a), edge.Center.Y+edge.Radius*math.Sin(a)))
				p.Arc(edge.Center, edge.Radius, start, sweep)
			}
		}
	}
	d.stroke(p)
}

func (d *dispatcher) VisitDimension(e *document.Dimension) {
	p := &Path{}
	switch e.Type {
	case document.DimLinear:
		var a, b geom.Point
		if math.Abs(e.Second.X-e.First.X) >= math.Abs(e.Second.Y-e.First.Y) {
			a, b = geom.Pt(e.First.X, e.Line.Y), geom.Pt(e.Second.X, e.Line.Y)
		} else {
			a, b = geom.Pt(e.Line.X, e.First.Y), geom.Pt(e.Line.X, e.Second.Y)
		}
		dimensionLines(p, e.First, e.Second, a, b)
	case document.DimAligned:
		dir := e.Second.Sub(e.First)
		length := math.Hypot(dir.X, dir.Y)
		if length == 0 {
			break
		}
		n := geom.Pt(-dir.Y/length, dir.X/length)
		rel := e.Line.Sub(e.First)
		off := n.Mul(rel.X*n.X + rel.Y*n.Y)
		dimensionLines(p, e.First, e.Second, e.First.Add(off), e.Second.Add(off))
	case document.DimAngular:
		r := math.Hypot(e.Line.X-e.Center.X, e.Line.Y-e.Center.Y)
		start := math.Atan2(e.First.Y-e.Center.Y, e.First.X-e.Center.X)
		end := math.Atan2(e.Second.Y-e.Center.Y, e.Second.X-e.Center.X)
		if r > 0 {
			p.Arc(e.Center, r, geom.Degrees(start), document.SweepDegrees(start, end))
		}
	case document.DimRadius:
		p.MoveTo(e.Center).LineTo(e.First)
	case document.DimDiameter:
		p.MoveTo(e.Center.Sub(e.First.Sub(e.Center))).LineTo(e.First)
	}
	d.stroke(p)

	height := e.TextHeight
	if height <= 0 {
		height = DefaultTextHeight
	}
	d.text(e.Label(), e.TextAt, height, 0)
}

func dimensionLines(p *Path, first, second, a, b geom.Point) {
	p.MoveTo(first).LineTo(a)
	p.MoveTo(second).LineTo(b)
	p.MoveTo(a).LineTo(b)
}

// VisitUnknown draws a dashed placeholder at the entity's extent hint, or a
// fixed-size square at its anchor (or the origin) when it has none.
func (d *dispatcher) VisitUnknown(e *document.Unknown) {
	box := e.Extent
	if box.IsEmpty() {
		at := geom.Pt(0, 0)
		if e.Anchor != nil && e.Anchor.IsFinite() {
			at = *e.Anchor
		}
		half := 4.0
		if scale := d.rc.Stack.Current().ScaleFactor(); scale > 0 {
			half /= scale
		}
		box = geom.Box(at.Sub(geom.Pt(half, half)), at.Add(geom.Pt(half, half)))
	}
	style := d.cur.style
	style.Dash = placeholderDash
	if err := d.rc.Surface.StrokePath(Rectangle(box), style); err != nil {
		d.fail(err)
	}
}
