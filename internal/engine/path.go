package engine

import (
	"math"

	"github.com/inamate/draftview/internal/geom"
)

// PathOp is a path verb.
type PathOp string

const (
	OpMoveTo PathOp = "M"
	OpLineTo PathOp = "L"
	OpArc    PathOp = "A"
	OpClose  PathOp = "Z"
)

// PathCmd is one path segment in local coordinates. Arcs carry center, radius,
// start angle and counter-clockwise sweep, both in degrees.
type PathCmd struct {
	Op    PathOp
	Pt    geom.Point
	R     float64
	Start float64
	Sweep float64
}

// Path is a list of segments built by the dispatcher and consumed by surfaces.
type Path struct {
	cmds []PathCmd
}

func (p *Path) MoveTo(pt geom.Point) *Path {
	p.cmds = append(p.cmds, PathCmd{Op: OpMoveTo, Pt: pt})
	return p
}

func (p *Path) LineTo(pt geom.Point) *Path {
	p.cmds = append(p.cmds, PathCmd{Op: OpLineTo, Pt: pt})
	return p
}

// Arc adds a circular arc. Angles are in degrees, sweep is counter-clockwise.
func (p *Path) Arc(center geom.Point, r, startDeg, sweepDeg float64) *Path {
	p.cmds = append(p.cmds, PathCmd{Op: OpArc, Pt: center, R: r, Start: startDeg, Sweep: sweepDeg})
	return p
}

func (p *Path) Close() *Path {
	p.cmds = append(p.cmds, PathCmd{Op: OpClose})
	return p
}

// Commands returns the segments in order.
func (p *Path) Commands() []PathCmd { return p.cmds }

func (p *Path) IsEmpty() bool { return len(p.cmds) == 0 }

// Polyline builds an open or closed path through points.
func Polyline(points []geom.Point, closed bool) *Path {
	p := &Path{}
	for i, pt := range points {
		if i == 0 {
			p.MoveTo(pt)
		} else {
			p.LineTo(pt)
		}
	}
	if closed && len(points) > 2 {
		p.Close()
	}
	return p
}

// Rectangle builds a closed path around a box.
func Rectangle(b geom.BoundingBox) *Path {
	c := b.Corners()
	return Polyline(c[:], true)
}

// PathCommand is a path segment in Canvas2D array form:
// ["M", x, y], ["L", x, y], ["A", cx, cy, r, startDeg, sweepDeg], ["Z"].
type PathCommand []interface{}

// Canvas converts the path to Canvas2D arrays.
func (p *Path) Canvas() []PathCommand {
	out := make([]PathCommand, 0, len(p.cmds))
	for _, c := range p.cmds {
		switch c.Op {
		case OpMoveTo, OpLineTo:
			out = append(out, PathCommand{string(c.Op), c.Pt.X, c.Pt.Y})
		case OpArc:
			out = append(out, PathCommand{string(c.Op), c.Pt.X, c.Pt.Y, c.R, c.Start, c.Sweep})
		case OpClose:
			out = append(out, PathCommand{string(c.Op)})
		}
	}
	return out
}

// arcSegmentsPerTurn bounds the chord count of a flattened full circle.
const arcSegmentsPerTurn = 72

// Flatten maps the path through m and returns one polyline per subpath. Arcs are
// sampled in local space before transforming, so non-uniform scales turn circles
// into ellipses. A closed subpath repeats its first point at the end.
func (p *Path) Flatten(m geom.Matrix2D) [][]geom.Point {
	var (
		out [][]geom.Point
		cur []geom.Point
	)
	flush := func() {
		if len(cur) > 1 {
			out = append(out, cur)
		}
		cur = nil
	}
	for _, c := range p.cmds {
		switch c.Op {
		case OpMoveTo:
			flush()
			cur = []geom.Point{m.Apply(c.Pt)}
		case OpLineTo:
			cur = append(cur, m.Apply(c.Pt))
		case OpArc:
			cur = append(cur, arcPoints(c, m)...)
		case OpClose:
			if len(cur) > 0 {
				cur = append(cur, cur[0])
			}
			flush()
		}
	}
	flush()
	return out
}

func arcPoints(c PathCmd, m geom.Matrix2D) []geom.Point {
	n := int(math.Ceil(math.Abs(c.Sweep) / 360 * arcSegmentsPerTurn))
	if n < 2 {
		n = 2
	}
	start := geom.Radians(c.Start)
	step := geom.Radians(c.Sweep) / float64(n)
	pts := make([]geom.Point, 0, n+1)
	for i := 0; i <= n; i++ {
		a := start + step*float64(i)
		pts = append(pts, m.Apply(geom.Pt(c.Pt.X+c.R*math.Cos(a), c.Pt.Y+c.R*math.Sin(a))))
	}
	return pts
}
