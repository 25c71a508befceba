package document

import (
	"errors"
	"fmt"
	"math"

	"github.com/inamate/draftview/internal/geom"
)

// Kind is the type tag of an entity as it appears on the wire.
type Kind string

const (
	KindLine      Kind = "Line"
	KindArc       Kind = "Arc"
	KindCircle    Kind = "Circle"
	KindEllipse   Kind = "Ellipse"
	KindPolyline  Kind = "Polyline"
	KindText      Kind = "Text"
	KindPoint     Kind = "Point"
	KindInsert    Kind = "Insert"
	KindHatch     Kind = "Hatch"
	KindDimension Kind = "Dimension"
	KindUnknown   Kind = "Unknown"
)

// DefaultLayer is the layer every CAD drawing has. Entities on it are always drawn.
const DefaultLayer = "0"

// ColorByBlock makes an entity inside a block take the colour of its Insert.
const ColorByBlock = "byblock"

// ErrMalformed is wrapped by every Validate failure.
var ErrMalformed = errors.New("malformed entity")

// Entity is one drawable CAD object. The set of implementations is closed:
// Line, Arc, Circle, Ellipse, Polyline, Text, Point, Insert, Hatch, Dimension
// and Unknown. Consumers dispatch through Visitor.
type Entity interface {
	// Head returns the attributes shared by every entity.
	Head() *Header
	Kind() Kind
	Accept(v Visitor)
	// Validate reports malformed geometry.
	Validate() error
}

// Visitor has one method per entity variant. Implementing it is the only way to
// dispatch on entity type, so adding a variant breaks every consumer at compile time.
type Visitor interface {
	VisitLine(*Line)
	VisitArc(*Arc)
	VisitCircle(*Circle)
	VisitEllipse(*Ellipse)
	VisitPolyline(*Polyline)
	VisitText(*Text)
	VisitPoint(*Point)
	VisitInsert(*Insert)
	VisitHatch(*Hatch)
	VisitDimension(*Dimension)
	VisitUnknown(*Unknown)
}

// Header carries the attributes common to all entities.
type Header struct {
	ID         string     `json:"id"`
	Layer      string     `json:"layer,omitempty"`
	Color      string     `json:"color,omitempty"` // "#rrggbb", "" = by layer, "byblock"
	LineWeight LineWeight `json:"lineWeight,omitempty"`
}

// Head implements Entity for every variant embedding Header.
func (h *Header) Head() *Header { return h }

// OnDefaultLayer reports whether the entity has no layer or sits on layer "0".
func (h *Header) OnDefaultLayer() bool {
	return h.Layer == "" || h.Layer == DefaultLayer
}

// LineWeight is a DXF line weight in hundredths of a millimetre, or one of the
// negative sentinels.
type LineWeight int

const (
	LineWeightDefault LineWeight = 0
	LineWeightByLayer LineWeight = -1
	LineWeightByBlock LineWeight = -2
)

// Millimeters returns the weight in mm, 0 for the sentinels.
func (w LineWeight) Millimeters() float64 {
	if w <= 0 {
		return 0
	}
	return float64(w) / 100
}

// Line is a straight segment.
type Line struct {
	Header `json:"-"`
	Start  geom.Point `json:"start"`
	End    geom.Point `json:"end"`
}

func (e *Line) Kind() Kind       { return KindLine }
func (e *Line) Accept(v Visitor) { v.VisitLine(e) }

func (e *Line) Validate() error {
	return checkPoints(e.Start, e.End)
}

// Arc is a circular arc from StartAngle to EndAngle, counter-clockwise, in radians.
type Arc struct {
	Header     `json:"-"`
	Center     geom.Point `json:"center"`
	Radius     float64    `json:"radius"`
	StartAngle float64    `json:"startAngle"`
	EndAngle   float64    `json:"endAngle"`
}

func (e *Arc) Kind() Kind       { return KindArc }
func (e *Arc) Accept(v Visitor) { v.VisitArc(e) }

func (e *Arc) Validate() error {
	if err := checkRadius(e.Radius); err != nil {
		return err
	}
	if !geom.IsFinite(e.StartAngle) || !geom.IsFinite(e.EndAngle) {
		return fmt.Errorf("%w: non-finite arc angle", ErrMalformed)
	}
	return checkPoints(e.Center)
}

// SweepDegrees returns the counter-clockwise sweep in degrees.
func (e *Arc) SweepDegrees() float64 {
	return SweepDegrees(e.StartAngle, e.EndAngle)
}

// SweepDegrees converts a radian start/end pair to a counter-clockwise sweep
// in [0, 360). Pairs more than a turn apart wrap as many times as needed. An
// end exactly one turn past the start is a full circle and stays 360.
func SweepDegrees(start, end float64) float64 {
	if math.Abs(end-start-2*math.Pi) < fullTurnTolerance {
		return 360
	}
	sweep := math.Mod(geom.Degrees(end)-geom.Degrees(start), 360)
	if sweep < 0 {
		sweep += 360
	}
	if sweep >= 360 {
		sweep = 0
	}
	return sweep
}

const fullTurnTolerance = 1e-9

// Circle is a full circle.
type Circle struct {
	Header `json:"-"`
	Center geom.Point `json:"center"`
	Radius float64    `json:"radius"`
}

func (e *Circle) Kind() Kind       { return KindCircle }
func (e *Circle) Accept(v Visitor) { v.VisitCircle(e) }

func (e *Circle) Validate() error {
	if err := checkRadius(e.Radius); err != nil {
		return err
	}
	return checkPoints(e.Center)
}

// Ellipse is defined by its center, the endpoint of the major axis relative to
// the center, the minor/major ratio and a parameter range in radians.
// A zero parameter range means a full ellipse.
type Ellipse struct {
	Header     `json:"-"`
	Center     geom.Point `json:"center"`
	MajorAxis  geom.Point `json:"majorAxis"`
	Ratio      float64    `json:"ratio"`
	StartParam float64    `json:"startParam,omitempty"`
	EndParam   float64    `json:"endParam,omitempty"`
}

func (e *Ellipse) Kind() Kind       { return KindEllipse }
func (e *Ellipse) Accept(v Visitor) { v.VisitEllipse(e) }

func (e *Ellipse) Validate() error {
	if !geom.IsFinite(e.Ratio) || e.Ratio <= 0 {
		return fmt.Errorf("%w: ellipse ratio %v", ErrMalformed, e.Ratio)
	}
	if !geom.IsFinite(e.StartParam) || !geom.IsFinite(e.EndParam) {
		return fmt.Errorf("%w: non-finite ellipse parameter", ErrMalformed)
	}
	return checkPoints(e.Center, e.MajorAxis)
}

// PointAt returns the point on the ellipse boundary at parameter t.
func (e *Ellipse) PointAt(t float64) geom.Point {
	major := e.MajorAxis
	minor := geom.Pt(-major.Y*e.Ratio, major.X*e.Ratio)
	cos, sin := math.Cos(t), math.Sin(t)
	return geom.Point{
		X: e.Center.X + major.X*cos + minor.X*sin,
		Y: e.Center.Y + major.Y*cos + minor.Y*sin,
	}
}

// ParamRange returns the start and end parameters with end > start.
func (e *Ellipse) ParamRange() (float64, float64) {
	start, end := e.StartParam, e.EndParam
	if start == end {
		return 0, 2 * math.Pi
	}
	for end <= start {
		end += 2 * math.Pi
	}
	return start, end
}

// Polyline is a connected path through its vertices.
type Polyline struct {
	Header   `json:"-"`
	Vertices []geom.Point `json:"vertices"`
	Closed   bool         `json:"closed,omitempty"`
}

func (e *Polyline) Kind() Kind       { return KindPolyline }
func (e *Polyline) Accept(v Visitor) { v.VisitPolyline(e) }

func (e *Polyline) Validate() error {
	return checkPoints(e.Vertices...)
}

// Text is a single-line string anchored at its insertion point.
type Text struct {
	Header    `json:"-"`
	Insertion geom.Point `json:"insertion"`
	Height    float64    `json:"height"`
	Rotation  float64    `json:"rotation,omitempty"`
	Value     string     `json:"value"`
}

func (e *Text) Kind() Kind       { return KindText }
func (e *Text) Accept(v Visitor) { v.VisitText(e) }

func (e *Text) Validate() error {
	if !geom.IsFinite(e.Height) || e.Height < 0 {
		return fmt.Errorf("%w: text height %v", ErrMalformed, e.Height)
	}
	return checkPoints(e.Insertion)
}

// Point is a single marker.
type Point struct {
	Header   `json:"-"`
	Position geom.Point `json:"position"`
}

func (e *Point) Kind() Kind       { return KindPoint }
func (e *Point) Accept(v Visitor) { v.VisitPoint(e) }

func (e *Point) Validate() error {
	return checkPoints(e.Position)
}

// Insert places a Block. Zero scales are read as 1.
type Insert struct {
	Header   `json:"-"`
	Block    string     `json:"block"`
	Position geom.Point `json:"position"`
	ScaleX   float64    `json:"scaleX,omitempty"`
	ScaleY   float64    `json:"scaleY,omitempty"`
	Rotation float64    `json:"rotation,omitempty"`
}

func (e *Insert) Kind() Kind       { return KindInsert }
func (e *Insert) Accept(v Visitor) { v.VisitInsert(e) }

func (e *Insert) Validate() error {
	if e.Block == "" {
		return fmt.Errorf("%w: insert without block name", ErrMalformed)
	}
	if !geom.IsFinite(e.ScaleX) || !geom.IsFinite(e.ScaleY) || !geom.IsFinite(e.Rotation) {
		return fmt.Errorf("%w: non-finite insert placement", ErrMalformed)
	}
	return checkPoints(e.Position)
}

// Scale returns the effective x/y scale.
func (e *Insert) Scale() (float64, float64) {
	sx, sy := e.ScaleX, e.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	return sx, sy
}

// Placement returns the transform from block space into the parent space.
func (e *Insert) Placement(b *Block) geom.Matrix2D {
	sx, sy := e.Scale()
	return geom.Placement(e.Position, sx, sy, e.Rotation, b.Base)
}

// Hatch is a filled region. Only its boundary loops are kept.
type Hatch struct {
	Header  `json:"-"`
	Pattern string      `json:"pattern,omitempty"`
	Solid   bool        `json:"solid,omitempty"`
	Loops   []HatchLoop `json:"loops"`
}

func (e *Hatch) Kind() Kind       { return KindHatch }
func (e *Hatch) Accept(v Visitor) { v.VisitHatch(e) }

func (e *Hatch) Validate() error {
	for _, loop := range e.Loops {
		for _, edge := range loop.Edges {
			if err := edge.validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// HatchLoop is one closed boundary.
type HatchLoop struct {
	Edges []HatchEdge `json:"edges"`
}

// HatchEdgeType distinguishes line and arc boundary edges.
type HatchEdgeType string

const (
	EdgeLine HatchEdgeType = "line"
	EdgeArc  HatchEdgeType = "arc"
)

// HatchEdge is a line (Start, End) or an arc (Center, Radius, angles in radians).
type HatchEdge struct {
	Type       HatchEdgeType `json:"type"`
	Start      geom.Point    `json:"start,omitempty"`
	End        geom.Point    `json:"end,omitempty"`
	Center     geom.Point    `json:"center,omitempty"`
	Radius     float64       `json:"radius,omitempty"`
	StartAngle float64       `json:"startAngle,omitempty"`
	EndAngle   float64       `json:"endAngle,omitempty"`
}

func (h HatchEdge) validate() error {
	switch h.Type {
	case EdgeLine:
		return checkPoints(h.Start, h.End)
	case EdgeArc:
		if err := checkRadius(h.Radius); err != nil {
			return err
		}
		return checkPoints(h.Center)
	default:
		return fmt.Errorf("%w: hatch edge type %q", ErrMalformed, h.Type)
	}
}

// DimensionType is the dimension subtype.
type DimensionType string

const (
	DimLinear   DimensionType = "linear"
	DimAligned  DimensionType = "aligned"
	DimAngular  DimensionType = "angular"
	DimRadius   DimensionType = "radius"
	DimDiameter DimensionType = "diameter"
)

// Dimension is a measurement annotation. Points are interpreted per subtype:
// linear/aligned measure First→Second with the dimension line through Line;
// angular measures the angle at Center between First and Second with the arc
// through Line; radius/diameter measure Center→First.
type Dimension struct {
	Header      `json:"-"`
	Type        DimensionType `json:"dimType"`
	First       geom.Point    `json:"first"`
	Second      geom.Point    `json:"second,omitempty"`
	Center      geom.Point    `json:"center,omitempty"`
	Line        geom.Point    `json:"line,omitempty"`
	TextAt      geom.Point    `json:"textAt,omitempty"`
	TextHeight  float64       `json:"textHeight,omitempty"`
	Text        string        `json:"text,omitempty"`
	Measurement float64       `json:"measurement,omitempty"`
}

func (e *Dimension) Kind() Kind       { return KindDimension }
func (e *Dimension) Accept(v Visitor) { v.VisitDimension(e) }

func (e *Dimension) Validate() error {
	switch e.Type {
	case DimLinear, DimAligned, DimAngular, DimRadius, DimDiameter:
	default:
		return fmt.Errorf("%w: dimension type %q", ErrMalformed, e.Type)
	}
	return checkPoints(e.First, e.Second, e.Center, e.Line, e.TextAt)
}

// Label returns the text to show: the override text if present, otherwise the
// formatted measurement, or "" if neither exists.
func (e *Dimension) Label() string {
	if e.Text != "" {
		return e.Text
	}
	if e.Measurement == 0 {
		return ""
	}
	switch e.Type {
	case DimAngular:
		return fmt.Sprintf("%.1f°", e.Measurement)
	case DimRadius:
		return fmt.Sprintf("R%.2f", e.Measurement)
	case DimDiameter:
		return fmt.Sprintf("Ø%.2f", e.Measurement)
	default:
		return fmt.Sprintf("%.2f", e.Measurement)
	}
}

// Unknown is an entity type the engine cannot draw. It keeps the raw payload
// and optional placement hints for its placeholder.
type Unknown struct {
	Header   `json:"-"`
	TypeName string           `json:"-"`
	Extent   geom.BoundingBox `json:"extent"`
	Anchor   *geom.Point      `json:"anchor,omitempty"`
	Raw      []byte           `json:"-"`
}

func (e *Unknown) Kind() Kind       { return KindUnknown }
func (e *Unknown) Accept(v Visitor) { v.VisitUnknown(e) }
func (e *Unknown) Validate() error  { return nil }

func checkPoints(points ...geom.Point) error {
	for _, p := range points {
		if !p.IsFinite() {
			return fmt.Errorf("%w: non-finite coordinate", ErrMalformed)
		}
	}
	return nil
}

func checkRadius(r float64) error {
	if !geom.IsFinite(r) || r < 0 {
		return fmt.Errorf("%w: radius %v", ErrMalformed, r)
	}
	return nil
}
