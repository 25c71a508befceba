package engine

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/draftview/internal/document"
	"github.com/inamate/draftview/internal/geom"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestContext(doc *document.Document, view geom.Matrix2D) (*RenderContext, *Recorder) {
	rec := NewRecorder()
	rc := NewRenderContext(rec, view)
	rc.Visible = VisibleLayers(doc)
	rc.Logger = quietLogger()
	return rc, rec
}

func commandsFor(rec *Recorder, id string) []DrawCommand {
	var out []DrawCommand
	for _, c := range rec.Commands() {
		if c.EntityID == id {
			out = append(out, c)
		}
	}
	return out
}

func line(id, layer string, a, b geom.Point) *document.Line {
	return &document.Line{Header: document.Header{ID: id, Layer: layer}, Start: a, End: b}
}

func TestRenderPreconditions(t *testing.T) {
	_, err := Render(nil, NewRenderContext(NewRecorder(), geom.Identity()))
	assert.ErrorIs(t, err, ErrNilDocument)

	_, err = Render(document.New("d", "n"), nil)
	assert.ErrorIs(t, err, ErrNilSurface)

	_, err = Render(document.New("d", "n"), &RenderContext{})
	assert.ErrorIs(t, err, ErrNilSurface)
}

func TestRenderSkipsHiddenLayersInHitIndex(t *testing.T) {
	doc := document.New("d", "layers")
	doc.AddLayer(&document.Layer{Name: "shown", Visible: true})
	doc.AddLayer(&document.Layer{Name: "hidden", Visible: false})
	visible := line("visible", "shown", geom.Pt(0, 0), geom.Pt(10, 10))
	doc.Add(visible, line("invisible", "hidden", geom.Pt(50, 50), geom.Pt(60, 60)))

	rc, rec := newTestContext(doc, geom.Identity())
	stats, err := Render(doc, rc)
	require.NoError(t, err)

	assert.Equal(t, 1, rc.Hits.Len())
	assert.Equal(t, 1, stats.Drawn)
	assert.Equal(t, 1, stats.Hidden)
	assert.Empty(t, commandsFor(rec, "invisible"))

	_, ok := rc.Hits.Pick(geom.Pt(55, 55))
	assert.False(t, ok)
	got, ok := rc.Hits.Pick(geom.Pt(5, 5))
	require.True(t, ok)
	assert.Same(t, visible, got)
}

func TestRenderPainterOrderAndPick(t *testing.T) {
	doc := document.New("d", "order")
	bottom := &document.Circle{Header: document.Header{ID: "bottom"}, Center: geom.Pt(0, 0), Radius: 10}
	top := &document.Circle{Header: document.Header{ID: "top"}, Center: geom.Pt(5, 0), Radius: 10}
	doc.Add(bottom, top)

	rc, rec := newTestContext(doc, geom.Scale(2, 2))
	_, err := Render(doc, rc)
	require.NoError(t, err)

	cmds := rec.Commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, "bottom", cmds[0].EntityID)
	assert.Equal(t, "top", cmds[1].EntityID)

	// Screen bounds are in the scaled space.
	got, ok := rc.Hits.Pick(geom.Pt(8, 0))
	require.True(t, ok)
	assert.Same(t, top, got)
	got, ok = rc.Hits.Pick(geom.Pt(-15, 0))
	require.True(t, ok)
	assert.Same(t, bottom, got)
}

func TestRenderClearsHitIndex(t *testing.T) {
	first := document.New("a", "a")
	first.Add(line("old", "", geom.Pt(0, 0), geom.Pt(10, 10)))
	second := document.New("b", "b")
	second.Add(line("new", "", geom.Pt(100, 100), geom.Pt(110, 110)))

	rc, _ := newTestContext(first, geom.Identity())
	_, err := Render(first, rc)
	require.NoError(t, err)
	_, err = Render(second, rc)
	require.NoError(t, err)

	_, ok := rc.Hits.Pick(geom.Pt(5, 5))
	assert.False(t, ok)
	assert.Equal(t, 1, rc.Hits.Len())
}

func TestRenderSelfReferencingBlock(t *testing.T) {
	doc := document.New("d", "cycle")
	doc.AddBlock(&document.Block{Name: "self", Entities: document.EntityList{
		line("inner", "", geom.Pt(0, 0), geom.Pt(1, 1)),
		&document.Insert{Header: document.Header{ID: "again"}, Block: "self", Position: geom.Pt(5, 0)},
	}})
	doc.Add(&document.Insert{Header: document.Header{ID: "outer"}, Block: "self"})

	rc, rec := newTestContext(doc, geom.Identity())
	var stats RenderStats
	var err error
	require.NotPanics(t, func() { stats, err = Render(doc, rc) })
	require.NoError(t, err)

	assert.Equal(t, 1, stats.CyclesSkipped)
	assert.Equal(t, 2, stats.Drawn) // outer and inner; the re-entrant insert drew nothing
	assert.Equal(t, 1, stats.Pushes)
	assert.Equal(t, 1, stats.Pops)
	assert.Len(t, commandsFor(rec, "inner"), 1)
	assert.Equal(t, 0, rc.Stack.Depth())
}

func TestRenderIndirectCycle(t *testing.T) {
	doc := document.New("d", "cycle")
	doc.AddBlock(&document.Block{Name: "a", Entities: document.EntityList{
		&document.Insert{Header: document.Header{ID: "a->b"}, Block: "b"},
	}})
	doc.AddBlock(&document.Block{Name: "b", Entities: document.EntityList{
		line("in-b", "", geom.Pt(0, 0), geom.Pt(1, 0)),
		&document.Insert{Header: document.Header{ID: "b->a"}, Block: "a"},
	}})
	doc.Add(&document.Insert{Header: document.Header{ID: "root"}, Block: "a"})

	rc, rec := newTestContext(doc, geom.Identity())
	stats, err := Render(doc, rc)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CyclesSkipped)
	assert.Equal(t, 3, stats.Drawn) // root, a->b, in-b
	assert.Zero(t, stats.Skipped)
	assert.Len(t, commandsFor(rec, "in-b"), 1)
}

func TestRenderSameBlockTwiceIsNotACycle(t *testing.T) {
	doc := document.New("d", "siblings")
	doc.AddBlock(&document.Block{Name: "leaf", Entities: document.EntityList{
		line("leaf-line", "", geom.Pt(0, 0), geom.Pt(1, 0)),
	}})
	doc.Add(
		&document.Insert{Header: document.Header{ID: "i1"}, Block: "leaf"},
		&document.Insert{Header: document.Header{ID: "i2"}, Block: "leaf", Position: geom.Pt(0, 10)},
	)

	rc, rec := newTestContext(doc, geom.Identity())
	stats, err := Render(doc, rc)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.CyclesSkipped)

	cmds := commandsFor(rec, "leaf-line")
	require.Len(t, cmds, 2)
	assert.Equal(t, []float64{1, 0, 0, 1, 0, 10}, cmds[1].Transform)

	// The same child entity keeps only its last placement in the index.
	b, ok := rc.Hits.Bounds(doc.Blocks["leaf"].Entities[0])
	require.True(t, ok)
	assert.Equal(t, geom.Box(geom.Pt(0, 10), geom.Pt(1, 10)), b)
}

func TestRenderLODKeepsHitEntries(t *testing.T) {
	doc := document.New("d", "lod")
	tiny := line("tiny", "", geom.Pt(0, 0), geom.Pt(0.1, 0.1))
	big := line("big", "", geom.Pt(0, 0), geom.Pt(100, 0))
	doc.Add(tiny, big)

	rc, rec := newTestContext(doc, geom.Identity())
	rc.LOD = LODFilter{Enabled: true, Threshold: 1}
	stats, err := Render(doc, rc)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Culled)
	assert.Empty(t, commandsFor(rec, "tiny"))
	assert.Len(t, commandsFor(rec, "big"), 1)
	b, ok := rc.Hits.Bounds(tiny)
	require.True(t, ok)
	assert.Equal(t, geom.Box(geom.Pt(0, 0), geom.Pt(0.1, 0.1)), b)

	rc2, rec2 := newTestContext(doc, geom.Identity())
	rc2.LOD = LODFilter{Enabled: true, Threshold: 1}
	rc2.Selection = tiny
	stats, err = Render(doc, rc2)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Culled)
	cmds := commandsFor(rec2, "tiny")
	require.Len(t, cmds, 1)
	assert.Equal(t, DefaultHighlight.Stroke, cmds[0].Stroke)
}

type panicSurface struct {
	*Recorder
	current string
}

func (s *panicSurface) BeginEntity(e document.Entity) {
	s.Recorder.BeginEntity(e)
	s.current = ""
	if e != nil {
		s.current = e.Head().ID
	}
}

func (s *panicSurface) StrokePath(p *Path, style Style) error {
	if s.current == "boom" {
		panic("surface exploded")
	}
	return s.Recorder.StrokePath(p, style)
}

func TestRenderSurvivesFailingEntities(t *testing.T) {
	doc := document.New("d", "faulty")
	doc.AddBlock(&document.Block{Name: "b", Entities: document.EntityList{
		line("boom", "", geom.Pt(0, 0), geom.Pt(1, 1)),
		line("after-boom", "", geom.Pt(0, 0), geom.Pt(2, 2)),
	}})
	doc.Add(
		line("first", "", geom.Pt(0, 0), geom.Pt(1, 0)),
		(*document.Line)(nil),
		nil,
		&document.Circle{Header: document.Header{ID: "bad"}, Radius: -4},
		&document.Insert{Header: document.Header{ID: "missing"}, Block: "nope"},
		&document.Insert{Header: document.Header{ID: "ins"}, Block: "b"},
		line("last", "", geom.Pt(0, 0), geom.Pt(0, 1)),
	)

	surface := &panicSurface{Recorder: NewRecorder()}
	rc := NewRenderContext(surface, geom.Identity())
	rc.Logger = quietLogger()
	rc.Visible = VisibleLayers(doc)

	stats, err := Render(doc, rc)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Skipped)
	assert.Equal(t, 4, stats.Drawn) // first, ins, after-boom, last
	assert.Equal(t, stats.Pushes, stats.Pops)
	assert.Equal(t, 0, rc.Stack.Depth())
	assert.Len(t, commandsFor(surface.Recorder, "first"), 1)
	assert.Len(t, commandsFor(surface.Recorder, "after-boom"), 1)
	assert.Len(t, commandsFor(surface.Recorder, "last"), 1)
}

// brokenTextSurface fails every stroke and panics on text, so an entity that
// strokes and then labels reports an error before it panics.
type brokenTextSurface struct {
	*Recorder
}

func (s *brokenTextSurface) StrokePath(*Path, Style) error {
	return errors.New("stroke refused")
}

func (s *brokenTextSurface) DrawText(string, geom.Point, float64, float64, Style) error {
	panic("text exploded")
}

func TestRenderChildPanicAfterErrorSkipsOnlyTheChild(t *testing.T) {
	doc := document.New("d", "faulty")
	doc.AddBlock(&document.Block{Name: "b", Entities: document.EntityList{
		&document.Dimension{Header: document.Header{ID: "dim"}, Type: document.DimRadius,
			Center: geom.Pt(0, 0), First: geom.Pt(4, 0), TextAt: geom.Pt(2, 1), Measurement: 4},
	}})
	doc.Add(&document.Insert{Header: document.Header{ID: "ins"}, Block: "b"})

	rc := NewRenderContext(&brokenTextSurface{Recorder: NewRecorder()}, geom.Identity())
	rc.Logger = quietLogger()
	rc.Visible = VisibleLayers(doc)

	stats, err := Render(doc, rc)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Drawn)
	assert.Equal(t, 0, rc.Stack.Depth())
}

type leakySurface struct {
	*Recorder
	stack *TransformStack
}

func (s *leakySurface) StrokePath(p *Path, style Style) error {
	s.stack.Push(geom.Translate(1, 1))
	return s.Recorder.StrokePath(p, style)
}

func TestRenderResetsUnbalancedStack(t *testing.T) {
	doc := document.New("d", "leak")
	doc.Add(line("l", "", geom.Pt(0, 0), geom.Pt(1, 0)))

	surface := &leakySurface{Recorder: NewRecorder()}
	rc := NewRenderContext(surface, geom.Scale(2, 2))
	rc.Logger = quietLogger()
	surface.stack = rc.Stack

	stats, err := Render(doc, rc)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pushes)
	assert.Equal(t, 0, stats.Pops)
	assert.Equal(t, 0, rc.Stack.Depth())
	assert.Equal(t, geom.Scale(2, 2), rc.Stack.Current())
}

func TestRenderGeometry(t *testing.T) {
	doc := document.New("d", "geometry")
	doc.AddBlock(&document.Block{Name: "scaled", Entities: document.EntityList{
		&document.Text{Header: document.Header{ID: "text"}, Insertion: geom.Pt(1, 2), Height: 10, Value: "hello", Rotation: 0.5},
	}})
	doc.Add(
		&document.Arc{Header: document.Header{ID: "arc"}, Center: geom.Pt(1, 2), Radius: 3, StartAngle: math.Pi / 2, EndAngle: 0},
		&document.Circle{Header: document.Header{ID: "circle"}, Radius: 4},
		&document.Ellipse{Header: document.Header{ID: "ellipse"}, MajorAxis: geom.Pt(10, 0), Ratio: 0.5},
		&document.Ellipse{Header: document.Header{ID: "half-ellipse"}, MajorAxis: geom.Pt(10, 0), Ratio: 0.5, StartParam: 0, EndParam: math.Pi},
		&document.Polyline{Header: document.Header{ID: "short"}, Vertices: []geom.Point{{X: 1, Y: 1}}},
		&document.Polyline{Header: document.Header{ID: "closed"}, Vertices: []geom.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}, Closed: true},
		&document.Point{Header: document.Header{ID: "point"}, Position: geom.Pt(7, 7)},
		&document.Insert{Header: document.Header{ID: "ins"}, Block: "scaled", ScaleX: 3, ScaleY: 3},
		&document.Hatch{Header: document.Header{ID: "hatch"}, Loops: []document.HatchLoop{{Edges: []document.HatchEdge{
			{Type: document.EdgeLine, Start: geom.Pt(0, 0), End: geom.Pt(10, 0)},
			{Type: document.EdgeArc, Center: geom.Pt(5, 0), Radius: 5, StartAngle: 0, EndAngle: math.Pi},
		}}}},
		&document.Dimension{Header: document.Header{ID: "dim-radius"}, Type: document.DimRadius,
			Center: geom.Pt(0, 0), First: geom.Pt(4, 0), TextAt: geom.Pt(2, 1), Measurement: 4},
		&document.Dimension{Header: document.Header{ID: "dim-linear"}, Type: document.DimLinear,
			First: geom.Pt(0, 0), Second: geom.Pt(10, 0), Line: geom.Pt(5, -3)},
		&document.Dimension{Header: document.Header{ID: "dim-angular"}, Type: document.DimAngular,
			Center: geom.Pt(0, 0), First: geom.Pt(1, 0), Second: geom.Pt(0, 1), Line: geom.Pt(2, 2)},
		&document.Unknown{Header: document.Header{ID: "unknown"}, TypeName: "Mesh", Extent: geom.Box(geom.Pt(0, 0), geom.Pt(2, 1))},
		&document.Unknown{Header: document.Header{ID: "unknown-bare"}, TypeName: "Mesh"},
	)

	rc, rec := newTestContext(doc, geom.Scale(2, 2))
	stats, err := Render(doc, rc)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Skipped)

	arc := commandsFor(rec, "arc")
	require.Len(t, arc, 1)
	require.Len(t, arc[0].Path, 1)
	assert.Equal(t, "A", arc[0].Path[0][0])
	assert.InDelta(t, 90.0, arc[0].Path[0][4].(float64), 1e-9)
	assert.InDelta(t, 270.0, arc[0].Path[0][5].(float64), 1e-9)

	circle := commandsFor(rec, "circle")
	require.Len(t, circle, 1)
	assert.Equal(t, []PathCommand{{"A", 0.0, 0.0, 4.0, 0.0, 360.0}}, circle[0].Path)

	ellipse := commandsFor(rec, "ellipse")
	require.Len(t, ellipse, 1)
	assert.Len(t, ellipse[0].Path, DefaultEllipseSegments+1) // M, 63×L, Z
	assert.Equal(t, PathCommand{"Z"}, ellipse[0].Path[DefaultEllipseSegments])

	half := commandsFor(rec, "half-ellipse")
	require.Len(t, half, 1)
	assert.Len(t, half[0].Path, DefaultEllipseSegments+1) // M, 64×L
	last := half[0].Path[DefaultEllipseSegments]
	assert.InDelta(t, -10.0, last[1].(float64), 1e-9)

	assert.Empty(t, commandsFor(rec, "short"))
	closed := commandsFor(rec, "closed")
	require.Len(t, closed, 1)
	assert.Equal(t, PathCommand{"Z"}, closed[0].Path[3])

	point := commandsFor(rec, "point")
	require.Len(t, point, 1)
	assert.Equal(t, "fill", point[0].Op)
	assert.Equal(t, PathCommand{"A", 7.0, 7.0, DefaultPointRadius / 2, 0.0, 360.0}, point[0].Path[0])

	text := commandsFor(rec, "text")
	require.Len(t, text, 1)
	assert.Equal(t, "hello", text[0].Text)
	assert.InDelta(t, 60.0, text[0].FontSize, 1e-9)
	assert.InDelta(t, 0.5, text[0].Rotation, 1e-12)
	assert.Equal(t, []float64{6, 0, 0, 6, 0, 0}, text[0].Transform)

	hatch := commandsFor(rec, "hatch")
	require.Len(t, hatch, 1)
	assert.Equal(t, "A", hatch[0].Path[3][0])

	radius := commandsFor(rec, "dim-radius")
	require.Len(t, radius, 2)
	assert.Equal(t, []PathCommand{{"M", 0.0, 0.0}, {"L", 4.0, 0.0}}, radius[0].Path)
	assert.Equal(t, "R4.00", radius[1].Text)

	linear := commandsFor(rec, "dim-linear")
	require.Len(t, linear, 1)
	assert.Equal(t, PathCommand{"L", 10.0, -3.0}, linear[0].Path[5])

	angular := commandsFor(rec, "dim-angular")
	require.Len(t, angular, 1)
	assert.Equal(t, "A", angular[0].Path[0][0])
	assert.InDelta(t, 90.0, angular[0].Path[0][5].(float64), 1e-9)

	unknown := commandsFor(rec, "unknown")
	require.Len(t, unknown, 1)
	assert.Equal(t, placeholderDash, unknown[0].Dash)
	assert.Len(t, unknown[0].Path, 5)

	bare := commandsFor(rec, "unknown-bare")
	require.Len(t, bare, 1)
	assert.Equal(t, PathCommand{"M", -2.0, -2.0}, bare[0].Path[0])
}

func TestRenderStyleResolution(t *testing.T) {
	doc := document.New("d", "style")
	doc.AddLayer(&document.Layer{Name: "red", Visible: true, Color: "#ff0000"})
	doc.AddBlock(&document.Block{Name: "b", Entities: document.EntityList{
		&document.Line{Header: document.Header{ID: "byblock", Color: document.ColorByBlock, LineWeight: document.LineWeightByBlock}, End: geom.Pt(1, 0)},
		&document.Line{Header: document.Header{ID: "layer0"}, End: geom.Pt(1, 0)},
		&document.Line{Header: document.Header{ID: "own", Color: "#00ff00"}, End: geom.Pt(1, 0)},
	}})
	doc.Add(
		&document.Line{Header: document.Header{ID: "bylayer", Layer: "red"}, End: geom.Pt(1, 0)},
		&document.Line{Header: document.Header{ID: "weighted", LineWeight: 50}, End: geom.Pt(1, 0)},
		&document.Insert{Header: document.Header{ID: "ins", Color: "#0000ff", LineWeight: 100}, Block: "b"},
		&document.Insert{Header: document.Header{ID: "selected-ins"}, Block: "b"},
	)

	rc, rec := newTestContext(doc, geom.Identity())
	rc.Selection = doc.ModelSpace[3]
	_, err := Render(doc, rc)
	require.NoError(t, err)

	byID := func(id string, n int) DrawCommand {
		cmds := commandsFor(rec, id)
		require.Greater(t, len(cmds), n)
		return cmds[n]
	}
	assert.Equal(t, "#ff0000", byID("bylayer", 0).Stroke)
	assert.Equal(t, DefaultStyle.Stroke, byID("weighted", 0).Stroke)
	assert.InDelta(t, 0.5*96/25.4, byID("weighted", 0).StrokeWidth, 1e-9)

	assert.Equal(t, "#0000ff", byID("byblock", 0).Stroke)
	assert.InDelta(t, 96/25.4, byID("byblock", 0).StrokeWidth, 1e-9)
	assert.Equal(t, "#0000ff", byID("layer0", 0).Stroke)
	assert.Equal(t, "#00ff00", byID("own", 0).Stroke)

	// Children of the selected insert inherit the highlight.
	for _, id := range []string{"byblock", "layer0", "own"} {
		assert.Equal(t, DefaultHighlight.Stroke, byID(id, 1).Stroke, id)
		assert.GreaterOrEqual(t, byID(id, 1).StrokeWidth, DefaultHighlight.Width, id)
	}
}

func TestRenderPaperSpace(t *testing.T) {
	doc := document.New("d", "spaces")
	doc.Add(line("model", "", geom.Pt(0, 0), geom.Pt(1, 0)))
	doc.PaperSpace = document.EntityList{line("paper", "", geom.Pt(0, 0), geom.Pt(1, 0))}

	rc, rec := newTestContext(doc, geom.Identity())
	rc.Space = document.PaperSpace
	_, err := Render(doc, rc)
	require.NoError(t, err)
	assert.Empty(t, commandsFor(rec, "model"))
	assert.Len(t, commandsFor(rec, "paper"), 1)
}

func TestDrawCommandsToJSON(t *testing.T) {
	doc := document.New("d", "json")
	doc.Add(line("l1", "", geom.Pt(0, 0), geom.Pt(10, 5)))
	rc, rec := newTestContext(doc, geom.Identity())
	_, err := Render(doc, rc)
	require.NoError(t, err)

	out, err := DrawCommandsToJSON(rec.Commands())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `[{"op":"stroke","entityId":"l1"`), out)
	assert.Contains(t, out, `"path":[["M",0,0],["L",10,5]]`)

	empty, err := DrawCommandsToJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", empty)
}

func TestPathFlatten(t *testing.T) {
	p := (&Path{}).Arc(geom.Pt(0, 0), 1, 0, 360)
	polys := p.Flatten(geom.Scale(2, 1))
	require.Len(t, polys, 1)
	assert.True(t, polys[0][0].Near(geom.Pt(2, 0), 1e-9))
	assert.True(t, polys[0][len(polys[0])-1].Near(geom.Pt(2, 0), 1e-9))
	for _, pt := range polys[0] {
		// Points lie on the ellipse x²/4 + y² = 1.
		assert.InDelta(t, 1.0, pt.X*pt.X/4+pt.Y*pt.Y, 1e-9)
	}

	sq := Polyline([]geom.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}, true)
	sq.MoveTo(geom.Pt(5, 5))
	sq.MoveTo(geom.Pt(6, 6)).LineTo(geom.Pt(7, 7))
	polys = sq.Flatten(geom.Translate(10, 0))
	require.Len(t, polys, 2)
	assert.Equal(t, []geom.Point{{X: 10, Y: 0}, {X: 11, Y: 0}, {X: 11, Y: 1}, {X: 10, Y: 0}}, polys[0])
	assert.Equal(t, []geom.Point{{X: 16, Y: 6}, {X: 17, Y: 7}}, polys[1])
}

func TestRenderArcSweepWrapsPastFullTurn(t *testing.T) {
	doc := document.New("d", "angles")
	doc.Add(
		&document.Arc{Header: document.Header{ID: "arc"}, Radius: 1, StartAngle: 6.5, EndAngle: 0.2},
		&document.Arc{Header: document.Header{ID: "wide"}, Radius: 1, StartAngle: -4, EndAngle: 3},
		&document.Hatch{Header: document.Header{ID: "hatch"}, Loops: []document.HatchLoop{{Edges: []document.HatchEdge{
			{Type: document.EdgeArc, Radius: 5, StartAngle: 7, EndAngle: 0},
		}}}},
	)

	rc, rec := newTestContext(doc, geom.Identity())
	_, err := Render(doc, rc)
	require.NoError(t, err)

	sweep := func(id string, index int) float64 {
		cmds := commandsFor(rec, id)
		require.Len(t, cmds, 1)
		require.Equal(t, "A", cmds[0].Path[index][0])
		return cmds[0].Path[index][5].(float64)
	}
	assert.InDelta(t, 359.0366, sweep("arc", 0), 1e-3)
	assert.InDelta(t, 41.0705, sweep("wide", 0), 1e-3)
	assert.InDelta(t, 318.9295, sweep("hatch", 1), 1e-3)
}
