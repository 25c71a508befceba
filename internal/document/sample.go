package document

import (
	"math"

	"github.com/inamate/draftview/internal/geom"
	"github.com/inamate/draftview/internal/typeid"
)

// NewSampleDocument builds a small floor plan that exercises every entity kind,
// nested blocks, hidden and frozen layers and a self-referencing block.
func NewSampleDocument(drawingID string) *Document {
	doc := New(drawingID, "Sample floor plan")
	doc.Units = "mm"

	doc.AddLayer(&Layer{Name: "walls", Visible: true, Color: "#e0e0e0"})
	doc.AddLayer(&Layer{Name: "furniture", Visible: true, Color: "#f5a623"})
	doc.AddLayer(&Layer{Name: "annotation", Visible: true, Color: "#53d769"})
	doc.AddLayer(&Layer{Name: "hatch", Visible: true, Color: "#0f3460"})
	doc.AddLayer(&Layer{Name: "construction", Visible: false, Color: "#888888"})
	doc.AddLayer(&Layer{Name: "archive", Visible: true, Frozen: true, Color: "#444444"})

	id := typeid.NewEntityID

	doc.AddBlock(&Block{
		Name: "chair",
		Base: geom.Pt(0, 0),
		Entities: EntityList{
			&Polyline{Header: Header{ID: id(), Color: ColorByBlock}, Vertices: []geom.Point{
				{X: -20, Y: -20}, {X: 20, Y: -20}, {X: 20, Y: 20}, {X: -20, Y: 20},
			}, Closed: true},
			&Arc{Header: Header{ID: id(), Color: ColorByBlock}, Center: geom.Pt(0, 20), Radius: 20, StartAngle: 0, EndAngle: math.Pi},
		},
	})
	doc.AddBlock(&Block{
		Name: "table",
		Base: geom.Pt(0, 0),
		Entities: EntityList{
			&Circle{Header: Header{ID: id(), Layer: "furniture"}, Center: geom.Pt(0, 0), Radius: 60},
			&Insert{Header: Header{ID: id(), Layer: "furniture"}, Block: "chair", Position: geom.Pt(0, -90)},
			&Insert{Header: Header{ID: id(), Layer: "furniture"}, Block: "chair", Position: geom.Pt(0, 90), Rotation: math.Pi},
			&Insert{Header: Header{ID: id(), Layer: "furniture"}, Block: "chair", Position: geom.Pt(-90, 0), Rotation: -math.Pi / 2},
			&Insert{Header: Header{ID: id(), Layer: "furniture"}, Block: "chair", Position: geom.Pt(90, 0), Rotation: math.Pi / 2},
		},
	})
	// Broken on purpose: a block that places itself.
	doc.AddBlock(&Block{
		Name: "loop",
		Entities: EntityList{
			&Line{Header: Header{ID: id()}, Start: geom.Pt(0, 0), End: geom.Pt(10, 10)},
			&Insert{Header: Header{ID: id()}, Block: "loop", Position: geom.Pt(20, 0)},
		},
	})

	doc.Add(
		// Outer walls.
		&Polyline{Header: Header{ID: id(), Layer: "walls", LineWeight: 50}, Vertices: []geom.Point{
			{X: 0, Y: 0}, {X: 1200, Y: 0}, {X: 1200, Y: 800}, {X: 0, Y: 800},
		}, Closed: true},
		&Line{Header: Header{ID: id(), Layer: "walls", LineWeight: 35}, Start: geom.Pt(700, 0), End: geom.Pt(700, 500)},
		&Line{Header: Header{ID: id(), Layer: "walls", LineWeight: 35}, Start: geom.Pt(700, 650), End: geom.Pt(700, 800)},
		// Door swing.
		&Arc{Header: Header{ID: id(), Layer: "walls"}, Center: geom.Pt(700, 500), Radius: 150, StartAngle: 0, EndAngle: math.Pi / 2},

		&Insert{Header: Header{ID: id(), Layer: "furniture"}, Block: "table", Position: geom.Pt(350, 400)},
		&Insert{Header: Header{ID: id(), Layer: "furniture", Color: "#ff00ff"}, Block: "chair", Position: geom.Pt(1000, 650), ScaleX: 1.5, ScaleY: 1.5},
		&Ellipse{Header: Header{ID: id(), Layer: "furniture"}, Center: geom.Pt(950, 250), MajorAxis: geom.Pt(120, 0), Ratio: 0.5},

		&Hatch{Header: Header{ID: id(), Layer: "hatch"}, Pattern: "ANSI31", Loops: []HatchLoop{{Edges: []HatchEdge{
			{Type: EdgeLine, Start: geom.Pt(720, 20), End: geom.Pt(1180, 20)},
			{Type: EdgeLine, Start: geom.Pt(1180, 20), End: geom.Pt(1180, 120)},
			{Type: EdgeArc, Center: geom.Pt(950, 120), Radius: 230, StartAngle: 0, EndAngle: math.Pi},
			{Type: EdgeLine, Start: geom.Pt(720, 120), End: geom.Pt(720, 20)},
		}}}},

		&Dimension{Header: Header{ID: id(), Layer: "annotation"}, Type: DimLinear,
			First: geom.Pt(0, 0), Second: geom.Pt(1200, 0), Line: geom.Pt(600, -60),
			TextAt: geom.Pt(600, -70), TextHeight: 20, Measurement: 1200},
		&Dimension{Header: Header{ID: id(), Layer: "annotation"}, Type: DimRadius,
			Center: geom.Pt(350, 400), First: geom.Pt(410, 400),
			TextAt: geom.Pt(420, 410), TextHeight: 12, Measurement: 60},
		&Dimension{Header: Header{ID: id(), Layer: "annotation"}, Type: DimAngular,
			Center: geom.Pt(700, 500), First: geom.Pt(850, 500), Second: geom.Pt(700, 650),
			Line: geom.Pt(800, 600), TextAt: geom.Pt(810, 610), TextHeight: 12, Measurement: 90},
		&Text{Header: Header{ID: id(), Layer: "annotation"}, Insertion: geom.Pt(40, 760), Height: 24, Value: "LIVING ROOM"},
		&Text{Header: Header{ID: id(), Layer: "annotation"}, Insertion: geom.Pt(1150, 400), Height: 18, Rotation: math.Pi / 2, Value: "KITCHEN"},

		&Point{Header: Header{ID: id()}, Position: geom.Pt(600, 400)},
		&Line{Header: Header{ID: id(), Layer: "construction"}, Start: geom.Pt(0, 400), End: geom.Pt(1200, 400)},
		&Circle{Header: Header{ID: id(), Layer: "archive"}, Center: geom.Pt(100, 100), Radius: 40},
		&Insert{Header: Header{ID: id()}, Block: "loop", Position: geom.Pt(20, 900)},
		&Unknown{Header: Header{ID: id(), Layer: "annotation"}, TypeName: "Leader",
			Extent: geom.Box(geom.Pt(1220, 700), geom.Pt(1300, 780))},
	)

	doc.PaperSpace = EntityList{
		&Polyline{Header: Header{ID: id()}, Vertices: []geom.Point{
			{X: 0, Y: 0}, {X: 297, Y: 0}, {X: 297, Y: 210}, {X: 0, Y: 210},
		}, Closed: true},
		&Text{Header: Header{ID: id()}, Insertion: geom.Pt(200, 10), Height: 5, Value: "SHEET A-101"},
	}
	return doc
}
