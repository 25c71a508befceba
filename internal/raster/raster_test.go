package raster

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/draftview/internal/document"
	"github.com/inamate/draftview/internal/engine"
	"github.com/inamate/draftview/internal/geom"
)

func markerDoc() *document.Document {
	doc := document.New("dwg_test", "marker")
	doc.Add(
		&document.Circle{Header: document.Header{ID: "c"}, Center: geom.Pt(0, 0), Radius: 10},
		&document.Point{Header: document.Header{ID: "p"}, Position: geom.Pt(0, 0)},
	)
	return doc
}

func TestRenderPNGProducesImage(t *testing.T) {
	data, res, err := PNG(markerDoc(), Options{Width: 100, Height: 100})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stats.Drawn)
	assert.Equal(t, 0, res.Stats.Skipped)
	assert.InDelta(t, 4.5, res.Zoom, 1e-9)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())

	r, _, _, _ := img.At(50, 50).RGBA()
	assert.Greater(t, r>>8, uint32(128), "point marker is drawn at the centre")
	r, _, _, _ = img.At(2, 2).RGBA()
	assert.Less(t, r>>8, uint32(64), "corner keeps the background")
}

func TestRenderRejectsBadInput(t *testing.T) {
	_, _, err := Render(nil, Options{Width: 10, Height: 10})
	assert.ErrorIs(t, err, engine.ErrNilDocument)

	_, _, err = Render(markerDoc(), Options{Width: 0, Height: 10})
	assert.Error(t, err)
}

func TestRenderSampleDocument(t *testing.T) {
	doc := document.NewSampleDocument("dwg_sample")
	surface, res, err := Render(doc, Options{Width: 320, Height: 240, LOD: true})
	require.NoError(t, err)
	defer surface.Close()

	assert.Zero(t, res.Stats.Skipped)
	assert.Positive(t, res.Stats.Drawn)
	strokes, fills, texts := surface.Calls()
	assert.Positive(t, strokes)
	assert.Positive(t, fills)
	assert.Positive(t, texts)
}

func TestHideLayersAndSelection(t *testing.T) {
	doc := document.NewSampleDocument("dwg_sample")
	all, _, err := Render(doc, Options{Width: 200, Height: 200})
	require.NoError(t, err)
	defer all.Close()

	hidden, res, err := Render(doc, Options{Width: 200, Height: 200, HideLayers: []string{"walls"}})
	require.NoError(t, err)
	defer hidden.Close()

	a, _, _ := all.Calls()
	b, _, _ := hidden.Calls()
	assert.Less(t, b, a)
	assert.Greater(t, res.Stats.Hidden, 2)

	_, _, err = Render(doc, Options{Width: 200, Height: 200, SelectID: "missing"})
	assert.NoError(t, err)
}

func TestSurfaceIgnoresDegenerateInput(t *testing.T) {
	s, err := NewSurface(20, 20, "", nil)
	require.NoError(t, err)
	defer s.Close()

	style := engine.Style{Stroke: "#ffffff", Fill: "#ffffff", Width: 1}
	require.NoError(t, s.StrokePath(&engine.Path{}, style))
	require.NoError(t, s.FillPath(nil, style))
	require.NoError(t, s.DrawText("tiny", geom.Pt(1, 1), 0.2, 0, style))
	require.NoError(t, s.DrawText("", geom.Pt(1, 1), 12, 0, style))

	strokes, fills, texts := s.Calls()
	assert.Zero(t, strokes+fills+texts)

	require.NoError(t, s.StrokePath(engine.Polyline([]geom.Point{geom.Pt(1, 1), geom.Pt(18, 18)}, false), style))
	require.NoError(t, s.DrawText("ok", geom.Pt(2, 15), 10, 0, style))
	strokes, _, texts = s.Calls()
	assert.Equal(t, 1, strokes)
	assert.Equal(t, 1, texts)
}

func TestLoadFont(t *testing.T) {
	def, err := LoadFont("")
	require.NoError(t, err)
	same, err := DefaultFont()
	require.NoError(t, err)
	assert.Same(t, same, def)

	_, err = LoadFont(filepath.Join(t.TempDir(), "missing.ttf"))
	assert.Error(t, err)

	junk := filepath.Join(t.TempDir(), "junk.ttf")
	require.NoError(t, os.WriteFile(junk, []byte("not a font"), 0o644))
	_, err = LoadFont(junk)
	assert.Error(t, err)
}
