package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/draftview/internal/document"
	"github.com/inamate/draftview/internal/engine"
	"github.com/inamate/draftview/internal/geom"
	"github.com/inamate/draftview/internal/raster"
	"github.com/inamate/draftview/internal/typeid"
)

func sampleBody(t *testing.T) []byte {
	t.Helper()
	data, err := document.Marshal(document.NewSampleDocument("dwg_export"))
	require.NoError(t, err)
	return data
}

func TestRenderPNG(t *testing.T) {
	h := NewHandler(raster.Options{})
	req := httptest.NewRequest(http.MethodPost, "/render?w=200&h=120&lod=true&hide=walls,annotation", bytes.NewReader(sampleBody(t)))
	rec := httptest.NewRecorder()
	h.Render(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "0", rec.Header().Get("X-Render-Skipped"))
	assert.NoError(t, typeid.Validate(rec.Header().Get("X-Render-ID"), typeid.PrefixRender))

	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 120, img.Bounds().Dy())
}

func TestRenderCommandsJSON(t *testing.T) {
	h := NewHandler(raster.Options{})
	req := httptest.NewRequest(http.MethodPost, "/render?format=json&space=paper&w=400&h=300", bytes.NewReader(sampleBody(t)))
	rec := httptest.NewRecorder()
	h.Render(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Commands []map[string]any `json:"commands"`
		Stats    map[string]int   `json:"stats"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Stats["drawn"])
	assert.NotEmpty(t, resp.Commands)
}

func TestRenderBadRequests(t *testing.T) {
	h := NewHandler(raster.Options{})
	body := sampleBody(t)

	tests := []struct {
		name  string
		query string
		body  []byte
	}{
		{"bad document", "", []byte("{")},
		{"zero width", "?w=0", body},
		{"huge height", "?h=99999", body},
		{"bad lod", "?lod=maybe", body},
		{"bad space", "?space=layout", body},
		{"bad format", "?format=svg", body},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Render(rec, httptest.NewRequest(http.MethodPost, "/render"+tt.query, bytes.NewReader(tt.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "floor-plan", sanitizeName("floor plan", ""))
	assert.Equal(t, "Sample", sanitizeName("", "Sample"))
	assert.Equal(t, "drawing", sanitizeName("", ""))
}

// nestedBody is a small document whose blocks nest levels deep, each level
// inserting the one below width times.
func nestedBody(t *testing.T, levels, width int) []byte {
	t.Helper()
	doc := document.New("dwg_nested", "nested")
	doc.AddBlock(&document.Block{Name: "b0", Entities: document.EntityList{
		&document.Line{Header: document.Header{ID: "leaf"}, End: geom.Pt(1, 1)},
	}})
	for k := 1; k < levels; k++ {
		b := &document.Block{Name: fmt.Sprintf("b%d", k)}
		for i := 0; i < width; i++ {
			b.Entities = append(b.Entities, &document.Insert{
				Header: document.Header{ID: fmt.Sprintf("i%d_%d", k, i)},
				Block:  fmt.Sprintf("b%d", k-1),
			})
		}
		doc.AddBlock(b)
	}
	doc.Add(&document.Insert{Header: document.Header{ID: "root"}, Block: fmt.Sprintf("b%d", levels-1)})
	data, err := document.Marshal(doc)
	require.NoError(t, err)
	return data
}

func TestRenderRefusesBlockFanOut(t *testing.T) {
	h := NewHandler(raster.Options{})
	body := nestedBody(t, 7, 10)
	require.Less(t, len(body), 16<<10)

	for _, format := range []string{"png", "json"} {
		t.Run(format, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/render?w=64&h=64&format="+format, bytes.NewReader(body))
			h.Render(rec, req)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Contains(t, rec.Body.String(), "too many entities")
		})
	}
}

func TestRenderEntityBudgetFromOptions(t *testing.T) {
	body := nestedBody(t, 3, 10) // 211 entities once expanded

	rec := httptest.NewRecorder()
	NewHandler(raster.Options{Engine: engine.Options{MaxEntities: 200}}).
		Render(rec, httptest.NewRequest(http.MethodPost, "/render?format=json&w=64&h=64", bytes.NewReader(body)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	NewHandler(raster.Options{Engine: engine.Options{MaxEntities: 211}}).
		Render(rec, httptest.NewRequest(http.MethodPost, "/render?format=json&w=64&h=64", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Stats map[string]int `json:"stats"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 211, resp.Stats["drawn"])
}
