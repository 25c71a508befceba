package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/inamate/draftview/internal/document"
	"github.com/inamate/draftview/internal/engine"
	"github.com/inamate/draftview/internal/geom"
	"github.com/inamate/draftview/internal/raster"
	"github.com/inamate/draftview/internal/typeid"
)

const (
	maxUploadSize = 20 << 20 // 20MB
	maxDimension  = 4096
	defaultWidth  = 1024
	defaultHeight = 768
)

// Handler renders posted documents without storing them.
type Handler struct {
	base raster.Options
}

// NewHandler creates a render handler. base supplies the background, font and
// engine tunables; size and filters come from each request.
func NewHandler(base raster.Options) *Handler {
	return &Handler{base: base}
}

// Render handles POST /render. The body is a document; the query selects
// w, h, space, lod, hide (comma separated), select, name and format (png|json).
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	doc, err := document.Decode(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid document: "+err.Error(), http.StatusBadRequest)
		return
	}

	opts, err := h.options(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := doc.CheckExpansion(opts.Engine.EntityBudget()); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	name := sanitizeName(r.URL.Query().Get("name"), doc.Name)
	renderID := typeid.NewRenderID()
	w.Header().Set("X-Render-ID", renderID)

	switch format := r.URL.Query().Get("format"); format {
	case "", "png":
		h.renderPNG(w, doc, opts, name, renderID)
	case "json":
		h.renderCommands(w, doc, opts)
	default:
		http.Error(w, "invalid format: must be png or json", http.StatusBadRequest)
	}
}

func (h *Handler) renderPNG(w http.ResponseWriter, doc *document.Document, opts raster.Options, name, renderID string) {
	var buf bytes.Buffer
	res, err := raster.RenderPNG(&buf, doc, opts)
	if err != nil {
		slog.Error("render failed", "render", renderID, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	slog.Info("render complete", "render", renderID, "document", doc.ID, "drawn", res.Stats.Drawn,
		"skipped", res.Stats.Skipped, "culled", res.Stats.Culled, "size", buf.Len())

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s.png"`, name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Render-Drawn", strconv.Itoa(res.Stats.Drawn))
	w.Header().Set("X-Render-Skipped", strconv.Itoa(res.Stats.Skipped))
	w.Write(buf.Bytes())
}

type commandsResponse struct {
	Commands []engine.DrawCommand `json:"commands"`
	Stats    engine.RenderStats   `json:"stats"`
	Bounds   geom.BoundingBox     `json:"bounds"`
}

func (h *Handler) renderCommands(w http.ResponseWriter, doc *document.Document, opts raster.Options) {
	eng := engine.NewEngine(opts.Engine)
	if opts.Space != "" {
		eng.SetSpace(opts.Space)
	}
	if err := eng.LoadDocument(doc); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, document.ErrTooComplex) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, err.Error(), status)
		return
	}
	for _, name := range opts.HideLayers {
		eng.SetLayerVisible(name, false)
	}
	eng.SetLevelOfDetailEnabled(opts.LOD)
	eng.SelectByID(opts.SelectID)
	eng.SetViewportSize(geom.Size{Width: float64(opts.Width), Height: float64(opts.Height)})

	cmds, stats, err := eng.RenderCommands()
	if err != nil {
		slog.Error("render commands failed", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	if cmds == nil {
		cmds = []engine.DrawCommand{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(commandsResponse{Commands: cmds, Stats: stats, Bounds: eng.Bounds()})
}

func (h *Handler) options(r *http.Request) (raster.Options, error) {
	q := r.URL.Query()
	opts := h.base
	opts.Width, opts.Height = defaultWidth, defaultHeight

	var err error
	if v := q.Get("w"); v != "" {
		if opts.Width, err = parseDimension("w", v); err != nil {
			return opts, err
		}
	}
	if v := q.Get("h"); v != "" {
		if opts.Height, err = parseDimension("h", v); err != nil {
			return opts, err
		}
	}
	if v := q.Get("lod"); v != "" {
		if opts.LOD, err = strconv.ParseBool(v); err != nil {
			return opts, fmt.Errorf("invalid lod: %q", v)
		}
	}
	switch space := document.Space(q.Get("space")); space {
	case "":
	case document.ModelSpace, document.PaperSpace:
		opts.Space = space
	default:
		return opts, fmt.Errorf("invalid space: %q", space)
	}
	opts.HideLayers = nil
	for _, name := range strings.Split(q.Get("hide"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			opts.HideLayers = append(opts.HideLayers, name)
		}
	}
	opts.SelectID = q.Get("select")
	return opts, nil
}

func parseDimension(name, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > maxDimension {
		return 0, fmt.Errorf("invalid %s: must be 1..%d", name, maxDimension)
	}
	return n, nil
}

func sanitizeName(name, fallback string) string {
	if name == "" {
		name = fallback
	}
	if name == "" {
		name = "drawing"
	}
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}
