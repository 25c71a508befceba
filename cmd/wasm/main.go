//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/inamate/draftview/internal/document"
	"github.com/inamate/draftview/internal/engine"
	"github.com/inamate/draftview/internal/geom"
)

var (
	eng          *engine.Engine
	onInvalidate js.Value
)

func main() {
	eng = engine.NewEngine(engine.Options{
		OnInvalidate: func() {
			if onInvalidate.Type() == js.TypeFunction {
				onInvalidate.Invoke()
			}
		},
	})

	// Create the engine API object
	draftEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	draftEngine.Set("loadDocument", js.FuncOf(loadDocument))
	draftEngine.Set("updateDocument", js.FuncOf(updateDocument))
	draftEngine.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	draftEngine.Set("setSpace", js.FuncOf(setSpace))
	draftEngine.Set("resize", js.FuncOf(resize))
	draftEngine.Set("fitToView", js.FuncOf(fitToView))
	draftEngine.Set("resetView", js.FuncOf(resetView))
	draftEngine.Set("zoomBy", js.FuncOf(zoomBy))
	draftEngine.Set("panBy", js.FuncOf(panBy))
	draftEngine.Set("pointer", js.FuncOf(pointer))
	draftEngine.Set("focusLost", js.FuncOf(focusLost))
	draftEngine.Set("wheel", js.FuncOf(wheel))
	draftEngine.Set("setLayerVisible", js.FuncOf(setLayerVisible))
	draftEngine.Set("setLevelOfDetail", js.FuncOf(setLevelOfDetail))
	draftEngine.Set("setSelection", js.FuncOf(setSelection))
	draftEngine.Set("onInvalidate", js.FuncOf(setInvalidateCallback))

	// --- Queries (frontend ← engine) ---
	draftEngine.Set("render", js.FuncOf(render))
	draftEngine.Set("pick", js.FuncOf(pick))
	draftEngine.Set("getBounds", js.FuncOf(getBounds))
	draftEngine.Set("getViewport", js.FuncOf(getViewport))
	draftEngine.Set("getSelection", js.FuncOf(getSelection))
	draftEngine.Set("getStats", js.FuncOf(getStats))
	draftEngine.Set("screenToDocument", js.FuncOf(screenToDocument))

	// Register on global scope
	js.Global().Set("draftEngine", draftEngine)

	// Signal that WASM is ready
	js.Global().Set("draftWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func ok() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func fail(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": msg})
}

func toJSON(v interface{}) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return js.ValueOf("null")
	}
	return js.ValueOf(string(data))
}

func point(args []js.Value, i int) (geom.Point, bool) {
	if len(args) < i+2 {
		return geom.Point{}, false
	}
	return geom.Pt(args[i].Float(), args[i+1].Float()), true
}

// --- Command Handlers ---

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail("missing document JSON")
	}
	if err := eng.LoadDocumentJSON([]byte(args[0].String())); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func updateDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail("missing document JSON")
	}
	doc, err := document.Unmarshal([]byte(args[0].String()))
	if err != nil {
		return fail(err.Error())
	}
	if err := eng.UpdateDocument(doc); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	drawingID := "dwg_sample"
	if len(args) > 0 && args[0].Type() == js.TypeString {
		drawingID = args[0].String()
	}
	if err := eng.LoadDocument(document.NewSampleDocument(drawingID)); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func setSpace(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	eng.SetSpace(document.Space(args[0].String()))
	return nil
}

func resize(this js.Value, args []js.Value) interface{} {
	p, valid := point(args, 0)
	if !valid {
		return nil
	}
	eng.SetViewportSize(geom.Size{Width: p.X, Height: p.Y})
	return nil
}

func fitToView(this js.Value, args []js.Value) interface{} {
	size := eng.Viewport().Size()
	if p, valid := point(args, 0); valid {
		size = geom.Size{Width: p.X, Height: p.Y}
	}
	return js.ValueOf(eng.FitToView(size))
}

func resetView(this js.Value, args []js.Value) interface{} {
	eng.ResetView()
	return nil
}

func zoomBy(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	eng.ZoomBy(args[0].Float())
	return nil
}

func panBy(this js.Value, args []js.Value) interface{} {
	if d, valid := point(args, 0); valid {
		eng.PanBy(d)
	}
	return nil
}

// pointer(kind, button, x, y) takes DOM button numbers: 0 primary, 1 middle,
// 2 secondary.
func pointer(this js.Value, args []js.Value) interface{} {
	if len(args) < 4 {
		return nil
	}
	p, _ := point(args, 2)
	switch args[0].String() {
	case "down":
		b := engine.ButtonSecondary
		switch args[1].Int() {
		case 0:
			b = engine.ButtonPrimary
		case 1:
			b = engine.ButtonMiddle
		}
		eng.PointerDown(b, p)
	case "move":
		eng.PointerMove(p)
	case "up":
		eng.PointerUp()
	}
	return nil
}

func focusLost(this js.Value, args []js.Value) interface{} {
	eng.FocusLost()
	return nil
}

func wheel(this js.Value, args []js.Value) interface{} {
	p, valid := point(args, 0)
	if !valid || len(args) < 3 {
		return nil
	}
	eng.Wheel(p, args[2].Int())
	return nil
}

func setLayerVisible(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.SetLayerVisible(args[0].String(), args[1].Bool())
	return nil
}

func setLevelOfDetail(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	eng.SetLevelOfDetailEnabled(args[0].Bool())
	return nil
}

func setSelection(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeString || args[0].String() == "" {
		eng.SetSelection(nil)
		return js.ValueOf(true)
	}
	return js.ValueOf(eng.SelectByID(args[0].String()))
}

func setInvalidateCallback(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		onInvalidate = js.Undefined()
		return nil
	}
	onInvalidate = args[0]
	return nil
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	out, err := eng.RenderJSON()
	if err != nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(out)
}

func pick(this js.Value, args []js.Value) interface{} {
	p, valid := point(args, 0)
	if !valid {
		return js.ValueOf("")
	}
	return js.ValueOf(eng.PickID(p))
}

func getBounds(this js.Value, args []js.Value) interface{} {
	return toJSON(eng.Bounds())
}

func getViewport(this js.Value, args []js.Value) interface{} {
	vp := eng.Viewport()
	return toJSON(map[string]interface{}{
		"zoom":  vp.State().Zoom,
		"pan":   vp.State().Pan,
		"scale": vp.Scale(),
		"mode":  vp.Mode().String(),
	})
}

func getSelection(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.SelectionID())
}

func getStats(this js.Value, args []js.Value) interface{} {
	return toJSON(eng.LastStats())
}

func screenToDocument(this js.Value, args []js.Value) interface{} {
	p, valid := point(args, 0)
	if !valid {
		return js.ValueOf("null")
	}
	return toJSON(eng.ScreenToDocument(p))
}
