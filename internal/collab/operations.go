package collab

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/inamate/draftview/internal/document"
	"github.com/inamate/draftview/internal/engine"
	"github.com/inamate/draftview/internal/geom"
)

// DocumentState holds the latest published snapshot of a room's drawing.
// Documents are never mutated once published; a new version replaces them.
type DocumentState struct {
	mu      sync.RWMutex
	doc     *document.Document
	version int32
}

func NewDocumentState(doc *document.Document, version int32) *DocumentState {
	return &DocumentState{doc: doc, version: version}
}

// GetDocument returns the current snapshot. Callers must not mutate it.
func (ds *DocumentState) GetDocument() (*document.Document, int32) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.doc, ds.version
}

// Publish replaces the snapshot if version is newer and reports whether it did.
func (ds *DocumentState) Publish(doc *document.Document, version int32) bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if doc == nil || version <= ds.version {
		return false
	}
	ds.doc, ds.version = doc, version
	return true
}

// Session is one client's view of a drawing. It owns an engine and turns
// view operations into frames. Calls are serialised by its mutex because the
// read loop and snapshot publication run on different goroutines.
type Session struct {
	mu      sync.Mutex
	eng     *engine.Engine
	version int32
	dirty   bool
}

func NewSession(opts engine.Options) *Session {
	s := &Session{}
	opts.OnInvalidate = func() { s.dirty = true }
	s.eng = engine.NewEngine(opts)
	return s
}

// Load installs the first document of the session.
func (s *Session) Load(doc *document.Document, version int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.eng.LoadDocument(doc); err != nil {
		return err
	}
	s.version = version
	return nil
}

// Reload swaps in a newer snapshot, keeps layer overrides and selection, and
// refits. It returns the doc.sync message and a fresh frame if the size is known.
func (s *Session) Reload(doc *document.Document, version int32) ([]*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version <= s.version {
		return nil, nil
	}
	if err := s.eng.UpdateDocument(doc); err != nil {
		return nil, err
	}
	s.version = version
	if size := s.eng.Viewport().Size(); !size.IsDegenerate() {
		s.eng.FitToView(size)
	}

	out := []*Message{newMessage(TypeDocSync, DocSyncPayload{Version: version, Bounds: s.eng.Bounds()})}
	if frame := s.frameLocked(); frame != nil {
		out = append(out, frame)
	}
	return out, nil
}

// Welcome describes the loaded drawing to a newly connected client.
func (s *Session) Welcome(clientID string) *Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return newMessage(TypeWelcome, WelcomePayload{
		ClientID: clientID,
		Version:  s.version,
		Bounds:   s.eng.Bounds(),
		Layers:   s.eng.VisibleLayers().Names(),
	})
}

// Apply executes one view operation and returns the replies. A frame is
// included whenever the operation changed what the client sees.
func (s *Session) Apply(msg *Message) ([]*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.eng.Document() == nil {
		return nil, fmt.Errorf("no drawing loaded")
	}

	var out []*Message
	switch msg.Type {
	case TypeViewResize:
		var p ResizePayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		size := geom.Size{Width: p.Width, Height: p.Height}
		if size.IsDegenerate() {
			return nil, fmt.Errorf("invalid viewport size %gx%g", p.Width, p.Height)
		}
		s.eng.SetViewportSize(size)
		s.dirty = true

	case TypeViewFit:
		s.eng.FitToView(s.eng.Viewport().Size())

	case TypeViewReset:
		s.eng.ResetView()

	case TypeViewZoom:
		var p ZoomPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		s.eng.ZoomBy(p.Factor)

	case TypeViewPan:
		var p PanPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		s.eng.PanBy(geom.Pt(p.DX, p.DY))

	case TypeViewPointer:
		var p PointerPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		pt := geom.Pt(p.X, p.Y)
		switch p.Kind {
		case "down":
			s.eng.PointerDown(parseButton(p.Button), pt)
		case "move":
			s.eng.PointerMove(pt)
		case "up":
			s.eng.PointerUp()
		case "leave":
			s.eng.FocusLost()
		default:
			return nil, fmt.Errorf("unknown pointer kind %q", p.Kind)
		}

	case TypeViewWheel:
		var p WheelPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		s.eng.Wheel(geom.Pt(p.X, p.Y), p.Notches)

	case TypeViewLayer:
		var p LayerPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		s.eng.SetLayerVisible(p.Name, p.Visible)

	case TypeViewLOD:
		var p LODPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		s.eng.SetLevelOfDetailEnabled(p.Enabled)

	case TypeViewSelect:
		var p SelectPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		s.eng.SelectByID(p.EntityID)

	case TypeViewSpace:
		var p SpacePayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		s.eng.SetSpace(document.Space(p.Space))

	case TypeViewPick:
		var p PickPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		// Picking reads the hit index of the last render, so bring it up to date.
		if frame := s.frameLocked(); frame != nil {
			out = append(out, frame)
		}
		result := PickResultPayload{At: s.eng.ScreenToDocument(geom.Pt(p.X, p.Y))}
		if e, ok := s.eng.Pick(geom.Pt(p.X, p.Y)); ok {
			result.EntityID = e.Head().ID
			result.Kind = string(e.Kind())
			result.Layer = e.Head().Layer
		}
		return append(out, newMessage(TypePickResult, result)), nil

	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}

	if frame := s.frameLocked(); frame != nil {
		out = append(out, frame)
	}
	return out, nil
}

// Frame renders unconditionally, or returns nil if the viewport size is unknown.
func (s *Session) Frame() *Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
	return s.frameLocked()
}

// Cursor converts a screen point into document coordinates.
func (s *Session) Cursor(x, y float64) CursorPos {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.eng.ScreenToDocument(geom.Pt(x, y))
	return CursorPos{X: p.X, Y: p.Y}
}

// View returns the document-space rectangle the viewport shows, or false
// before the first resize.
func (s *Session) View() (geom.BoundingBox, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	size := s.eng.Viewport().Size()
	if size.IsDegenerate() {
		return geom.Empty(), false
	}
	return geom.Box(
		s.eng.ScreenToDocument(geom.Pt(0, 0)),
		s.eng.ScreenToDocument(geom.Pt(size.Width, size.Height)),
	), true
}

// SelectionID returns the selected entity ID, or "".
func (s *Session) SelectionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.SelectionID()
}

func (s *Session) Version() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

func (s *Session) frameLocked() *Message {
	if !s.dirty || s.eng.Viewport().Size().IsDegenerate() {
		return nil
	}
	cmds, stats, err := s.eng.RenderCommands()
	if err != nil {
		return errorMessage(err.Error())
	}
	if cmds == nil {
		cmds = []engine.DrawCommand{}
	}
	s.dirty = false
	state := s.eng.Viewport().State()
	return newMessage(TypeFrame, FramePayload{
		Version:   s.version,
		Commands:  cmds,
		Stats:     stats,
		Zoom:      state.Zoom,
		Pan:       state.Pan,
		Scale:     s.eng.Viewport().Scale(),
		Selection: s.eng.SelectionID(),
	})
}

func parseButton(name string) engine.Button {
	switch name {
	case "middle":
		return engine.ButtonMiddle
	case "secondary":
		return engine.ButtonSecondary
	default:
		return engine.ButtonPrimary
	}
}

func decode(msg *Message, v interface{}) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%s: missing payload", msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%s: %w", msg.Type, err)
	}
	return nil
}

func newMessage(typ string, payload interface{}) *Message {
	data, err := json.Marshal(payload)
	if err != nil {
		return errorMessage(err.Error())
	}
	return &Message{Type: typ, Payload: data}
}

func errorMessage(text string) *Message {
	data, _ := json.Marshal(ErrorPayload{Message: text})
	return &Message{Type: TypeError, Payload: data}
}
