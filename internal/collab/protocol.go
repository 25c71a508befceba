package collab

import (
	"encoding/json"

	"github.com/inamate/draftview/internal/engine"
	"github.com/inamate/draftview/internal/geom"
)

type Message struct {
	Type      string          `json:"type"`
	DrawingID string          `json:"drawingId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// PresencePayload describes one connected viewer: cursor and visible window
// in document coordinates, plus the entity IDs they have selected. A user
// with two tabs open has two presences.
type PresencePayload struct {
	ClientID    string            `json:"clientId"`
	UserID      string            `json:"userId"`
	DisplayName string            `json:"displayName,omitempty"`
	Cursor      *CursorPos        `json:"cursor,omitempty"`
	View        *geom.BoundingBox `json:"view,omitempty"`
	Selection   []string          `json:"selection,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PresenceStatePayload maps client IDs to presences.
type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	ClientID    string `json:"clientId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	ClientID string `json:"clientId"`
	UserID   string `json:"userId"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Document sync
	TypeDocSync = "doc.sync"

	// View operations, client to server
	TypeViewResize  = "view.resize"
	TypeViewFit     = "view.fit"
	TypeViewReset   = "view.reset"
	TypeViewZoom    = "view.zoom"
	TypeViewPan     = "view.pan"
	TypeViewPointer = "view.pointer"
	TypeViewWheel   = "view.wheel"
	TypeViewLayer   = "view.layer"
	TypeViewLOD     = "view.lod"
	TypeViewSelect  = "view.select"
	TypeViewPick    = "view.pick"
	TypeViewSpace   = "view.space"

	// Render output, server to client
	TypeFrame      = "frame"
	TypePickResult = "pick.result"
)

type WelcomePayload struct {
	ClientID string           `json:"clientId"`
	Version  int32            `json:"version"`
	Bounds   geom.BoundingBox `json:"bounds"`
	Layers   []string         `json:"layers"`
}

type DocSyncPayload struct {
	Version int32            `json:"version"`
	Bounds  geom.BoundingBox `json:"bounds"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type ResizePayload struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type ZoomPayload struct {
	Factor float64 `json:"factor"`
}

type PanPayload struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// PointerPayload is a pointer event in screen pixels. Kind is down, move, up
// or leave; Button is primary, middle or secondary.
type PointerPayload struct {
	Kind   string  `json:"kind"`
	Button string  `json:"button,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type WheelPayload struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Notches int     `json:"notches"`
}

type LayerPayload struct {
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
}

type LODPayload struct {
	Enabled bool `json:"enabled"`
}

type SelectPayload struct {
	EntityID string `json:"entityId"`
}

type PickPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type SpacePayload struct {
	Space string `json:"space"`
}

type FramePayload struct {
	Version   int32                `json:"version"`
	Commands  []engine.DrawCommand `json:"commands"`
	Stats     engine.RenderStats   `json:"stats"`
	Zoom      float64              `json:"zoom"`
	Pan       geom.Point           `json:"pan"`
	Scale     float64              `json:"scale"`
	Selection string               `json:"selection,omitempty"`
}

type PickResultPayload struct {
	EntityID string     `json:"entityId,omitempty"`
	Kind     string     `json:"kind,omitempty"`
	Layer    string     `json:"layer,omitempty"`
	At       geom.Point `json:"at"`
}
