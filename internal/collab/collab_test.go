package collab

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/draftview/internal/document"
	"github.com/inamate/draftview/internal/engine"
	"github.com/inamate/draftview/internal/geom"
)

func testDoc() *document.Document {
	doc := document.New("dwg_1", "test")
	doc.AddLayer(&document.Layer{Name: "walls", Visible: true, Color: "#cccccc"})
	doc.Add(
		&document.Circle{Header: document.Header{ID: "c"}, Center: geom.Pt(0, 0), Radius: 10},
		&document.Line{Header: document.Header{ID: "l", Layer: "walls"}, Start: geom.Pt(-20, -20), End: geom.Pt(-15, -15)},
	)
	return doc
}

func msg(t *testing.T, typ string, payload interface{}) *Message {
	t.Helper()
	m := &Message{Type: typ}
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		m.Payload = data
	}
	return m
}

func types(msgs []*Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Type
	}
	return out
}

func frameOf(t *testing.T, m *Message) FramePayload {
	t.Helper()
	require.Equal(t, TypeFrame, m.Type)
	var f FramePayload
	require.NoError(t, json.Unmarshal(m.Payload, &f))
	return f
}

func TestSessionRequiresDocument(t *testing.T) {
	s := NewSession(engine.Options{})
	_, err := s.Apply(msg(t, TypeViewFit, nil))
	assert.Error(t, err)
}

func TestSessionViewOperations(t *testing.T) {
	s := NewSession(engine.Options{})
	require.NoError(t, s.Load(testDoc(), 1))

	out, err := s.Apply(msg(t, TypeViewResize, ResizePayload{Width: 800, Height: 600}))
	require.NoError(t, err)
	require.Equal(t, []string{TypeFrame}, types(out))
	f := frameOf(t, out[0])
	assert.Equal(t, 1.0, f.Zoom)
	assert.EqualValues(t, 1, f.Version)
	assert.NotEmpty(t, f.Commands)
	assert.Equal(t, 2, f.Stats.Drawn)

	out, err = s.Apply(msg(t, TypeViewZoom, ZoomPayload{Factor: 2}))
	require.NoError(t, err)
	assert.Equal(t, 2.0, frameOf(t, out[0]).Zoom)

	out, err = s.Apply(msg(t, TypeViewReset, nil))
	require.NoError(t, err)
	assert.Equal(t, 1.0, frameOf(t, out[0]).Zoom)

	// Moving without a button held changes nothing.
	out, err = s.Apply(msg(t, TypeViewPointer, PointerPayload{Kind: "move", X: 5, Y: 5}))
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = s.Apply(msg(t, TypeViewPointer, PointerPayload{Kind: "down", Button: "middle", X: 10, Y: 10}))
	require.NoError(t, err)
	out, err = s.Apply(msg(t, TypeViewPointer, PointerPayload{Kind: "move", X: 30, Y: 25}))
	require.NoError(t, err)
	assert.Equal(t, geom.Pt(20, 15), frameOf(t, out[0]).Pan)
	_, err = s.Apply(msg(t, TypeViewPointer, PointerPayload{Kind: "leave"}))
	require.NoError(t, err)

	out, err = s.Apply(msg(t, TypeViewLayer, LayerPayload{Name: "walls", Visible: false}))
	require.NoError(t, err)
	f = frameOf(t, out[0])
	assert.Equal(t, 1, f.Stats.Drawn)
	assert.Equal(t, 1, f.Stats.Hidden)

	out, err = s.Apply(msg(t, TypeViewSelect, SelectPayload{EntityID: "c"}))
	require.NoError(t, err)
	assert.Equal(t, "c", frameOf(t, out[0]).Selection)
	assert.Equal(t, "c", s.SelectionID())
}

func TestSessionPick(t *testing.T) {
	s := NewSession(engine.Options{})
	require.NoError(t, s.Load(testDoc(), 1))
	_, err := s.Apply(msg(t, TypeViewResize, ResizePayload{Width: 800, Height: 600}))
	require.NoError(t, err)

	out, err := s.Apply(msg(t, TypeViewPick, PickPayload{X: 400, Y: 300}))
	require.NoError(t, err)
	require.Equal(t, []string{TypePickResult}, types(out))
	var res PickResultPayload
	require.NoError(t, json.Unmarshal(out[0].Payload, &res))
	assert.Equal(t, "c", res.EntityID)
	assert.Equal(t, string(document.KindCircle), res.Kind)
	// The fitted view centres the document bounds (-20,-20)-(10,10).
	assert.InDelta(t, -5, res.At.X, 1e-9)

	// A view change invalidates the index; picking renders first.
	_, err = s.Apply(msg(t, TypeViewPan, PanPayload{DX: 1000, DY: 0}))
	require.NoError(t, err)
	out, err = s.Apply(msg(t, TypeViewPick, PickPayload{X: 400, Y: 300}))
	require.NoError(t, err)
	require.Equal(t, []string{TypeFrame, TypePickResult}, types(out))
	res = PickResultPayload{}
	require.NoError(t, json.Unmarshal(out[1].Payload, &res))
	assert.Empty(t, res.EntityID)
}

func TestSessionRejectsBadMessages(t *testing.T) {
	s := NewSession(engine.Options{})
	require.NoError(t, s.Load(testDoc(), 1))

	bad := []*Message{
		msg(t, "view.teleport", nil),
		msg(t, TypeViewZoom, nil),
		{Type: TypeViewPan, Payload: json.RawMessage(`"nope"`)},
		msg(t, TypeViewPointer, PointerPayload{Kind: "hover"}),
		msg(t, TypeViewResize, ResizePayload{Width: 0, Height: 10}),
	}
	for _, m := range bad {
		_, err := s.Apply(m)
		assert.Error(t, err, m.Type)
	}
}

func TestSessionReload(t *testing.T) {
	s := NewSession(engine.Options{})
	require.NoError(t, s.Load(testDoc(), 2))
	_, err := s.Apply(msg(t, TypeViewSelect, SelectPayload{EntityID: "c"}))
	require.NoError(t, err)

	out, err := s.Reload(testDoc(), 2)
	require.NoError(t, err)
	assert.Empty(t, out, "same version is ignored")

	out, err = s.Reload(testDoc(), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{TypeDocSync}, types(out), "no frame before the size is known")
	assert.Equal(t, "c", s.SelectionID())
	assert.EqualValues(t, 3, s.Version())

	_, err = s.Apply(msg(t, TypeViewResize, ResizePayload{Width: 100, Height: 100}))
	require.NoError(t, err)
	out, err = s.Reload(testDoc(), 4)
	require.NoError(t, err)
	assert.Equal(t, []string{TypeDocSync, TypeFrame}, types(out))
}

func drain(c *Client) []*Message {
	var out []*Message
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return out
			}
			var m Message
			if err := json.Unmarshal(data, &m); err == nil {
				out = append(out, &m)
			}
		default:
			return out
		}
	}
}

func TestHubRoomsAndPresence(t *testing.T) {
	var loads atomic.Int32
	hub := NewHub(func(id string) (*document.Document, int32, error) {
		loads.Add(1)
		return testDoc(), 1, nil
	})
	a := NewClient(hub, nil, "user_a", "Ada", "dwg_1", "ca", engine.Options{})
	b := NewClient(hub, nil, "user_b", "Bob", "dwg_1", "cb", engine.Options{})

	hub.addClient(a)
	hub.addClient(b)
	assert.EqualValues(t, 1, loads.Load())
	assert.Equal(t, 1, hub.Rooms())

	assert.Equal(t, []string{TypeWelcome, TypePresenceState, TypePresenceJoin}, types(drain(a)))
	assert.Equal(t, []string{TypeWelcome, TypePresenceState}, types(drain(b)))

	hub.handleMessage(a, msg(t, TypeViewResize, ResizePayload{Width: 800, Height: 600}))
	assert.Equal(t, []string{TypeFrame}, types(drain(a)))
	assert.Empty(t, drain(b), "view operations stay private")

	hub.handleMessage(a, msg(t, TypePresenceUpdate, map[string]interface{}{
		"cursor": map[string]float64{"x": 400, "y": 300},
		"screen": true,
	}))
	got := drain(b)
	require.Equal(t, []string{TypePresenceUpdate}, types(got))
	var p PresencePayload
	require.NoError(t, json.Unmarshal(got[0].Payload, &p))
	assert.Equal(t, "Ada", p.DisplayName)
	assert.Equal(t, "ca", p.ClientID)
	assert.Equal(t, "user_a", p.UserID)
	require.NotNil(t, p.View, "a resized viewport reports its window")
	assert.True(t, p.View.Contains(geom.Pt(-5, -5)))
	require.NotNil(t, p.Cursor)
	assert.InDelta(t, -5, p.Cursor.X, 1e-9)
	assert.InDelta(t, -5, p.Cursor.Y, 1e-9)

	hub.handleMessage(b, msg(t, "view.bogus", nil))
	assert.Equal(t, []string{TypeError}, types(drain(b)))

	hub.Publish("dwg_1", 1, testDoc())
	assert.Empty(t, drain(a), "stale version is not broadcast")
	hub.Publish("dwg_1", 2, testDoc())
	assert.Equal(t, []string{TypeDocSync, TypeFrame}, types(drain(a)))
	assert.Equal(t, []string{TypeDocSync}, types(drain(b)))

	hub.removeClient(a)
	assert.Equal(t, []string{TypePresenceLeave}, types(drain(b)))
	hub.removeClient(b)
	assert.Equal(t, 0, hub.Rooms())

	hub.Publish("dwg_1", 3, testDoc())
}

func TestHubLoaderFailure(t *testing.T) {
	hub := NewHub(func(string) (*document.Document, int32, error) {
		return nil, 0, errors.New("db down")
	})
	c := NewClient(hub, nil, "user_a", "Ada", "dwg_x", "c1", engine.Options{})
	hub.addClient(c)

	assert.Equal(t, []string{TypeError}, types(drain(c)))
	assert.Equal(t, 0, hub.Rooms())
	c.Send(&Message{Type: TypeError})
}

func TestHubRefusesDrawingOverEntityBudget(t *testing.T) {
	hub := NewHub(func(string) (*document.Document, int32, error) { return testDoc(), 1, nil })
	c := NewClient(hub, nil, "user_a", "Ada", "dwg_1", "c1", engine.Options{MaxEntities: 1})
	hub.addClient(c)

	msgs := drain(c)
	require.Equal(t, []string{TypeError}, types(msgs))
	assert.Contains(t, string(msgs[0].Payload), "too complex")
	assert.Equal(t, 0, hub.Rooms())

	s := NewSession(engine.Options{MaxEntities: 1})
	assert.ErrorIs(t, s.Load(testDoc(), 1), document.ErrTooComplex)
}

func TestWebSocketSession(t *testing.T) {
	hub := NewHub(func(string) (*document.Document, int32, error) { return testDoc(), 7, nil })
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, "user_a", "Ada", "dwg_1", "c1", engine.Options{})
		hub.Register(client)
		go client.WritePump(r.Context())
		client.ReadPump(r.Context())
	}))
	defer srv.Close()
	defer hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")
	conn.SetReadLimit(1 << 20)

	read := func() Message {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var m Message
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	}
	write := func(m *Message) {
		data, err := json.Marshal(m)
		require.NoError(t, err)
		require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
	}

	welcome := read()
	require.Equal(t, TypeWelcome, welcome.Type)
	var wp WelcomePayload
	require.NoError(t, json.Unmarshal(welcome.Payload, &wp))
	assert.EqualValues(t, 7, wp.Version)
	assert.Equal(t, "c1", wp.ClientID)
	assert.Equal(t, TypePresenceState, read().Type)

	resize := msg(t, TypeViewResize, ResizePayload{Width: 640, Height: 480})
	resize.Seq = 42
	write(resize)
	frame := read()
	assert.Equal(t, TypeFrame, frame.Type)
	assert.EqualValues(t, 42, frame.Seq)

	write(msg(t, TypeViewPick, PickPayload{X: 320, Y: 240}))
	pick := read()
	require.Equal(t, TypePickResult, pick.Type)
	var res PickResultPayload
	require.NoError(t, json.Unmarshal(pick.Payload, &res))
	assert.Equal(t, "c", res.EntityID)

	require.NoError(t, conn.Write(ctx, websocket.MessageBinary, []byte{1, 2, 3}))
	assert.Equal(t, TypeError, read().Type)
	write(&Message{Type: TypeViewFit, Seq: 43})
	assert.Equal(t, TypeFrame, read().Type, "the session survives a rejected message")
}

func TestPresenceManagerKeysByClient(t *testing.T) {
	pm := NewPresenceManager()
	pm.Update(&PresencePayload{ClientID: "t1", UserID: "user_a", Selection: []string{"x"}})
	pm.Update(&PresencePayload{ClientID: "t2", UserID: "user_a"})
	pm.Update(&PresencePayload{ClientID: "t3", UserID: "user_b"})
	pm.Update(&PresencePayload{UserID: "user_c"})

	assert.Equal(t, []string{"user_a", "user_b"}, pm.Users())

	got, ok := pm.Get("t1")
	require.True(t, ok)
	got.Selection[0] = "changed"
	again, _ := pm.Get("t1")
	assert.Equal(t, []string{"x"}, again.Selection, "Get returns a copy")

	var state PresenceStatePayload
	require.NoError(t, json.Unmarshal(pm.StateMessage().Payload, &state))
	assert.Len(t, state.Presences, 3)

	pm.Remove("t1")
	pm.Remove("t2")
	assert.Equal(t, []string{"user_b"}, pm.Users())
	_, ok = pm.Get("t1")
	assert.False(t, ok)
}
