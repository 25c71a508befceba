package collab

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
)

// PresenceManager tracks the viewers of one room, keyed by client ID.
type PresenceManager struct {
	mu      sync.RWMutex
	viewers map[string]*PresencePayload
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		viewers: make(map[string]*PresencePayload),
	}
}

// Update stores a copy of p under its ClientID.
func (pm *PresenceManager) Update(p *PresencePayload) {
	if p == nil || p.ClientID == "" {
		return
	}
	cp := p.clone()

	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.viewers[p.ClientID] = cp
}

func (pm *PresenceManager) Get(clientID string) (*PresencePayload, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	p, ok := pm.viewers[clientID]
	if !ok {
		return nil, false
	}
	return p.clone(), true
}

func (pm *PresenceManager) Remove(clientID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.viewers, clientID)
}

// Users lists the distinct users present, sorted.
func (pm *PresenceManager) Users() []string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	seen := make(map[string]bool)
	var users []string
	for _, p := range pm.viewers {
		if !seen[p.UserID] {
			seen[p.UserID] = true
			users = append(users, p.UserID)
		}
	}
	sort.Strings(users)
	return users
}

func (pm *PresenceManager) StateMessage() *Message {
	pm.mu.RLock()
	state := PresenceStatePayload{Presences: make(map[string]*PresencePayload, len(pm.viewers))}
	for id, p := range pm.viewers {
		state.Presences[id] = p.clone()
	}
	pm.mu.RUnlock()

	payload, err := json.Marshal(state)
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return &Message{
		Type:    TypePresenceState,
		Payload: payload,
	}
}

func (p *PresencePayload) clone() *PresencePayload {
	cp := *p
	if p.Cursor != nil {
		cursor := *p.Cursor
		cp.Cursor = &cursor
	}
	if p.View != nil {
		view := *p.View
		cp.View = &view
	}
	cp.Selection = append([]string(nil), p.Selection...)
	return &cp
}
