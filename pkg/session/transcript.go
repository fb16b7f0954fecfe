package session

import (
	"time"

	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/ui"
)

// AddItem creates a transcript item. Duplicate-id creation is a no-op so
// redelivered frames are tolerated; the bool reports whether the item was
// created.
func (s *Session) AddItem(id, role, agentName string, hidden bool) bool {
	id = boundID(id)
	if id == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[id]; exists {
		return false
	}

	item := &Item{
		ID:        id,
		Role:      role,
		Status:    ItemInProgress,
		AgentName: agentName,
		Hidden:    hidden,
		CreatedAt: time.Now(),
	}
	s.items = append(s.items, item)
	s.index[id] = item
	return true
}

// AppendDelta concatenates streaming text onto an in-progress item. Deltas
// for a completed item are dropped: message-complete freezes mutation.
func (s *Session) AppendDelta(id, delta string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.index[boundID(id)]
	if !exists || item.Status == ItemDone {
		return
	}
	item.Text += delta
}

// CompleteItem finalizes an item. When text is non-empty it replaces the
// accumulated deltas; further mutation is frozen either way.
func (s *Session) CompleteItem(id, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.index[boundID(id)]
	if !exists {
		return
	}
	if item.Status == ItemDone {
		return
	}
	if text != "" {
		item.Text = text
	}
	item.Status = ItemDone
}

// Item returns a copy of the transcript item with the given id.
func (s *Session) Item(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.index[boundID(id)]
	if !exists {
		return Item{}, false
	}
	return *item, true
}

// AddDivider inserts the visible section marker that precedes the first
// assistant message after an agent switch.
func (s *Session) AddDivider(agentName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := &Item{
		ID:        boundID("divider-" + agentName + "-" + time.Now().Format("150405.000")),
		Role:      "system",
		Text:      agentName,
		Status:    ItemDone,
		AgentName: agentName,
		Divider:   true,
		CreatedAt: time.Now(),
	}
	s.items = append(s.items, item)
	s.index[item.ID] = item
}

// Transcript returns a copy of every item, hidden ones included.
func (s *Session) Transcript() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, *item)
	}
	return out
}

// VisibleTranscript applies the render-boundary filters: hidden markers and
// mechanical replays of structured submissions are excluded.
func (s *Session) VisibleTranscript() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		if item.Hidden {
			continue
		}
		if item.Role == "user" && ui.SuppressFromTranscript(item.Text) {
			continue
		}
		out = append(out, *item)
	}
	return out
}

func boundID(id string) string {
	if len(id) > maxItemIDLen {
		return id[:maxItemIDLen]
	}
	return id
}
