// Package session holds the per-connection conversation state: the metadata
// record, the transcript and the display-mode snapshot. One goroutine (the
// pipeline) mutates a session; everyone else reads snapshots.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/metadata"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/ui"
)

// maxItemIDLen bounds transcript item ids. Longer ids are truncated rather
// than rejected so redelivered frames with oversized ids still deduplicate.
const maxItemIDLen = 64

type ItemStatus string

const (
	ItemInProgress ItemStatus = "in_progress"
	ItemDone       ItemStatus = "done"
)

// Item is one transcript entry. Text is mutable while streaming and frozen
// once the item completes.
type Item struct {
	ID        string     `json:"id"`
	Role      string     `json:"role"`
	Text      string     `json:"text"`
	Status    ItemStatus `json:"status"`
	AgentName string     `json:"agent_name,omitempty"`

	// Hidden entries carry the reserved marker for synthesized utterances;
	// they are dispatched but never rendered.
	Hidden bool `json:"hidden,omitempty"`

	// Divider marks the visible system section inserted on an agent switch.
	Divider bool `json:"divider,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Session is the conversation state for one connection.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	mu          sync.RWMutex
	meta        *metadata.Record
	activeAgent string
	display     *ui.State

	items []*Item
	index map[string]*Item

	// greetingSent is monotonic: at most one synthesized opening utterance
	// per connection.
	greetingSent bool
}

// New creates a session owning the given metadata record.
func New(meta *metadata.Record) *Session {
	if meta.SessionID == "" {
		meta.SessionID = uuid.New().String()
	}
	slog.Debug("Creating session", "session_id", meta.SessionID)

	return &Session{
		ID:        meta.SessionID,
		CreatedAt: time.Now(),
		meta:      meta,
		display:   ui.NewState(),
		index:     make(map[string]*Item),
	}
}

// Metadata returns the shared metadata record. There is exactly one record
// per session; agents mutate it through the orchestrator, never copies.
func (s *Session) Metadata() *metadata.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta
}

func (s *Session) ActiveAgent() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeAgent
}

func (s *Session) SetActiveAgent(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeAgent = name
}

// Display returns the current display-mode state.
func (s *Session) Display() ui.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.display
}

func (s *Session) ApplyHint(hint ui.Mode, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.display.ApplyHint(hint, payload)
}

func (s *Session) ApplyAgentSwitch(agentName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.display.ApplyAgentSwitch(agentName)
}

// MarkGreetingSent flips the monotonic opening-utterance flag. Returns false
// if a greeting was already sent this connection.
func (s *Session) MarkGreetingSent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.greetingSent {
		return false
	}
	s.greetingSent = true
	return true
}

func (s *Session) GreetingSent() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.greetingSent
}
