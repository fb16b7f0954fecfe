package server

import (
	"time"

	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/metadata"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/session"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/ui"
)

// CreateSessionRequest optionally overrides the deployment's tenant and
// language for one session.
type CreateSessionRequest struct {
	TenantID string `json:"tenant_id,omitempty"`
	Language string `json:"language,omitempty"`
}

// SessionResponse is the full snapshot of one session: metadata, active
// agent, display state and the visible transcript.
type SessionResponse struct {
	ID          string           `json:"id"`
	CreatedAt   time.Time        `json:"created_at"`
	ActiveAgent string           `json:"active_agent"`
	Metadata    *metadata.Record `json:"metadata"`
	Display     ui.State         `json:"display"`
	Transcript  []session.Item   `json:"transcript"`
}

// MessageRequest is a user utterance submitted over HTTP instead of the
// realtime channel.
type MessageRequest struct {
	Text string `json:"text"`
}

type MessageResponse struct {
	ItemID string `json:"item_id"`
}

func snapshot(sess *session.Session) SessionResponse {
	return SessionResponse{
		ID:          sess.ID,
		CreatedAt:   sess.CreatedAt,
		ActiveAgent: sess.ActiveAgent(),
		Metadata:    sess.Metadata().Clone(),
		Display:     sess.Display(),
		Transcript:  sess.VisibleTranscript(),
	}
}
