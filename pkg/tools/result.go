package tools

import "github.com/Arun-Raghav-S/chatagent-sub000/pkg/ui"

// Result is the envelope every tool hands back to the orchestrator.
//
// Transfer intent and domain success are orthogonal: a result may request a
// transfer without the underlying action having completed, and vice versa.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	// Message is the user-facing line. nil suppresses speech entirely, which
	// is distinct from an empty string.
	Message *string `json:"message,omitempty"`

	// UIHint selects the widget to show. Empty leaves the current mode alone.
	UIHint ui.Mode `json:"ui_display_hint,omitempty"`
	UIData any     `json:"ui_data,omitempty"`

	// DestinationAgent requests a hand-off. SilentTransfer suppresses the
	// outgoing message; the destination's first action produces the next line.
	DestinationAgent string `json:"destination_agent,omitempty"`
	SilentTransfer   bool   `json:"silentTransfer,omitempty"`

	// MetadataPatch is merged into the session metadata before any transfer.
	MetadataPatch map[string]any `json:"metadata_patch,omitempty"`

	// Data is the arbitrary domain payload.
	Data any `json:"data,omitempty"`
}

// Ok returns a successful envelope with a spoken message.
func Ok(message string) *Result {
	return &Result{Success: true, Message: &message}
}

// Silent returns a successful envelope with speech suppressed.
func Silent() *Result {
	return &Result{Success: true}
}

// Errorf returns a domain error envelope with a user-safe message and a
// form-appropriate hint for fixing the problem.
func Errorf(message string, hint ui.Mode) *Result {
	return &Result{Success: false, Error: message, Message: &message, UIHint: hint}
}

// WithUI attaches a display hint and payload.
func (r *Result) WithUI(hint ui.Mode, data any) *Result {
	r.UIHint = hint
	r.UIData = data
	return r
}

// WithPatch merges fields into the metadata patch.
func (r *Result) WithPatch(patch map[string]any) *Result {
	if r.MetadataPatch == nil {
		r.MetadataPatch = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		r.MetadataPatch[k] = v
	}
	return r
}

// WithTransfer requests a hand-off to another agent.
func (r *Result) WithTransfer(destination string, silent bool) *Result {
	r.DestinationAgent = destination
	r.SilentTransfer = silent
	return r
}
