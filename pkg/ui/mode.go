// Package ui holds the display-mode state machine. The mode selects which
// structured widget the client renders; transitions are driven only by tool
// result hints and agent switches, never by free-form assistant text.
package ui

import "log/slog"

// Mode is a closed-set tag selecting the structured UI shown to the user.
type Mode string

const (
	ModeChat                Mode = "CHAT"
	ModePropertyList        Mode = "PROPERTY_LIST"
	ModePropertyDetail      Mode = "PROPERTY_DETAIL"
	ModeImageGallery        Mode = "IMAGE_GALLERY"
	ModeLocationMap         Mode = "LOCATION_MAP"
	ModeBrochure            Mode = "BROCHURE"
	ModeSchedulingForm      Mode = "SCHEDULING_FORM"
	ModeVerificationForm    Mode = "VERIFICATION_FORM"
	ModeCodeForm            Mode = "CODE_FORM"
	ModeVerificationSuccess Mode = "VERIFICATION_SUCCESS"
	ModeBookingConfirmation Mode = "BOOKING_CONFIRMATION"
)

var validModes = map[Mode]bool{
	ModeChat:                true,
	ModePropertyList:        true,
	ModePropertyDetail:      true,
	ModeImageGallery:        true,
	ModeLocationMap:         true,
	ModeBrochure:            true,
	ModeSchedulingForm:      true,
	ModeVerificationForm:    true,
	ModeCodeForm:            true,
	ModeVerificationSuccess: true,
	ModeBookingConfirmation: true,
}

// Valid reports whether m is a member of the closed set.
func (m Mode) Valid() bool { return validModes[m] }

// State tracks the current display mode and its opaque payload.
type State struct {
	Mode    Mode `json:"mode"`
	Payload any  `json:"payload,omitempty"`
}

// NewState returns the post-bootstrap initial state.
func NewState() *State {
	return &State{Mode: ModeChat}
}

// ApplyHint transitions on a tool result hint. A missing or unparseable hint
// falls back to Chat only when the envelope explicitly asked for a transition;
// an empty hint leaves the current mode alone.
func (s *State) ApplyHint(hint Mode, payload any) {
	if hint == "" {
		return
	}
	if !hint.Valid() {
		slog.Warn("Unknown ui_display_hint, falling back to chat", "hint", string(hint))
		s.Mode = ModeChat
		s.Payload = nil
		return
	}
	s.Mode = hint
	s.Payload = payload
}

// ApplyAgentSwitch forces the mode implied by entering an agent. Entering
// verification or scheduling shows their forms; returning to discovery clears
// sub-state back to chat.
func (s *State) ApplyAgentSwitch(agentName string) {
	switch agentName {
	case "verification":
		s.Mode = ModeVerificationForm
		s.Payload = nil
	case "scheduling":
		s.Mode = ModeSchedulingForm
		s.Payload = nil
	case "discovery":
		s.Mode = ModeChat
		s.Payload = nil
	}
}
