package tools

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/metadata"
)

// Closed set of tool identifiers known to the system. Dispatch is by name
// with a total fallback; an unknown or foreign name degrades to a harmless
// logged response rather than a hard failure.
const (
	NameTransferAgents       = "transfer_agents"
	NameListProperties       = "list_properties"
	NameGetPropertyDetails   = "get_property_details"
	NameShowPropertyImages   = "show_property_images"
	NameShowPropertyLocation = "show_property_location"
	NameShowPropertyBrochure = "show_property_brochure"
	NameRequestVerification  = "request_verification"
	NameSubmitPhoneNumber    = "submit_phone_number"
	NameVerifyCode           = "verify_code"
	NameGetAvailableSlots    = "get_available_slots"
	NameScheduleVisit        = "schedule_visit"
)

// Names lists every known tool identifier.
func Names() []string {
	return []string{
		NameTransferAgents,
		NameListProperties,
		NameGetPropertyDetails,
		NameShowPropertyImages,
		NameShowPropertyLocation,
		NameShowPropertyBrochure,
		NameRequestVerification,
		NameSubmitPhoneNumber,
		NameVerifyCode,
		NameGetAvailableSlots,
		NameScheduleVisit,
	}
}

// NoOp returns a handler that acknowledges a misrouted call without side
// effects. Agents register it for every foreign tool name so a routing
// mistake never hard-fails the turn.
func NoOp(agentName string) Handler {
	return func(_ context.Context, _ json.RawMessage, _ *metadata.Record) (*Result, error) {
		slog.Warn("Tool call routed to agent that does not own it, ignoring", "agent", agentName)
		return Silent(), nil
	}
}
