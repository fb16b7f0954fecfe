package metadata

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
)

var (
	// ErrIdentifierConflict is returned when a merge would leave two of the
	// three identifiers equal, or would blank one of them.
	ErrIdentifierConflict = errors.New("session, org and tenant identifiers must be pairwise distinct and non-empty")
)

// idPattern accepts any opaque identifier token. Identifiers only have to be
// non-empty and pairwise distinct, not UUID-shaped; whitespace or an
// unbounded length marks a value as malformed.
var idPattern = regexp.MustCompile(`^\S{1,64}$`)

// Record is the single mutable metadata record attached to the active agent.
// It is owned by the orchestrator; agents mutate it through the orchestrator's
// merge entry point, never through private copies.
type Record struct {
	// Identity. Immutable once assigned.
	SessionID string `json:"session_id"`
	OrgID     string `json:"org_id"`
	TenantID  string `json:"tenant_id"`

	// Conversational.
	Language        string `json:"language,omitempty"`
	CustomerName    string `json:"customer_name,omitempty"`
	PhoneNumber     string `json:"phone_number,omitempty"`
	IsVerified      bool   `json:"is_verified"`
	FlowContext     string `json:"flow_context,omitempty"`
	PendingQuestion string `json:"pending_question,omitempty"`

	// Transactional. Survives transfers.
	ActivePropertyID       string `json:"active_property_id,omitempty"`
	ActivePropertyName     string `json:"active_property_name,omitempty"`
	PropertyIDToSchedule   string `json:"property_id_to_schedule,omitempty"`
	PropertyNameToSchedule string `json:"property_name_to_schedule,omitempty"`
	SelectedDate           string `json:"selected_date,omitempty"`
	SelectedTime           string `json:"selected_time,omitempty"`
	HasScheduled           bool   `json:"has_scheduled"`

	// Extra holds forwarded transfer fields that have no dedicated column.
	Extra map[string]any `json:"extra,omitempty"`
}

// New creates a record with the three identifiers set.
func New(sessionID, orgID, tenantID string) *Record {
	return &Record{
		SessionID: sessionID,
		OrgID:     orgID,
		TenantID:  tenantID,
	}
}

// Validate checks that the three identifiers are well formed and pairwise
// distinct.
func (r *Record) Validate() error {
	for name, id := range map[string]string{
		"session_id": r.SessionID,
		"org_id":     r.OrgID,
		"tenant_id":  r.TenantID,
	} {
		if !idPattern.MatchString(id) {
			return fmt.Errorf("malformed %s %q: %w", name, id, ErrIdentifierConflict)
		}
	}
	if r.SessionID == r.OrgID || r.SessionID == r.TenantID || r.OrgID == r.TenantID {
		return ErrIdentifierConflict
	}
	return nil
}

// HealFrom restores malformed identifiers from a previous record. Identifiers
// that are well formed are kept; healing never overwrites a valid value.
func (r *Record) HealFrom(prev *Record) {
	if prev == nil {
		return
	}
	if !idPattern.MatchString(r.SessionID) && idPattern.MatchString(prev.SessionID) {
		slog.Warn("Healing malformed session_id from prior state", "malformed", r.SessionID)
		r.SessionID = prev.SessionID
	}
	if !idPattern.MatchString(r.OrgID) && idPattern.MatchString(prev.OrgID) {
		slog.Warn("Healing malformed org_id from prior state", "malformed", r.OrgID)
		r.OrgID = prev.OrgID
	}
	if !idPattern.MatchString(r.TenantID) && idPattern.MatchString(prev.TenantID) {
		slog.Warn("Healing malformed tenant_id from prior state", "malformed", r.TenantID)
		r.TenantID = prev.TenantID
	}
}

// Merge applies a transfer payload to the record. Known keys update their
// dedicated fields, unknown keys land in Extra. Identity fields are never
// overwritten by a merge; a payload that attempts to collapse two identifiers
// fails closed with ErrIdentifierConflict and leaves the record untouched.
func (r *Record) Merge(extra map[string]any) error {
	if len(extra) == 0 {
		return nil
	}

	// Fail closed before mutating anything.
	probe := r.Clone()
	probe.apply(extra)
	if err := probe.Validate(); err != nil {
		return err
	}

	r.apply(extra)
	return nil
}

func (r *Record) apply(extra map[string]any) {
	for key, value := range extra {
		switch key {
		case "session_id", "org_id", "tenant_id":
			// Identity is immutable once assigned; only fill blanks.
			s, _ := value.(string)
			switch key {
			case "session_id":
				if r.SessionID == "" {
					r.SessionID = s
				}
			case "org_id":
				if r.OrgID == "" {
					r.OrgID = s
				}
			case "tenant_id":
				if r.TenantID == "" {
					r.TenantID = s
				}
			}
		case "language":
			r.Language, _ = value.(string)
		case "customer_name":
			r.CustomerName, _ = value.(string)
		case "phone_number":
			r.PhoneNumber, _ = value.(string)
		case "is_verified":
			r.IsVerified, _ = value.(bool)
		case "flow_context":
			r.FlowContext, _ = value.(string)
		case "pending_question":
			r.PendingQuestion, _ = value.(string)
		case "active_property_id":
			r.ActivePropertyID, _ = value.(string)
		case "active_property_name":
			r.ActivePropertyName, _ = value.(string)
		case "property_id_to_schedule":
			r.PropertyIDToSchedule, _ = value.(string)
		case "property_name_to_schedule":
			r.PropertyNameToSchedule, _ = value.(string)
		case "selected_date":
			r.SelectedDate, _ = value.(string)
		case "selected_time":
			r.SelectedTime, _ = value.(string)
		case "has_scheduled":
			r.HasScheduled, _ = value.(bool)
		default:
			if r.Extra == nil {
				r.Extra = make(map[string]any)
			}
			r.Extra[key] = value
		}
	}
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	clone := *r
	if r.Extra != nil {
		clone.Extra = make(map[string]any, len(r.Extra))
		for k, v := range r.Extra {
			clone.Extra[k] = v
		}
	}
	return &clone
}

// ClearSchedulingState drops scheduling and verification sub-state. Used when
// control returns to the discovery agent.
func (r *Record) ClearSchedulingState() {
	r.PropertyIDToSchedule = ""
	r.PropertyNameToSchedule = ""
	r.SelectedDate = ""
	r.SelectedTime = ""
	r.FlowContext = ""
	r.PendingQuestion = ""
}
