package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/agent"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/metadata"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/tools"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/ui"
)

// visitSlots is the fixed grid of visit times offered per day.
var visitSlots = []string{"10:00", "11:30", "14:00", "16:30"}

func schedulingInstructions(meta *metadata.Record) string {
	var b strings.Builder
	b.WriteString("You are the visit scheduling assistant. Offer available slots and confirm the booking.\n")
	if meta.PropertyNameToSchedule != "" {
		fmt.Fprintf(&b, "The visit is for %s.\n", meta.PropertyNameToSchedule)
	}
	if meta.SelectedDate != "" {
		fmt.Fprintf(&b, "The customer has picked %s at %s.\n", meta.SelectedDate, meta.SelectedTime)
	}
	b.WriteString("The scheduling form collects the date and time; keep speech to short confirmations.")
	return b.String()
}

type schedulingTools struct {
	deps Deps
}

func newSchedulingAgent(deps Deps) *agent.Agent {
	st := &schedulingTools{deps: deps}

	return agent.New(Scheduling, schedulingInstructions,
		agent.WithDescription("books property visits"),
		agent.WithDownstream(Discovery, Verification),
		agent.WithTool(tools.Tool{Function: &tools.FunctionDefinition{
			Name:        tools.NameGetAvailableSlots,
			Description: "List available visit slots for a property and date.",
			Parameters: tools.FunctionParameters{
				Type: "object",
				Properties: map[string]any{
					"property_id": map[string]any{"type": "string"},
					"date":        map[string]any{"type": "string", "description": "YYYY-MM-DD"},
				},
			},
		}}, st.getAvailableSlots),
		agent.WithTool(tools.Tool{Function: &tools.FunctionDefinition{
			Name:        tools.NameScheduleVisit,
			Description: "Book the visit for the chosen date and time.",
			Parameters: tools.FunctionParameters{
				Type: "object",
				Properties: map[string]any{
					"property_id": map[string]any{"type": "string"},
					"date":        map[string]any{"type": "string"},
					"time":        map[string]any{"type": "string"},
				},
				Required: []string{"date", "time"},
			},
		}}, st.scheduleVisit),
	)
}

type slotArgs struct {
	PropertyID string `json:"property_id"`
	Date       string `json:"date"`
}

func (st *schedulingTools) getAvailableSlots(_ context.Context, args json.RawMessage, meta *metadata.Record) (*tools.Result, error) {
	var req slotArgs
	_ = json.Unmarshal(args, &req)

	propertyID := strings.TrimSpace(req.PropertyID)
	if propertyID == "" {
		propertyID = meta.PropertyIDToSchedule
	}
	if propertyID == "" {
		return tools.Errorf("Which property is the visit for?", ui.ModePropertyList), nil
	}

	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return tools.Errorf("Please pick a date from the calendar.", ui.ModeSchedulingForm), nil
	}

	return tools.Ok("Here are the available times.").
		WithUI(ui.ModeSchedulingForm, map[string]any{
			"property_id": propertyID,
			"date":        date,
			"slots":       visitSlots,
		}).
		WithPatch(map[string]any{"property_id_to_schedule": propertyID}), nil
}

type visitArgs struct {
	PropertyID string `json:"property_id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
}

func (st *schedulingTools) scheduleVisit(_ context.Context, args json.RawMessage, meta *metadata.Record) (*tools.Result, error) {
	var req visitArgs
	_ = json.Unmarshal(args, &req)

	propertyID := strings.TrimSpace(req.PropertyID)
	if propertyID == "" {
		propertyID = meta.PropertyIDToSchedule
	}
	if propertyID == "" {
		return tools.Errorf("Which property is the visit for?", ui.ModePropertyList), nil
	}

	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return tools.Errorf("Please pick a valid date from the calendar.", ui.ModeSchedulingForm), nil
	}
	if _, err := time.Parse("15:04", req.Time); err != nil {
		return tools.Errorf("Please pick a time slot.", ui.ModeSchedulingForm), nil
	}

	// Booking requires a verified phone number. Forward the pick so nothing
	// is asked twice after verification.
	if !meta.IsVerified {
		return tools.Ok("I just need to verify your phone number to confirm the booking.").
			WithTransfer(Verification, false).
			WithUI(ui.ModeVerificationForm, nil).
			WithPatch(map[string]any{
				"property_id_to_schedule": propertyID,
				"selected_date":           req.Date,
				"selected_time":           req.Time,
				"flow_context":            "scheduling",
			}), nil
	}

	propertyName := meta.PropertyNameToSchedule
	if propertyName == "" {
		propertyName = propertyID
	}

	return tools.Ok(fmt.Sprintf("Done. Your visit to %s is booked for %s at %s.", propertyName, req.Date, req.Time)).
		WithUI(ui.ModeBookingConfirmation, map[string]string{
			"property_id":   propertyID,
			"property_name": propertyName,
			"date":          req.Date,
			"time":          req.Time,
		}).
		WithPatch(map[string]any{
			"property_id_to_schedule": propertyID,
			"selected_date":           req.Date,
			"selected_time":           req.Time,
			"has_scheduled":           true,
		}).
		WithTransfer(Discovery, true), nil
}
