package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/agent"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/metadata"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/services"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/tools"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/ui"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\s-]{6,14}$`)

func verificationInstructions(meta *metadata.Record) string {
	var b strings.Builder
	b.WriteString("You are the identity verification assistant. Collect the customer's name and phone number, send a one-time code and check it.\n")
	if meta.CustomerName != "" {
		fmt.Fprintf(&b, "The customer introduced themselves as %s.\n", meta.CustomerName)
	}
	if meta.FlowContext == "scheduling" {
		fmt.Fprintf(&b, "Verification was entered to book a visit to %s; resume scheduling as soon as the code checks out.\n", meta.PropertyNameToSchedule)
	}
	b.WriteString("Never read codes back to the user. The forms on screen collect the values; keep speech short.")
	return b.String()
}

type verificationTools struct {
	deps Deps
}

func newVerificationAgent(deps Deps) *agent.Agent {
	vt := &verificationTools{deps: deps}

	return agent.New(Verification, verificationInstructions,
		agent.WithDescription("verifies the customer's phone number with a one-time code"),
		agent.WithDownstream(Discovery, Scheduling),
		agent.WithTool(tools.Tool{Function: &tools.FunctionDefinition{
			Name:        tools.NameSubmitPhoneNumber,
			Description: "Send a one-time code to the given phone number.",
			Parameters: tools.FunctionParameters{
				Type: "object",
				Properties: map[string]any{
					"name":         map[string]any{"type": "string"},
					"phone_number": map[string]any{"type": "string"},
				},
				Required: []string{"name", "phone_number"},
			},
		}}, vt.submitPhoneNumber),
		agent.WithTool(tools.Tool{Function: &tools.FunctionDefinition{
			Name:        tools.NameVerifyCode,
			Description: "Check the one-time code the user entered.",
			Parameters: tools.FunctionParameters{
				Type: "object",
				Properties: map[string]any{
					"code": map[string]any{"type": "string"},
				},
				Required: []string{"code"},
			},
		}}, vt.verifyCode),
	)
}

type submitPhoneArgs struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

func (vt *verificationTools) submitPhoneNumber(ctx context.Context, args json.RawMessage, meta *metadata.Record) (*tools.Result, error) {
	var req submitPhoneArgs
	_ = json.Unmarshal(args, &req)

	// Heal missing fields from metadata before rejecting.
	if strings.TrimSpace(req.Name) == "" {
		req.Name = meta.CustomerName
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		req.PhoneNumber = meta.PhoneNumber
	}

	if strings.TrimSpace(req.Name) == "" || !phonePattern.MatchString(strings.TrimSpace(req.PhoneNumber)) {
		return tools.Errorf("Please enter your name and a valid phone number.", ui.ModeVerificationForm), nil
	}

	resp, err := vt.deps.Verification.SendCode(ctx, services.SendCodeRequest{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		SessionID:   meta.SessionID,
		OrgID:       meta.OrgID,
		TenantID:    meta.TenantID,
	})
	if err != nil {
		return tools.Errorf("I couldn't send the code just now, please try again.", ui.ModeVerificationForm), nil
	}
	if !resp.OK {
		return tools.Errorf("That number didn't work, please check it and try again.", ui.ModeVerificationForm), nil
	}

	return tools.Ok("I've sent a six digit code to your phone.").
		WithUI(ui.ModeCodeForm, map[string]string{"phone_number": req.PhoneNumber}).
		WithPatch(map[string]any{
			"customer_name": req.Name,
			"phone_number":  req.PhoneNumber,
		}), nil
}

type verifyCodeArgs struct {
	Code string `json:"code"`
}

func (vt *verificationTools) verifyCode(ctx context.Context, args json.RawMessage, meta *metadata.Record) (*tools.Result, error) {
	var req verifyCodeArgs
	_ = json.Unmarshal(args, &req)

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return tools.Errorf("Please enter the code you received.", ui.ModeCodeForm), nil
	}

	resp, err := vt.deps.Verification.CheckCode(ctx, services.CheckCodeRequest{
		PhoneNumber: meta.PhoneNumber,
		Code:        code,
		SessionID:   meta.SessionID,
		OrgID:       meta.OrgID,
		TenantID:    meta.TenantID,
	})
	if err != nil {
		return tools.Errorf("I couldn't check the code just now, please try again.", ui.ModeCodeForm), nil
	}

	// The explicit boolean is the only authority on the outcome; the
	// backend's message is never parsed for it.
	if !resp.Verified {
		return tools.Errorf("That code doesn't match, please try again.", ui.ModeCodeForm), nil
	}

	patch := map[string]any{"is_verified": true}

	// Resume the interrupted booking when verification was entered from it.
	if meta.FlowContext == "scheduling" {
		if meta.SelectedDate != "" && meta.SelectedTime != "" {
			patch["has_scheduled"] = true
			return tools.Ok(fmt.Sprintf("You're verified. Your visit to %s is booked for %s at %s.",
				meta.PropertyNameToSchedule, meta.SelectedDate, meta.SelectedTime)).
				WithUI(ui.ModeBookingConfirmation, map[string]string{
					"property_id":   meta.PropertyIDToSchedule,
					"property_name": meta.PropertyNameToSchedule,
					"date":          meta.SelectedDate,
					"time":          meta.SelectedTime,
				}).
				WithPatch(patch).
				WithTransfer(Discovery, true), nil
		}

		return tools.Silent().
			WithPatch(patch).
			WithTransfer(Scheduling, true), nil
	}

	return tools.Ok("You're verified, thank you.").
		WithUI(ui.ModeVerificationSuccess, nil).
		WithPatch(patch).
		WithTransfer(Discovery, true), nil
}
