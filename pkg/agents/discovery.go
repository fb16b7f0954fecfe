package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/agent"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/metadata"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/services"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/tools"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/ui"
)

func discoveryInstructions(meta *metadata.Record) string {
	var b strings.Builder
	b.WriteString("You are the property discovery assistant. Help the user explore available properties, answer questions about price, area, amenities and units, and offer site visits.\n")
	fmt.Fprintf(&b, "Tenant: %s. Language: %s.\n", meta.TenantID, orDefault(meta.Language, "en"))
	if meta.CustomerName != "" {
		fmt.Fprintf(&b, "The customer's name is %s.\n", meta.CustomerName)
	}
	if meta.ActivePropertyName != "" {
		fmt.Fprintf(&b, "The conversation is currently about %s.\n", meta.ActivePropertyName)
	}
	if meta.IsVerified {
		b.WriteString("The customer's phone number is already verified; never ask them to verify again.\n")
	}
	if meta.HasScheduled {
		fmt.Fprintf(&b, "A visit is already booked for %s on %s at %s.\n", meta.PropertyNameToSchedule, meta.SelectedDate, meta.SelectedTime)
	}
	b.WriteString("When the user wants to book a visit, call request_verification. Never describe UI widgets in speech; the display follows your tool results.")
	return b.String()
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

type discoveryTools struct {
	deps Deps
}

func newDiscoveryAgent(deps Deps) *agent.Agent {
	dt := &discoveryTools{deps: deps}

	return agent.New(Discovery, discoveryInstructions,
		agent.WithDescription("guides the user through property discovery"),
		agent.WithDownstream(Verification, Scheduling),
		agent.WithGreetingPrompt(),
		agent.WithTool(tools.Tool{Function: &tools.FunctionDefinition{
			Name:        tools.NameListProperties,
			Description: "List every property available to this tenant.",
			Parameters:  tools.FunctionParameters{Type: "object"},
		}}, dt.listProperties),
		agent.WithTool(tools.Tool{Function: &tools.FunctionDefinition{
			Name:        tools.NameGetPropertyDetails,
			Description: "Show the detail card for one property.",
			Parameters:  propertyParams(),
		}}, dt.propertyView(ui.ModePropertyDetail)),
		agent.WithTool(tools.Tool{Function: &tools.FunctionDefinition{
			Name:        tools.NameShowPropertyImages,
			Description: "Open the image gallery for a property.",
			Parameters:  propertyParams(),
		}}, dt.propertyView(ui.ModeImageGallery)),
		agent.WithTool(tools.Tool{Function: &tools.FunctionDefinition{
			Name:        tools.NameShowPropertyLocation,
			Description: "Show the property on a map.",
			Parameters:  propertyParams(),
		}}, dt.propertyView(ui.ModeLocationMap)),
		agent.WithTool(tools.Tool{Function: &tools.FunctionDefinition{
			Name:        tools.NameShowPropertyBrochure,
			Description: "Open the property brochure.",
			Parameters:  propertyParams(),
		}}, dt.propertyView(ui.ModeBrochure)),
		agent.WithTool(tools.Tool{Function: &tools.FunctionDefinition{
			Name:        tools.NameRequestVerification,
			Description: "Start the visit-booking flow. Routes through phone verification when needed.",
			Parameters:  propertyParams(),
		}}, dt.requestVerification),
	)
}

func propertyParams() tools.FunctionParameters {
	return tools.FunctionParameters{
		Type: "object",
		Properties: map[string]any{
			"property_id": map[string]any{
				"type":        "string",
				"description": "Property id or exact name. Defaults to the active property.",
			},
		},
	}
}

type propertyArgs struct {
	PropertyID string `json:"property_id"`
}

// resolveProperty validates the requested property id, healing a missing or
// malformed one from the active property in metadata.
func (dt *discoveryTools) resolveProperty(ctx context.Context, args json.RawMessage, meta *metadata.Record) (*services.Property, *tools.Result) {
	var req propertyArgs
	_ = json.Unmarshal(args, &req)

	idOrName := strings.TrimSpace(req.PropertyID)
	if idOrName == "" {
		idOrName = meta.ActivePropertyID
	}
	if idOrName == "" {
		return nil, tools.Errorf("Which property would you like to look at?", ui.ModePropertyList)
	}

	properties, err := dt.deps.Catalog.ListProperties(ctx, meta.TenantID)
	if err != nil {
		return nil, tools.Errorf("I couldn't reach the property catalog just now, please try again.", ui.ModeChat)
	}

	property, found := services.FindProperty(properties, idOrName)
	if !found {
		return nil, tools.Errorf(fmt.Sprintf("I couldn't find %q, here is what's available.", idOrName), ui.ModePropertyList).
			WithUI(ui.ModePropertyList, properties)
	}
	return property, nil
}

func (dt *discoveryTools) listProperties(ctx context.Context, _ json.RawMessage, meta *metadata.Record) (*tools.Result, error) {
	properties, err := dt.deps.Catalog.ListProperties(ctx, meta.TenantID)
	if err != nil {
		return tools.Errorf("I couldn't reach the property catalog just now, please try again.", ui.ModeChat), nil
	}

	return tools.Ok(fmt.Sprintf("We have %d properties available.", len(properties))).
		WithUI(ui.ModePropertyList, properties), nil
}

// propertyView builds a handler that resolves a property and shows it in the
// given mode. The spoken line stays short; the widget carries the content.
func (dt *discoveryTools) propertyView(mode ui.Mode) tools.Handler {
	return func(ctx context.Context, args json.RawMessage, meta *metadata.Record) (*tools.Result, error) {
		property, errRes := dt.resolveProperty(ctx, args, meta)
		if errRes != nil {
			return errRes, nil
		}

		res := tools.Ok(fmt.Sprintf("Here's %s.", property.Name)).
			WithUI(mode, property).
			WithPatch(map[string]any{
				"active_property_id":   property.ID,
				"active_property_name": property.Name,
			})
		return res, nil
	}
}

// requestVerification moves the user toward booking. Verified users go
// straight to scheduling; everyone else passes through verification first,
// with the chosen property forwarded so the booking survives the hand-off.
func (dt *discoveryTools) requestVerification(ctx context.Context, args json.RawMessage, meta *metadata.Record) (*tools.Result, error) {
	property, errRes := dt.resolveProperty(ctx, args, meta)
	if errRes != nil {
		return errRes, nil
	}

	patch := map[string]any{
		"property_id_to_schedule":   property.ID,
		"property_name_to_schedule": property.Name,
		"flow_context":              "scheduling",
	}

	if meta.IsVerified {
		return tools.Silent().
			WithTransfer(Scheduling, true).
			WithPatch(patch), nil
	}

	return tools.Ok("I just need to verify your phone number before booking.").
		WithTransfer(Verification, false).
		WithUI(ui.ModeVerificationForm, nil).
		WithPatch(patch), nil
}
