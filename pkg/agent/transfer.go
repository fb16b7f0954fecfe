package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/metadata"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/tools"
)

// transferArgs is the argument schema of the injected transfer tool.
type transferArgs struct {
	DestinationAgent string         `json:"destination_agent"`
	Context          map[string]any `json:"context,omitempty"`
	Silent           bool           `json:"silent,omitempty"`
}

// injectTransferTool adds the generic transfer tool, restricted to the
// agent's declared downstream set.
func (a *Agent) injectTransferTool() {
	if len(a.downstream) == 0 {
		return
	}

	a.defs = append(a.defs, tools.Tool{
		Function: &tools.FunctionDefinition{
			Name: tools.NameTransferAgents,
			Description: "Transfer the conversation to another agent. Valid destinations: " +
				strings.Join(a.downstream, ", ") + ".",
			Parameters: tools.FunctionParameters{
				Type: "object",
				Properties: map[string]any{
					"destination_agent": map[string]any{
						"type":        "string",
						"description": "Name of the agent to hand the conversation to.",
						"enum":        a.downstream,
					},
					"context": map[string]any{
						"type":        "object",
						"description": "Metadata fields to forward across the hand-off.",
					},
					"silent": map[string]any{
						"type":        "boolean",
						"description": "Suppress the outgoing message; the destination speaks next.",
					},
				},
				Required: []string{"destination_agent"},
			},
		},
	})
	a.handlers[tools.NameTransferAgents] = a.handleTransfer
}

func (a *Agent) handleTransfer(_ context.Context, args json.RawMessage, meta *metadata.Record) (*tools.Result, error) {
	var req transferArgs
	if err := json.Unmarshal(args, &req); err != nil {
		return tools.Errorf("I could not route that request, could you rephrase it?", ""), nil
	}

	if req.DestinationAgent == a.name {
		return tools.Errorf(fmt.Sprintf("already handled by %s", a.name), ""), nil
	}
	if !a.CanTransferTo(req.DestinationAgent) {
		return tools.Errorf(fmt.Sprintf(
			"cannot transfer to %q from %s (valid: %s)",
			req.DestinationAgent, a.name, strings.Join(a.downstream, ", "),
		), ""), nil
	}

	// A finished verification step is never re-entered; a routing mistake
	// must not ask the user to verify twice.
	if req.DestinationAgent == "verification" && meta.IsVerified {
		return &tools.Result{
			Success: false,
			Error:   "user is already verified; verification cannot be re-entered",
		}, nil
	}

	res := tools.Silent().WithTransfer(req.DestinationAgent, req.Silent)
	if len(req.Context) > 0 {
		res.WithPatch(req.Context)
	}
	return res, nil
}
