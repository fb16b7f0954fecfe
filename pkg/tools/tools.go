// Package tools defines the invocation contract between the orchestrator and
// each agent's callable actions.
package tools

import (
	"context"
	"encoding/json"

	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/metadata"
)

// ToolCall is one requested invocation, as delivered by the realtime channel.
type ToolCall struct {
	ID       string       `json:"id,omitempty"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// Tool describes a callable action with a fixed argument schema.
type Tool struct {
	Function *FunctionDefinition `json:"function,omitempty"`
}

type FunctionDefinition struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  FunctionParameters `json:"parameters"`
}

type FunctionParameters struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Required   []string       `json:"required,omitempty"`
}

// Handler executes a tool call against a point-in-time snapshot of the
// metadata record; updates travel back through the result's metadata patch.
// Handlers never leak transport or remote errors past their boundary;
// failures come back as error envelopes.
type Handler func(ctx context.Context, args json.RawMessage, meta *metadata.Record) (*Result, error)
