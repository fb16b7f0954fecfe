// Package agent defines a named conversational role: an instruction
// generator, a set of callable tools and the downstream agents it may
// transfer to.
package agent

import (
	"slices"

	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/metadata"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/tools"
)

// InstructionsFunc generates the agent's instructions from the current
// metadata record. It must be pure: the orchestrator regenerates instructions
// on every metadata change and on reconnect.
type InstructionsFunc func(meta *metadata.Record) string

// Agent is a specialized conversational role.
type Agent struct {
	name                string
	description         string
	instructions        InstructionsFunc
	downstream          []string
	wantsGreetingPrompt bool

	defs     []tools.Tool
	handlers map[string]tools.Handler
}

// New creates an agent. The generic transfer tool is injected and restricted
// to the declared downstream set; every known-but-foreign tool name gets a
// no-op handler so misrouted calls degrade gracefully.
func New(name string, instructions InstructionsFunc, opts ...Opt) *Agent {
	a := &Agent{
		name:         name,
		instructions: instructions,
		handlers:     make(map[string]tools.Handler),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.injectTransferTool()

	for _, foreign := range tools.Names() {
		if _, owned := a.handlers[foreign]; !owned {
			a.handlers[foreign] = tools.NoOp(a.name)
		}
	}

	return a
}

func (a *Agent) Name() string        { return a.name }
func (a *Agent) Description() string { return a.description }

// WantsGreetingPrompt reports whether the agent waits for a synthesized
// opening prompt rather than greeting on its own.
func (a *Agent) WantsGreetingPrompt() bool { return a.wantsGreetingPrompt }

// Instructions regenerates the instruction text for the given metadata.
func (a *Agent) Instructions(meta *metadata.Record) string {
	if a.instructions == nil {
		return ""
	}
	return a.instructions(meta)
}

// Downstream returns the declared transfer destinations.
func (a *Agent) Downstream() []string { return a.downstream }

// CanTransferTo reports whether name is a declared downstream agent.
func (a *Agent) CanTransferTo(name string) bool {
	return slices.Contains(a.downstream, name)
}

// Tools returns the tool definitions exposed to the dialogue engine,
// domain tools plus the injected transfer tool.
func (a *Agent) Tools() []tools.Tool { return a.defs }

// Handler resolves a tool name to its executable action. The second return
// is false only for names outside the closed set; those also fall back to a
// no-op rather than an error.
func (a *Agent) Handler(name string) (tools.Handler, bool) {
	h, ok := a.handlers[name]
	if !ok {
		return tools.NoOp(a.name), false
	}
	return h, true
}
