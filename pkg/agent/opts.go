package agent

import "github.com/Arun-Raghav-S/chatagent-sub000/pkg/tools"

type Opt func(*Agent)

func WithDescription(description string) Opt {
	return func(a *Agent) {
		a.description = description
	}
}

// WithDownstream declares the agents this one may transfer to.
func WithDownstream(names ...string) Opt {
	return func(a *Agent) {
		a.downstream = append(a.downstream, names...)
	}
}

// WithTool registers a domain tool and its handler.
func WithTool(def tools.Tool, handler tools.Handler) Opt {
	return func(a *Agent) {
		a.defs = append(a.defs, def)
		a.handlers[def.Function.Name] = handler
	}
}

// WithGreetingPrompt marks an agent that does not open on its own and waits
// for a synthesized opening prompt instead.
func WithGreetingPrompt() Opt {
	return func(a *Agent) {
		a.wantsGreetingPrompt = true
	}
}
