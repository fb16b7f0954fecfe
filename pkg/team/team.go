// Package team is the agent registry: every agent a session can transfer to,
// keyed by name.
package team

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/agent"
)

type Team struct {
	ID     string
	agents map[string]*agent.Agent
}

type Opt func(*Team)

func WithID(id string) Opt {
	return func(t *Team) {
		t.ID = id
	}
}

func WithAgents(agents ...*agent.Agent) Opt {
	return func(t *Team) {
		for _, a := range agents {
			t.agents[a.Name()] = a
		}
	}
}

func New(opts ...Opt) *Team {
	t := &Team{
		agents: make(map[string]*agent.Agent),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Team) AgentNames() []string {
	var names []string
	for name := range t.agents {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (t *Team) Agent(name string) (*agent.Agent, error) {
	if t.Size() == 0 {
		return nil, errors.New("no agents registered; the team needs at least one agent")
	}

	found, ok := t.agents[name]
	if !ok {
		return nil, fmt.Errorf("agent not found: %s (available agents: %s)", name, strings.Join(t.AgentNames(), ", "))
	}

	return found, nil
}

func (t *Team) Size() int {
	return len(t.agents)
}
