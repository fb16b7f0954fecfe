package team

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/agent"
)

func TestAgentLookup(t *testing.T) {
	tm := New(
		WithID("tenant-9012"),
		WithAgents(
			agent.New("discovery", nil),
			agent.New("verification", nil),
			agent.New("scheduling", nil),
		),
	)

	assert.Equal(t, 3, tm.Size())
	assert.Equal(t, []string{"discovery", "scheduling", "verification"}, tm.AgentNames())

	a, err := tm.Agent("verification")
	require.NoError(t, err)
	assert.Equal(t, "verification", a.Name())

	_, err = tm.Agent("billing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available agents: discovery, scheduling, verification")
}

func TestEmptyTeam(t *testing.T) {
	_, err := New().Agent("discovery")
	require.Error(t, err)
}
