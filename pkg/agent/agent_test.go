package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/metadata"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/tools"
)

func newTestAgent(t *testing.T, downstream ...string) *Agent {
	t.Helper()
	return New("discovery",
		func(meta *metadata.Record) string { return "You serve " + meta.TenantID },
		WithDescription("finds properties"),
		WithDownstream(downstream...),
	)
}

func TestInstructionsRegenerateFromMetadata(t *testing.T) {
	a := newTestAgent(t, "verification")

	meta := metadata.New("sess-1234", "org-5678", "tenant-9012")
	assert.Equal(t, "You serve tenant-9012", a.Instructions(meta))

	meta.TenantID = "tenant-3344"
	assert.Equal(t, "You serve tenant-3344", a.Instructions(meta))
}

func TestTransferToolInjectedForDownstream(t *testing.T) {
	a := newTestAgent(t, "verification", "scheduling")

	var names []string
	for _, def := range a.Tools() {
		names = append(names, def.Function.Name)
	}
	assert.Contains(t, names, tools.NameTransferAgents)

	// No downstream set, no transfer tool.
	leaf := New("leaf", nil)
	assert.Empty(t, leaf.Tools())
}

func TestTransferGuards(t *testing.T) {
	a := newTestAgent(t, "verification", "scheduling")
	meta := metadata.New("sess-1234", "org-5678", "tenant-9012")

	handler, ok := a.Handler(tools.NameTransferAgents)
	require.True(t, ok)

	t.Run("self transfer refused", func(t *testing.T) {
		res, err := handler(context.Background(), json.RawMessage(`{"destination_agent":"discovery"}`), meta)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Empty(t, res.DestinationAgent)
	})

	t.Run("undeclared destination refused", func(t *testing.T) {
		res, err := handler(context.Background(), json.RawMessage(`{"destination_agent":"billing"}`), meta)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Empty(t, res.DestinationAgent)
	})

	t.Run("verified re-entry refused", func(t *testing.T) {
		verified := meta.Clone()
		verified.IsVerified = true
		res, err := handler(context.Background(), json.RawMessage(`{"destination_agent":"verification"}`), verified)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Empty(t, res.DestinationAgent)
	})

	t.Run("valid transfer forwards context", func(t *testing.T) {
		res, err := handler(context.Background(), json.RawMessage(
			`{"destination_agent":"verification","context":{"flow_context":"scheduling"},"silent":true}`), meta)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "verification", res.DestinationAgent)
		assert.True(t, res.SilentTransfer)
		assert.Equal(t, "scheduling", res.MetadataPatch["flow_context"])
	})
}

func TestForeignToolDegradesToNoOp(t *testing.T) {
	a := newTestAgent(t, "verification")
	meta := metadata.New("sess-1234", "org-5678", "tenant-9012")

	// verify_code belongs to the verification agent; discovery still answers
	// it harmlessly.
	handler, ok := a.Handler(tools.NameVerifyCode)
	require.True(t, ok)

	res, err := handler(context.Background(), json.RawMessage(`{"code":"123456"}`), meta)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Nil(t, res.Message)
	assert.False(t, meta.IsVerified)
}

func TestUnknownToolNameFallsBack(t *testing.T) {
	a := newTestAgent(t)

	handler, ok := a.Handler("launch_rockets")
	assert.False(t, ok)

	res, err := handler(context.Background(), nil, metadata.New("sess-1234", "org-5678", "tenant-9012"))
	require.NoError(t, err)
	assert.True(t, res.Success)
}
