package runtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/agent"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/agents"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/channel"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/metadata"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/services"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/session"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/team"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/tools"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/ui"
)

type stubCatalog struct{ properties []services.Property }

func (s *stubCatalog) ListProperties(context.Context, string) ([]services.Property, error) {
	return s.properties, nil
}

type stubVerification struct{ verified bool }

func (s *stubVerification) SendCode(context.Context, services.SendCodeRequest) (*services.SendCodeResponse, error) {
	return &services.SendCodeResponse{OK: true}, nil
}

func (s *stubVerification) CheckCode(context.Context, services.CheckCodeRequest) (*services.CheckCodeResponse, error) {
	return &services.CheckCodeResponse{Verified: s.verified}, nil
}

type stubBootstrap struct {
	cfg *services.TenantConfig
	err error
}

func (s *stubBootstrap) FetchTenantMetadata(context.Context, string, string) (*services.TenantConfig, error) {
	return s.cfg, s.err
}

type fixture struct {
	orch *Orchestrator
	ch   *channel.Fake
	sess *session.Session
}

func newFixture(t *testing.T, opts ...Opt) *fixture {
	t.Helper()

	deps := agents.Deps{
		Catalog:      &stubCatalog{properties: []services.Property{{ID: "prop-1", Name: "Marina Heights"}}},
		Verification: &stubVerification{verified: true},
	}
	tm := agents.NewTeam("tenant-9012", deps)
	sess := session.New(metadata.New("sess-1234", "org-5678", "tenant-9012"))

	opts = append([]Opt{WithRootAgent(agents.Discovery)}, opts...)
	return startFixture(t, tm, sess, opts...)
}

func startFixture(t *testing.T, tm *team.Team, sess *session.Session, opts ...Opt) *fixture {
	t.Helper()

	ch := channel.NewFake()
	opts = append([]Opt{WithSettleDelay(time.Millisecond)}, opts...)
	orch := New(tm, ch, sess, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = orch.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return &fixture{orch: orch, ch: ch, sess: sess}
}

func (f *fixture) waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 2*time.Millisecond)
}

func resultFrame(t *testing.T, callID, toolName string, res *tools.Result) channel.Frame {
	t.Helper()
	payload, err := json.Marshal(res)
	require.NoError(t, err)
	return channel.ToolResult(callID, toolName, payload)
}

func TestStreamingDeltasAccumulateIntoOneItem(t *testing.T) {
	f := newFixture(t)

	f.ch.Deliver(channel.MessageDelta("item-1", "assistant", "We have "))
	f.ch.Deliver(channel.MessageDelta("item-1", "assistant", "two towers."))
	f.ch.Deliver(channel.MessageComplete("item-1", "assistant", ""))

	f.waitFor(t, func() bool {
		item, ok := f.sess.Item("item-1")
		return ok && item.Status == session.ItemDone
	})

	items := f.sess.Transcript()
	require.Len(t, items, 1)
	assert.Equal(t, "We have two towers.", items[0].Text)

	// Late deltas after completion are dropped.
	f.ch.Deliver(channel.MessageDelta("item-1", "assistant", " ghost"))
	f.ch.Deliver(channel.MessageComplete("item-2", "assistant", "done"))
	f.waitFor(t, func() bool {
		_, ok := f.sess.Item("item-2")
		return ok
	})

	item, _ := f.sess.Item("item-1")
	assert.Equal(t, "We have two towers.", item.Text)
}

func TestToolCallProducesResultAndDisplay(t *testing.T) {
	f := newFixture(t)

	f.ch.Deliver(channel.ToolCall("call-1", tools.NameListProperties, nil))

	f.waitFor(t, func() bool {
		return f.sess.Display().Mode == ui.ModePropertyList
	})

	// The computed envelope went back out to the engine.
	f.waitFor(t, func() bool {
		return len(f.ch.SentOfType(channel.FrameToolResult)) == 1
	})

	item, ok := f.sess.Item("tool-call-1")
	require.True(t, ok)
	assert.Equal(t, "assistant", item.Role)
	assert.Contains(t, item.Text, "1 properties")
}

func TestDuplicateToolCallIgnored(t *testing.T) {
	f := newFixture(t)

	f.ch.Deliver(channel.ToolCall("call-1", tools.NameListProperties, nil))
	f.ch.Deliver(channel.ToolCall("call-1", tools.NameListProperties, nil))

	f.waitFor(t, func() bool {
		return len(f.ch.SentOfType(channel.FrameToolResult)) >= 1
	})
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, f.ch.SentOfType(channel.FrameToolResult), 1)
}

func TestToolResultReplayIsIdempotent(t *testing.T) {
	f := newFixture(t)

	res := tools.Ok("Here you go.").
		WithUI(ui.ModePropertyDetail, map[string]string{"id": "prop-1"}).
		WithPatch(map[string]any{"active_property_id": "prop-1"})
	frame := resultFrame(t, "call-9", tools.NameGetPropertyDetails, res)

	f.ch.Deliver(frame)
	f.ch.Deliver(frame)

	f.waitFor(t, func() bool {
		return f.sess.Display().Mode == ui.ModePropertyDetail
	})
	time.Sleep(20 * time.Millisecond)

	bubbles := 0
	for _, item := range f.sess.Transcript() {
		if item.ID == "tool-call-9" {
			bubbles++
		}
	}
	assert.Equal(t, 1, bubbles)
	assert.Equal(t, "prop-1", f.sess.Metadata().ActivePropertyID)
}

func TestTransferAppliesPatchAndSwitchesAgent(t *testing.T) {
	f := newFixture(t)

	f.ch.Deliver(channel.ToolCall("call-2", tools.NameRequestVerification,
		json.RawMessage(`{"property_id":"prop-1"}`)))

	f.waitFor(t, func() bool {
		return f.sess.ActiveAgent() == agents.Verification
	})

	meta := f.sess.Metadata()
	assert.Equal(t, "prop-1", meta.PropertyIDToSchedule)
	assert.Equal(t, "Marina Heights", meta.PropertyNameToSchedule)
	assert.Equal(t, "scheduling", meta.FlowContext)
	assert.Equal(t, ui.ModeVerificationForm, f.sess.Display().Mode)

	// The engine got regenerated instructions for the destination agent.
	f.waitFor(t, func() bool {
		updates := f.ch.SentOfType(channel.FrameSessionUpdate)
		return len(updates) > 0 && updates[len(updates)-1].AgentName == agents.Verification
	})
}

func TestTransferPatchConflictFailsClosed(t *testing.T) {
	f := newFixture(t)
	f.sess.Metadata().OrgID = ""

	// Filling the blank org id with the session id would collapse two
	// identifiers; the whole envelope, transfer included, must be refused.
	res := tools.Ok("Let me verify you.").
		WithUI(ui.ModeVerificationForm, nil).
		WithTransfer(agents.Verification, true).
		WithPatch(map[string]any{"org_id": "sess-1234"})
	f.ch.Deliver(resultFrame(t, "call-3", tools.NameTransferAgents, res))

	// A later clean transfer still works, proving the pipeline survived.
	f.ch.Deliver(resultFrame(t, "call-3b", tools.NameTransferAgents,
		tools.Silent().WithTransfer(agents.Scheduling, true)))

	f.waitFor(t, func() bool {
		return f.sess.ActiveAgent() == agents.Scheduling
	})
	assert.Empty(t, f.sess.Metadata().OrgID)

	// Nothing else from the refused envelope applied: no display flip, no
	// transcript bubble.
	assert.Equal(t, ui.ModeChat, f.sess.Display().Mode)
	_, bubbled := f.sess.Item("tool-call-3")
	assert.False(t, bubbled)
}

func TestVerificationRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.sess.SetActiveAgent(agents.Verification)
	meta := f.sess.Metadata()
	meta.FlowContext = "scheduling"
	meta.PropertyIDToSchedule = "prop-1"
	meta.PropertyNameToSchedule = "Marina Heights"
	meta.SelectedDate = "2026-09-01"
	meta.SelectedTime = "14:00"

	f.ch.Deliver(channel.ToolCall("call-4", tools.NameSubmitPhoneNumber,
		json.RawMessage(`{"name":"Priya","phone_number":"+919876543210"}`)))

	f.waitFor(t, func() bool {
		return f.sess.Display().Mode == ui.ModeCodeForm
	})
	assert.Equal(t, "Priya", f.sess.Metadata().CustomerName)

	f.ch.Deliver(channel.ToolCall("call-5", tools.NameVerifyCode,
		json.RawMessage(`{"code":"123456"}`)))

	f.waitFor(t, func() bool {
		return f.sess.ActiveAgent() == agents.Discovery
	})

	meta = f.sess.Metadata()
	assert.True(t, meta.IsVerified)
	assert.True(t, meta.HasScheduled)
	// The silent hand-off back to discovery leaves the confirmation up.
	assert.Equal(t, ui.ModeBookingConfirmation, f.sess.Display().Mode)
}

func TestConnectedTriggersHiddenGreetingOnce(t *testing.T) {
	f := newFixture(t, WithBootstrap(&stubBootstrap{cfg: &services.TenantConfig{
		OrgID:           "org-5678",
		LanguageDefault: "en",
	}}))

	f.ch.Deliver(channel.Lifecycle(channel.LifecycleConnected))

	f.waitFor(t, func() bool {
		msgs := f.ch.SentOfType(channel.FrameUserMessage)
		return len(msgs) == 1 && msgs[0].Hidden
	})

	// Reconnect must not greet again.
	f.ch.Deliver(channel.Lifecycle(channel.LifecycleConnected))
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, f.ch.SentOfType(channel.FrameUserMessage), 1)

	// The hidden trigger never reaches the visible transcript.
	for _, item := range f.sess.VisibleTranscript() {
		assert.NotContains(t, item.Text, "just connected")
	}
}

func TestConnectedSkipsGreetingMidFlow(t *testing.T) {
	f := newFixture(t)
	f.sess.Metadata().FlowContext = "scheduling"

	f.ch.Deliver(channel.Lifecycle(channel.LifecycleConnected))

	f.waitFor(t, func() bool {
		return len(f.ch.SentOfType(channel.FrameSessionUpdate)) == 1
	})
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, f.ch.SentOfType(channel.FrameUserMessage))
}

func TestBootstrapFailureDegrades(t *testing.T) {
	f := newFixture(t, WithBootstrap(&stubBootstrap{err: context.DeadlineExceeded}))

	f.ch.Deliver(channel.Lifecycle(channel.LifecycleConnected))

	f.waitFor(t, func() bool {
		for _, item := range f.sess.Transcript() {
			if item.Role == "system" && item.Text != "" && !item.Divider {
				return true
			}
		}
		return false
	})

	// The session still works: instructions were pushed regardless.
	assert.NotEmpty(t, f.ch.SentOfType(channel.FrameSessionUpdate))
}

func TestPendingQuestionReplayedOnceAfterTransfer(t *testing.T) {
	f := newFixture(t)
	f.sess.Metadata().PendingQuestion = "what about the pool?"

	res := tools.Silent().WithTransfer(agents.Scheduling, true)
	f.ch.Deliver(resultFrame(t, "call-6", tools.NameTransferAgents, res))

	f.waitFor(t, func() bool {
		msgs := f.ch.SentOfType(channel.FrameUserMessage)
		return len(msgs) == 1 && msgs[0].Hidden && msgs[0].Text == "what about the pool?"
	})
	assert.Empty(t, f.sess.Metadata().PendingQuestion)

	// A second transfer must not replay it again.
	f.ch.Deliver(resultFrame(t, "call-7", tools.NameTransferAgents,
		tools.Silent().WithTransfer(agents.Verification, true)))
	f.waitFor(t, func() bool {
		return f.sess.ActiveAgent() == agents.Verification
	})
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, f.ch.SentOfType(channel.FrameUserMessage), 1)
}

func TestUserMessageCancelsInFlightResponse(t *testing.T) {
	f := newFixture(t)

	f.ch.Deliver(channel.MessageDelta("item-1", "assistant", "Let me tell you about"))
	f.waitFor(t, func() bool {
		_, ok := f.sess.Item("item-1")
		return ok
	})

	f.orch.SendUserMessage("actually, show me the gallery")

	f.waitFor(t, func() bool {
		return len(f.ch.SentOfType(channel.FrameUserMessage)) == 1
	})
	assert.Len(t, f.ch.SentOfType(channel.FrameCancelResponse), 1)
	assert.Len(t, f.ch.SentOfType(channel.FrameClearAudio), 1)

	// Cancellation frames precede the new utterance.
	sent := f.ch.Sent()
	var cancelIdx, userIdx int
	for i, frame := range sent {
		switch frame.Type {
		case channel.FrameCancelResponse:
			cancelIdx = i
		case channel.FrameUserMessage:
			userIdx = i
		}
	}
	assert.Less(t, cancelIdx, userIdx)
}

func TestDividerPrecedesFirstMessageAfterSwitch(t *testing.T) {
	f := newFixture(t)

	f.ch.Deliver(resultFrame(t, "call-8", tools.NameTransferAgents,
		tools.Silent().WithTransfer(agents.Scheduling, true)))
	f.waitFor(t, func() bool {
		return f.sess.ActiveAgent() == agents.Scheduling
	})

	// The divider must already be in place when the first delta lands.
	f.ch.Deliver(channel.MessageDelta("item-1", "assistant", "When would you "))
	f.ch.Deliver(channel.MessageComplete("item-1", "assistant", "When would you like to visit?"))
	f.waitFor(t, func() bool {
		item, ok := f.sess.Item("item-1")
		return ok && item.Status == session.ItemDone
	})

	items := f.sess.Transcript()
	require.Len(t, items, 2)
	assert.True(t, items[0].Divider)
	assert.Equal(t, agents.Scheduling, items[0].AgentName)
	assert.Equal(t, "item-1", items[1].ID)
}

func TestShortIdentifiersForwardAcrossTransfer(t *testing.T) {
	deps := agents.Deps{
		Catalog:      &stubCatalog{properties: []services.Property{{ID: "P", Name: "Marina Heights"}}},
		Verification: &stubVerification{verified: true},
	}
	tm := agents.NewTeam("t1", deps)
	sess := session.New(metadata.New("s1", "o1", "t1"))
	f := startFixture(t, tm, sess, WithRootAgent(agents.Discovery))

	f.ch.Deliver(channel.ToolCall("call-1", tools.NameRequestVerification,
		json.RawMessage(`{"property_id":"P"}`)))

	f.waitFor(t, func() bool {
		return f.sess.ActiveAgent() == agents.Verification
	})
	assert.Equal(t, "P", f.sess.Metadata().PropertyIDToSchedule)
	assert.Equal(t, ui.ModeVerificationForm, f.sess.Display().Mode)
}

func TestToolHandlerSeesMetadataSnapshot(t *testing.T) {
	concierge := agent.New("concierge",
		func(*metadata.Record) string { return "" },
		agent.WithTool(
			tools.Tool{Function: &tools.FunctionDefinition{Name: "remember_name"}},
			func(_ context.Context, _ json.RawMessage, meta *metadata.Record) (*tools.Result, error) {
				// Writes on the handler's record must not reach the session;
				// updates travel back through the patch.
				meta.CustomerName = "written on the copy"
				return tools.Silent().WithPatch(map[string]any{"language": "en"}), nil
			},
		),
	)
	tm := team.New(team.WithAgents(concierge))
	sess := session.New(metadata.New("sess-1234", "org-5678", "tenant-9012"))
	f := startFixture(t, tm, sess)

	f.ch.Deliver(channel.ToolCall("call-1", "remember_name", nil))

	f.waitFor(t, func() bool {
		return f.sess.Metadata().Language == "en"
	})
	assert.Empty(t, f.sess.Metadata().CustomerName)
}

func TestMalformedFrameDoesNotHaltPipeline(t *testing.T) {
	f := newFixture(t)

	f.ch.Deliver(channel.Frame{Type: channel.FrameToolResult, CallID: "call-x", Result: json.RawMessage(`{broken`)})
	f.ch.Deliver(channel.MessageComplete("item-1", "assistant", "still alive"))

	f.waitFor(t, func() bool {
		item, ok := f.sess.Item("item-1")
		return ok && item.Text == "still alive"
	})
}

func TestMechanicalSubmissionsHiddenFromVisibleTranscript(t *testing.T) {
	f := newFixture(t)

	f.orch.SendUserMessage("My name is Priya and my number is 9876543210")
	f.orch.SendUserMessage("is there a gym?")

	f.waitFor(t, func() bool {
		return len(f.ch.SentOfType(channel.FrameUserMessage)) == 2
	})

	visible := f.sess.VisibleTranscript()
	require.Len(t, visible, 1)
	assert.Equal(t, "is there a gym?", visible[0].Text)
}
