// Package runtime is the session orchestrator: a single-consumer pipeline
// that turns the ordered frame stream of one realtime channel into transcript,
// metadata, display and agent-transfer state.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/channel"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/services"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/session"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/team"
)

// settleDelay separates a metadata-only session update from any synthesized
// follow-up utterance, giving the remote engine time to absorb the update.
const settleDelay = 500 * time.Millisecond

// greetingPrompt is the hidden utterance that opens the conversation for an
// agent that does not greet on its own.
const greetingPrompt = "The caller has just connected. Greet them briefly."

// Orchestrator binds one session to one channel and runs the event pipeline.
type Orchestrator struct {
	tracer trace.Tracer

	team *team.Team
	ch   channel.Channel
	sess *session.Session

	store     session.Store
	history   services.HistorySink
	bootstrap services.Bootstrap

	rootAgent string
	settle    time.Duration

	events chan Event

	// local merges frames the orchestrator generates for itself (computed
	// tool results, synthesized utterances) into the inbound stream, so a
	// single goroutine applies everything in order.
	local chan channel.Frame

	// seenCalls dedups inbound tool calls by call id; handled marks results
	// already applied so redelivered result frames become no-ops.
	seenCalls map[string]struct{}
	handled   map[string]struct{}

	// pendingDivider requests a visible divider before the first assistant
	// message after an agent switch.
	pendingDivider bool

	// streamingItem is the assistant item currently streaming, empty once it
	// completes or the channel settles.
	streamingItem string
}

type Opt func(*Orchestrator)

func WithSessionStore(store session.Store) Opt {
	return func(o *Orchestrator) { o.store = store }
}

func WithHistorySink(sink services.HistorySink) Opt {
	return func(o *Orchestrator) { o.history = sink }
}

func WithBootstrap(bootstrap services.Bootstrap) Opt {
	return func(o *Orchestrator) { o.bootstrap = bootstrap }
}

func WithTracer(tracer trace.Tracer) Opt {
	return func(o *Orchestrator) { o.tracer = tracer }
}

// WithRootAgent overrides the agent a fresh session starts on. Defaults to
// the first registered agent name.
func WithRootAgent(name string) Opt {
	return func(o *Orchestrator) { o.rootAgent = name }
}

// WithSettleDelay overrides the settle delay, mainly for tests.
func WithSettleDelay(d time.Duration) Opt {
	return func(o *Orchestrator) { o.settle = d }
}

// New creates an orchestrator for one session over one channel.
func New(t *team.Team, ch channel.Channel, sess *session.Session, opts ...Opt) *Orchestrator {
	o := &Orchestrator{
		team:      t,
		ch:        ch,
		sess:      sess,
		store:     session.NewInMemoryStore(),
		history:   services.NopHistorySink{},
		settle:    settleDelay,
		events:    make(chan Event, 64),
		local:     make(chan channel.Frame, 256),
		seenCalls: make(map[string]struct{}),
		handled:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.rootAgent == "" {
		if names := t.AgentNames(); len(names) > 0 {
			o.rootAgent = names[0]
		}
	}
	if sess.ActiveAgent() == "" {
		sess.SetActiveAgent(o.rootAgent)
	}
	return o
}

// Events returns the outbound notification stream.
func (o *Orchestrator) Events() <-chan Event { return o.events }

// Session returns the session this orchestrator drives.
func (o *Orchestrator) Session() *session.Session { return o.sess }

// SendUserMessage queues a user utterance into the pipeline and returns its
// transcript item id. Safe to call from any goroutine.
func (o *Orchestrator) SendUserMessage(text string) string {
	itemID := uuid.New().String()
	o.enqueue(channel.UserMessage(itemID, text, false))
	return itemID
}

// Run consumes the channel until it closes or the context is canceled. It is
// the only goroutine that mutates session state.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer o.history.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-o.ch.Recv():
			if !ok {
				slog.Debug("Channel closed, stopping pipeline", "session_id", o.sess.ID)
				return nil
			}
			o.processFrame(ctx, frame)
		case frame := <-o.local:
			o.processFrame(ctx, frame)
		}
	}
}

// processFrame applies one frame. A malformed or panicking frame is logged
// and skipped; the stream never halts.
func (o *Orchestrator) processFrame(ctx context.Context, frame channel.Frame) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("frame %s: %v", frame.Type, r)
			slog.Error("Panic processing frame", "session_id", o.sess.ID, "error", err)
			o.emit(Error(err, o.sess.ActiveAgent()))
		}
	}()

	switch frame.Type {
	case channel.FrameLifecycle:
		o.onLifecycle(ctx, frame)
	case channel.FrameMessageDelta:
		o.onMessageDelta(frame)
	case channel.FrameMessageComplete:
		o.onMessageComplete(ctx, frame)
	case channel.FrameToolCall:
		o.onToolCall(ctx, frame)
	case channel.FrameToolResult:
		o.onToolResult(ctx, frame)
	case channel.FrameUserMessage:
		o.dispatchUserMessage(ctx, frame)
	default:
		slog.Debug("Ignoring frame", "type", frame.Type, "session_id", o.sess.ID)
	}
}

func (o *Orchestrator) onLifecycle(ctx context.Context, frame channel.Frame) {
	switch frame.Lifecycle {
	case channel.LifecycleConnected:
		o.onConnected(ctx)
	case channel.LifecycleDisconnected:
		o.streamingItem = ""
		o.addNotice("Connection lost. Waiting to reconnect.")
		o.emit(Notice("disconnected"))
		o.persist(ctx)
	case channel.LifecycleSettled:
		o.streamingItem = ""
	default:
		slog.Debug("Unknown lifecycle state", "state", frame.Lifecycle)
	}
}

// onConnected bootstraps tenant metadata, pushes the initial session update
// and decides the opening turn. Bootstrap failure degrades the session to
// identifiers only, with a single visible notice.
func (o *Orchestrator) onConnected(ctx context.Context) {
	meta := o.sess.Metadata()

	ctx, span := o.startSpan(ctx, "runtime.session.connect", trace.WithAttributes(
		attribute.String("session.id", o.sess.ID),
		attribute.String("tenant.id", meta.TenantID),
	))
	defer span.End()

	if o.sess.ActiveAgent() == "" {
		o.sess.SetActiveAgent(o.rootAgent)
	}

	if o.bootstrap != nil {
		prev := meta.Clone()
		cfg, err := o.bootstrap.FetchTenantMetadata(ctx, meta.SessionID, meta.TenantID)
		if err != nil {
			slog.Warn("Bootstrap failed, continuing with identifiers only",
				"session_id", o.sess.ID, "tenant_id", meta.TenantID, "error", err)
			o.addNotice("Some tenant details are unavailable right now.")
			o.emit(Notice("bootstrap degraded"))
		} else {
			if meta.OrgID == "" {
				meta.OrgID = cfg.OrgID
			}
			if meta.Language == "" {
				meta.Language = cfg.LanguageDefault
			}
			if cfg.TenantName != "" {
				if err := meta.Merge(map[string]any{"tenant_name": cfg.TenantName}); err != nil {
					slog.Error("Bootstrap merge rejected", "session_id", o.sess.ID, "error", err)
				}
			}
			// A malformed identifier in the bootstrap payload falls back to
			// what the session already had.
			meta.HealFrom(prev)
		}
	}

	if err := meta.Validate(); err != nil {
		slog.Error("Session metadata invalid after bootstrap", "session_id", o.sess.ID, "error", err)
		o.emit(Error(err, o.sess.ActiveAgent()))
	}

	o.syncSessionUpdate(ctx)
	o.persist(ctx)

	o.openingTurn()
}

// openingTurn synthesizes the hidden greeting prompt, at most once per
// connection, only for an agent that waits to be prompted, and never when
// the session was entered mid-flow via a transfer.
func (o *Orchestrator) openingTurn() {
	active, err := o.team.Agent(o.sess.ActiveAgent())
	if err != nil {
		slog.Error("Active agent missing at opening turn", "error", err)
		return
	}
	if !active.WantsGreetingPrompt() {
		return
	}
	if o.sess.Metadata().FlowContext != "" {
		return
	}
	if !o.sess.MarkGreetingSent() {
		return
	}

	itemID := uuid.New().String()
	time.AfterFunc(o.settle, func() {
		o.enqueue(channel.UserMessage(itemID, greetingPrompt, true))
	})
}

func (o *Orchestrator) onMessageDelta(frame channel.Frame) {
	role := frame.Role
	if role == "" {
		role = "assistant"
	}

	o.addItem(frame.ItemID, role, frame.Hidden)
	o.sess.AppendDelta(frame.ItemID, frame.Delta)

	if role == "assistant" {
		o.streamingItem = frame.ItemID
	}
}

func (o *Orchestrator) onMessageComplete(ctx context.Context, frame channel.Frame) {
	role := frame.Role
	if role == "" {
		role = "assistant"
	}

	o.addItem(frame.ItemID, role, frame.Hidden)
	o.sess.CompleteItem(frame.ItemID, frame.Text)

	if o.streamingItem == frame.ItemID {
		o.streamingItem = ""
	}

	item, ok := o.sess.Item(frame.ItemID)
	if !ok {
		return
	}
	o.recordTurn(ctx, item)
	o.emit(TranscriptItem(item, o.sess.ActiveAgent()))
}

// dispatchUserMessage sends a user utterance (real or synthesized) to the
// remote engine. Any in-flight assistant response is canceled first so stale
// audio never plays over the new turn.
func (o *Orchestrator) dispatchUserMessage(ctx context.Context, frame channel.Frame) {
	if o.streamingItem != "" {
		o.send(ctx, channel.CancelResponse())
		o.send(ctx, channel.ClearAudio())
		o.sess.CompleteItem(o.streamingItem, "")
		o.streamingItem = ""
	}

	if o.addItem(frame.ItemID, "user", frame.Hidden) {
		o.sess.CompleteItem(frame.ItemID, frame.Text)
		if item, ok := o.sess.Item(frame.ItemID); ok {
			o.recordTurn(ctx, item)
		}
	}

	o.send(ctx, frame)
	o.emit(UserMessage(frame.ItemID, frame.Text, frame.Hidden, o.sess.ActiveAgent()))
}

// addItem creates a transcript item, placing the queued agent-switch divider
// ahead of the first assistant message after a transfer. The bool reports
// whether the item was created.
func (o *Orchestrator) addItem(id, role string, hidden bool) bool {
	if id == "" {
		return false
	}
	if _, exists := o.sess.Item(id); exists {
		return false
	}
	if role == "assistant" {
		o.insertPendingDivider()
	}
	return o.sess.AddItem(id, role, o.sess.ActiveAgent(), hidden)
}

func (o *Orchestrator) insertPendingDivider() {
	if !o.pendingDivider {
		return
	}
	o.pendingDivider = false
	o.sess.AddDivider(o.sess.ActiveAgent())
}

// syncSessionUpdate regenerates the active agent's instructions from current
// metadata and pushes them, with the agent's tool definitions, to the engine.
func (o *Orchestrator) syncSessionUpdate(ctx context.Context) {
	name := o.sess.ActiveAgent()
	active, err := o.team.Agent(name)
	if err != nil {
		slog.Error("Cannot sync session update", "session_id", o.sess.ID, "error", err)
		return
	}

	toolDefs := marshalToolDefs(active.Tools())
	instructions := active.Instructions(o.sess.Metadata())
	o.send(ctx, channel.SessionUpdate(name, instructions, toolDefs))
}

func (o *Orchestrator) addNotice(text string) {
	id := "notice-" + uuid.New().String()
	o.sess.AddItem(id, "system", o.sess.ActiveAgent(), false)
	o.sess.CompleteItem(id, text)
}

// recordTurn forwards a completed visible item to the history sink.
func (o *Orchestrator) recordTurn(ctx context.Context, item session.Item) {
	if item.Hidden || item.Divider {
		return
	}
	meta := o.sess.Metadata()
	o.history.Record(services.Turn{
		OrgID:     meta.OrgID,
		TenantID:  meta.TenantID,
		SessionID: meta.SessionID,
		ItemID:    item.ID,
		Role:      item.Role,
		AgentName: item.AgentName,
		Text:      item.Text,
		CreatedAt: item.CreatedAt,
	})

	if err := o.store.AppendItem(ctx, o.sess.ID, item); err != nil {
		slog.Warn("Persisting transcript item failed", "session_id", o.sess.ID, "item_id", item.ID, "error", err)
	}
}

func (o *Orchestrator) persist(ctx context.Context) {
	if err := o.store.UpdateSession(ctx, o.sess); err != nil {
		slog.Warn("Persisting session failed", "session_id", o.sess.ID, "error", err)
	}
}

func (o *Orchestrator) send(ctx context.Context, frame channel.Frame) {
	if err := o.ch.Send(ctx, frame); err != nil {
		slog.Warn("Channel send failed", "session_id", o.sess.ID, "type", frame.Type, "error", err)
	}
}

// enqueue feeds a locally generated frame into the pipeline.
func (o *Orchestrator) enqueue(frame channel.Frame) {
	o.local <- frame
}

func (o *Orchestrator) emit(e Event) {
	select {
	case o.events <- e:
	default:
		slog.Debug("Dropping event, consumer not keeping up", "type", fmt.Sprintf("%T", e))
	}
}

func (o *Orchestrator) startSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if o.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return o.tracer.Start(ctx, name, opts...)
}
