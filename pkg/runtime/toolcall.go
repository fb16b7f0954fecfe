package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/channel"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/tools"
)

// onToolCall resolves the handler on the active agent and runs it off the
// pipeline goroutine. The computed envelope re-enters the pipeline as a
// tool-result frame, so state application stays single-consumer and ordered.
func (o *Orchestrator) onToolCall(ctx context.Context, frame channel.Frame) {
	if frame.CallID == "" {
		slog.Warn("Tool call without call id dropped", "tool", frame.ToolName)
		return
	}
	if _, dup := o.seenCalls[frame.CallID]; dup {
		slog.Debug("Duplicate tool call ignored", "call_id", frame.CallID, "tool", frame.ToolName)
		return
	}
	o.seenCalls[frame.CallID] = struct{}{}

	agentName := o.sess.ActiveAgent()
	active, err := o.team.Agent(agentName)
	if err != nil {
		slog.Error("Tool call with no active agent", "call_id", frame.CallID, "error", err)
		o.emit(Error(err, agentName))
		return
	}

	handler, known := active.Handler(frame.ToolName)
	if !known {
		slog.Warn("Tool name outside the closed set, degrading to no-op",
			"tool", frame.ToolName, "agent", agentName, "session_id", o.sess.ID)
	}

	callCtx, span := o.startSpan(ctx, "runtime.tool.call", trace.WithAttributes(
		attribute.String("tool.name", frame.ToolName),
		attribute.String("tool.call_id", frame.CallID),
		attribute.String("agent", agentName),
		attribute.String("session.id", o.sess.ID),
	))

	// Handlers get a point-in-time snapshot: the live record stays owned by
	// the pipeline goroutine, and writes flow back through the result patch.
	meta := o.sess.Metadata().Clone()
	go func() {
		defer span.End()

		res, err := handler(callCtx, frame.Arguments, meta)
		if err != nil || res == nil {
			// Raw errors stop at the envelope boundary; the user sees a
			// generic retry line, the log sees the cause.
			slog.Error("Tool handler failed", "tool", frame.ToolName,
				"call_id", frame.CallID, "session_id", o.sess.ID, "error", err)
			span.SetStatus(codes.Error, "tool handler failed")
			res = tools.Errorf("Something went wrong on our side, please try that again.", "")
		} else {
			span.SetStatus(codes.Ok, "tool executed")
		}

		payload, err := json.Marshal(res)
		if err != nil {
			slog.Error("Tool result not serializable", "tool", frame.ToolName, "error", err)
			return
		}

		result := channel.ToolResult(frame.CallID, frame.ToolName, payload)
		o.send(callCtx, result)
		o.enqueue(result)
	}()
}

// onToolResult applies a tool result envelope to session state. Results are
// keyed by call id; a redelivered frame for an already handled call is a
// no-op, so replays leave state identical.
func (o *Orchestrator) onToolResult(ctx context.Context, frame channel.Frame) {
	if _, done := o.handled[frame.CallID]; done {
		slog.Debug("Tool result already handled locally", "call_id", frame.CallID)
		return
	}

	var res tools.Result
	if err := json.Unmarshal(frame.Result, &res); err != nil {
		err = fmt.Errorf("unparseable tool result for call %s: %w", frame.CallID, err)
		slog.Error("Dropping tool result", "session_id", o.sess.ID, "error", err)
		o.emit(Error(err, o.sess.ActiveAgent()))
		return
	}
	o.handled[frame.CallID] = struct{}{}

	o.applyResult(ctx, frame.CallID, frame.ToolName, &res)
}

func (o *Orchestrator) applyResult(ctx context.Context, callID, toolName string, res *tools.Result) {
	agentName := o.sess.ActiveAgent()

	// The patch gates the whole envelope: a merge that would corrupt
	// identity refuses everything, hint, message and transfer included.
	meta := o.sess.Metadata()
	if len(res.MetadataPatch) > 0 {
		if err := meta.Merge(res.MetadataPatch); err != nil {
			slog.Error("Metadata patch rejected", "session_id", o.sess.ID,
				"call_id", callID, "tool", toolName, "error", err)
			o.emit(Error(err, agentName))
			return
		}
	}

	if res.UIHint != "" {
		o.sess.ApplyHint(res.UIHint, res.UIData)
		o.emit(Display(o.sess.Display(), agentName))
	}

	// The envelope's message becomes a transcript bubble here; the id is
	// derived from the call id so a replay cannot duplicate it.
	if res.Message != nil && *res.Message != "" {
		id := "tool-" + callID
		if o.addItem(id, "assistant", false) {
			o.sess.CompleteItem(id, *res.Message)
			if item, ok := o.sess.Item(id); ok {
				o.recordTurn(ctx, item)
				o.emit(TranscriptItem(item, agentName))
			}
		}
	}

	switch {
	case res.DestinationAgent != "" && res.DestinationAgent != agentName:
		o.transfer(ctx, res.DestinationAgent, res.SilentTransfer)
	case len(res.MetadataPatch) > 0:
		// Metadata changed without a hand-off; the engine still needs the
		// regenerated instructions.
		o.syncSessionUpdate(ctx)
		o.replayPendingQuestion(meta.PendingQuestion)
		meta.PendingQuestion = ""
	}

	o.persist(ctx)
	o.emit(ToolResult(callID, toolName, res, o.sess.ActiveAgent()))
}

// transfer moves control to another agent: activate it, regenerate its
// instructions from the merged metadata, update the display mode and queue
// the divider for its first visible message.
func (o *Orchestrator) transfer(ctx context.Context, destination string, silent bool) {
	from := o.sess.ActiveAgent()

	_, err := o.team.Agent(destination)
	if err != nil {
		slog.Error("Transfer to unknown agent refused", "from", from, "to", destination, "error", err)
		o.emit(Error(err, from))
		return
	}

	ctx, span := o.startSpan(ctx, "runtime.transfer", trace.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", destination),
		attribute.Bool("silent", silent),
		attribute.String("session.id", o.sess.ID),
	))
	defer span.End()

	meta := o.sess.Metadata()

	// An abandoned booking flow does not follow the user back to the root
	// agent; a completed one keeps its record.
	if destination == o.rootAgent && meta.FlowContext != "" && !meta.HasScheduled {
		meta.ClearSchedulingState()
	}

	o.sess.SetActiveAgent(destination)
	o.pendingDivider = true

	o.syncSessionUpdate(ctx)

	// Only an announced switch forces the destination's form; a silent
	// hand-off keeps whatever the finishing tool put on screen.
	if !silent {
		o.sess.ApplyAgentSwitch(destination)
	}

	slog.Info("Agent transfer", "session_id", o.sess.ID, "from", from, "to", destination, "silent", silent)
	o.emit(AgentTransfer(from, destination, silent))
	o.emit(Display(o.sess.Display(), destination))

	o.replayPendingQuestion(meta.PendingQuestion)
	meta.PendingQuestion = ""
}

// replayPendingQuestion synthesizes the question the user asked before a
// hand-off as a hidden utterance, once, after the settle delay.
func (o *Orchestrator) replayPendingQuestion(question string) {
	if question == "" {
		return
	}

	itemID := uuid.New().String()
	time.AfterFunc(o.settle, func() {
		o.enqueue(channel.UserMessage(itemID, question, true))
	})
}

func marshalToolDefs(defs []tools.Tool) json.RawMessage {
	payload, err := json.Marshal(defs)
	if err != nil {
		slog.Error("Tool definitions not serializable", "error", err)
		return nil
	}
	return payload
}
