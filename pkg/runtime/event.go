package runtime

import (
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/session"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/tools"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/ui"
)

// Event is the orchestrator's outbound notification stream. Observers (the
// HTTP server, tests) consume it; the pipeline never blocks on a slow
// observer.
type Event interface {
	isEvent()
	GetAgentName() string
}

// AgentContext carries optional agent attribution for an event.
type AgentContext struct {
	AgentName string `json:"agent_name,omitempty"`
}

// GetAgentName returns the agent name for events embedding AgentContext.
func (a AgentContext) GetAgentName() string { return a.AgentName }

// UserMessageEvent is emitted when a user utterance, real or synthesized, is
// dispatched to the dialogue engine.
type UserMessageEvent struct {
	Type    string `json:"type"`
	ItemID  string `json:"item_id"`
	Message string `json:"message"`
	Hidden  bool   `json:"hidden,omitempty"`
	AgentContext
}

func UserMessage(itemID, message string, hidden bool, agentName string) Event {
	return &UserMessageEvent{
		Type:         "user_message",
		ItemID:       itemID,
		Message:      message,
		Hidden:       hidden,
		AgentContext: AgentContext{AgentName: agentName},
	}
}

func (e *UserMessageEvent) isEvent() {}

// TranscriptItemEvent is emitted when a transcript item completes.
type TranscriptItemEvent struct {
	Type string       `json:"type"`
	Item session.Item `json:"item"`
	AgentContext
}

func TranscriptItem(item session.Item, agentName string) Event {
	return &TranscriptItemEvent{
		Type:         "transcript_item",
		Item:         item,
		AgentContext: AgentContext{AgentName: agentName},
	}
}

func (e *TranscriptItemEvent) isEvent() {}

// ToolResultEvent is emitted after a tool result envelope has been applied.
type ToolResultEvent struct {
	Type     string        `json:"type"`
	CallID   string        `json:"call_id"`
	ToolName string        `json:"tool_name"`
	Result   *tools.Result `json:"result"`
	AgentContext
}

func ToolResult(callID, toolName string, result *tools.Result, agentName string) Event {
	return &ToolResultEvent{
		Type:         "tool_result",
		CallID:       callID,
		ToolName:     toolName,
		Result:       result,
		AgentContext: AgentContext{AgentName: agentName},
	}
}

func (e *ToolResultEvent) isEvent() {}

// AgentTransferEvent is emitted when control moves to another agent.
type AgentTransferEvent struct {
	Type   string `json:"type"`
	From   string `json:"from"`
	Silent bool   `json:"silent,omitempty"`
	AgentContext
}

func AgentTransfer(from, to string, silent bool) Event {
	return &AgentTransferEvent{
		Type:         "agent_transfer",
		From:         from,
		Silent:       silent,
		AgentContext: AgentContext{AgentName: to},
	}
}

func (e *AgentTransferEvent) isEvent() {}

// DisplayEvent is emitted when the display-mode snapshot changes.
type DisplayEvent struct {
	Type  string   `json:"type"`
	State ui.State `json:"state"`
	AgentContext
}

func Display(state ui.State, agentName string) Event {
	return &DisplayEvent{
		Type:         "display",
		State:        state,
		AgentContext: AgentContext{AgentName: agentName},
	}
}

func (e *DisplayEvent) isEvent() {}

// NoticeEvent carries a user-visible system notice, such as degraded
// bootstrap or a transport drop.
type NoticeEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func Notice(message string) Event {
	return &NoticeEvent{Type: "notice", Message: message}
}

func (e *NoticeEvent) isEvent() {}

func (e *NoticeEvent) GetAgentName() string { return "" }

// ErrorEvent reports a frame the pipeline could not process. The stream
// continues; the event exists for observability.
type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
	AgentContext
}

func Error(err error, agentName string) Event {
	return &ErrorEvent{
		Type:         "error",
		Error:        err.Error(),
		AgentContext: AgentContext{AgentName: agentName},
	}
}

func (e *ErrorEvent) isEvent() {}
