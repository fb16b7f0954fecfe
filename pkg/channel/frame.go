// Package channel models the realtime transport as an opaque bidirectional
// stream of ordered frames. Connection negotiation is out of scope; the
// orchestrator only sees connect/disconnect lifecycle frames.
package channel

import "encoding/json"

type FrameType string

const (
	FrameMessageDelta    FrameType = "message.delta"
	FrameMessageComplete FrameType = "message.complete"
	FrameToolCall        FrameType = "tool.call"
	FrameToolResult      FrameType = "tool.result"
	FrameLifecycle       FrameType = "session.lifecycle"

	// Outbound-only frame types.
	FrameUserMessage    FrameType = "user.message"
	FrameSessionUpdate  FrameType = "session.update"
	FrameCancelResponse FrameType = "response.cancel"
	FrameClearAudio     FrameType = "audio.clear"
)

const (
	LifecycleConnected    = "connected"
	LifecycleDisconnected = "disconnected"
	LifecycleSettled      = "settled"
)

// Frame is one chunk of the realtime protocol. Frames arrive ordered; a
// single message is spread over many delta frames sharing one item id.
type Frame struct {
	Type   FrameType `json:"type"`
	ItemID string    `json:"item_id,omitempty"`
	Role   string    `json:"role,omitempty"`

	// Message streaming.
	Delta string `json:"delta,omitempty"`
	Text  string `json:"text,omitempty"`

	// Tool invocation.
	CallID    string          `json:"call_id,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`

	AgentName string `json:"agent_name,omitempty"`
	Lifecycle string `json:"lifecycle,omitempty"`

	// Hidden marks internally synthesized utterances; they are dispatched to
	// the agent but excluded from the visible transcript.
	Hidden bool `json:"hidden,omitempty"`

	// Session update payload (outbound).
	Instructions string          `json:"instructions,omitempty"`
	Tools        json.RawMessage `json:"tools,omitempty"`
}

func MessageDelta(itemID, role, delta string) Frame {
	return Frame{Type: FrameMessageDelta, ItemID: itemID, Role: role, Delta: delta}
}

func MessageComplete(itemID, role, text string) Frame {
	return Frame{Type: FrameMessageComplete, ItemID: itemID, Role: role, Text: text}
}

func ToolCall(callID, toolName string, args json.RawMessage) Frame {
	return Frame{Type: FrameToolCall, CallID: callID, ToolName: toolName, Arguments: args}
}

func ToolResult(callID, toolName string, result json.RawMessage) Frame {
	return Frame{Type: FrameToolResult, CallID: callID, ToolName: toolName, Result: result}
}

func Lifecycle(state string) Frame {
	return Frame{Type: FrameLifecycle, Lifecycle: state}
}

// UserMessage is the outbound frame carrying a user utterance, synthesized or
// real. Hidden utterances carry the reserved marker.
func UserMessage(itemID, text string, hidden bool) Frame {
	return Frame{Type: FrameUserMessage, ItemID: itemID, Role: "user", Text: text, Hidden: hidden}
}

// SessionUpdate pushes regenerated instructions and the active agent's tool
// definitions to the remote dialogue engine.
func SessionUpdate(agentName, instructions string, toolDefs json.RawMessage) Frame {
	return Frame{Type: FrameSessionUpdate, AgentName: agentName, Instructions: instructions, Tools: toolDefs}
}

func CancelResponse() Frame { return Frame{Type: FrameCancelResponse} }
func ClearAudio() Frame     { return Frame{Type: FrameClearAudio} }
