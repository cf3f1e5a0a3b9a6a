package protocol

// Raw wire event types, as they appear in the "type" field of streamed events
const (
	EventMessageStart      = "message_start"
	EventMessageDelta      = "message_delta"
	EventMessageStop       = "message_stop"
	EventContentBlockStart = "content_block_start"
	EventContentBlockDelta = "content_block_delta"
	EventContentBlockStop  = "content_block_stop"
	EventPing              = "ping"
	EventError             = "error"
)

// Content block types inside content_block_start events
const (
	BlockTypeText     = "text"
	BlockTypeToolUse  = "tool_use"
	BlockTypeThinking = "thinking"
)

// Delta payload types inside content_block_delta events
const (
	DeltaTypeText     = "text_delta"
	DeltaTypeJSON     = "input_json_delta"
	DeltaTypeThinking = "thinking_delta"
)

// RawEvent is one decoded wire event. Every event carries at least a "type"
// field; the remaining payload is type-specific.
type RawEvent map[string]any

// Type returns the event type, empty when absent
func (e RawEvent) Type() string {
	t, _ := e["type"].(string)
	return t
}

// Index returns the content block index. JSON numbers decode as float64.
func (e RawEvent) Index() int {
	if f, ok := e["index"].(float64); ok {
		return int(f)
	}
	if i, ok := e["index"].(int); ok {
		return i
	}
	return 0
}

// ContentBlock returns the content_block payload of a start event
func (e RawEvent) ContentBlock() map[string]any {
	cb, _ := e["content_block"].(map[string]any)
	return cb
}

// Delta returns the delta payload of a delta event
func (e RawEvent) Delta() map[string]any {
	d, _ := e["delta"].(map[string]any)
	return d
}

// ErrorMessage returns the message of an error event
func (e RawEvent) ErrorMessage() string {
	if m, ok := e["message"].(string); ok {
		return m
	}
	if errObj, ok := e["error"].(map[string]any); ok {
		if m, ok := errObj["message"].(string); ok {
			return m
		}
	}
	return ""
}
