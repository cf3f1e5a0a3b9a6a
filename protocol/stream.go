package protocol

import "fmt"

// EventKind discriminates the normalized StreamEvent union
type EventKind int

// Normalized event kinds
const (
	// KindDelta carries a raw wire event for consumers that want the
	// unprocessed protocol stream alongside the normalized one.
	KindDelta EventKind = iota
	// KindMessage carries a parsed structured UI-control message
	KindMessage
	// KindTextDelta carries an incremental text fragment
	KindTextDelta
	// KindThinking carries incremental or final thinking content
	KindThinking
	// KindComplete terminates a successful stream
	KindComplete
	// KindError terminates a failed stream
	KindError
)

// String returns the string representation of EventKind
func (k EventKind) String() string {
	switch k {
	case KindDelta:
		return "delta"
	case KindMessage:
		return "message"
	case KindTextDelta:
		return "text_delta"
	case KindThinking:
		return "thinking"
	case KindComplete:
		return "complete"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// StreamEvent is one element of the normalized output sequence produced by
// the stream handler. A sequence is finite and terminated by exactly one
// Complete or one Error event, never both, unless the consumer cancels.
type StreamEvent struct {
	Kind      EventKind
	RequestID string

	// Raw is set for KindDelta
	Raw RawEvent
	// Message is set for KindMessage
	Message Message
	// Text is set for KindTextDelta
	Text string
	// Thinking and ThinkingComplete are set for KindThinking
	Thinking         string
	ThinkingComplete bool
	// Err is set for KindError
	Err error
}

// Terminal reports whether the event ends the sequence
func (e StreamEvent) Terminal() bool {
	return e.Kind == KindComplete || e.Kind == KindError
}

// String returns a short description for logging
func (e StreamEvent) String() string {
	switch e.Kind {
	case KindTextDelta:
		return fmt.Sprintf("text_delta(%d bytes)", len(e.Text))
	case KindMessage:
		return fmt.Sprintf("message(%s)", e.Message.Tag())
	case KindError:
		return fmt.Sprintf("error(%v)", e.Err)
	default:
		return e.Kind.String()
	}
}

// DeltaEvent builds a raw passthrough event
func DeltaEvent(raw RawEvent) StreamEvent {
	return StreamEvent{Kind: KindDelta, Raw: raw}
}

// MessageEvent builds a structured message event
func MessageEvent(msg Message) StreamEvent {
	return StreamEvent{Kind: KindMessage, Message: msg}
}

// TextDeltaEvent builds an incremental text event
func TextDeltaEvent(text string) StreamEvent {
	return StreamEvent{Kind: KindTextDelta, Text: text}
}

// ThinkingEvent builds a thinking-content event. complete marks the final
// event for a thinking block.
func ThinkingEvent(content string, complete bool) StreamEvent {
	return StreamEvent{Kind: KindThinking, Thinking: content, ThinkingComplete: complete}
}

// CompleteEvent builds the successful terminal event
func CompleteEvent() StreamEvent {
	return StreamEvent{Kind: KindComplete}
}

// ErrorEvent builds the failure terminal event
func ErrorEvent(err error) StreamEvent {
	return StreamEvent{Kind: KindError, Err: err}
}
