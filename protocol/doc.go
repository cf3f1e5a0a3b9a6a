// Package protocol defines the wire and normalized event types of the
// streaming client.
//
// Three layers live here. RawEvent is the decoded upstream wire event
// (content_block_start/delta/stop, message_*, ping, error) with typed
// accessors over the loose map shape. Message is the closed union of
// structured UI-control messages (begin_rendering, surface_update,
// data_model_update, delete_surface) reconstructed from tool-use blocks.
// StreamEvent is the normalized output union delivered to the UI layer:
// raw deltas, structured messages, text deltas, thinking content, and the
// terminal Complete/Error pair.
//
// ParseToolUse and ParseFullResponse are pure: no I/O, no retained state, and
// unknown tool names are a nil no-op rather than an error.
package protocol
