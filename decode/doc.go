// Package decode reconstructs content blocks from fragmented stream events.
//
// The upstream protocol fragments each content block across a start event,
// any number of delta events, and a stop event, with blocks identified by
// index and possibly interleaved. Tool-call JSON arrives split across deltas
// and must not be parsed until stop; text and thinking content surface
// incrementally as they arrive.
//
// Decode failures inside a single block (malformed JSON, unknown tool name)
// drop that block and nothing else.
package decode
