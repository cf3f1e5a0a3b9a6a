package decode

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/c360/uistream/protocol"
)

// Sink receives the normalized events the decoder emits
type Sink func(protocol.StreamEvent)

// toolBlock accumulates a tool-use block's JSON across deltas
type toolBlock struct {
	name string
	json strings.Builder
}

// Decoder reconstructs complete content blocks from the ordered
// start/delta/stop wire sequence. Blocks are keyed by index; several blocks
// may be open at once. Text and thinking deltas surface incrementally, while
// tool-call JSON is buffered and only parsed once its block closes.
//
// A Decoder serves one stream attempt at a time and is not safe for
// concurrent use; callers reuse an instance across attempts via Reset.
type Decoder struct {
	tools    map[int]*toolBlock
	texts    map[int]*strings.Builder
	thinking map[int]*strings.Builder

	sink   Sink
	logger *slog.Logger
}

// Option configures a Decoder
type Option func(*Decoder)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(d *Decoder) { d.logger = logger }
}

// New creates a decoder that emits normalized events to sink
func New(sink Sink, opts ...Option) *Decoder {
	d := &Decoder{
		tools:    make(map[int]*toolBlock),
		texts:    make(map[int]*strings.Builder),
		thinking: make(map[int]*strings.Builder),
		sink:     sink,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Feed processes one wire event. Events with types the decoder does not own
// (message_*, ping) are ignored; the handler deals with those.
func (d *Decoder) Feed(event protocol.RawEvent) {
	switch event.Type() {
	case protocol.EventContentBlockStart:
		d.handleStart(event)
	case protocol.EventContentBlockDelta:
		d.handleDelta(event)
	case protocol.EventContentBlockStop:
		d.handleStop(event)
	}
}

// Reset clears all per-index buffers. Callers reuse a decoder across
// independent stream attempts, so a retry must not see the previous
// attempt's partial blocks.
func (d *Decoder) Reset() {
	d.tools = make(map[int]*toolBlock)
	d.texts = make(map[int]*strings.Builder)
	d.thinking = make(map[int]*strings.Builder)
}

// AccumulatedText returns the concatenated text of all closed and open text
// blocks, in index order of arrival. Used by non-streaming consumers.
func (d *Decoder) AccumulatedText() string {
	// Index order: collect max index first.
	maxIdx := -1
	for idx := range d.texts {
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	var parts []string
	for idx := 0; idx <= maxIdx; idx++ {
		if b, ok := d.texts[idx]; ok {
			parts = append(parts, b.String())
		}
	}
	return strings.Join(parts, "\n")
}

// OpenBlocks returns the number of tool blocks currently buffering
func (d *Decoder) OpenBlocks() int {
	return len(d.tools)
}

func (d *Decoder) handleStart(event protocol.RawEvent) {
	cb := event.ContentBlock()
	if cb == nil {
		return
	}
	blockType, _ := cb["type"].(string)
	switch blockType {
	case protocol.BlockTypeToolUse:
		name, _ := cb["name"].(string)
		d.tools[event.Index()] = &toolBlock{name: name}
		d.logger.Debug("tool block opened", "index", event.Index(), "tool", name)
	case protocol.BlockTypeThinking:
		// Registered at start so a block that closes without any deltas
		// still produces its completion mark.
		d.thinking[event.Index()] = &strings.Builder{}
	}
}

func (d *Decoder) handleDelta(event protocol.RawEvent) {
	delta := event.Delta()
	if delta == nil {
		return
	}
	idx := event.Index()

	if partial, ok := delta["partial_json"].(string); ok {
		if block, open := d.tools[idx]; open {
			block.json.WriteString(partial)
		}
		return
	}

	if text, ok := delta["text"].(string); ok {
		buf, exists := d.texts[idx]
		if !exists {
			buf = &strings.Builder{}
			d.texts[idx] = buf
		}
		buf.WriteString(text)
		// Text surfaces immediately, in addition to accumulating.
		d.sink(protocol.TextDeltaEvent(text))
		return
	}

	if thought, ok := delta["thinking"].(string); ok {
		buf, exists := d.thinking[idx]
		if !exists {
			buf = &strings.Builder{}
			d.thinking[idx] = buf
		}
		buf.WriteString(thought)
		// Thinking partials surface incrementally for responsiveness;
		// each event carries the fragment, the stop event the whole.
		d.sink(protocol.ThinkingEvent(thought, false))
	}
}

func (d *Decoder) handleStop(event protocol.RawEvent) {
	idx := event.Index()

	if block, open := d.tools[idx]; open {
		delete(d.tools, idx)
		d.finalizeTool(idx, block)
		return
	}

	if buf, open := d.thinking[idx]; open {
		delete(d.thinking, idx)
		// Final thinking event carries the accumulated content, emitted
		// even when empty so consumers always see the completion mark.
		d.sink(protocol.ThinkingEvent(buf.String(), true))
	}
	// Text blocks need no stop handling: deltas were already forwarded.
}

// finalizeTool parses a closed tool block and forwards the resulting message.
// Malformed JSON and unrecognized tool names drop the block silently: one bad
// block must not abort an otherwise-healthy stream.
func (d *Decoder) finalizeTool(idx int, block *toolBlock) {
	raw := block.json.String()
	if raw == "" {
		raw = "{}"
	}

	var input map[string]any
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		d.logger.Warn("dropping tool block with malformed JSON",
			"index", idx, "tool", block.name, "error", err)
		return
	}

	msg, err := protocol.ParseToolUse(block.name, input)
	if err != nil {
		d.logger.Warn("dropping tool block that failed to parse",
			"index", idx, "tool", block.name, "error", err)
		return
	}
	if msg == nil {
		d.logger.Debug("skipping unrecognized tool", "index", idx, "tool", block.name)
		return
	}

	d.sink(protocol.MessageEvent(msg))
}
