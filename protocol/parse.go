package protocol

import (
	"strings"

	"github.com/c360/uistream/errors"
)

// ParseToolUse converts a completed tool-use block into a structured message.
// name is the tool name (the wire tag); input is the decoded accumulated JSON.
// Unknown names return (nil, nil): the caller treats that as a recognized
// no-op, keeping the protocol forward compatible with new tools.
func ParseToolUse(name string, input map[string]any) (Message, error) {
	switch name {
	case TagBeginRendering:
		return parseBeginRendering(input)
	case TagSurfaceUpdate:
		return parseSurfaceUpdate(input)
	case TagDataModelUpdate:
		return parseDataModelUpdate(input)
	case TagDeleteSurface:
		return parseDeleteSurface(input)
	default:
		return nil, nil
	}
}

func parseBeginRendering(input map[string]any) (Message, error) {
	surfaceID, ok := input["surfaceId"].(string)
	if !ok || surfaceID == "" {
		return nil, errors.NewMessageParseError("begin_rendering missing surfaceId", nil)
	}

	msg := BeginRendering{SurfaceID: surfaceID}
	if parent, ok := input["parentSurfaceId"].(string); ok {
		msg.ParentSurfaceID = &parent
	}
	// Root is stored exactly as seen; absent stays nil so consumers can
	// distinguish an explicit "root" from a defaulted one.
	if root, ok := input["root"].(string); ok {
		msg.Root = &root
	}
	if metadata, ok := input["metadata"].(map[string]any); ok {
		msg.Metadata = metadata
	}
	return msg, nil
}

func parseSurfaceUpdate(input map[string]any) (Message, error) {
	surfaceID, ok := input["surfaceId"].(string)
	if !ok || surfaceID == "" {
		return nil, errors.NewMessageParseError("surface_update missing surfaceId", nil)
	}

	msg := SurfaceUpdate{SurfaceID: surfaceID, Widgets: []WidgetNode{}}
	if raw, ok := input["widgets"].([]any); ok {
		msg.Widgets = WidgetsFromList(raw)
	}
	if appendFlag, ok := input["append"].(bool); ok {
		msg.Append = appendFlag
	}
	return msg, nil
}

func parseDataModelUpdate(input map[string]any) (Message, error) {
	updates, ok := input["updates"].(map[string]any)
	if !ok {
		return nil, errors.NewMessageParseError("data_model_update missing updates", nil)
	}

	msg := DataModelUpdate{Updates: updates}
	if scope, ok := input["scope"].(string); ok {
		msg.Scope = &scope
	}
	return msg, nil
}

func parseDeleteSurface(input map[string]any) (Message, error) {
	surfaceID, ok := input["surfaceId"].(string)
	if !ok || surfaceID == "" {
		return nil, errors.NewMessageParseError("delete_surface missing surfaceId", nil)
	}

	msg := DeleteSurface{SurfaceID: surfaceID, Cascade: true}
	if cascade, ok := input["cascade"].(bool); ok {
		msg.Cascade = cascade
	}
	return msg, nil
}

// FullResponse is the result of parsing a complete non-streamed response body
type FullResponse struct {
	Messages   []Message
	Text       string
	HasToolUse bool
}

// ParseFullResponse parses a complete (non-streamed) response body holding a
// content array of text and tool_use blocks. Text blocks are concatenated
// with a newline separator; tool_use blocks go through the same dispatch as
// streamed blocks, with unknown tool names skipped. An absent or malformed
// content field yields the empty result rather than an error.
func ParseFullResponse(body map[string]any) FullResponse {
	result := FullResponse{Messages: []Message{}}

	content, ok := body["content"].([]any)
	if !ok {
		return result
	}

	var texts []string
	for _, item := range content {
		block, ok := item.(map[string]any)
		if !ok {
			continue
		}
		switch block["type"] {
		case BlockTypeText:
			if text, ok := block["text"].(string); ok {
				texts = append(texts, text)
			}
		case BlockTypeToolUse:
			name, _ := block["name"].(string)
			input, _ := block["input"].(map[string]any)
			msg, err := ParseToolUse(name, input)
			if err != nil || msg == nil {
				continue
			}
			result.Messages = append(result.Messages, msg)
		}
	}

	result.Text = strings.Join(texts, "\n")
	result.HasToolUse = len(result.Messages) > 0
	return result
}
