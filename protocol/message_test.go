package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalMessage_TagIncluded(t *testing.T) {
	root := "root"
	msg := BeginRendering{SurfaceID: "s1", Root: &root}

	data, err := MarshalMessage(msg)
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(data, &obj))
	assert.Equal(t, TagBeginRendering, obj["type"])
	assert.Equal(t, "s1", obj["surfaceId"])
	assert.Equal(t, "root", obj["root"])
}

func TestMarshalMessage_OmitsAbsentOptionals(t *testing.T) {
	data, err := MarshalMessage(BeginRendering{SurfaceID: "s1"})
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(data, &obj))
	_, hasRoot := obj["root"]
	assert.False(t, hasRoot)
	_, hasParent := obj["parentSurfaceId"]
	assert.False(t, hasParent)
}

func TestMessageTags(t *testing.T) {
	assert.Equal(t, "begin_rendering", BeginRendering{}.Tag())
	assert.Equal(t, "surface_update", SurfaceUpdate{}.Tag())
	assert.Equal(t, "data_model_update", DataModelUpdate{}.Tag())
	assert.Equal(t, "delete_surface", DeleteSurface{}.Tag())
	assert.Len(t, KnownTags(), 4)
}

func TestStreamEvent_Terminal(t *testing.T) {
	assert.True(t, CompleteEvent().Terminal())
	assert.True(t, ErrorEvent(assert.AnError).Terminal())
	assert.False(t, TextDeltaEvent("hi").Terminal())
	assert.False(t, ThinkingEvent("hmm", false).Terminal())
	assert.False(t, MessageEvent(DeleteSurface{SurfaceID: "s"}).Terminal())
}

func TestRawEvent_Accessors(t *testing.T) {
	e := RawEvent{
		"type":  EventContentBlockDelta,
		"index": float64(2),
		"delta": map[string]any{"type": DeltaTypeText, "text": "hi"},
	}
	assert.Equal(t, EventContentBlockDelta, e.Type())
	assert.Equal(t, 2, e.Index())
	assert.Equal(t, "hi", e.Delta()["text"])

	errEvent := RawEvent{"type": EventError, "error": map[string]any{"message": "overloaded"}}
	assert.Equal(t, "overloaded", errEvent.ErrorMessage())

	flat := RawEvent{"type": EventError, "message": "boom"}
	assert.Equal(t, "boom", flat.ErrorMessage())
}
