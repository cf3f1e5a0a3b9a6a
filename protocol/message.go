package protocol

import "encoding/json"

// Structured message wire tags, stable across serialization
const (
	TagBeginRendering  = "begin_rendering"
	TagSurfaceUpdate   = "surface_update"
	TagDataModelUpdate = "data_model_update"
	TagDeleteSurface   = "delete_surface"
)

// Message is the closed set of structured UI-control messages. Variants are
// BeginRendering, SurfaceUpdate, DataModelUpdate, and DeleteSurface; unknown
// wire tags are surfaced as unrecognized by the parser, never as a panic.
type Message interface {
	// Tag returns the stable wire discriminant for the variant
	Tag() string
	// isMessage keeps the variant set closed
	isMessage()
}

// BeginRendering starts a rendering pass for a surface.
// Root stays nil when the wire payload omits it: defaulting to "root" is the
// consuming layer's responsibility, preserving the as-specified-vs-defaulted
// distinction at this level.
type BeginRendering struct {
	SurfaceID       string         `json:"surfaceId"`
	ParentSurfaceID *string        `json:"parentSurfaceId,omitempty"`
	Root            *string        `json:"root,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Tag implements Message
func (BeginRendering) Tag() string { return TagBeginRendering }
func (BeginRendering) isMessage()  {}

// SurfaceUpdate replaces or appends the widget list of a surface
type SurfaceUpdate struct {
	SurfaceID string       `json:"surfaceId"`
	Widgets   []WidgetNode `json:"widgets"`
	Append    bool         `json:"append"`
}

// Tag implements Message
func (SurfaceUpdate) Tag() string { return TagSurfaceUpdate }
func (SurfaceUpdate) isMessage()  {}

// DataModelUpdate writes a batch of key/value pairs into the shared data model
type DataModelUpdate struct {
	Updates map[string]any `json:"updates"`
	Scope   *string        `json:"scope,omitempty"`
}

// Tag implements Message
func (DataModelUpdate) Tag() string { return TagDataModelUpdate }
func (DataModelUpdate) isMessage()  {}

// DeleteSurface tears down a surface. Cascade defaults to true on the wire.
type DeleteSurface struct {
	SurfaceID string `json:"surfaceId"`
	Cascade   bool   `json:"cascade"`
}

// Tag implements Message
func (DeleteSurface) Tag() string { return TagDeleteSurface }
func (DeleteSurface) isMessage()  {}

// MarshalMessage serializes a message as a tagged JSON object:
// the variant's fields plus a "type" discriminant.
func MarshalMessage(msg Message) ([]byte, error) {
	fields, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal(fields, &obj); err != nil {
		return nil, err
	}
	obj["type"] = msg.Tag()
	return json.Marshal(obj)
}

// KnownTags returns the closed set of wire tags
func KnownTags() []string {
	return []string{TagBeginRendering, TagSurfaceUpdate, TagDataModelUpdate, TagDeleteSurface}
}
