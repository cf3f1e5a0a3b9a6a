package protocol

// WidgetNode is one node of a surface's widget tree as delivered on the wire.
// Children entries are either full nested nodes or string reference
// placeholders resolved by the rendering layer. DataBinding holds the raw
// binding spec in one of its three wire forms (bare path string, property to
// path map, or property to {path, mode} map); interpretation belongs to the
// binding package.
type WidgetNode struct {
	Type        string         `json:"type"`
	ID          string         `json:"id,omitempty"`
	Properties  map[string]any `json:"properties"`
	Children    []WidgetChild  `json:"children,omitempty"`
	DataBinding any            `json:"dataBinding,omitempty"`
}

// WidgetChild is either a nested node or a string reference
type WidgetChild struct {
	Node *WidgetNode
	Ref  string
}

// IsRef reports whether the child is a string reference placeholder
func (c WidgetChild) IsRef() bool { return c.Node == nil }

// widgetFromMap builds a WidgetNode from a decoded JSON object.
// Entries with a missing or non-string type yield a zero-type node rather
// than an error; the rendering layer decides what to do with those.
func widgetFromMap(raw map[string]any) WidgetNode {
	node := WidgetNode{
		Properties: map[string]any{},
	}
	if t, ok := raw["type"].(string); ok {
		node.Type = t
	}
	if id, ok := raw["id"].(string); ok {
		node.ID = id
	}
	if props, ok := raw["properties"].(map[string]any); ok {
		node.Properties = props
	}
	if children, ok := raw["children"].([]any); ok {
		for _, child := range children {
			switch c := child.(type) {
			case string:
				node.Children = append(node.Children, WidgetChild{Ref: c})
			case map[string]any:
				nested := widgetFromMap(c)
				node.Children = append(node.Children, WidgetChild{Node: &nested})
			}
		}
	}
	if binding, ok := raw["dataBinding"]; ok {
		node.DataBinding = binding
	}
	return node
}

// WidgetsFromList builds an ordered widget list from a decoded JSON array,
// skipping entries that are not objects.
func WidgetsFromList(raw []any) []WidgetNode {
	widgets := make([]WidgetNode, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			widgets = append(widgets, widgetFromMap(m))
		}
	}
	return widgets
}
