package handler

// MessageParam is one conversation turn sent to the model
type MessageParam struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one model call. The zero value is not usable; at least
// one message is required.
type Request struct {
	Model     string         `json:"model,omitempty"`
	System    string         `json:"system,omitempty"`
	Messages  []MessageParam `json:"messages"`
	MaxTokens int            `json:"max_tokens,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
