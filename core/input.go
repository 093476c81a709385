package core

// EventInput carries the caller-supplied fields of a conversation event.
// The store derives everything else (id, timestamp, category, synopsis).
type EventInput struct {
	// Role is who produced the event. Unknown roles are stored as system events.
	Role Role `json:"role"`

	// Content is the text payload. May be empty.
	Content string `json:"content"`

	// Action is the fine-grained event kind.
	// Optional: defaults to chat_input, llm_response or system_event depending on Role.
	Action string `json:"action,omitempty"`

	// Skill overrides the active skill for this event. Optional.
	Skill string `json:"skill,omitempty"`

	// Metadata is copied into the stored event.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
