package core

import "time"

// Role identifies who produced an event.
type Role string

const (
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleSystem Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModel, RoleSystem:
		return true
	}
	return false
}

// Category is the coarse event class derived from an action.
type Category string

const (
	CategoryCapture    Category = "capture"
	CategorySpeech     Category = "speech"
	CategoryLLM        Category = "llm"
	CategoryNavigation Category = "navigation"
	CategorySystem     Category = "system"
)

// Well-known actions.
const (
	ActionChatInput          = "chat_input"
	ActionSpeechInput        = "speech_input"
	ActionLLMResponse        = "llm_response"
	ActionSkillChange        = "skill_change"
	ActionOCRExtraction      = "ocr_extraction"
	ActionSkillPromptInit    = "skill_prompt_initialization"
	ActionSystemEvent        = "system_event"
	ActionScreenshot         = "screenshot"
	ActionImageAnalysis      = "image_analysis"
	ActionSpeechRecognition  = "speech_recognition"
	ActionNavigation         = "navigation"
	ActionConversationMarker = "conversation_marker"
)

// Well-known metadata keys.
const (
	MetaSource            = "source"
	MetaTextLength        = "textLength"
	MetaProcessingTime    = "processingTime"
	MetaConsolidatedCount = "consolidatedCount"
	MetaTimeSpan          = "timeSpan"
	MetaIsInitialization  = "isInitialization"
	MetaCompressed        = "compressed"
	MetaPrimaryContent    = "primaryContent"
	MetaPreviousSkill     = "previousSkill"
	MetaNewSkill          = "newSkill"
)

// Event is a single record in the conversation log.
type Event struct {
	ID             string                 `json:"id"`
	Timestamp      time.Time              `json:"timestamp"`
	Role           Role                   `json:"role"`
	Content        string                 `json:"content"`
	Skill          string                 `json:"skill"`
	Action         string                 `json:"action"`
	Category       Category               `json:"category"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	ContextSummary string                 `json:"contextSummary"`
}

// IsInitialization reports whether the event is a seeded skill prompt.
func (e Event) IsInitialization() bool {
	if e.Action == ActionSkillPromptInit {
		return true
	}
	v, _ := e.Metadata[MetaIsInitialization].(bool)
	return v
}

// ConsolidatedCount returns how many events were merged into e (1 when e was never merged).
func (e Event) ConsolidatedCount() int {
	switch v := e.Metadata[MetaConsolidatedCount].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 1
}

// IsConsolidated reports whether e is the product of consolidation.
func (e Event) IsConsolidated() bool {
	_, ok := e.Metadata[MetaConsolidatedCount]
	return ok
}

// IsCompressed reports whether e's content was truncated by compression.
func (e Event) IsCompressed() bool {
	v, _ := e.Metadata[MetaCompressed].(bool)
	return v
}

// CloneMetadata returns a shallow copy of the metadata map.
func (e Event) CloneMetadata() map[string]interface{} {
	out := make(map[string]interface{}, len(e.Metadata)+2)
	for k, v := range e.Metadata {
		out[k] = v
	}
	return out
}
