package memory

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/GarryCodespace/Jarvis/core"
	"github.com/google/uuid"
)

// newEventID returns a process-unique, time-ordered id.
// UUIDv7 carries the creation millisecond followed by random bits.
func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return "evt_" + id.String()
}

var actionCategories = map[string]core.Category{
	core.ActionChatInput:          core.CategoryLLM,
	core.ActionLLMResponse:        core.CategoryLLM,
	core.ActionConversationMarker: core.CategoryLLM,
	"llm_request":                 core.CategoryLLM,
	core.ActionSpeechInput:        core.CategorySpeech,
	core.ActionSpeechRecognition:  core.CategorySpeech,
	"transcription":               core.CategorySpeech,
	core.ActionOCRExtraction:      core.CategoryCapture,
	core.ActionScreenshot:         core.CategoryCapture,
	core.ActionImageAnalysis:      core.CategoryCapture,
	core.ActionSkillChange:        core.CategoryNavigation,
	core.ActionNavigation:         core.CategoryNavigation,
	core.ActionSkillPromptInit:    core.CategorySystem,
	core.ActionSystemEvent:        core.CategorySystem,
}

// categorize derives an event category from its action. Unknown actions are
// matched by keyword and fall back to the system category.
func categorize(action string) core.Category {
	a := strings.ToLower(strings.TrimSpace(action))
	if c, ok := actionCategories[a]; ok {
		return c
	}
	switch {
	case containsAny(a, "ocr", "screenshot", "capture", "image"):
		return core.CategoryCapture
	case containsAny(a, "speech", "voice", "transcri", "audio"):
		return core.CategorySpeech
	case containsAny(a, "llm", "chat", "response", "completion"):
		return core.CategoryLLM
	case containsAny(a, "skill", "navigat", "window", "mode"):
		return core.CategoryNavigation
	}
	return core.CategorySystem
}

// synopsis builds the short human-readable contextSummary of an event.
func synopsis(action string, role core.Role, content string) string {
	snippet := truncate(firstLine(content), 80)
	if snippet == "" {
		if action == "" {
			return string(role)
		}
		return action
	}

	switch action {
	case core.ActionChatInput:
		return "User asked: " + snippet
	case core.ActionSpeechInput:
		return "User said: " + snippet
	case core.ActionLLMResponse:
		return "Model answered: " + snippet
	case core.ActionSkillChange:
		return snippet
	case core.ActionOCRExtraction:
		return "Screen text captured: " + snippet
	case core.ActionSkillPromptInit:
		return "Skill prompt loaded"
	}
	return fmt.Sprintf("%s %s: %s", role, action, snippet)
}

// defaultAction returns the action used when the caller gave none.
func defaultAction(role core.Role) string {
	switch role {
	case core.RoleUser:
		return core.ActionChatInput
	case core.RoleModel:
		return core.ActionLLMResponse
	}
	return core.ActionSystemEvent
}

// assessImportance scores an event [0.0-1.0] for the optimized history view.
func assessImportance(ev core.Event) float64 {
	importance := 0.5 // Base

	if ev.Role == core.RoleUser {
		importance += 0.1
	}

	// Code and screen captures are expensive to reproduce
	if containsCode(ev.Content) {
		importance += 0.2
	}
	if ev.Category == core.CategoryCapture {
		importance += 0.2
	}

	if ev.Action == core.ActionSkillChange {
		importance += 0.1
	}

	// Repeated activity
	if ev.IsConsolidated() {
		importance += 0.1
	}

	if utf8.RuneCountInString(ev.Content) > 200 {
		importance += 0.1
	}

	if importance > 1.0 {
		importance = 1.0
	}
	return importance
}

// truncate shortens s to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return "..."
	}
	r := []rune(s)
	return string(r[:maxLen-3]) + "..."
}

// truncateLog truncates text for logging.
func truncateLog(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
