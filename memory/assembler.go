package memory

import (
	"sort"
	"time"

	"github.com/GarryCodespace/Jarvis/core"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	// skillContextEvents is the number of recent skill events in a SkillContextView.
	skillContextEvents = 10

	// optimizedRecent is the size of the recency window in OptimizedHistory.
	optimizedRecent = 10

	// optimizedImportant caps the important events in OptimizedHistory.
	optimizedImportant = 10

	// importanceThreshold is the minimum score of an important event.
	importanceThreshold = 0.7
)

// HistoryEntry is the projection of an event handed to prompt builders.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Role      core.Role `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Skill     string    `json:"skill"`
	Action    string    `json:"action"`

	// IsContextual marks entries pulled in only by reference resolution.
	IsContextual bool `json:"isContextual,omitempty"`
}

// EnhancedContext is the recency window merged with referenced exchanges.
type EnhancedContext struct {
	History    []HistoryEntry `json:"history"`
	Summary    Summary        `json:"summary"`
	ThreadInfo ThreadInfo     `json:"threadInfo"`
}

// SkillContextView is the prompt and recent activity of one skill.
type SkillContextView struct {
	SkillName                   string         `json:"skillName"`
	Prompt                      string         `json:"prompt"`
	ProgrammingLanguage         string         `json:"programmingLanguage,omitempty"`
	RequiresProgrammingLanguage bool           `json:"requiresProgrammingLanguage"`
	RecentEvents                []HistoryEntry `json:"recentEvents"`
}

// OptimizedHistory pairs the recency window with older high-value events.
type OptimizedHistory struct {
	Recent      []HistoryEntry `json:"recent"`
	Important   []HistoryEntry `json:"important"`
	Summary     Summary        `json:"summary"`
	TotalEvents int            `json:"totalEvents"`
}

// Usage reports the size of the event log.
type Usage struct {
	EventCount         int     `json:"eventCount"`
	ApproximateSize    int     `json:"approximateSize"`
	UtilizationPercent float64 `json:"utilizationPercent"`
}

func project(ev core.Event) HistoryEntry {
	return HistoryEntry{
		ID:        ev.ID,
		Role:      ev.Role,
		Content:   ev.Content,
		Timestamp: ev.Timestamp,
		Skill:     ev.Skill,
		Action:    ev.Action,
	}
}

func projectAll(evs []core.Event) []HistoryEntry {
	out := make([]HistoryEntry, len(evs))
	for i, ev := range evs {
		out[i] = project(ev)
	}
	return out
}

// conversational drops initialization events.
func conversational(evs []core.Event) []core.Event {
	out := make([]core.Event, 0, len(evs))
	for _, ev := range evs {
		if !ev.IsInitialization() {
			out = append(out, ev)
		}
	}
	return out
}

func lastN(evs []core.Event, n int) []core.Event {
	if n >= len(evs) {
		return evs
	}
	return evs[len(evs)-n:]
}

// GetConversationHistory returns the last maxEntries conversational events in
// append order. maxEntries <= 0 uses Config.HistoryEntries.
func (m *Manager) GetConversationHistory(maxEntries int) []HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	if maxEntries <= 0 {
		maxEntries = m.config.HistoryEntries
	}
	return projectAll(lastN(conversational(events(m.store.all())), maxEntries))
}

// GetFullConversationHistory returns every conversational event in append order.
func (m *Manager) GetFullConversationHistory() []HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	return projectAll(conversational(events(m.store.all())))
}

// GetEnhancedConversationContext returns the last maxEntries conversational
// events plus any earlier exchanges that recent user inputs refer to, in
// timestamp order. maxEntries <= 0 uses Config.EnhancedEntries.
func (m *Manager) GetEnhancedConversationContext(maxEntries int) EnhancedContext {
	m.mu.Lock()
	defer m.mu.Unlock()

	if maxEntries <= 0 {
		maxEntries = m.config.EnhancedEntries
	}

	evs := conversational(events(m.store.all()))
	window := lastN(evs, maxEntries)
	refs := resolveReferences(evs, m.matcher)

	inWindow := make(map[string]bool, len(window))
	for _, ev := range window {
		inWindow[ev.ID] = true
	}
	referenced := make(map[string]bool, len(refs))
	for _, ev := range refs {
		referenced[ev.ID] = true
	}

	var composed []core.Event
	var history []HistoryEntry
	for _, ev := range evs {
		if !inWindow[ev.ID] && !referenced[ev.ID] {
			continue
		}
		composed = append(composed, ev)
		h := project(ev)
		h.IsContextual = !inWindow[ev.ID]
		history = append(history, h)
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp.Before(history[j].Timestamp)
	})
	if history == nil {
		history = []HistoryEntry{}
	}

	if len(refs) > 0 {
		m.logger.Debug("resolved references",
			zap.Int("window", len(window)),
			zap.Int("referenced", len(refs)),
		)
	}

	return EnhancedContext{
		History:    history,
		Summary:    summarize(composed, m.logger),
		ThreadInfo: analyzeThreads(composed, m.matcher, m.rule),
	}
}

// GetSkillContext returns the prompt for skillName (the active skill when
// empty) and its most recent events. The language-aware prompt is used when
// the skill requires a programming language and programmingLanguage is set.
func (m *Manager) GetSkillContext(skillName, programmingLanguage string) SkillContextView {
	m.mu.Lock()
	defer m.mu.Unlock()

	if skillName == "" {
		skillName = m.activeSkill
	}

	var tagged []core.Event
	for _, ev := range conversational(events(m.store.all())) {
		if ev.Skill == skillName {
			tagged = append(tagged, ev)
		}
	}

	return SkillContextView{
		SkillName:                   skillName,
		Prompt:                      m.skills.prompt(skillName, programmingLanguage),
		ProgrammingLanguage:         programmingLanguage,
		RequiresProgrammingLanguage: m.skills.requiresLanguage(skillName),
		RecentEvents:                projectAll(lastN(tagged, skillContextEvents)),
	}
}

// GetOptimizedHistory returns the recency window, older events scoring at
// least 0.7 on importance, and a summary of the whole conversation.
func (m *Manager) GetOptimizedHistory() OptimizedHistory {
	m.mu.Lock()
	defer m.mu.Unlock()

	evs := conversational(events(m.store.all()))
	recent := lastN(evs, optimizedRecent)
	older := evs[:len(evs)-len(recent)]

	var important []core.Event
	for i := len(older) - 1; i >= 0 && len(important) < optimizedImportant; i-- {
		if assessImportance(older[i]) >= importanceThreshold {
			important = append(important, older[i])
		}
	}
	for i, j := 0, len(important)-1; i < j; i, j = i+1, j-1 {
		important[i], important[j] = important[j], important[i]
	}

	return OptimizedHistory{
		Recent:      projectAll(recent),
		Important:   projectAll(important),
		Summary:     summarize(evs, m.logger),
		TotalEvents: m.store.size(),
	}
}

// GetMemoryUsage reports the event count, the JSON-encoded size of the log
// and its utilization of MaxMemorySize.
func (m *Manager) GetMemoryUsage() Usage {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := m.store.size()
	usage := Usage{
		EventCount:         size,
		UtilizationPercent: float64(size) / float64(m.config.MaxMemorySize) * 100,
	}

	data, err := json.Marshal(events(m.store.all()))
	if err != nil {
		m.logger.Warn("failed to measure memory size", zap.Error(err))
		return usage
	}
	usage.ApproximateSize = len(data)
	return usage
}
