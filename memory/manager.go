package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/GarryCodespace/Jarvis/core"
	"go.uber.org/zap"
)

// Manager is the conversation memory engine.
// It owns the event log, the skill registry and the derived read views.
//
// Features:
//   - Append-only event log with derived id, category and synopsis
//   - Inline maintenance (eviction, consolidation, compression)
//   - Enhanced context with reference resolution and thread analysis
//   - Optional similarity recall through an Index
//
// All methods are safe for concurrent use. None of them return errors:
// malformed input is replaced with defaults and logged.
type Manager struct {
	mu sync.Mutex

	store   arena
	skills  *skillRegistry
	config  *Config
	logger  *zap.Logger
	clock   func() time.Time
	matcher *matcher
	rule    ContinuationRule

	index          Index
	indexedVersion uint64
	indexed        bool

	activeSkill   string
	lastTimestamp time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The Manager logs under the "memory" name.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger.Named("memory")
		}
	}
}

// WithClock sets the time source used for timestamps and maintenance ages.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithLexicon replaces the keyword sets used by threads and references.
func WithLexicon(lex Lexicon) Option {
	return func(m *Manager) {
		m.matcher = compileLexicon(lex)
	}
}

// WithContinuationRule replaces the thread continuation rule.
func WithContinuationRule(rule ContinuationRule) Option {
	return func(m *Manager) {
		if rule != nil {
			m.rule = rule
		}
	}
}

// WithIndex enables SearchHistory backed by index.
func WithIndex(index Index) Option {
	return func(m *Manager) {
		m.index = index
	}
}

// NewManager creates a Manager and seeds one initialization event per skill
// in catalog. A nil config uses DefaultConfig. A nil or failing catalog is
// logged and leaves the Manager usable without skill prompts.
func NewManager(catalog PromptCatalog, config *Config, opts ...Option) *Manager {
	m := &Manager{
		logger:  zap.NewNop(),
		clock:   time.Now,
		matcher: compileLexicon(DefaultLexicon()),
		rule:    DefaultRule{},
	}
	for _, opt := range opts {
		opt(m)
	}

	m.config = normalizeConfig(config, m.logger)
	m.activeSkill = m.config.DefaultSkill
	m.skills = newSkillRegistry(catalog, m.logger)

	m.mu.Lock()
	m.seedSkills()
	m.mu.Unlock()
	return m
}

// AddUserInput records a user utterance and returns its id.
// source defaults to "chat"; "speech" and "voice" sources are recorded as
// speech input.
func (m *Manager) AddUserInput(text, source string) string {
	if source == "" {
		source = "chat"
	}
	action := core.ActionChatInput
	switch strings.ToLower(source) {
	case "speech", "voice":
		action = core.ActionSpeechInput
	}

	return m.AddConversationEvent(core.EventInput{
		Role:    core.RoleUser,
		Content: text,
		Action:  action,
		Metadata: map[string]interface{}{
			core.MetaSource:     source,
			core.MetaTextLength: utf8.RuneCountInString(text),
		},
	})
}

// AddModelResponse records a model response and returns its id.
func (m *Manager) AddModelResponse(text string, metadata map[string]interface{}) string {
	md := cloneMap(metadata)
	md[core.MetaTextLength] = utf8.RuneCountInString(text)

	return m.AddConversationEvent(core.EventInput{
		Role:     core.RoleModel,
		Content:  text,
		Action:   core.ActionLLMResponse,
		Metadata: md,
	})
}

// AddOCREvent records text extracted from a screen capture and returns its id.
func (m *Manager) AddOCREvent(text string, metadata map[string]interface{}) string {
	md := cloneMap(metadata)
	if _, ok := md[core.MetaSource]; !ok {
		md[core.MetaSource] = "ocr"
	}
	md[core.MetaTextLength] = utf8.RuneCountInString(text)

	return m.AddConversationEvent(core.EventInput{
		Role:     core.RoleSystem,
		Content:  text,
		Action:   core.ActionOCRExtraction,
		Metadata: md,
	})
}

// AddConversationEvent records an arbitrary event and returns its id.
// Missing or invalid fields are replaced with defaults and logged.
func (m *Manager) AddConversationEvent(in core.EventInput) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.appendEvent(m.validate(in))
}

// SetActiveSkill switches the active skill and records a skill_change event.
// An empty name is ignored.
func (m *Manager) SetActiveSkill(skill string) {
	skill = strings.TrimSpace(skill)
	if skill == "" {
		m.logger.Warn("ignoring empty skill name")
		ValidationWarnings.WithLabelValues("skill").Inc()
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	previous := m.activeSkill
	m.activeSkill = skill
	m.appendEvent(core.EventInput{
		Role:    core.RoleSystem,
		Content: fmt.Sprintf("Skill changed from %s to %s", previous, skill),
		Action:  core.ActionSkillChange,
		Skill:   skill,
		Metadata: map[string]interface{}{
			core.MetaPreviousSkill: previous,
			core.MetaNewSkill:      skill,
		},
	})
	m.logger.Info("active skill changed",
		zap.String("previous", previous),
		zap.String("skill", skill),
	)
}

// Snapshot returns a copy of every stored event, initialization events
// included, in append order.
func (m *Manager) Snapshot() []core.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return events(m.store.all())
}

// ActiveSkill returns the active skill.
func (m *Manager) ActiveSkill() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeSkill
}

// Clear drops every event and reseeds the skill prompts from the catalog.
// The active skill is kept.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store.reset()
	m.skills.reset()
	m.indexed = false
	m.seedSkills()
	EventsStored.Set(float64(m.store.size()))
	m.logger.Info("memory cleared", zap.Int("events", m.store.size()))
}

// Close stops the background goroutines of the prompt cache. The Manager
// stays usable without caching. Close may be called more than once.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skills.close()
}

// RefreshSkills reloads the catalog into the skill registry and drops cached
// prompts. Events already in the log are not touched.
func (m *Manager) RefreshSkills() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.skills.reset()
	m.skills.seed()
}

// SearchHistory returns up to limit conversational events most similar to
// query, best match first. It returns nothing when no Index is configured or
// the index fails.
func (m *Manager) SearchHistory(ctx context.Context, query string, limit int) []HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.index == nil || strings.TrimSpace(query) == "" {
		return []HistoryEntry{}
	}
	if limit <= 0 {
		limit = m.config.HistoryEntries
	}

	evs := conversational(events(m.store.all()))
	byID := make(map[string]core.Event, len(evs))
	var searchable []core.Event
	for _, ev := range evs {
		if ev.Role == core.RoleUser || ev.Role == core.RoleModel {
			searchable = append(searchable, ev)
			byID[ev.ID] = ev
		}
	}

	if !m.indexed || m.indexedVersion != m.store.version {
		if err := m.index.Sync(ctx, searchable); err != nil {
			m.logger.Error("failed to sync recall index", zap.Error(err))
			return []HistoryEntry{}
		}
		m.indexed = true
		m.indexedVersion = m.store.version
	}

	ids, err := m.index.Query(ctx, query, limit)
	if err != nil {
		m.logger.Error("recall query failed", zap.String("query", truncateLog(query, 50)), zap.Error(err))
		return []HistoryEntry{}
	}

	out := make([]HistoryEntry, 0, len(ids))
	for _, id := range ids {
		if ev, ok := byID[id]; ok {
			out = append(out, project(ev))
		}
	}
	m.logger.Debug("recall search",
		zap.String("query", truncateLog(query, 50)),
		zap.Int("results", len(out)),
	)
	return out
}

// validate applies defaults to in, logging each substitution.
func (m *Manager) validate(in core.EventInput) core.EventInput {
	if !in.Role.Valid() {
		m.warn("role", "unknown role, storing as system", zap.String("role", string(in.Role)))
		in.Role = core.RoleSystem
	}
	if in.Content == "" {
		m.warn("content", "empty event content", zap.String("role", string(in.Role)))
	} else if !utf8.ValidString(in.Content) {
		m.warn("content", "invalid UTF-8 in event content")
		in.Content = strings.ToValidUTF8(in.Content, "�")
	}
	if strings.TrimSpace(in.Action) == "" {
		in.Action = defaultAction(in.Role)
		m.warn("action", "missing action, using role default", zap.String("action", in.Action))
	}
	return in
}

func (m *Manager) warn(field, msg string, fields ...zap.Field) {
	ValidationWarnings.WithLabelValues(field).Inc()
	m.logger.Warn(msg, fields...)
}

// appendEvent derives the stored fields of in, appends it and runs
// maintenance. Caller must hold m.mu.
func (m *Manager) appendEvent(in core.EventInput) string {
	skill := in.Skill
	if skill == "" {
		skill = m.activeSkill
	}

	ev := core.Event{
		ID:             newEventID(),
		Timestamp:      m.stamp(),
		Role:           in.Role,
		Content:        in.Content,
		Skill:          skill,
		Action:         in.Action,
		Category:       categorize(in.Action),
		Metadata:       cloneMap(in.Metadata),
		ContextSummary: synopsis(in.Action, in.Role, in.Content),
	}

	m.store.append(ev)
	EventsAppended.WithLabelValues(string(ev.Role)).Inc()
	m.logger.Debug("event appended",
		zap.String("id", ev.ID),
		zap.String("role", string(ev.Role)),
		zap.String("action", ev.Action),
		zap.String("skill", ev.Skill),
		zap.String("content", truncateLog(ev.Content, 50)),
	)

	m.maintain()
	return ev.ID
}

// seedSkills appends one initialization event per catalog skill.
// Caller must hold m.mu.
func (m *Manager) seedSkills() {
	for _, sc := range m.skills.seed() {
		m.appendEvent(core.EventInput{
			Role:    core.RoleSystem,
			Content: sc.InitializingPrompt,
			Action:  core.ActionSkillPromptInit,
			Skill:   sc.SkillName,
			Metadata: map[string]interface{}{
				core.MetaIsInitialization: true,
			},
		})
	}
}

// now returns the current time of the configured clock.
func (m *Manager) now() time.Time {
	return m.clock()
}

// stamp returns the timestamp of a new event. A clock running backwards is
// clamped to the previous timestamp so the log stays ordered.
func (m *Manager) stamp() time.Time {
	t := m.clock()
	if t.Before(m.lastTimestamp) {
		t = m.lastTimestamp
	}
	m.lastTimestamp = t
	return t
}

func cloneMap(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Config holds Manager configuration.
type Config struct {
	// MaxMemorySize is the event count above which hard maintenance runs.
	// Default: 1000. This is a soft bound, writes are never rejected.
	MaxMemorySize int

	// CompressionThreshold is the event count above which old content is
	// compressed. Should be below MaxMemorySize.
	// Default: 500
	CompressionThreshold int

	// HistoryEntries is the window of GetConversationHistory when called
	// with maxEntries <= 0.
	// Default: 20
	HistoryEntries int

	// EnhancedEntries is the window of GetEnhancedConversationContext when
	// called with maxEntries <= 0.
	// Default: 15
	EnhancedEntries int

	// DefaultSkill is the active skill of a new Manager.
	// Default: "general"
	DefaultSkill string
}

// DefaultConfig returns sensible defaults for a single conversation.
var DefaultConfig = &Config{
	MaxMemorySize:        1000,
	CompressionThreshold: 500,
	HistoryEntries:       20,
	EnhancedEntries:      15,
	DefaultSkill:         "general",
}

// normalizeConfig copies cfg and replaces non-positive values with defaults.
func normalizeConfig(cfg *Config, logger *zap.Logger) *Config {
	if cfg == nil {
		cfg = DefaultConfig
	}
	c := *cfg
	if c.MaxMemorySize <= 0 {
		c.MaxMemorySize = DefaultConfig.MaxMemorySize
	}
	if c.CompressionThreshold <= 0 {
		c.CompressionThreshold = DefaultConfig.CompressionThreshold
	}
	if c.HistoryEntries <= 0 {
		c.HistoryEntries = DefaultConfig.HistoryEntries
	}
	if c.EnhancedEntries <= 0 {
		c.EnhancedEntries = DefaultConfig.EnhancedEntries
	}
	if strings.TrimSpace(c.DefaultSkill) == "" {
		c.DefaultSkill = DefaultConfig.DefaultSkill
	}
	if c.CompressionThreshold >= c.MaxMemorySize {
		logger.Warn("compression threshold is not below max memory size, soft compression will never run",
			zap.Int("compressionThreshold", c.CompressionThreshold),
			zap.Int("maxMemorySize", c.MaxMemorySize),
		)
	}
	return &c
}
