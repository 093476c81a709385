package memory

import (
	"sort"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// SkillContext is the initializing prompt of one skill.
type SkillContext struct {
	SkillName          string `json:"skillName"`
	InitializingPrompt string `json:"initializingPrompt"`
}

// skillRegistry holds one SkillContext per catalog skill and caches the
// language-aware prompt variants rendered by the catalog.
type skillRegistry struct {
	catalog  PromptCatalog
	contexts map[string]SkillContext
	cache    *ristretto.Cache
	logger   *zap.Logger
}

func newSkillRegistry(catalog PromptCatalog, logger *zap.Logger) *skillRegistry {
	r := &skillRegistry{
		catalog:  catalog,
		contexts: make(map[string]SkillContext),
		logger:   logger,
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 20, // bytes of prompt text
		BufferItems: 64,
	})
	if err != nil {
		logger.Warn("prompt cache disabled", zap.Error(err))
	} else {
		r.cache = cache
	}
	return r
}

// seed loads the catalog and builds one SkillContext per skill, returned in
// name order. Failures are logged and leave the registry empty.
func (r *skillRegistry) seed() []SkillContext {
	if r.catalog == nil {
		r.logger.Warn("no prompt catalog configured, skills not seeded")
		return nil
	}
	if err := r.catalog.LoadPrompts(); err != nil {
		r.logger.Error("failed to load skill prompts", zap.Error(err))
		return nil
	}

	names := r.catalog.AvailableSkills()
	if len(names) == 0 {
		r.logger.Error("prompt catalog has no skills")
		return nil
	}
	sort.Strings(names)

	seeded := make([]SkillContext, 0, len(names))
	for _, name := range names {
		prompt, ok := r.catalog.SkillPrompt(name, "")
		if !ok {
			r.logger.Warn("skill listed without prompt", zap.String("skill", name))
			continue
		}
		sc := SkillContext{SkillName: name, InitializingPrompt: prompt}
		r.contexts[name] = sc
		seeded = append(seeded, sc)
	}

	r.logger.Info("skills seeded", zap.Int("count", len(seeded)))
	return seeded
}

// requiresLanguage reports whether the skill prompt takes a programming language.
func (r *skillRegistry) requiresLanguage(skill string) bool {
	return r.catalog != nil && r.catalog.RequiresProgrammingLanguage(skill)
}

// prompt returns the prompt for skill. The language-aware variant is used
// when the skill requires a programming language and one is given.
func (r *skillRegistry) prompt(skill, lang string) string {
	if lang != "" && r.requiresLanguage(skill) {
		key := skill + "|" + lang
		if r.cache != nil {
			if v, ok := r.cache.Get(key); ok {
				return v.(string)
			}
		}
		if p, ok := r.catalog.SkillPrompt(skill, lang); ok {
			if r.cache != nil {
				r.cache.Set(key, p, int64(len(p)))
				r.cache.Wait()
			}
			return p
		}
	}

	if sc, ok := r.contexts[skill]; ok {
		return sc.InitializingPrompt
	}
	if r.catalog != nil {
		if p, ok := r.catalog.SkillPrompt(skill, ""); ok {
			return p
		}
	}
	return ""
}

// reset drops every SkillContext and cached prompt.
func (r *skillRegistry) reset() {
	r.contexts = make(map[string]SkillContext)
	if r.cache != nil {
		r.cache.Clear()
	}
}

// close stops the prompt cache. Later lookups render without caching.
func (r *skillRegistry) close() {
	if r.cache != nil {
		r.cache.Close()
		r.cache = nil
	}
}
