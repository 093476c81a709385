// Package prompts provides the skill prompt catalog consumed by the memory
// engine. Catalogs are YAML documents of the form:
//
//	skills:
//	  coding:
//	    description: Pair programmer
//	    requiresProgrammingLanguage: true
//	    prompt: You are a pair programmer working in {{language}}.
//
// Prompts of skills that require a programming language may reference the
// {{language}} placeholder.
package prompts

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// LanguagePlaceholder is replaced with the programming language in
// language-aware prompts.
const LanguagePlaceholder = "{{language}}"

// ErrEmptyCatalog is returned when a catalog defines no skills.
var ErrEmptyCatalog = errors.New("prompt catalog has no skills")

//go:embed default.yaml
var defaultYAML []byte

// Skill is one catalog entry.
type Skill struct {
	Description                 string `yaml:"description"`
	Prompt                      string `yaml:"prompt"`
	RequiresProgrammingLanguage bool   `yaml:"requiresProgrammingLanguage"`
}

type catalogFile struct {
	Skills map[string]Skill `yaml:"skills"`
}

// Catalog is a set of skill prompts, optionally backed by a YAML file.
// It implements memory.PromptCatalog and is safe for concurrent use.
type Catalog struct {
	path   string
	logger *zap.Logger

	mu     sync.RWMutex
	skills map[string]Skill

	watcher *fsnotify.Watcher
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger. The catalog logs under the "prompts" name.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger.Named("prompts")
		}
	}
}

// New creates a static catalog from skills.
func New(skills map[string]Skill, opts ...Option) *Catalog {
	c := &Catalog{logger: zap.NewNop(), skills: make(map[string]Skill, len(skills))}
	for _, opt := range opts {
		opt(c)
	}
	for name, s := range skills {
		c.skills[name] = s
	}
	return c
}

// Default returns the built-in catalog.
func Default(opts ...Option) *Catalog {
	skills, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("prompts: invalid built-in catalog: %v", err))
	}
	return New(skills, opts...)
}

// Open loads the catalog at path. The file is re-read by LoadPrompts.
func Open(path string, opts ...Option) (*Catalog, error) {
	c := New(nil, opts...)
	c.path = path
	if err := c.LoadPrompts(); err != nil {
		return nil, err
	}
	return c, nil
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (map[string]Skill, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse prompt catalog: %w", err)
	}

	skills := make(map[string]Skill, len(f.Skills))
	for name, s := range f.Skills {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		s.Prompt = strings.TrimSpace(s.Prompt)
		if s.Prompt == "" {
			return nil, fmt.Errorf("parse prompt catalog: skill %q has no prompt", name)
		}
		skills[name] = s
	}
	if len(skills) == 0 {
		return nil, ErrEmptyCatalog
	}
	return skills, nil
}

// LoadPrompts re-reads the backing file. A failed load keeps the current
// skills. Catalogs without a file only check that they are not empty.
func (c *Catalog) LoadPrompts() error {
	if c.path == "" {
		c.mu.RLock()
		defer c.mu.RUnlock()
		if len(c.skills) == 0 {
			return ErrEmptyCatalog
		}
		return nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("read prompt catalog: %w", err)
	}
	skills, err := Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", c.path, err)
	}

	c.mu.Lock()
	c.skills = skills
	c.mu.Unlock()

	c.logger.Info("prompt catalog loaded",
		zap.String("path", c.path),
		zap.Int("skills", len(skills)),
	)
	return nil
}

// AvailableSkills returns the skill names in sorted order.
func (c *Catalog) AvailableSkills() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.skills))
	for name := range c.skills {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Skill returns the catalog entry of name.
func (c *Catalog) Skill(name string) (Skill, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.skills[name]
	return s, ok
}

// SkillPrompt returns the prompt of a skill. For skills requiring a
// programming language, a non-empty programmingLanguage fills the
// placeholder, or is appended when the prompt has none.
func (c *Catalog) SkillPrompt(skillName, programmingLanguage string) (string, bool) {
	s, ok := c.Skill(skillName)
	if !ok {
		return "", false
	}
	if programmingLanguage == "" || !s.RequiresProgrammingLanguage {
		return s.Prompt, true
	}
	if strings.Contains(s.Prompt, LanguagePlaceholder) {
		return strings.ReplaceAll(s.Prompt, LanguagePlaceholder, programmingLanguage), true
	}
	return s.Prompt + "\n\nProgramming language: " + programmingLanguage, true
}

// RequiresProgrammingLanguage reports whether a skill's prompt is
// parameterized by a programming language.
func (c *Catalog) RequiresProgrammingLanguage(skillName string) bool {
	s, ok := c.Skill(skillName)
	return ok && s.RequiresProgrammingLanguage
}

// Watch reloads the catalog when its file changes and then calls onChange.
// Rapid successive writes are debounced. Watching stops when ctx is done.
func (c *Catalog) Watch(ctx context.Context, onChange func()) error {
	if c.path == "" {
		return errors.New("watch prompt catalog: catalog has no file")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch prompt catalog: %w", err)
	}
	if err := watcher.Add(c.path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch prompt catalog: %w", err)
	}
	c.watcher = watcher

	go c.watchLoop(ctx, watcher, onChange)
	return nil
}

func (c *Catalog) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, onChange func()) {
	const debounceDelay = 200 * time.Millisecond
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			_ = watcher.Close()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				if err := c.LoadPrompts(); err != nil {
					c.logger.Error("failed to reload prompt catalog, keeping current", zap.Error(err))
					return
				}
				if onChange != nil {
					onChange()
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			c.logger.Error("prompt catalog watcher error", zap.Error(err))
		}
	}
}

// Close stops the file watcher.
func (c *Catalog) Close() error {
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}
