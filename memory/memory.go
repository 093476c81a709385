package memory

import (
	"context"

	"github.com/GarryCodespace/Jarvis/core"
)

// PromptCatalog is the external source of skill prompts.
// The Manager seeds its skill registry from it at startup and on Clear.
//
// Implementations:
//   - prompts.Catalog: YAML-backed catalog with hot reload
type PromptCatalog interface {
	// LoadPrompts (re)loads the catalog from its backing source.
	LoadPrompts() error

	// AvailableSkills lists the skill names in the catalog.
	AvailableSkills() []string

	// SkillPrompt returns the prompt for a skill. When programmingLanguage is
	// non-empty the catalog renders its language-aware variant.
	SkillPrompt(skillName, programmingLanguage string) (string, bool)

	// RequiresProgrammingLanguage reports whether the skill's prompt is
	// parameterized by a programming language.
	RequiresProgrammingLanguage(skillName string) bool
}

// Index is an optional similarity index over conversation events.
// The Manager keeps it in sync lazily: Sync is called with the full set of
// indexable events whenever the log changed since the previous query.
//
// Implementations:
//   - chromem.Index: embedded chromem-go collection
type Index interface {
	// Sync replaces the indexed events.
	Sync(ctx context.Context, events []core.Event) error

	// Query returns the ids of the events most similar to text, best first.
	Query(ctx context.Context, text string, limit int) ([]string, error)
}

// Embedder converts text to vector embeddings for an Index.
//
// Implementations:
//   - hash.Embedder: deterministic hashed bag-of-words, offline
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns embedding vector size.
	Dimensions() int
}
