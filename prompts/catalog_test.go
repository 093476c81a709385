package prompts

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GarryCodespace/Jarvis/memory"
)

var _ memory.PromptCatalog = (*Catalog)(nil)

func writeCatalog(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefault(t *testing.T) {
	c := Default()

	require.NoError(t, c.LoadPrompts())
	assert.Equal(t, []string{"coding", "dsa", "general", "system-design"}, c.AvailableSkills())
	assert.True(t, c.RequiresProgrammingLanguage("coding"))
	assert.False(t, c.RequiresProgrammingLanguage("dsa"))
	assert.False(t, c.RequiresProgrammingLanguage("missing"))

	p, ok := c.SkillPrompt("coding", "Rust")
	require.True(t, ok)
	assert.Contains(t, p, "working in Rust")
	assert.NotContains(t, p, LanguagePlaceholder)

	p, ok = c.SkillPrompt("coding", "")
	require.True(t, ok)
	assert.Contains(t, p, LanguagePlaceholder)
}

func TestSkillPrompt_AppendsLanguageWithoutPlaceholder(t *testing.T) {
	c := New(map[string]Skill{
		"sql":  {Prompt: "You write SQL.", RequiresProgrammingLanguage: true},
		"chat": {Prompt: "You chat."},
	})

	p, _ := c.SkillPrompt("sql", "PostgreSQL")
	assert.Equal(t, "You write SQL.\n\nProgramming language: PostgreSQL", p)

	p, _ = c.SkillPrompt("chat", "Go")
	assert.Equal(t, "You chat.", p)

	_, ok := c.SkillPrompt("missing", "")
	assert.False(t, ok)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
		skills  int
	}{
		{name: "valid", data: "skills:\n  a:\n    prompt: hello\n", skills: 1},
		{name: "empty", data: "skills: {}\n", wantErr: ErrEmptyCatalog},
		{name: "missing prompt", data: "skills:\n  a:\n    description: x\n"},
		{name: "not yaml", data: "skills: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skills, err := Parse([]byte(tt.data))
			if tt.skills > 0 {
				require.NoError(t, err)
				assert.Len(t, skills, tt.skills)
				return
			}
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestOpenAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	writeCatalog(t, path, "skills:\n  general:\n    prompt: first\n")

	c, err := Open(path)
	require.NoError(t, err)
	p, _ := c.SkillPrompt("general", "")
	assert.Equal(t, "first", p)

	writeCatalog(t, path, "skills:\n  general:\n    prompt: second\n  dsa:\n    prompt: trees\n")
	require.NoError(t, c.LoadPrompts())
	assert.Equal(t, []string{"dsa", "general"}, c.AvailableSkills())

	// A broken file keeps the last good catalog
	writeCatalog(t, path, "skills: {}\n")
	assert.ErrorIs(t, c.LoadPrompts(), ErrEmptyCatalog)
	assert.Len(t, c.AvailableSkills(), 2)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadPrompts_EmptyStatic(t *testing.T) {
	assert.ErrorIs(t, New(nil).LoadPrompts(), ErrEmptyCatalog)
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	writeCatalog(t, path, "skills:\n  general:\n    prompt: first\n")

	c, err := Open(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	require.NoError(t, c.Watch(ctx, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}))

	writeCatalog(t, path, "skills:\n  general:\n    prompt: second\n")

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("catalog change not observed")
	}
	p, _ := c.SkillPrompt("general", "")
	assert.Equal(t, "second", p)
}

func TestWatch_WithoutFile(t *testing.T) {
	assert.Error(t, Default().Watch(context.Background(), nil))
}
