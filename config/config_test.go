package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GarryCodespace/Jarvis/memory"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Session.MaxMemorySize)
	assert.Equal(t, 500, cfg.Session.CompressionThreshold)
	assert.Equal(t, 20, cfg.Session.HistoryEntries)
	assert.Equal(t, 15, cfg.Session.EnhancedEntries)
	assert.Equal(t, "general", cfg.Session.DefaultSkill)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Recall.Enabled)
	assert.Equal(t, int64(1024), cfg.LLM.MaxTokens)
	assert.Empty(t, cfg.Warnings())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jarvis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
session:
  maxMemorySize: 200
  compressionThreshold: 100
threads:
  continuationRule: "hasContinuationWord || length < 20"
log:
  format: json
`), 0o644))

	t.Setenv("JARVIS_SESSION_COMPRESSIONTHRESHOLD", "150")
	t.Setenv("JARVIS_LLM_MODEL", "claude-test")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Session.MaxMemorySize)
	assert.Equal(t, 150, cfg.Session.CompressionThreshold)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "claude-test", cfg.LLM.Model)

	mc := cfg.MemoryConfig()
	assert.Equal(t, &memory.Config{
		MaxMemorySize:        200,
		CompressionThreshold: 150,
		HistoryEntries:       20,
		EnhancedEntries:      15,
		DefaultSkill:         "general",
	}, mc)

	rule, err := cfg.ContinuationRule(zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.True(t, rule.Continues(memory.Continuation{Length: 5}))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max size", func(c *Config) { c.Session.MaxMemorySize = 0 }},
		{"negative threshold", func(c *Config) { c.Session.CompressionThreshold = -1 }},
		{"zero dimensions", func(c *Config) { c.Recall.Dimensions = 0 }},
		{"zero max tokens", func(c *Config) { c.LLM.MaxTokens = 0 }},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestWarnings(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Session.CompressionThreshold = cfg.Session.MaxMemorySize
	cfg.Prompts.Watch = true
	assert.Len(t, cfg.Warnings(), 2)
}

func TestContinuationRule(t *testing.T) {
	cfg := &Config{}
	rule, err := cfg.ContinuationRule(nil)
	require.NoError(t, err)
	assert.Nil(t, rule)

	cfg.Threads.ContinuationRule = "length +"
	_, err = cfg.ContinuationRule(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
