// Package config loads runtime configuration from a YAML file and JARVIS_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/GarryCodespace/Jarvis/memory"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// JARVIS_SESSION_MAXMEMORYSIZE overrides session.maxMemorySize.
const EnvPrefix = "JARVIS"

// ErrInvalidConfig is returned by Validate for unusable values.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the root configuration.
type Config struct {
	Session SessionConfig `mapstructure:"session"`
	Threads ThreadsConfig `mapstructure:"threads"`
	Log     LogConfig     `mapstructure:"log"`
	Prompts PromptsConfig `mapstructure:"prompts"`
	Recall  RecallConfig  `mapstructure:"recall"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// SessionConfig bounds the conversation memory.
type SessionConfig struct {
	MaxMemorySize        int    `mapstructure:"maxMemorySize"`
	CompressionThreshold int    `mapstructure:"compressionThreshold"`
	HistoryEntries       int    `mapstructure:"historyEntries"`
	EnhancedEntries      int    `mapstructure:"enhancedEntries"`
	DefaultSkill         string `mapstructure:"defaultSkill"`
}

// ThreadsConfig tunes thread analysis.
type ThreadsConfig struct {
	// ContinuationRule is an optional expr-lang expression deciding whether a
	// user input continues the open thread.
	ContinuationRule string `mapstructure:"continuationRule"`
}

// LogConfig selects the log level and encoding.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json
}

// PromptsConfig locates the skill prompt catalog.
type PromptsConfig struct {
	Path  string `mapstructure:"path"` // empty uses the built-in catalog
	Watch bool   `mapstructure:"watch"`
}

// RecallConfig enables similarity search over the conversation.
type RecallConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	Dimensions int  `mapstructure:"dimensions"`
}

// LLMConfig configures the Anthropic engine.
type LLMConfig struct {
	Model     string `mapstructure:"model"`
	MaxTokens int64  `mapstructure:"maxTokens"`
	MaxTurns  int    `mapstructure:"maxTurns"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the endpoint
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("session.maxMemorySize", memory.DefaultConfig.MaxMemorySize)
	v.SetDefault("session.compressionThreshold", memory.DefaultConfig.CompressionThreshold)
	v.SetDefault("session.historyEntries", memory.DefaultConfig.HistoryEntries)
	v.SetDefault("session.enhancedEntries", memory.DefaultConfig.EnhancedEntries)
	v.SetDefault("session.defaultSkill", memory.DefaultConfig.DefaultSkill)
	v.SetDefault("threads.continuationRule", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("prompts.path", "")
	v.SetDefault("prompts.watch", false)
	v.SetDefault("recall.enabled", true)
	v.SetDefault("recall.dimensions", 256)
	v.SetDefault("llm.model", "claude-sonnet-4-20250514")
	v.SetDefault("llm.maxTokens", 1024)
	v.SetDefault("llm.maxTurns", 4)
	v.SetDefault("metrics.addr", "")
}

// Load reads configuration from path (optional) and the environment, then
// validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Session.MaxMemorySize <= 0 {
		return fmt.Errorf("%w: session.maxMemorySize must be positive, got %d", ErrInvalidConfig, c.Session.MaxMemorySize)
	}
	if c.Session.CompressionThreshold <= 0 {
		return fmt.Errorf("%w: session.compressionThreshold must be positive, got %d", ErrInvalidConfig, c.Session.CompressionThreshold)
	}
	if c.Recall.Enabled && c.Recall.Dimensions <= 0 {
		return fmt.Errorf("%w: recall.dimensions must be positive, got %d", ErrInvalidConfig, c.Recall.Dimensions)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("%w: llm.maxTokens must be positive, got %d", ErrInvalidConfig, c.LLM.MaxTokens)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log.format must be console or json, got %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// Warnings lists settings that are valid but probably unintended.
func (c *Config) Warnings() []string {
	var out []string
	if c.Session.CompressionThreshold >= c.Session.MaxMemorySize {
		out = append(out, fmt.Sprintf(
			"session.compressionThreshold (%d) is not below session.maxMemorySize (%d), soft compression will never run",
			c.Session.CompressionThreshold, c.Session.MaxMemorySize))
	}
	if c.Prompts.Watch && c.Prompts.Path == "" {
		out = append(out, "prompts.watch has no effect without prompts.path")
	}
	return out
}

// MemoryConfig returns the memory.Manager configuration.
func (c *Config) MemoryConfig() *memory.Config {
	return &memory.Config{
		MaxMemorySize:        c.Session.MaxMemorySize,
		CompressionThreshold: c.Session.CompressionThreshold,
		HistoryEntries:       c.Session.HistoryEntries,
		EnhancedEntries:      c.Session.EnhancedEntries,
		DefaultSkill:         c.Session.DefaultSkill,
	}
}

// ContinuationRule compiles threads.continuationRule. It returns nil when no
// rule is configured.
func (c *Config) ContinuationRule(logger *zap.Logger) (memory.ContinuationRule, error) {
	src := strings.TrimSpace(c.Threads.ContinuationRule)
	if src == "" {
		return nil, nil
	}
	rule, err := memory.NewExprRule(src, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: threads.continuationRule: %v", ErrInvalidConfig, err)
	}
	return rule, nil
}
