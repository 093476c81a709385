package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GarryCodespace/Jarvis/config"
	"github.com/GarryCodespace/Jarvis/logging"
	"github.com/GarryCodespace/Jarvis/memory"
	"github.com/GarryCodespace/Jarvis/memory/embedder/hash"
	"github.com/GarryCodespace/Jarvis/memory/index/chromem"
	"github.com/GarryCodespace/Jarvis/prompts"
)

// app holds the components shared by subcommands.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	catalog *prompts.Catalog
}

// loadApp reads the config named by --config and builds the logger and the
// prompt catalog. Logs go to the command's stderr.
func loadApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewWithWriter(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}

	catalog := prompts.Default(prompts.WithLogger(logger))
	if cfg.Prompts.Path != "" {
		catalog, err = prompts.Open(cfg.Prompts.Path, prompts.WithLogger(logger))
		if err != nil {
			return nil, err
		}
	}

	return &app{cfg: cfg, logger: logger, catalog: catalog}, nil
}

// newManager builds a Manager from the config. Recall adds a chromem index
// over hashed embeddings.
func (a *app) newManager(extra ...memory.Option) (*memory.Manager, error) {
	rule, err := a.cfg.ContinuationRule(a.logger)
	if err != nil {
		return nil, err
	}

	opts := []memory.Option{
		memory.WithLogger(a.logger),
		memory.WithContinuationRule(rule),
	}
	if a.cfg.Recall.Enabled {
		idx := chromem.New(hash.New(a.cfg.Recall.Dimensions), chromem.WithLogger(a.logger))
		opts = append(opts, memory.WithIndex(idx))
	}
	opts = append(opts, extra...)

	return memory.NewManager(a.catalog, a.cfg.MemoryConfig(), opts...), nil
}

// watchPrompts reloads skills into m when the catalog file changes.
func (a *app) watchPrompts(ctx context.Context, m *memory.Manager) error {
	if !a.cfg.Prompts.Watch || a.cfg.Prompts.Path == "" {
		return nil
	}
	return a.catalog.Watch(ctx, func() {
		m.RefreshSkills()
		a.logger.Info("skills refreshed", zap.Strings("skills", a.catalog.AvailableSkills()))
	})
}
