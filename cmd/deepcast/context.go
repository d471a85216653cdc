package main

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"deepcast/internal/analysis"
	"deepcast/internal/command"
	"deepcast/internal/config"
	"deepcast/internal/journal"
	"deepcast/internal/logging"
	"deepcast/internal/pipeline"
	"deepcast/internal/services/llm"
	"deepcast/internal/worker"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) newLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		OutputPaths: []string{
			"stderr",
			filepath.Join(cfg.Paths.LogDir, "deepcast.log"),
		},
	})
}

// newService wires the full pipeline stack: worker subprocess client, fetch
// retry policy, LLM client, and analyzer.
func (c *commandContext) newService(logger *slog.Logger) (*pipeline.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	sub := worker.NewSubprocess(command.NewBuilder(cfg.Worker.Binary), logger)
	retry := worker.RetryPolicy{
		MaxAttempts: cfg.Worker.FetchMaxAttempts,
		BaseDelay:   time.Duration(cfg.Worker.FetchBackoffSeconds) * time.Second,
	}
	exec := worker.NewExecutor(sub, retry)

	client := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	analyzer := analysis.New(client, analysis.Limits{
		ChunkChars:     cfg.Analysis.ChunkChars,
		MapConcurrency: cfg.Analysis.MapConcurrency,
	}, logger)

	return pipeline.New(cfg, exec, analyzer, logger), nil
}

func (c *commandContext) openJournal() (*journal.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return journal.Open(cfg.Paths.JournalPath)
}
