package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/coverlight/intake/config"
	"github.com/coverlight/intake/llm"
	"github.com/coverlight/intake/pipeline"
)

func newLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

// loadConfig loads from the --config path when given, otherwise layers
// defaults, user config, project config, and environment.
func loadConfig(logger *slog.Logger) (*config.Config, error) {
	if rootFlags.config != "" {
		return config.LoadFromFile(rootFlags.config)
	}
	return config.NewLoader(logger).Load()
}

// buildPipeline assembles the model client and the extraction pipeline
// from configuration. The returned closer releases the audit log, when
// one is configured.
func buildPipeline(cfg *config.Config, logger *slog.Logger, metrics *pipeline.Metrics) (*pipeline.Pipeline, func(), error) {
	registry, err := cfg.Model.Registry()
	if err != nil {
		return nil, nil, err
	}

	clientOpts := []llm.ClientOption{llm.WithLogger(logger)}
	closer := func() {}
	if cfg.Model.AuditLog != "" {
		f, err := os.OpenFile(cfg.Model.AuditLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		clientOpts = append(clientOpts, llm.WithAuditLog(llm.NewAuditLog(f)))
		closer = func() { _ = f.Close() }
	}
	client := llm.NewClient(registry, clientOpts...)

	p, err := pipeline.New(cfg.Pipeline, pipeline.Deps{Client: client, Metrics: metrics}, pipeline.WithLogger(logger))
	if err != nil {
		closer()
		return nil, nil, err
	}
	return p, closer, nil
}

// expandInputs resolves glob patterns into a sorted, deduplicated file
// list. Literal paths pass through so a missing file fails later with
// a concrete read error.
func expandInputs(patterns []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			if strings.ContainsAny(pattern, "*?[{") {
				return nil, fmt.Errorf("no files match %q", pattern)
			}
			matches = []string{pattern}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}
