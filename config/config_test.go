package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coverlight/intake/model"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model.Provider != "openai" {
		t.Errorf("expected default provider openai, got %s", cfg.Model.Provider)
	}
	if cfg.Watch.Dir != "intake" {
		t.Errorf("expected default watch dir intake, got %s", cfg.Watch.Dir)
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("expected default debounce 2s, got %v", cfg.Watch.Debounce)
	}
	if cfg.Watch.Concurrency != 1 {
		t.Errorf("expected default concurrency 1, got %d", cfg.Watch.Concurrency)
	}
	if !cfg.Output.Pretty {
		t.Error("expected pretty output by default")
	}
	// Stage defaults ride along unchanged.
	if cfg.Pipeline.Correction.Attempts != 2 {
		t.Errorf("expected correction budget 2, got %d", cfg.Pipeline.Correction.Attempts)
	}
	if cfg.Pipeline.Quality.ReviewThreshold != 0.80 {
		t.Errorf("expected review threshold 0.80, got %f", cfg.Pipeline.Quality.ReviewThreshold)
	}
	if cfg.Pipeline.Chunker.MaxSegmentTokens != 800 {
		t.Errorf("expected max segment tokens 800, got %d", cfg.Pipeline.Chunker.MaxSegmentTokens)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "unknown provider",
			modify:  func(c *Config) { c.Model.Provider = "mystery" },
			wantErr: true,
		},
		{
			name: "endpoint without model name",
			modify: func(c *Config) {
				c.Model.Endpoint = "http://localhost:8080/v1"
				c.Model.Model = ""
			},
			wantErr: true,
		},
		{
			name:    "broken pipeline stage",
			modify:  func(c *Config) { c.Pipeline.Correction.Attempts = 0 },
			wantErr: true,
		},
		{
			name:    "missing watch dir",
			modify:  func(c *Config) { c.Watch.Dir = "" },
			wantErr: true,
		},
		{
			name:    "negative debounce",
			modify:  func(c *Config) { c.Watch.Debounce = -time.Second },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
model:
  endpoint: "http://test:8080/v1"
  model: "test-model"
  audit_log: "calls.jsonl"
pipeline:
  gathering:
    workers: 2
    segment_timeout: 30s
  quality:
    review_threshold: 0.9
nats:
  url: "nats://test:4222"
watch:
  dir: "inbox"
  debounce: 500ms
output:
  dir: "results"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Model.Endpoint != "http://test:8080/v1" {
		t.Errorf("expected endpoint http://test:8080/v1, got %s", cfg.Model.Endpoint)
	}
	if cfg.Model.Model != "test-model" {
		t.Errorf("expected model test-model, got %s", cfg.Model.Model)
	}
	if cfg.Pipeline.Gathering.Workers != 2 {
		t.Errorf("expected 2 gathering workers, got %d", cfg.Pipeline.Gathering.Workers)
	}
	if cfg.Pipeline.Gathering.SegmentTimeout != 30*time.Second {
		t.Errorf("expected segment timeout 30s, got %v", cfg.Pipeline.Gathering.SegmentTimeout)
	}
	if cfg.Pipeline.Quality.ReviewThreshold != 0.9 {
		t.Errorf("expected review threshold 0.9, got %f", cfg.Pipeline.Quality.ReviewThreshold)
	}
	if cfg.NATS.URL != "nats://test:4222" {
		t.Errorf("expected NATS URL nats://test:4222, got %s", cfg.NATS.URL)
	}
	if cfg.Watch.Dir != "inbox" {
		t.Errorf("expected watch dir inbox, got %s", cfg.Watch.Dir)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("expected debounce 500ms, got %v", cfg.Watch.Debounce)
	}
	if cfg.Output.Dir != "results" {
		t.Errorf("expected output dir results, got %s", cfg.Output.Dir)
	}

	// Keys absent from the file keep their defaults.
	if cfg.Model.Provider != "openai" {
		t.Errorf("expected provider to remain openai, got %s", cfg.Model.Provider)
	}
	if cfg.Pipeline.Correction.Attempts != 2 {
		t.Errorf("expected correction budget to remain 2, got %d", cfg.Pipeline.Correction.Attempts)
	}
	if cfg.Pipeline.Chunker.MaxSegmentTokens != 800 {
		t.Errorf("expected max segment tokens to remain 800, got %d", cfg.Pipeline.Chunker.MaxSegmentTokens)
	}
}

func TestLayeredPrecedence(t *testing.T) {
	tmpDir := t.TempDir()

	userPath := filepath.Join(tmpDir, "user.yaml")
	userContent := `
pipeline:
  quality:
    review_threshold: 0.9
watch:
  dir: "user-inbox"
`
	if err := os.WriteFile(userPath, []byte(userContent), 0644); err != nil {
		t.Fatalf("failed to write user config: %v", err)
	}

	projectPath := filepath.Join(tmpDir, "project.yaml")
	projectContent := `
watch:
  dir: "project-inbox"
`
	if err := os.WriteFile(projectPath, []byte(projectContent), 0644); err != nil {
		t.Fatalf("failed to write project config: %v", err)
	}

	cfg := DefaultConfig()
	if err := applyFile(cfg, userPath); err != nil {
		t.Fatalf("applyFile(user) error = %v", err)
	}
	if err := applyFile(cfg, projectPath); err != nil {
		t.Fatalf("applyFile(project) error = %v", err)
	}

	// The later layer wins where it speaks; earlier layers survive
	// where it is silent.
	if cfg.Watch.Dir != "project-inbox" {
		t.Errorf("expected project layer to win watch dir, got %s", cfg.Watch.Dir)
	}
	if cfg.Pipeline.Quality.ReviewThreshold != 0.9 {
		t.Errorf("expected user review threshold to survive, got %f", cfg.Pipeline.Quality.ReviewThreshold)
	}
	if cfg.Pipeline.Correction.Attempts != 2 {
		t.Errorf("expected defaults to survive both layers, got %d", cfg.Pipeline.Correction.Attempts)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvModelEndpoint, "http://env:9000/v1")
	t.Setenv(EnvModelName, "env-model")
	t.Setenv(EnvNATSURL, "nats://env:4222")
	t.Setenv(EnvWatchDir, "env-inbox")

	cfg := DefaultConfig()
	applyEnv(cfg)

	if cfg.Model.Endpoint != "http://env:9000/v1" {
		t.Errorf("expected env endpoint, got %s", cfg.Model.Endpoint)
	}
	if cfg.Model.Model != "env-model" {
		t.Errorf("expected env model, got %s", cfg.Model.Model)
	}
	if cfg.NATS.URL != "nats://env:4222" {
		t.Errorf("expected env NATS URL, got %s", cfg.NATS.URL)
	}
	if cfg.Watch.Dir != "env-inbox" {
		t.Errorf("expected env watch dir, got %s", cfg.Watch.Dir)
	}
	// Untouched fields keep their values.
	if cfg.Output.Dir != "" {
		t.Errorf("expected output dir to stay empty, got %s", cfg.Output.Dir)
	}
}

func TestModelRegistrySingleEndpoint(t *testing.T) {
	mc := ModelConfig{
		Endpoint: "http://localhost:8080/v1",
		Provider: "openai",
		Model:    "test-model",
	}

	reg, err := mc.Registry()
	if err != nil {
		t.Fatalf("Registry() error = %v", err)
	}
	if err := reg.Validate(); err != nil {
		t.Fatalf("registry validation error = %v", err)
	}

	for _, cap := range []model.Capability{
		model.CapabilityExtraction,
		model.CapabilityVision,
		model.CapabilityCorrection,
		model.CapabilityFast,
	} {
		if got := reg.Resolve(cap); got != "primary" {
			t.Errorf("expected capability %s to resolve to primary, got %s", cap, got)
		}
	}

	ep := reg.GetEndpoint("primary")
	if ep == nil {
		t.Fatal("expected primary endpoint to exist")
	}
	if ep.URL != "http://localhost:8080/v1" {
		t.Errorf("expected endpoint URL http://localhost:8080/v1, got %s", ep.URL)
	}
	if ep.Model != "test-model" {
		t.Errorf("expected endpoint model test-model, got %s", ep.Model)
	}
}

func TestModelRegistryDefault(t *testing.T) {
	reg, err := ModelConfig{}.Registry()
	if err != nil {
		t.Fatalf("Registry() error = %v", err)
	}
	if got := reg.Resolve(model.CapabilityExtraction); got == "" {
		t.Error("expected built-in registry to resolve extraction")
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Model.Model = "saved-model"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	// Verify file was created
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	// Load and verify
	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Model.Model != "saved-model" {
		t.Errorf("expected model saved-model, got %s", loaded.Model.Model)
	}
}

func TestEnsureUserConfig(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	loader := NewLoader(nil)
	if err := loader.EnsureUserConfig(); err != nil {
		t.Fatalf("EnsureUserConfig() error = %v", err)
	}

	path := filepath.Join(tmpHome, UserConfigDir, UserConfigFile)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected user config at %s: %v", path, err)
	}

	// A second call leaves the existing file alone.
	if err := loader.EnsureUserConfig(); err != nil {
		t.Fatalf("EnsureUserConfig() second call error = %v", err)
	}
}
