// Package config provides configuration loading and management for the
// intake pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coverlight/intake/model"
	"github.com/coverlight/intake/pipeline"
)

// Config represents the complete intake configuration.
type Config struct {
	Model    ModelConfig     `yaml:"model"`
	Pipeline pipeline.Config `yaml:"pipeline"`
	NATS     NATSConfig      `yaml:"nats"`
	Watch    WatchConfig     `yaml:"watch"`
	Output   OutputConfig    `yaml:"output"`
}

// ModelConfig controls how capabilities resolve to model endpoints.
type ModelConfig struct {
	// RegistryFile points at a JSON model registry (capabilities,
	// endpoints, fallback chains). Empty uses Endpoint, or the built-in
	// registry when that is empty too.
	RegistryFile string `yaml:"registry_file"`

	// Endpoint is a single API endpoint serving every capability.
	// Set for one-model deployments and the fixture server.
	Endpoint string `yaml:"endpoint"`

	// Provider is the wire protocol for Endpoint: openai, ollama, or
	// anthropic.
	Provider string `yaml:"provider"`

	// Model is the model identifier sent to Endpoint.
	Model string `yaml:"model"`

	// AuditLog is a JSONL file recording per-call metadata. Empty
	// disables auditing.
	AuditLog string `yaml:"audit_log"`
}

// Registry builds the model registry this configuration describes.
func (m ModelConfig) Registry() (*model.Registry, error) {
	if m.RegistryFile != "" {
		reg, err := model.LoadFromFile(m.RegistryFile)
		if err != nil {
			return nil, fmt.Errorf("model registry %s: %w", m.RegistryFile, err)
		}
		if err := reg.Validate(); err != nil {
			return nil, fmt.Errorf("model registry %s: %w", m.RegistryFile, err)
		}
		return reg, nil
	}

	if m.Endpoint == "" {
		return model.NewDefaultRegistry(), nil
	}

	// One endpoint serves every capability.
	single := &model.CapabilityConfig{Preferred: []string{"primary"}}
	reg := model.NewRegistry(
		map[model.Capability]*model.CapabilityConfig{
			model.CapabilityExtraction: single,
			model.CapabilityVision:     single,
			model.CapabilityCorrection: single,
			model.CapabilityFast:       single,
		},
		map[string]*model.EndpointConfig{
			"primary": {Provider: m.Provider, URL: m.Endpoint, Model: m.Model},
		},
	)
	reg.SetDefault("primary")
	return reg, nil
}

// NATSConfig configures the completion event publisher.
type NATSConfig struct {
	// URL is the NATS server URL. Empty disables event publishing.
	URL string `yaml:"url"`
}

// WatchConfig configures the intake directory watcher.
type WatchConfig struct {
	// Dir is the directory watched for incoming documents.
	Dir string `yaml:"dir"`

	// Debounce is how long a document set must sit unchanged before it
	// is picked up.
	Debounce time.Duration `yaml:"debounce"`

	// Concurrency bounds how many submissions are processed at once.
	Concurrency int `yaml:"concurrency"`

	// MetricsAddr serves prometheus metrics when set (e.g. ":9090").
	MetricsAddr string `yaml:"metrics_addr"`
}

// OutputConfig controls where and how results are written.
type OutputConfig struct {
	// Dir receives result files. Empty writes next to the input.
	Dir string `yaml:"dir"`

	// Pretty indents the result JSON.
	Pretty bool `yaml:"pretty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Provider: "openai",
			Model:    "default",
		},
		Pipeline: pipeline.DefaultConfig(),
		Watch: WatchConfig{
			Dir:         "intake",
			Debounce:    2 * time.Second,
			Concurrency: 1,
		},
		Output: OutputConfig{
			Pretty: true,
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case "openai", "ollama", "anthropic":
	default:
		return fmt.Errorf("model.provider must be openai, ollama, or anthropic, got %q", c.Model.Provider)
	}
	if c.Model.Endpoint != "" && c.Model.Model == "" {
		return fmt.Errorf("model.model is required when model.endpoint is set")
	}
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if c.Watch.Dir == "" {
		return fmt.Errorf("watch.dir is required")
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if c.Watch.Concurrency < 1 {
		return fmt.Errorf("watch.concurrency must be at least 1")
	}
	return nil
}

// LoadFromFile loads one YAML file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := applyFile(config, path); err != nil {
		return nil, err
	}
	return config, nil
}

// applyFile unmarshals a YAML file onto config. Keys absent from the
// file keep their current values, which is what gives the loader's
// layering its precedence.
func applyFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
