package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// ProjectConfigFile is the name of the project-level config file,
	// searched upward from the working directory.
	ProjectConfigFile = "intake.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/intake"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
)

// Environment overrides. The environment wins over every file layer.
const (
	EnvModelEndpoint = "INTAKE_MODEL_ENDPOINT"
	EnvModelName     = "INTAKE_MODEL"
	EnvModelRegistry = "INTAKE_MODEL_REGISTRY"
	EnvNATSURL       = "INTAKE_NATS_URL"
	EnvWatchDir      = "INTAKE_WATCH_DIR"
	EnvOutputDir     = "INTAKE_OUTPUT_DIR"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/intake/config.yaml)
// 3. Project config (intake.yaml in current or parent directories)
// 4. INTAKE_* environment variables
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	// Load user config
	userConfigPath := l.userConfigPath()
	if userConfigPath != "" {
		if err := applyFile(config, userConfigPath); err == nil {
			l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
		} else if !errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
		}
	}

	// Load project config
	projectConfigPath := l.findProjectConfig()
	if projectConfigPath != "" {
		if err := applyFile(config, projectConfigPath); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
		} else {
			l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	applyEnv(config)

	// Validate final config
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnv overlays INTAKE_* environment variables onto config.
func applyEnv(config *Config) {
	if v := os.Getenv(EnvModelEndpoint); v != "" {
		config.Model.Endpoint = v
	}
	if v := os.Getenv(EnvModelName); v != "" {
		config.Model.Model = v
	}
	if v := os.Getenv(EnvModelRegistry); v != "" {
		config.Model.RegistryFile = v
	}
	if v := os.Getenv(EnvNATSURL); v != "" {
		config.NATS.URL = v
	}
	if v := os.Getenv(EnvWatchDir); v != "" {
		config.Watch.Dir = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		config.Output.Dir = v
	}
}

// EnsureUserConfig creates the user config file with defaults if it doesn't exist
func (l *Loader) EnsureUserConfig() error {
	userConfigPath := l.userConfigPath()

	// Check if it already exists
	if _, err := os.Stat(userConfigPath); err == nil {
		return nil // Already exists
	}

	// Create default config
	config := DefaultConfig()
	if err := config.SaveToFile(userConfigPath); err != nil {
		return err
	}

	l.logger.Info("Created default user config", slog.String("path", userConfigPath))
	return nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for intake.yaml in current and parent directories
func (l *Loader) findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return ""
}
