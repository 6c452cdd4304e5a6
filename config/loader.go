package config

import (
	"log/slog"
	"os"
	"path/filepath"
)

// ConfigFileNames are the project config file names, in lookup order.
var ConfigFileNames = []string{".odoolint.yaml", ".odoolint.yml", "odoolint.yaml"}

// Loader handles configuration loading. A malformed or missing config never
// aborts the run: the loader logs a warning and falls back to defaults.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load loads configuration with layered precedence:
// 1. Built-in defaults
// 2. Project config (.odoolint.yaml in current or parent directories,
//    or the explicit path when given)
func (l *Loader) Load(explicitPath string) *Config {
	path := explicitPath
	if path == "" {
		path = l.findProjectConfig()
	}

	if path == "" {
		l.logger.Debug("No project config found, using defaults")
		return DefaultConfig()
	}

	config, err := LoadFromFile(path)
	if err != nil {
		l.logger.Warn("Failed to load config, using defaults",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		l.logger.Warn("Invalid config, using defaults",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return DefaultConfig()
	}

	l.logger.Debug("Loaded project config", slog.String("path", path))
	return config
}

// findProjectConfig searches for a config file in the current and parent
// directories.
func (l *Loader) findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		for _, name := range ConfigFileNames {
			configPath := filepath.Join(dir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
