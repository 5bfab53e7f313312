// Package config manages WSI configuration and the .wsi directory structure.
// It handles loading, saving, and initializing the workspace configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/kilupskalvis/wsi/internal/container"
)

const (
	WSIDir       = ".wsi"
	ConfigFile   = "config"
	RegistryFile = "registry.db"
	PrefsFile    = "prefs.db"
	LogFile      = "wsi.log"
)

// Config represents the WSI configuration
type Config struct {
	LogLevel        string `toml:"log_level"`        // debug, info, warn, error
	DefaultStrategy string `toml:"default_strategy"` // Conflict strategy used without an explicit flag
	path            string // path to .wsi directory
}

// FindWSIRoot finds the .wsi directory by walking up from current directory
func FindWSIRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		wsiPath := filepath.Join(dir, WSIDir)
		if info, err := os.Stat(wsiPath); err == nil && info.IsDir() {
			return wsiPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not a wsi workspace (or any parent up to root)")
		}
		dir = parent
	}
}

// Load loads the configuration from the .wsi directory
func Load() (*Config, error) {
	wsiPath, err := FindWSIRoot()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(wsiPath, ConfigFile)
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.path = wsiPath
	return &cfg, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	configPath := filepath.Join(c.path, ConfigFile)
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// WSIPath returns the path to the .wsi directory
func (c *Config) WSIPath() string {
	return c.path
}

// RegistryPath returns the path to the container registry database
func (c *Config) RegistryPath() string {
	return filepath.Join(c.path, RegistryFile)
}

// PrefsPath returns the path to the preferences database
func (c *Config) PrefsPath() string {
	return filepath.Join(c.path, PrefsFile)
}

// LogPath returns the path to the log file
func (c *Config) LogPath() string {
	return filepath.Join(c.path, LogFile)
}

// Initialize creates a new .wsi directory with initial configuration
func Initialize(defaultStrategy string) (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	wsiPath := filepath.Join(cwd, WSIDir)

	// Check if already initialized
	if _, err := os.Stat(wsiPath); err == nil {
		return nil, fmt.Errorf("wsi workspace already exists")
	}

	if err := os.MkdirAll(wsiPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .wsi directory: %w", err)
	}

	cfg := &Config{
		DefaultStrategy: defaultStrategy,
		path:            wsiPath,
	}

	if err := cfg.Save(); err != nil {
		// Cleanup on failure
		os.RemoveAll(wsiPath)
		return nil, err
	}

	return cfg, nil
}

// Level parses the configured log level, defaulting to info
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ImportStrategy returns the configured default conflict strategy.
// An unset value falls back to cancel so unattended imports never guess.
func (c *Config) ImportStrategy() container.Strategy {
	if c.DefaultStrategy == "" {
		return container.StrategyCancel
	}
	return container.Strategy(c.DefaultStrategy)
}
