// Package config provides configuration types and defaults for rewind.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration options for rewind.
type Config struct {
	// DBPath is the SQLite database file holding recorded timelines.
	DBPath string `mapstructure:"db_path"`
	// Shell runs recorded commands ("sh -c" style). Defaults to $SHELL.
	Shell string `mapstructure:"shell"`
	// CommandTimeout bounds a single recorded command's runtime.
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	// HistoryLimit caps how many timelines `list` shows by default.
	HistoryLimit int  `mapstructure:"history_limit"`
	UI           UI   `mapstructure:"ui"`
	Log          Logs `mapstructure:"log"`
}

// UI holds rendering options for the terminal front-end.
type UI struct {
	Color      bool `mapstructure:"color"`
	ShowOutput bool `mapstructure:"show_output"`
}

// Logs holds log sink options.
type Logs struct {
	Enabled bool   `mapstructure:"enabled"`
	Level   string `mapstructure:"level"` // debug, info, warn, error
}

// DataDir returns the default data directory (~/.rewind).
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rewind"
	}
	return filepath.Join(home, ".rewind")
}

// Default returns the built-in configuration.
func Default() Config {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return Config{
		DBPath:         filepath.Join(DataDir(), "timelines.db"),
		Shell:          shell,
		CommandTimeout: 5 * time.Minute,
		HistoryLimit:   20,
		UI:             UI{Color: true, ShowOutput: true},
		Log:            Logs{Enabled: false, Level: "info"},
	}
}

// Load reads configuration from ~/.rewind/config.yaml (if present),
// layered over the defaults. A missing config file is not an error.
func Load() (Config, error) {
	return LoadFrom(DataDir())
}

// LoadFrom reads configuration from a specific directory, for tests.
func LoadFrom(dir string) (Config, error) {
	cfg := Default()

	vp := viper.New()
	vp.SetConfigName("config")
	vp.SetConfigType("yaml")
	vp.AddConfigPath(dir)
	vp.SetDefault("db_path", cfg.DBPath)
	vp.SetDefault("shell", cfg.Shell)
	vp.SetDefault("command_timeout", cfg.CommandTimeout)
	vp.SetDefault("history_limit", cfg.HistoryLimit)
	vp.SetDefault("ui.color", cfg.UI.Color)
	vp.SetDefault("ui.show_output", cfg.UI.ShowOutput)
	vp.SetDefault("log.enabled", cfg.Log.Enabled)
	vp.SetDefault("log.level", cfg.Log.Level)

	if err := vp.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := vp.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.Shell == "" {
		return fmt.Errorf("shell is required")
	}
	if c.CommandTimeout <= 0 {
		return fmt.Errorf("command_timeout must be positive, got %s", c.CommandTimeout)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}
	return nil
}

// LogPath returns the log file path, kept next to the database.
func (c Config) LogPath() string {
	return filepath.Join(filepath.Dir(c.DBPath), "rewind.log")
}
