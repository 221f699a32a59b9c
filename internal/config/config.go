// Package config provides configuration management for bot-telegram.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
)

const (
	// DefaultTickSeconds is the scheduler scan period.
	DefaultTickSeconds = 60
	// DefaultStatusAddr is where the health/stats endpoint listens.
	// Empty in a loaded config disables the endpoint.
	DefaultStatusAddr = "127.0.0.1:8742"

	// TokenEnv overrides the token file when set.
	TokenEnv = "TELEGRAM_BOT_TOKEN"

	dirName      = ".bot-telegram"
	settingsFile = "settings.json"
	dataFile     = "bot_data.json"
	tokenFile    = "token.txt"
)

// Config holds the bot's runtime settings.
type Config struct {
	DataFile      string `json:"data_file"`
	TokenFile     string `json:"token_file"`
	TickSeconds   int    `json:"tick_seconds"`
	StatusAddr    string `json:"status_addr"`
	TemplatesPath string `json:"templates_path,omitempty"`
}

// DataDir returns the bot's dot-directory under the user's home.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return dirName
	}
	return filepath.Join(home, dirName)
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), settingsFile)
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DataFile:    filepath.Join(DataDir(), dataFile),
		TokenFile:   filepath.Join(DataDir(), tokenFile),
		TickSeconds: DefaultTickSeconds,
		StatusAddr:  DefaultStatusAddr,
	}
}

// EnsureDataDir creates the dot-directory if missing.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0o755)
}

// EnsureSettings writes a default settings file if none exists.
func EnsureSettings() error {
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	data, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// EnsureAll creates the data directory and settings file.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	return EnsureSettings()
}

// Load reads the settings file, filling unset fields from the defaults.
func Load() (*Config, error) {
	data, err := os.ReadFile(SettingsPath())
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	if cfg.TickSeconds <= 0 {
		cfg.TickSeconds = DefaultTickSeconds
	}
	if cfg.DataFile == "" {
		cfg.DataFile = Default().DataFile
	}
	return cfg, nil
}

// Token resolves the bot token: the environment variable wins, otherwise
// the token file is read and trimmed.
func (c *Config) Token() (string, error) {
	if tok := strings.TrimSpace(os.Getenv(TokenEnv)); tok != "" {
		return tok, nil
	}

	data, err := os.ReadFile(c.TokenFile)
	if err != nil {
		return "", fmt.Errorf("read token (set %s or %s): %w", TokenEnv, c.TokenFile, err)
	}
	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return "", fmt.Errorf("token file %s is empty", c.TokenFile)
	}
	return tok, nil
}
