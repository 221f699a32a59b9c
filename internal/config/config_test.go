package config

import (
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/suite"
)

// ConfigSuite is a test suite for config operations.
type ConfigSuite struct {
	suite.Suite
	tempDir     string
	origHomeDir string
	origToken   string
}

func (s *ConfigSuite) SetupTest() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "config-test-*")
	s.Require().NoError(err)

	// Save and override HOME so the dotdir lands in the temp dir
	s.origHomeDir = os.Getenv("HOME")
	os.Setenv("HOME", s.tempDir)

	s.origToken = os.Getenv(TokenEnv)
	os.Unsetenv(TokenEnv)
}

func (s *ConfigSuite) TearDownTest() {
	os.Setenv("HOME", s.origHomeDir)
	if s.origToken != "" {
		os.Setenv(TokenEnv, s.origToken)
	}
	os.RemoveAll(s.tempDir)
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) TestDefault() {
	cfg := Default()

	s.Equal(DefaultTickSeconds, cfg.TickSeconds)
	s.Equal(DefaultStatusAddr, cfg.StatusAddr)
	s.Contains(cfg.DataFile, "bot_data.json")
	s.Contains(cfg.TokenFile, "token.txt")
}

func (s *ConfigSuite) TestDataDir() {
	s.Contains(DataDir(), ".bot-telegram")
}

func (s *ConfigSuite) TestSettingsPath() {
	s.Contains(SettingsPath(), "settings.json")
}

func (s *ConfigSuite) TestEnsureAll() {
	s.Require().NoError(EnsureAll())

	info, err := os.Stat(DataDir())
	s.Require().NoError(err)
	s.True(info.IsDir())

	_, err = os.Stat(SettingsPath())
	s.NoError(err)

	// Second call leaves the existing file alone
	s.NoError(EnsureAll())
}

func (s *ConfigSuite) TestLoadRoundTrip() {
	s.Require().NoError(EnsureAll())

	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal(DefaultTickSeconds, cfg.TickSeconds)
}

func (s *ConfigSuite) TestLoadFillsUnsetFields() {
	s.Require().NoError(EnsureDataDir())

	data, err := json.Marshal(map[string]any{"tick_seconds": 0, "data_file": ""})
	s.Require().NoError(err)
	s.Require().NoError(os.WriteFile(SettingsPath(), data, 0o644))

	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal(DefaultTickSeconds, cfg.TickSeconds)
	s.Contains(cfg.DataFile, "bot_data.json")
}

func (s *ConfigSuite) TestLoadRejectsMalformedSettings() {
	s.Require().NoError(EnsureDataDir())
	s.Require().NoError(os.WriteFile(SettingsPath(), []byte("{broken"), 0o644))

	_, err := Load()
	s.Error(err)
}

func (s *ConfigSuite) TestTokenEnvWins() {
	os.Setenv(TokenEnv, "  env-token  ")
	defer os.Unsetenv(TokenEnv)

	tok, err := Default().Token()
	s.Require().NoError(err)
	s.Equal("env-token", tok)
}

func (s *ConfigSuite) TestTokenFromFile() {
	s.Require().NoError(EnsureDataDir())
	cfg := Default()
	s.Require().NoError(os.WriteFile(cfg.TokenFile, []byte("file-token\n"), 0o600))

	tok, err := cfg.Token()
	s.Require().NoError(err)
	s.Equal("file-token", tok)
}

func (s *ConfigSuite) TestTokenMissing() {
	cfg := Default()
	cfg.TokenFile = filepath.Join(s.tempDir, "absent.txt")

	_, err := cfg.Token()
	s.Error(err)
}

func (s *ConfigSuite) TestTokenEmptyFile() {
	s.Require().NoError(EnsureDataDir())
	cfg := Default()
	s.Require().NoError(os.WriteFile(cfg.TokenFile, []byte("   \n"), 0o600))

	_, err := cfg.Token()
	s.Error(err)
}
