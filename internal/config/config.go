// Package config loads the bot configuration from YAML with environment
// variable expansion. Credentials come from the environment so the file
// can be committed without secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MikhailPrudnikov/Max-efficiency/internal/logging"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/reminder"
)

// Config represents the main configuration.
type Config struct {
	Version  string           `yaml:"version"`
	Logging  *logging.Config  `yaml:"logging"`
	Database *DatabaseConfig  `yaml:"database"`
	Max      *MaxConfig       `yaml:"max"`
	Sber     *SberConfig      `yaml:"sber"`
	Reminder *reminder.Config `yaml:"reminder"`
	Focus    *FocusConfig     `yaml:"focus"`
	Voice    *VoiceConfig     `yaml:"voice"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// MaxConfig holds MAX Bot API settings.
type MaxConfig struct {
	APIURL string `yaml:"api_url"`
	Token  string `yaml:"token"`
}

// SberConfig holds shared settings for the GigaChat and SaluteSpeech
// services. Each auth key is independently optional: a missing key
// disables that service without affecting the other.
type SberConfig struct {
	TokenURL            string `yaml:"token_url"`
	GigaChatAuthKey     string `yaml:"gigachat_auth_key"`
	SaluteSpeechAuthKey string `yaml:"salute_speech_auth_key"`
	ChatURL             string `yaml:"chat_url"`
	RecognizeURL        string `yaml:"recognize_url"`
	// InsecureSkipVerify disables TLS verification. The Sber endpoints
	// serve certificates from the Russian Trusted CA, which is absent
	// from most system stores.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// FocusConfig holds focus timer settings.
type FocusConfig struct {
	DurationMinutes int `yaml:"duration_minutes"`
}

// VoiceConfig holds voice processing settings.
type VoiceConfig struct {
	TempDir string `yaml:"temp_dir"`
}

// DefaultConfig returns a configuration with sensible defaults.
// Credentials are read from the environment.
func DefaultConfig() *Config {
	reminderCfg := reminder.DefaultConfig()
	return &Config{
		Version: "1.0",
		Logging: logging.DefaultConfig(),
		Database: &DatabaseConfig{
			Path: filepath.Join(dataDir(), "tasks.db"),
		},
		Max: &MaxConfig{
			Token: os.Getenv("MAX_BOT_TOKEN"),
		},
		Sber: &SberConfig{
			GigaChatAuthKey:     os.Getenv("GIGACHAT_AUTH_KEY"),
			SaluteSpeechAuthKey: os.Getenv("SALUTE_SPEECH_AUTH_KEY"),
			InsecureSkipVerify:  true,
		},
		Reminder: &reminderCfg,
		Focus: &FocusConfig{
			DurationMinutes: 25,
		},
		Voice: &VoiceConfig{
			TempDir: os.TempDir(),
		},
	}
}

// Load loads configuration from a file, applying defaults for missing
// sections. A missing file is not an error: defaults plus environment
// variables are enough to run.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if config.Database != nil {
		config.Database.Path = expandPath(config.Database.Path)
	}
	if config.Voice != nil {
		config.Voice.TempDir = expandPath(config.Voice.TempDir)
	}

	return config, nil
}

// Validate checks that the configuration is runnable.
func (c *Config) Validate() error {
	if c.Max == nil || c.Max.Token == "" {
		return fmt.Errorf("MAX bot token is required (set MAX_BOT_TOKEN)")
	}
	if c.Database == nil || c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Focus != nil && c.Focus.DurationMinutes < 0 {
		return fmt.Errorf("invalid focus duration: %d", c.Focus.DurationMinutes)
	}
	return nil
}

// AIEnabled reports whether GigaChat credentials are present.
func (c *Config) AIEnabled() bool {
	return c.Sber != nil && c.Sber.GigaChatAuthKey != ""
}

// VoiceEnabled reports whether SaluteSpeech credentials are present.
// Voice also needs AI for intent extraction.
func (c *Config) VoiceEnabled() bool {
	return c.AIEnabled() && c.Sber.SaluteSpeechAuthKey != ""
}

// DefaultConfigPath returns the default configuration path.
func DefaultConfigPath() string {
	return filepath.Join(dataDir(), "config.yaml")
}

func dataDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".max-efficiency")
}

// expandPath expands ~ to the home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
