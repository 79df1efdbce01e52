package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

type Config struct {
	ServerURL        string
	PollInterval     time.Duration
	DialTimeout      time.Duration
	ReconnectMin     time.Duration
	ReconnectMax     time.Duration
	TypingInterval   time.Duration
	MaxMessageLength int
	SessionFile      string
}

// fileConfig is the YAML representation; durations are strings in
// time.ParseDuration syntax.
type fileConfig struct {
	ServerURL        string `yaml:"server_url"`
	PollInterval     string `yaml:"poll_interval"`
	DialTimeout      string `yaml:"dial_timeout"`
	ReconnectMin     string `yaml:"reconnect_min"`
	ReconnectMax     string `yaml:"reconnect_max"`
	TypingInterval   string `yaml:"typing_interval"`
	MaxMessageLength *int   `yaml:"max_message_length"`
	SessionFile      string `yaml:"session_file"`
}

func (fc fileConfig) apply(cfg *Config) {
	if fc.ServerURL != "" {
		cfg.ServerURL = fc.ServerURL
	}
	applyDuration(&cfg.PollInterval, fc.PollInterval)
	applyDuration(&cfg.DialTimeout, fc.DialTimeout)
	applyDuration(&cfg.ReconnectMin, fc.ReconnectMin)
	applyDuration(&cfg.ReconnectMax, fc.ReconnectMax)
	applyDuration(&cfg.TypingInterval, fc.TypingInterval)
	if fc.MaxMessageLength != nil {
		cfg.MaxMessageLength = *fc.MaxMessageLength
	}
	if fc.SessionFile != "" {
		cfg.SessionFile = fc.SessionFile
	}
}

func applyDuration(dst *time.Duration, value string) {
	if value == "" {
		return
	}
	if d, err := time.ParseDuration(value); err == nil {
		*dst = d
	}
}

// Load builds the configuration from defaults, an optional YAML file
// (CHAT_CONFIG or ~/.chat-client/config.yaml), then environment overrides.
func Load() Config {
	cfg := Config{
		ServerURL:        "http://localhost:8081",
		PollInterval:     2 * time.Second,
		DialTimeout:      10 * time.Second,
		ReconnectMin:     time.Second,
		ReconnectMax:     30 * time.Second,
		TypingInterval:   2 * time.Second,
		MaxMessageLength: 1000,
		SessionFile:      filepath.Join(homeDir(), ".chat-client", "session.json"),
	}

	path := os.Getenv("CHAT_CONFIG")
	if path == "" {
		path = filepath.Join(homeDir(), ".chat-client", "config.yaml")
	}
	if data, err := os.ReadFile(path); err == nil {
		// a broken config file falls back to defaults rather than aborting
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err == nil {
			fc.apply(&cfg)
		}
	}

	cfg.ServerURL = getEnv("CHAT_SERVER_URL", cfg.ServerURL)
	cfg.PollInterval = getEnvAsDuration("CHAT_POLL_INTERVAL", cfg.PollInterval)
	cfg.DialTimeout = getEnvAsDuration("CHAT_DIAL_TIMEOUT", cfg.DialTimeout)
	cfg.ReconnectMin = getEnvAsDuration("CHAT_RECONNECT_MIN", cfg.ReconnectMin)
	cfg.ReconnectMax = getEnvAsDuration("CHAT_RECONNECT_MAX", cfg.ReconnectMax)
	cfg.TypingInterval = getEnvAsDuration("CHAT_TYPING_INTERVAL", cfg.TypingInterval)
	cfg.MaxMessageLength = getEnvAsInt("CHAT_MAX_MESSAGE_LENGTH", cfg.MaxMessageLength)
	cfg.SessionFile = getEnv("CHAT_SESSION_FILE", cfg.SessionFile)

	return cfg
}

// WSURL derives the websocket endpoint from the server URL.
func (c Config) WSURL() string {
	u := c.ServerURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return strings.TrimRight(u, "/") + "/ws"
}

func (c Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server URL is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.PollInterval)
	}
	if c.ReconnectMin <= 0 || c.ReconnectMax < c.ReconnectMin {
		return fmt.Errorf("invalid reconnect backoff range [%v, %v]", c.ReconnectMin, c.ReconnectMax)
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
