// Package config provides configuration loading and defaults for the
// springboardvr-mcp server.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ResourceFilter holds allowlist and denylist entries for a resource category.
type ResourceFilter struct {
	Allowlist []string `yaml:"allowlist"`
	Denylist  []string `yaml:"denylist"`
}

// SafetyConfig groups resource filters for venue locations and stations.
type SafetyConfig struct {
	Locations ResourceFilter `yaml:"locations"`
	Stations  ResourceFilter `yaml:"stations"`
}

// AuditConfig controls audit logging behaviour.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	LogPath string `yaml:"log_path"`
}

// ServerConfig holds network and authentication settings.
type ServerConfig struct {
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

// SpringboardVRConfig holds the API endpoint and the venue account used to
// log in.
type SpringboardVRConfig struct {
	URL      string `yaml:"url"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	// Timeout is the HTTP request timeout in seconds.
	Timeout int `yaml:"timeout"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Config is the top-level configuration structure for the springboardvr-mcp
// server.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Safety        SafetyConfig        `yaml:"safety"`
	Audit         AuditConfig         `yaml:"audit"`
	SpringboardVR SpringboardVRConfig `yaml:"springboardvr"`
	Log           LogConfig           `yaml:"log"`
}

// LoadConfig reads and parses a YAML configuration file from the given path.
// On error, nil is returned for the config pointer.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a new Config populated with sensible default values.
// Each call returns a distinct instance.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Audit: AuditConfig{
			Enabled: true,
			LogPath: "/config/audit.log",
		},
		SpringboardVR: SpringboardVRConfig{
			URL:     "https://api.springboardvr.com/graphql",
			Timeout: 30,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ApplyEnvOverrides updates cfg in place with values from environment variables.
// Recognized variables:
//   - SPRINGBOARDVR_MCP_AUTH_TOKEN overrides cfg.Server.AuthToken
//   - SPRINGBOARDVR_GRAPHQL_URL overrides cfg.SpringboardVR.URL
//   - SPRINGBOARDVR_EMAIL overrides cfg.SpringboardVR.Email
//   - SPRINGBOARDVR_PASSWORD overrides cfg.SpringboardVR.Password
//   - LOG_LEVEL overrides cfg.Log.Level
func ApplyEnvOverrides(cfg *Config) {
	if token := os.Getenv("SPRINGBOARDVR_MCP_AUTH_TOKEN"); token != "" {
		cfg.Server.AuthToken = token
	}
	if url := os.Getenv("SPRINGBOARDVR_GRAPHQL_URL"); url != "" {
		cfg.SpringboardVR.URL = url
	}
	if email := os.Getenv("SPRINGBOARDVR_EMAIL"); email != "" {
		cfg.SpringboardVR.Email = email
	}
	if password := os.Getenv("SPRINGBOARDVR_PASSWORD"); password != "" {
		cfg.SpringboardVR.Password = password
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

// Validate reports configuration that would prevent the server from logging
// in to SpringboardVR.
func (c *Config) Validate() error {
	if c.SpringboardVR.Email == "" {
		return fmt.Errorf("springboardvr.email is required")
	}
	if c.SpringboardVR.Password == "" {
		return fmt.Errorf("springboardvr.password is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}

// EnsureAuthToken generates a random auth token and sets it on cfg if
// cfg.Server.AuthToken is empty. It returns the token (existing or generated)
// and any error encountered during generation.
func EnsureAuthToken(cfg *Config) (string, error) {
	if cfg.Server.AuthToken != "" {
		return cfg.Server.AuthToken, nil
	}
	token, err := GenerateRandomToken()
	if err != nil {
		return "", fmt.Errorf("generate auth token: %w", err)
	}
	cfg.Server.AuthToken = token
	return token, nil
}

// GenerateRandomToken returns a 32-character hex-encoded cryptographically
// random token string.
func GenerateRandomToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read: %w", err)
	}
	return hex.EncodeToString(b), nil
}
