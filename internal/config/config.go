// Package config handles todo-agent configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/todo-agent/config.yaml, /etc/todo-agent/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "todo-agent", "config.yaml"))
	}

	paths = append(paths, "/etc/todo-agent/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all todo-agent configuration.
type Config struct {
	Listen    ListenConfig    `yaml:"listen"`
	Database  DatabaseConfig  `yaml:"database"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Agent     AgentConfig     `yaml:"agent"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	LogLevel  string          `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// DatabaseConfig defines SQLite storage settings.
type DatabaseConfig struct {
	// Path is the SQLite database file. Created on first run if absent.
	Path string `yaml:"path"`
	// SeedDevUser creates a fixed development user at startup so the
	// chat endpoints work without a signup flow.
	SeedDevUser bool `yaml:"seed_dev_user"`
}

// OpenAIConfig defines the chat completions provider.
// BaseURL may point at any OpenAI-compatible endpoint (Groq, OpenAI, etc).
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// AgentConfig defines orchestration loop settings.
type AgentConfig struct {
	// MaxIterations bounds the tool-calling loop per request (default 5).
	MaxIterations int `yaml:"max_iterations"`
	// MaxHistory caps how many prior messages load into context (default 50).
	MaxHistory int `yaml:"max_history"`
}

// RateLimitConfig defines per-user request limits for the chat endpoint.
type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute"`
	PerHour   int `yaml:"per_hour"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen:   ListenConfig{Port: 8000},
		Database: DatabaseConfig{Path: "todo.db", SeedDevUser: true},
		OpenAI: OpenAIConfig{
			BaseURL: "https://api.groq.com/openai/v1",
			Model:   "llama-3.3-70b-versatile",
		},
		Agent: AgentConfig{
			MaxIterations: 5,
			MaxHistory:    50,
		},
		RateLimit: RateLimitConfig{
			PerMinute: 60,
			PerHour:   1000,
		},
	}
}
