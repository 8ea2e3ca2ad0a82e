// Package config provides configuration management for tailor.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

const (
	// DefaultWorkerPort is the default HTTP port for the worker service.
	DefaultWorkerPort = 38600

	// DefaultReasoningTimeoutMs is the timeout for one reasoning call.
	DefaultReasoningTimeoutMs = 30000
)

// Config holds the application configuration.
type Config struct {
	// Worker settings
	WorkerPort int `json:"worker_port"`

	// Database settings
	DatabaseDSN string `json:"database_dsn"`
	MaxConns    int    `json:"max_conns"`

	// Redis session cache (empty disables the cache tier)
	RedisAddr string `json:"redis_addr"`

	// Reasoning collaborator
	ReasoningURL        string `json:"reasoning_url"`
	ReasoningTimeoutMs  int    `json:"reasoning_timeout_ms"`
	GuidanceTokenBudget int    `json:"guidance_token_budget"`

	// Block rule overlay file (empty uses the built-in catalog only)
	RulesPath string `json:"rules_path"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// DataDir returns the data directory path (~/.tailor).
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".tailor")
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		WorkerPort:          DefaultWorkerPort,
		MaxConns:            10,
		ReasoningTimeoutMs:  DefaultReasoningTimeoutMs,
		GuidanceTokenBudget: 512,
	}
}

// Load loads configuration from the settings file, merging with defaults,
// then applies TAILOR_* environment overrides.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(SettingsPath())
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		// Parse errors fall back to defaults rather than failing startup.
		_ = json.Unmarshal(data, cfg)
	}

	if v := os.Getenv("TAILOR_WORKER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			cfg.WorkerPort = p
		}
	}
	if v := os.Getenv("TAILOR_DB_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("TAILOR_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("TAILOR_REASONING_URL"); v != "" {
		cfg.ReasoningURL = v
	}
	if v := os.Getenv("TAILOR_REASONING_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.ReasoningTimeoutMs = ms
		}
	}
	if v := os.Getenv("TAILOR_GUIDANCE_TOKEN_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.GuidanceTokenBudget = n
		}
	}
	if v := os.Getenv("TAILOR_RULES_PATH"); v != "" {
		cfg.RulesPath = v
	}

	return cfg, nil
}

// Get returns the global configuration, loading it if necessary.
func Get() *Config {
	configOnce.Do(func() {
		var err error
		globalConfig, err = Load()
		if err != nil {
			globalConfig = Default()
		}
	})
	return globalConfig
}
