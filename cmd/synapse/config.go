package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds the standalone runner's configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	DBPath     string `json:"db_path"`
	LogLevel   string `json:"log_level"`
	LogFormat  string `json:"log_format"`
	PoolSize   int    `json:"pool_size"`
	MaxSteps   int    `json:"max_steps"`
	ServerName string `json:"server_name"`
}

func defaultConfig() Config {
	return Config{
		DBPath:     filepath.Join(synapseDir(), "synapse.db"),
		LogLevel:   "info",
		LogFormat:  "text",
		PoolSize:   4,
		ServerName: "synapse",
	}
}

func synapseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".synapse"
	}
	return filepath.Join(home, ".synapse")
}

func settingsPath() string {
	return filepath.Join(synapseDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("SYNAPSE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("SYNAPSE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SYNAPSE_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("SYNAPSE_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PoolSize = n
		}
	}
	if v := os.Getenv("SYNAPSE_MAX_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxSteps = n
		}
	}
	if v := os.Getenv("SYNAPSE_SERVER_NAME"); v != "" {
		cfg.ServerName = v
	}

	return cfg
}
