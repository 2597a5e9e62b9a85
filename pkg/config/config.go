// Package config loads ledger configuration from environment variables,
// optionally overlaid with a YAML profile.
package config

import (
	"os"
	"strconv"
)

// Config holds ledger configuration.
type Config struct {
	LogFilePath          string
	InitialGraphCapacity int
	NodeID               string
	Fsync                bool
	LogLevel             string
}

// Load loads configuration from environment variables, then applies the
// YAML profile named by GRAPHLOG_PROFILE when set.
func Load() *Config {
	logPath := os.Getenv("GRAPHLOG_LOG_PATH")
	if logPath == "" {
		logPath = "data/events.log"
	}

	capacity := 1000
	if raw := os.Getenv("GRAPHLOG_GRAPH_CAPACITY"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			capacity = n
		}
	}

	nodeID := os.Getenv("GRAPHLOG_NODE_ID")
	if nodeID == "" {
		nodeID = "default-node"
	}

	logLevel := os.Getenv("GRAPHLOG_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	cfg := &Config{
		LogFilePath:          logPath,
		InitialGraphCapacity: capacity,
		NodeID:               nodeID,
		Fsync:                os.Getenv("GRAPHLOG_FSYNC") == "true",
		LogLevel:             logLevel,
	}

	if profilePath := os.Getenv("GRAPHLOG_PROFILE"); profilePath != "" {
		if profile, err := LoadProfile(profilePath); err == nil {
			profile.applyTo(cfg)
		}
	}
	return cfg
}
