package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is a deployment-specific configuration overlay. Zero values
// leave the corresponding Config field untouched.
type Profile struct {
	Name          string `yaml:"name" json:"name"`
	NodeID        string `yaml:"node_id,omitempty" json:"node_id,omitempty"`
	LogPath       string `yaml:"log_path,omitempty" json:"log_path,omitempty"`
	GraphCapacity int    `yaml:"graph_capacity,omitempty" json:"graph_capacity,omitempty"`
	Fsync         *bool  `yaml:"fsync,omitempty" json:"fsync,omitempty"`
	LogLevel      string `yaml:"log_level,omitempty" json:"log_level,omitempty"`
}

// LoadProfile loads a profile YAML from path.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", path, err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", path, err)
	}
	return &profile, nil
}

func (p *Profile) applyTo(cfg *Config) {
	if p.NodeID != "" {
		cfg.NodeID = p.NodeID
	}
	if p.LogPath != "" {
		cfg.LogFilePath = p.LogPath
	}
	if p.GraphCapacity > 0 {
		cfg.InitialGraphCapacity = p.GraphCapacity
	}
	if p.Fsync != nil {
		cfg.Fsync = *p.Fsync
	}
	if p.LogLevel != "" {
		cfg.LogLevel = p.LogLevel
	}
}
