// Package config provides configuration management for the mvrefresh CLI.
package config

import "github.com/leapstack-labs/mvrefresh/pkg/core"

// Config holds all CLI configuration options.
type Config struct {
	Schema       string        `koanf:"schema"`
	Include      string        `koanf:"include"`
	Exclude      string        `koanf:"exclude"`
	DryRun       bool          `koanf:"dry_run"`
	Verbose      bool          `koanf:"verbose"`
	LogFormat    string        `koanf:"log_format"`
	OutputFormat string        `koanf:"output"`
	StatePath    string        `koanf:"state_path"` // empty disables run history
	Target       *TargetConfig `koanf:"target"`
	History      HistoryConfig `koanf:"history"`
}

// TargetConfig describes the database holding the materialized views.
type TargetConfig struct {
	Type     string            `koanf:"type"`
	DSN      string            `koanf:"dsn"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	Database string            `koanf:"database"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	SSLMode  string            `koanf:"sslmode"`
	Options  map[string]string `koanf:"options"`
	Params   map[string]any    `koanf:"params"`
}

// HistoryConfig configures the history command.
type HistoryConfig struct {
	Limit int `koanf:"limit"`
}

// AdapterConfig converts the target into the adapter's connection config.
func (t *TargetConfig) AdapterConfig() core.AdapterConfig {
	opts := make(map[string]string, len(t.Options)+1)
	for k, v := range t.Options {
		opts[k] = v
	}
	if t.SSLMode != "" {
		opts["sslmode"] = t.SSLMode
	}

	return core.AdapterConfig{
		Type:     t.Type,
		DSN:      t.DSN,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Options:  opts,
		Params:   t.Params,
	}
}

// Default configuration values.
const (
	DefaultTargetType   = "postgres"
	DefaultOutput       = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogFormat    = "text"
	DefaultHistoryLimit = 20
)
