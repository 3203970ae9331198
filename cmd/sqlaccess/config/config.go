// Package config provides configuration structures for the sqlaccess command.
package config

import (
	"fmt"
	"slices"
	"time"
)

// Output formats of the access command.
const (
	OutputJSON  = "json"
	OutputYAML  = "yaml"
	OutputTable = "table"
)

// Audit store backends.
const (
	AuditNone   = "none"
	AuditMemory = "memory"
	AuditMongo  = "mongo"
)

// Config represents the command configuration.
type Config struct {
	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`

	// Access command settings
	Output  string `yaml:"output" json:"output"`
	Workers int    `yaml:"workers" json:"workers"`

	Server ServerConfig `yaml:"server" json:"server"`
	Audit  AuditConfig  `yaml:"audit" json:"audit"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Address         string        `yaml:"address" json:"address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	Metrics         bool          `yaml:"metrics" json:"metrics"`
}

// AuditConfig represents audit store configuration.
type AuditConfig struct {
	Backend    string `yaml:"backend" json:"backend"`
	MongoURI   string `yaml:"mongo_uri" json:"mongo_uri"`
	Database   string `yaml:"database" json:"database"`
	Collection string `yaml:"collection" json:"collection"`
}

// Validate validates the configuration and fills defaults.
func (c *Config) Validate() error {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if !slices.Contains([]string{"text", "json"}, c.LogFormat) {
		return fmt.Errorf("unsupported log format %q", c.LogFormat)
	}

	if c.Output == "" {
		c.Output = OutputJSON
	}
	if !slices.Contains([]string{OutputJSON, OutputYAML, OutputTable}, c.Output) {
		return fmt.Errorf("unsupported output format %q", c.Output)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}

	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}

	if c.Audit.Backend == "" {
		c.Audit.Backend = AuditNone
	}
	switch c.Audit.Backend {
	case AuditNone, AuditMemory:
	case AuditMongo:
		if c.Audit.MongoURI == "" {
			return fmt.Errorf("mongo uri is required when audit backend is mongo")
		}
		if c.Audit.Database == "" {
			c.Audit.Database = "sqlaccess"
		}
		if c.Audit.Collection == "" {
			c.Audit.Collection = "access_records"
		}
	default:
		return fmt.Errorf("unsupported audit backend %q", c.Audit.Backend)
	}

	return nil
}
