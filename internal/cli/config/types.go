// Package config loads the dashvars CLI configuration.
//
// Values are layered, lowest priority first: built-in defaults, the
// dashvars.yaml file, DASHVARS_* environment variables and explicitly set
// command-line flags.
package config

import (
	"time"

	"github.com/leapstack-labs/dashvars/pkg/core"
)

// Default configuration values.
const (
	DefaultDashboardsDir = "dashboards"
	DefaultStateFile     = ".dashvars/state.db"
	DefaultOutput        = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultTimeout       = 30 * time.Second
	DefaultConcurrency   = 4
	DefaultPort          = 8080
)

// ConfigFileNames lists the file names searched for, in order.
var ConfigFileNames = []string{"dashvars.yaml", "dashvars.yml"}

// Config holds all CLI configuration options.
type Config struct {
	DashboardsDir string       `koanf:"dashboards_dir"`
	StatePath     string       `koanf:"state_path"`
	Verbose       bool         `koanf:"verbose"`
	OutputFormat  string       `koanf:"output"`
	Source        SourceConfig `koanf:"source"`
	Fetch         FetchConfig  `koanf:"fetch"`
	Server        ServerConfig `koanf:"server"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// SourceConfig selects the database variable queries run against.
type SourceConfig struct {
	Type    string            `koanf:"type"`
	DSN     string            `koanf:"dsn"`
	Path    string            `koanf:"path"`
	Options map[string]string `koanf:"options"`
}

// Core converts the source settings to the form sources connect with.
func (s SourceConfig) Core() core.SourceConfig {
	return core.SourceConfig{Type: s.Type, DSN: s.DSN, Path: s.Path, Options: s.Options}
}

// FetchConfig tunes value fetching.
type FetchConfig struct {
	Timeout     time.Duration `koanf:"timeout"`
	Concurrency int           `koanf:"concurrency"`
}

// ServerConfig holds configuration for the HTTP API.
type ServerConfig struct {
	Port  int  `koanf:"port"`
	Watch bool `koanf:"watch"`
}
