package config

import (
	"fmt"
	"os"
)

// Output modes accepted by --output.
var outputModes = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.DashboardsDir == "" {
		return fmt.Errorf("dashboards_dir is required")
	}
	valid := false
	for _, m := range outputModes {
		if c.OutputFormat == m {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid output format %q (expected auto, text, markdown or json)", c.OutputFormat)
	}
	if c.Fetch.Concurrency < 1 {
		return fmt.Errorf("fetch.concurrency must be at least 1, got %d", c.Fetch.Concurrency)
	}
	if c.Fetch.Timeout < 0 {
		return fmt.Errorf("fetch.timeout must not be negative")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}

// ValidateDirectories checks if required directories exist.
func (c *Config) ValidateDirectories() error {
	if _, err := os.Stat(c.DashboardsDir); os.IsNotExist(err) {
		return fmt.Errorf("dashboards directory does not exist: %s\nHint: Create the directory or use --dashboards-dir to specify a different path", c.DashboardsDir)
	}
	return nil
}
