// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/dashvars/internal/cli/output"

	_ "modernc.org/sqlite" // sqlite driver for seeding
)

// HostsDashboard is a three-level dashboard: env feeds region feeds host.
const HostsDashboard = `id: hosts
title: Hosts
variables:
  - name: env
    type: CUSTOM
    customValue: prod,dev
    selectedValue: prod
  - name: region
    type: QUERY
    order: 1
    queryValue: SELECT DISTINCT region FROM hosts WHERE env = {{.env}} ORDER BY region
  - name: host
    type: QUERY
    order: 2
    multiSelect: true
    queryValue: SELECT host FROM hosts WHERE region IN ($region) ORDER BY host
`

// LoopDashboard contains a circular reference between a and b.
const LoopDashboard = `{"id": "loop", "title": "Loop", "variables": [
  {"name": "a", "type": "QUERY", "queryValue": "SELECT x FROM t WHERE y = $b"},
  {"name": "b", "type": "QUERY", "queryValue": "SELECT y FROM t WHERE x = $a"}
]}`

const projectConfig = `dashboards_dir: dashboards
state_path: .dashvars/state.db
source:
  type: sqlite
  path: data.db
fetch:
  timeout: 5s
  concurrency: 2
`

var hostRows = [][3]string{
	{"prod", "us", "web-1"},
	{"prod", "us", "web-2"},
	{"prod", "eu", "web-3"},
	{"dev", "us", "dev-1"},
}

// SetupTestProject creates a temporary project with a dashvars.yaml, a
// dashboards directory holding the hosts dashboard and a SQLite database
// the dashboard queries run against.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	if err := os.MkdirAll(filepath.Join(tmpDir, "dashboards"), 0o755); err != nil {
		t.Fatalf("failed to create dashboards directory: %v", err)
	}
	WriteFile(t, filepath.Join(tmpDir, "dashvars.yaml"), projectConfig)
	WriteFile(t, filepath.Join(tmpDir, "dashboards", "hosts.yaml"), HostsDashboard)

	db, err := sql.Open("sqlite", filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("failed to open seed database: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE hosts (env TEXT, region TEXT, host TEXT)`); err != nil {
		t.Fatalf("failed to create hosts table: %v", err)
	}
	for _, row := range hostRows {
		if _, err := db.Exec(`INSERT INTO hosts VALUES (?, ?, ?)`, row[0], row[1], row[2]); err != nil {
			t.Fatalf("failed to seed hosts: %v", err)
		}
	}

	return tmpDir
}

// WriteFile writes content to path, failing the test on error.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererText creates a new test renderer in text mode (simulated TTY).
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, true)
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
