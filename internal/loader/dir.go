package loader

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/leapstack-labs/dashvars/pkg/core"
)

// FileError is a non-fatal error for a single dashboard file.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Result holds the dashboards found in a directory.
type Result struct {
	Dashboards []*core.Dashboard
	Errors     []FileError
	Duration   time.Duration
}

// HasErrors returns true if any file failed to load.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// Get returns the dashboard with the given ID.
func (r *Result) Get(id string) (*core.Dashboard, bool) {
	for _, d := range r.Dashboards {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

// LoadDir reads every dashboard file below dir. Files that fail to parse
// are reported in Result.Errors and skipped. Dashboards are sorted by ID.
func LoadDir(dir string, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	start := time.Now()
	result := &Result{}
	byID := make(map[string]string)

	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !IsDashboardFile(path) {
			return nil
		}

		d, err := LoadFile(path)
		if err != nil {
			logger.Warn("skipping dashboard", "path", path, "error", err)
			result.Errors = append(result.Errors, FileError{Path: path, Err: err})
			return nil
		}
		if other, dup := byID[d.ID]; dup {
			result.Errors = append(result.Errors, FileError{
				Path: path,
				Err:  fmt.Errorf("dashboard id %q already defined in %s", d.ID, other),
			})
			return nil
		}
		byID[d.ID] = path
		result.Dashboards = append(result.Dashboards, d)
		logger.Debug("loaded dashboard", "id", d.ID, "variables", len(d.Variables))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan dashboards directory: %w", err)
	}

	sort.Slice(result.Dashboards, func(i, j int) bool {
		return result.Dashboards[i].ID < result.Dashboards[j].ID
	})
	result.Duration = time.Since(start)

	logger.Info("dashboards loaded",
		"dir", dir,
		"count", len(result.Dashboards),
		"errors", len(result.Errors),
		"duration_ms", result.Duration.Milliseconds())
	return result, nil
}
