// Package loader reads dashboard definitions from JSON and YAML files.
//
// Two shapes are accepted. The export shape keys variables by ID:
//
//	{"title": "Hosts", "variables": {"a1b2": {"name": "env", "type": "CUSTOM", ...}}}
//
// The list shape gives them in order:
//
//	title: Hosts
//	variables:
//	  - name: env
//	    type: CUSTOM
//
// Variables are sorted by order, then name. Missing variable IDs are
// generated; a missing dashboard ID defaults to the file name stem.
package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/leapstack-labs/dashvars/pkg/core"
	"gopkg.in/yaml.v3"
)

// Extensions lists the file extensions the loader reads.
var Extensions = []string{".json", ".yaml", ".yml"}

// IsDashboardFile reports whether path has a dashboard extension.
func IsDashboardFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// dashboardFile is the on-disk form of a dashboard.
type dashboardFile struct {
	ID        string      `json:"id" yaml:"id"`
	Title     string      `json:"title" yaml:"title"`
	Variables variableSet `json:"variables" yaml:"variables"`
}

// variableSet decodes either a list of variables or a map keyed by ID.
type variableSet []core.Variable

func (s *variableSet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}
	if data[0] == '[' {
		var list []core.Variable
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*s = list
		return nil
	}

	var byID map[string]core.Variable
	if err := json.Unmarshal(data, &byID); err != nil {
		return err
	}
	*s = fromMap(byID)
	return nil
}

func (s *variableSet) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var list []core.Variable
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
	case yaml.MappingNode:
		var byID map[string]core.Variable
		if err := node.Decode(&byID); err != nil {
			return err
		}
		*s = fromMap(byID)
	default:
		return fmt.Errorf("line %d: variables must be a list or a mapping", node.Line)
	}
	return nil
}

func fromMap(byID map[string]core.Variable) []core.Variable {
	list := make([]core.Variable, 0, len(byID))
	for id, v := range byID {
		if v.ID == "" {
			v.ID = id
		}
		list = append(list, v)
	}
	return list
}

// Parse decodes dashboard content. format is "json" or "yaml".
func Parse(data []byte, format string) (*core.Dashboard, error) {
	var f dashboardFile
	switch format {
	case "json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, &ParseError{Message: fmt.Sprintf("invalid JSON: %v", err)}
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, &ParseError{Message: fmt.Sprintf("invalid YAML: %v", err)}
		}
	default:
		return nil, &ParseError{Message: fmt.Sprintf("unsupported format %q", format)}
	}

	d := &core.Dashboard{
		ID:        f.ID,
		Title:     f.Title,
		Variables: []core.Variable(f.Variables),
	}
	if err := Normalize(d); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadFile reads a single dashboard file.
func LoadFile(path string) (*core.Dashboard, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the configured dashboards directory
	if err != nil {
		return nil, fmt.Errorf("failed to read dashboard: %w", err)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	d, err := Parse(data, format)
	if err != nil {
		var pe *ParseError
		var de *DuplicateVariableError
		switch {
		case errors.As(err, &pe):
			pe.File = path
		case errors.As(err, &de):
			de.File = path
		}
		return nil, err
	}

	if d.ID == "" {
		d.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	d.Path = path
	return d, nil
}

// Normalize sorts variables, assigns missing IDs and validates names.
func Normalize(d *core.Dashboard) error {
	seen := make(map[string]struct{}, len(d.Variables))
	for i := range d.Variables {
		v := &d.Variables[i]
		v.Name = strings.TrimSpace(v.Name)
		if v.Name == "" {
			return &ParseError{Message: fmt.Sprintf("variable %d has no name", i+1)}
		}
		if _, dup := seen[v.Name]; dup {
			return &DuplicateVariableError{Name: v.Name}
		}
		seen[v.Name] = struct{}{}
		if v.ID == "" {
			v.ID = uuid.NewString()
		}
	}

	sort.SliceStable(d.Variables, func(i, j int) bool {
		a, b := d.Variables[i], d.Variables[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.Name < b.Name
	})
	return nil
}

// ParseError represents a dashboard decoding error.
type ParseError struct {
	File    string
	Message string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

// DuplicateVariableError is returned when two variables share a name.
type DuplicateVariableError struct {
	File string
	Name string
}

func (e *DuplicateVariableError) Error() string {
	msg := fmt.Sprintf("duplicate variable name %q", e.Name)
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, msg)
	}
	return msg
}
