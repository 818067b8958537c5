package source

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/dashvars/pkg/core"
)

// CustomOptions splits a custom variable's comma-separated values.
// Entries are trimmed, empty entries dropped and duplicates removed.
func CustomOptions(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}

// TextboxOptions returns the single value of a textbox variable, falling
// back to its default value.
func TextboxOptions(v *core.Variable) []string {
	if v.TextboxValue != "" {
		return []string{v.TextboxValue}
	}
	if s, ok := v.DefaultValue.(string); ok && s != "" {
		return []string{s}
	}
	return nil
}

// DynamicQuery builds the query listing the values of a dynamic variable's
// attribute within its source table.
func DynamicQuery(v *core.Variable) (string, error) {
	if v.DynamicAttribute == "" {
		return "", fmt.Errorf("dynamic variable %q has no attribute", v.Name)
	}
	if v.DynamicSource == "" {
		return "", fmt.Errorf("dynamic variable %q has no source", v.Name)
	}
	// Attribute keys such as service.name are single column names.
	attr := quoteName(v.DynamicAttribute)
	return fmt.Sprintf("SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL ORDER BY 1",
		attr, QuoteIdent(v.DynamicSource), attr), nil
}

// QuoteIdent double-quotes an identifier, escaping embedded quotes.
// A dotted name is quoted part by part.
func QuoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quoteName(p)
	}
	return strings.Join(parts, ".")
}

func quoteName(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
