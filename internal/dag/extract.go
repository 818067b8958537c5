package dag

import (
	"regexp"

	"github.com/leapstack-labs/dashvars/pkg/core"
)

// ReferencePattern returns the pattern matching any reference to name:
// {{.name}}, {{name}}, $name (followed by a word boundary) or [[name]].
// Brace and bracket forms tolerate whitespace around the name.
func ReferencePattern(name string) *regexp.Regexp {
	q := regexp.QuoteMeta(name)
	return regexp.MustCompile(
		`\{\{\s*\.` + q + `\s*\}\}` +
			`|\{\{\s*` + q + `\s*\}\}` +
			`|\$` + q + `\b` +
			`|\[\[\s*` + q + `\s*\]\]`,
	)
}

// References reports whether text references the variable name.
func References(text, name string) bool {
	if text == "" || name == "" {
		return false
	}
	return ReferencePattern(name).MatchString(text)
}

// Dependents returns the names of the variables whose query text references
// name. Only referenceable variables are scanned. A variable referencing
// itself is included.
func Dependents(name string, vars []core.Variable) []string {
	if name == "" {
		return nil
	}
	re := ReferencePattern(name)

	var out []string
	for _, v := range vars {
		if !v.Kind.Referenceable() || v.QueryValue == "" {
			continue
		}
		if re.MatchString(v.QueryValue) {
			out = append(out, v.Name)
		}
	}
	return out
}

// ReferencedNames returns which of the candidate names appear in text,
// in candidate order.
func ReferencedNames(text string, candidates []string) []string {
	var out []string
	for _, name := range candidates {
		if References(text, name) {
			out = append(out, name)
		}
	}
	return out
}
