// Package template substitutes dashboard variable values into queries.
//
// A query may reference a variable as {{.name}}, {{name}}, [[name]] or
// $name. Render replaces each reference with the SQL literal of the
// variable's current value. Template actions that are not plain names,
// such as {{ if .x }}, are left untouched.
package template

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/dashvars/pkg/core"
)

// Value is what a reference resolves to.
type Value struct {
	Selected    any
	AllSelected bool
	// Options are the variable's available values; used to expand "all".
	Options []string
}

// ValueOf captures the current selection of v.
func ValueOf(v *core.Variable, options []string) Value {
	return Value{Selected: v.SelectedValue, AllSelected: v.AllSelected, Options: options}
}

// Values maps variable names to values.
type Values map[string]Value

// Render substitutes every reference in query. References to names that
// are not in values are an error, except $name which is left as written
// so positional parameters such as $1 survive.
func Render(query string, values Values) (string, error) {
	tokens, err := NewLexer(query, "").Tokenize()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(query))
	for _, tok := range tokens {
		switch tok.Type {
		case TokenText:
			b.WriteString(tok.Value)
		case TokenRef:
			v, ok := values[tok.Name]
			if !ok {
				if tok.Form == FormDollar {
					b.WriteString(tok.Value)
					continue
				}
				return "", NewUnresolvedError(tok.Pos, tok.Name, "is not defined")
			}
			lit, err := Format(v)
			if err != nil {
				return "", NewUnresolvedError(tok.Pos, tok.Name, err.Error())
			}
			b.WriteString(lit)
		}
	}
	return b.String(), nil
}

// Refs returns the reference tokens of query in source order.
func Refs(query string) ([]Token, error) {
	tokens, err := NewLexer(query, "").Tokenize()
	if err != nil {
		return nil, err
	}
	var refs []Token
	for _, tok := range tokens {
		if tok.Type == TokenRef {
			refs = append(refs, tok)
		}
	}
	return refs, nil
}

// Format renders a value as a SQL literal. Strings are single-quoted,
// numbers and booleans are written as is, lists become comma-separated
// literals and an "all" selection expands to every option.
func Format(v Value) (string, error) {
	if v.AllSelected || isAllSentinel(v.Selected) {
		if len(v.Options) == 0 {
			return "", fmt.Errorf("selects all values but has no options")
		}
		return formatList(stringsToAny(v.Options))
	}

	switch sel := v.Selected.(type) {
	case nil:
		return "", fmt.Errorf("has no value")
	case string:
		if sel == "" {
			return "", fmt.Errorf("has no value")
		}
		return Quote(sel), nil
	case []string:
		if len(sel) == 0 {
			return "", fmt.Errorf("has no value")
		}
		return formatList(stringsToAny(sel))
	case []any:
		if len(sel) == 0 {
			return "", fmt.Errorf("has no value")
		}
		return formatList(sel)
	default:
		return formatScalar(sel)
	}
}

// Quote returns s as a single-quoted SQL string literal.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func formatList(items []any) (string, error) {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		lit, err := formatScalar(item)
		if err != nil {
			return "", err
		}
		parts = append(parts, lit)
	}
	return strings.Join(parts, ","), nil
}

func formatScalar(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return Quote(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case json.Number:
		return x.String(), nil
	default:
		return "", fmt.Errorf("has unsupported value type %T", v)
	}
}

func isAllSentinel(v any) bool {
	switch x := v.(type) {
	case string:
		return x == core.AllSelectedValue
	case []string:
		return len(x) == 1 && x[0] == core.AllSelectedValue
	case []any:
		return len(x) == 1 && x[0] == core.AllSelectedValue
	}
	return false
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
