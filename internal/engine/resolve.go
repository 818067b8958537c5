package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/leapstack-labs/dashvars/internal/template"
	"github.com/leapstack-labs/dashvars/pkg/core"
	"github.com/leapstack-labs/dashvars/pkg/source"
)

// fetchValues resolves the options of one variable.
func (e *Engine) fetchValues(ctx context.Context, name string) ([]string, error) {
	e.mu.RLock()
	ptr, ok := e.dashboard.Variable(name)
	if !ok {
		e.mu.RUnlock()
		return nil, fmt.Errorf("unknown variable %q", name)
	}
	v := *ptr
	values := e.templateValues(name)
	e.mu.RUnlock()

	switch v.Kind {
	case core.KindCustom:
		return source.CustomOptions(v.CustomValue), nil
	case core.KindTextbox:
		return source.TextboxOptions(&v), nil
	case core.KindQuery:
		query, err := template.Render(v.QueryValue, values)
		if err != nil {
			return nil, fmt.Errorf("failed to render query: %w", err)
		}
		return e.query(ctx, query)
	case core.KindDynamic:
		query, err := source.DynamicQuery(&v)
		if err != nil {
			return nil, err
		}
		return e.query(ctx, query)
	default:
		return nil, fmt.Errorf("variable %q has unsupported type %s", name, v.Kind)
	}
}

func (e *Engine) query(ctx context.Context, query string) ([]string, error) {
	if e.src == nil {
		return nil, ErrNoSource
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	e.logger.Debug("querying source", "source", e.src.Name(), "query", query)
	return e.src.Values(ctx, query)
}

// templateValues returns the values every other variable contributes to a
// query. Callers hold e.mu.
func (e *Engine) templateValues(except string) template.Values {
	values := make(template.Values, len(e.dashboard.Variables))
	for i := range e.dashboard.Variables {
		v := &e.dashboard.Variables[i]
		if v.Name == except {
			continue
		}
		values[v.Name] = template.ValueOf(v, e.options[v.Name])
	}
	return values
}

// Reconcile returns the selection a variable should hold once its options
// are known. A selection that is still offered is kept (multi-select lists
// are filtered to offered values). Otherwise the default value is used if
// offered, then the first option. "All" selections and textbox values are
// never replaced.
func Reconcile(v *core.Variable, options []string) any {
	if v.AllSelected || v.SelectedValue == core.AllSelectedValue {
		return v.SelectedValue
	}
	if v.Kind == core.KindTextbox {
		if v.HasSelection() || len(options) == 0 {
			return v.SelectedValue
		}
		return options[0]
	}
	if len(options) == 0 {
		return nil
	}

	if sel, ok := offered(v.SelectedValue, options, v.MultiSelect); ok {
		return sel
	}
	if def, ok := offered(v.DefaultValue, options, v.MultiSelect); ok {
		return def
	}
	if v.MultiSelect {
		return []any{options[0]}
	}
	return options[0]
}

// offered filters value down to what options contains. It reports false
// when nothing is left.
func offered(value any, options []string, multi bool) (any, bool) {
	var items []any
	switch val := value.(type) {
	case nil:
		return nil, false
	case []any:
		items = val
	case []string:
		for _, s := range val {
			items = append(items, s)
		}
	default:
		items = []any{val}
	}

	kept := make([]any, 0, len(items))
	for _, item := range items {
		s, ok := source.Stringify(item)
		if ok && slices.Contains(options, s) {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		return nil, false
	}
	if multi {
		return kept, true
	}
	if _, isList := value.([]any); isList {
		return kept[0], true
	}
	if _, isList := value.([]string); isList {
		return kept[0], true
	}
	return value, true
}

// normalizeSelection turns user input into the stored selection form.
func normalizeSelection(value any) any {
	if list, ok := value.([]string); ok {
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out
	}
	return value
}
