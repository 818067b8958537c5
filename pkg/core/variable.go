package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies how a dashboard variable gets its values.
type Kind int

// Kind constants for the supported variable types.
const (
	KindUnknown Kind = iota
	KindQuery        // values come from running QueryValue against a source
	KindCustom       // comma-separated literal options
	KindTextbox      // free text typed by the user
	KindDynamic      // attribute values resolved by the backend
)

// Referenceable reports whether variables of this kind may reference
// other variables. Only query variables are scanned for references.
func (k Kind) Referenceable() bool {
	return k == KindQuery
}

// String returns the wire name of the kind as used in dashboard JSON.
func (k Kind) String() string {
	switch k {
	case KindQuery:
		return "QUERY"
	case KindCustom:
		return "CUSTOM"
	case KindTextbox:
		return "TEXTBOX"
	case KindDynamic:
		return "DYNAMIC"
	default:
		return "UNKNOWN"
	}
}

// ParseKind converts a dashboard type string into a Kind.
// Matching is case-insensitive; unrecognised names yield an error.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "QUERY":
		return KindQuery, nil
	case "CUSTOM":
		return KindCustom, nil
	case "TEXTBOX":
		return KindTextbox, nil
	case "DYNAMIC":
		return KindDynamic, nil
	default:
		return KindUnknown, fmt.Errorf("unknown variable type %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// AllSelectedValue is the sentinel selection meaning "every option".
const AllSelectedValue = "__ALL__"

// Variable is a single dashboard template variable.
type Variable struct {
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Kind        Kind   `json:"type" yaml:"type"`

	// QueryValue is the raw query text of a query variable. It may embed
	// references to other variables.
	QueryValue   string `json:"queryValue,omitempty" yaml:"queryValue,omitempty"`
	CustomValue  string `json:"customValue,omitempty" yaml:"customValue,omitempty"`
	TextboxValue string `json:"textboxValue,omitempty" yaml:"textboxValue,omitempty"`

	DefaultValue  any  `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	SelectedValue any  `json:"selectedValue,omitempty" yaml:"selectedValue,omitempty"`
	MultiSelect   bool `json:"multiSelect,omitempty" yaml:"multiSelect,omitempty"`
	ShowAllOption bool `json:"showALLOption,omitempty" yaml:"showALLOption,omitempty"`
	AllSelected   bool `json:"allSelected,omitempty" yaml:"allSelected,omitempty"`

	Order int    `json:"order" yaml:"order"`
	Sort  string `json:"sort,omitempty" yaml:"sort,omitempty"`

	DynamicAttribute string `json:"dynamicVariablesAttribute,omitempty" yaml:"dynamicVariablesAttribute,omitempty"`
	DynamicSource    string `json:"dynamicVariablesSource,omitempty" yaml:"dynamicVariablesSource,omitempty"`
}

// HasSelection reports whether the variable currently has a usable value.
func (v *Variable) HasSelection() bool {
	if v.AllSelected {
		return true
	}
	switch sel := v.SelectedValue.(type) {
	case nil:
		return false
	case string:
		return sel != ""
	case []any:
		return len(sel) > 0
	case []string:
		return len(sel) > 0
	default:
		return true
	}
}

// Dashboard is a named collection of variables.
type Dashboard struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Variables []Variable `json:"variables" yaml:"variables"`

	// Path is the file the dashboard was loaded from, if any.
	Path string `json:"-" yaml:"-"`
}

// Variable returns the variable with the given name.
func (d *Dashboard) Variable(name string) (*Variable, bool) {
	for i := range d.Variables {
		if d.Variables[i].Name == name {
			return &d.Variables[i], true
		}
	}
	return nil, false
}

// Names returns variable names in dashboard order.
func (d *Dashboard) Names() []string {
	names := make([]string, 0, len(d.Variables))
	for _, v := range d.Variables {
		names = append(names, v.Name)
	}
	return names
}

// Kinds returns a name to kind lookup for the dashboard's variables.
func (d *Dashboard) Kinds() map[string]Kind {
	kinds := make(map[string]Kind, len(d.Variables))
	for _, v := range d.Variables {
		kinds[v.Name] = v.Kind
	}
	return kinds
}

// Clone returns a deep enough copy for independent selection changes.
func (d *Dashboard) Clone() *Dashboard {
	out := *d
	out.Variables = make([]Variable, len(d.Variables))
	copy(out.Variables, d.Variables)
	return &out
}

// EncodeValue serialises a selected value for storage.
func EncodeValue(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode value: %w", err)
	}
	return string(b), nil
}

// DecodeValue reverses EncodeValue.
func DecodeValue(s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	return v, nil
}
