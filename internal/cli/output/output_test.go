package output

import (
	"bytes"
	"testing"

	"github.com/leapstack-labs/dashvars/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(mode Mode) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewRenderer(&out, &errOut, mode), &out, &errOut
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		mode Mode
		want Mode
	}{
		{ModeAuto, ModeMarkdown},
		{"", ModeMarkdown},
		{ModeText, ModeText},
		{ModeJSON, ModeJSON},
		{ModeMarkdown, ModeMarkdown},
	}
	for _, tt := range tests {
		r, _, _ := newTestRenderer(tt.mode)
		assert.Equal(t, tt.want, r.EffectiveMode(), "mode %q", tt.mode)
		assert.False(t, r.IsTTY())
	}
}

func TestRenderer_TextHasNoColorOffTerminal(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeText)
	r.Header(1, "Variables")
	r.Success("saved")
	r.Warning("careful")
	r.Error("broken")

	assert.Equal(t, "Variables\n"+IconSuccess+" saved\n", out.String())
	assert.NotContains(t, out.String(), "\x1b[")
	assert.Equal(t, IconWarning+" careful\n"+IconError+" broken\n", errOut.String())
}

func TestRenderer_MarkdownHeader(t *testing.T) {
	r, out, _ := newTestRenderer(ModeMarkdown)
	r.Header(2, "Order")
	assert.Equal(t, "## Order\n\n", out.String())
}

func TestRenderer_JSON(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON)
	require.NoError(t, r.JSON(map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", out.String())

	assert.Error(t, r.JSON(func() {}))
}

func TestRenderer_Table(t *testing.T) {
	r, out, _ := newTestRenderer(ModeMarkdown)
	r.Table([]string{"Name", "Type"}, [][]string{{"env", "Custom"}})
	assert.Contains(t, out.String(), "| Name | Type |")
	assert.Contains(t, out.String(), "| env | Custom |")

	r, out, _ = newTestRenderer(ModeText)
	r.Table([]string{"Name"}, [][]string{{"env"}})
	assert.Contains(t, out.String(), "┌")
	assert.Contains(t, out.String(), "env")
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(1, "Title"))
	assert.Equal(t, "### Deep", FormatHeader(3, "Deep"))
	assert.Equal(t, "# Zero", FormatHeader(0, "Zero"))
	assert.Equal(t, "- **Runs**: 3", FormatKeyValue("Runs", "3"))

	assert.Equal(t, "Query", KindLabel(core.KindQuery))
	assert.Equal(t, "Textbox", KindLabel(core.KindTextbox))
	assert.Equal(t, "Unknown", KindLabel(core.KindUnknown))
}

func TestStateStyle(t *testing.T) {
	r, _, _ := newTestRenderer(ModeText)
	s := r.Styles()
	assert.Equal(t, "x", s.StateStyle("failed").Render("x"), "no color off a terminal")
	assert.Equal(t, "x", s.StateStyle("anything").Render("x"))
}
