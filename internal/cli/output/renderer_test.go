package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_EffectiveMode(t *testing.T) {
	tests := []struct {
		mode  Mode
		isTTY bool
		want  Mode
	}{
		{ModeAuto, true, ModeText},
		{ModeAuto, false, ModeMarkdown},
		{"", false, ModeMarkdown},
		{ModeJSON, true, ModeJSON},
		{ModeText, false, ModeText},
	}
	for _, tt := range tests {
		r := NewRendererWithTTY(&bytes.Buffer{}, &bytes.Buffer{}, tt.isTTY, tt.mode)
		assert.Equal(t, tt.want, r.EffectiveMode(), "mode=%q tty=%v", tt.mode, tt.isTTY)
	}
}

func TestRenderer_Table(t *testing.T) {
	var out bytes.Buffer
	r := NewRendererWithTTY(&out, &bytes.Buffer{}, false, ModeMarkdown)
	r.Table([]string{"ID", "Name"}, [][]string{{"t1", "Trending"}})

	assert.Contains(t, out.String(), "| ID | Name |")
	assert.Contains(t, out.String(), "| t1 | Trending |")

	out.Reset()
	r = NewRendererWithTTY(&out, &bytes.Buffer{}, false, ModeText)
	r.Table([]string{"ID"}, [][]string{{"t1"}})
	assert.Contains(t, out.String(), "t1")
	assert.NotContains(t, out.String(), "|")
}

func TestRenderer_JSONDoesNotEscapeHTML(t *testing.T) {
	var out bytes.Buffer
	r := NewRendererWithTTY(&out, &bytes.Buffer{}, false, ModeJSON)
	require.NoError(t, r.JSON(map[string]string{"q": "a<b&c"}))
	assert.Contains(t, out.String(), `"a<b&c"`)
}

func TestRenderer_StatusLines(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, false, ModeText)
	r.Success("saved")
	r.Warning("careful")
	r.Header(1, "Tabs")

	assert.Equal(t, "✓ saved\nTabs\n", out.String())
	assert.Equal(t, "! careful\n", errOut.String())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Tabs", FormatHeader(2, "Tabs"))
	assert.Equal(t, "# X", FormatHeader(0, "X"))
	assert.Equal(t, "- **Key:** value", FormatKeyValue("Key", "value"))
}
