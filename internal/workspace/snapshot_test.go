package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	for _, format := range []SnapshotFormat{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			data, err := MarshalSnapshot(twoTabState(), format)
			require.NoError(t, err)

			got, err := UnmarshalSnapshot(data, format)
			require.NoError(t, err)
			assert.True(t, twoTabState().Equal(got))
		})
	}
}

func TestSnapshot_YAMLUsesRecordFieldNames(t *testing.T) {
	data, err := MarshalSnapshot(twoTabState(), FormatYAML)
	require.NoError(t, err)

	assert.Contains(t, string(data), "activeTabId: t1")
	assert.Contains(t, string(data), "parameterValues:")
	assert.Contains(t, string(data), "diversify: true")
}

func TestSnapshot_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format SnapshotFormat
	}{
		{name: "broken json", data: "{", format: FormatJSON},
		{name: "broken yaml", data: "tabs: [", format: FormatYAML},
		{name: "missing id", data: "tabs:\n  - name: x\n", format: FormatYAML},
		{name: "nested param", data: `{"tabs":[{"id":"a","parameterValues":{"p":{"x":1}}}]}`, format: FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalSnapshot([]byte(tt.data), tt.format)
			assert.Error(t, err)
		})
	}
}

func TestParseSnapshotFormat(t *testing.T) {
	f, err := ParseSnapshotFormat("YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseSnapshotFormat("toml")
	assert.Error(t, err)

	assert.Equal(t, FormatYAML, FormatForPath("ws.yaml"))
	assert.Equal(t, FormatJSON, FormatForPath("ws.txt"))
}
