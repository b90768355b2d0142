package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	content := `
name: test_scenario
description: "Test scenario for validation"
script: |
  ({a: 1})
assertions:
  - type: equals
    expr: value.a
    expect: 1
  - type: stable
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, "({a: 1})\n", scenario.Script)
	require.Len(t, scenario.Assertions, 2)
	assert.Equal(t, AssertEquals, scenario.Assertions[0].Type)
	assert.Equal(t, 1, scenario.Assertions[0].Expect)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: "d"
script: "1"
assertion:
  - type: stable
`))
	assert.ErrorContains(t, err, "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nscript: '1'\nassertions: [{type: stable}]",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\nscript: '1'\nassertions: [{type: stable}]",
			wantErr: "description is required",
		},
		{
			name:    "neither script nor wire",
			yaml:    "name: n\ndescription: d\nassertions: [{type: stable}]",
			wantErr: "one of script or wire is required",
		},
		{
			name:    "both script and wire",
			yaml:    "name: n\ndescription: d\nscript: '1'\nwire: '{}'\nassertions: [{type: stable}]",
			wantErr: "mutually exclusive",
		},
		{
			name:    "no assertions",
			yaml:    "name: n\ndescription: d\nscript: '1'\nassertions: []",
			wantErr: "assertions list is required",
		},
		{
			name:    "holds without expr",
			yaml:    "name: n\ndescription: d\nscript: '1'\nassertions: [{type: holds}]",
			wantErr: "expr is required for holds",
		},
		{
			name:    "bad record count",
			yaml:    "name: n\ndescription: d\nscript: '1'\nassertions: [{type: record_count}]",
			wantErr: "count must be positive",
		},
		{
			name:    "bad kind",
			yaml:    "name: n\ndescription: d\nscript: '1'\nassertions: [{type: root_kind, kind: map}]",
			wantErr: `unknown record kind "map"`,
		},
		{
			name:    "decode error without code",
			yaml:    "name: n\ndescription: d\nwire: '{}'\nassertions: [{type: decode_error}]",
			wantErr: "code is required",
		},
		{
			name:    "unknown type",
			yaml:    "name: n\ndescription: d\nscript: '1'\nassertions: [{type: trace_order}]",
			wantErr: `unknown assertion type "trace_order"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
