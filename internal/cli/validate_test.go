package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/capsule/internal/graph"
)

func TestValidateValidGraph(t *testing.T) {
	opts := testOptions(t, "text")
	wire := encodeToFile(t, opts, counterScript)

	out, err := execute(NewValidateCommand(opts), wire)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Graph valid")
}

func TestValidateValidGraphJSON(t *testing.T) {
	opts := testOptions(t, "json")
	wire := encodeToFile(t, opts, `[1, 2, 3]`)

	out, err := execute(NewValidateCommand(opts), wire)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
}

func TestValidateFindings(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name     string
		wire     string
		wantCode string
	}{
		{"root out of range", `{"root":3,"data":[{"kind":"primitive","value":1}]}`, graph.ErrRootOutOfRange},
		{"ref out of range", `{"root":0,"data":[{"kind":"array","refs":[7]}]}`, graph.ErrRefOutOfRange},
		{"unknown kind", `{"root":0,"data":[{"kind":"weakmap"}]}`, graph.ErrSchemaViolation},
		{"not json", `{"root":`, graph.ErrMalformedPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(t, "json")
			path := writeFile(t, dir, tt.name+".json", tt.wire)

			out, err := execute(NewValidateCommand(opts), path)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))

			var resp struct {
				Status string           `json:"status"`
				Data   ValidationResult `json:"data"`
				Error  *CLIError        `json:"error"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "error", resp.Status)
			assert.False(t, resp.Data.Valid)
			require.NotEmpty(t, resp.Data.Errors)

			codes := make([]string, len(resp.Data.Errors))
			for i, e := range resp.Data.Errors {
				codes[i] = e.Code
			}
			assert.Contains(t, codes, tt.wantCode)
		})
	}
}

func TestValidateFindingsText(t *testing.T) {
	opts := testOptions(t, "text")
	path := writeFile(t, t.TempDir(), "bad.json", `{"root":0,"data":[{"kind":"array","refs":[7]}]}`)

	out, err := execute(NewValidateCommand(opts), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "["+graph.ErrRefOutOfRange+"]")
}

func TestValidateNonExistentFile(t *testing.T) {
	opts := testOptions(t, "text")

	out, err := execute(NewValidateCommand(opts), filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, out, "not found")
}
