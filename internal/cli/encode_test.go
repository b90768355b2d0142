package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/capsule/internal/graph"
	"github.com/roach88/capsule/internal/store"
)

func TestEncodePrintsWire(t *testing.T) {
	opts := testOptions(t, "text")
	script := writeFile(t, t.TempDir(), "data.js", `({a: [1, 2], b: "x"})`)

	out, err := execute(NewEncodeCommand(opts), script)
	require.NoError(t, err)

	g, err := graph.Parse([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, 0, g.Root)
	assert.Equal(t, 6, g.Len())
	assert.Equal(t, 1, g.Stats()[graph.KindArray])
}

func TestEncodeWritesOutputFile(t *testing.T) {
	opts := testOptions(t, "text")
	dir := t.TempDir()
	script := writeFile(t, dir, "counter.js", counterScript)
	outPath := filepath.Join(dir, "counter.json")

	out, err := execute(NewEncodeCommand(opts), script, "-o", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Wrote")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Empty(t, graph.ValidateJSON(data))

	g, err := graph.Parse(data)
	require.NoError(t, err)
	fn, err := g.At(g.Root)
	require.NoError(t, err)
	assert.Equal(t, graph.KindFunction, fn.Kind())
	assert.Equal(t, "() => ++count", fn.(graph.Function).Source)
}

func TestEncodeStoresWithGeneratedLabel(t *testing.T) {
	opts := testOptions(t, "json")
	script := writeFile(t, t.TempDir(), "counter.js", counterScript)

	out, err := execute(NewEncodeCommand(opts), script, "--store")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   EncodeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Stored)
	assert.Equal(t, "test-graph-1", resp.Data.Label)
	assert.NotEmpty(t, resp.Data.Graph)
	assert.Equal(t, 1, resp.Data.Records[graph.KindFunction])

	st, err := store.Open(opts.Config.Store.Path)
	require.NoError(t, err)
	defer st.Close()

	id, err := st.Resolve(t.Context(), "test-graph-1")
	require.NoError(t, err)
	assert.Equal(t, resp.Data.ID, id)
}

func TestEncodeExplicitLabel(t *testing.T) {
	opts := testOptions(t, "text")
	script := writeFile(t, t.TempDir(), "adder.js", adderScript)

	_, err := execute(NewEncodeCommand(opts), script, "--label", "adder")
	require.NoError(t, err)

	st, err := store.Open(opts.Config.Store.Path)
	require.NoError(t, err)
	defer st.Close()

	entries, err := st.List(t.Context())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"adder"}, entries[0].Labels)
}

func TestEncodeIsDeterministic(t *testing.T) {
	opts := testOptions(t, "text")
	script := writeFile(t, t.TempDir(), "data.js", `({when: new Date(0), re: /x+/g, max: Math.max})`)

	first, err := execute(NewEncodeCommand(opts), script)
	require.NoError(t, err)
	second, err := execute(NewEncodeCommand(opts), script)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEncodeErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name     string
		script   string
		wantCode string
		wantExit int
	}{
		{"missing script", filepath.Join(dir, "missing.js"), ErrCodeNotFound, ExitCommandError},
		{"script throws", writeFile(t, dir, "throws.js", `throw new Error("nope")`), ErrCodeScriptFailed, ExitCommandError},
		{"syntax error", writeFile(t, dir, "broken.js", `({`), ErrCodeScriptFailed, ExitCommandError},
		{"snapshot throws", writeFile(t, dir, "snap.js", `capture(() => 1, () => { throw new Error("snap") })`), ErrCodeEncodeFailed, ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(t, "json")
			out, err := execute(NewEncodeCommand(opts), tt.script)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}
