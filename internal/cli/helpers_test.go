package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/capsule/internal/config"
	"github.com/roach88/capsule/internal/testutil"
)

// testOptions returns root options backed by a throwaway store and
// predictable labels.
func testOptions(t *testing.T, format string) *RootOptions {
	t.Helper()
	return &RootOptions{
		Format: format,
		Config: &config.Config{
			Store:   config.StoreConfig{Path: filepath.Join(t.TempDir(), "capsule.db")},
			Cache:   config.CacheConfig{Prefix: "capsule:", TTL: time.Hour},
			Closure: config.ClosureConfig{Key: "__closure__"},
			Output:  config.OutputConfig{Format: format},
		},
		Labels: testutil.NewSequenceLabels(""),
	}
}

// writeFile writes content to name inside dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs cmd with args and returns its stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// encodeToFile encodes the script src with opts and returns the wire path.
func encodeToFile(t *testing.T, opts *RootOptions, src string) string {
	t.Helper()
	dir := t.TempDir()
	script := writeFile(t, dir, "value.js", src)
	out := filepath.Join(dir, "value.json")

	_, err := execute(NewEncodeCommand(opts), script, "--output", out)
	require.NoError(t, err)
	return out
}

const counterScript = `
let count = 41;
capture(() => ++count, () => ({ count }))
`

const adderScript = `
let base = 10;
capture((a, b) => base + a + b, () => ({ base }))
`
