package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/capsule/internal/graph"
	"github.com/roach88/capsule/internal/testutil"
)

// createTestStore creates a store in a temporary directory with a
// deterministic clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(testutil.NewDeterministicClock()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// stringGraph is a single string primitive.
func stringGraph(s string) *graph.Graph {
	return &graph.Graph{Root: 0, Data: []graph.Record{graph.String(s)}}
}

// listGraph is [1, 2].
func listGraph() *graph.Graph {
	return &graph.Graph{
		Root: 0,
		Data: []graph.Record{
			graph.Array{Refs: []int{1, 2}},
			graph.Int(1),
			graph.Int(2),
		},
	}
}
