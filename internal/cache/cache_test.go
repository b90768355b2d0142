package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/capsule/internal/graph"
)

func testConfig() Config {
	return Config{Prefix: "capsule:", TTL: 24 * time.Hour}
}

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewWithClient(client, testConfig())
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func sampleGraph() *graph.Graph {
	refs := graph.NewAttrs()
	refs.Set("k", 2)
	return &graph.Graph{
		Root: 0,
		Data: []graph.Record{
			graph.Object{Prototype: 1, Refs: refs, Descriptions: graph.NewDescriptors()},
			graph.Builtin{Name: "Object.prototype"},
			graph.String("v"),
		},
	}
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.Addr = mr.Addr()
	c, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.NoError(t, c.Close())
}

func TestNew_ConnectionError(t *testing.T) {
	cfg := testConfig()
	cfg.Addr = "localhost:99999"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestCache_PutAndGet(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	id, err := c.Put(ctx, sampleGraph())
	require.NoError(t, err)
	assert.Equal(t, graph.MustID(sampleGraph()), id)
	assert.True(t, mr.Exists("capsule:"+id))

	g, err := c.Get(ctx, id)
	require.NoError(t, err)

	want, err := graph.Marshal(sampleGraph())
	require.NoError(t, err)
	got, err := graph.Marshal(g)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestCache_Miss(t *testing.T) {
	c, _ := setupTestCache(t)

	_, err := c.Get(context.Background(), "absent")
	require.Error(t, err)
	assert.True(t, IsMiss(err))
	assert.Equal(t, "cache miss: absent", err.Error())
}

func TestCache_TTL(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	id, err := c.Put(ctx, sampleGraph())
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, mr.TTL("capsule:"+id))

	mr.FastForward(25 * time.Hour)
	_, err = c.Get(ctx, id)
	assert.True(t, IsMiss(err))
}

func TestCache_DeleteAndExists(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	id, err := c.Put(ctx, sampleGraph())
	require.NoError(t, err)

	ok, err := c.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, id))
	require.NoError(t, c.Delete(ctx, id), "deleting twice is fine")

	ok, err = c.Exists(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_CorruptEntry(t *testing.T) {
	c, mr := setupTestCache(t)
	require.NoError(t, mr.Set("capsule:bad", `{"root":4,"data":[]}`))

	_, err := c.Get(context.Background(), "bad")
	require.Error(t, err)
	assert.True(t, graph.IsInvalidIndex(err))
}
