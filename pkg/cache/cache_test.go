package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags"`
}

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	c, err := New(Options{URL: "redis://" + mr.Addr(), TTL: ttl})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestCacheSetGet(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	want := payload{Name: "alice", Count: 3, Tags: []string{"go"}}
	require.NoError(t, c.Set(ctx, "x-wrapped:alice:2025", want))

	var got payload
	ok, err := c.Get(ctx, "x-wrapped:alice:2025", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	assert.Equal(t, time.Minute, mr.TTL("x-wrapped:alice:2025"))
}

func TestCacheMiss(t *testing.T) {
	c, _ := newTestCache(t, 0)

	var got payload
	ok, err := c.Get(context.Background(), "missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 300*time.Second, c.TTL())
}

func TestCacheExpiry(t *testing.T) {
	c, mr := newTestCache(t, 300*time.Second)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{Name: "v"}))

	mr.FastForward(299 * time.Second)
	var got payload
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Second)
	ok, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheCorruptValue(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	require.NoError(t, mr.Set("k", "not json"))

	var got payload
	_, err := c.Get(context.Background(), "k", &got)
	assert.ErrorContains(t, err, "unmarshal")
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(Options{URL: "http://nope"})
	assert.Error(t, err)
}
