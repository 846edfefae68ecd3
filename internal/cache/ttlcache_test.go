package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheSetGet(t *testing.T) {
	c := New[string, int](10, time.Hour, time.Minute)

	_, found, _ := c.Get("a")
	assert.False(t, found)

	c.Set("a", 1, time.Minute, Positive)
	v, found, kind := c.Get("a")
	require.True(t, found)
	assert.Equal(t, 1, v)
	assert.Equal(t, Positive, kind)
}

func TestTTLCacheExpiry(t *testing.T) {
	c := New[string, int](10, time.Hour, time.Hour)
	c.Set("a", 1, time.Nanosecond, Positive)
	time.Sleep(time.Millisecond)

	_, found, _ := c.Get("a")
	assert.False(t, found)
}

func TestTTLCacheEviction(t *testing.T) {
	c := New[string, int](2, time.Hour, time.Hour)
	c.Set("a", 1, time.Hour, Positive)
	c.Set("b", 2, time.Hour, Positive)
	c.Set("c", 3, time.Hour, Positive)

	assert.Equal(t, 2, c.Len())
	_, found, _ := c.Get("a")
	assert.False(t, found, "oldest entry should have been evicted")
}

func TestTTLCacheNegativeDisabled(t *testing.T) {
	c := New[string, int](10, time.Hour, 0)
	c.Set("a", 1, time.Hour, Negative)

	_, found, _ := c.Get("a")
	assert.False(t, found, "negative caching disabled should drop the entry")
}

func TestTTLCacheDelete(t *testing.T) {
	c := New[string, int](10, time.Hour, time.Hour)
	c.Set("a", 1, time.Hour, Positive)
	c.Delete("a")

	_, found, _ := c.Get("a")
	assert.False(t, found)
}
