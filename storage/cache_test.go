package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCacheGetSet(t *testing.T) {
	c := NewTTLCache(time.Minute)

	_, ok := c.Get("schools:list")
	assert.False(t, ok)

	c.Set("schools:list", []string{"SOE"})
	v, ok := c.Get("schools:list")
	assert.True(t, ok)
	assert.Equal(t, []string{"SOE"}, v)
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache(10 * time.Millisecond)
	c.Set("k", 1)

	time.Sleep(20 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestTTLCacheInvalidate(t *testing.T) {
	c := NewTTLCache(time.Minute)
	c.Set("grants:EMP100", 1)
	c.Set("grants:EMP200", 2)
	c.Set("schools:list", 3)

	c.Invalidate("grants:EMP100")
	_, ok := c.Get("grants:EMP100")
	assert.False(t, ok)

	c.InvalidatePrefix("grants:")
	_, ok = c.Get("grants:EMP200")
	assert.False(t, ok)
	_, ok = c.Get("schools:list")
	assert.True(t, ok)
}
