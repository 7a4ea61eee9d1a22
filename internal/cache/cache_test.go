package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyDeterministic(t *testing.T) {
	k1 := Key("/demo/x", []any{"a", int64(1)})
	k2 := Key("/demo/x", []any{"a", int64(1)})
	assert.Equal(t, k1, k2)
}

func TestKeyDiffersOnArgs(t *testing.T) {
	k1 := Key("/demo/x", []any{"a"})
	k2 := Key("/demo/x", []any{"b"})
	assert.NotEqual(t, k1, k2)
}

func TestSetGetAndExpiry(t *testing.T) {
	c := New()
	key := Key("/demo/x", nil)
	_, _, ok := c.Get(key)
	assert.False(t, ok)

	c.Set(key, []byte("hello"), "application/json", time.Hour)
	v, ct, ok := c.Get(key)
	assert.True(t, ok)
	assert.Equal(t, "hello", string(v))
	assert.Equal(t, "application/json", ct)

	c.Set(key, []byte("stale"), "application/json", -time.Second)
	_, _, ok = c.Get(key)
	assert.False(t, ok)
}
