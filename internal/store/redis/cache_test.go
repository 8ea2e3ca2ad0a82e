package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "tailor:session:abc", cacheKey("abc"))
}

func TestNewCachedStore_DefaultTTL(t *testing.T) {
	c := NewCachedStore("localhost:6379", nil, 0)
	assert.Equal(t, DefaultTTL, c.ttl)
	require.NoError(t, c.Close())
}
