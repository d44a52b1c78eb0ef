package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAndPut(t *testing.T) {
	c := New(10, time.Minute)

	c.Put("model:query", []float32{0.1, 0.2})

	vector, ok := c.Get("model:query")
	require.True(t, ok)
	assert.Equal(t, []float32{0.1, 0.2}, vector)
}

func TestGet_Miss(t *testing.T) {
	c := New(10, time.Minute)

	_, ok := c.Get("never stored")
	assert.False(t, ok)
}

func TestGet_ReturnsCopy(t *testing.T) {
	c := New(10, time.Minute)

	c.Put("key", []float32{1, 2, 3})

	vector, ok := c.Get("key")
	require.True(t, ok)
	vector[0] = 99

	fresh, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, float32(1), fresh[0])
}

func TestPut_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2, time.Minute)

	c.Put("a", []float32{1})
	c.Put("b", []float32{2})

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("c", []float32{3})

	_, ok = c.Get("b")
	assert.False(t, ok)

	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestPut_UpdatesExistingKey(t *testing.T) {
	c := New(2, time.Minute)

	c.Put("key", []float32{1})
	c.Put("key", []float32{2})

	vector, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, []float32{2}, vector)
	assert.Equal(t, 1, c.Len())
}

func TestGet_ExpiredEntry(t *testing.T) {
	c := New(10, time.Minute)

	current := time.Now()
	c.now = func() time.Time { return current }

	c.Put("key", []float32{1})

	current = current.Add(2 * time.Minute)

	_, ok := c.Get("key")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestNew_Defaults(t *testing.T) {
	c := New(0, 0)

	assert.Equal(t, DefaultMaxEntries, c.maxEntries)
	assert.Equal(t, DefaultTTL, c.ttl)
}

func TestConcurrentAccess(t *testing.T) {
	c := New(100, time.Minute)
	done := make(chan struct{})

	for g := 0; g < 4; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("key-%d", i%50)
				c.Put(key, []float32{float32(g), float32(i)})
				c.Get(key)
			}
		}(g)
	}

	for g := 0; g < 4; g++ {
		<-done
	}

	assert.LessOrEqual(t, c.Len(), 100)
}
