package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_PutGet(t *testing.T) {
	t.Parallel()

	m := NewMemory(1024)
	m.Put("a", []byte("alpha"))

	got, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("alpha"), got)

	_, ok = m.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, 1, m.Len())
	assert.Equal(t, int64(5), m.SizeBytes())
}

func TestMemory_UpdateExisting(t *testing.T) {
	t.Parallel()

	m := NewMemory(1024)
	m.Put("k", []byte("short"))
	m.Put("k", []byte("a longer value"))

	got, ok := m.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("a longer value"), got)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, int64(len("a longer value")), m.SizeBytes())
}

func TestMemory_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	m := NewMemory(30)
	m.Put("a", make([]byte, 10))
	m.Put("b", make([]byte, 10))
	m.Put("c", make([]byte, 10))

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := m.Get("a")
	require.True(t, ok)

	m.Put("d", make([]byte, 10))

	_, ok = m.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	for _, key := range []string{"a", "c", "d"} {
		_, ok := m.Get(key)
		assert.True(t, ok, "entry %q should survive", key)
	}
	assert.Equal(t, int64(30), m.SizeBytes())
}

func TestMemory_OversizedContentNotCached(t *testing.T) {
	t.Parallel()

	m := NewMemory(10)
	m.Put("big", make([]byte, 11))

	_, ok := m.Get("big")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestMemory_Unlimited(t *testing.T) {
	t.Parallel()

	m := NewMemory(0)
	for i := 0; i < 100; i++ {
		m.Put(fmt.Sprintf("key-%d", i), make([]byte, 1024))
	}
	assert.Equal(t, 100, m.Len())
	assert.Equal(t, int64(100*1024), m.SizeBytes())
}

func TestMemory_Delete(t *testing.T) {
	t.Parallel()

	m := NewMemory(1024)
	m.Put("a", []byte("alpha"))
	m.Delete("a")
	m.Delete("never existed")

	_, ok := m.Get("a")
	assert.False(t, ok)
	assert.Equal(t, int64(0), m.SizeBytes())
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	m := NewMemory(1 << 20)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d", j%10)
				m.Put(key, []byte(key))
				m.Get(key)
				if j%20 == 0 {
					m.Delete(key)
				}
			}
		}()
	}
	wg.Wait()
}
