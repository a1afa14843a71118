package inflight

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "42:es:abc123", BuildKey(42, "es", "abc123"))
	assert.NotEqual(t, BuildKey(1, "es", "h"), BuildKey(1, "fr", "h"))
}

func TestStore_InsertDelete(t *testing.T) {
	t.Parallel()

	s := NewStore()
	key := BuildKey(1, "de", "h1")

	assert.True(t, s.Insert(key))
	assert.False(t, s.Insert(key), "second insert while held")
	assert.True(t, s.Has(key))
	assert.Equal(t, 1, s.Len())

	s.Delete(key)
	assert.False(t, s.Has(key))
	assert.Equal(t, 0, s.Len())

	s.Delete(key)
	assert.True(t, s.Insert(key), "insert after release")
}

func TestStore_TTL(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(WithTTL(time.Minute), WithClock(func() time.Time { return now }))

	s.Insert("a")
	now = now.Add(30 * time.Second)
	s.Insert("b")
	assert.True(t, s.Has("a"))

	now = now.Add(30 * time.Second)
	assert.False(t, s.Has("a"), "expired")
	assert.True(t, s.Has("b"))
	assert.Equal(t, 1, s.Len())

	assert.True(t, s.Insert("a"), "expired key can be taken again")
}

func TestStore_NoExpiry(t *testing.T) {
	t.Parallel()

	now := time.Now()
	s := NewStore(WithTTL(0), WithClock(func() time.Time { return now }))
	s.Insert("k")
	now = now.Add(24 * time.Hour)
	assert.True(t, s.Has("k"))
}

func TestStore_ConcurrentInsert(t *testing.T) {
	t.Parallel()

	s := NewStore()
	var (
		wg  sync.WaitGroup
		won atomic.Int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Insert("shared") {
				won.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), won.Load())
}
