// internal/synccache/cache_test.go
package synccache

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMemoryCache_GetPut(t *testing.T) {
	cache := NewMemoryCache(10, time.Hour)

	key := Key{ClientID: "client-1", ClientSessionID: "session-1"}
	serverID := uuid.New()

	// 未登録のキーはヒットしない
	_, ok := cache.Get(key)
	assert.False(t, ok)

	cache.Put(key, serverID)

	got, ok := cache.Get(key)
	assert.True(t, ok)
	assert.Equal(t, serverID, got)

	// クライアントIDが違えば別エントリ
	_, ok = cache.Get(Key{ClientID: "client-2", ClientSessionID: "session-1"})
	assert.False(t, ok)
}

func TestMemoryCache_OverwriteSameKey(t *testing.T) {
	cache := NewMemoryCache(10, time.Hour)

	key := Key{ClientID: "client-1", ClientSessionID: "session-1"}
	first := uuid.New()
	second := uuid.New()

	cache.Put(key, first)
	cache.Put(key, second)

	got, ok := cache.Get(key)
	assert.True(t, ok)
	assert.Equal(t, second, got)
	assert.Equal(t, 1, cache.Len())
}

func TestMemoryCache_CapacityEviction(t *testing.T) {
	cache := NewMemoryCache(2, time.Hour)

	key1 := Key{ClientID: "c", ClientSessionID: "s1"}
	key2 := Key{ClientID: "c", ClientSessionID: "s2"}
	key3 := Key{ClientID: "c", ClientSessionID: "s3"}

	cache.Put(key1, uuid.New())
	cache.Put(key2, uuid.New())
	cache.Put(key3, uuid.New())

	// 容量2なので最古のkey1が退避される
	_, ok := cache.Get(key1)
	assert.False(t, ok)
	_, ok = cache.Get(key2)
	assert.True(t, ok)
	_, ok = cache.Get(key3)
	assert.True(t, ok)
	assert.Equal(t, 2, cache.Len())
}

func TestMemoryCache_TTLEviction(t *testing.T) {
	cache := NewMemoryCache(10, 30*time.Minute)

	current := time.Now()
	cache.now = func() time.Time { return current }

	key1 := Key{ClientID: "c", ClientSessionID: "s1"}
	key2 := Key{ClientID: "c", ClientSessionID: "s2"}

	cache.Put(key1, uuid.New())

	// 20分後に2つ目を登録
	current = current.Add(20 * time.Minute)
	cache.Put(key2, uuid.New())

	// さらに15分後: key1は35分経過で期限切れ、key2は15分でまだ有効
	current = current.Add(15 * time.Minute)

	_, ok := cache.Get(key1)
	assert.False(t, ok)
	_, ok = cache.Get(key2)
	assert.True(t, ok)
	assert.Equal(t, 1, cache.Len())
}

func TestMemoryCache_ZeroTTLNeverExpires(t *testing.T) {
	cache := NewMemoryCache(10, 0)

	current := time.Now()
	cache.now = func() time.Time { return current }

	key := Key{ClientID: "c", ClientSessionID: "s1"}
	cache.Put(key, uuid.New())

	current = current.Add(365 * 24 * time.Hour)

	_, ok := cache.Get(key)
	assert.True(t, ok)
}
