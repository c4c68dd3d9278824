// internal/synccache/cache.go
package synccache

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Key はクライアントが採番したセッションの識別キー
type Key struct {
	ClientID        string
	ClientSessionID string
}

// Cache は同期の冪等性キャッシュの抽象です。
// エントリが無いことは「未同期、または保持期間切れで退避済み」を意味します。
// このインターフェースの背後を分散キャッシュに差し替えれば複数インスタンス構成にも対応できます
// （デフォルト実装はプロセスローカルであり、複数インスタンスでは重複同期のリスクがある点に注意）。
type Cache interface {
	Get(key Key) (uuid.UUID, bool)
	Put(key Key, serverSessionID uuid.UUID)
}

type entry struct {
	key             Key
	serverSessionID uuid.UUID
	storedAt        time.Time
}

// MemoryCache は容量上限とTTLを持つプロセス内キャッシュです。
// 退避は「保持期間切れ または 容量超過」のどちらか早い方で行われます。
type MemoryCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[Key]*list.Element
	order    *list.List // 挿入順（先頭が最古）

	now func() time.Time // テスト用に差し替え可能
}

func NewMemoryCache(capacity int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[Key]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

func (c *MemoryCache) Get(key Key) (uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictExpired()

	elem, ok := c.entries[key]
	if !ok {
		return uuid.Nil, false
	}
	return elem.Value.(*entry).serverSessionID, true
}

func (c *MemoryCache) Put(key Key, serverSessionID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictExpired()

	if elem, ok := c.entries[key]; ok {
		// 既存キーは値と保存時刻を更新して末尾へ
		e := elem.Value.(*entry)
		e.serverSessionID = serverSessionID
		e.storedAt = c.now()
		c.order.MoveToBack(elem)
		return
	}

	elem := c.order.PushBack(&entry{
		key:             key,
		serverSessionID: serverSessionID,
		storedAt:        c.now(),
	})
	c.entries[key] = elem

	// 容量超過時は最古のエントリから退避
	for c.capacity > 0 && c.order.Len() > c.capacity {
		c.removeElement(c.order.Front())
	}
}

// Len は現在のエントリ数を返します（期限切れ退避後）。
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictExpired()
	return c.order.Len()
}

// evictExpired は保持期間を過ぎたエントリを先頭（最古）から退避します。
// 呼び出し側でロックを取得していること。
func (c *MemoryCache) evictExpired() {
	if c.ttl <= 0 {
		return
	}
	cutoff := c.now().Add(-c.ttl)
	for elem := c.order.Front(); elem != nil; {
		e := elem.Value.(*entry)
		if e.storedAt.After(cutoff) {
			break // 挿入順なのでこれ以降は全て期限内
		}
		next := elem.Next()
		c.removeElement(elem)
		elem = next
	}
}

func (c *MemoryCache) removeElement(elem *list.Element) {
	e := elem.Value.(*entry)
	delete(c.entries, e.key)
	c.order.Remove(elem)
}
