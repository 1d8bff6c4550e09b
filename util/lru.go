package util

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

/*
LRU is a weighted least-recently-used cache. Each entry carries a cost computed
by a caller-supplied weigher, and entries are evicted from the tail until the
total cost fits within the capacity. The table manager uses it to bound the
number of decoded rows held in memory.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrValueTooLarge is returned when a single value exceeds the cache capacity.
var ErrValueTooLarge = errors.New("value is too large")

// LRU is a weighted LRU cache.
type LRU[K comparable, V any] struct {
	cache      map[K]*listNode[K, V]
	head, tail *listNode[K, V]
	weigh      func(V) int64
	cost       int64
	cap        int64
	mtx        *sync.Mutex
}

type listNode[K comparable, V any] struct {
	key        K
	value      V
	cost       int64
	prev, next *listNode[K, V]
}

// NewLRU returns a new LRU cache with the given capacity. If weigh is nil,
// every entry costs one unit.
func NewLRU[K comparable, V any](capacity int64, weigh func(V) int64) *LRU[K, V] {
	head, tail := &listNode[K, V]{}, &listNode[K, V]{}
	head.next = tail
	tail.prev = head
	if weigh == nil {
		weigh = func(V) int64 { return 1 }
	}
	return &LRU[K, V]{
		cache: make(map[K]*listNode[K, V]),
		head:  head,
		tail:  tail,
		weigh: weigh,
		cap:   capacity,
		mtx:   &sync.Mutex{},
	}
}

// Reset clears the cache.
func (lru *LRU[K, V]) Reset() {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	lru.cache = make(map[K]*listNode[K, V])
	lru.head.next = lru.tail
	lru.tail.prev = lru.head
	lru.cost = 0
}

func (lru *LRU[K, V]) addToFront(node *listNode[K, V]) {
	node.next = lru.head.next
	node.prev = lru.head
	lru.head.next.prev = node
	lru.head.next = node
}

func (lru *LRU[K, V]) removeNode(node *listNode[K, V]) {
	node.prev.next = node.next
	node.next.prev = node.prev
}

// Put adds or replaces a value. Values whose cost exceeds the capacity are
// rejected with ErrValueTooLarge.
func (lru *LRU[K, V]) Put(key K, value V) error {
	cost := lru.weigh(value)
	if cost > lru.cap {
		return ErrValueTooLarge
	}
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	if node, exists := lru.cache[key]; exists {
		lru.cost -= node.cost
		lru.removeNode(node)
		delete(lru.cache, key)
	}
	node := &listNode[K, V]{key: key, value: value, cost: cost}
	lru.cache[key] = node
	lru.addToFront(node)
	lru.cost += cost
	for lru.cost > lru.cap {
		lru.evict()
	}
	return nil
}

// Get returns the value associated with the given key. The second return value
// is true if the key exists in the cache.
func (lru *LRU[K, V]) Get(key K) (V, bool) {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	if node, exists := lru.cache[key]; exists {
		lru.removeNode(node)
		lru.addToFront(node)
		return node.value, true
	}
	var v V
	return v, false
}

// Delete removes a key from the cache, if present.
func (lru *LRU[K, V]) Delete(key K) {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	if node, exists := lru.cache[key]; exists {
		lru.cost -= node.cost
		lru.removeNode(node)
		delete(lru.cache, key)
	}
}

func (lru *LRU[K, V]) evict() {
	last := lru.tail.prev
	if last == lru.head {
		return
	}
	lru.cost -= last.cost
	delete(lru.cache, last.key)
	lru.removeNode(last)
}

// String returns a string representation of the cache.
func (lru *LRU[K, V]) String() string {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	sb := &strings.Builder{}
	sb.WriteString(fmt.Sprintf("(%d/%d) [", lru.cost, lru.cap))
	for node := lru.head.next; node != lru.tail; node = node.next {
		sb.WriteString(fmt.Sprintf("%v:%v", node.key, node.value))
		if node.next != lru.tail {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
