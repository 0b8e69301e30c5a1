package util

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// CacheConfig 用于配置LRU缓存的行为。
type CacheConfig struct {
	// Capacity 是缓存的最大元素数量。如果为0，则不限制数量。
	Capacity int
	// MaxWeight 是缓存中所有元素的最大权重总和。如果为0，则不限制权重。
	MaxWeight int
	// TTL 是元素的存活时间。如果为0，则元素永不过期。
	TTL time.Duration
	// Now 用于测试时替换时钟，默认 time.Now。
	Now func() time.Time
}

type entry[K comparable, V any] struct {
	key      K
	value    V
	weight   int
	expireAt time.Time
}

// LRUCache 是一个泛型、线程安全、支持TTL和权重的LRU缓存。
type LRUCache[K comparable, V any] struct {
	cfg    CacheConfig
	ll     *list.List
	items  map[K]*list.Element
	weight int
	mu     sync.Mutex
}

// NewWithConfig 使用指定的配置创建一个LRU缓存实例。
func NewWithConfig[K comparable, V any](cfg CacheConfig) (*LRUCache[K, V], error) {
	if cfg.Capacity <= 0 && cfg.MaxWeight <= 0 {
		return nil, fmt.Errorf("必须设置 Capacity 或 MaxWeight 中的至少一个")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &LRUCache[K, V]{
		cfg:   cfg,
		ll:    list.New(),
		items: make(map[K]*list.Element),
	}, nil
}

// Get 根据键获取一个值，命中时标记为最近使用。过期的元素会被顺带删除。
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.lookup(key)
	if !ok {
		var zero V
		return zero, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*entry[K, V]).value, true
}

// Contains 判断键是否存在且未过期，不改变使用顺序。
func (c *LRUCache[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.lookup(key)
	return ok
}

// Put 添加或更新一个键值对。容量模式下 weight 传 1 即可。
func (c *LRUCache[K, V]) Put(key K, value V, weight int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(key, value, weight)
}

// PutIfAbsent 仅在键不存在（或已过期）时写入，返回是否写入成功。
// 检查与写入在同一把锁内完成。
func (c *LRUCache[K, V]) PutIfAbsent(key K, value V, weight int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.lookup(key); ok {
		return false
	}
	c.put(key, value, weight)
	return true
}

// GetOrCreate 返回已有的值，不存在时用 create 创建并写入。
func (c *LRUCache[K, V]) GetOrCreate(key K, create func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.lookup(key); ok {
		c.ll.MoveToFront(el)
		return el.Value.(*entry[K, V]).value
	}
	v := create()
	c.put(key, v, 1)
	return v
}

// Remove 删除一个键，返回它是否存在。
func (c *LRUCache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeElement(el)
	return true
}

// Len 返回当前缓存中的条目数量（可能包含尚未被清理的过期条目）。
func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Weight 返回当前缓存中所有元素的总权重。
func (c *LRUCache[K, V]) Weight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weight
}

// lookup 找到未过期的元素。调用方持有锁。
func (c *LRUCache[K, V]) lookup(key K) (*list.Element, bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry[K, V])
	if c.cfg.TTL > 0 && !c.cfg.Now().Before(e.expireAt) {
		c.removeElement(el)
		return nil, false
	}
	return el, true
}

// put 调用方持有锁。
func (c *LRUCache[K, V]) put(key K, value V, weight int) {
	var expireAt time.Time
	if c.cfg.TTL > 0 {
		expireAt = c.cfg.Now().Add(c.cfg.TTL)
	}

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		c.weight += weight - e.weight
		e.value, e.weight, e.expireAt = value, weight, expireAt
		c.ll.MoveToFront(el)
	} else {
		c.items[key] = c.ll.PushFront(&entry[K, V]{key: key, value: value, weight: weight, expireAt: expireAt})
		c.weight += weight
	}

	// 一个大元素可能需要淘汰多个旧元素
	for c.overLimit() {
		back := c.ll.Back()
		if back == nil {
			break
		}
		c.removeElement(back)
	}
}

func (c *LRUCache[K, V]) overLimit() bool {
	if c.cfg.Capacity > 0 && c.ll.Len() > c.cfg.Capacity {
		return true
	}
	return c.cfg.MaxWeight > 0 && c.weight > c.cfg.MaxWeight
}

func (c *LRUCache[K, V]) removeElement(el *list.Element) {
	c.ll.Remove(el)
	e := el.Value.(*entry[K, V])
	delete(c.items, e.key)
	c.weight -= e.weight
}
