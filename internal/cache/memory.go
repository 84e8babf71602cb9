// Package cache provides an in-memory LRU used for fetched chapter text
// and search pages, so re-reading a chapter does not re-hit the source.
package cache

import (
	"container/list"
	"errors"
	"sync"
)

// ErrItemTooLarge is returned when a value alone exceeds the capacity.
var ErrItemTooLarge = errors.New("item exceeds cache capacity")

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits    int64
	Misses  int64
	Size    int64
	Entries int
}

// Memory is a byte-bounded LRU cache. Safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	capacity int64
	size     int64
	items    map[string]*list.Element
	eviction *list.List

	hits   int64
	misses int64
}

type entry struct {
	key   string
	value []byte
}

// NewMemory creates a cache bounded to capacity bytes.
func NewMemory(capacity int64) *Memory {
	return &Memory{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
	}
}

// Get returns the cached value and marks it recently used.
func (c *Memory) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.eviction.MoveToFront(elem)
	c.hits++
	return elem.Value.(*entry).value, true
}

// Put stores a value, evicting least recently used entries to fit.
func (c *Memory) Put(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := int64(len(value))
	if size > c.capacity {
		return ErrItemTooLarge
	}

	if elem, ok := c.items[key]; ok {
		old := elem.Value.(*entry)
		c.size += size - int64(len(old.value))
		old.value = value
		c.eviction.MoveToFront(elem)
	} else {
		c.items[key] = c.eviction.PushFront(&entry{key: key, value: value})
		c.size += size
	}

	for c.size > c.capacity && c.eviction.Len() > 0 {
		c.evictOldest()
	}
	return nil
}

// Delete removes one entry.
func (c *Memory) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
}

// Clear drops every entry.
func (c *Memory) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.eviction.Init()
	c.size = 0
}

// Stats returns a snapshot of the counters.
func (c *Memory) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:    c.hits,
		Misses:  c.misses,
		Size:    c.size,
		Entries: len(c.items),
	}
}

func (c *Memory) evictOldest() {
	if elem := c.eviction.Back(); elem != nil {
		c.remove(elem)
	}
}

func (c *Memory) remove(elem *list.Element) {
	e := elem.Value.(*entry)
	delete(c.items, e.key)
	c.eviction.Remove(elem)
	c.size -= int64(len(e.value))
}
