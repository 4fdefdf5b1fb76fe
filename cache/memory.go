package cache

import (
	"container/list"
	"sync"
)

// Memory is an in-memory Cache with least-recently-used eviction.
type Memory struct {
	mu       sync.Mutex
	maxBytes int64
	size     int64
	order    *list.List // front = most recently used
	items    map[string]*list.Element
}

type memoryItem struct {
	key     string
	content []byte
}

// NewMemory creates a Memory cache holding at most maxBytes of content.
// A limit of 0 means unlimited.
func NewMemory(maxBytes int64) *Memory {
	return &Memory{
		maxBytes: maxBytes,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Get retrieves content by key and marks it recently used.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		return nil, false
	}
	m.order.MoveToFront(el)
	return el.Value.(*memoryItem).content, true
}

// Put stores content under key, evicting least-recently-used entries to
// stay within the byte limit. Content larger than the whole limit is not
// cached.
func (m *Memory) Put(key string, content []byte) {
	if m.maxBytes > 0 && int64(len(content)) > m.maxBytes {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[key]; ok {
		item := el.Value.(*memoryItem)
		m.size += int64(len(content)) - int64(len(item.content))
		item.content = content
		m.order.MoveToFront(el)
	} else {
		m.items[key] = m.order.PushFront(&memoryItem{key: key, content: content})
		m.size += int64(len(content))
	}

	if m.maxBytes > 0 {
		for m.size > m.maxBytes {
			m.evictOldest()
		}
	}
}

// Delete removes cached content for the key.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[key]; ok {
		m.remove(el)
	}
}

// SizeBytes returns the current cache size in bytes.
func (m *Memory) SizeBytes() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size
}

// Len returns the number of cached entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Memory) evictOldest() {
	el := m.order.Back()
	if el == nil {
		return
	}
	m.remove(el)
}

func (m *Memory) remove(el *list.Element) {
	item := el.Value.(*memoryItem)
	m.order.Remove(el)
	delete(m.items, item.key)
	m.size -= int64(len(item.content))
}
