package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	data      Data
	expiresAt time.Time
}

// MemoryStore keeps sessions in process. Used when Redis is not configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Data, error) {
	m.mu.RLock()
	entry, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if m.now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, id)
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	return cloneData(entry.data), nil
}

func (m *MemoryStore) Save(_ context.Context, id string, data *Data, ttl time.Duration) error {
	m.mu.Lock()
	m.entries[id] = memoryEntry{data: *cloneData(*data), expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}

func cloneData(d Data) *Data {
	out := Data{UserID: d.UserID}
	if d.Cart != nil {
		out.Cart = make(map[string]int, len(d.Cart))
		for k, v := range d.Cart {
			out.Cart[k] = v
		}
	}
	if len(d.Flashes) > 0 {
		out.Flashes = append([]Flash(nil), d.Flashes...)
	}
	return &out
}
