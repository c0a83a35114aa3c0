package cache

import (
	"context"
	"sync"
	"time"
)

type ttlEntry struct {
	entry     *Entry
	expiresAt time.Time
}

// TTLMap is an in-memory Store guarded by a RWMutex. Reads never return a
// stale entry; expired entries linger until overwritten, invalidated or
// swept by ClearExpired.
type TTLMap struct {
	mu   sync.RWMutex
	data map[string]*ttlEntry
	now  func() time.Time
}

func NewTTLMap() *TTLMap {
	return &TTLMap{
		data: make(map[string]*ttlEntry),
		now:  time.Now,
	}
}

func (m *TTLMap) Get(_ context.Context, id string) (*Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.data[id]
	if !ok || !m.now().Before(e.expiresAt) {
		return nil, false
	}
	return e.entry, true
}

func (m *TTLMap) Set(_ context.Context, id string, entry *Entry, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[id] = &ttlEntry{
		entry:     entry,
		expiresAt: entry.CapturedAt.Add(ttl),
	}
	return nil
}

// Invalidate removes an entry and reports whether one was present, expired
// or not.
func (m *TTLMap) Invalidate(_ context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.data[id]
	delete(m.data, id)
	return ok
}

// ClearExpired drops entries past their deadline and returns how many were
// removed.
func (m *TTLMap) ClearExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, e := range m.data {
		if !now.Before(e.expiresAt) {
			delete(m.data, id)
			removed++
		}
	}
	return removed
}

func (m *TTLMap) Stats() []EntryStat {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	stats := make([]EntryStat, 0, len(m.data))
	for id, e := range m.data {
		stats = append(stats, EntryStat{
			ID:      id,
			AgeMS:   now.Sub(e.entry.CapturedAt).Milliseconds(),
			Expired: !now.Before(e.expiresAt),
			Exists:  e.entry.Exists,
		})
	}
	return stats
}

func (m *TTLMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Sweep runs ClearExpired every interval until ctx is done.
func (m *TTLMap) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ClearExpired()
		}
	}
}
