package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	values  map[string]string
	expires time.Time
}

// Memory is a process-local Store. Sessions expire ttl after their last write.
type Memory struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*memoryEntry
}

var _ Store = (*Memory)(nil)

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*memoryEntry),
	}
}

func (m *Memory) entry(sid string) *memoryEntry {
	e, ok := m.sessions[sid]
	if !ok {
		return nil
	}
	if m.now().After(e.expires) {
		delete(m.sessions, sid)
		return nil
	}
	return e
}

func (m *Memory) Get(ctx context.Context, sid, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entry(sid)
	if e == nil {
		return "", false, nil
	}
	value, ok := e.values[key]
	return value, ok, nil
}

func (m *Memory) Set(ctx context.Context, sid, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entry(sid)
	if e == nil {
		e = &memoryEntry{values: make(map[string]string)}
		m.sessions[sid] = e
	}
	e.values[key] = value
	e.expires = m.now().Add(m.ttl)
	return nil
}

func (m *Memory) Remove(ctx context.Context, sid string, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entry(sid)
	if e == nil {
		return nil
	}
	for _, key := range keys {
		delete(e.values, key)
	}
	if len(e.values) == 0 {
		delete(m.sessions, sid)
	}
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for sid, e := range m.sessions {
		if now.After(e.expires) {
			delete(m.sessions, sid)
			n++
		}
	}
	return n
}

// RunJanitor sweeps expired sessions every interval until ctx is done.
func (m *Memory) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
