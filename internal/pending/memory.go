package pending

import (
	"context"
	"sync"

	"github.com/fyrsmithlabs/standupd/internal/standup"
)

// Memory is an in-process Store. Records are lost on restart.
type Memory struct {
	mu      sync.Mutex
	records map[string]standup.PendingUpdate
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]standup.PendingUpdate)}
}

func (m *Memory) Put(_ context.Context, key string, rec standup.PendingUpdate) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[key]; ok {
		return ErrExists
	}
	m.records[key] = rec
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (standup.PendingUpdate, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	return rec, ok, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

func (m *Memory) Take(_ context.Context, key string) (standup.PendingUpdate, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if ok {
		delete(m.records, key)
	}
	return rec, ok, nil
}

func (m *Memory) List(context.Context) (map[string]standup.PendingUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]standup.PendingUpdate, len(m.records))
	for k, v := range m.records {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
