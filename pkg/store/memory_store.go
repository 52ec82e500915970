package store

import (
	"context"
	"sort"
	"sync"

	"contactdesk/pkg/domain"
)

// MemoryStore keeps contact messages in-process (tests and local runs).
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string]domain.ContactMessage
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make(map[string]domain.ContactMessage)}
}

func (m *MemoryStore) SaveContactMessage(_ context.Context, msg domain.ContactMessage) error {
	if err := validateMessage(msg); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.messages[msg.ID]; !exists {
		m.messages[msg.ID] = msg
	}
	return nil
}

func (m *MemoryStore) GetContactMessage(_ context.Context, id string) (domain.ContactMessage, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msg, ok := m.messages[id]
	return msg, ok, nil
}

func (m *MemoryStore) ListContactMessages(_ context.Context, limit int) ([]domain.ContactMessage, error) {
	m.mu.RLock()
	out := make([]domain.ContactMessage, 0, len(m.messages))
	for _, msg := range m.messages {
		out = append(out, msg)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
