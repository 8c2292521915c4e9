// internal/store/memory.go
package store

import (
	"context"
	"sync"
)

// MemorySlot keeps the collection in process memory.
type MemorySlot struct {
	mu   sync.RWMutex
	data []byte
	set  bool
}

func NewMemorySlot() *MemorySlot {
	return &MemorySlot{}
}

// NewMemorySlotWith returns a slot pre-loaded with raw content.
func NewMemorySlotWith(data []byte) *MemorySlot {
	return &MemorySlot{data: append([]byte(nil), data...), set: true}
}

func (m *MemorySlot) Load(_ context.Context) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.set {
		return nil, false, nil
	}
	return append([]byte(nil), m.data...), true, nil
}

func (m *MemorySlot) Store(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	m.set = true
	return nil
}

func (m *MemorySlot) Backend() string { return "memory" }
