package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process RecordStore. Records are lost on restart.
type Memory struct {
	mu        sync.RWMutex
	resources map[string]map[string]json.RawMessage
}

func NewMemory() *Memory {
	return &Memory{
		resources: make(map[string]map[string]json.RawMessage),
	}
}

func (m *Memory) Get(_ context.Context, resource, id string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.resources[resource][id]
	if !ok {
		return nil, ErrNotFound
	}
	return append(json.RawMessage(nil), data...), nil
}

func (m *Memory) List(_ context.Context, resource string) (map[string]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]json.RawMessage, len(m.resources[resource]))
	for id, data := range m.resources[resource] {
		out[id] = append(json.RawMessage(nil), data...)
	}
	return out, nil
}

func (m *Memory) Create(ctx context.Context, resource string, record any) (string, error) {
	id := uuid.NewString()
	return id, m.Put(ctx, resource, id, record)
}

// Put stores record under a caller-chosen id, replacing any previous value.
func (m *Memory) Put(_ context.Context, resource, id string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", resource, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resources[resource] == nil {
		m.resources[resource] = make(map[string]json.RawMessage)
	}
	m.resources[resource][id] = data
	return nil
}

func (m *Memory) Patch(_ context.Context, resource, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.resources[resource][id]
	if !ok {
		return ErrNotFound
	}
	merged, err := mergeJSON(current, fields)
	if err != nil {
		return fmt.Errorf("patch %s/%s: %w", resource, id, err)
	}
	m.resources[resource][id] = merged
	return nil
}

func (m *Memory) Delete(_ context.Context, resource, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.resources[resource], id)
	return nil
}

func (m *Memory) Close() error { return nil }
