package store

import (
	"context"
	"sync"

	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/form"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/scoring"
)

// memoryStore backs tests and single-process deployments.
type memoryStore struct {
	mu        sync.RWMutex
	forms     map[string]form.Definition
	responses map[string]scoring.ScoredResponse
	// insertion order per form, so listings are stable
	byForm map[string][]string
}

func NewInMemory() Store {
	return &memoryStore{
		forms:     map[string]form.Definition{},
		responses: map[string]scoring.ScoredResponse{},
		byForm:    map[string][]string{},
	}
}

func (m *memoryStore) PutForm(_ context.Context, d *form.Definition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forms[d.ID] = *d
	return nil
}

func (m *memoryStore) GetForm(_ context.Context, id string) (*form.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.forms[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := d
	return &cp, nil
}

func (m *memoryStore) InsertResponse(_ context.Context, r scoring.ScoredResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.responses[r.ID]; exists {
		return nil // responses are immutable once created
	}
	m.responses[r.ID] = r
	m.byForm[r.FormID] = append(m.byForm[r.FormID], r.ID)
	return nil
}

func (m *memoryStore) GetResponse(_ context.Context, id string) (scoring.ScoredResponse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.responses[id]
	if !ok {
		return scoring.ScoredResponse{}, ErrNotFound
	}
	return r, nil
}

func (m *memoryStore) ListResponsesByForm(_ context.Context, formID string) ([]scoring.ScoredResponse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byForm[formID]
	out := make([]scoring.ScoredResponse, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.responses[id])
	}
	return out, nil
}

func (m *memoryStore) ListResponsesByRespondent(_ context.Context, respondentID string) ([]scoring.ScoredResponse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]scoring.ScoredResponse, 0, 4)
	for _, r := range m.responses {
		if r.RespondentID == respondentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryStore) BumpResponseCount(_ context.Context, formID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.forms[formID]
	if !ok {
		return ErrNotFound
	}
	d.ResponseCount++
	m.forms[formID] = d
	return nil
}
