package store

import (
	"context"
	"sort"
	"sync"

	"shiftd/internal/automation"
)

// Memory is the in-process store. A single mutex serializes writes, which is
// what makes quota and name-uniqueness checks race-free.
type Memory struct {
	mu   sync.RWMutex
	recs map[string]automation.Record
	runs map[string][]automation.RunRecord
}

func NewMemory() *Memory {
	return &Memory{
		recs: map[string]automation.Record{},
		runs: map[string][]automation.RunRecord{},
	}
}

func (m *Memory) Create(_ context.Context, rec automation.Record, maxPerOwner int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	owned := 0
	for _, r := range m.recs {
		if r.OwnerID != rec.OwnerID {
			continue
		}
		owned++
		if r.Spec.Name == rec.Spec.Name {
			return ErrNameTaken
		}
	}
	if maxPerOwner > 0 && owned >= maxPerOwner {
		return ErrQuotaExceeded
	}
	m.recs[rec.ID] = rec
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (automation.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recs[id]
	if !ok {
		return automation.Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *Memory) ListByOwner(_ context.Context, ownerID string) ([]automation.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []automation.Record
	for _, r := range m.recs {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	sortRecords(out)
	return out, nil
}

func (m *Memory) ListScheduled(_ context.Context) ([]automation.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []automation.Record
	for _, r := range m.recs {
		if r.Scheduled() {
			out = append(out, r)
		}
	}
	sortRecords(out)
	return out, nil
}

func (m *Memory) Update(_ context.Context, rec automation.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[rec.ID]; !ok {
		return ErrNotFound
	}
	m.recs[rec.ID] = rec
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[id]; !ok {
		return ErrNotFound
	}
	delete(m.recs, id)
	delete(m.runs, id)
	return nil
}

func (m *Memory) AppendRun(_ context.Context, run automation.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.AutomationID] = append(m.runs[run.AutomationID], run)
	return nil
}

func (m *Memory) History(_ context.Context, automationID string, limit int) ([]automation.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.runs[automationID]
	// Newest first.
	out := make([]automation.RunRecord, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }

// sortRecords fixes the listing order: oldest first, ties broken by id.
func sortRecords(recs []automation.Record) {
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
