package history

import (
	"context"
	"sort"
	"sync"
	"time"

	xerrors "github.com/souzavinny/rootagotchi/internal/errors"
)

// MemoryStore keeps records in memory. It is the default backend and the
// one tests use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*WriteRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*WriteRecord)}
}

// Create implements Store.
func (m *MemoryStore) Create(_ context.Context, record *WriteRecord) error {
	if record == nil || record.ID == "" {
		return xerrors.New(xerrors.CodeStorageFailure, "record id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[record.ID]; ok {
		return ErrConflict
	}
	clone := *record
	if clone.Status == "" {
		clone.Status = StatusPending
	}
	if clone.SubmittedAt == 0 {
		clone.SubmittedAt = time.Now().Unix()
	}
	m.records[record.ID] = &clone
	return nil
}

// MarkResolved implements Store.
func (m *MemoryStore) MarkResolved(_ context.Context, id, outcome, txHash string, attempts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	record.Status = StatusResolved
	record.Outcome = outcome
	record.TxHash = txHash
	record.Attempts = attempts
	record.CompletedAt = time.Now().Unix()
	return nil
}

// MarkFailed implements Store.
func (m *MemoryStore) MarkFailed(_ context.Context, id, errorCode, txHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	record.Status = StatusFailed
	record.ErrorCode = errorCode
	record.TxHash = txHash
	record.CompletedAt = time.Now().Unix()
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id string) (*WriteRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *record
	return &clone, nil
}

// List implements Store, newest first.
func (m *MemoryStore) List(_ context.Context, limit int) ([]*WriteRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*WriteRecord, 0, len(m.records))
	for _, record := range m.records {
		clone := *record
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt != out[j].SubmittedAt {
			return out[i].SubmittedAt > out[j].SubmittedAt
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	return nil
}
