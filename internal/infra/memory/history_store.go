package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"solo-quiz-service/internal/domain"
)

// HistoryStore is an in-memory implementation of app.HistoryStore, used by
// tests and embedded setups that do not need results to survive a restart.
type HistoryStore struct {
	mu      sync.RWMutex
	entries []domain.HistoryEntry
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

func (s *HistoryStore) Append(_ context.Context, entry domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = uuid.NewString()
	attempts := make([]domain.AttemptRecord, len(entry.Attempts))
	copy(attempts, entry.Attempts)
	entry.Attempts = attempts
	s.entries = append(s.entries, entry)
	return nil
}

// Recent returns entries newest first. A non-positive limit returns all.
func (s *HistoryStore) Recent(_ context.Context, limit int) ([]domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.HistoryEntry, 0, n)
	for i := len(s.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}
