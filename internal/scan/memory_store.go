package scan

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu          sync.RWMutex
	assessments []*Assessment
}

// NewMemoryStore creates an in-memory scan audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Record(ctx context.Context, assessment *Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := *assessment
	s.assessments = append(s.assessments, &a)
	return nil
}

func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]*Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.assessments) == 0 {
		return nil, nil
	}

	start := len(s.assessments) - limit
	if start < 0 {
		start = 0
	}

	// Most recent first
	result := make([]*Assessment, 0, len(s.assessments)-start)
	for i := len(s.assessments) - 1; i >= start; i-- {
		a := *s.assessments[i]
		result = append(result, &a)
	}
	return result, nil
}
