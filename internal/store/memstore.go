package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store for tests and ledger-less runs.
type MemStore struct {
	mu       sync.Mutex
	runs     map[string]*Run
	runOrder []string
	cases    map[string][]*Case
	nextCase int64
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		runs:  make(map[string]*Run),
		cases: make(map[string][]*Case),
	}
}

func (s *MemStore) CreateRun(r *Run) (string, error) {
	if r == nil {
		return "", errors.New("run is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if _, dup := s.runs[cp.ID]; dup {
		return "", fmt.Errorf("insert run: duplicate id %s", cp.ID)
	}
	if cp.Status == "" {
		cp.Status = StatusRunning
	}
	if cp.StartedAt == "" {
		cp.StartedAt = nowUTC()
	}
	s.runs[cp.ID] = &cp
	s.runOrder = append(s.runOrder, cp.ID)
	return cp.ID, nil
}

func (s *MemStore) FinishRun(id, status string, c Counts) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("finish run: run %s not found", id)
	}
	r.Status = status
	r.FinishedAt = nowUTC()
	r.Counts = c
	return nil
}

func (s *MemStore) GetRun(id string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *MemStore) ListRuns(limit int) ([]*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Run
	for i := len(s.runOrder) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		cp := *s.runs[s.runOrder[i]]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemStore) AddCase(c *Case) (int64, error) {
	if c == nil {
		return 0, errors.New("case is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[c.RunID]; !ok {
		return 0, fmt.Errorf("insert case: run %s not found", c.RunID)
	}
	s.nextCase++
	cp := *c
	cp.ID = s.nextCase
	if cp.CreatedAt == "" {
		cp.CreatedAt = nowUTC()
	}
	s.cases[c.RunID] = append(s.cases[c.RunID], &cp)
	return cp.ID, nil
}

func (s *MemStore) ListCases(runID string) ([]*Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Case, 0, len(s.cases[runID]))
	for _, c := range s.cases[runID] {
		cp := *c
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *MemStore) Close() error { return nil }
