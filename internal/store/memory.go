package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/usamaalam01/LabReportAI/pkg/models"
)

// Memory is a mutex-guarded in-memory Store. It backs tests and local
// single-process runs where Postgres is not available.
type Memory struct {
	mu      sync.RWMutex
	byID    map[string]*models.Report
	byJobID map[string]*models.Report
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		byID:    make(map[string]*models.Report),
		byJobID: make(map[string]*models.Report),
	}
}

func (m *Memory) Create(_ context.Context, r *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byJobID[r.JobID]; exists {
		return ErrDuplicate
	}
	cp := *r
	m.byID[r.ID] = &cp
	m.byJobID[r.JobID] = &cp
	return nil
}

func (m *Memory) GetByJobID(_ context.Context, jobID string) (*models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, exists := m.byJobID[jobID]
	if !exists {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *Memory) Update(_ context.Context, r *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, exists := m.byID[r.ID]
	if !exists {
		return ErrNotFound
	}
	r.UpdatedAt = time.Now().UTC()
	*stored = *r
	return nil
}

func (m *Memory) ListExpired(_ context.Context, now time.Time) ([]*models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var expired []*models.Report
	for _, r := range m.byID {
		if r.Expired(now) {
			cp := *r
			expired = append(expired, &cp)
		}
	}
	return expired, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, exists := m.byID[id]
	if !exists {
		return ErrNotFound
	}
	delete(m.byJobID, r.JobID)
	delete(m.byID, id)
	return nil
}

func (m *Memory) NextPending(_ context.Context) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pending []*models.Report
	for _, r := range m.byID {
		if r.Status == models.StatusPending {
			pending = append(pending, r)
		}
	}
	if len(pending) == 0 {
		return nil, ErrNotFound
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	claimed := pending[0]
	claimed.Status = models.StatusProcessing
	claimed.UpdatedAt = time.Now().UTC()
	cp := *claimed
	return &cp, nil
}
