// Package store persists job records. The engine always writes through
// the Store interface; deployments choose memory or Postgres.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/medforge/casgen/internal/types"
)

// ErrNotFound is returned when a job ID does not exist.
var ErrNotFound = errors.New("job not found")

// Store persists job records.
type Store interface {
	// CreateJob inserts a new job record.
	CreateJob(ctx context.Context, job *types.Job) error

	// UpdateJob replaces the stored record for job.JobID.
	UpdateJob(ctx context.Context, job *types.Job) error

	// GetJob returns the record for a job ID, or ErrNotFound.
	GetJob(ctx context.Context, jobID string) (*types.Job, error)

	// ListJobs returns jobs ordered by creation time descending.
	ListJobs(ctx context.Context, limit, offset int) ([]*types.Job, int, error)

	// DeleteJob removes a job record. Missing jobs are a no-op.
	DeleteJob(ctx context.Context, jobID string) error
}

// MemoryStore is the default in-process store.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*types.Job
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*types.Job)}
}

func (m *MemoryStore) CreateJob(_ context.Context, job *types.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.JobID] = cloneJob(job)
	return nil
}

func (m *MemoryStore) UpdateJob(_ context.Context, job *types.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.JobID]; !ok {
		return ErrNotFound
	}
	m.jobs[job.JobID] = cloneJob(job)
	return nil
}

func (m *MemoryStore) GetJob(_ context.Context, jobID string) (*types.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJob(job), nil
}

func (m *MemoryStore) ListJobs(_ context.Context, limit, offset int) ([]*types.Job, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*types.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		all = append(all, job)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].JobID > all[j].JobID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if offset >= total {
		return []*types.Job{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	page := make([]*types.Job, 0, end-offset)
	for _, job := range all[offset:end] {
		page = append(page, cloneJob(job))
	}
	return page, total, nil
}

func (m *MemoryStore) DeleteJob(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, jobID)
	return nil
}

// cloneJob keeps callers from mutating stored records through shared
// pointers.
func cloneJob(job *types.Job) *types.Job {
	c := *job
	if job.StartedAt != nil {
		t := *job.StartedAt
		c.StartedAt = &t
	}
	if job.FinishedAt != nil {
		t := *job.FinishedAt
		c.FinishedAt = &t
	}
	if job.Summary != nil {
		s := *job.Summary
		c.Summary = &s
	}
	if job.OutputPaths != nil {
		c.OutputPaths = append([]string(nil), job.OutputPaths...)
	}
	return &c
}
