// Package retention periodically purges terminal jobs and their output
// files once they exceed the configured retention period.
package retention

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/medforge/casgen/internal/artifacts"
	"github.com/medforge/casgen/internal/store"
)

// cleanupInterval is how often the sweep runs. Retention is measured in
// hours, so an hourly sweep keeps purge latency under one interval.
const cleanupInterval = time.Hour

// Manager handles periodic cleanup of expired jobs.
type Manager struct {
	store     store.Store
	artifacts artifacts.Store
	period    time.Duration

	stopCh    chan struct{}
	stoppedCh chan struct{}
	mu        sync.Mutex
	running   bool
}

// NewManager creates a retention manager. period is how long terminal
// jobs and their outputs are kept after finishing.
func NewManager(st store.Store, art artifacts.Store, period time.Duration) *Manager {
	return &Manager{
		store:     st,
		artifacts: art,
		period:    period,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start begins the background cleanup goroutine.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	go m.run()
}

// Stop signals the background goroutine and waits for it to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	close(m.stopCh)
	<-m.stoppedCh
}

func (m *Manager) run() {
	defer close(m.stoppedCh)

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Manager) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-m.period)

	// Collect first, delete after: deleting while paging would shift
	// the offsets under us.
	var expired []string
	offset := 0
	const page = 200
	for {
		jobs, total, err := m.store.ListJobs(ctx, page, offset)
		if err != nil {
			log.Printf("[Retention] Failed to list jobs: %v", err)
			return
		}
		for _, job := range jobs {
			if job.Status.Terminal() && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
				expired = append(expired, job.JobID)
			}
		}
		offset += len(jobs)
		if offset >= total || len(jobs) == 0 {
			break
		}
	}

	deleted := 0
	for _, jobID := range expired {
		if err := m.artifacts.DeleteArtifacts(jobID); err != nil {
			log.Printf("[Retention] Failed to delete artifacts for job %s: %v", jobID, err)
			continue
		}
		if err := m.store.DeleteJob(ctx, jobID); err != nil {
			log.Printf("[Retention] Failed to delete job %s: %v", jobID, err)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		log.Printf("[Retention] Purged %d jobs older than %s", deleted, m.period)
	}
}

// RunCleanupNow triggers an immediate cleanup. Useful for testing.
func (m *Manager) RunCleanupNow() {
	m.cleanup()
}
