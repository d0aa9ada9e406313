// Package engine owns the generation job lifecycle: creation, the
// concurrent generation pipeline, cancellation, and terminal-state
// bookkeeping.
package engine

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/medforge/casgen/internal/artifacts"
	"github.com/medforge/casgen/internal/catalog"
	"github.com/medforge/casgen/internal/config"
	"github.com/medforge/casgen/internal/events"
	"github.com/medforge/casgen/internal/metrics"
	"github.com/medforge/casgen/internal/scenario"
	"github.com/medforge/casgen/internal/store"
	"github.com/medforge/casgen/internal/types"
	"github.com/medforge/casgen/internal/validation"
)

// maxWorkers caps the worker pool; the pipeline is serializer-bound
// beyond this.
const maxWorkers = 8

// cancelGrace is how long a cancelled run waits for workers to drain
// before abandoning the join.
const cancelGrace = 2 * time.Second

// runHandle tracks one in-flight generation goroutine.
type runHandle struct {
	cancel        context.CancelFunc
	done          chan struct{}
	userCancelled atomic.Bool
}

// Manager is the job engine. One instance serves the whole process.
type Manager struct {
	mu      sync.Mutex
	running map[string]*runHandle

	store     store.Store
	artifacts artifacts.Store
	catalog   *catalog.Catalog
	metrics   *metrics.Metrics
	cfg       *config.Config

	workers int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates the engine. The worker count defaults to the
// logical core count, capped at maxWorkers.
func NewManager(st store.Store, art artifacts.Store, cat *catalog.Catalog, m *metrics.Metrics, cfg *config.Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		running:   make(map[string]*runHandle),
		store:     st,
		artifacts: art,
		catalog:   cat,
		metrics:   m,
		cfg:       cfg,
		workers:   defaultWorkers(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SetWorkers overrides the worker count. Used in tests to pin
// parallelism.
func (mgr *Manager) SetWorkers(n int) {
	if n > 0 {
		mgr.workers = n
	}
}

// Workers returns the configured worker count.
func (mgr *Manager) Workers() int {
	return mgr.workers
}

func defaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		n = runtime.NumCPU()
	}
	if n > maxWorkers {
		n = maxWorkers
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Shutdown cancels all running jobs and waits for their goroutines.
func (mgr *Manager) Shutdown() {
	mgr.cancel()
	mgr.wg.Wait()
}

// CreateJob validates and resolves the submitted configuration, persists
// the PENDING record, and starts the run goroutine. Validation failures
// return the report without creating a job.
func (mgr *Manager) CreateJob(ctx context.Context, rawConfig json.RawMessage) (*types.Job, *validation.Report, error) {
	var cfg scenario.Config
	if err := json.Unmarshal(rawConfig, &cfg); err != nil {
		report := validation.NewReport()
		report.AddError(validation.CodeInvalidFormat, fmt.Sprintf("configuration is not valid JSON: %v", err), "")
		return nil, report, nil
	}

	resolved, report := scenario.Resolve(cfg, mgr.catalog, mgr.cfg.MaxPatientsPerJob)
	if report.HasErrors() {
		return nil, report, nil
	}

	seed := resolved.Seed
	if !resolved.HasSeed {
		seed = drawSeed()
		resolved.Seed = seed
		resolved.HasSeed = true
	}

	now := time.Now().UTC()
	job := &types.Job{
		JobID:     uuid.NewString(),
		Status:    types.JobPending,
		CreatedAt: now,
		Config:    append(json.RawMessage(nil), rawConfig...),
		Seed:      seed,
	}
	if err := mgr.store.CreateJob(ctx, job); err != nil {
		return nil, nil, fmt.Errorf("failed to persist job: %w", err)
	}

	mgr.metrics.JobsCreated.Inc()
	events.NewEventLogger(job.JobID).LogJobCreated(resolved.TotalPatients, resolved.Days, seed)

	runCtx, cancel := context.WithCancel(mgr.ctx)
	handle := &runHandle{cancel: cancel, done: make(chan struct{})}

	mgr.mu.Lock()
	mgr.running[job.JobID] = handle
	mgr.mu.Unlock()

	mgr.wg.Add(1)
	go func() {
		defer mgr.wg.Done()
		defer close(handle.done)
		defer func() {
			mgr.mu.Lock()
			delete(mgr.running, job.JobID)
			mgr.mu.Unlock()
		}()
		mgr.run(runCtx, handle, job.JobID, resolved)
	}()

	return job, nil, nil
}

// Cancel requests cancellation of a job. PENDING and RUNNING jobs are
// cancelled; terminal jobs return false.
func (mgr *Manager) Cancel(ctx context.Context, jobID string) (bool, error) {
	mgr.mu.Lock()
	handle, active := mgr.running[jobID]
	mgr.mu.Unlock()

	if active {
		handle.userCancelled.Store(true)
		handle.cancel()
		// Give the run a short window to drain and persist CANCELLED so
		// the caller usually observes the terminal state immediately.
		select {
		case <-handle.done:
		case <-time.After(cancelGrace):
		}
		return true, nil
	}

	// No live goroutine: either terminal, or orphaned by a restart.
	job, err := mgr.store.GetJob(ctx, jobID)
	if err != nil {
		return false, err
	}
	if job.Status.Terminal() {
		return false, nil
	}
	if !CanTransition(job.Status, types.JobCancelled) {
		return false, nil
	}
	now := time.Now().UTC()
	job.Status = types.JobCancelled
	job.FinishedAt = &now
	job.ErrorKind = types.ErrKindCancelled
	if err := mgr.store.UpdateJob(ctx, job); err != nil {
		return false, err
	}
	return true, nil
}

// EstimateDuration is the rough wall-time guess returned at creation,
// scaled from a measured per-patient cost.
func EstimateDuration(totalPatients int) int {
	const patientsPerSecond = 5000
	sec := totalPatients/patientsPerSecond + 1
	return sec
}

func drawSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return time.Now().UnixNano()
	}
	v := int64(binary.BigEndian.Uint64(buf[:]) >> 1)
	return v
}
