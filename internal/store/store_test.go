package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/medforge/casgen/internal/types"
)

func job(id string, created time.Time) *types.Job {
	return &types.Job{
		JobID:     id,
		Status:    types.JobPending,
		CreatedAt: created,
		Seed:      42,
	}
}

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	now := time.Now().UTC()

	if err := m.CreateJob(ctx, job("a", now)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := m.GetJob(ctx, "a")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.JobID != "a" || got.Status != types.JobPending {
		t.Errorf("unexpected job: %+v", got)
	}

	got.Status = types.JobRunning
	if err := m.UpdateJob(ctx, got); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	updated, _ := m.GetJob(ctx, "a")
	if updated.Status != types.JobRunning {
		t.Errorf("status not updated: %s", updated.Status)
	}

	if err := m.DeleteJob(ctx, "a"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := m.GetJob(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting a missing job is a no-op.
	if err := m.DeleteJob(ctx, "a"); err != nil {
		t.Errorf("double delete errored: %v", err)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	if _, err := m.GetJob(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := m.UpdateJob(ctx, job("missing", time.Now())); !errors.Is(err, ErrNotFound) {
		t.Errorf("update of missing job should fail, got %v", err)
	}
}

func TestMemoryStoreListOrderingAndPagination(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("job-%d", i)
		if err := m.CreateJob(ctx, job(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}

	jobs, total, err := m.ListJobs(ctx, 2, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d", total)
	}
	if len(jobs) != 2 || jobs[0].JobID != "job-4" || jobs[1].JobID != "job-3" {
		t.Errorf("first page wrong: %v, %v", jobs[0].JobID, jobs[1].JobID)
	}

	jobs, _, _ = m.ListJobs(ctx, 2, 4)
	if len(jobs) != 1 || jobs[0].JobID != "job-0" {
		t.Errorf("last page wrong: %+v", jobs)
	}

	jobs, total, _ = m.ListJobs(ctx, 10, 99)
	if len(jobs) != 0 || total != 5 {
		t.Errorf("out-of-range offset: %d jobs, total %d", len(jobs), total)
	}
}

func TestMemoryStoreCloneIsolation(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	now := time.Now().UTC()

	j := job("a", now)
	j.OutputPaths = []string{"one"}
	j.Summary = &types.Summary{TotalPatients: 10}
	if err := m.CreateJob(ctx, j); err != nil {
		t.Fatal(err)
	}

	// Mutating the caller's copy must not affect the stored record.
	j.Status = types.JobFailed
	j.OutputPaths[0] = "tampered"
	j.Summary.TotalPatients = 0

	got, _ := m.GetJob(ctx, "a")
	if got.Status != types.JobPending {
		t.Error("stored status mutated through caller pointer")
	}
	if got.OutputPaths[0] != "one" {
		t.Error("stored output paths mutated through caller slice")
	}
	if got.Summary.TotalPatients != 10 {
		t.Error("stored summary mutated through caller pointer")
	}

	// And mutating a returned copy must not affect the store either.
	got.Status = types.JobCancelled
	again, _ := m.GetJob(ctx, "a")
	if again.Status != types.JobPending {
		t.Error("stored status mutated through returned pointer")
	}
}
