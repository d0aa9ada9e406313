package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/medforge/casgen/internal/artifacts"
	"github.com/medforge/casgen/internal/store"
	"github.com/medforge/casgen/internal/types"
)

func seedJob(t *testing.T, st store.Store, art artifacts.Store, id string, status types.JobStatus, finished time.Time) {
	t.Helper()
	job := &types.Job{
		JobID:     id,
		Status:    status,
		CreatedAt: finished.Add(-time.Hour),
	}
	if status.Terminal() {
		f := finished
		job.FinishedAt = &f
	}
	if err := st.CreateJob(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	w, _, err := art.CreateWriter(id, "patients.ndjson")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte("{}\n"))
	w.Close()
}

func TestCleanupPurgesExpiredTerminalJobs(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	art, err := artifacts.NewFilesystemStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC()
	seedJob(t, st, art, "expired-completed", types.JobCompleted, now.Add(-48*time.Hour))
	seedJob(t, st, art, "expired-failed", types.JobFailed, now.Add(-48*time.Hour))
	seedJob(t, st, art, "recent-completed", types.JobCompleted, now.Add(-time.Hour))
	seedJob(t, st, art, "still-running", types.JobRunning, now)

	m := NewManager(st, art, 24*time.Hour)
	m.RunCleanupNow()

	for _, id := range []string{"expired-completed", "expired-failed"} {
		if _, err := st.GetJob(ctx, id); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("job %s should be purged, got %v", id, err)
		}
		infos, _ := art.ListArtifacts(id)
		if len(infos) != 0 {
			t.Errorf("artifacts of %s should be deleted", id)
		}
	}

	for _, id := range []string{"recent-completed", "still-running"} {
		if _, err := st.GetJob(ctx, id); err != nil {
			t.Errorf("job %s should survive cleanup: %v", id, err)
		}
		infos, _ := art.ListArtifacts(id)
		if len(infos) != 1 {
			t.Errorf("artifacts of %s should survive cleanup", id)
		}
	}
}

func TestCleanupPagesThroughLargeStores(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	art, err := artifacts.NewFilesystemStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	old := time.Now().UTC().Add(-72 * time.Hour)
	const n = 450 // more than two list pages
	for i := 0; i < n; i++ {
		finished := old.Add(time.Duration(i) * time.Second)
		job := &types.Job{
			JobID:      jobID(i),
			Status:     types.JobCompleted,
			CreatedAt:  finished.Add(-time.Minute),
			FinishedAt: &finished,
		}
		if err := st.CreateJob(ctx, job); err != nil {
			t.Fatal(err)
		}
	}

	m := NewManager(st, art, 24*time.Hour)
	m.RunCleanupNow()

	_, total, err := st.ListJobs(ctx, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Errorf("%d jobs survived a full purge", total)
	}
}

func jobID(i int) string {
	return "job-" + string(rune('a'+i/26/26%26)) + string(rune('a'+i/26%26)) + string(rune('a'+i%26))
}

func TestStartStop(t *testing.T) {
	st := store.NewMemoryStore()
	art, err := artifacts.NewFilesystemStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	m := NewManager(st, art, time.Hour)
	m.Start()
	m.Start() // idempotent
	m.Stop()
	m.Stop() // idempotent
}
