package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/medforge/casgen/internal/analysis"
	"github.com/medforge/casgen/internal/events"
	"github.com/medforge/casgen/internal/flow"
	"github.com/medforge/casgen/internal/otel"
	"github.com/medforge/casgen/internal/output"
	"github.com/medforge/casgen/internal/rng"
	"github.com/medforge/casgen/internal/scenario"
	"github.com/medforge/casgen/internal/schedule"
	"github.com/medforge/casgen/internal/synth"
	"github.com/medforge/casgen/internal/types"
)

// chunksPerWorker keeps chunks small enough that the serializer never
// stalls long on one worker while others run ahead of their channel
// buffers.
const chunksPerWorker = 4

// countingWriter tracks bytes for the per-format output metric.
type countingWriter struct {
	io.WriteCloser
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.WriteCloser.Write(p)
	c.n += int64(n)
	return n, err
}

// run executes one generation job to a terminal state. It owns the job
// record from RUNNING onward.
func (mgr *Manager) run(ctx context.Context, handle *runHandle, jobID string, s *scenario.ResolvedScenario) {
	log := events.NewEventLogger(jobID)

	ctx, cancelTimeout := context.WithTimeout(ctx, mgr.cfg.JobTimeout)
	defer cancelTimeout()

	job, err := mgr.store.GetJob(context.Background(), jobID)
	if err != nil {
		log.LogJobFailed(types.ErrKindIOFailure, err.Error())
		return
	}

	started := time.Now().UTC()
	job.Status = types.JobRunning
	job.StartedAt = &started
	if err := mgr.store.UpdateJob(context.Background(), job); err != nil {
		log.LogJobFailed(types.ErrKindIOFailure, err.Error())
		return
	}
	mgr.metrics.JobsRunning.Inc()
	defer mgr.metrics.JobsRunning.Dec()
	log.LogJobStarted(mgr.workers)

	meter := otel.GetGlobalMeter()
	meter.JobStarted()
	ctx, span := otel.GetGlobalTracer().StartJobSpan(ctx, jobID, s.TotalPatients, s.Days)

	agg := analysis.NewAggregator()
	runErr := mgr.generate(ctx, jobID, s, agg, job, log)

	mgr.finish(handle, job, s, agg, started, runErr, log)

	if runErr != nil {
		otel.RecordError(span, runErr, job.ErrorKind)
	}
	span.End()
	meter.JobFinished(context.Background(), string(job.Status), agg.Count(), time.Since(started).Seconds())
}

// generate runs the schedule/synthesize/simulate/serialize pipeline.
// Workers and the serializer share one errgroup: the first error cancels
// everything, and first-error-wins is what the job record reports.
func (mgr *Manager) generate(ctx context.Context, jobID string, s *scenario.ResolvedScenario, agg *analysis.Aggregator, job *types.Job, log *events.EventLogger) error {
	schedEvents := schedule.BuildSchedule(s, mgr.catalog, rng.New(s.Seed, 0))
	log.LogScheduleBuilt(len(schedEvents), s.Days)

	synthesizer := synth.New(s, mgr.catalog)
	simulator := flow.New(s, mgr.catalog)

	encoders, paths, closeOutputs, err := mgr.openOutputs(jobID, s)
	if err != nil {
		return err
	}

	chunks, channels := partition(schedEvents, mgr.workers*chunksPerWorker)

	// Workers claim whole chunks off a shared feed and close each chunk
	// channel when its range is done. Every event gets its own RNG
	// stream keyed by event_id, so output is identical for any worker
	// count.
	chunkFeed := make(chan int, len(chunks))
	for i := range chunks {
		chunkFeed <- i
	}
	close(chunkFeed)

	g, gctx := errgroup.WithContext(ctx)

	for w := 0; w < mgr.workers; w++ {
		g.Go(func() error {
			for idx := range chunkFeed {
				err := mgr.runChunk(gctx, schedEvents, chunks[idx], channels[idx], s.Seed, synthesizer, simulator)
				close(channels[idx])
				if err != nil {
					return err
				}
			}
			return nil
		})
	}

	progress := func(done, total int) {
		pct := 0
		if total > 0 {
			pct = done * 100 / total
		}
		job.ProgressPercent = pct
		job.ProgressDetail = fmt.Sprintf("%d/%d patients", done, total)
		mgr.store.UpdateJob(context.Background(), job)
	}

	serializer := output.NewSerializer(encoders, agg, s.TotalPatients, progress)
	g.Go(func() error {
		return serializer.Run(gctx, chunks)
	})

	runErr := g.Wait()
	closeErr := closeOutputs()

	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return fmt.Errorf("closing outputs: %w", closeErr)
	}

	job.OutputPaths = paths
	mgr.metrics.PatientsGenerated.Add(float64(agg.Count()))
	return nil
}

// runChunk synthesizes and simulates the chunk's events in order.
func (mgr *Manager) runChunk(ctx context.Context, schedEvents []types.InjuryEvent, chunk output.Chunk, ch chan<- *types.Patient, seed int64, synthesizer *synth.Synthesizer, simulator *flow.Simulator) error {
	for _, ev := range schedEvents[chunk.Start-1 : chunk.End] {
		r := rng.New(seed, uint64(ev.EventID))
		p := synthesizer.Synthesize(ev, r)
		if err := simulator.Simulate(p, r); err != nil {
			return err
		}
		select {
		case ch <- p:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// openOutputs creates the writer chain and encoder for every configured
// format. The returned close function flushes and closes all chains and
// records the byte counters.
func (mgr *Manager) openOutputs(jobID string, s *scenario.ResolvedScenario) ([]output.Encoder, []string, func() error, error) {
	var (
		encoders []output.Encoder
		paths    []string
		writers  []*countingWriter
		formats  []string
	)

	closeAll := func() error {
		var first error
		for i, w := range writers {
			if err := w.Close(); err != nil && first == nil {
				first = err
			}
			mgr.metrics.OutputBytes.WithLabelValues(formats[i]).Add(float64(w.n))
		}
		return first
	}

	for _, format := range s.Output.Formats {
		sink, path, err := mgr.artifacts.CreateWriter(jobID, output.Filename(format, s.Output))
		if err != nil {
			closeAll()
			return nil, nil, nil, &types.JobError{Kind: types.ErrKindIOFailure, Detail: err.Error()}
		}
		wrapped, err := output.WrapWriter(sink, s.Output)
		if err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		cw := &countingWriter{WriteCloser: wrapped}
		enc, err := output.NewEncoder(format, cw)
		if err != nil {
			cw.Close()
			closeAll()
			return nil, nil, nil, err
		}
		encoders = append(encoders, enc)
		writers = append(writers, cw)
		formats = append(formats, format)
		paths = append(paths, path)
	}
	return encoders, paths, closeAll, nil
}

// finish classifies the outcome, cleans up partial outputs, and writes
// the terminal job record.
func (mgr *Manager) finish(handle *runHandle, job *types.Job, s *scenario.ResolvedScenario, agg *analysis.Aggregator, started time.Time, runErr error, log *events.EventLogger) {
	now := time.Now().UTC()
	job.FinishedAt = &now

	switch {
	case runErr == nil:
		job.Status = types.JobCompleted
		job.ProgressPercent = 100
		job.ProgressDetail = fmt.Sprintf("%d/%d patients", agg.Count(), s.TotalPatients)
		job.Summary = agg.Summary()
		mgr.metrics.JobsCompleted.WithLabelValues(string(types.JobCompleted)).Inc()
		mgr.metrics.JobDuration.Observe(now.Sub(started).Seconds())
		log.LogJobCompleted(agg.Count(), now.Sub(started).Milliseconds(), len(job.OutputPaths))

	case errors.Is(runErr, context.Canceled) && handle.userCancelled.Load():
		job.Status = types.JobCancelled
		job.ErrorKind = types.ErrKindCancelled
		mgr.cleanup(job, log, "cancelled")
		mgr.metrics.JobsCompleted.WithLabelValues(string(types.JobCancelled)).Inc()
		log.LogJobCancelled(agg.Count())

	case errors.Is(runErr, context.DeadlineExceeded):
		job.Status = types.JobFailed
		job.Error = fmt.Sprintf("job exceeded timeout of %s", mgr.cfg.JobTimeout)
		job.ErrorKind = types.ErrKindCancelled
		mgr.cleanup(job, log, "timeout")
		mgr.metrics.JobsCompleted.WithLabelValues(string(types.JobFailed)).Inc()
		log.LogJobFailed(job.ErrorKind, job.Error)

	default:
		job.Status = types.JobFailed
		job.Error = runErr.Error()
		job.ErrorKind = classifyError(runErr)
		mgr.cleanup(job, log, "failed")
		mgr.metrics.JobsCompleted.WithLabelValues(string(types.JobFailed)).Inc()
		log.LogJobFailed(job.ErrorKind, job.Error)
	}

	if err := mgr.store.UpdateJob(context.Background(), job); err != nil {
		log.LogJobFailed(types.ErrKindIOFailure, fmt.Sprintf("failed to persist terminal state: %v", err))
	}
}

// cleanup deletes partial outputs so failed and cancelled jobs never
// leave files a download could serve.
func (mgr *Manager) cleanup(job *types.Job, log *events.EventLogger, reason string) {
	job.OutputPaths = nil
	if err := mgr.artifacts.DeleteArtifacts(job.JobID); err == nil {
		log.LogArtifactsDeleted(reason)
	}
}

func classifyError(err error) string {
	var invErr *flow.InvariantError
	if errors.As(err, &invErr) {
		return types.ErrKindSimulationInvariant
	}
	var jobErr *types.JobError
	if errors.As(err, &jobErr) {
		return jobErr.Kind
	}
	return types.ErrKindIOFailure
}

// partition splits the schedule into up to n contiguous chunks and
// creates one bounded channel per chunk.
func partition(schedEvents []types.InjuryEvent, n int) ([]output.Chunk, []chan *types.Patient) {
	total := len(schedEvents)
	if n < 1 {
		n = 1
	}
	if n > total {
		n = total
	}
	if total == 0 {
		return nil, nil
	}

	chunks := make([]output.Chunk, 0, n)
	channels := make([]chan *types.Patient, 0, n)
	base := total / n
	extra := total % n
	start := 1
	for i := 0; i < n; i++ {
		size := base
		if i < extra {
			size++
		}
		ch := make(chan *types.Patient, chunkBuffer(size))
		chunks = append(chunks, output.Chunk{Start: start, End: start + size - 1, Patients: ch})
		channels = append(channels, ch)
		start += size
	}
	return chunks, channels
}

func chunkBuffer(size int) int {
	const buffer = 64
	if size < buffer {
		return size
	}
	return buffer
}
