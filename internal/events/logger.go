// Package events provides structured logging for key lifecycle events in
// casgen.
package events

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// EventLogger emits JSON event records for job lifecycle transitions.
type EventLogger struct {
	logger *slog.Logger
	jobID  string
}

// NewEventLogger creates an EventLogger with JSON output to stdout,
// carrying the job_id base attribute.
func NewEventLogger(jobID string) *EventLogger {
	return NewEventLoggerWithWriter(jobID, os.Stdout)
}

// NewEventLoggerWithWriter creates an EventLogger over a custom writer.
// Useful for testing or redirecting output.
func NewEventLoggerWithWriter(jobID string, w io.Writer) *EventLogger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	logger := slog.New(handler).With("job_id", jobID)
	return &EventLogger{logger: logger, jobID: jobID}
}

// LogJobCreated logs job creation.
// event: "job_created"
// Attributes: total_patients, days, seed
func (el *EventLogger) LogJobCreated(totalPatients, days int, seed int64) {
	el.logger.Info("job_created",
		"total_patients", totalPatients,
		"days", days,
		"seed", seed,
	)
}

// LogJobStarted logs the PENDING to RUNNING transition.
// event: "job_started"
// Attributes: workers
func (el *EventLogger) LogJobStarted(workers int) {
	el.logger.Info("job_started", "workers", workers)
}

// LogJobCompleted logs successful completion.
// event: "job_completed"
// Attributes: patients, duration_ms, output_files
func (el *EventLogger) LogJobCompleted(patients int, durationMs int64, outputFiles int) {
	el.logger.Info("job_completed",
		"patients", patients,
		"duration_ms", durationMs,
		"output_files", outputFiles,
	)
}

// LogJobFailed logs a failure with its error kind.
// event: "job_failed"
// Attributes: error_kind, error
func (el *EventLogger) LogJobFailed(kind, detail string) {
	el.logger.Error("job_failed",
		"error_kind", kind,
		"error", detail,
	)
}

// LogJobCancelled logs a cancellation.
// event: "job_cancelled"
// Attributes: patients_done
func (el *EventLogger) LogJobCancelled(patientsDone int) {
	el.logger.Warn("job_cancelled", "patients_done", patientsDone)
}

// LogScheduleBuilt logs schedule construction.
// event: "schedule_built"
// Attributes: events, days
func (el *EventLogger) LogScheduleBuilt(eventCount, days int) {
	el.logger.Info("schedule_built",
		"events", eventCount,
		"days", days,
	)
}

// LogArtifactsDeleted logs cleanup of partial or expired outputs.
// event: "artifacts_deleted"
// Attributes: reason
func (el *EventLogger) LogArtifactsDeleted(reason string) {
	el.logger.Info("artifacts_deleted", "reason", reason)
}

// Global logger management.
var (
	globalLogger *EventLogger
	globalMu     sync.RWMutex
)

// SetGlobalEventLogger sets the global event logger instance.
func SetGlobalEventLogger(l *EventLogger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// GetGlobalEventLogger returns the global event logger, or a no-op
// logger when none is set.
func GetGlobalEventLogger() *EventLogger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger != nil {
		return globalLogger
	}
	return NoopEventLogger()
}

// NoopEventLogger returns an event logger that discards all events.
func NoopEventLogger() *EventLogger {
	handler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return &EventLogger{logger: slog.New(handler)}
}
