package types

import (
	"encoding/json"
	"time"
)

// JobStatus is the lifecycle state of a generation job.
type JobStatus string

const (
	JobPending   JobStatus = "PENDING"
	JobRunning   JobStatus = "RUNNING"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
	JobCancelled JobStatus = "CANCELLED"
)

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// Summary holds cohort statistics computed incrementally during
// serialization.
type Summary struct {
	TotalPatients        int            `json:"total_patients"`
	ByStatus             map[string]int `json:"by_status"`
	ByTriage             map[string]int `json:"by_triage"`
	ByInjuryType         map[string]int `json:"by_injury_type"`
	FacilityDistribution map[string]int `json:"facility_distribution"`
	PolytraumaCount      int            `json:"polytrauma_count"`
	PolytraumaRate       float64        `json:"polytrauma_rate"`
	KIACount             int            `json:"kia_count"`
	MeanMortality        float64        `json:"mean_mortality"`
	RTDCount             int            `json:"rtd_count"`
	MeanTimelineEvents   float64        `json:"mean_timeline_events"`
}

// Job is the engine-owned record of one generation run.
type Job struct {
	JobID           string          `json:"job_id"`
	Status          JobStatus       `json:"status"`
	ProgressPercent int             `json:"progress_percent"`
	ProgressDetail  string          `json:"progress_detail,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	FinishedAt      *time.Time      `json:"finished_at,omitempty"`
	Error           string          `json:"error,omitempty"`
	ErrorKind       string          `json:"error_kind,omitempty"`
	OutputPaths     []string        `json:"output_paths,omitempty"`
	Summary         *Summary        `json:"summary,omitempty"`
	Config          json.RawMessage `json:"config,omitempty"`
	Seed            int64           `json:"seed"`
}

// Error kinds, surfaced on failed jobs and in API error envelopes.
const (
	ErrKindConfigValidation    = "CONFIG_VALIDATION"
	ErrKindQuotaExceeded       = "QUOTA_EXCEEDED"
	ErrKindCatalogInvariant    = "CATALOG_INVARIANT"
	ErrKindSimulationInvariant = "SIMULATION_INVARIANT"
	ErrKindIOFailure           = "IO_FAILURE"
	ErrKindCancelled           = "CANCELLED"
)

// JobError carries an error kind through the engine to the job record.
type JobError struct {
	Kind   string
	Detail string
}

func (e *JobError) Error() string {
	return e.Kind + ": " + e.Detail
}
