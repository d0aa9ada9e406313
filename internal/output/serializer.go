package output

import (
	"context"
	"fmt"
	"time"

	"github.com/medforge/casgen/internal/analysis"
	"github.com/medforge/casgen/internal/types"
)

// progressInterval coalesces progress callbacks so the job record is not
// hammered on every patient.
const progressInterval = 250 * time.Millisecond

// Chunk is one contiguous run of event IDs owned by a single worker.
// Workers send completed patients in event order; the serializer drains
// chunks in ascending range order, restoring the global ordering without
// a sort.
type Chunk struct {
	Start    int
	End      int
	Patients <-chan *types.Patient
}

// Progress receives coalesced completion updates. done is monotone
// non-decreasing.
type Progress func(done, total int)

// Serializer drains worker chunks in order and fans each patient out to
// every configured format encoder plus the summary aggregator.
type Serializer struct {
	encoders []Encoder
	agg      *analysis.Aggregator
	total    int
	progress Progress
}

// NewSerializer creates a serializer over the given encoders.
func NewSerializer(encoders []Encoder, agg *analysis.Aggregator, total int, progress Progress) *Serializer {
	return &Serializer{encoders: encoders, agg: agg, total: total, progress: progress}
}

// Run consumes all chunks. It returns the context error if the job is
// cancelled mid-stream; partially written files are the caller's to
// delete.
func (s *Serializer) Run(ctx context.Context, chunks []Chunk) error {
	for _, enc := range s.encoders {
		if err := enc.Begin(); err != nil {
			return fmt.Errorf("output preamble: %w", err)
		}
	}

	done := 0
	lastReport := time.Now()
	expected := 1

	for _, chunk := range chunks {
		for {
			var p *types.Patient
			var ok bool
			select {
			case <-ctx.Done():
				return ctx.Err()
			case p, ok = <-chunk.Patients:
			}
			if !ok {
				break
			}
			if p.EventID != expected {
				return &types.JobError{
					Kind:   types.ErrKindSimulationInvariant,
					Detail: fmt.Sprintf("serializer received event %d, expected %d", p.EventID, expected),
				}
			}
			expected++

			for _, enc := range s.encoders {
				if err := enc.Encode(p); err != nil {
					return fmt.Errorf("encode patient %d: %w", p.PatientID, err)
				}
			}
			s.agg.Add(p)
			done++

			if s.progress != nil && time.Since(lastReport) >= progressInterval {
				s.progress(done, s.total)
				lastReport = time.Now()
			}
		}
	}

	for _, enc := range s.encoders {
		if err := enc.End(); err != nil {
			return fmt.Errorf("output epilogue: %w", err)
		}
	}
	if s.progress != nil {
		s.progress(done, s.total)
	}
	return nil
}
