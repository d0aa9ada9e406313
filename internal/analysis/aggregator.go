// Package analysis computes cohort summary statistics incrementally as
// patients stream through the serializer.
package analysis

import (
	"sync"

	"github.com/medforge/casgen/internal/types"
)

// Aggregator accumulates per-patient observations into a cohort summary.
// The serializer feeds it from a single goroutine, but the API may read
// a snapshot of a running job concurrently, so access is locked.
type Aggregator struct {
	mu sync.RWMutex

	total            int
	byStatus         map[string]int
	byTriage         map[string]int
	byInjuryType     map[string]int
	facilityVisits   map[string]int
	polytraumaCount  int
	battleCount      int
	kiaCount         int
	rtdCount         int
	timelineEventSum int
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		byStatus:       make(map[string]int),
		byTriage:       make(map[string]int),
		byInjuryType:   make(map[string]int),
		facilityVisits: make(map[string]int),
	}
}

// Add ingests one completed patient record.
func (a *Aggregator) Add(p *types.Patient) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.byStatus[string(p.CurrentStatus)]++
	a.byTriage[string(p.TriageCategory)]++
	a.byInjuryType[string(p.InjuryType)]++
	a.timelineEventSum += len(p.TimelineEvents)

	for _, ev := range p.TimelineEvents {
		if ev.Kind == types.EventArrival && ev.Facility != "" {
			a.facilityVisits[string(ev.Facility)]++
		}
	}

	if p.InjuryType == types.InjuryBattle {
		a.battleCount++
	}
	if p.PolytraumaIndicators.IsPolytrauma {
		a.polytraumaCount++
	}

	switch p.CurrentStatus {
	case types.StatusKIA:
		a.kiaCount++
	case types.StatusRTD:
		a.rtdCount++
	}
}

// Count returns the number of patients ingested so far.
func (a *Aggregator) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.total
}

// Summary snapshots the cohort statistics. The polytrauma rate is the
// fraction of battle casualties with multiple conditions; mortality is
// the KIA fraction of the whole cohort.
func (a *Aggregator) Summary() *types.Summary {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := &types.Summary{
		TotalPatients:        a.total,
		ByStatus:             copyCounts(a.byStatus),
		ByTriage:             copyCounts(a.byTriage),
		ByInjuryType:         copyCounts(a.byInjuryType),
		FacilityDistribution: copyCounts(a.facilityVisits),
		PolytraumaCount:      a.polytraumaCount,
		KIACount:             a.kiaCount,
		RTDCount:             a.rtdCount,
	}
	if a.battleCount > 0 {
		s.PolytraumaRate = float64(a.polytraumaCount) / float64(a.battleCount)
	}
	if a.total > 0 {
		s.MeanMortality = float64(a.kiaCount) / float64(a.total)
		s.MeanTimelineEvents = float64(a.timelineEventSum) / float64(a.total)
	}
	return s
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
