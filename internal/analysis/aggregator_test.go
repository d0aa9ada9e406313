package analysis

import (
	"sync"
	"testing"
	"time"

	"github.com/medforge/casgen/internal/types"
)

func patient(status types.PatientStatus, triage types.TriageCategory, injury types.InjuryType, poly bool, facilities ...types.FacilityRole) *types.Patient {
	p := &types.Patient{
		CurrentStatus:  status,
		TriageCategory: triage,
		InjuryType:     injury,
		InjuryTime:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	p.PolytraumaIndicators.IsPolytrauma = poly
	for i, f := range facilities {
		p.AppendEvent(types.TimelineEvent{
			Kind:      types.EventArrival,
			Facility:  f,
			Timestamp: p.InjuryTime.Add(time.Duration(i) * time.Hour),
		})
	}
	return p
}

func TestAggregatorEmpty(t *testing.T) {
	agg := NewAggregator()
	if agg.Count() != 0 {
		t.Errorf("expected count 0, got %d", agg.Count())
	}
	s := agg.Summary()
	if s.TotalPatients != 0 || s.MeanMortality != 0 || s.PolytraumaRate != 0 {
		t.Errorf("empty summary not zeroed: %+v", s)
	}
}

func TestAggregatorCounts(t *testing.T) {
	agg := NewAggregator()
	agg.Add(patient(types.StatusKIA, types.TriageT1, types.InjuryBattle, true, types.FacilityPOI, types.FacilityRole1))
	agg.Add(patient(types.StatusRTD, types.TriageT2, types.InjuryBattle, false, types.FacilityPOI))
	agg.Add(patient(types.StatusRTD, types.TriageT3, types.InjuryDisease, false, types.FacilityPOI, types.FacilityRole1, types.FacilityRole2))
	agg.Add(patient(types.StatusRTD, types.TriageT2, types.InjuryNonBattle, false, types.FacilityPOI))

	s := agg.Summary()
	if s.TotalPatients != 4 {
		t.Fatalf("total = %d", s.TotalPatients)
	}
	if s.KIACount != 1 || s.RTDCount != 3 {
		t.Errorf("kia/rtd = %d/%d", s.KIACount, s.RTDCount)
	}
	if s.ByStatus["KIA"] != 1 || s.ByStatus["RTD"] != 3 {
		t.Errorf("by_status = %v", s.ByStatus)
	}
	if s.ByTriage["T2"] != 2 {
		t.Errorf("by_triage = %v", s.ByTriage)
	}
	if s.ByInjuryType["Battle Injury"] != 2 || s.ByInjuryType["Disease"] != 1 {
		t.Errorf("by_injury_type = %v", s.ByInjuryType)
	}
	if s.FacilityDistribution["POI"] != 4 || s.FacilityDistribution["Role1"] != 2 || s.FacilityDistribution["Role2"] != 1 {
		t.Errorf("facility_distribution = %v", s.FacilityDistribution)
	}
	if s.MeanMortality != 0.25 {
		t.Errorf("mean_mortality = %f", s.MeanMortality)
	}
	// One polytrauma case among two battle casualties.
	if s.PolytraumaCount != 1 || s.PolytraumaRate != 0.5 {
		t.Errorf("polytrauma = %d at rate %f", s.PolytraumaCount, s.PolytraumaRate)
	}
	wantMean := float64(2+1+3+1) / 4
	if s.MeanTimelineEvents != wantMean {
		t.Errorf("mean_timeline_events = %f, want %f", s.MeanTimelineEvents, wantMean)
	}
}

func TestAggregatorSnapshotIsolation(t *testing.T) {
	agg := NewAggregator()
	agg.Add(patient(types.StatusRTD, types.TriageT3, types.InjuryDisease, false, types.FacilityPOI))

	s := agg.Summary()
	s.ByStatus["RTD"] = 99

	if agg.Summary().ByStatus["RTD"] != 1 {
		t.Error("summary maps are not copied")
	}
}

func TestAggregatorConcurrentReads(t *testing.T) {
	agg := NewAggregator()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			agg.Add(patient(types.StatusRTD, types.TriageT3, types.InjuryDisease, false, types.FacilityPOI))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			agg.Summary()
			agg.Count()
		}
	}()
	wg.Wait()

	if agg.Count() != 1000 {
		t.Errorf("count = %d", agg.Count())
	}
}
