package synth

import (
	"testing"
	"time"

	"github.com/medforge/casgen/internal/catalog"
	"github.com/medforge/casgen/internal/rng"
	"github.com/medforge/casgen/internal/scenario"
	"github.com/medforge/casgen/internal/types"
)

func resolveScenario(t *testing.T, mutate func(*scenario.Config)) (*scenario.ResolvedScenario, *catalog.Catalog) {
	t.Helper()
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog load failed: %v", err)
	}
	cfg := scenario.Config{
		TotalPatients: 100,
		Days:          3,
		BaseDate:      "2026-03-01",
		InjuryMix: map[string]float64{
			"Disease":           0.2,
			"Non-Battle Injury": 0.2,
			"Battle Injury":     0.6,
		},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	resolved, report := scenario.Resolve(cfg, cat, 0)
	if report.HasErrors() {
		t.Fatalf("scenario did not resolve: %s", report.String())
	}
	return resolved, cat
}

func injuryEvent(id int) types.InjuryEvent {
	return types.InjuryEvent{
		EventID:        id,
		OccurrenceTime: time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC),
	}
}

func TestSynthesizeBasicRecord(t *testing.T) {
	s, cat := resolveScenario(t, nil)
	sy := New(s, cat)

	p := sy.Synthesize(injuryEvent(17), rng.New(42, 17))

	if p.PatientID != 17 || p.EventID != 17 {
		t.Errorf("expected IDs 17/17, got %d/%d", p.PatientID, p.EventID)
	}
	if p.Nationality != "USA" {
		t.Errorf("default front should yield USA, got %s", p.Nationality)
	}
	if p.Front != "Main Front" {
		t.Errorf("expected Main Front, got %s", p.Front)
	}
	if p.Demographics.GivenName == "" || p.Demographics.FamilyName == "" {
		t.Error("demographics not drawn")
	}
	if p.PrimaryCondition.Code == "" {
		t.Error("primary condition not drawn")
	}
	if p.CurrentStatus != types.StatusAtPOI || p.CurrentFacility != types.FacilityPOI {
		t.Errorf("new patients start at POI, got %s/%s", p.CurrentStatus, p.CurrentFacility)
	}
	if len(p.TimelineEvents) != 1 {
		t.Fatalf("expected single arrival event, got %d", len(p.TimelineEvents))
	}
	arrival := p.TimelineEvents[0]
	if arrival.Kind != types.EventArrival || arrival.Facility != types.FacilityPOI {
		t.Errorf("unexpected first event: %+v", arrival)
	}
	if arrival.HoursSinceInjury != 0 {
		t.Errorf("arrival at POI should be at hour 0, got %f", arrival.HoursSinceInjury)
	}
	if p.PolytraumaIndicators.ConditionCount != 1+len(p.AdditionalConditions) {
		t.Error("condition count inconsistent with additional conditions")
	}
}

func TestSynthesizeDeterministicPerStream(t *testing.T) {
	s, cat := resolveScenario(t, func(cfg *scenario.Config) {
		cfg.WarfareFlags = []string{"artillery", "conventional"}
	})
	sy := New(s, cat)

	a := sy.Synthesize(injuryEvent(9), rng.New(1234, 9))
	b := sy.Synthesize(injuryEvent(9), rng.New(1234, 9))

	if a.Nationality != b.Nationality ||
		a.Demographics != b.Demographics ||
		a.TriageCategory != b.TriageCategory ||
		a.InjuryType != b.InjuryType ||
		a.PrimaryCondition != b.PrimaryCondition ||
		a.InitialVitals != b.InitialVitals {
		t.Error("same stream produced different patients")
	}
}

func TestSynthesizeDiseaseOnlyMix(t *testing.T) {
	s, cat := resolveScenario(t, func(cfg *scenario.Config) {
		cfg.InjuryMix = map[string]float64{"Disease": 1.0}
	})
	sy := New(s, cat)

	for i := 1; i <= 200; i++ {
		p := sy.Synthesize(injuryEvent(i), rng.New(55, uint64(i)))
		if p.InjuryType != types.InjuryDisease {
			t.Fatalf("patient %d has injury type %s", i, p.InjuryType)
		}
		if p.PolytraumaIndicators.IsPolytrauma {
			t.Fatalf("disease casualty %d flagged polytrauma", i)
		}
	}
}

func TestSynthesizeArtilleryPolytrauma(t *testing.T) {
	s, cat := resolveScenario(t, func(cfg *scenario.Config) {
		cfg.InjuryMix = map[string]float64{"Battle Injury": 1.0}
		cfg.WarfareFlags = []string{"artillery"}
	})
	sy := New(s, cat)

	const n = 3000
	poly := 0
	for i := 1; i <= n; i++ {
		p := sy.Synthesize(injuryEvent(i), rng.New(99, uint64(i)))
		if p.PolytraumaIndicators.Pattern != types.WarfareArtillery {
			t.Fatalf("patient %d missing artillery pattern", i)
		}
		if p.PolytraumaIndicators.IsPolytrauma {
			poly++
			if len(p.AdditionalConditions) < 1 || len(p.AdditionalConditions) > 3 {
				t.Fatalf("patient %d has %d additional conditions", i, len(p.AdditionalConditions))
			}
			for _, c := range p.AdditionalConditions {
				if c.Code == p.PrimaryCondition.Code {
					t.Fatalf("patient %d duplicates primary condition", i)
				}
			}
		}
	}
	// Artillery polytrauma rate is 0.45; allow generous sampling slack.
	rate := float64(poly) / n
	if rate < 0.32 || rate > 0.55 {
		t.Errorf("artillery polytrauma rate %.3f outside expected band", rate)
	}
}

func TestSynthesizeTriageSkewWithIntensity(t *testing.T) {
	count := func(intensity string) int {
		s, cat := resolveScenario(t, func(cfg *scenario.Config) {
			cfg.InjuryMix = map[string]float64{"Battle Injury": 1.0}
			cfg.Overrides.Intensity = intensity
		})
		sy := New(s, cat)
		t1 := 0
		for i := 1; i <= 2000; i++ {
			if sy.Synthesize(injuryEvent(i), rng.New(7, uint64(i))).TriageCategory == types.TriageT1 {
				t1++
			}
		}
		return t1
	}

	low := count("low")
	extreme := count("extreme")
	if extreme <= low {
		t.Errorf("extreme intensity produced %d T1 vs %d at low", extreme, low)
	}
}

func TestSynthesizeVitalsWithinBand(t *testing.T) {
	s, cat := resolveScenario(t, nil)
	sy := New(s, cat)

	for i := 1; i <= 300; i++ {
		p := sy.Synthesize(injuryEvent(i), rng.New(31, uint64(i)))
		band := cat.VitalBands[p.TriageCategory]
		v := p.InitialVitals
		if v.HeartRate < band.HeartRate[0] || v.HeartRate > band.HeartRate[1] {
			t.Fatalf("patient %d heart rate %d outside band for %s", i, v.HeartRate, p.TriageCategory)
		}
		if v.GCS < band.GCS[0] || v.GCS > band.GCS[1] {
			t.Fatalf("patient %d GCS %d outside band for %s", i, v.GCS, p.TriageCategory)
		}
	}
}
