// Package synth produces fully populated casualty records from scheduled
// injury events: demographics, injury set, triage, and initial vitals.
package synth

import (
	"math/rand"

	"github.com/medforge/casgen/internal/catalog"
	"github.com/medforge/casgen/internal/rng"
	"github.com/medforge/casgen/internal/scenario"
	"github.com/medforge/casgen/internal/types"
)

// Base triage weights (T1, T2, T3) by injury type, used when no warfare
// pattern applies.
var baseTriageWeights = map[types.InjuryType][3]float64{
	types.InjuryDisease:   {5, 25, 70},
	types.InjuryNonBattle: {10, 30, 60},
	types.InjuryBattle:    {25, 40, 35},
}

var triageOrder = [3]types.TriageCategory{types.TriageT1, types.TriageT2, types.TriageT3}

// Synthesizer draws casualty records for one scenario. It is stateless
// apart from the frozen scenario and catalog, so a single instance is
// shared across workers.
type Synthesizer struct {
	scenario *scenario.ResolvedScenario
	catalog  *catalog.Catalog
}

// New creates a synthesizer for a resolved scenario.
func New(s *scenario.ResolvedScenario, cat *catalog.Catalog) *Synthesizer {
	return &Synthesizer{scenario: s, catalog: cat}
}

// Synthesize produces the patient for one injury event. The trajectory
// is empty apart from the arrival event at POI; the flow simulator owns
// everything after that.
func (sy *Synthesizer) Synthesize(ev types.InjuryEvent, r *rand.Rand) *types.Patient {
	front := sy.pickFront(ev, r)
	nationality := sy.pickNationality(front, r)
	pool := sy.catalog.NamePools[nationality]
	demographics := pool.DrawDemographics(r)

	injuryType := sy.pickInjuryType(r)

	var pattern *catalog.WarfareSpec
	if sy.scenario.Flags.WarfareModifiers && injuryType == types.InjuryBattle && len(sy.scenario.WarfareFlags) > 0 {
		pattern = sy.pickWarfarePattern(r)
	}

	primary := sy.pickCondition(injuryType, pattern, r)
	triage := sy.pickTriage(injuryType, pattern, r)

	patient := &types.Patient{
		PatientID:            ev.EventID,
		EventID:              ev.EventID,
		Nationality:          nationality,
		Front:                front.Name,
		Demographics:         demographics,
		TriageCategory:       triage,
		InjuryType:           injuryType,
		PrimaryCondition:     primary.Condition(),
		InitialVitals:        sy.drawVitals(triage, r),
		InjuryTime:           ev.OccurrenceTime,
		CurrentFacility:      types.FacilityPOI,
		CurrentStatus:        types.StatusAtPOI,
		AdditionalConditions: []types.Condition{},
		TimelineEvents:       []types.TimelineEvent{},
		Treatments:           []types.Treatment{},
	}

	if pattern != nil {
		rate := sy.scenario.PolytraumaRate(pattern.Pattern, pattern.PolytraumaRate)
		if r.Float64() < rate {
			patient.AdditionalConditions = sy.drawPolytrauma(pattern, primary.Code, r)
		}
		patient.PolytraumaIndicators.Pattern = pattern.Pattern
	}
	patient.PolytraumaIndicators.ConditionCount = 1 + len(patient.AdditionalConditions)
	patient.PolytraumaIndicators.IsPolytrauma = len(patient.AdditionalConditions) > 0

	patient.AppendEvent(types.TimelineEvent{
		Kind:      types.EventArrival,
		Facility:  types.FacilityPOI,
		Timestamp: ev.OccurrenceTime,
		Triage:    triage,
	})
	return patient
}

func (sy *Synthesizer) pickFront(ev types.InjuryEvent, r *rand.Rand) scenario.Front {
	fronts := sy.scenario.Fronts
	if ev.FrontRef != "" {
		for _, f := range fronts {
			if f.Name == ev.FrontRef {
				return f
			}
		}
	}
	weights := make([]float64, len(fronts))
	for i, f := range fronts {
		weights[i] = f.CasualtyShare
	}
	idx := rng.Categorical(r, weights)
	if idx < 0 {
		idx = 0
	}
	return fronts[idx]
}

func (sy *Synthesizer) pickNationality(front scenario.Front, r *rand.Rand) string {
	idx := rng.Categorical(r, front.Weights)
	if idx < 0 {
		idx = 0
	}
	return front.Nationalities[idx]
}

func (sy *Synthesizer) pickInjuryType(r *rand.Rand) types.InjuryType {
	order := []types.InjuryType{types.InjuryDisease, types.InjuryNonBattle, types.InjuryBattle}
	weights := make([]float64, len(order))
	for i, t := range order {
		weights[i] = sy.scenario.InjuryMix[t]
	}
	idx := rng.Categorical(r, weights)
	if idx < 0 {
		idx = 0
	}
	return order[idx]
}

// pickWarfarePattern draws uniformly over the active flags. The flag
// list is sorted at resolution, so equal-weight ties resolve the same
// way for a given stream.
func (sy *Synthesizer) pickWarfarePattern(r *rand.Rand) *catalog.WarfareSpec {
	flags := sy.scenario.WarfareFlags
	idx := r.Intn(len(flags))
	return sy.catalog.Warfare[flags[idx]]
}

func (sy *Synthesizer) pickCondition(injuryType types.InjuryType, pattern *catalog.WarfareSpec, r *rand.Rand) catalog.ConditionEntry {
	entries := sy.catalog.Conditions[injuryType]
	weights := make([]float64, len(entries))
	for i, e := range entries {
		w := e.Weight
		if pattern != nil {
			if overlay, ok := pattern.InjuryOverlay[e.Code]; ok {
				w *= overlay
			}
		}
		weights[i] = w
	}
	idx := rng.Categorical(r, weights)
	if idx < 0 {
		idx = 0
	}
	return entries[idx]
}

// pickTriage draws the urgency band conditioned on injury type and
// warfare pattern, with the intensity override skewing mass toward T1.
func (sy *Synthesizer) pickTriage(injuryType types.InjuryType, pattern *catalog.WarfareSpec, r *rand.Rand) types.TriageCategory {
	weights := baseTriageWeights[injuryType]
	if pattern != nil {
		weights = pattern.TriageWeights
	}
	scalar := sy.scenario.IntensityScalar
	adjusted := []float64{weights[0] * scalar, weights[1], weights[2] / scalar}
	idx := rng.Categorical(r, adjusted)
	if idx < 0 {
		idx = 2
	}
	return triageOrder[idx]
}

func (sy *Synthesizer) drawPolytrauma(pattern *catalog.WarfareSpec, primaryCode string, r *rand.Rand) []types.Condition {
	count := rng.IntBetween(r, 1, 3)
	conditions := make([]types.Condition, 0, count)
	used := map[string]bool{primaryCode: true}
	for i := 0; i < count && len(used) <= len(pattern.CorrelatedCodes); i++ {
		code := pattern.CorrelatedCodes[r.Intn(len(pattern.CorrelatedCodes))]
		if used[code] {
			continue
		}
		used[code] = true
		if entry, ok := sy.lookupCondition(code); ok {
			conditions = append(conditions, entry.Condition())
		}
	}
	return conditions
}

func (sy *Synthesizer) lookupCondition(code string) (catalog.ConditionEntry, bool) {
	for _, entries := range sy.catalog.Conditions {
		for _, e := range entries {
			if e.Code == code {
				return e, true
			}
		}
	}
	return catalog.ConditionEntry{}, false
}

func (sy *Synthesizer) drawVitals(triage types.TriageCategory, r *rand.Rand) types.Vitals {
	band := sy.catalog.VitalBands[triage]
	return types.Vitals{
		HeartRate:       rng.IntBetween(r, band.HeartRate[0], band.HeartRate[1]),
		SystolicBP:      rng.IntBetween(r, band.SystolicBP[0], band.SystolicBP[1]),
		DiastolicBP:     rng.IntBetween(r, band.Diastolic[0], band.Diastolic[1]),
		RespiratoryRate: rng.IntBetween(r, band.RespRate[0], band.RespRate[1]),
		SpO2:            rng.IntBetween(r, band.SpO2[0], band.SpO2[1]),
		GCS:             rng.IntBetween(r, band.GCS[0], band.GCS[1]),
	}
}
