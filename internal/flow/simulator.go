// Package flow runs the probabilistic facility-routing state machine:
// per-facility dwell, biased Markov next-state draws with KIA/RTD
// absorption, transit legs, treatment records, and diagnostic
// refinement.
package flow

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/medforge/casgen/internal/catalog"
	"github.com/medforge/casgen/internal/rng"
	"github.com/medforge/casgen/internal/scenario"
	"github.com/medforge/casgen/internal/types"
)

const (
	// maxTimelineEvents bounds a single trajectory; the matrices make
	// longer chains vanishingly unlikely, so hitting the cap forces RTD
	// rather than failing the job.
	maxTimelineEvents = 100

	rowSumTolerance = 1e-6

	// Treatment stacking can never push the next-facility KIA factor
	// below this floor.
	minKIAFactor = 0.05
)

// InvariantError is a per-job fatal simulation error. A single patient
// that cannot progress fails the whole job.
type InvariantError struct {
	PatientID int
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: patient %d: %s", types.ErrKindSimulationInvariant, e.PatientID, e.Detail)
}

// Simulator drives patients through the evacuation chain. It holds only
// frozen state and is shared across workers; all randomness comes from
// the per-event stream passed to Simulate.
type Simulator struct {
	scenario *scenario.ResolvedScenario
	catalog  *catalog.Catalog
}

// New creates a simulator for a resolved scenario.
func New(s *scenario.ResolvedScenario, cat *catalog.Catalog) *Simulator {
	return &Simulator{scenario: s, catalog: cat}
}

// Simulate runs one patient from POI to absorption, mutating the
// patient's trajectory in place. The patient arrives with the initial
// arrival event already recorded by the synthesizer.
func (sim *Simulator) Simulate(p *types.Patient, r *rand.Rand) error {
	now := p.InjuryTime
	facility := types.FacilityPOI

	// Treatment effects at the current facility modulate the KIA column
	// at the next facility's draw, never the current one.
	carriedKIAFactor := 1.0

	for {
		if len(p.TimelineEvents) >= maxTimelineEvents-2 {
			sim.absorb(p, types.StatusRTD, facility, now)
			return nil
		}

		nextFactor := sim.applyTreatments(p, facility, now, r)
		sim.refineDiagnosis(p, facility, now, r)

		dwell := sim.sampleDwell(facility, p.TriageCategory, r)
		now = now.Add(hours(dwell))

		dest, err := sim.drawNext(p, facility, carriedKIAFactor, r)
		if err != nil {
			return err
		}
		carriedKIAFactor = nextFactor

		switch dest {
		case catalog.KIAState:
			sim.absorb(p, types.StatusKIA, facility, now)
			return nil
		case catalog.RTDState:
			sim.absorb(p, types.StatusRTD, facility, now)
			return nil
		}

		next, ok := catalog.StateFacility(dest)
		if !ok {
			return &InvariantError{PatientID: p.PatientID, Detail: fmt.Sprintf("draw produced invalid state %d", dest)}
		}

		now = sim.transit(p, facility, next, now, r)
		facility = next
	}
}

// drawNext samples the destination state for the current facility,
// multiplicatively biasing the KIA and RTD columns by the local
// absorption probabilities before renormalizing.
func (sim *Simulator) drawNext(p *types.Patient, facility types.FacilityRole, kiaFactor float64, r *rand.Rand) (int, error) {
	if !sim.scenario.Flags.MarkovRouting {
		return sim.drawLinear(p, facility, kiaFactor, r)
	}

	matrix := sim.catalog.Transitions[p.TriageCategory]
	if matrix == nil {
		return 0, &InvariantError{PatientID: p.PatientID, Detail: fmt.Sprintf("no transition matrix for triage %s", p.TriageCategory)}
	}
	row := matrix.Rows[catalog.StateIndex(facility)]

	pKIA := clamp01(sim.localKIA(facility, p.TriageCategory) * kiaFactor)
	pRTD := clamp01(sim.localRTD(facility, p.TriageCategory))

	weights := make([]float64, catalog.States)
	for j := 0; j < catalog.States; j++ {
		weights[j] = row[j]
	}
	weights[catalog.KIAState] *= pKIA
	weights[catalog.RTDState] *= pRTD

	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		// All mass biased away; renormalize over the terminal states
		// using the raw local probabilities.
		weights[catalog.KIAState] = pKIA
		weights[catalog.RTDState] = pRTD
		sum = pKIA + pRTD
		if sum <= 0 {
			return 0, &InvariantError{PatientID: p.PatientID, Detail: fmt.Sprintf("no reachable state from %s", facility)}
		}
	}

	normalized := 0.0
	for j := range weights {
		weights[j] /= sum
		normalized += weights[j]
	}
	if normalized < 1-rowSumTolerance || normalized > 1+rowSumTolerance {
		return 0, &InvariantError{PatientID: p.PatientID,
			Detail: fmt.Sprintf("biased row for %s normalizes to %.9f", facility, normalized)}
	}

	dest := rng.Categorical(r, weights)
	if dest < 0 {
		return 0, &InvariantError{PatientID: p.PatientID, Detail: fmt.Sprintf("empty draw from %s", facility)}
	}

	// Doctrine special: Role4 dwell expiry without a KIA draw returns
	// the patient to duty.
	if facility == types.FacilityRole4 && dest != catalog.KIAState {
		return catalog.RTDState, nil
	}
	return dest, nil
}

// drawLinear is the non-Markov fallback: marginal KIA then RTD draws at
// the facility boundary, otherwise escalate one role.
func (sim *Simulator) drawLinear(p *types.Patient, facility types.FacilityRole, kiaFactor float64, r *rand.Rand) (int, error) {
	pKIA := clamp01(sim.localKIA(facility, p.TriageCategory) * kiaFactor)
	if r.Float64() < pKIA {
		return catalog.KIAState, nil
	}
	if facility == types.FacilityRole4 {
		return catalog.RTDState, nil
	}
	pRTD := clamp01(sim.localRTD(facility, p.TriageCategory))
	if r.Float64() < pRTD {
		return catalog.RTDState, nil
	}
	return catalog.StateIndex(facility) + 1, nil
}

func (sim *Simulator) localKIA(facility types.FacilityRole, triage types.TriageCategory) float64 {
	return sim.scenario.Facilities[facility].Rates.KIARate * sim.catalog.TriageKIAModifier[triage]
}

func (sim *Simulator) localRTD(facility types.FacilityRole, triage types.TriageCategory) float64 {
	return sim.scenario.Facilities[facility].Rates.RTDRate * sim.catalog.TriageRTDModifier[triage]
}

func (sim *Simulator) sampleDwell(facility types.FacilityRole, triage types.TriageCategory, r *rand.Rand) float64 {
	dwellRange := sim.catalog.DwellRanges[facility][triage]
	return rng.Uniform(r, dwellRange.MinHours, dwellRange.MaxHours)
}

// transit inserts the IN_TRANSIT phase between two facilities:
// evacuation preparation, the transit leg, then arrival.
func (sim *Simulator) transit(p *types.Patient, from, to types.FacilityRole, now time.Time, r *rand.Rand) time.Time {
	evacRange := sim.catalog.EvacRanges[from][p.TriageCategory]
	evac := rng.Uniform(r, evacRange.MinHours, evacRange.MaxHours)

	legRange := sim.catalog.TransitRange(from, to)
	factor := sim.catalog.TriageTransitFactor[p.TriageCategory]
	transit := rng.Uniform(r, legRange.MinHours, legRange.MaxHours) * factor

	p.AppendEvent(types.TimelineEvent{
		Kind:          types.EventEvacuationStart,
		Facility:      from,
		Timestamp:     now,
		NextFacility:  to,
		EvacDurationH: evac,
	})
	now = now.Add(hours(evac))

	p.AppendEvent(types.TimelineEvent{
		Kind:             types.EventTransitStart,
		Timestamp:        now,
		FromFacility:     from,
		ToFacility:       to,
		TransitDurationH: transit,
	})
	p.CurrentStatus = types.StatusInTransit
	now = now.Add(hours(transit))

	p.AppendEvent(types.TimelineEvent{
		Kind:      types.EventArrival,
		Facility:  to,
		Timestamp: now,
		Triage:    p.TriageCategory,
	})
	p.CurrentFacility = to
	p.CurrentStatus = types.StatusAtFacility(to)
	return now
}

// applyTreatments applies the catalog treatment set for the facility and
// injury type, returning the KIA factor carried to the next facility.
func (sim *Simulator) applyTreatments(p *types.Patient, facility types.FacilityRole, now time.Time, r *rand.Rand) float64 {
	specs := sim.catalog.Treatments[facility][p.InjuryType]
	factor := 1.0
	for _, spec := range specs {
		effectiveness := sim.scenario.Effectiveness(spec.Name, spec.Effectiveness)
		succeeded := false
		if sim.scenario.Flags.TreatmentUtility {
			succeeded = r.Float64() < effectiveness
			if succeeded {
				factor *= 1 - spec.Effect
			}
		}
		p.Treatments = append(p.Treatments, types.Treatment{
			Facility:      facility,
			Name:          spec.Name,
			AppliedAt:     now,
			Effectiveness: effectiveness,
			Succeeded:     succeeded,
		})
		p.AppendEvent(types.TimelineEvent{
			Kind:      types.EventTreatment,
			Facility:  facility,
			Timestamp: now,
			Detail:    spec.Name,
		})
	}
	if factor < minKIAFactor {
		factor = minKIAFactor
	}
	return factor
}

// refineDiagnosis emits a diagnostic refinement with probability
// 1-accuracy, swapping the displayed condition within the same clinical
// family.
func (sim *Simulator) refineDiagnosis(p *types.Patient, facility types.FacilityRole, now time.Time, r *rand.Rand) {
	if !sim.scenario.Flags.DiagnosticUncertainty {
		return
	}
	accuracy := sim.scenario.Accuracy(facility, sim.catalog.DiagnosticAccuracy[facility])
	if r.Float64() < accuracy {
		return
	}

	family := sim.catalog.FamilyOf(p.PrimaryCondition.Code)
	members := sim.catalog.Family(family)
	if len(members) < 2 {
		return
	}
	var candidates []catalog.ConditionEntry
	for _, m := range members {
		if m.Code != p.PrimaryCondition.Code {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return
	}
	refined := candidates[r.Intn(len(candidates))].Condition()
	p.PrimaryCondition = refined

	p.Diagnostics = append(p.Diagnostics, types.Diagnostic{
		Facility:  facility,
		Timestamp: now,
		Accuracy:  accuracy,
		Condition: refined,
	})
	p.AppendEvent(types.TimelineEvent{
		Kind:      types.EventDiagnostic,
		Facility:  facility,
		Timestamp: now,
		Detail:    refined.Display,
	})
}

// absorb terminates the trajectory with the KIA or RTD event.
func (sim *Simulator) absorb(p *types.Patient, status types.PatientStatus, facility types.FacilityRole, now time.Time) {
	kind := types.EventRTD
	if status == types.StatusKIA {
		kind = types.EventKIA
	}
	p.AppendEvent(types.TimelineEvent{
		Kind:      kind,
		Facility:  facility,
		Timestamp: now,
	})
	p.CurrentStatus = status
	p.CurrentFacility = facility
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
