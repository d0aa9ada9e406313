// Package catalog holds the immutable reference tables for casualty
// generation: facility hierarchy, evacuation and transit time ranges,
// triage modifiers, nationality name pools, SNOMED code sets, warfare
// pattern tables, and the per-triage facility transition matrices.
//
// The catalog is loaded once per process and shared read-only across
// jobs; it is safe for concurrent readers.
package catalog

import (
	"fmt"
	"sync"

	"github.com/medforge/casgen/internal/types"
)

// Range is an inclusive-exclusive hour interval used for dwell, transit
// and evacuation sampling.
type Range struct {
	MinHours float64
	MaxHours float64
}

// FacilityRates are the default per-facility absorption rates, combined
// multiplicatively with the triage modifiers into local probabilities.
type FacilityRates struct {
	KIARate float64
	RTDRate float64
}

// EnvEffect describes an environmental condition's damping of the hourly
// casualty weights. NightFactor applies only to night hours (22:00-05:00),
// AllFactor to every hour.
type EnvEffect struct {
	AllFactor   float64
	NightFactor float64
}

// InvariantError is a fatal catalog load error.
type InvariantError struct {
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s", types.ErrKindCatalogInvariant, e.Detail)
}

// Catalog is the read-only aggregate of all reference data.
type Catalog struct {
	Facilities []types.FacilityRole

	DwellRanges map[types.FacilityRole]map[types.TriageCategory]Range
	EvacRanges  map[types.FacilityRole]map[types.TriageCategory]Range

	// TransitLegs is keyed by directed leg. TriageTransitFactor scales
	// the sampled leg time by urgency.
	TransitLegs         map[Leg]Range
	TriageTransitFactor map[types.TriageCategory]float64

	TriageKIAModifier map[types.TriageCategory]float64
	TriageRTDModifier map[types.TriageCategory]float64

	DefaultFacilityRates map[types.FacilityRole]FacilityRates

	NamePools map[string]*NamePool

	Conditions map[types.InjuryType][]ConditionEntry
	families   map[string][]ConditionEntry

	Warfare map[types.WarfarePattern]*WarfareSpec

	Transitions map[types.TriageCategory]*Matrix

	DiagnosticAccuracy map[types.FacilityRole]float64

	VitalBands map[types.TriageCategory]VitalBand

	Treatments map[types.FacilityRole]map[types.InjuryType][]TreatmentSpec

	IntensityScalar map[string]float64
	TempoNames      []string
	Environment     map[string]EnvEffect
	SpecialEvents   []string
}

// Leg is a directed transit leg between facilities.
type Leg struct {
	From types.FacilityRole
	To   types.FacilityRole
}

var (
	loadOnce sync.Once
	loaded   *Catalog
	loadErr  error
)

// Load returns the process-wide catalog, building and verifying it on
// first use. A verification failure is fatal to the process per the
// CATALOG_INVARIANT error contract.
func Load() (*Catalog, error) {
	loadOnce.Do(func() {
		c := build()
		if err := c.Verify(); err != nil {
			loadErr = err
			return
		}
		loaded = c
	})
	return loaded, loadErr
}

func build() *Catalog {
	c := &Catalog{
		Facilities: []types.FacilityRole{
			types.FacilityPOI,
			types.FacilityRole1,
			types.FacilityRole2,
			types.FacilityRole3,
			types.FacilityRole4,
		},
		DwellRanges:          dwellRanges,
		EvacRanges:           evacRanges,
		TransitLegs:          transitLegs,
		TriageTransitFactor:  triageTransitFactor,
		TriageKIAModifier:    triageKIAModifier,
		TriageRTDModifier:    triageRTDModifier,
		DefaultFacilityRates: defaultFacilityRates,
		NamePools:            namePools,
		Conditions:           conditionSets,
		Warfare:              warfareSpecs,
		Transitions:          transitionMatrices,
		DiagnosticAccuracy:   diagnosticAccuracy,
		VitalBands:           vitalBands,
		Treatments:           treatmentSets,
		IntensityScalar: map[string]float64{
			"low":     0.5,
			"medium":  1.0,
			"high":    1.5,
			"extreme": 2.0,
		},
		TempoNames: []string{"sustained", "escalating", "surge", "declining", "intermittent"},
		Environment: map[string]EnvEffect{
			"night_operations":    {AllFactor: 1.0, NightFactor: 0.7},
			"extreme_weather":     {AllFactor: 0.85, NightFactor: 1.0},
			"mountainous_terrain": {AllFactor: 0.9, NightFactor: 1.0},
			"urban_environment":   {AllFactor: 1.1, NightFactor: 1.0},
		},
		SpecialEvents: []string{"major_offensive", "ambush", "mass_casualty"},
	}

	c.families = make(map[string][]ConditionEntry)
	for _, entries := range c.Conditions {
		for _, e := range entries {
			c.families[e.Family] = append(c.families[e.Family], e)
		}
	}
	return c
}

// Family returns all condition entries in a clinical family. Used by
// diagnostic refinement to swap the displayed condition within a family.
func (c *Catalog) Family(name string) []ConditionEntry {
	return c.families[name]
}

// FamilyOf returns the clinical family for a SNOMED code, or "".
func (c *Catalog) FamilyOf(code string) string {
	for _, entries := range c.Conditions {
		for _, e := range entries {
			if e.Code == code {
				return e.Family
			}
		}
	}
	return ""
}

// TransitRange returns the sampled-time range for a directed leg,
// falling back to a distance-derived range when the leg is not in the
// table.
func (c *Catalog) TransitRange(from, to types.FacilityRole) Range {
	if r, ok := c.TransitLegs[Leg{From: from, To: to}]; ok {
		return r
	}
	hops := float64(facilityIndex(to) - facilityIndex(from))
	if hops < 1 {
		hops = 1
	}
	return Range{MinHours: 0.5 * hops, MaxHours: 2.0 * hops}
}

// SupportedWarfare reports whether a pattern has a full warfare table.
// Flags without tables must fail scenario validation rather than default
// silently.
func (c *Catalog) SupportedWarfare(p types.WarfarePattern) bool {
	_, ok := c.Warfare[p]
	return ok
}

// Verify checks the load-time catalog invariants: every transition row
// sums to 1 within 1e-9, absorbing rows are identity, and the POI row
// follows default doctrine (>=0.85 mass on Role1, <=0.04 on any direct
// Role>=2 route).
func (c *Catalog) Verify() error {
	for triage, m := range c.Transitions {
		for i := 0; i < numStates; i++ {
			sum := 0.0
			for j := 0; j < numStates; j++ {
				v := m.Rows[i][j]
				if v < 0 {
					return &InvariantError{Detail: fmt.Sprintf("negative weight in %s row %s", triage, stateName(i))}
				}
				sum += v
			}
			if sum < 1-1e-9 || sum > 1+1e-9 {
				return &InvariantError{Detail: fmt.Sprintf("%s row %s sums to %.12f", triage, stateName(i), sum)}
			}
		}
		for _, absorbing := range []int{stateKIA, stateRTD} {
			for j := 0; j < numStates; j++ {
				want := 0.0
				if j == absorbing {
					want = 1.0
				}
				if m.Rows[absorbing][j] != want {
					return &InvariantError{Detail: fmt.Sprintf("%s absorbing row %s is not identity", triage, stateName(absorbing))}
				}
			}
		}
		poi := m.Rows[statePOI]
		if poi[stateRole1] < 0.85 {
			return &InvariantError{Detail: fmt.Sprintf("%s POI row places %.3f on Role1, need >= 0.85", triage, poi[stateRole1])}
		}
		for _, j := range []int{stateRole2, stateRole3, stateRole4} {
			if poi[j] > 0.04 {
				return &InvariantError{Detail: fmt.Sprintf("%s POI row places %.3f on %s, max 0.04", triage, poi[j], stateName(j))}
			}
		}
	}

	for nat, pool := range c.NamePools {
		if len(pool.FamilyNames) == 0 || len(pool.GivenMale) == 0 || len(pool.GivenFemale) == 0 {
			return &InvariantError{Detail: fmt.Sprintf("name pool %s is incomplete", nat)}
		}
	}

	for injuryType, entries := range c.Conditions {
		if len(entries) == 0 {
			return &InvariantError{Detail: fmt.Sprintf("no conditions for injury type %q", injuryType)}
		}
	}

	for pattern, spec := range c.Warfare {
		if spec.PolytraumaRate < 0 || spec.PolytraumaRate > 1 {
			return &InvariantError{Detail: fmt.Sprintf("warfare %s polytrauma rate out of range", pattern)}
		}
		var sum float64
		for _, w := range spec.TriageWeights {
			sum += w
		}
		if sum <= 0 {
			return &InvariantError{Detail: fmt.Sprintf("warfare %s triage weights empty", pattern)}
		}
	}

	return nil
}
