// Package scenario resolves user configuration against catalog defaults
// into a frozen ResolvedScenario, failing closed on any invariant
// violation.
package scenario

import (
	"time"

	"github.com/medforge/casgen/internal/catalog"
	"github.com/medforge/casgen/internal/types"
)

// Config is the user-facing scenario configuration, as submitted to the
// generation endpoint.
type Config struct {
	TotalPatients int                `json:"total_patients"`
	Days          int                `json:"days"`
	BaseDate      string             `json:"base_date"`
	InjuryMix     map[string]float64 `json:"injury_mix"`
	WarfareFlags  []string           `json:"warfare_flags,omitempty"`
	Simulation    *SimulationFlags   `json:"simulation_flags,omitempty"`
	Fronts        []FrontConfig      `json:"fronts,omitempty"`
	Facilities    []FacilityConfig   `json:"facilities,omitempty"`
	Overrides     Overrides          `json:"overrides"`
	Output        *OutputConfig      `json:"output,omitempty"`
	Seed          *int64             `json:"seed,omitempty"`
}

// SimulationFlags toggle the optional simulation subsystems. Unset flags
// default to enabled.
type SimulationFlags struct {
	TreatmentUtility      *bool `json:"treatment_utility,omitempty"`
	DiagnosticUncertainty *bool `json:"diagnostic_uncertainty,omitempty"`
	MarkovRouting         *bool `json:"markov_routing,omitempty"`
	WarfareModifiers      *bool `json:"warfare_modifiers,omitempty"`
}

// FrontConfig describes one front. NationalityDistribution values are
// percentages summing to 100 +-0.1; CasualtyShare values sum to 1.0
// across fronts.
type FrontConfig struct {
	Name                    string             `json:"name"`
	NationalityDistribution map[string]float64 `json:"nationality_distribution"`
	CasualtyShare           float64            `json:"casualty_share"`
}

// FacilityConfig overrides the absorption rates for one facility role.
type FacilityConfig struct {
	Role     string   `json:"role"`
	Capacity *int     `json:"capacity,omitempty"`
	KIARate  *float64 `json:"kia_rate,omitempty"`
	RTDRate  *float64 `json:"rtd_rate,omitempty"`
}

// Overrides are the tempo/intensity/effects knobs of a scenario.
type Overrides struct {
	Intensity              string             `json:"intensity,omitempty"`
	Tempo                  string             `json:"tempo,omitempty"`
	SpecialEvents          map[string]bool    `json:"special_events,omitempty"`
	Environment            map[string]bool    `json:"environment,omitempty"`
	TreatmentEffectiveness map[string]float64 `json:"treatment_effectiveness,omitempty"`
	DiagnosticAccuracy     map[string]float64 `json:"diagnostic_accuracy,omitempty"`
	PolytraumaRates        map[string]float64 `json:"polytrauma_rates,omitempty"`
}

// OutputConfig selects output formats and wrappers.
type OutputConfig struct {
	Formats    []string          `json:"formats,omitempty"`
	Gzip       bool              `json:"gzip,omitempty"`
	Encryption *EncryptionConfig `json:"encryption,omitempty"`
}

// EncryptionConfig enables the password-derived encryption wrapper.
type EncryptionConfig struct {
	Enabled  bool   `json:"enabled"`
	Password string `json:"password,omitempty"`
}

// Front is a resolved front with aligned nationality/weight slices for
// categorical sampling.
type Front struct {
	Name          string
	Nationalities []string
	Weights       []float64
	CasualtyShare float64
}

// FacilitySetting is a resolved facility with its absorption rates.
type FacilitySetting struct {
	Rates    catalog.FacilityRates
	Capacity int
}

// SimFlags are the resolved simulation toggles.
type SimFlags struct {
	TreatmentUtility      bool
	DiagnosticUncertainty bool
	MarkovRouting         bool
	WarfareModifiers      bool
}

// ResolvedOutput is the resolved output selection.
type ResolvedOutput struct {
	Formats  []string
	Gzip     bool
	Encrypt  bool
	Password string
}

// ResolvedScenario is frozen at job start and immutable afterwards. All
// weight and probability sums were verified during resolution.
type ResolvedScenario struct {
	TotalPatients int
	Days          int
	BaseDate      time.Time

	InjuryMix map[types.InjuryType]float64

	// WarfareFlags is sorted so warfare-pattern ties break
	// deterministically.
	WarfareFlags []types.WarfarePattern

	Flags SimFlags

	Fronts     []Front
	Facilities map[types.FacilityRole]FacilitySetting

	Intensity       string
	IntensityScalar float64
	Tempo           string

	SpecialEvents map[string]bool
	Environment   map[string]bool

	TreatmentEffectiveness map[string]float64
	DiagnosticAccuracy     map[types.FacilityRole]float64
	PolytraumaRates        map[types.WarfarePattern]float64

	Output ResolvedOutput

	Seed    int64
	HasSeed bool
}

// PolytraumaRate returns the effective polytrauma probability for a
// pattern, preferring the scenario override.
func (s *ResolvedScenario) PolytraumaRate(p types.WarfarePattern, def float64) float64 {
	if v, ok := s.PolytraumaRates[p]; ok {
		return v
	}
	return def
}

// Effectiveness returns the success probability for a treatment,
// preferring the scenario override.
func (s *ResolvedScenario) Effectiveness(name string, def float64) float64 {
	if v, ok := s.TreatmentEffectiveness[name]; ok {
		return v
	}
	return def
}

// Accuracy returns the diagnostic accuracy at a facility, preferring the
// scenario override.
func (s *ResolvedScenario) Accuracy(f types.FacilityRole, def float64) float64 {
	if v, ok := s.DiagnosticAccuracy[f]; ok {
		return v
	}
	return def
}
