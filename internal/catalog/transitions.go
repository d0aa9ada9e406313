package catalog

import "github.com/medforge/casgen/internal/types"

// State indices for the routing automaton. The observable states are the
// five facilities plus the two absorbing outcomes; IN_TRANSIT is a phase
// between facility states, not a matrix state.
const (
	statePOI = iota
	stateRole1
	stateRole2
	stateRole3
	stateRole4
	stateKIA
	stateRTD
	numStates
)

// Matrix is one square stochastic matrix over the routing states.
type Matrix struct {
	Rows [numStates][numStates]float64
}

// StateIndex returns the matrix index for a facility role.
func StateIndex(f types.FacilityRole) int {
	return facilityIndex(f)
}

func facilityIndex(f types.FacilityRole) int {
	switch f {
	case types.FacilityPOI:
		return statePOI
	case types.FacilityRole1:
		return stateRole1
	case types.FacilityRole2:
		return stateRole2
	case types.FacilityRole3:
		return stateRole3
	case types.FacilityRole4:
		return stateRole4
	}
	return statePOI
}

// StateFacility maps a non-terminal state index back to its facility.
func StateFacility(i int) (types.FacilityRole, bool) {
	switch i {
	case statePOI:
		return types.FacilityPOI, true
	case stateRole1:
		return types.FacilityRole1, true
	case stateRole2:
		return types.FacilityRole2, true
	case stateRole3:
		return types.FacilityRole3, true
	case stateRole4:
		return types.FacilityRole4, true
	}
	return "", false
}

// KIAState and RTDState expose the absorbing indices to the simulator.
const (
	KIAState = stateKIA
	RTDState = stateRTD
	States   = numStates
)

func stateName(i int) string {
	switch i {
	case statePOI:
		return "POI"
	case stateRole1:
		return "Role1"
	case stateRole2:
		return "Role2"
	case stateRole3:
		return "Role3"
	case stateRole4:
		return "Role4"
	case stateKIA:
		return "KIA"
	case stateRTD:
		return "RTD"
	}
	return "?"
}

func identityRow(i int) [numStates]float64 {
	var row [numStates]float64
	row[i] = 1.0
	return row
}

// Default doctrine matrices. The POI row routes nearly all mass through
// Role1; the small direct Role2/Role3 weights model vehicle casualty
// evacuation. Role4 keeps a residual KIA weight with the remainder on RTD
// so the doctrine RTD rule holds on dwell expiry.
var transitionMatrices = map[types.TriageCategory]*Matrix{
	types.TriageT1: {Rows: [numStates][numStates]float64{
		statePOI:   {0, 0.88, 0.03, 0.01, 0, 0.06, 0.02},
		stateRole1: {0, 0, 0.80, 0.05, 0, 0.10, 0.05},
		stateRole2: {0, 0, 0, 0.78, 0.05, 0.09, 0.08},
		stateRole3: {0, 0, 0, 0, 0.55, 0.07, 0.38},
		stateRole4: {0, 0, 0, 0, 0, 0.04, 0.96},
		stateKIA:   identityRow(stateKIA),
		stateRTD:   identityRow(stateRTD),
	}},
	types.TriageT2: {Rows: [numStates][numStates]float64{
		statePOI:   {0, 0.90, 0.02, 0, 0, 0.02, 0.06},
		stateRole1: {0, 0, 0.62, 0.03, 0, 0.03, 0.32},
		stateRole2: {0, 0, 0, 0.45, 0.03, 0.03, 0.49},
		stateRole3: {0, 0, 0, 0, 0.30, 0.03, 0.67},
		stateRole4: {0, 0, 0, 0, 0, 0.02, 0.98},
		stateKIA:   identityRow(stateKIA),
		stateRTD:   identityRow(stateRTD),
	}},
	types.TriageT3: {Rows: [numStates][numStates]float64{
		statePOI:   {0, 0.92, 0.01, 0, 0, 0.005, 0.065},
		stateRole1: {0, 0, 0.25, 0.01, 0, 0.01, 0.73},
		stateRole2: {0, 0, 0, 0.15, 0.01, 0.01, 0.83},
		stateRole3: {0, 0, 0, 0, 0.10, 0.01, 0.89},
		stateRole4: {0, 0, 0, 0, 0, 0.01, 0.99},
		stateKIA:   identityRow(stateKIA),
		stateRTD:   identityRow(stateRTD),
	}},
}
