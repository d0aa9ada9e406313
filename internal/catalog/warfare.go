package catalog

import "github.com/medforge/casgen/internal/types"

// WarfareSpec is the pattern table for one warfare model: polytrauma
// rate, severity and mortality multipliers, a triage skew, a weighting
// overlay on battle injury codes, and the correlated set polytrauma
// draws from.
//
// Flags without a spec here (naval, cbrn, peacekeeping) are rejected at
// scenario validation; they must not silently fall back to conventional.
type WarfareSpec struct {
	Pattern             types.WarfarePattern
	PolytraumaRate      float64
	SeverityMultiplier  float64
	MortalityMultiplier float64
	// TriageWeights are relative weights for T1, T2, T3 in that order.
	TriageWeights [3]float64
	// InjuryOverlay multiplies the base weight of matching codes.
	InjuryOverlay map[string]float64
	// CorrelatedCodes are the codes additional polytrauma injuries are
	// drawn from.
	CorrelatedCodes []string
}

var warfareSpecs = map[types.WarfarePattern]*WarfareSpec{
	types.WarfareConventional: {
		Pattern:             types.WarfareConventional,
		PolytraumaRate:      0.20,
		SeverityMultiplier:  1.0,
		MortalityMultiplier: 1.0,
		TriageWeights:       [3]float64{25, 40, 35},
		InjuryOverlay: map[string]float64{
			"125689001": 1.5, // gunshot
			"283545005": 1.3,
			"262525000": 1.2, // shrapnel
		},
		CorrelatedCodes: []string{"125605004", "50960005", "262525000"},
	},
	types.WarfareArtillery: {
		Pattern:             types.WarfareArtillery,
		PolytraumaRate:      0.45,
		SeverityMultiplier:  1.4,
		MortalityMultiplier: 1.3,
		// Artillery skews T1.
		TriageWeights: [3]float64{45, 35, 20},
		InjuryOverlay: map[string]float64{
			"446979005": 3.0, // blast
			"262525000": 2.5, // shrapnel
			"283682007": 2.0,
			"55566008":  1.8, // amputation
			"110030002": 1.5, // concussive TBI
		},
		CorrelatedCodes: []string{"262525000", "110030002", "50960005", "125666000", "55566008"},
	},
	types.WarfareUrban: {
		Pattern:             types.WarfareUrban,
		PolytraumaRate:      0.30,
		SeverityMultiplier:  1.2,
		MortalityMultiplier: 1.15,
		TriageWeights:       [3]float64{32, 38, 30},
		InjuryOverlay: map[string]float64{
			"125689001": 2.0, // gunshot
			"125670008": 2.0, // crush
			"125605004": 1.5, // fracture
			"127295002": 1.4,
		},
		CorrelatedCodes: []string{"125670008", "125605004", "50960005", "127295002"},
	},
	types.WarfareGuerrilla: {
		Pattern:             types.WarfareGuerrilla,
		PolytraumaRate:      0.25,
		SeverityMultiplier:  1.1,
		MortalityMultiplier: 1.05,
		TriageWeights:       [3]float64{28, 37, 35},
		InjuryOverlay: map[string]float64{
			"446979005": 2.0, // IED blast
			"125689001": 1.8,
			"55566008":  1.6,
		},
		CorrelatedCodes: []string{"446979005", "55566008", "50960005", "110030002"},
	},
	types.WarfareDrone: {
		Pattern:             types.WarfareDrone,
		PolytraumaRate:      0.35,
		SeverityMultiplier:  1.25,
		MortalityMultiplier: 1.2,
		TriageWeights:       [3]float64{38, 36, 26},
		InjuryOverlay: map[string]float64{
			"446979005": 2.5, // blast
			"262525000": 2.2,
			"125666000": 1.8, // burn
		},
		CorrelatedCodes: []string{"262525000", "125666000", "50960005", "110030002"},
	},
}
