package catalog

import "github.com/medforge/casgen/internal/types"

// Dwell ranges in hours, keyed by (facility, triage). Urgent casualties
// move faster through forward facilities and dwell longer at definitive
// care.
var dwellRanges = map[types.FacilityRole]map[types.TriageCategory]Range{
	types.FacilityPOI: {
		types.TriageT1: {MinHours: 0.1, MaxHours: 0.5},
		types.TriageT2: {MinHours: 0.2, MaxHours: 1.0},
		types.TriageT3: {MinHours: 0.3, MaxHours: 1.5},
	},
	types.FacilityRole1: {
		types.TriageT1: {MinHours: 0.5, MaxHours: 2.0},
		types.TriageT2: {MinHours: 1.0, MaxHours: 4.0},
		types.TriageT3: {MinHours: 2.0, MaxHours: 8.0},
	},
	types.FacilityRole2: {
		types.TriageT1: {MinHours: 2.0, MaxHours: 8.0},
		types.TriageT2: {MinHours: 4.0, MaxHours: 12.0},
		types.TriageT3: {MinHours: 6.0, MaxHours: 18.0},
	},
	types.FacilityRole3: {
		types.TriageT1: {MinHours: 12.0, MaxHours: 48.0},
		types.TriageT2: {MinHours: 24.0, MaxHours: 72.0},
		types.TriageT3: {MinHours: 24.0, MaxHours: 96.0},
	},
	types.FacilityRole4: {
		types.TriageT1: {MinHours: 48.0, MaxHours: 168.0},
		types.TriageT2: {MinHours: 72.0, MaxHours: 240.0},
		types.TriageT3: {MinHours: 96.0, MaxHours: 336.0},
	},
}

// Evacuation preparation time at the departure facility before the
// transit leg starts.
var evacRanges = map[types.FacilityRole]map[types.TriageCategory]Range{
	types.FacilityPOI: {
		types.TriageT1: {MinHours: 0.1, MaxHours: 0.3},
		types.TriageT2: {MinHours: 0.2, MaxHours: 0.6},
		types.TriageT3: {MinHours: 0.3, MaxHours: 1.0},
	},
	types.FacilityRole1: {
		types.TriageT1: {MinHours: 0.2, MaxHours: 0.5},
		types.TriageT2: {MinHours: 0.3, MaxHours: 1.0},
		types.TriageT3: {MinHours: 0.5, MaxHours: 1.5},
	},
	types.FacilityRole2: {
		types.TriageT1: {MinHours: 0.3, MaxHours: 1.0},
		types.TriageT2: {MinHours: 0.5, MaxHours: 1.5},
		types.TriageT3: {MinHours: 0.5, MaxHours: 2.0},
	},
	types.FacilityRole3: {
		types.TriageT1: {MinHours: 0.5, MaxHours: 2.0},
		types.TriageT2: {MinHours: 1.0, MaxHours: 3.0},
		types.TriageT3: {MinHours: 1.0, MaxHours: 4.0},
	},
	types.FacilityRole4: {
		types.TriageT1: {MinHours: 0.5, MaxHours: 2.0},
		types.TriageT2: {MinHours: 1.0, MaxHours: 3.0},
		types.TriageT3: {MinHours: 1.0, MaxHours: 4.0},
	},
}

// Transit leg base times in hours for the directed evacuation legs.
// Legs not present fall back to a distance-derived range.
var transitLegs = map[Leg]Range{
	{From: types.FacilityPOI, To: types.FacilityRole1}:   {MinHours: 0.25, MaxHours: 1.5},
	{From: types.FacilityPOI, To: types.FacilityRole2}:   {MinHours: 0.5, MaxHours: 2.5},
	{From: types.FacilityPOI, To: types.FacilityRole3}:   {MinHours: 1.0, MaxHours: 4.0},
	{From: types.FacilityRole1, To: types.FacilityRole2}: {MinHours: 0.5, MaxHours: 2.0},
	{From: types.FacilityRole1, To: types.FacilityRole3}: {MinHours: 1.0, MaxHours: 4.0},
	{From: types.FacilityRole2, To: types.FacilityRole3}: {MinHours: 1.0, MaxHours: 4.0},
	{From: types.FacilityRole2, To: types.FacilityRole4}: {MinHours: 4.0, MaxHours: 12.0},
	{From: types.FacilityRole3, To: types.FacilityRole4}: {MinHours: 4.0, MaxHours: 12.0},
}

// Urgent casualties get priority lift.
var triageTransitFactor = map[types.TriageCategory]float64{
	types.TriageT1: 0.7,
	types.TriageT2: 1.0,
	types.TriageT3: 1.3,
}

var triageKIAModifier = map[types.TriageCategory]float64{
	types.TriageT1: 1.5,
	types.TriageT2: 1.0,
	types.TriageT3: 0.5,
}

var triageRTDModifier = map[types.TriageCategory]float64{
	types.TriageT1: 0.5,
	types.TriageT2: 1.0,
	types.TriageT3: 1.5,
}

// Default per-facility absorption rates when the scenario does not
// override them.
var defaultFacilityRates = map[types.FacilityRole]FacilityRates{
	types.FacilityPOI:   {KIARate: 0.025, RTDRate: 0.01},
	types.FacilityRole1: {KIARate: 0.02, RTDRate: 0.15},
	types.FacilityRole2: {KIARate: 0.015, RTDRate: 0.20},
	types.FacilityRole3: {KIARate: 0.01, RTDRate: 0.25},
	types.FacilityRole4: {KIARate: 0.005, RTDRate: 0.60},
}

// Per-role diagnostic accuracy for condition refinement.
var diagnosticAccuracy = map[types.FacilityRole]float64{
	types.FacilityPOI:   0.60,
	types.FacilityRole1: 0.75,
	types.FacilityRole2: 0.85,
	types.FacilityRole3: 0.95,
	types.FacilityRole4: 0.99,
}

// VitalBand is the initial vital-sign sampling band for a triage
// category.
type VitalBand struct {
	HeartRate  [2]int
	SystolicBP [2]int
	Diastolic  [2]int
	RespRate   [2]int
	SpO2       [2]int
	GCS        [2]int
}

var vitalBands = map[types.TriageCategory]VitalBand{
	// Hypotensive, tachycardic.
	types.TriageT1: {
		HeartRate:  [2]int{120, 160},
		SystolicBP: [2]int{60, 90},
		Diastolic:  [2]int{35, 60},
		RespRate:   [2]int{24, 40},
		SpO2:       [2]int{78, 92},
		GCS:        [2]int{6, 12},
	},
	types.TriageT2: {
		HeartRate:  [2]int{95, 125},
		SystolicBP: [2]int{90, 115},
		Diastolic:  [2]int{55, 75},
		RespRate:   [2]int{18, 26},
		SpO2:       [2]int{90, 96},
		GCS:        [2]int{11, 14},
	},
	// Near baseline.
	types.TriageT3: {
		HeartRate:  [2]int{70, 100},
		SystolicBP: [2]int{110, 135},
		Diastolic:  [2]int{65, 85},
		RespRate:   [2]int{12, 20},
		SpO2:       [2]int{95, 100},
		GCS:        [2]int{14, 15},
	},
}

// TreatmentSpec is a catalog treatment applied on facility entry.
// Effect is the multiplicative reduction applied to the next facility's
// local KIA probability when the treatment succeeds.
type TreatmentSpec struct {
	Name          string
	Effectiveness float64
	Effect        float64
}

var treatmentSets = map[types.FacilityRole]map[types.InjuryType][]TreatmentSpec{
	types.FacilityPOI: {
		types.InjuryBattle: {
			{Name: "Tourniquet application", Effectiveness: 0.85, Effect: 0.25},
			{Name: "Hemostatic dressing", Effectiveness: 0.75, Effect: 0.15},
		},
		types.InjuryNonBattle: {
			{Name: "Field dressing", Effectiveness: 0.80, Effect: 0.10},
		},
		types.InjuryDisease: {
			{Name: "Oral rehydration", Effectiveness: 0.70, Effect: 0.05},
		},
	},
	types.FacilityRole1: {
		types.InjuryBattle: {
			{Name: "IV fluid resuscitation", Effectiveness: 0.80, Effect: 0.20},
			{Name: "Airway management", Effectiveness: 0.85, Effect: 0.15},
			{Name: "Analgesia", Effectiveness: 0.90, Effect: 0.02},
		},
		types.InjuryNonBattle: {
			{Name: "Splinting", Effectiveness: 0.85, Effect: 0.05},
			{Name: "Analgesia", Effectiveness: 0.90, Effect: 0.02},
		},
		types.InjuryDisease: {
			{Name: "Empiric antibiotics", Effectiveness: 0.75, Effect: 0.10},
		},
	},
	types.FacilityRole2: {
		types.InjuryBattle: {
			{Name: "Damage control surgery", Effectiveness: 0.70, Effect: 0.30},
			{Name: "Blood transfusion", Effectiveness: 0.80, Effect: 0.20},
		},
		types.InjuryNonBattle: {
			{Name: "Surgical debridement", Effectiveness: 0.80, Effect: 0.10},
		},
		types.InjuryDisease: {
			{Name: "Targeted antimicrobials", Effectiveness: 0.80, Effect: 0.10},
		},
	},
	types.FacilityRole3: {
		types.InjuryBattle: {
			{Name: "Definitive surgery", Effectiveness: 0.85, Effect: 0.30},
			{Name: "Intensive care", Effectiveness: 0.80, Effect: 0.25},
		},
		types.InjuryNonBattle: {
			{Name: "Orthopedic fixation", Effectiveness: 0.85, Effect: 0.10},
		},
		types.InjuryDisease: {
			{Name: "Specialist internal medicine", Effectiveness: 0.85, Effect: 0.10},
		},
	},
	types.FacilityRole4: {
		types.InjuryBattle: {
			{Name: "Reconstructive surgery", Effectiveness: 0.90, Effect: 0.20},
			{Name: "Rehabilitation program", Effectiveness: 0.95, Effect: 0.05},
		},
		types.InjuryNonBattle: {
			{Name: "Rehabilitation program", Effectiveness: 0.95, Effect: 0.05},
		},
		types.InjuryDisease: {
			{Name: "Convalescent care", Effectiveness: 0.95, Effect: 0.05},
		},
	},
}
