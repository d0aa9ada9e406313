package catalog

import "github.com/medforge/casgen/internal/types"

// ConditionEntry is one SNOMED-coded condition with its sampling weight
// and clinical family. Diagnostic refinement only swaps conditions within
// the same family.
type ConditionEntry struct {
	Code    string
	Display string
	Family  string
	Weight  float64
}

// Condition returns the entry as the output condition type.
func (e ConditionEntry) Condition() types.Condition {
	return types.Condition{Code: e.Code, Display: e.Display}
}

var conditionSets = map[types.InjuryType][]ConditionEntry{
	types.InjuryBattle: {
		{Code: "125689001", Display: "Gunshot wound", Family: "gsw", Weight: 18},
		{Code: "283545005", Display: "Gunshot wound of thorax", Family: "gsw", Weight: 6},
		{Code: "125605004", Display: "Fracture of bone", Family: "fracture", Weight: 10},
		{Code: "55566008", Display: "Traumatic amputation of limb", Family: "amputation", Weight: 5},
		{Code: "446979005", Display: "Blast injury", Family: "blast", Weight: 14},
		{Code: "125666000", Display: "Burn injury", Family: "burn", Weight: 8},
		{Code: "110030002", Display: "Concussive brain injury", Family: "tbi", Weight: 9},
		{Code: "127295002", Display: "Traumatic brain injury", Family: "tbi", Weight: 4},
		{Code: "262525000", Display: "Shrapnel wound", Family: "fragment", Weight: 16},
		{Code: "283682007", Display: "Penetrating fragment wound of abdomen", Family: "fragment", Weight: 7},
		{Code: "50960005", Display: "Hemorrhage", Family: "hemorrhage", Weight: 10},
		{Code: "271594007", Display: "Hypovolemic shock", Family: "hemorrhage", Weight: 4},
		{Code: "125670008", Display: "Crush injury", Family: "crush", Weight: 6},
		{Code: "443011008", Display: "Penetrating eye injury", Family: "eye", Weight: 2},
		{Code: "23924001", Display: "Tension pneumothorax", Family: "thoracic", Weight: 4},
	},
	types.InjuryNonBattle: {
		{Code: "125605004", Display: "Fracture of bone", Family: "fracture", Weight: 14},
		{Code: "44465007", Display: "Sprain of ankle", Family: "msk", Weight: 12},
		{Code: "262574004", Display: "Bruise of skin", Family: "msk", Weight: 8},
		{Code: "284196006", Display: "Burn of skin", Family: "burn", Weight: 6},
		{Code: "242001008", Display: "Fall from height", Family: "fall", Weight: 9},
		{Code: "217082002", Display: "Accidental fall", Family: "fall", Weight: 8},
		{Code: "40095003", Display: "Injury of knee", Family: "msk", Weight: 9},
		{Code: "125593007", Display: "Injury of head", Family: "tbi", Weight: 5},
		{Code: "370977006", Display: "Heat exhaustion", Family: "environmental", Weight: 7},
		{Code: "27836007", Display: "Hypothermia", Family: "environmental", Weight: 4},
		{Code: "218081001", Display: "Road traffic accident injury", Family: "vehicle", Weight: 10},
	},
	types.InjuryDisease: {
		{Code: "25374005", Display: "Gastroenteritis", Family: "gi", Weight: 15},
		{Code: "43878008", Display: "Streptococcal pharyngitis", Family: "respiratory", Weight: 9},
		{Code: "233604007", Display: "Pneumonia", Family: "respiratory", Weight: 8},
		{Code: "6142004", Display: "Influenza", Family: "respiratory", Weight: 12},
		{Code: "38362002", Display: "Dengue fever", Family: "infectious", Weight: 4},
		{Code: "76272004", Display: "Syphilis", Family: "infectious", Weight: 2},
		{Code: "91302008", Display: "Sepsis", Family: "infectious", Weight: 3},
		{Code: "235595009", Display: "Gastroesophageal reflux disease", Family: "gi", Weight: 6},
		{Code: "35489007", Display: "Depressive disorder", Family: "behavioral", Weight: 7},
		{Code: "47505003", Display: "Post-traumatic stress disorder", Family: "behavioral", Weight: 5},
		{Code: "63102001", Display: "Visual impairment", Family: "eye", Weight: 3},
		{Code: "56717001", Display: "Tuberculosis", Family: "infectious", Weight: 2},
		{Code: "195967001", Display: "Asthma", Family: "respiratory", Weight: 6},
	},
}
