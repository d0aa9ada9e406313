// Package types defines the shared domain model for casualty generation.
package types

import "time"

// TriageCategory is the urgency band assigned to a casualty. T1 is most urgent.
type TriageCategory string

const (
	TriageT1 TriageCategory = "T1"
	TriageT2 TriageCategory = "T2"
	TriageT3 TriageCategory = "T3"
)

// InjuryType classifies how the casualty was produced.
type InjuryType string

const (
	InjuryDisease   InjuryType = "Disease"
	InjuryNonBattle InjuryType = "Non-Battle Injury"
	InjuryBattle    InjuryType = "Battle Injury"
)

// FacilityRole is a tier in the medical evacuation chain.
type FacilityRole string

const (
	FacilityPOI   FacilityRole = "POI"
	FacilityRole1 FacilityRole = "Role1"
	FacilityRole2 FacilityRole = "Role2"
	FacilityRole3 FacilityRole = "Role3"
	FacilityRole4 FacilityRole = "Role4"
)

// PatientStatus is the observable state of a patient trajectory.
type PatientStatus string

const (
	StatusAtPOI     PatientStatus = "AT_POI"
	StatusInTransit PatientStatus = "IN_TRANSIT"
	StatusAtRole1   PatientStatus = "AT_ROLE1"
	StatusAtRole2   PatientStatus = "AT_ROLE2"
	StatusAtRole3   PatientStatus = "AT_ROLE3"
	StatusAtRole4   PatientStatus = "AT_ROLE4"
	StatusKIA       PatientStatus = "KIA"
	StatusRTD       PatientStatus = "RTD"
)

// Terminal reports whether the status is an absorbing outcome.
func (s PatientStatus) Terminal() bool {
	return s == StatusKIA || s == StatusRTD
}

// StatusAtFacility maps a facility role to its AT_* patient status.
func StatusAtFacility(f FacilityRole) PatientStatus {
	switch f {
	case FacilityPOI:
		return StatusAtPOI
	case FacilityRole1:
		return StatusAtRole1
	case FacilityRole2:
		return StatusAtRole2
	case FacilityRole3:
		return StatusAtRole3
	case FacilityRole4:
		return StatusAtRole4
	}
	return StatusAtPOI
}

// WarfarePattern identifies the warfare model applied to a battle injury.
type WarfarePattern string

const (
	WarfareConventional WarfarePattern = "conventional"
	WarfareArtillery    WarfarePattern = "artillery"
	WarfareUrban        WarfarePattern = "urban"
	WarfareGuerrilla    WarfarePattern = "guerrilla"
	WarfareDrone        WarfarePattern = "drone"
	WarfareNaval        WarfarePattern = "naval"
	WarfareCBRN         WarfarePattern = "cbrn"
	WarfarePeacekeeping WarfarePattern = "peacekeeping"
)

// Condition is a SNOMED-coded clinical condition.
type Condition struct {
	Code    string `json:"code"`
	Display string `json:"display"`
}

// Demographics describes the identity attributes drawn from a nationality pool.
type Demographics struct {
	Sex        string `json:"sex"`
	AgeBand    string `json:"age_band"`
	BloodType  string `json:"blood_type"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// Vitals is a point-in-time vital sign set. Initial vitals are derived
// from the triage category band in the catalog.
type Vitals struct {
	HeartRate       int `json:"heart_rate"`
	SystolicBP      int `json:"systolic_bp"`
	DiastolicBP     int `json:"diastolic_bp"`
	RespiratoryRate int `json:"respiratory_rate"`
	SpO2            int `json:"spo2"`
	GCS             int `json:"gcs"`
}

// TimelineEvent kinds. Timeline entries are append-only with monotone
// timestamps per patient.
const (
	EventArrival         = "arrival"
	EventEvacuationStart = "evacuation_start"
	EventTransitStart    = "transit_start"
	EventTreatment       = "treatment"
	EventDiagnostic      = "diagnostic_refinement"
	EventRTD             = "rtd"
	EventKIA             = "kia"
)

// TimelineEvent is a single entry in a patient trajectory.
type TimelineEvent struct {
	Kind             string         `json:"kind"`
	Facility         FacilityRole   `json:"facility,omitempty"`
	Timestamp        time.Time      `json:"timestamp"`
	HoursSinceInjury float64        `json:"hours_since_injury"`
	NextFacility     FacilityRole   `json:"next_facility,omitempty"`
	FromFacility     FacilityRole   `json:"from_facility,omitempty"`
	ToFacility       FacilityRole   `json:"to_facility,omitempty"`
	EvacDurationH    float64        `json:"evacuation_duration_hours,omitempty"`
	TransitDurationH float64        `json:"transit_duration_hours,omitempty"`
	Triage           TriageCategory `json:"triage_category,omitempty"`
	Detail           string         `json:"detail,omitempty"`
}

// Treatment records an intervention applied at a facility.
type Treatment struct {
	Facility      FacilityRole `json:"facility"`
	Name          string       `json:"name"`
	AppliedAt     time.Time    `json:"applied_at"`
	Effectiveness float64      `json:"effectiveness"`
	Succeeded     bool         `json:"succeeded"`
}

// Diagnostic records a diagnostic refinement at a facility.
type Diagnostic struct {
	Facility  FacilityRole `json:"facility"`
	Timestamp time.Time    `json:"timestamp"`
	Accuracy  float64      `json:"accuracy"`
	Condition Condition    `json:"condition"`
}

// PolytraumaIndicators summarizes multi-injury state for a patient.
type PolytraumaIndicators struct {
	IsPolytrauma   bool           `json:"is_polytrauma"`
	ConditionCount int            `json:"condition_count"`
	Pattern        WarfarePattern `json:"warfare_pattern,omitempty"`
}

// Patient is one generated casualty record. A patient is owned by the
// worker that created it until handed to the serializer; after handoff it
// is never mutated.
type Patient struct {
	PatientID   int    `json:"patient_id"`
	EventID     int    `json:"event_id"`
	Nationality string `json:"nationality"`
	Front       string `json:"front"`

	Demographics Demographics `json:"demographics"`

	TriageCategory       TriageCategory `json:"triage_category"`
	InjuryType           InjuryType     `json:"injury_type"`
	PrimaryCondition     Condition      `json:"primary_condition"`
	AdditionalConditions []Condition    `json:"additional_conditions"`
	InitialVitals        Vitals         `json:"initial_vitals"`
	InjuryTime           time.Time      `json:"injury_time"`

	CurrentFacility FacilityRole  `json:"current_facility,omitempty"`
	CurrentStatus   PatientStatus `json:"current_status"`

	TimelineEvents []TimelineEvent `json:"timeline_events"`
	Treatments     []Treatment     `json:"treatments"`
	Diagnostics    []Diagnostic    `json:"diagnostics,omitempty"`

	PolytraumaIndicators PolytraumaIndicators `json:"polytrauma_indicators"`
}

// AppendEvent appends a timeline event, keeping the hours-since-injury
// field consistent with the injury time.
func (p *Patient) AppendEvent(ev TimelineEvent) {
	ev.HoursSinceInjury = ev.Timestamp.Sub(p.InjuryTime).Hours()
	p.TimelineEvents = append(p.TimelineEvents, ev)
}
