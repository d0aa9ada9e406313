package output

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/medforge/casgen/internal/types"
)

// csvColumns is the flattened patient projection. Nested trajectory
// detail stays in the JSON formats; CSV carries the tabular core plus
// counts.
var csvColumns = []string{
	"patient_id",
	"event_id",
	"nationality",
	"front",
	"sex",
	"age_band",
	"blood_type",
	"given_name",
	"family_name",
	"triage_category",
	"injury_type",
	"primary_condition_code",
	"primary_condition_display",
	"additional_condition_codes",
	"heart_rate",
	"systolic_bp",
	"diastolic_bp",
	"respiratory_rate",
	"spo2",
	"gcs",
	"injury_time",
	"current_facility",
	"current_status",
	"timeline_event_count",
	"treatment_count",
	"is_polytrauma",
	"warfare_pattern",
}

// CSVEncoder writes the flattened tabular projection.
type CSVEncoder struct {
	w *csv.Writer
}

// NewCSVEncoder creates a CSV encoder over w.
func NewCSVEncoder(w io.Writer) *CSVEncoder {
	return &CSVEncoder{w: csv.NewWriter(w)}
}

func (e *CSVEncoder) Begin() error {
	return e.w.Write(csvColumns)
}

func (e *CSVEncoder) Encode(p *types.Patient) error {
	codes := make([]string, len(p.AdditionalConditions))
	for i, c := range p.AdditionalConditions {
		codes[i] = c.Code
	}
	return e.w.Write([]string{
		strconv.Itoa(p.PatientID),
		strconv.Itoa(p.EventID),
		p.Nationality,
		p.Front,
		p.Demographics.Sex,
		p.Demographics.AgeBand,
		p.Demographics.BloodType,
		p.Demographics.GivenName,
		p.Demographics.FamilyName,
		string(p.TriageCategory),
		string(p.InjuryType),
		p.PrimaryCondition.Code,
		p.PrimaryCondition.Display,
		strings.Join(codes, ";"),
		strconv.Itoa(p.InitialVitals.HeartRate),
		strconv.Itoa(p.InitialVitals.SystolicBP),
		strconv.Itoa(p.InitialVitals.DiastolicBP),
		strconv.Itoa(p.InitialVitals.RespiratoryRate),
		strconv.Itoa(p.InitialVitals.SpO2),
		strconv.Itoa(p.InitialVitals.GCS),
		p.InjuryTime.UTC().Format(time.RFC3339),
		string(p.CurrentFacility),
		string(p.CurrentStatus),
		strconv.Itoa(len(p.TimelineEvents)),
		strconv.Itoa(len(p.Treatments)),
		strconv.FormatBool(p.PolytraumaIndicators.IsPolytrauma),
		string(p.PolytraumaIndicators.Pattern),
	})
}

func (e *CSVEncoder) End() error {
	e.w.Flush()
	return e.w.Error()
}
