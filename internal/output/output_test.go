package output

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/medforge/casgen/internal/analysis"
	"github.com/medforge/casgen/internal/scenario"
	"github.com/medforge/casgen/internal/types"
)

func samplePatient(id int) *types.Patient {
	injured := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	p := &types.Patient{
		PatientID:   id,
		EventID:     id,
		Nationality: "USA",
		Front:       "Main Front",
		Demographics: types.Demographics{
			Sex: "M", AgeBand: "25-34", BloodType: "O+",
			GivenName: "John", FamilyName: "Doe",
		},
		TriageCategory:       types.TriageT2,
		InjuryType:           types.InjuryBattle,
		PrimaryCondition:     types.Condition{Code: "125670008", Display: "War injury"},
		AdditionalConditions: []types.Condition{},
		InjuryTime:           injured,
		CurrentFacility:      types.FacilityRole2,
		CurrentStatus:        types.StatusRTD,
		TimelineEvents:       []types.TimelineEvent{},
		Treatments:           []types.Treatment{},
	}
	p.AppendEvent(types.TimelineEvent{
		Kind: types.EventArrival, Facility: types.FacilityPOI, Timestamp: injured,
	})
	p.AppendEvent(types.TimelineEvent{
		Kind: types.EventRTD, Facility: types.FacilityRole2, Timestamp: injured.Add(6 * time.Hour),
	})
	return p
}

func TestNDJSONEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewNDJSONEncoder(&buf)

	if err := enc.Begin(); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if err := enc.Encode(samplePatient(i)); err != nil {
			t.Fatalf("encode failed: %v", err)
		}
	}
	if err := enc.End(); err != nil {
		t.Fatalf("end failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for i, line := range lines {
		var p types.Patient
		if err := json.Unmarshal([]byte(line), &p); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", i, err)
		}
		if p.PatientID != i+1 {
			t.Errorf("line %d has patient_id %d", i, p.PatientID)
		}
	}
}

func TestJSONArrayEncoder(t *testing.T) {
	t.Run("empty cohort", func(t *testing.T) {
		var buf bytes.Buffer
		enc := NewJSONArrayEncoder(&buf)
		if err := enc.Begin(); err != nil {
			t.Fatal(err)
		}
		if err := enc.End(); err != nil {
			t.Fatal(err)
		}
		if buf.String() != "[]" {
			t.Errorf("expected [], got %q", buf.String())
		}
	})

	t.Run("cohort round trip", func(t *testing.T) {
		var buf bytes.Buffer
		enc := NewJSONArrayEncoder(&buf)
		enc.Begin()
		for i := 1; i <= 3; i++ {
			if err := enc.Encode(samplePatient(i)); err != nil {
				t.Fatal(err)
			}
		}
		if err := enc.End(); err != nil {
			t.Fatal(err)
		}

		var patients []types.Patient
		if err := json.Unmarshal(buf.Bytes(), &patients); err != nil {
			t.Fatalf("output is not a valid JSON array: %v", err)
		}
		if len(patients) != 3 {
			t.Fatalf("expected 3 patients, got %d", len(patients))
		}
	})
}

func TestCSVEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewCSVEncoder(&buf)

	enc.Begin()
	p := samplePatient(1)
	p.AdditionalConditions = []types.Condition{{Code: "7200002", Display: "Burn"}}
	if err := enc.Encode(p); err != nil {
		t.Fatal(err)
	}
	if err := enc.End(); err != nil {
		t.Fatal(err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header plus one row, got %d records", len(records))
	}
	if len(records[0]) != len(csvColumns) {
		t.Errorf("header has %d columns, want %d", len(records[0]), len(csvColumns))
	}
	row := records[1]
	if row[0] != "1" || row[2] != "USA" {
		t.Errorf("unexpected row start: %v", row[:4])
	}
	if row[13] != "7200002" {
		t.Errorf("additional condition codes = %q", row[13])
	}
	if row[23] != strconv.Itoa(len(p.TimelineEvents)) {
		t.Errorf("timeline_event_count = %q", row[23])
	}
}

func TestFilename(t *testing.T) {
	cases := []struct {
		out  scenario.ResolvedOutput
		want string
	}{
		{scenario.ResolvedOutput{}, "patients.ndjson"},
		{scenario.ResolvedOutput{Gzip: true}, "patients.ndjson.gz"},
		{scenario.ResolvedOutput{Encrypt: true}, "patients.ndjson.enc"},
		{scenario.ResolvedOutput{Gzip: true, Encrypt: true}, "patients.ndjson.gz.enc"},
	}
	for _, tc := range cases {
		if got := Filename("ndjson", tc.out); got != tc.want {
			t.Errorf("Filename(%+v) = %q, want %q", tc.out, got, tc.want)
		}
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func TestWrapWriterGzipRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := WrapWriter(nopWriteCloser{&buf}, scenario.ResolvedOutput{Gzip: true})
	if err != nil {
		t.Fatalf("wrap failed: %v", err)
	}
	payload := []byte("line one\nline two\n")
	if _, err := w.Write(payload); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	gr, err := gzip.NewReader(&buf)
	if err != nil {
		t.Fatalf("output is not gzip: %v", err)
	}
	got, err := io.ReadAll(gr)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("round trip mismatch: %q", got)
	}
}

func TestWrapWriterEncryptionHeader(t *testing.T) {
	var buf bytes.Buffer
	w, err := WrapWriter(nopWriteCloser{&buf}, scenario.ResolvedOutput{Encrypt: true, Password: "hunter2"})
	if err != nil {
		t.Fatalf("wrap failed: %v", err)
	}
	if _, err := w.Write([]byte("secret cohort")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	data := buf.Bytes()
	if !bytes.HasPrefix(data, []byte(encMagic)) {
		t.Fatalf("missing magic header: %q", data[:8])
	}
	// magic + salt + 16-byte IV + ciphertext
	if len(data) <= len(encMagic)+encSaltLen+16 {
		t.Fatalf("file too short: %d bytes", len(data))
	}
	if bytes.Contains(data, []byte("secret cohort")) {
		t.Error("plaintext leaked into encrypted output")
	}
}

func TestWrapWriterEncryptionRequiresPassword(t *testing.T) {
	var buf bytes.Buffer
	_, err := WrapWriter(nopWriteCloser{&buf}, scenario.ResolvedOutput{Encrypt: true})
	if err == nil {
		t.Fatal("expected error for missing password")
	}
	var jobErr *types.JobError
	if !errors.As(err, &jobErr) || jobErr.Kind != types.ErrKindConfigValidation {
		t.Errorf("expected CONFIG_VALIDATION job error, got %v", err)
	}
}

func TestNewEncoder(t *testing.T) {
	var buf bytes.Buffer
	for _, format := range []string{"ndjson", "json", "csv"} {
		if _, err := NewEncoder(format, &buf); err != nil {
			t.Errorf("format %s: %v", format, err)
		}
	}
	if _, err := NewEncoder("xml", &buf); err == nil {
		t.Error("expected error for unknown format")
	}
}

func feedChunks(sizes []int, ids []int) []Chunk {
	chunks := make([]Chunk, 0, len(sizes))
	next := 0
	start := 1
	for _, size := range sizes {
		ch := make(chan *types.Patient, size)
		for i := 0; i < size; i++ {
			ch <- samplePatient(ids[next])
			next++
		}
		close(ch)
		chunks = append(chunks, Chunk{Start: start, End: start + size - 1, Patients: ch})
		start += size
	}
	return chunks
}

func TestSerializerOrdering(t *testing.T) {
	var buf bytes.Buffer
	enc := NewNDJSONEncoder(&buf)
	agg := analysis.NewAggregator()

	var lastDone int
	progress := func(done, total int) {
		if done < lastDone {
			t.Errorf("progress went backwards: %d after %d", done, lastDone)
		}
		lastDone = done
	}

	chunks := feedChunks([]int{3, 2, 4}, []int{1, 2, 3, 4, 5, 6, 7, 8, 9})
	s := NewSerializer([]Encoder{enc}, agg, 9, progress)
	if err := s.Run(context.Background(), chunks); err != nil {
		t.Fatalf("serializer failed: %v", err)
	}

	if agg.Count() != 9 {
		t.Errorf("aggregator saw %d patients", agg.Count())
	}
	if lastDone != 9 {
		t.Errorf("final progress report was %d", lastDone)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 9 {
		t.Fatalf("expected 9 lines, got %d", len(lines))
	}
	for i, line := range lines {
		var p types.Patient
		if err := json.Unmarshal([]byte(line), &p); err != nil {
			t.Fatal(err)
		}
		if p.EventID != i+1 {
			t.Fatalf("line %d carries event %d", i, p.EventID)
		}
	}
}

func TestSerializerDetectsGap(t *testing.T) {
	var buf bytes.Buffer
	enc := NewNDJSONEncoder(&buf)

	// Event 3 arrives where 2 is expected.
	chunks := feedChunks([]int{3}, []int{1, 3, 2})
	s := NewSerializer([]Encoder{enc}, analysis.NewAggregator(), 3, nil)
	err := s.Run(context.Background(), chunks)
	if err == nil {
		t.Fatal("expected ordering violation")
	}
	var jobErr *types.JobError
	if !errors.As(err, &jobErr) || jobErr.Kind != types.ErrKindSimulationInvariant {
		t.Errorf("expected SIMULATION_INVARIANT, got %v", err)
	}
}

func TestSerializerCancellation(t *testing.T) {
	ch := make(chan *types.Patient)
	chunks := []Chunk{{Start: 1, End: 5, Patients: ch}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSerializer(nil, analysis.NewAggregator(), 5, nil)
	if err := s.Run(ctx, chunks); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
