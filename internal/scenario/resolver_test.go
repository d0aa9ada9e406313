package scenario

import (
	"testing"

	"github.com/medforge/casgen/internal/catalog"
	"github.com/medforge/casgen/internal/types"
	"github.com/medforge/casgen/internal/validation"
)

func validConfig() Config {
	return Config{
		TotalPatients: 100,
		Days:          5,
		BaseDate:      "2026-03-01",
		InjuryMix: map[string]float64{
			"Disease":           0.2,
			"Non-Battle Injury": 0.2,
			"Battle Injury":     0.6,
		},
	}
}

func mustCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog load failed: %v", err)
	}
	return cat
}

func hasCode(issues []validation.Issue, code string) bool {
	for _, issue := range issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}

func TestResolveDefaults(t *testing.T) {
	cat := mustCatalog(t)
	resolved, report := Resolve(validConfig(), cat, 0)
	if report.HasErrors() {
		t.Fatalf("unexpected validation errors: %s", report.String())
	}

	if resolved.Intensity != "medium" || resolved.IntensityScalar != 1.0 {
		t.Errorf("expected medium intensity, got %s/%f", resolved.Intensity, resolved.IntensityScalar)
	}
	if resolved.Tempo != "sustained" {
		t.Errorf("expected sustained tempo, got %s", resolved.Tempo)
	}
	if len(resolved.Output.Formats) != 1 || resolved.Output.Formats[0] != "ndjson" {
		t.Errorf("expected default ndjson format, got %v", resolved.Output.Formats)
	}

	if len(resolved.Fronts) != 1 {
		t.Fatalf("expected one default front, got %d", len(resolved.Fronts))
	}
	front := resolved.Fronts[0]
	if front.Name != "Main Front" || front.CasualtyShare != 1.0 {
		t.Errorf("unexpected default front: %+v", front)
	}
	if len(front.Nationalities) != 1 || front.Nationalities[0] != "USA" {
		t.Errorf("expected USA-only default front, got %v", front.Nationalities)
	}

	flags := resolved.Flags
	if !flags.TreatmentUtility || !flags.DiagnosticUncertainty || !flags.MarkovRouting || !flags.WarfareModifiers {
		t.Errorf("simulation flags should default to enabled: %+v", flags)
	}

	if resolved.HasSeed {
		t.Error("seed should be unset when not configured")
	}

	for _, role := range []types.FacilityRole{
		types.FacilityPOI, types.FacilityRole1, types.FacilityRole2,
		types.FacilityRole3, types.FacilityRole4,
	} {
		if _, ok := resolved.Facilities[role]; !ok {
			t.Errorf("missing resolved facility %s", role)
		}
	}
}

func TestResolveValidationFailures(t *testing.T) {
	cat := mustCatalog(t)

	cases := []struct {
		name     string
		mutate   func(*Config)
		wantCode string
	}{
		{
			name:     "zero patients",
			mutate:   func(c *Config) { c.TotalPatients = 0 },
			wantCode: validation.CodeRangeViolation,
		},
		{
			name:     "days over limit",
			mutate:   func(c *Config) { c.Days = 31 },
			wantCode: validation.CodeRangeViolation,
		},
		{
			name:     "missing base date",
			mutate:   func(c *Config) { c.BaseDate = "" },
			wantCode: validation.CodeBaseDateInvalid,
		},
		{
			name:     "garbage base date",
			mutate:   func(c *Config) { c.BaseDate = "March 1st" },
			wantCode: validation.CodeBaseDateInvalid,
		},
		{
			name:     "missing injury mix",
			mutate:   func(c *Config) { c.InjuryMix = nil },
			wantCode: validation.CodeRequiredFieldMissing,
		},
		{
			name: "injury mix does not sum to one",
			mutate: func(c *Config) {
				c.InjuryMix = map[string]float64{"Disease": 0.5, "battle": 0.2}
			},
			wantCode: validation.CodeMixSumInvalid,
		},
		{
			name: "unknown injury key",
			mutate: func(c *Config) {
				c.InjuryMix["frostbite"] = 0.0
			},
			wantCode: validation.CodeEnumViolation,
		},
		{
			name:     "unknown tempo",
			mutate:   func(c *Config) { c.Overrides.Tempo = "chaotic" },
			wantCode: validation.CodeEnumViolation,
		},
		{
			name:     "unknown intensity",
			mutate:   func(c *Config) { c.Overrides.Intensity = "apocalyptic" },
			wantCode: validation.CodeEnumViolation,
		},
		{
			name:     "unsupported warfare pattern",
			mutate:   func(c *Config) { c.WarfareFlags = []string{"naval"} },
			wantCode: validation.CodeWarfareUnsupported,
		},
		{
			name:     "unknown warfare flag",
			mutate:   func(c *Config) { c.WarfareFlags = []string{"siege"} },
			wantCode: validation.CodeEnumViolation,
		},
		{
			name: "front shares off",
			mutate: func(c *Config) {
				c.Fronts = []FrontConfig{
					{Name: "North", NationalityDistribution: map[string]float64{"USA": 100}, CasualtyShare: 0.5},
					{Name: "South", NationalityDistribution: map[string]float64{"USA": 100}, CasualtyShare: 0.2},
				}
			},
			wantCode: validation.CodeFrontShareInvalid,
		},
		{
			name: "nationality sum off",
			mutate: func(c *Config) {
				c.Fronts = []FrontConfig{
					{Name: "North", NationalityDistribution: map[string]float64{"USA": 80}, CasualtyShare: 1.0},
				}
			},
			wantCode: validation.CodeNationalitySum,
		},
		{
			name: "unknown nationality",
			mutate: func(c *Config) {
				c.Fronts = []FrontConfig{
					{Name: "North", NationalityDistribution: map[string]float64{"Atlantis": 100}, CasualtyShare: 1.0},
				}
			},
			wantCode: validation.CodeEnumViolation,
		},
		{
			name: "facility rate out of range",
			mutate: func(c *Config) {
				bad := 1.5
				c.Facilities = []FacilityConfig{{Role: "Role2", KIARate: &bad}}
			},
			wantCode: validation.CodeFacilityRateInvalid,
		},
		{
			name: "polytrauma rate out of range",
			mutate: func(c *Config) {
				c.Overrides.PolytraumaRates = map[string]float64{"artillery": 1.2}
			},
			wantCode: validation.CodePolytraumaInvalid,
		},
		{
			name: "unknown output format",
			mutate: func(c *Config) {
				c.Output = &OutputConfig{Formats: []string{"parquet"}}
			},
			wantCode: validation.CodeOutputInvalid,
		},
		{
			name: "encryption without password",
			mutate: func(c *Config) {
				c.Output = &OutputConfig{Encryption: &EncryptionConfig{Enabled: true}}
			},
			wantCode: validation.CodeEncryptionPassword,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			resolved, report := Resolve(cfg, cat, 0)
			if resolved != nil {
				t.Error("expected nil scenario on validation failure")
			}
			if !report.HasErrors() {
				t.Fatal("expected validation errors")
			}
			if !hasCode(report.Errors, tc.wantCode) {
				t.Errorf("expected code %s, got %s", tc.wantCode, report.String())
			}
		})
	}
}

func TestResolveQuota(t *testing.T) {
	cat := mustCatalog(t)
	cfg := validConfig()
	cfg.TotalPatients = 5000

	_, report := Resolve(cfg, cat, 1000)
	if !hasCode(report.Errors, validation.CodeQuotaExceeded) {
		t.Errorf("expected quota error, got %s", report.String())
	}

	_, report = Resolve(cfg, cat, 0)
	if report.HasErrors() {
		t.Errorf("quota of 0 should mean unlimited: %s", report.String())
	}
}

func TestResolveSeedAndFlags(t *testing.T) {
	cat := mustCatalog(t)
	cfg := validConfig()
	seed := int64(12345)
	cfg.Seed = &seed
	off := false
	cfg.Simulation = &SimulationFlags{MarkovRouting: &off}

	resolved, report := Resolve(cfg, cat, 0)
	if report.HasErrors() {
		t.Fatalf("unexpected errors: %s", report.String())
	}
	if !resolved.HasSeed || resolved.Seed != 12345 {
		t.Errorf("seed not carried: %+v", resolved)
	}
	if resolved.Flags.MarkovRouting {
		t.Error("markov_routing should be disabled")
	}
	if !resolved.Flags.TreatmentUtility {
		t.Error("unset flags should stay enabled")
	}
}

func TestResolveWarfareFlagsSortedDeduped(t *testing.T) {
	cat := mustCatalog(t)
	cfg := validConfig()
	cfg.WarfareFlags = []string{"urban", "artillery", "urban", "conventional"}

	resolved, report := Resolve(cfg, cat, 0)
	if report.HasErrors() {
		t.Fatalf("unexpected errors: %s", report.String())
	}
	want := []types.WarfarePattern{types.WarfareArtillery, types.WarfareConventional, types.WarfareUrban}
	if len(resolved.WarfareFlags) != len(want) {
		t.Fatalf("expected %d flags, got %v", len(want), resolved.WarfareFlags)
	}
	for i, p := range want {
		if resolved.WarfareFlags[i] != p {
			t.Errorf("flag %d: expected %s, got %s", i, p, resolved.WarfareFlags[i])
		}
	}
}

// Resolving the canonical form of a resolved scenario must yield an
// equal scenario.
func TestResolveCanonicalKeepsBaseDateTime(t *testing.T) {
	cat := mustCatalog(t)
	cfg := validConfig()
	cfg.BaseDate = "2026-06-01T15:30:00Z"

	first, report := Resolve(cfg, cat, 0)
	if report.HasErrors() {
		t.Fatalf("unexpected errors: %s", report.String())
	}
	if h := first.BaseDate.Hour(); h != 15 {
		t.Fatalf("base date hour = %d, want 15", h)
	}

	second, report := Resolve(first.Canonical(), cat, 0)
	if report.HasErrors() {
		t.Fatalf("canonical config failed validation: %s", report.String())
	}
	if !second.BaseDate.Equal(first.BaseDate) {
		t.Errorf("base date changed across canonical round trip: %v vs %v",
			first.BaseDate, second.BaseDate)
	}

	// Plain dates stay in the short form.
	plain, report := Resolve(validConfig(), cat, 0)
	if report.HasErrors() {
		t.Fatalf("unexpected errors: %s", report.String())
	}
	if got := plain.Canonical().BaseDate; got != "2026-03-01" {
		t.Errorf("midnight base date canonicalizes to %q", got)
	}
}

func TestResolveIdempotence(t *testing.T) {
	cat := mustCatalog(t)
	cfg := validConfig()
	seed := int64(777)
	cfg.Seed = &seed
	cfg.WarfareFlags = []string{"artillery", "drone"}
	cfg.Overrides.Intensity = "high"
	cfg.Overrides.Tempo = "surge"
	cfg.Overrides.SpecialEvents = map[string]bool{"mass_casualty": true}
	cfg.Overrides.Environment = map[string]bool{"extreme_weather": true}
	cfg.Overrides.PolytraumaRates = map[string]float64{"artillery": 0.5}
	cfg.Output = &OutputConfig{Formats: []string{"ndjson", "csv"}, Gzip: true}

	first, report := Resolve(cfg, cat, 0)
	if report.HasErrors() {
		t.Fatalf("unexpected errors: %s", report.String())
	}

	second, report := Resolve(first.Canonical(), cat, 0)
	if report.HasErrors() {
		t.Fatalf("canonical config failed validation: %s", report.String())
	}

	if second.TotalPatients != first.TotalPatients || second.Days != first.Days {
		t.Error("size fields changed across canonical round trip")
	}
	if !second.BaseDate.Equal(first.BaseDate) {
		t.Errorf("base date changed: %v vs %v", first.BaseDate, second.BaseDate)
	}
	if second.Intensity != first.Intensity || second.Tempo != first.Tempo {
		t.Error("tempo/intensity changed across canonical round trip")
	}
	if second.Seed != first.Seed || second.HasSeed != first.HasSeed {
		t.Error("seed changed across canonical round trip")
	}
	if len(second.WarfareFlags) != len(first.WarfareFlags) {
		t.Fatalf("warfare flags changed: %v vs %v", first.WarfareFlags, second.WarfareFlags)
	}
	for i := range first.WarfareFlags {
		if second.WarfareFlags[i] != first.WarfareFlags[i] {
			t.Errorf("warfare flag %d changed", i)
		}
	}
	for it, w := range first.InjuryMix {
		if second.InjuryMix[it] != w {
			t.Errorf("injury mix for %s changed: %f vs %f", it, w, second.InjuryMix[it])
		}
	}
	for role, setting := range first.Facilities {
		if second.Facilities[role] != setting {
			t.Errorf("facility %s changed: %+v vs %+v", role, setting, second.Facilities[role])
		}
	}
	if second.Output.Gzip != first.Output.Gzip || len(second.Output.Formats) != len(first.Output.Formats) {
		t.Error("output selection changed across canonical round trip")
	}
	for k := range first.SpecialEvents {
		if !second.SpecialEvents[k] {
			t.Errorf("special event %s lost", k)
		}
	}
	for k := range first.Environment {
		if !second.Environment[k] {
			t.Errorf("environment %s lost", k)
		}
	}
	if second.PolytraumaRates[types.WarfareArtillery] != first.PolytraumaRates[types.WarfareArtillery] {
		t.Error("polytrauma override lost")
	}
}
