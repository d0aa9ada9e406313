package scenario

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/medforge/casgen/internal/catalog"
	"github.com/medforge/casgen/internal/types"
	"github.com/medforge/casgen/internal/validation"
)

const (
	maxDays      = 30
	mixTolerance = 1e-6
	natTolerance = 0.1
)

// Injury mix key aliases accepted in user configuration.
var injuryMixAliases = map[string]types.InjuryType{
	"Disease":           types.InjuryDisease,
	"disease":           types.InjuryDisease,
	"Non-Battle Injury": types.InjuryNonBattle,
	"NBI":               types.InjuryNonBattle,
	"non_battle":        types.InjuryNonBattle,
	"Battle Injury":     types.InjuryBattle,
	"BI":                types.InjuryBattle,
	"battle":            types.InjuryBattle,
}

var validTempos = map[string]bool{
	"sustained": true, "escalating": true, "surge": true,
	"declining": true, "intermittent": true,
}

var validFormats = map[string]bool{
	"ndjson": true, "json": true, "csv": true,
}

var warfareFlagNames = map[string]types.WarfarePattern{
	"conventional": types.WarfareConventional,
	"artillery":    types.WarfareArtillery,
	"urban":        types.WarfareUrban,
	"guerrilla":    types.WarfareGuerrilla,
	"drone":        types.WarfareDrone,
	"naval":        types.WarfareNaval,
	"cbrn":         types.WarfareCBRN,
	"peacekeeping": types.WarfarePeacekeeping,
}

// Resolve merges a user configuration with catalog defaults and
// validates every invariant. It returns either a frozen scenario or a
// non-empty report; it never mutates network or disk state. Resolution
// is idempotent: resolving the canonical config of a resolved scenario
// yields an equal scenario.
func Resolve(cfg Config, cat *catalog.Catalog, maxPatients int) (*ResolvedScenario, *validation.Report) {
	report := validation.NewReport()

	if cfg.TotalPatients < 1 {
		report.AddError(validation.CodeRangeViolation, "total_patients must be at least 1", "/total_patients")
	} else if maxPatients > 0 && cfg.TotalPatients > maxPatients {
		report.AddError(validation.CodeQuotaExceeded,
			fmt.Sprintf("total_patients %d exceeds per-key quota %d", cfg.TotalPatients, maxPatients), "/total_patients")
	}

	if cfg.Days < 1 || cfg.Days > maxDays {
		report.AddError(validation.CodeRangeViolation,
			fmt.Sprintf("days must be in 1..%d", maxDays), "/days")
	}

	baseDate, err := parseBaseDate(cfg.BaseDate)
	if err != nil {
		report.AddError(validation.CodeBaseDateInvalid, err.Error(), "/base_date")
	}

	mix := resolveInjuryMix(cfg.InjuryMix, report)
	flags := resolveWarfareFlags(cfg.WarfareFlags, cat, report)
	fronts := resolveFronts(cfg.Fronts, cat, report)
	facilities := resolveFacilities(cfg.Facilities, cat, report)

	intensity := cfg.Overrides.Intensity
	if intensity == "" {
		intensity = "medium"
	}
	scalar, ok := cat.IntensityScalar[intensity]
	if !ok {
		report.AddError(validation.CodeEnumViolation,
			fmt.Sprintf("unknown intensity %q", intensity), "/overrides/intensity")
	}

	tempo := cfg.Overrides.Tempo
	if tempo == "" {
		tempo = "sustained"
	}
	if !validTempos[tempo] {
		report.AddError(validation.CodeEnumViolation,
			fmt.Sprintf("unknown tempo %q", tempo), "/overrides/tempo")
	}

	specials := map[string]bool{}
	for key, on := range cfg.Overrides.SpecialEvents {
		if !containsString(cat.SpecialEvents, key) {
			report.AddError(validation.CodeEnumViolation,
				fmt.Sprintf("unknown special event %q", key), "/overrides/special_events/"+key)
			continue
		}
		if on {
			specials[key] = true
		}
	}

	environment := map[string]bool{}
	for key, on := range cfg.Overrides.Environment {
		if _, ok := cat.Environment[key]; !ok {
			report.AddError(validation.CodeEnumViolation,
				fmt.Sprintf("unknown environmental condition %q", key), "/overrides/environment/"+key)
			continue
		}
		if on {
			environment[key] = true
		}
	}

	for name, eff := range cfg.Overrides.TreatmentEffectiveness {
		if eff < 0 || eff > 1 {
			report.AddError(validation.CodeRangeViolation,
				fmt.Sprintf("treatment_effectiveness %q must be in [0,1]", name),
				"/overrides/treatment_effectiveness/"+name)
		}
	}

	diag := map[types.FacilityRole]float64{}
	for role, acc := range cfg.Overrides.DiagnosticAccuracy {
		f, ok := parseFacilityRole(role)
		if !ok {
			report.AddError(validation.CodeEnumViolation,
				fmt.Sprintf("unknown facility role %q", role), "/overrides/diagnostic_accuracy/"+role)
			continue
		}
		if acc < 0 || acc > 1 {
			report.AddError(validation.CodeRangeViolation,
				fmt.Sprintf("diagnostic_accuracy %q must be in [0,1]", role),
				"/overrides/diagnostic_accuracy/"+role)
			continue
		}
		diag[f] = acc
	}

	poly := map[types.WarfarePattern]float64{}
	for name, rate := range cfg.Overrides.PolytraumaRates {
		pattern, ok := warfareFlagNames[name]
		if !ok {
			report.AddError(validation.CodeEnumViolation,
				fmt.Sprintf("unknown warfare pattern %q", name), "/overrides/polytrauma_rates/"+name)
			continue
		}
		if rate < 0 || rate > 1 {
			report.AddError(validation.CodePolytraumaInvalid,
				fmt.Sprintf("polytrauma rate for %q must be in [0,1]", name),
				"/overrides/polytrauma_rates/"+name)
			continue
		}
		poly[pattern] = rate
	}

	output := resolveOutput(cfg.Output, report)

	if !report.OK {
		return nil, report
	}

	resolved := &ResolvedScenario{
		TotalPatients:          cfg.TotalPatients,
		Days:                   cfg.Days,
		BaseDate:               baseDate,
		InjuryMix:              mix,
		WarfareFlags:           flags,
		Flags:                  resolveSimFlags(cfg.Simulation),
		Fronts:                 fronts,
		Facilities:             facilities,
		Intensity:              intensity,
		IntensityScalar:        scalar,
		Tempo:                  tempo,
		SpecialEvents:          specials,
		Environment:            environment,
		TreatmentEffectiveness: copyStringMap(cfg.Overrides.TreatmentEffectiveness),
		DiagnosticAccuracy:     diag,
		PolytraumaRates:        poly,
		Output:                 output,
	}
	if cfg.Seed != nil {
		resolved.Seed = *cfg.Seed
		resolved.HasSeed = true
	}
	return resolved, report
}

func parseBaseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("base_date is required")
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("base_date %q is not a date (want YYYY-MM-DD or RFC3339)", s)
}

// formatBaseDate emits the short date form only when the base date is a
// plain midnight; an RFC3339 input with a time component must survive a
// canonicalize/re-resolve round trip unchanged.
func formatBaseDate(t time.Time) string {
	if h, m, s := t.Clock(); h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}

func resolveInjuryMix(raw map[string]float64, report *validation.Report) map[types.InjuryType]float64 {
	mix := map[types.InjuryType]float64{
		types.InjuryDisease:   0,
		types.InjuryNonBattle: 0,
		types.InjuryBattle:    0,
	}
	if len(raw) == 0 {
		report.AddError(validation.CodeRequiredFieldMissing, "injury_mix is required", "/injury_mix")
		return mix
	}
	for key, weight := range raw {
		injuryType, ok := injuryMixAliases[key]
		if !ok {
			report.AddError(validation.CodeEnumViolation,
				fmt.Sprintf("unknown injury type %q", key), "/injury_mix/"+key)
			continue
		}
		if weight < 0 || weight > 1 {
			report.AddError(validation.CodeRangeViolation,
				fmt.Sprintf("injury_mix weight for %q must be in [0,1]", key), "/injury_mix/"+key)
			continue
		}
		mix[injuryType] += weight
	}
	sum := mix[types.InjuryDisease] + mix[types.InjuryNonBattle] + mix[types.InjuryBattle]
	if math.Abs(sum-1.0) > mixTolerance {
		report.AddError(validation.CodeMixSumInvalid,
			fmt.Sprintf("injury_mix weights sum to %.6f, must sum to 1.0", sum), "/injury_mix")
	}
	return mix
}

func resolveWarfareFlags(raw []string, cat *catalog.Catalog, report *validation.Report) []types.WarfarePattern {
	seen := map[types.WarfarePattern]bool{}
	flags := make([]types.WarfarePattern, 0, len(raw))
	for _, name := range raw {
		pattern, ok := warfareFlagNames[name]
		if !ok {
			report.AddError(validation.CodeEnumViolation,
				fmt.Sprintf("unknown warfare flag %q", name), "/warfare_flags")
			continue
		}
		if !cat.SupportedWarfare(pattern) {
			report.AddError(validation.CodeWarfareUnsupported,
				fmt.Sprintf("warfare pattern %q has no catalog tables", name), "/warfare_flags")
			continue
		}
		if !seen[pattern] {
			seen[pattern] = true
			flags = append(flags, pattern)
		}
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i] < flags[j] })
	return flags
}

func resolveFronts(raw []FrontConfig, cat *catalog.Catalog, report *validation.Report) []Front {
	if len(raw) == 0 {
		return []Front{{
			Name:          "Main Front",
			Nationalities: []string{"USA"},
			Weights:       []float64{100},
			CasualtyShare: 1.0,
		}}
	}

	fronts := make([]Front, 0, len(raw))
	shareSum := 0.0
	for i, fc := range raw {
		pointer := fmt.Sprintf("/fronts/%d", i)
		if fc.Name == "" {
			report.AddError(validation.CodeRequiredFieldMissing, "front name is required", pointer+"/name")
		}
		if fc.CasualtyShare < 0 || fc.CasualtyShare > 1 {
			report.AddError(validation.CodeFrontShareInvalid,
				fmt.Sprintf("front %q casualty_share must be in [0,1]", fc.Name), pointer+"/casualty_share")
		}
		shareSum += fc.CasualtyShare

		natSum := 0.0
		nationalities := make([]string, 0, len(fc.NationalityDistribution))
		for nat := range fc.NationalityDistribution {
			nationalities = append(nationalities, nat)
		}
		sort.Strings(nationalities)
		weights := make([]float64, len(nationalities))
		for j, nat := range nationalities {
			pct := fc.NationalityDistribution[nat]
			if _, ok := cat.NamePools[nat]; !ok {
				report.AddError(validation.CodeEnumViolation,
					fmt.Sprintf("front %q references unknown nationality %q", fc.Name, nat),
					pointer+"/nationality_distribution/"+nat)
			}
			if pct < 0 {
				report.AddError(validation.CodeNationalitySum,
					fmt.Sprintf("front %q nationality %q percentage is negative", fc.Name, nat),
					pointer+"/nationality_distribution/"+nat)
			}
			weights[j] = pct
			natSum += pct
		}
		if math.Abs(natSum-100.0) > natTolerance {
			report.AddError(validation.CodeNationalitySum,
				fmt.Sprintf("front %q nationality distribution sums to %.2f, must sum to 100", fc.Name, natSum),
				pointer+"/nationality_distribution")
		}

		fronts = append(fronts, Front{
			Name:          fc.Name,
			Nationalities: nationalities,
			Weights:       weights,
			CasualtyShare: fc.CasualtyShare,
		})
	}
	if math.Abs(shareSum-1.0) > mixTolerance {
		report.AddError(validation.CodeFrontShareInvalid,
			fmt.Sprintf("front casualty shares sum to %.6f, must sum to 1.0", shareSum), "/fronts")
	}
	return fronts
}

func resolveFacilities(raw []FacilityConfig, cat *catalog.Catalog, report *validation.Report) map[types.FacilityRole]FacilitySetting {
	facilities := make(map[types.FacilityRole]FacilitySetting, len(cat.Facilities))
	for _, role := range cat.Facilities {
		facilities[role] = FacilitySetting{Rates: cat.DefaultFacilityRates[role]}
	}
	for i, fc := range raw {
		pointer := fmt.Sprintf("/facilities/%d", i)
		role, ok := parseFacilityRole(fc.Role)
		if !ok {
			report.AddError(validation.CodeEnumViolation,
				fmt.Sprintf("unknown facility role %q", fc.Role), pointer+"/role")
			continue
		}
		setting := facilities[role]
		if fc.KIARate != nil {
			if *fc.KIARate < 0 || *fc.KIARate > 1 {
				report.AddError(validation.CodeFacilityRateInvalid,
					fmt.Sprintf("facility %q kia_rate must be in [0,1]", fc.Role), pointer+"/kia_rate")
			} else {
				setting.Rates.KIARate = *fc.KIARate
			}
		}
		if fc.RTDRate != nil {
			if *fc.RTDRate < 0 || *fc.RTDRate > 1 {
				report.AddError(validation.CodeFacilityRateInvalid,
					fmt.Sprintf("facility %q rtd_rate must be in [0,1]", fc.Role), pointer+"/rtd_rate")
			} else {
				setting.Rates.RTDRate = *fc.RTDRate
			}
		}
		if fc.Capacity != nil {
			if *fc.Capacity < 0 {
				report.AddError(validation.CodeRangeViolation,
					fmt.Sprintf("facility %q capacity must be non-negative", fc.Role), pointer+"/capacity")
			} else {
				setting.Capacity = *fc.Capacity
			}
		}
		facilities[role] = setting
	}
	return facilities
}

func resolveSimFlags(raw *SimulationFlags) SimFlags {
	flags := SimFlags{
		TreatmentUtility:      true,
		DiagnosticUncertainty: true,
		MarkovRouting:         true,
		WarfareModifiers:      true,
	}
	if raw == nil {
		return flags
	}
	if raw.TreatmentUtility != nil {
		flags.TreatmentUtility = *raw.TreatmentUtility
	}
	if raw.DiagnosticUncertainty != nil {
		flags.DiagnosticUncertainty = *raw.DiagnosticUncertainty
	}
	if raw.MarkovRouting != nil {
		flags.MarkovRouting = *raw.MarkovRouting
	}
	if raw.WarfareModifiers != nil {
		flags.WarfareModifiers = *raw.WarfareModifiers
	}
	return flags
}

func resolveOutput(raw *OutputConfig, report *validation.Report) ResolvedOutput {
	out := ResolvedOutput{Formats: []string{"ndjson"}}
	if raw == nil {
		return out
	}
	if len(raw.Formats) > 0 {
		formats := make([]string, 0, len(raw.Formats))
		seen := map[string]bool{}
		for _, f := range raw.Formats {
			if !validFormats[f] {
				report.AddError(validation.CodeOutputInvalid,
					fmt.Sprintf("unknown output format %q", f), "/output/formats")
				continue
			}
			if !seen[f] {
				seen[f] = true
				formats = append(formats, f)
			}
		}
		if len(formats) > 0 {
			out.Formats = formats
		}
	}
	out.Gzip = raw.Gzip
	if raw.Encryption != nil && raw.Encryption.Enabled {
		// Encryption without a password fails before any work begins.
		if raw.Encryption.Password == "" {
			report.AddError(validation.CodeEncryptionPassword,
				"encryption requested but no password supplied", "/output/encryption/password")
		} else {
			out.Encrypt = true
			out.Password = raw.Encryption.Password
		}
	}
	return out
}

func parseFacilityRole(s string) (types.FacilityRole, bool) {
	switch s {
	case "POI":
		return types.FacilityPOI, true
	case "Role1":
		return types.FacilityRole1, true
	case "Role2":
		return types.FacilityRole2, true
	case "Role3":
		return types.FacilityRole3, true
	case "Role4":
		return types.FacilityRole4, true
	}
	return "", false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func copyStringMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Canonical reconstructs the configuration a resolved scenario stands
// for. Resolve(s.Canonical()) yields a scenario equal to s, which is the
// resolver idempotence law the tests pin down.
func (s *ResolvedScenario) Canonical() Config {
	mix := map[string]float64{
		string(types.InjuryDisease):   s.InjuryMix[types.InjuryDisease],
		string(types.InjuryNonBattle): s.InjuryMix[types.InjuryNonBattle],
		string(types.InjuryBattle):    s.InjuryMix[types.InjuryBattle],
	}
	flags := make([]string, len(s.WarfareFlags))
	for i, f := range s.WarfareFlags {
		flags[i] = string(f)
	}
	fronts := make([]FrontConfig, len(s.Fronts))
	for i, f := range s.Fronts {
		dist := make(map[string]float64, len(f.Nationalities))
		for j, nat := range f.Nationalities {
			dist[nat] = f.Weights[j]
		}
		fronts[i] = FrontConfig{Name: f.Name, NationalityDistribution: dist, CasualtyShare: f.CasualtyShare}
	}
	facilities := make([]FacilityConfig, 0, len(s.Facilities))
	for _, role := range []types.FacilityRole{
		types.FacilityPOI, types.FacilityRole1, types.FacilityRole2,
		types.FacilityRole3, types.FacilityRole4,
	} {
		setting := s.Facilities[role]
		kia, rtd, capacity := setting.Rates.KIARate, setting.Rates.RTDRate, setting.Capacity
		facilities = append(facilities, FacilityConfig{
			Role: string(role), KIARate: &kia, RTDRate: &rtd, Capacity: &capacity,
		})
	}
	specials := map[string]bool{}
	for k := range s.SpecialEvents {
		specials[k] = true
	}
	environment := map[string]bool{}
	for k := range s.Environment {
		environment[k] = true
	}
	poly := map[string]float64{}
	for k, v := range s.PolytraumaRates {
		poly[string(k)] = v
	}
	diag := map[string]float64{}
	for k, v := range s.DiagnosticAccuracy {
		diag[string(k)] = v
	}
	simFlags := &SimulationFlags{
		TreatmentUtility:      boolPtr(s.Flags.TreatmentUtility),
		DiagnosticUncertainty: boolPtr(s.Flags.DiagnosticUncertainty),
		MarkovRouting:         boolPtr(s.Flags.MarkovRouting),
		WarfareModifiers:      boolPtr(s.Flags.WarfareModifiers),
	}
	cfg := Config{
		TotalPatients: s.TotalPatients,
		Days:          s.Days,
		BaseDate:      formatBaseDate(s.BaseDate),
		InjuryMix:     mix,
		WarfareFlags:  flags,
		Simulation:    simFlags,
		Fronts:        fronts,
		Facilities:    facilities,
		Overrides: Overrides{
			Intensity:              s.Intensity,
			Tempo:                  s.Tempo,
			SpecialEvents:          specials,
			Environment:            environment,
			TreatmentEffectiveness: copyStringMap(s.TreatmentEffectiveness),
			DiagnosticAccuracy:     diag,
			PolytraumaRates:        poly,
		},
		Output: &OutputConfig{Formats: append([]string(nil), s.Output.Formats...), Gzip: s.Output.Gzip},
	}
	if s.Output.Encrypt {
		cfg.Output.Encryption = &EncryptionConfig{Enabled: true, Password: s.Output.Password}
	}
	if s.HasSeed {
		seed := s.Seed
		cfg.Seed = &seed
	}
	return cfg
}

func boolPtr(b bool) *bool { return &b }
