package catalog

import (
	"testing"

	"github.com/medforge/casgen/internal/types"
)

func TestLoad(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if cat == nil {
		t.Fatal("Load returned nil catalog")
	}

	again, err := Load()
	if err != nil {
		t.Fatalf("unexpected error on second load: %v", err)
	}
	if again != cat {
		t.Error("Load should return the same catalog instance")
	}
}

func TestVerifyTransitionRows(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}

	for triage, m := range cat.Transitions {
		for i := 0; i < States; i++ {
			sum := 0.0
			for j := 0; j < States; j++ {
				sum += m.Rows[i][j]
			}
			if sum < 1-1e-9 || sum > 1+1e-9 {
				t.Errorf("%s row %d sums to %.12f", triage, i, sum)
			}
		}

		for _, absorbing := range []int{KIAState, RTDState} {
			if m.Rows[absorbing][absorbing] != 1.0 {
				t.Errorf("%s absorbing state %d is not identity", triage, absorbing)
			}
		}

		poi := m.Rows[StateIndex(types.FacilityPOI)]
		if poi[StateIndex(types.FacilityRole1)] < 0.85 {
			t.Errorf("%s POI row places only %.3f on Role1", triage, poi[StateIndex(types.FacilityRole1)])
		}
		for _, role := range []types.FacilityRole{types.FacilityRole2, types.FacilityRole3, types.FacilityRole4} {
			if poi[StateIndex(role)] > 0.04 {
				t.Errorf("%s POI row places %.3f on %s", triage, poi[StateIndex(role)], role)
			}
		}
	}
}

func TestStateRoundTrip(t *testing.T) {
	for _, role := range []types.FacilityRole{
		types.FacilityPOI, types.FacilityRole1, types.FacilityRole2,
		types.FacilityRole3, types.FacilityRole4,
	} {
		idx := StateIndex(role)
		got, ok := StateFacility(idx)
		if !ok {
			t.Fatalf("StateFacility(%d) not a facility", idx)
		}
		if got != role {
			t.Errorf("round trip for %s yielded %s", role, got)
		}
	}

	if _, ok := StateFacility(KIAState); ok {
		t.Error("KIA state should not map to a facility")
	}
	if _, ok := StateFacility(RTDState); ok {
		t.Error("RTD state should not map to a facility")
	}
}

func TestTransitRange(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}

	t.Run("known leg", func(t *testing.T) {
		r := cat.TransitRange(types.FacilityPOI, types.FacilityRole1)
		if r.MinHours <= 0 || r.MaxHours <= r.MinHours {
			t.Errorf("POI->Role1 range is degenerate: %+v", r)
		}
	})

	t.Run("fallback scales with hops", func(t *testing.T) {
		one := cat.TransitRange(types.FacilityRole1, types.FacilityRole2)
		skip := cat.TransitRange(types.FacilityPOI, types.FacilityRole3)
		if skip.MaxHours <= one.MaxHours {
			t.Errorf("multi-hop fallback %+v not longer than single hop %+v", skip, one)
		}
	})
}

func TestSupportedWarfare(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}

	supported := []types.WarfarePattern{
		types.WarfareConventional, types.WarfareArtillery, types.WarfareUrban,
		types.WarfareGuerrilla, types.WarfareDrone,
	}
	for _, p := range supported {
		if !cat.SupportedWarfare(p) {
			t.Errorf("expected %s to be supported", p)
		}
	}

	unsupported := []types.WarfarePattern{
		types.WarfareNaval, types.WarfareCBRN, types.WarfarePeacekeeping,
	}
	for _, p := range unsupported {
		if cat.SupportedWarfare(p) {
			t.Errorf("expected %s to be unsupported", p)
		}
	}
}

func TestConditionFamilies(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}

	for injuryType, entries := range cat.Conditions {
		if len(entries) == 0 {
			t.Errorf("no conditions for %s", injuryType)
		}
		for _, e := range entries {
			if cat.FamilyOf(e.Code) != e.Family {
				t.Errorf("FamilyOf(%s) != %s", e.Code, e.Family)
			}
			if len(cat.Family(e.Family)) == 0 {
				t.Errorf("family %s has no members", e.Family)
			}
		}
	}

	if cat.FamilyOf("no-such-code") != "" {
		t.Error("unknown code should have empty family")
	}
}

func TestCatalogReferenceCompleteness(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}

	triages := []types.TriageCategory{types.TriageT1, types.TriageT2, types.TriageT3}
	for _, f := range cat.Facilities {
		if _, ok := cat.DiagnosticAccuracy[f]; !ok {
			t.Errorf("no diagnostic accuracy for %s", f)
		}
		if _, ok := cat.DefaultFacilityRates[f]; !ok {
			t.Errorf("no default rates for %s", f)
		}
		for _, triage := range triages {
			dr := cat.DwellRanges[f][triage]
			if dr.MaxHours < dr.MinHours {
				t.Errorf("inverted dwell range at %s/%s", f, triage)
			}
		}
	}

	for _, triage := range triages {
		if cat.TriageKIAModifier[triage] <= 0 {
			t.Errorf("missing KIA modifier for %s", triage)
		}
		if cat.TriageRTDModifier[triage] <= 0 {
			t.Errorf("missing RTD modifier for %s", triage)
		}
		if cat.TriageTransitFactor[triage] <= 0 {
			t.Errorf("missing transit factor for %s", triage)
		}
		if _, ok := cat.VitalBands[triage]; !ok {
			t.Errorf("missing vital band for %s", triage)
		}
	}

	for nat, pool := range cat.NamePools {
		if len(pool.FamilyNames) == 0 || len(pool.GivenMale) == 0 || len(pool.GivenFemale) == 0 {
			t.Errorf("incomplete name pool for %s", nat)
		}
	}
}
