package schedule

import (
	"math/rand"
	"sort"
	"time"

	"github.com/medforge/casgen/internal/catalog"
	"github.com/medforge/casgen/internal/rng"
	"github.com/medforge/casgen/internal/scenario"
	"github.com/medforge/casgen/internal/types"
)

const (
	offensiveWindowHours = 4
	offensiveFactor      = 3.0
	ambushWindowHours    = 1
	ambushFactor         = 2.0
	clusterMin           = 30
	clusterMax           = 100
)

// BuildSchedule produces the full injury-event schedule for a scenario.
// The same scenario and random stream always yield the same schedule;
// the caller passes stream 0 of the job seed.
func BuildSchedule(s *scenario.ResolvedScenario, cat *catalog.Catalog, r *rand.Rand) []types.InjuryEvent {
	buckets := s.Days * 24
	weights := make([]float64, buckets)
	modifierKey := make([]string, buckets)

	for i := 0; i < buckets; i++ {
		day := i / 24
		hour := i % 24
		dayFrac := (float64(day) + 0.5) / float64(s.Days)

		w := tempoValue(s.Tempo, dayFrac, day) * s.IntensityScalar
		for name := range s.Environment {
			effect := cat.Environment[name]
			w *= effect.AllFactor
			if nightHour(hour) {
				w *= effect.NightFactor
			}
		}
		weights[i] = w
	}

	// Special-event injections reshape contiguous windows. Window
	// placement is drawn from the schedule stream so it is reproducible.
	if s.SpecialEvents["major_offensive"] {
		start := pickWindowStart(r, buckets, offensiveWindowHours)
		for i := start; i < start+offensiveWindowHours && i < buckets; i++ {
			weights[i] *= offensiveFactor
			modifierKey[i] = "major_offensive"
		}
	}
	if s.SpecialEvents["ambush"] {
		start := pickWindowStart(r, buckets, ambushWindowHours)
		for i := start; i < start+ambushWindowHours && i < buckets; i++ {
			weights[i] *= ambushFactor
			modifierKey[i] = "ambush"
		}
	}

	events := make([]types.InjuryEvent, 0, s.TotalPatients)
	remaining := s.TotalPatients

	if s.SpecialEvents["mass_casualty"] && remaining > 0 {
		size := rng.IntBetween(r, clusterMin, clusterMax)
		if size > remaining {
			size = remaining
		}
		bucket := rng.Categorical(r, weights)
		instant := bucketTime(s.BaseDate, bucket, r.Float64())
		for i := 0; i < size; i++ {
			events = append(events, types.InjuryEvent{
				OccurrenceTime:      instant,
				MassCasualtyCluster: true,
				WarfareModifierKey:  "mass_casualty",
			})
		}
		remaining -= size
	}

	for i := 0; i < remaining; i++ {
		bucket := rng.Categorical(r, weights)
		events = append(events, types.InjuryEvent{
			OccurrenceTime:     bucketTime(s.BaseDate, bucket, r.Float64()),
			WarfareModifierKey: modifierKey[bucket],
		})
	}

	// Total order by occurrence time; SliceStable keeps draw order for
	// exact ties (the mass casualty cluster), which then becomes the
	// event_id tie-break.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OccurrenceTime.Before(events[j].OccurrenceTime)
	})
	for i := range events {
		events[i].EventID = i + 1
	}
	return events
}

// pickWindowStart draws the start bucket of a contiguous window so the
// window fits inside the schedule.
func pickWindowStart(r *rand.Rand, buckets, window int) int {
	if buckets <= window {
		return 0
	}
	return r.Intn(buckets - window + 1)
}

// bucketTime jitters uniformly within the hourly bucket.
func bucketTime(base time.Time, bucket int, jitter float64) time.Time {
	offset := time.Duration(float64(bucket)*float64(time.Hour) + jitter*float64(time.Hour))
	return base.Add(offset)
}

// BucketCounts tallies events per hourly bucket; exported for analysis
// and tests of the tempo shape.
func BucketCounts(events []types.InjuryEvent, base time.Time, days int) []int {
	counts := make([]int, days*24)
	for _, ev := range events {
		bucket := int(ev.OccurrenceTime.Sub(base).Hours())
		if bucket >= 0 && bucket < len(counts) {
			counts[bucket]++
		}
	}
	return counts
}
