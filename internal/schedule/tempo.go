// Package schedule converts a resolved scenario into a timestamped
// injury-event schedule: exactly total_patients events distributed over
// days*24 hourly buckets.
package schedule

// tempoValue returns the tempo curve weight for a day position in
// [0,1). The five shapes match the configured tempo enumeration.
func tempoValue(tempo string, dayFrac float64, dayIndex int) float64 {
	switch tempo {
	case "escalating":
		return 0.4 + (1.8-0.4)*dayFrac
	case "surge":
		// Triangular rise 0.5 -> 2.0 at mid-scenario, then back down.
		peakness := 1.0 - abs(2.0*dayFrac-1.0)
		return 0.5 + (2.0-0.5)*peakness
	case "declining":
		return 1.8 - (1.8-0.4)*dayFrac
	case "intermittent":
		if dayIndex%2 == 0 {
			return 1.6
		}
		return 0.4
	default: // sustained
		return 1.0
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// nightHour reports whether an hour of day falls in the night operations
// window (22:00-05:00).
func nightHour(hour int) bool {
	return hour >= 22 || hour < 5
}
