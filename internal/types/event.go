package types

import "time"

// InjuryEvent is one scheduled casualty occurrence produced by the
// temporal distributor. The event sequence is totally ordered by
// OccurrenceTime with ties broken by EventID.
type InjuryEvent struct {
	// EventID is stable and assigned in occurrence order, 1..N.
	EventID int `json:"event_id"`

	OccurrenceTime time.Time `json:"occurrence_time"`

	// FrontRef names the front this event was attributed to. Empty means
	// the synthesizer draws a front from the scenario casualty shares.
	FrontRef string `json:"front_ref,omitempty"`

	// MassCasualtyCluster marks events belonging to a single-instant
	// mass casualty injection.
	MassCasualtyCluster bool `json:"is_mass_casualty_cluster,omitempty"`

	// WarfareModifierKey carries the special-event key that boosted this
	// event's bucket ("major_offensive", "ambush", "mass_casualty"), or
	// empty when the bucket was unmodified.
	WarfareModifierKey string `json:"warfare_modifier_key,omitempty"`
}
