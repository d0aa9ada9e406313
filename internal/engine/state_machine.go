package engine

import "github.com/medforge/casgen/internal/types"

var allowedTransitions = map[types.JobStatus]map[types.JobStatus]struct{}{
	types.JobPending: {
		types.JobRunning:   {},
		types.JobFailed:    {},
		types.JobCancelled: {},
	},
	types.JobRunning: {
		types.JobCompleted: {},
		types.JobFailed:    {},
		types.JobCancelled: {},
	},
}

// CanTransition reports whether a job status transition is valid.
// Terminal states have no outgoing transitions.
func CanTransition(from, to types.JobStatus) bool {
	allowed, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}
