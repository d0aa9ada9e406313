// Package rng provides deterministic splittable random streams.
//
// A single job seed expands into independent streams keyed by index. The
// distributor owns stream 0; each injury event owns the stream keyed by
// its event ID. Because event streams depend only on (seed, event_id),
// generated bytes are identical regardless of worker count.
package rng

import "math/rand"

const (
	gamma = 0x9E3779B97F4A7C15
	mix1  = 0xBF58476D1CE4E5B9
	mix2  = 0x94D049BB133111EB
)

// splitmix64 is the SplitMix64 finalizer, used to decorrelate stream seeds.
func splitmix64(x uint64) uint64 {
	x += gamma
	x = (x ^ (x >> 30)) * mix1
	x = (x ^ (x >> 27)) * mix2
	return x ^ (x >> 31)
}

// StreamSeed derives the seed for stream index from the job seed.
func StreamSeed(seed int64, index uint64) int64 {
	return int64(splitmix64(splitmix64(uint64(seed)) ^ splitmix64(index)))
}

// New returns the random stream for the given job seed and stream index.
func New(seed int64, index uint64) *rand.Rand {
	return rand.New(rand.NewSource(StreamSeed(seed, index)))
}

// Categorical draws an index proportionally to the given non-negative
// weights. It returns -1 when all weights are zero.
func Categorical(r *rand.Rand, weights []float64) int {
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	target := r.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cumulative += w
		if target < cumulative {
			return i
		}
	}
	// Float round-off can leave target at the upper edge.
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i
		}
	}
	return -1
}

// Uniform draws a value from [min, max).
func Uniform(r *rand.Rand, min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + r.Float64()*(max-min)
}

// IntBetween draws an integer from [min, max] inclusive.
func IntBetween(r *rand.Rand, min, max int) int {
	if max <= min {
		return min
	}
	return min + r.Intn(max-min+1)
}
