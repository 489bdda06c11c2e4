// Package gendata generates seeded synthetic data: a stream of random
// (key, value) pairs for feeding the B+Tree, or a sorted, deduplicated
// record set ready for staticindex.Build. math/rand/v2 is used directly —
// no third-party PRNG appears anywhere in the retrieval pack for a need
// this narrow.
package gendata

import (
	"math/rand/v2"

	"pagetree/internal/staticindex"
)

// Pair is a single generated (key, value) sample.
type Pair struct {
	Key   uint32
	Value uint32
}

// RandomPairs returns n (key, value) pairs drawn from a PRNG seeded
// deterministically by seed, suitable for feeding Tree.Put in the order
// returned.
func RandomPairs(seed uint64, n int) []Pair {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	pairs := make([]Pair, n)
	for i := range pairs {
		pairs[i] = Pair{Key: r.Uint32(), Value: r.Uint32()}
	}
	return pairs
}

// SortedUniqueRecords generates n records with a running-sum key: each key
// advances the previous one by a random amount in [1, 100], so the sequence
// comes out strictly ascending and duplicate-free with no retries needed,
// ready for staticindex.Build.
func SortedUniqueRecords(seed uint64, n int) []staticindex.Record {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	records := make([]staticindex.Record, n)
	var key uint32
	for i := range records {
		key += r.Uint32()%100 + 1
		records[i] = staticindex.Record{Key: key, Value: r.Uint32()}
	}
	return records
}
