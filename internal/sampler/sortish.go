// Package sampler emits length-bucketed index permutations for batch
// assembly. Clustering similar lengths into the same mini-batch keeps
// padding waste low while bucket-level shuffling preserves epoch-to-epoch
// randomness.
package sampler

import (
	"fmt"
	"math/rand"
	"sort"
	"time"
)

// megaChunkFactor sets the coarse shuffle granularity: indices are
// length-sorted within windows of this many batches, so ordering stays
// local and the epoch remains pseudo-random overall.
const megaChunkFactor = 50

// Sortish produces one full index permutation per Order call.
type Sortish struct {
	lengths   []int
	batchSize int
	rng       *rand.Rand
}

// NewSortish builds a sampler over per-example lengths. rng may be nil,
// in which case a time-seeded source is used; pass a seeded source for
// reproducible orders.
func NewSortish(lengths []int, batchSize int, rng *rand.Rand) (*Sortish, error) {
	if len(lengths) == 0 {
		return nil, fmt.Errorf("lengths must not be empty")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Sortish{lengths: lengths, batchSize: batchSize, rng: rng}, nil
}

// Len returns the number of indices each Order call emits.
func (s *Sortish) Len() int { return len(s.lengths) }

// Order returns a fresh permutation of [0, Len()). Indices are shuffled,
// length-sorted descending inside mega-chunks of 50 batches, and
// re-chunked into mini-batches; the mini-batch holding the globally
// longest first element is moved to the front so the most memory-hungry
// batch runs first, and the remaining batch order is shuffled.
func (s *Sortish) Order() []int {
	idxs := s.rng.Perm(len(s.lengths))

	mega := s.batchSize * megaChunkFactor
	for start := 0; start < len(idxs); start += mega {
		chunk := idxs[start:min(start+mega, len(idxs))]
		sort.SliceStable(chunk, func(i, j int) bool {
			return s.lengths[chunk[i]] > s.lengths[chunk[j]]
		})
	}

	var batches [][]int
	for start := 0; start < len(idxs); start += s.batchSize {
		batches = append(batches, idxs[start:min(start+s.batchSize, len(idxs))])
	}

	maxBatch := 0
	for i, b := range batches {
		if s.lengths[b[0]] > s.lengths[batches[maxBatch][0]] {
			maxBatch = i
		}
	}
	batches[0], batches[maxBatch] = batches[maxBatch], batches[0]

	rest := batches[1:]
	s.rng.Shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})

	out := make([]int, 0, len(idxs))
	for _, b := range batches {
		out = append(out, b...)
	}
	return out
}
