package dutil

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"
)

// Sampler yields batches of sample indices.
type Sampler interface {
	// Sample returns index batches for one pass over the dataset.
	Sample() [][]int
	// BatchSize returns configured batch size.
	BatchSize() int
}

// BatchSampler groups indices [0, n) into batches of batchSize.
type BatchSampler struct {
	n         int
	batchSize int
	dropLast  bool
	shuffle   bool
	rnd       *rand.Rand
}

// NewBatchSampler creates a BatchSampler over n samples.
//
// If dropLast is false, the last incomplete batch is kept so a pass yields
// ceil(n/batchSize) batches. shuffleOpt enables reshuffling on every Sample call.
func NewBatchSampler(n, batchSize int, dropLast bool, shuffleOpt ...bool) (*BatchSampler, error) {
	if n <= 0 {
		return nil, errors.Errorf("invalid number of samples: %v", n)
	}
	if batchSize <= 0 {
		return nil, errors.Errorf("invalid batch size: %v", batchSize)
	}

	shuffle := false
	if len(shuffleOpt) > 0 {
		shuffle = shuffleOpt[0]
	}

	return &BatchSampler{
		n:         n,
		batchSize: batchSize,
		dropLast:  dropLast,
		shuffle:   shuffle,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Seed reseeds the shuffling source.
func (s *BatchSampler) Seed(seed int64) {
	s.rnd.Seed(seed)
}

// BatchSize implements Sampler interface.
func (s *BatchSampler) BatchSize() int {
	return s.batchSize
}

// Sample implements Sampler interface.
func (s *BatchSampler) Sample() [][]int {
	indices := make([]int, s.n)
	for i := range indices {
		indices[i] = i
	}
	if s.shuffle {
		s.rnd.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	var batches [][]int
	for start := 0; start < s.n; start += s.batchSize {
		end := start + s.batchSize
		if end > s.n {
			if s.dropLast {
				break
			}
			end = s.n
		}
		batches = append(batches, indices[start:end])
	}

	return batches
}
