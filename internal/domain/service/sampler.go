package service

import (
	"fmt"
	"math/rand/v2"

	"github.com/lite-lake/infra-cfdns/internal/domain"
)

// Rand is the random source used for sampling. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Sample picks n distinct elements of population in random order using a
// partial Fisher-Yates shuffle over indexes. population is not modified.
func Sample[T any](rng Rand, population []T, n int) ([]T, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative sample size %d", domain.ErrSampleTooLarge, n)
	}
	if n > len(population) {
		return nil, fmt.Errorf("%w: want %d, have %d", domain.ErrSampleTooLarge, n, len(population))
	}
	if rng == nil {
		rng = globalRand{}
	}

	idx := make([]int, len(population))
	for i := range idx {
		idx[i] = i
	}

	out := make([]T, n)
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
		out[i] = population[idx[i]]
	}
	return out, nil
}
