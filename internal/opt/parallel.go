package opt

import (
	"context"
	"math/rand"

	"golang.org/x/sync/errgroup"
)

// NewRand returns the single random source of a run. Every stochastic decision of a solver
// must draw from it (or from seeds derived from it) for runs to be reproducible.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// DeriveSeeds draws n child seeds from rng, in order. Workers seeded this way produce the
// same output regardless of scheduling.
func DeriveSeeds(rng *rand.Rand, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = rng.Int63()
	}
	return out
}

// Parallel runs fn(i) for i in [0, n) on at most workers goroutines and waits for all of
// them. Results must be written to per-index slots; the caller's reduction after Parallel
// returns is the iteration barrier.
func Parallel(ctx context.Context, workers, n int, fn func(ctx context.Context, i int) error) error {
	if workers <= 1 || n <= 1 {
		for i := 0; i < n; i++ {
			if err := fn(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error { return fn(gctx, i) })
	}
	return g.Wait()
}
