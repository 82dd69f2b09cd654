package opt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vrptw/internal/model"
)

// countdown is a fake solver whose fitness drops by one per step until it reaches floor.
type countdown struct {
	settings Settings
	fitness  float64
	floor    float64
	failAt   int
	steps    int
	onStep   func(int)
}

func (c *countdown) Name() string       { return "countdown" }
func (c *countdown) Settings() Settings { return c.settings }
func (c *countdown) Initialize(context.Context, *model.Problem) error {
	c.fitness = 10
	return nil
}
func (c *countdown) Step(context.Context) error {
	c.steps++
	if c.onStep != nil {
		c.onStep(c.steps)
	}
	if c.failAt > 0 && c.steps == c.failAt {
		return errors.New("boom")
	}
	if c.fitness > c.floor {
		c.fitness--
	}
	return nil
}
func (c *countdown) Best() Candidate { return Candidate{Solution: NewSolution(1), Fitness: c.fitness} }
func (c *countdown) Done() bool      { return false }

func TestRunStopsAtMaxIterations(t *testing.T) {
	s := &countdown{settings: Settings{Seed: 9, Stopping: Stopping{MaxIterations: 4}}}
	var seen []Point
	res, err := Run(context.Background(), s, nil, func(_ string, pt Point) { seen = append(seen, pt) })
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, StopMaxIterations, res.StopReason)
	assert.Equal(t, 4, res.Iterations)
	assert.Equal(t, 6.0, res.Fitness)
	assert.Equal(t, int64(9), res.Seed)
	require.Len(t, res.Curve, 5)
	assert.Equal(t, res.Curve, seen)
	assert.Equal(t, 10.0, res.Curve[0].Best)
}

func TestRunStopsWithoutImprovement(t *testing.T) {
	s := &countdown{floor: 8, settings: Settings{Stopping: Stopping{NoImprovementWindow: 3, MaxIterations: 100}}}
	res, err := Run(context.Background(), s, nil)
	require.NoError(t, err)
	assert.Equal(t, StopNoImprovement, res.StopReason)
	assert.Equal(t, 2, res.ConvergedAt)
	assert.Equal(t, 5, res.Iterations)
}

func TestRunStopsAtTarget(t *testing.T) {
	target := 7.0
	s := &countdown{settings: Settings{Stopping: Stopping{TargetFitness: &target, MaxIterations: 100}}}
	res, err := Run(context.Background(), s, nil)
	require.NoError(t, err)
	assert.Equal(t, StopTarget, res.StopReason)
	assert.Equal(t, 3, res.Iterations)
}

func TestRunCancellationReturnsBestSoFar(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := &countdown{settings: Settings{Stopping: Stopping{MaxIterations: 1000}}}
	s.onStep = func(n int) {
		if n == 3 {
			cancel()
		}
	}
	res, err := Run(ctx, s, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, res.Status)
	assert.Equal(t, 3, res.Iterations, "the iteration in flight completes")
	assert.Equal(t, 7.0, res.Fitness)
}

func TestRunStepErrorKeepsPartialResult(t *testing.T) {
	s := &countdown{failAt: 2, settings: Settings{Stopping: Stopping{MaxIterations: 10}}}
	res, err := Run(context.Background(), s, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, 9.0, res.Fitness)
}

func TestStoppingValidate(t *testing.T) {
	assert.ErrorIs(t, Stopping{}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, Stopping{MaxIterations: -1}.Validate(), ErrInvalidConfig)
	assert.NoError(t, Stopping{MaxWallClock: time.Second}.Validate())
	assert.ErrorIs(t, Settings{Stopping: Stopping{MaxIterations: 1}, Workers: -1}.Validate(), ErrInvalidConfig)
}

func TestStopperWallClock(t *testing.T) {
	st := NewStopper(Stopping{MaxWallClock: time.Millisecond})
	time.Sleep(2 * time.Millisecond)
	stop, why := st.Observe(1, 5)
	assert.True(t, stop)
	assert.Equal(t, StopWallClock, why)
}

func TestParallelVisitsEveryIndex(t *testing.T) {
	out := make([]int, 100)
	err := Parallel(context.Background(), 4, len(out), func(_ context.Context, i int) error {
		out[i] = i * i
		return nil
	})
	require.NoError(t, err)
	for i, v := range out {
		assert.Equal(t, i*i, v)
	}
	err = Parallel(context.Background(), 4, 10, func(_ context.Context, i int) error {
		if i == 7 {
			return errors.New("seven")
		}
		return nil
	})
	assert.EqualError(t, err, "seven")
}

func TestDeriveSeedsIsDeterministic(t *testing.T) {
	assert.Equal(t, DeriveSeeds(NewRand(1), 5), DeriveSeeds(NewRand(1), 5))
	assert.NotEqual(t, DeriveSeeds(NewRand(1), 5), DeriveSeeds(NewRand(2), 5))
}

func TestStoppingEqualComparesTargetByValue(t *testing.T) {
	a, b := 7.0, 7.0
	x := Stopping{MaxIterations: 10, TargetFitness: &a}
	assert.True(t, x.Equal(Stopping{MaxIterations: 10, TargetFitness: &b}))
	assert.False(t, x.Equal(Stopping{MaxIterations: 10}))
	assert.False(t, x.Equal(Stopping{MaxIterations: 11, TargetFitness: &b}))
	assert.True(t, Stopping{}.Equal(Stopping{}))
}
