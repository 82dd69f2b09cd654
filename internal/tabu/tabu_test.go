package tabu

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vrptw/internal/model"
	"vrptw/internal/opt"
)

func instance(t *testing.T) *model.Problem {
	t.Helper()
	p, err := model.Generate(model.GenerateOptions{
		Stops: 14, Vehicles: 3, Capacity: 35, Service: 2, Horizon: 300, WindowWidth: 70, Seed: 3,
	})
	require.NoError(t, err)
	return p
}

func run(t *testing.T, p *model.Problem, cfg Config) opt.Result {
	t.Helper()
	s, err := New(cfg)
	require.NoError(t, err)
	res, err := opt.Run(context.Background(), s, p)
	require.NoError(t, err)
	return res
}

func TestListExpiresAndEvicts(t *testing.T) {
	l := NewList(2)
	l.Add(opt.Attr{Stop: 1, Route: 0, Pos: 2}, 5)
	assert.True(t, l.Forbids([]opt.Attr{{Stop: 1, Route: 0, Pos: 2}}, 4))
	assert.False(t, l.Forbids([]opt.Attr{{Stop: 1, Route: 0, Pos: 3}}, 4))
	assert.False(t, l.Forbids([]opt.Attr{{Stop: 1, Route: 0, Pos: 2}}, 5), "expired")

	l.Add(opt.Attr{Stop: 2, Route: 1, Pos: -1}, 10)
	assert.True(t, l.Forbids([]opt.Attr{{Stop: 2, Route: 1, Pos: 7}}, 6), "wildcard position")

	l.Add(opt.Attr{Stop: 3, Route: 0, Pos: 0}, 10)
	assert.Equal(t, 2, l.Len())
	assert.False(t, l.Forbids([]opt.Attr{{Stop: 1, Route: 0, Pos: 2}}, 1), "oldest entry evicted")

	empty := NewList(0)
	empty.Add(opt.Attr{Stop: 1}, 100)
	assert.Zero(t, empty.Len())
}

func TestZeroTenureWithoutAspirationIsGreedyDescent(t *testing.T) {
	p := instance(t)
	cfg := DefaultConfig()
	cfg.Tenure = 0
	cfg.NoAspiration = true
	cfg.Stopping = opt.Stopping{MaxIterations: 1000}
	res := run(t, p, cfg)

	require.NotEmpty(t, res.Curve)
	initial := res.Curve[0].Current
	for i := 1; i < len(res.Curve); i++ {
		assert.LessOrEqual(t, res.Curve[i].Current, res.Curve[i-1].Current+1e-9)
	}
	assert.LessOrEqual(t, res.Fitness, initial)
	assert.Equal(t, opt.StopExhausted, res.StopReason)
}

func TestSearchIsDeterministic(t *testing.T) {
	p := instance(t)
	cfg := DefaultConfig()
	cfg.Seed = 42
	cfg.SampleSize = 40
	cfg.Stopping = opt.Stopping{MaxIterations: 60}
	a, b := run(t, p, cfg), run(t, p, cfg)
	assert.True(t, a.Solution.Equal(b.Solution))
	require.Len(t, b.Curve, len(a.Curve))
	for i := range a.Curve {
		assert.Equal(t, a.Curve[i].Best, b.Curve[i].Best)
		assert.Equal(t, a.Curve[i].Current, b.Curve[i].Current)
	}
}

func TestSearchAcceptsWorseningMovesAndKeepsBest(t *testing.T) {
	p := instance(t)
	cfg := DefaultConfig()
	cfg.Tenure = 5
	cfg.Kinds = []opt.MoveKind{opt.Transfer, opt.Swap}
	cfg.Stopping = opt.Stopping{MaxIterations: 80}
	res := run(t, p, cfg)

	for i, n := range res.Solution.Coverage(p.NumStops()) {
		if i > 0 {
			assert.Equal(t, 1, n, "stop %d", i)
		}
	}
	for _, pt := range res.Curve {
		assert.LessOrEqual(t, pt.Best, pt.Current+1e-9)
	}
	assert.Equal(t, res.Curve[len(res.Curve)-1].Best, res.Fitness)
}

func TestInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tenure = -1
	_, err := New(cfg)
	assert.ErrorIs(t, err, opt.ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.Kinds = []opt.MoveKind{9}
	_, err = New(cfg)
	assert.ErrorIs(t, err, opt.ErrInvalidConfig)
}
