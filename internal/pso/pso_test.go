package pso

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
		Stops: 12, Vehicles: 3, Capacity: 40, Service: 3, Horizon: 300, WindowWidth: 50, Seed: 5,
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

func TestDecodeFollowsKeyOrder(t *testing.T) {
	p, err := model.Build(model.Stop{},
		[]model.Stop{
			{ID: "a", X: 1, Demand: 3, Latest: 100},
			{ID: "b", X: 2, Demand: 3, Latest: 100},
			{ID: "c", X: 3, Demand: 3, Latest: 100},
		},
		[]model.Vehicle{{Capacity: 6}, {Capacity: 6}}, nil, nil)
	require.NoError(t, err)
	e := opt.NewEvaluator(p, opt.Penalty{})

	s := Decode(e, []float64{0.9, 0.1, 0.5})
	assert.Equal(t, []int{2, 3}, s.Routes[0].Stops)
	assert.Equal(t, []int{1}, s.Routes[1].Stops)

	keys := make([]float64, 3)
	encode(s, keys)
	assert.True(t, s.Equal(Decode(e, keys)))
}

func TestSwarmIsDeterministic(t *testing.T) {
	p := instance(t)
	cfg := DefaultConfig()
	cfg.Seed = 99
	cfg.Workers = 3
	cfg.Stopping = opt.Stopping{MaxIterations: 40}
	a, b := run(t, p, cfg), run(t, p, cfg)
	assert.True(t, a.Solution.Equal(b.Solution))
	require.Len(t, b.Curve, len(a.Curve))
	for i := range a.Curve {
		assert.Equal(t, a.Curve[i].Best, b.Curve[i].Best)
		assert.Equal(t, a.Curve[i].Current, b.Curve[i].Current)
	}
}

func TestSwarmServesEveryStopAndNeverRegresses(t *testing.T) {
	p := instance(t)
	cfg := DefaultConfig()
	cfg.LocalSearch = true
	cfg.RepairAttempts = 3
	cfg.Stopping = opt.Stopping{MaxIterations: 25}
	res := run(t, p, cfg)
	for i, n := range res.Solution.Coverage(p.NumStops()) {
		if i > 0 {
			assert.Equal(t, 1, n, "stop %d", i)
		}
	}
	for i := 1; i < len(res.Curve); i++ {
		assert.LessOrEqual(t, res.Curve[i].Best, res.Curve[i-1].Best)
	}
}

func TestInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Particles = 0
	_, err := New(cfg)
	assert.ErrorIs(t, err, opt.ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.MaxVelocity = 0
	_, err = New(cfg)
	assert.ErrorIs(t, err, opt.ErrInvalidConfig)
}

func TestSwarmStartsNoWorseThanConstruction(t *testing.T) {
	for seed := int64(1); seed <= 10; seed++ {
		p, err := model.Generate(model.GenerateOptions{
			Stops: 15, Vehicles: 3, Capacity: 40, Horizon: 200, WindowWidth: 50, Seed: seed,
		})
		require.NoError(t, err)
		e := opt.NewEvaluator(p, opt.Penalty{})
		built := e.Fitness(opt.Construct(e))

		cfg := DefaultConfig()
		cfg.Seed = seed
		s, err := New(cfg)
		require.NoError(t, err)
		require.NoError(t, s.Initialize(context.Background(), p))
		assert.LessOrEqual(t, s.Best().Fitness, built+1e-9, "seed %d", seed)
	}
}
