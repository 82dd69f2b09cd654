package exact

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vrptw/internal/model"
	"vrptw/internal/opt"
)

func fiveStops(t *testing.T) *model.Problem {
	t.Helper()
	stops := []model.Stop{
		{ID: "a", X: 2, Y: 9, Demand: 1, Latest: 1000},
		{ID: "b", X: 8, Y: 7, Demand: 2, Latest: 1000},
		{ID: "c", X: 9, Y: 1, Demand: 1, Latest: 1000},
		{ID: "d", X: 4, Y: -5, Demand: 3, Latest: 1000},
		{ID: "e", X: -6, Y: 2, Demand: 2, Latest: 1000},
	}
	p, err := model.Build(model.Stop{ID: "depot"}, stops, []model.Vehicle{{ID: "v1", Capacity: 100}}, nil, nil)
	require.NoError(t, err)
	return p
}

// bruteForce returns the cheapest feasible single-vehicle tour over all permutations.
func bruteForce(p *model.Problem) float64 {
	perm := make([]int, p.NumStops())
	for i := range perm {
		perm[i] = i + 1
	}
	best := math.Inf(1)
	var visit func(k int)
	visit = func(k int) {
		if k == len(perm) {
			ev := opt.EvaluateRoute(p, 0, perm)
			if ev.CapacityViolation == 0 && ev.TimeViolation == 0 && ev.Cost < best {
				best = ev.Cost
			}
			return
		}
		for i := k; i < len(perm); i++ {
			perm[k], perm[i] = perm[i], perm[k]
			visit(k + 1)
			perm[k], perm[i] = perm[i], perm[k]
		}
	}
	visit(0)
	return best
}

func TestSolveFindsGlobalOptimum(t *testing.T) {
	p := fiveStops(t)
	want := bruteForce(p)
	for _, backend := range Backends() {
		t.Run(backend, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Backend = backend
			out, err := Solve(context.Background(), p, cfg)
			require.NoError(t, err)
			assert.Equal(t, opt.StatusOptimal, out.Status)
			assert.Zero(t, out.Gap)
			assert.True(t, out.Metrics.Feasible)
			assert.InDelta(t, want, out.Metrics.TotalCost, 1e-6)
			assert.Len(t, out.Solution.Routes[0].Stops, 5)
		})
	}
}

func TestBackendsAgreeOnFleets(t *testing.T) {
	p, err := model.Generate(model.GenerateOptions{
		Stops: 7, Vehicles: 3, Capacity: 15, MaxDemand: 6, Service: 1, Horizon: 200, WindowWidth: 60, Seed: 8,
	})
	require.NoError(t, err)

	var costs []float64
	for _, backend := range Backends() {
		cfg := DefaultConfig()
		cfg.Backend = backend
		out, err := Solve(context.Background(), p, cfg)
		require.NoError(t, err)
		require.Contains(t, []opt.Status{opt.StatusOptimal, opt.StatusInfeasible}, out.Status)
		if out.Status == opt.StatusOptimal {
			assert.True(t, out.Metrics.Feasible, backend)
			for i, n := range out.Solution.Coverage(p.NumStops()) {
				if i > 0 {
					assert.Equal(t, 1, n, "%s: stop %d", backend, i)
				}
			}
		}
		costs = append(costs, out.Metrics.TotalCost)
	}
	// integer weights in the PB model are rounded to 1/1000
	assert.InDelta(t, costs[0], costs[1], 0.01)
}

func TestSolveRejectsLargeInstances(t *testing.T) {
	p, err := model.Generate(model.GenerateOptions{Stops: DefaultMaxStops + 1, Vehicles: 2, Seed: 1})
	require.NoError(t, err)
	_, err = Solve(context.Background(), p, Config{})
	assert.ErrorIs(t, err, ErrInstanceTooLarge)

	s, err := NewSolver(Config{})
	require.NoError(t, err)
	_, err = opt.Run(context.Background(), s, p)
	assert.ErrorIs(t, err, ErrInstanceTooLarge)

	_, err = Solve(context.Background(), p, Config{MaxStops: MaxStopsCeiling + 1})
	assert.ErrorIs(t, err, opt.ErrInvalidConfig)
	_, err = NewSolver(Config{Backend: "simplex"})
	assert.ErrorIs(t, err, opt.ErrInvalidConfig)
}

func TestSolveReportsInfeasibleWithBestEffortSolution(t *testing.T) {
	stops := []model.Stop{
		{ID: "east", X: 10, Latest: 10},
		{ID: "west", X: -10, Latest: 10},
	}
	p, err := model.Build(model.Stop{}, stops, []model.Vehicle{{Capacity: 5}}, nil, nil)
	require.NoError(t, err)
	for _, backend := range Backends() {
		out, err := Solve(context.Background(), p, Config{Backend: backend})
		require.NoError(t, err)
		assert.Equal(t, opt.StatusInfeasible, out.Status, backend)
		assert.Zero(t, out.Metrics.Unassigned)
		assert.Positive(t, out.Metrics.TimeViolation)
		assert.False(t, out.Metrics.Feasible)
	}
}

func TestSolverRunsAsSingleStep(t *testing.T) {
	p := fiveStops(t)
	s, err := NewSolver(DefaultConfig())
	require.NoError(t, err)
	res, err := opt.Run(context.Background(), s, p)
	require.NoError(t, err)
	assert.Equal(t, opt.StatusOptimal, res.Status)
	assert.Equal(t, opt.StopExhausted, res.StopReason)
	assert.Equal(t, 1, res.Iterations)
	assert.InDelta(t, bruteForce(p), res.Fitness, 1e-6)
}

func TestEnumerationKeepsCheapestOrderPerSubset(t *testing.T) {
	p := fiveStops(t)
	in, status := enumerate(context.Background(), p, time.Time{})
	require.Empty(t, status)
	// a single vehicle without binding windows can serve every non-empty subset
	assert.Len(t, in.Columns, 1<<5-1)
	for _, c := range in.Columns {
		ev := opt.EvaluateRoute(p, 0, c.Stops)
		assert.InDelta(t, ev.Cost, c.Cost, 1e-9)
	}
}

func TestInterrupt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, opt.StatusCancelled, interrupt(ctx, time.Time{}))
	assert.Equal(t, opt.StatusTimedOut, interrupt(context.Background(), time.Now().Add(-time.Second)))
	assert.Empty(t, interrupt(context.Background(), time.Time{}))
}

func TestVarNamesFollowSolverNumbering(t *testing.T) {
	in := &Instance{NumStops: 1, Classes: []Class{{Capacity: 1, Members: []int{0}}}, Columns: []Column{
		{Mask: 1, Stops: []int{1}, Cost: 2},
		{Mask: 1, Stops: []int{1}, Cost: 3},
	}}
	constrs, ok := pbConstraints(in)
	require.True(t, ok)
	// soft ¬c0, soft ¬c1, then the hard cover and fleet constraints reuse both variables
	assert.Equal(t, []string{"c0", "", "c1", ""}, varNames(constrs))
}

func TestTimedOutIncumbentIsBoundedSuboptimal(t *testing.T) {
	p := fiveStops(t)
	in, status := enumerate(context.Background(), p, time.Time{})
	require.Empty(t, status)
	constrs, ok := pbConstraints(in)
	require.True(t, ok)
	names := varNames(constrs)

	full := len(in.Columns) - 1 // columns are ordered by mask, so the last one visits every stop
	require.Equal(t, in.Full(), in.Columns[full].Mask)
	model := make([]bool, len(names))
	for i, n := range names {
		if n == colVar(full) {
			model[i] = true
		}
	}

	sel := incumbentSelection(in, names, model, opt.StatusTimedOut)
	assert.Equal(t, opt.StatusBoundedSuboptimal, sel.Status)
	assert.Equal(t, []int{full}, sel.Columns)
	assert.GreaterOrEqual(t, sel.Gap, 0.0)
	assert.Less(t, sel.Gap, 1.0)
	sol := in.assemble(p.NumVehicles(), sel.Columns)
	assert.Len(t, sol.Served(), p.NumStops())

	sel = incumbentSelection(in, names, nil, opt.StatusTimedOut)
	assert.Equal(t, opt.StatusTimedOut, sel.Status)
	assert.Nil(t, sel.Columns)
}
