package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vrptw/internal/model"
)

func generated(t *testing.T, seed int64) *model.Problem {
	t.Helper()
	p, err := model.Generate(model.GenerateOptions{
		Stops: 20, Vehicles: 4, Capacity: 40, Service: 5, Horizon: 400, WindowWidth: 80, Seed: seed,
	})
	require.NoError(t, err)
	return p
}

func TestConstructServesEveryStopOnce(t *testing.T) {
	p := generated(t, 4)
	e := NewEvaluator(p, Penalty{})
	s := Construct(e)
	require.Len(t, s.Routes, p.NumVehicles())
	for i, n := range s.Coverage(p.NumStops()) {
		if i > 0 {
			assert.Equal(t, 1, n, "stop %d", i)
		}
	}
	assert.Zero(t, e.Evaluate(s).Unassigned)
	assert.True(t, s.Equal(Construct(e)))
}

func TestGreedyFillOpensVehiclesOnOverflow(t *testing.T) {
	p := rectangle(t, 5, 2, nil)
	e := NewEvaluator(p, Penalty{})
	s := GreedyFill(e, []int{1, 2, 3})
	assert.Equal(t, []int{1, 2}, s.Routes[0].Stops)
	assert.Equal(t, []int{3}, s.Routes[1].Stops)
	assert.True(t, e.Evaluate(s).Feasible)

	// a single vehicle absorbs the overflow and is penalised for it
	p = rectangle(t, 5, 1, nil)
	e = NewEvaluator(p, Penalty{})
	s = GreedyFill(e, []int{1, 2, 3})
	assert.Equal(t, []int{1, 2, 3}, s.Routes[0].Stops)
	assert.Equal(t, 4.0, e.Evaluate(s).CapacityViolation)
}

func TestImproveTwoOptNeverWorsens(t *testing.T) {
	p := generated(t, 11)
	e := NewEvaluator(p, Penalty{})
	order := make([]int, p.NumStops())
	for i := range order {
		order[i] = p.NumStops() - i
	}
	s := GreedyFill(e, order)
	before := e.Fitness(s)
	ImproveTwoOpt(e, &s, 5)
	assert.LessOrEqual(t, e.Fitness(s), before)
	assert.Equal(t, order, sortedDesc(s.Served()), "2-opt only reorders within routes")
}

func sortedDesc(xs []int) []int {
	out := sortedServed(Solution{Routes: []Route{{Stops: xs}}})
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func TestRepairMovesOverflowToIdleVehicle(t *testing.T) {
	p := rectangle(t, 5, 2, nil)
	e := NewEvaluator(p, Penalty{})
	s := Solution{Routes: []Route{{Vehicle: 0, Stops: []int{1, 2, 3}}, {Vehicle: 1, Stops: []int{}}}}
	require.False(t, e.Evaluate(s).Feasible)

	assert.True(t, Repair(e, &s, 5))
	assert.Equal(t, 3, s.Len())
	assert.Zero(t, e.Evaluate(s).CapacityViolation)
}

func TestRepairLeavesFeasibleSolutionAlone(t *testing.T) {
	p := rectangle(t, 10, 2, nil)
	e := NewEvaluator(p, Penalty{})
	s := Solution{Routes: []Route{{Vehicle: 0, Stops: []int{1, 2, 3}}, {Vehicle: 1, Stops: []int{}}}}
	orig := s.Clone()
	assert.True(t, Repair(e, &s, 5))
	assert.True(t, s.Equal(orig))
}
