package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vrptw/internal/bench"
	"vrptw/internal/model"
	"vrptw/internal/opt"
	"vrptw/internal/tabu"
)

const sample = `
budget:
  maxIterations: 15
  maxWallClock: 2m
seeds: [11, 12]
parallelism: 2
progressInterval: 500ms
solvers:
  - kind: aco
    params:
      ants: 8
      beta: 3
      localSearch: true
  - name: swarm
    kind: pso
    params:
      particles: 12
      penalty:
        capacity: 500
  - kind: tabu
    params:
      tenure: 4
      kinds: [relocate, two_opt]
  - kind: exact
    params:
      backend: pb
      timeLimit: 5s
`

func TestLoadDecodesSections(t *testing.T) {
	f, err := Load(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, 15, f.Budget.MaxIterations)
	assert.Equal(t, 2*time.Minute, f.Budget.MaxWallClock)
	o := f.Options()
	assert.Equal(t, []int64{11, 12}, o.Seeds)
	assert.Equal(t, 2, o.Parallelism)
	assert.Equal(t, 500*time.Millisecond, o.ProgressInterval)

	entries, err := f.Entries()
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"aco", "swarm", "tabu", "exact"}, names)
	assert.Equal(t, 500.0, entries[1].Settings.Penalty.Capacity)
	assert.Equal(t, 500, entries[0].Settings.Stopping.MaxIterations, "defaults survive partial params")

	s, err := entries[2].Build(entries[2].Settings)
	require.NoError(t, err)
	assert.Equal(t, "tabu", s.Name())
	_, ok := s.(*tabu.Solver)
	assert.True(t, ok)
}

func TestEntriesRunThroughHarness(t *testing.T) {
	f, err := Load(strings.NewReader(sample))
	require.NoError(t, err)
	entries, err := f.Entries()
	require.NoError(t, err)

	p, err := model.Generate(model.GenerateOptions{Stops: 6, Vehicles: 2, Seed: 2})
	require.NoError(t, err)
	log, _ := test.NewNullLogger()
	o := f.Options()
	o.Logger = log
	rep, err := bench.Compare(context.Background(), p, entries, o)
	require.NoError(t, err)
	assert.Empty(t, rep.Errors)
	assert.Len(t, rep.Ranking, 4)
	for _, sr := range rep.Solvers {
		assert.Len(t, sr.Runs, 2, sr.Name)
	}
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"unknown top-level key": "solvers: [{kind: tabu}]\nbudjet: {maxIterations: 1}\n",
		"unknown kind":          "solvers: [{kind: annealing}]\n",
		"unknown param":         "solvers: [{kind: aco, params: {antz: 3}}]\n",
		"bad move kind":         "solvers: [{kind: tabu, params: {kinds: [three_opt]}}]\n",
		"duplicate names":       "solvers: [{kind: pso}, {kind: pso}]\n",
		"no solvers":            "seeds: [1]\n",
		"empty":                 "",
		"bad duration":          "budget: {maxWallClock: soon}\nsolvers: [{kind: pso}]\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(doc))
			assert.ErrorIs(t, err, opt.ErrInvalidConfig)
		})
	}
}

func TestBadHyperparameterFailsAtBuild(t *testing.T) {
	f, err := Load(strings.NewReader("solvers: [{kind: aco, params: {ants: 0}}]\n"))
	require.NoError(t, err)
	entries, err := f.Entries()
	require.NoError(t, err)
	_, err = entries[0].Build(entries[0].Settings)
	assert.ErrorIs(t, err, opt.ErrInvalidConfig)
}
