// Package pso implements particle swarm optimisation over random-key encodings. Each
// particle carries one key per stop; sorting stops by key gives a visiting priority that is
// decoded into routes by sequential vehicle filling.
package pso

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"vrptw/internal/model"
	"vrptw/internal/opt"
)

// Config holds the swarm's hyperparameters.
type Config struct {
	opt.Settings `yaml:",inline"`

	Particles   int     `json:"particles" yaml:"particles"`
	Inertia     float64 `json:"inertia" yaml:"inertia"`     // ω
	Cognitive   float64 `json:"cognitive" yaml:"cognitive"` // c1
	Social      float64 `json:"social" yaml:"social"`       // c2
	MaxVelocity float64 `json:"maxVelocity" yaml:"maxVelocity"`
	LocalSearch bool    `json:"localSearch,omitempty" yaml:"localSearch"`
}

// DefaultConfig returns the constriction-style parameters common in VRP-PSO literature.
func DefaultConfig() Config {
	return Config{
		Settings:    opt.Settings{Stopping: opt.Stopping{MaxIterations: 500}},
		Particles:   30,
		Inertia:     0.729,
		Cognitive:   1.49445,
		Social:      1.49445,
		MaxVelocity: 0.25,
	}
}

// Validate rejects parameters the swarm cannot run with.
func (c Config) Validate() error {
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	switch {
	case c.Particles <= 0:
		return fmt.Errorf("%w: pso: particles must be positive", opt.ErrInvalidConfig)
	case c.Inertia < 0 || c.Cognitive < 0 || c.Social < 0:
		return fmt.Errorf("%w: pso: inertia and acceleration coefficients must be non-negative", opt.ErrInvalidConfig)
	case c.MaxVelocity <= 0:
		return fmt.Errorf("%w: pso: max velocity must be positive", opt.ErrInvalidConfig)
	}
	return nil
}

// Solver is a particle swarm over one problem. Positions, velocities and personal bests
// live in flat buffers of Particles×dim keys.
type Solver struct {
	cfg  Config
	p    *model.Problem
	eval *opt.Evaluator
	rng  *rand.Rand
	dim  int

	pos, vel []float64
	pbestPos []float64
	pbest    []opt.Candidate
	gbestPos []float64
	gbest    opt.Candidate
	current  float64
}

// New validates cfg and returns an uninitialised solver.
func New(cfg Config) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Solver{cfg: cfg}, nil
}

func (s *Solver) Name() string           { return "pso" }
func (s *Solver) Settings() opt.Settings { return s.cfg.Settings }
func (s *Solver) Done() bool             { return false }
func (s *Solver) Best() opt.Candidate    { return s.gbest.Clone() }

// Current is the best fitness among the swarm's present positions.
func (s *Solver) Current() float64 { return s.current }

// Initialize scatters the swarm uniformly over [0,1)^dim. Particle 0 starts on the keys of
// the cheapest-insertion solution, and that solution is its personal best: decoding the keys
// repacks the stops first-fit and can lose construction's route split.
func (s *Solver) Initialize(ctx context.Context, p *model.Problem) error {
	if p == nil {
		return fmt.Errorf("pso: nil problem")
	}
	s.p = p
	s.eval = opt.NewEvaluator(p, s.cfg.Penalty)
	s.rng = opt.NewRand(s.cfg.Seed)
	s.dim = p.NumStops()

	size := s.cfg.Particles * s.dim
	s.pos = make([]float64, size)
	s.vel = make([]float64, size)
	for i := range s.pos {
		s.pos[i] = s.rng.Float64()
		s.vel[i] = (2*s.rng.Float64() - 1) * s.cfg.MaxVelocity
	}
	built := opt.Construct(s.eval)
	if s.cfg.RepairAttempts > 0 {
		opt.Repair(s.eval, &built, s.cfg.RepairAttempts)
	}
	seed := s.eval.Score(built)
	encode(seed.Solution, s.particle(s.pos, 0))

	cands, err := s.decodeAll(ctx)
	if err != nil {
		return err
	}
	s.current = math.Inf(1)
	for _, c := range cands {
		s.current = math.Min(s.current, c.Fitness)
	}
	s.pbestPos = append([]float64(nil), s.pos...)
	s.pbest = cands
	if seed.Better(s.pbest[0]) {
		s.pbest[0] = seed
	}
	g := 0
	for i := 1; i < len(s.pbest); i++ {
		if s.pbest[i].Better(s.pbest[g]) {
			g = i
		}
	}
	s.gbest = s.pbest[g].Clone()
	s.gbestPos = append([]float64(nil), s.particle(s.pbestPos, g)...)
	return nil
}

// Step moves every particle, decodes and scores the swarm in parallel, then updates the
// personal and global bests. Random coefficients are drawn before the parallel section in
// particle order, so results do not depend on scheduling.
func (s *Solver) Step(ctx context.Context) error {
	c := s.cfg
	for i := 0; i < c.Particles; i++ {
		x, v := s.particle(s.pos, i), s.particle(s.vel, i)
		pb := s.particle(s.pbestPos, i)
		for d := range x {
			r1, r2 := s.rng.Float64(), s.rng.Float64()
			nv := c.Inertia*v[d] + c.Cognitive*r1*(pb[d]-x[d]) + c.Social*r2*(s.gbestPos[d]-x[d])
			v[d] = math.Max(-c.MaxVelocity, math.Min(c.MaxVelocity, nv))
			x[d] += v[d]
		}
	}

	cands, err := s.decodeAll(ctx)
	if err != nil {
		return err
	}
	s.current = math.Inf(1)
	for i, cand := range cands {
		s.current = math.Min(s.current, cand.Fitness)
		if cand.Better(s.pbest[i]) {
			s.pbest[i] = cand
			copy(s.particle(s.pbestPos, i), s.particle(s.pos, i))
		}
		if cand.Better(s.gbest) {
			s.gbest = cand.Clone()
			copy(s.gbestPos, s.particle(s.pos, i))
		}
	}
	return nil
}

func (s *Solver) particle(buf []float64, i int) []float64 {
	return buf[i*s.dim : (i+1)*s.dim]
}

func (s *Solver) decodeAll(ctx context.Context) ([]opt.Candidate, error) {
	out := make([]opt.Candidate, s.cfg.Particles)
	err := opt.Parallel(ctx, s.cfg.WorkerCount(), len(out), func(_ context.Context, i int) error {
		sol := Decode(s.eval, s.particle(s.pos, i))
		if s.cfg.LocalSearch {
			opt.ImproveTwoOpt(s.eval, &sol, 1)
		}
		if s.cfg.RepairAttempts > 0 {
			opt.Repair(s.eval, &sol, s.cfg.RepairAttempts)
		}
		out[i] = s.eval.Score(sol)
		return nil
	})
	return out, err
}

// Decode turns a key vector into a solution: stop i+1 has key keys[i]; stops are visited in
// ascending key order (ties by index) and packed into vehicles with opt.GreedyFill.
func Decode(e *opt.Evaluator, keys []float64) opt.Solution {
	order := make([]int, len(keys))
	for i := range order {
		order[i] = i + 1
	}
	sort.SliceStable(order, func(a, b int) bool {
		return keys[order[a]-1] < keys[order[b]-1]
	})
	return opt.GreedyFill(e, order)
}

// encode writes keys that make Decode visit s's stops in route order.
func encode(s opt.Solution, keys []float64) {
	served := s.Served()
	for rank, st := range served {
		keys[st-1] = (float64(rank) + 0.5) / float64(len(served))
	}
}
