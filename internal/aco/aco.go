// Package aco implements an elitist ant colony optimiser. Ants build complete solutions
// arc by arc, biased by a pheromone matrix and inverse distance; after each colony the
// iteration-best solution reinforces the arcs it used.
package aco

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"vrptw/internal/model"
	"vrptw/internal/opt"
)

// Config holds the colony's hyperparameters.
type Config struct {
	opt.Settings `yaml:",inline"`

	Ants             int     `json:"ants" yaml:"ants"`
	Alpha            float64 `json:"alpha" yaml:"alpha"`             // pheromone exponent
	Beta             float64 `json:"beta" yaml:"beta"`               // visibility exponent
	Evaporation      float64 `json:"evaporation" yaml:"evaporation"` // ρ in (0, 1]
	Deposit          float64 `json:"deposit" yaml:"deposit"`         // Q
	InitialPheromone float64 `json:"initialPheromone,omitempty" yaml:"initialPheromone"`
	LocalSearch      bool    `json:"localSearch,omitempty" yaml:"localSearch"`
}

// DefaultConfig returns commonly used colony parameters with a 500 iteration budget.
func DefaultConfig() Config {
	return Config{
		Settings:    opt.Settings{Stopping: opt.Stopping{MaxIterations: 500}},
		Ants:        20,
		Alpha:       1,
		Beta:        2,
		Evaporation: 0.1,
		Deposit:     1,
	}
}

// Validate rejects parameters the colony cannot run with.
func (c Config) Validate() error {
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	switch {
	case c.Ants <= 0:
		return fmt.Errorf("%w: aco: ants must be positive", opt.ErrInvalidConfig)
	case c.Alpha < 0 || c.Beta < 0:
		return fmt.Errorf("%w: aco: alpha and beta must be non-negative", opt.ErrInvalidConfig)
	case c.Evaporation <= 0 || c.Evaporation > 1:
		return fmt.Errorf("%w: aco: evaporation must be in (0, 1]", opt.ErrInvalidConfig)
	case c.Deposit <= 0:
		return fmt.Errorf("%w: aco: deposit must be positive", opt.ErrInvalidConfig)
	case c.InitialPheromone < 0:
		return fmt.Errorf("%w: aco: initial pheromone must be non-negative", opt.ErrInvalidConfig)
	}
	return nil
}

// Solver is an ant colony over one problem.
type Solver struct {
	cfg  Config
	p    *model.Problem
	eval *opt.Evaluator
	rng  *rand.Rand

	tau *mat.Dense // pheromone per arc, indexed by node
	eta *mat.Dense // (1/d)^β, fixed for the run

	best    opt.Candidate
	current float64 // iteration-best fitness
}

// New validates cfg and returns an uninitialised solver.
func New(cfg Config) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Solver{cfg: cfg}, nil
}

func (s *Solver) Name() string           { return "aco" }
func (s *Solver) Settings() opt.Settings { return s.cfg.Settings }
func (s *Solver) Done() bool             { return false }

// Best returns a copy of the best solution found so far.
func (s *Solver) Best() opt.Candidate { return s.best.Clone() }

// Current is the fitness of the latest colony's best ant.
func (s *Solver) Current() float64 { return s.current }

// Initialize seeds the pheromone matrix. Without an explicit InitialPheromone it uses
// Q/(n·L) where L is the fitness of the constructed seed solution.
func (s *Solver) Initialize(_ context.Context, p *model.Problem) error {
	if p == nil {
		return fmt.Errorf("aco: nil problem")
	}
	s.p = p
	s.eval = opt.NewEvaluator(p, s.cfg.Penalty)
	s.rng = opt.NewRand(s.cfg.Seed)

	seed := opt.Construct(s.eval)
	if s.cfg.RepairAttempts > 0 {
		opt.Repair(s.eval, &seed, s.cfg.RepairAttempts)
	}
	s.best = s.eval.Score(seed)
	s.current = s.best.Fitness

	n := p.NumNodes()
	tau0 := s.cfg.InitialPheromone
	if tau0 == 0 {
		tau0 = s.cfg.Deposit / (float64(n) * math.Max(s.best.Fitness, 1))
	}
	s.tau = mat.NewDense(n, n, nil)
	s.eta = mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			s.tau.Set(i, j, tau0)
			s.eta.Set(i, j, math.Pow(1/math.Max(p.Dist(i, j), 1e-6), s.cfg.Beta))
		}
	}
	return nil
}

// Step releases one colony. Ants construct in parallel from derived seeds; the reduction
// and pheromone update that follow run on the calling goroutine.
func (s *Solver) Step(ctx context.Context) error {
	seeds := opt.DeriveSeeds(s.rng, s.cfg.Ants)
	colony := make([]opt.Candidate, s.cfg.Ants)
	err := opt.Parallel(ctx, s.cfg.WorkerCount(), len(colony), func(_ context.Context, i int) error {
		colony[i] = s.eval.Score(s.construct(opt.NewRand(seeds[i])))
		return nil
	})
	if err != nil {
		return err
	}

	ib := 0
	for i := 1; i < len(colony); i++ {
		if colony[i].Better(colony[ib]) {
			ib = i
		}
	}
	elite := colony[ib]
	if s.cfg.LocalSearch || s.cfg.RepairAttempts > 0 {
		if s.cfg.LocalSearch {
			opt.ImproveTwoOpt(s.eval, &elite.Solution, 2)
		}
		if s.cfg.RepairAttempts > 0 {
			opt.Repair(s.eval, &elite.Solution, s.cfg.RepairAttempts)
		}
		elite = s.eval.Score(elite.Solution)
	}
	s.current = elite.Fitness
	if elite.Better(s.best) {
		s.best = elite.Clone()
	}
	s.evaporate()
	s.deposit(elite)
	return nil
}

// Pheromone returns the trail on arc i→j.
func (s *Solver) Pheromone(i, j int) float64 { return s.tau.At(i, j) }

func (s *Solver) evaporate() {
	s.tau.Scale(1-s.cfg.Evaporation, s.tau)
}

func (s *Solver) deposit(c opt.Candidate) {
	amount := s.cfg.Deposit / math.Max(c.Fitness, 1e-9)
	sym := s.p.Symmetric()
	add := func(i, j int) {
		s.tau.Set(i, j, s.tau.At(i, j)+amount)
		if sym {
			s.tau.Set(j, i, s.tau.At(j, i)+amount)
		}
	}
	for _, r := range c.Solution.Routes {
		if len(r.Stops) == 0 {
			continue
		}
		prev := 0
		for _, st := range r.Stops {
			add(prev, st)
			prev = st
		}
		add(prev, 0)
	}
}

// construct builds one ant's solution. At each step the ant chooses among unvisited stops
// the current vehicle can still serve; when none fits it closes the route and moves to the
// next vehicle, and the last vehicle takes whatever remains.
func (s *Solver) construct(rng *rand.Rand) opt.Solution {
	p := s.p
	n := p.NumStops()
	sol := opt.NewSolution(p.NumVehicles())
	visited := make([]bool, n+1)
	cands := make([]int, 0, n)
	weights := make([]float64, 0, n)

	k := 0
	trip := opt.NewTrip(p, k)
	lastVehicle := len(sol.Routes) - 1
	for placed := 0; placed < n; {
		cands, weights = cands[:0], weights[:0]
		from := trip.Last()
		for j := 1; j <= n; j++ {
			if !visited[j] && trip.Fits(j) {
				cands = append(cands, j)
			}
		}
		if len(cands) == 0 {
			if k < lastVehicle {
				k++
				trip = opt.NewTrip(p, k)
				continue
			}
			for j := 1; j <= n; j++ {
				if !visited[j] {
					cands = append(cands, j)
				}
			}
		}
		for _, j := range cands {
			weights = append(weights, math.Pow(s.tau.At(from, j), s.cfg.Alpha)*s.eta.At(from, j))
		}
		next := cands[opt.Roulette(weights, rng)]
		sol.Routes[k].Stops = append(sol.Routes[k].Stops, next)
		trip.Visit(next)
		visited[next] = true
		placed++
	}
	return sol
}
