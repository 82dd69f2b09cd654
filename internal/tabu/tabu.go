// Package tabu implements tabu search over the shared move neighbourhood. The working
// solution always moves to its best admissible neighbour, even when that is worse, and the
// positions its stops just left stay forbidden for Tenure iterations.
package tabu

import (
	"context"
	"fmt"
	"math/rand"

	"vrptw/internal/model"
	"vrptw/internal/opt"
)

const tol = 1e-9

// Config holds the search's parameters.
type Config struct {
	opt.Settings `yaml:",inline"`

	Tenure       int            `json:"tenure" yaml:"tenure"`
	NoAspiration bool           `json:"noAspiration,omitempty" yaml:"noAspiration"`
	SampleSize   int            `json:"sampleSize,omitempty" yaml:"sampleSize"` // 0 scans the full neighbourhood
	Kinds        []opt.MoveKind `json:"kinds,omitempty" yaml:"kinds"`           // empty means every kind
}

// DefaultConfig returns a full-neighbourhood search with tenure 10.
func DefaultConfig() Config {
	return Config{
		Settings: opt.Settings{Stopping: opt.Stopping{MaxIterations: 500}},
		Tenure:   10,
	}
}

// Validate rejects parameters the search cannot run with.
func (c Config) Validate() error {
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	if c.Tenure < 0 || c.SampleSize < 0 {
		return fmt.Errorf("%w: tabu: tenure and sample size must be non-negative", opt.ErrInvalidConfig)
	}
	for _, k := range c.Kinds {
		if k > opt.TwoOpt {
			return fmt.Errorf("%w: tabu: unknown move kind %d", opt.ErrInvalidConfig, k)
		}
	}
	return nil
}

// Solver is a tabu search over one problem.
type Solver struct {
	cfg  Config
	eval *opt.Evaluator
	rng  *rand.Rand
	hood opt.Neighborhood
	list *List
	iter int
	done bool

	current  opt.Candidate
	routeFit []float64
	best     opt.Candidate
}

// New validates cfg and returns an uninitialised solver.
func New(cfg Config) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Solver{cfg: cfg, hood: opt.NewNeighborhood(cfg.Kinds...)}, nil
}

func (s *Solver) Name() string           { return "tabu" }
func (s *Solver) Settings() opt.Settings { return s.cfg.Settings }
func (s *Solver) Best() opt.Candidate    { return s.best.Clone() }
func (s *Solver) Current() float64       { return s.current.Fitness }

// Done reports that no admissible move remains, or, without tenure and aspiration, that the
// descent has reached a local optimum.
func (s *Solver) Done() bool { return s.done }

// Initialize starts from the cheapest-insertion solution.
func (s *Solver) Initialize(_ context.Context, p *model.Problem) error {
	if p == nil {
		return fmt.Errorf("tabu: nil problem")
	}
	s.eval = opt.NewEvaluator(p, s.cfg.Penalty)
	s.rng = opt.NewRand(s.cfg.Seed)
	s.list = NewList(2 * s.cfg.Tenure)
	s.iter, s.done = 0, false

	sol := opt.Construct(s.eval)
	if s.cfg.RepairAttempts > 0 {
		opt.Repair(s.eval, &sol, s.cfg.RepairAttempts)
	}
	s.current = s.eval.Score(sol)
	s.best = s.current.Clone()
	s.routeFit = make([]float64, len(sol.Routes))
	for k, r := range sol.Routes {
		s.routeFit[k] = s.eval.RouteFitness(k, r.Stops)
	}
	return nil
}

// Step applies the best admissible move. A tabu move is admissible only under aspiration,
// when it would beat the best solution found so far.
func (s *Solver) Step(_ context.Context) error {
	s.iter++
	cur := s.current.Solution

	var (
		chosen  opt.Move
		chosenD float64
		found   bool
	)
	consider := func(m opt.Move) {
		d := opt.MoveDelta(s.eval, cur, s.routeFit, m)
		if found && d >= chosenD-tol {
			return
		}
		if s.list.Forbids(m.Placements(cur), s.iter) {
			aspires := !s.cfg.NoAspiration && s.current.Fitness+d < s.best.Fitness-tol
			if !aspires {
				return
			}
		}
		chosen, chosenD, found = m, d, true
	}
	if s.cfg.SampleSize > 0 {
		for _, m := range s.hood.Sample(cur, s.cfg.SampleSize, s.rng) {
			consider(m)
		}
	} else {
		for m := range s.hood.Moves(cur) {
			consider(m)
		}
	}

	if !found || (s.cfg.Tenure == 0 && s.cfg.NoAspiration && chosenD >= -tol) {
		s.done = true
		return nil
	}

	for _, a := range chosen.Vacated(cur) {
		s.list.Add(a, s.iter+s.cfg.Tenure+1)
	}
	next := cur.Clone()
	chosen.Apply(&next)
	s.routeFit[chosen.From] = s.eval.RouteFitness(chosen.From, next.Routes[chosen.From].Stops)
	if chosen.To != chosen.From {
		s.routeFit[chosen.To] = s.eval.RouteFitness(chosen.To, next.Routes[chosen.To].Stops)
	}
	s.current = s.eval.Score(next)
	if s.current.Better(s.best) {
		s.best = s.current.Clone()
	}
	return nil
}
