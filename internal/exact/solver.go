package exact

import (
	"context"
	"fmt"

	"vrptw/internal/model"
	"vrptw/internal/opt"
)

// Solver adapts Solve to the opt.Solver contract. The whole solve is a single step; the
// cheapest-insertion solution stands in as the best candidate until it completes.
type Solver struct {
	cfg     Config
	p       *model.Problem
	best    opt.Candidate
	outcome Outcome
	stepped bool
}

// NewSolver validates cfg.
func NewSolver(cfg Config) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Solver{cfg: cfg}, nil
}

func (s *Solver) Name() string           { return "exact" }
func (s *Solver) Settings() opt.Settings { return s.cfg.Settings }
func (s *Solver) Best() opt.Candidate    { return s.best.Clone() }
func (s *Solver) Done() bool             { return s.stepped }

// Initialize rejects instances above MaxStops before any work is done.
func (s *Solver) Initialize(_ context.Context, p *model.Problem) error {
	if p == nil {
		return fmt.Errorf("exact: nil problem")
	}
	if n, limit := p.NumStops(), s.cfg.maxStops(); n > limit {
		return fmt.Errorf("%w: %d stops, limit %d", ErrInstanceTooLarge, n, limit)
	}
	s.p = p
	s.stepped = false
	e := opt.NewEvaluator(p, s.cfg.Penalty)
	s.best = e.Score(opt.Construct(e))
	return nil
}

func (s *Solver) Step(ctx context.Context) error {
	out, err := Solve(ctx, s.p, s.cfg)
	s.stepped = true
	if err != nil {
		return err
	}
	s.outcome = out
	s.best = opt.Candidate{Solution: out.Solution, Metrics: out.Metrics, Fitness: out.Fitness}
	return nil
}

// Outcome reports the solve's status and optimality gap.
func (s *Solver) Outcome() (opt.Status, float64) {
	if !s.stepped {
		return opt.StatusCancelled, 0
	}
	return s.outcome.Status, s.outcome.Gap
}
