package opt

import (
	"context"
	"fmt"
	"time"

	"vrptw/internal/model"
)

// Status is the terminal state of a run.
type Status string

const (
	StatusCompleted         Status = "completed"
	StatusCancelled         Status = "cancelled"
	StatusOptimal           Status = "optimal"
	StatusBoundedSuboptimal Status = "bounded_suboptimal"
	StatusTimedOut          Status = "timed_out"
	StatusInfeasible        Status = "infeasible"
)

// Solver is the contract shared by every search method. Initialize prepares private state
// for p; Step performs one iteration; Best returns a copy of the best candidate so far;
// Done reports that the solver has nothing left to try.
type Solver interface {
	Name() string
	Settings() Settings
	Initialize(ctx context.Context, p *model.Problem) error
	Step(ctx context.Context) error
	Best() Candidate
	Done() bool
}

// Outcomer is implemented by solvers that classify their own result, such as the exact
// solver's optimality status and gap.
type Outcomer interface {
	Outcome() (Status, float64)
}

// Currenter exposes the fitness of the solver's working solution, when it has one.
type Currenter interface {
	Current() float64
}

// Point is one sample of a convergence curve.
type Point struct {
	Iteration int           `json:"iteration"`
	Best      float64       `json:"best"`
	Current   float64       `json:"current"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Result is everything a run hands back to its caller.
type Result struct {
	Solver      string        `json:"solver"`
	Seed        int64         `json:"seed"`
	Solution    Solution      `json:"solution"`
	Metrics     Metrics       `json:"metrics"`
	Fitness     float64       `json:"fitness"`
	Status      Status        `json:"status"`
	StopReason  StopReason    `json:"stopReason"`
	Gap         float64       `json:"gap,omitempty"`
	Iterations  int           `json:"iterations"`
	ConvergedAt int           `json:"convergedAt"` // iteration of the last improvement
	TimeToBest  time.Duration `json:"timeToBest"`
	Elapsed     time.Duration `json:"elapsed"`
	Curve       []Point       `json:"curve"`
}

// Observer receives every curve point as it is recorded.
type Observer func(solver string, pt Point)

// Run drives s until its stopping criterion fires, it reports Done, or ctx ends. The context
// is only checked between iterations; cancellation yields the best solution so far with
// StatusCancelled and no error. A Step error is returned together with the partial result.
func Run(ctx context.Context, s Solver, p *model.Problem, observers ...Observer) (Result, error) {
	name := s.Name()
	stopper := NewStopper(s.Settings().Stopping)
	res := Result{Solver: name, Seed: s.Settings().Seed, Status: StatusCompleted}
	if err := s.Initialize(ctx, p); err != nil {
		return res, fmt.Errorf("%s: initialize: %w", name, err)
	}
	record := func(iter int) Candidate {
		best := s.Best()
		pt := Point{Iteration: iter, Best: best.Fitness, Current: best.Fitness, Elapsed: stopper.Elapsed()}
		if c, ok := s.(Currenter); ok {
			pt.Current = c.Current()
		}
		if len(res.Curve) == 0 || best.Fitness < res.Curve[len(res.Curve)-1].Best-feasTol {
			res.TimeToBest = pt.Elapsed
		}
		res.Curve = append(res.Curve, pt)
		for _, o := range observers {
			o(name, pt)
		}
		return best
	}
	stopper.Observe(0, record(0).Fitness)

	var stepErr error
	for {
		if ctx.Err() != nil {
			res.Status, res.StopReason = StatusCancelled, StopCancelled
			break
		}
		if s.Done() {
			res.StopReason = StopExhausted
			break
		}
		if stepErr = s.Step(ctx); stepErr != nil {
			stepErr = fmt.Errorf("%s: iteration %d: %w", name, res.Iterations+1, stepErr)
			break
		}
		res.Iterations++
		best := record(res.Iterations)
		if stop, why := stopper.Observe(res.Iterations, best.Fitness); stop {
			res.StopReason = why
			break
		}
	}

	best := s.Best()
	res.Solution = best.Solution.Clone()
	res.Metrics = best.Metrics
	res.Fitness = best.Fitness
	res.ConvergedAt = stopper.LastImprovement()
	res.Elapsed = stopper.Elapsed()
	if o, ok := s.(Outcomer); ok && res.Status != StatusCancelled {
		res.Status, res.Gap = o.Outcome()
		if res.Status == StatusCancelled {
			res.StopReason = StopCancelled
		}
	}
	return res, stepErr
}
