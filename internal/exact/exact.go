// Package exact solves small instances to proven optimality as a set-partitioning problem.
// Every feasible route is enumerated once per vehicle class; a backend then selects routes
// that cover each stop exactly once without exceeding the fleet, at minimum cost.
package exact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vrptw/internal/model"
	"vrptw/internal/opt"
)

// ErrInstanceTooLarge is returned when the instance has more stops than Config.MaxStops.
var ErrInstanceTooLarge = errors.New("instance too large for exact solver")

const (
	// DefaultMaxStops is used when Config.MaxStops is zero.
	DefaultMaxStops = 8
	// MaxStopsCeiling bounds Config.MaxStops; route subsets are 32-bit masks and enumeration
	// is exponential well before that.
	MaxStopsCeiling = 16

	checkEvery = 4096
	tol        = 1e-9
)

// Config configures the exact solver. Settings.Penalty scores the returned solution and a
// Stopping.MaxWallClock doubles as the time limit when TimeLimit is zero.
type Config struct {
	opt.Settings `yaml:",inline"`

	MaxStops  int           `json:"maxStops,omitempty" yaml:"maxStops"`
	TimeLimit time.Duration `json:"timeLimit,omitempty" yaml:"timeLimit"` // 0 means no limit
	Backend   string        `json:"backend,omitempty" yaml:"backend"`     // "bnb" (default) or "pb"
}

// DefaultConfig returns the branch-and-bound backend with a 30s limit.
func DefaultConfig() Config {
	return Config{MaxStops: DefaultMaxStops, TimeLimit: 30 * time.Second, Backend: "bnb"}
}

// Validate checks the limits and backend name.
func (c Config) Validate() error {
	if c.MaxStops < 0 || c.MaxStops > MaxStopsCeiling {
		return fmt.Errorf("%w: exact: max stops must be within [0, %d]", opt.ErrInvalidConfig, MaxStopsCeiling)
	}
	if c.TimeLimit < 0 {
		return fmt.Errorf("%w: exact: negative time limit", opt.ErrInvalidConfig)
	}
	if _, err := backendFor(c.Backend); err != nil {
		return err
	}
	return nil
}

func (c Config) maxStops() int {
	if c.MaxStops == 0 {
		return DefaultMaxStops
	}
	return c.MaxStops
}

func (c Config) timeLimit() time.Duration {
	if c.TimeLimit > 0 {
		return c.TimeLimit
	}
	return c.Stopping.MaxWallClock
}

// Outcome is the result of an exact solve. Gap is (upper − lower)/upper for a bounded
// suboptimal result and zero when optimal.
type Outcome struct {
	Solution opt.Solution
	Metrics  opt.Metrics
	Fitness  float64
	Gap      float64
	Status   opt.Status
	Columns  int // feasible routes enumerated
	Nodes    int // backend search nodes, where the backend counts them
}

// Solve runs the exact method on p. Infeasible, timed-out and cancelled solves still return
// a best-effort solution built by cheapest insertion.
func Solve(ctx context.Context, p *model.Problem, cfg Config) (Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return Outcome{}, err
	}
	if p == nil {
		return Outcome{}, fmt.Errorf("exact: nil problem")
	}
	if n, limit := p.NumStops(), cfg.maxStops(); n > limit {
		return Outcome{}, fmt.Errorf("%w: %d stops, limit %d", ErrInstanceTooLarge, n, limit)
	}
	backend, _ := backendFor(cfg.Backend)
	eval := opt.NewEvaluator(p, cfg.Penalty)

	var deadline time.Time
	if d := cfg.timeLimit(); d > 0 {
		deadline = time.Now().Add(d)
	}
	in, status := enumerate(ctx, p, deadline)
	out := Outcome{Columns: len(in.Columns)}
	if status == "" {
		sel, err := backend.Select(ctx, in, deadline)
		if err != nil {
			return out, fmt.Errorf("exact: %s backend: %w", backend.Name(), err)
		}
		status, out.Gap, out.Nodes = sel.Status, sel.Gap, sel.Nodes
		if sel.Columns != nil {
			out.Solution = in.assemble(p.NumVehicles(), sel.Columns)
		}
	}
	out.Status = status
	if out.Solution.Routes == nil {
		out.Solution = opt.Construct(eval)
		opt.Repair(eval, &out.Solution, p.NumStops())
	}
	c := eval.Score(out.Solution)
	out.Metrics, out.Fitness = c.Metrics, c.Fitness
	return out, nil
}

// Selection is a backend's answer: indices into Instance.Columns.
type Selection struct {
	Columns []int
	Status  opt.Status
	Gap     float64
	Nodes   int
}

// Backend selects a minimum-cost exact cover from enumerated columns. Implementations must
// return promptly once ctx is done or the deadline (when non-zero) passes.
type Backend interface {
	Name() string
	Select(ctx context.Context, in *Instance, deadline time.Time) (Selection, error)
}

// Backends lists the available backend names.
func Backends() []string {
	return []string{"bnb", "pb"}
}

func backendFor(name string) (Backend, error) {
	switch name {
	case "", "bnb":
		return branchAndBound{}, nil
	case "pb":
		return pseudoBoolean{}, nil
	}
	return nil, fmt.Errorf("%w: exact: unknown backend %q", opt.ErrInvalidConfig, name)
}

// interrupt reports why a search must stop: cancellation, the deadline, or neither.
func interrupt(ctx context.Context, deadline time.Time) opt.Status {
	if ctx.Err() != nil {
		return opt.StatusCancelled
	}
	if !deadline.IsZero() && time.Now().After(deadline) {
		return opt.StatusTimedOut
	}
	return ""
}
