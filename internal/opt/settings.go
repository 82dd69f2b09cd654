package opt

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// ErrInvalidConfig reports an unusable solver configuration.
var ErrInvalidConfig = errors.New("invalid solver config")

// Stopping lists the recognised halting conditions. Zero values are unset; search stops at
// the first condition that is met.
type Stopping struct {
	MaxIterations       int           `json:"maxIterations,omitempty" yaml:"maxIterations"`
	MaxWallClock        time.Duration `json:"maxWallClock,omitempty" yaml:"maxWallClock"`
	TargetFitness       *float64      `json:"targetFitness,omitempty" yaml:"targetFitness"`
	NoImprovementWindow int           `json:"noImprovementWindow,omitempty" yaml:"noImprovementWindow"`
}

// IsZero reports whether no condition is configured.
func (s Stopping) IsZero() bool {
	return s.MaxIterations <= 0 && s.MaxWallClock <= 0 && s.TargetFitness == nil && s.NoImprovementWindow <= 0
}

// Equal reports whether both configure the same conditions; target fitnesses compare by value.
func (s Stopping) Equal(o Stopping) bool {
	if (s.TargetFitness == nil) != (o.TargetFitness == nil) {
		return false
	}
	if s.TargetFitness != nil && *s.TargetFitness != *o.TargetFitness {
		return false
	}
	return s.MaxIterations == o.MaxIterations && s.MaxWallClock == o.MaxWallClock && s.NoImprovementWindow == o.NoImprovementWindow
}

// Validate rejects negative limits and configurations that would never stop.
func (s Stopping) Validate() error {
	if s.MaxIterations < 0 || s.MaxWallClock < 0 || s.NoImprovementWindow < 0 {
		return fmt.Errorf("%w: negative stopping limit", ErrInvalidConfig)
	}
	if s.IsZero() {
		return fmt.Errorf("%w: no stopping criterion configured", ErrInvalidConfig)
	}
	return nil
}

// Settings are shared by every metaheuristic configuration.
type Settings struct {
	Seed           int64    `json:"seed" yaml:"seed"`
	Stopping       Stopping `json:"stopping" yaml:"stopping"`
	Penalty        Penalty  `json:"penalty" yaml:"penalty"`
	Workers        int      `json:"workers,omitempty" yaml:"workers"`               // 0 means GOMAXPROCS
	RepairAttempts int      `json:"repairAttempts,omitempty" yaml:"repairAttempts"` // 0 disables repair
}

// Validate checks the shared settings.
func (s Settings) Validate() error {
	if err := s.Stopping.Validate(); err != nil {
		return err
	}
	if s.Workers < 0 || s.RepairAttempts < 0 {
		return fmt.Errorf("%w: negative workers or repair attempts", ErrInvalidConfig)
	}
	return nil
}

// WorkerCount resolves the worker pool size.
func (s Settings) WorkerCount() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// StopReason names the condition that ended a run.
type StopReason string

const (
	StopNone          StopReason = ""
	StopMaxIterations StopReason = "max_iterations"
	StopWallClock     StopReason = "max_wall_clock"
	StopTarget        StopReason = "target_fitness"
	StopNoImprovement StopReason = "no_improvement"
	StopExhausted     StopReason = "exhausted" // the solver reported Done
	StopCancelled     StopReason = "cancelled"
)

// Stopper tracks progress against a Stopping configuration.
type Stopper struct {
	cfg       Stopping
	start     time.Time
	best      float64
	lastGain  int
	haveBest  bool
	iteration int
}

// NewStopper starts the wall clock now.
func NewStopper(cfg Stopping) *Stopper {
	return &Stopper{cfg: cfg, start: time.Now()}
}

// Observe records the best fitness after an iteration and reports whether to stop.
func (s *Stopper) Observe(iteration int, best float64) (bool, StopReason) {
	s.iteration = iteration
	if !s.haveBest || best < s.best-feasTol {
		s.best = best
		s.lastGain = iteration
		s.haveBest = true
	}
	switch {
	case s.cfg.TargetFitness != nil && best <= *s.cfg.TargetFitness:
		return true, StopTarget
	case s.cfg.MaxIterations > 0 && iteration >= s.cfg.MaxIterations:
		return true, StopMaxIterations
	case s.cfg.NoImprovementWindow > 0 && iteration-s.lastGain >= s.cfg.NoImprovementWindow:
		return true, StopNoImprovement
	case s.cfg.MaxWallClock > 0 && time.Since(s.start) >= s.cfg.MaxWallClock:
		return true, StopWallClock
	}
	return false, StopNone
}

// LastImprovement is the iteration at which the best fitness last improved.
func (s *Stopper) LastImprovement() int { return s.lastGain }

// Elapsed is the wall-clock time since the stopper was created.
func (s *Stopper) Elapsed() time.Duration { return time.Since(s.start) }
