// Package bench runs several solvers on one instance under a matched budget and seed set,
// and aggregates their results into a comparable report. A solver that fails is logged and
// excluded; the others still run.
package bench

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"vrptw/internal/buildinfo"
	"vrptw/internal/metrics"
	"vrptw/internal/model"
	"vrptw/internal/opt"
)

// Entry is one solver configuration taking part in a comparison. Build receives the entry's
// Settings with the seed and, when set, the budget already applied.
type Entry struct {
	Name     string
	Settings opt.Settings
	Build    func(opt.Settings) (opt.Solver, error)
}

// Options control a comparison.
type Options struct {
	Budget           opt.Stopping       // replaces every entry's stopping criteria when non-zero
	Seeds            []int64            // one run per seed and entry; defaults to each entry's own seed
	Parallelism      int                // concurrent runs; 0 means GOMAXPROCS
	Logger           logrus.FieldLogger // defaults to logrus.StandardLogger()
	ProgressInterval time.Duration      // minimum gap between progress lines per run; 0 disables them
}

// SolverError records why one solver run was excluded.
type SolverError struct {
	Solver string
	Seed   int64
	Cause  error
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("solver %s (seed %d): %v", e.Solver, e.Seed, e.Cause)
}

func (e *SolverError) Unwrap() error { return e.Cause }

// Compare runs every entry once per seed. It only fails when there is nothing to compare;
// individual solver failures are reported in the returned Report.
func Compare(ctx context.Context, p *model.Problem, entries []Entry, o Options) (*Report, error) {
	if p == nil {
		return nil, errors.New("bench: nil problem")
	}
	if len(entries) == 0 {
		return nil, errors.New("bench: no solvers to compare")
	}
	metrics.RegisterDefault()
	log := o.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	workers := o.Parallelism
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	type job struct {
		entry int
		seed  int64
	}
	var jobs []job
	for i, e := range entries {
		seeds := o.Seeds
		if len(seeds) == 0 {
			seeds = []int64{e.Settings.Seed}
		}
		for _, seed := range seeds {
			jobs = append(jobs, job{entry: i, seed: seed})
		}
	}

	rep := &Report{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Stops:     p.NumStops(),
		Vehicles:  p.NumVehicles(),
		Budget:    o.Budget,
		Seeds:     append([]int64(nil), o.Seeds...),
		Host:      hostInfo(),
		Build:     buildinfo.Info(),
	}
	log = log.WithField("report", rep.ID)
	log.WithFields(logrus.Fields{"solvers": len(entries), "runs": len(jobs), "stops": rep.Stops}).Info("comparison started")
	if o.Budget.IsZero() {
		if name, ok := unmatched(entries); ok {
			log.WithField("solver", name).Warn("solvers keep different stopping criteria and no shared budget is set; results are not budget-matched")
		}
	}

	runs := make([]Run, len(jobs))
	errs := make([]*SolverError, len(jobs))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			runs[i], errs[i] = runOne(ctx, p, entries[j.entry], j.seed, o, log)
			return nil
		})
	}
	_ = g.Wait()

	byEntry := make([]SolverReport, len(entries))
	for i, e := range entries {
		byEntry[i].Name = e.Name
	}
	for i, j := range jobs {
		sr := &byEntry[j.entry]
		if errs[i] != nil {
			sr.Errors = append(sr.Errors, errs[i])
			rep.Errors = append(rep.Errors, errs[i])
			continue
		}
		sr.Runs = append(sr.Runs, runs[i])
	}
	for i := range byEntry {
		byEntry[i].summarise()
	}
	rep.Solvers = byEntry
	rep.Ranking = rank(byEntry)
	rep.Elapsed = time.Since(rep.StartedAt)
	log.WithFields(logrus.Fields{"ranking": rep.Ranking, "errors": len(rep.Errors), "elapsed": rep.Elapsed}).Info("comparison finished")
	return rep, nil
}

// runOne builds and runs one solver, converting construction errors, run errors and panics
// into a SolverError.
func runOne(ctx context.Context, p *model.Problem, e Entry, seed int64, o Options, log logrus.FieldLogger) (run Run, serr *SolverError) {
	log = log.WithFields(logrus.Fields{"solver": e.Name, "seed": seed})
	fail := func(err error) *SolverError {
		metrics.SolverErrors.WithLabelValues(e.Name).Inc()
		log.WithError(err).Error("solver run failed; excluded from comparison")
		return &SolverError{Solver: e.Name, Seed: seed, Cause: err}
	}
	defer func() {
		if r := recover(); r != nil {
			serr = fail(fmt.Errorf("panic: %v", r))
		}
	}()

	settings := e.Settings
	settings.Seed = seed
	if !o.Budget.IsZero() {
		settings.Stopping = o.Budget
	}
	if e.Build == nil {
		return run, fail(errors.New("no constructor"))
	}
	s, err := e.Build(settings)
	if err != nil {
		return run, fail(err)
	}
	if s == nil {
		return run, fail(errors.New("constructor returned no solver"))
	}

	var observers []opt.Observer
	if o.ProgressInterval > 0 {
		lim := rate.NewLimiter(rate.Every(o.ProgressInterval), 1)
		observers = append(observers, func(_ string, pt opt.Point) {
			if lim.Allow() {
				log.WithFields(logrus.Fields{"iteration": pt.Iteration, "best": pt.Best, "current": pt.Current}).Debug("progress")
			}
		})
	}
	res, err := opt.Run(ctx, s, p, observers...)
	if err != nil {
		return run, fail(err)
	}
	res.Solver = e.Name

	metrics.SolverRuns.WithLabelValues(e.Name, string(res.Status)).Inc()
	metrics.RunDuration.WithLabelValues(e.Name).Observe(res.Elapsed.Seconds())
	metrics.RunIterations.WithLabelValues(e.Name).Observe(float64(res.Iterations))
	metrics.BestFitness.WithLabelValues(e.Name).Set(res.Fitness)
	log.WithFields(logrus.Fields{
		"status":      res.Status,
		"stopReason":  res.StopReason,
		"fitness":     res.Fitness,
		"feasible":    res.Metrics.Feasible,
		"iterations":  res.Iterations,
		"convergedAt": res.ConvergedAt,
		"elapsed":     res.Elapsed,
	}).Info("solver run finished")
	return Run{ID: uuid.NewString(), Result: res}, nil
}

// unmatched returns the first entry whose stopping criteria differ from the first entry's.
func unmatched(entries []Entry) (string, bool) {
	for _, e := range entries[1:] {
		if !e.Settings.Stopping.Equal(entries[0].Settings.Stopping) {
			return e.Name, true
		}
	}
	return "", false
}

// rank orders solvers with at least one successful run by best fitness; ties keep entry
// order.
func rank(solvers []SolverReport) []string {
	idx := make([]int, 0, len(solvers))
	for i, s := range solvers {
		if !s.Excluded() {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return solvers[idx[a]].Summary.BestFitness < solvers[idx[b]].Summary.BestFitness
	})
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = solvers[j].Name
	}
	return out
}
