package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for solver runs
	Registry = prometheus.NewRegistry()
	// SolverRuns counts finished runs by solver and terminal status
	SolverRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "vrptw_solver_runs_total", Help: "Finished solver runs."},
		[]string{"solver", "status"},
	)
	// RunDuration records run wall-clock time in seconds
	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "vrptw_run_duration_seconds", Help: "Solver run duration in seconds.", Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300}},
		[]string{"solver"},
	)
	// RunIterations records how many iterations each run took
	RunIterations = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "vrptw_run_iterations", Help: "Iterations per solver run.", Buckets: prometheus.ExponentialBuckets(1, 4, 8)},
		[]string{"solver"},
	)
	// BestFitness is the best penalised fitness of the latest run per solver
	BestFitness = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "vrptw_best_fitness", Help: "Best fitness of the latest run."},
		[]string{"solver"},
	)
	// SolverErrors counts runs excluded from a comparison
	SolverErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "vrptw_solver_errors_total", Help: "Solver runs that failed."},
		[]string{"solver"},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(SolverRuns)
		Registry.MustRegister(RunDuration)
		Registry.MustRegister(RunIterations)
		Registry.MustRegister(BestFitness)
		Registry.MustRegister(SolverErrors)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
