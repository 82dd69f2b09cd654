package bench

import (
	"math"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"
	"gonum.org/v1/gonum/stat"

	"vrptw/internal/opt"
)

// Report is the outcome of one comparison.
type Report struct {
	ID        string            `json:"id"`
	StartedAt time.Time         `json:"startedAt"`
	Elapsed   time.Duration     `json:"elapsed"`
	Stops     int               `json:"stops"`
	Vehicles  int               `json:"vehicles"`
	Budget    opt.Stopping      `json:"budget"`
	Seeds     []int64           `json:"seeds,omitempty"`
	Solvers   []SolverReport    `json:"solvers"`
	Ranking   []string          `json:"ranking"` // solver names, best first
	Errors    []*SolverError    `json:"-"`
	Host      Host              `json:"host"`
	Build     map[string]string `json:"build"`
}

// Solver returns the named solver's report.
func (r *Report) Solver(name string) (*SolverReport, bool) {
	for i := range r.Solvers {
		if r.Solvers[i].Name == name {
			return &r.Solvers[i], true
		}
	}
	return nil, false
}

// Run is one successful (solver, seed) run.
type Run struct {
	ID string `json:"id"`
	opt.Result
}

// SolverReport aggregates one entry's runs.
type SolverReport struct {
	Name    string         `json:"name"`
	Runs    []Run          `json:"runs"`
	Summary Summary        `json:"summary"`
	Errors  []*SolverError `json:"-"`
}

// Excluded reports whether every run of the solver failed.
func (s *SolverReport) Excluded() bool { return len(s.Runs) == 0 }

// Best returns the run with the lowest fitness; ties keep seed order.
func (s *SolverReport) Best() (Run, bool) {
	if len(s.Runs) == 0 {
		return Run{}, false
	}
	best := s.Runs[0]
	for _, r := range s.Runs[1:] {
		if r.Fitness < best.Fitness {
			best = r
		}
	}
	return best, true
}

// Summary holds statistics over a solver's successful runs.
type Summary struct {
	Runs           int           `json:"runs"`
	Failed         int           `json:"failed"`
	FeasibleRuns   int           `json:"feasibleRuns"`
	BestFitness    float64       `json:"bestFitness"`
	BestCost       float64       `json:"bestCost"`
	MeanFitness    float64       `json:"meanFitness"`
	StdDevFitness  float64       `json:"stdDevFitness"`
	MeanIterations float64       `json:"meanIterations"`
	MeanConverged  float64       `json:"meanConvergedAt"`
	MeanElapsed    time.Duration `json:"meanElapsed"`
}

func (s *SolverReport) summarise() {
	sum := Summary{Runs: len(s.Runs), Failed: len(s.Errors)}
	if len(s.Runs) == 0 {
		s.Summary = sum
		return
	}
	fit := make([]float64, len(s.Runs))
	iters := make([]float64, len(s.Runs))
	conv := make([]float64, len(s.Runs))
	elapsed := make([]float64, len(s.Runs))
	for i, r := range s.Runs {
		fit[i] = r.Fitness
		iters[i] = float64(r.Iterations)
		conv[i] = float64(r.ConvergedAt)
		elapsed[i] = float64(r.Elapsed)
		if r.Metrics.Feasible {
			sum.FeasibleRuns++
		}
	}
	best, _ := s.Best()
	sum.BestFitness = best.Fitness
	sum.BestCost = best.Metrics.TotalCost
	if len(fit) > 1 {
		sum.MeanFitness, sum.StdDevFitness = stat.MeanStdDev(fit, nil)
	} else {
		sum.MeanFitness = fit[0]
	}
	sum.MeanIterations = stat.Mean(iters, nil)
	sum.MeanConverged = stat.Mean(conv, nil)
	sum.MeanElapsed = time.Duration(math.Round(stat.Mean(elapsed, nil)))
	s.Summary = sum
}

// Host describes the machine a comparison ran on.
type Host struct {
	Platform string `json:"platform,omitempty"`
	CPU      string `json:"cpu,omitempty"`
	Cores    int    `json:"cores,omitempty"`
	MemoryGB uint64 `json:"memoryGB,omitempty"`
}

// hostInfo is best effort; fields the platform cannot report stay empty.
func hostInfo() Host {
	var h Host
	if hi, err := host.Info(); err == nil {
		h.Platform = hi.Platform + " " + hi.PlatformVersion
	}
	if ci, err := cpu.Info(); err == nil && len(ci) > 0 {
		h.CPU = ci[0].ModelName
	}
	if n, err := cpu.Counts(true); err == nil {
		h.Cores = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		h.MemoryGB = vm.Total / 1024 / 1024 / 1024
	}
	return h
}
