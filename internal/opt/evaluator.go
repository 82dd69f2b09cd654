package opt

import (
	"vrptw/internal/model"
)

// feasTol absorbs floating-point noise when deciding feasibility.
const feasTol = 1e-9

// Penalty holds the λ weights of the relaxed fitness. Zero fields take the defaults.
type Penalty struct {
	Capacity   float64 `json:"capacity" yaml:"capacity"`
	Time       float64 `json:"time" yaml:"time"`
	Unassigned float64 `json:"unassigned" yaml:"unassigned"`
}

// DefaultPenalty is used for any zero Penalty field.
var DefaultPenalty = Penalty{Capacity: 1000, Time: 100, Unassigned: 1e6}

func (w Penalty) withDefaults() Penalty {
	if w.Capacity <= 0 {
		w.Capacity = DefaultPenalty.Capacity
	}
	if w.Time <= 0 {
		w.Time = DefaultPenalty.Time
	}
	if w.Unassigned <= 0 {
		w.Unassigned = DefaultPenalty.Unassigned
	}
	return w
}

// Metrics summarises a solution's cost and constraint violations.
type Metrics struct {
	TotalCost         float64 `json:"totalCost"`
	CapacityViolation float64 `json:"capacityViolation"`
	TimeViolation     float64 `json:"timeViolation"`
	Unassigned        int     `json:"unassigned,omitempty"` // stops missing or visited more than once
	Feasible          bool    `json:"feasible"`
}

// Evaluator scores solutions against one problem. It holds no mutable state and is safe
// for concurrent use.
type Evaluator struct {
	problem *model.Problem
	penalty Penalty
}

// NewEvaluator binds a problem and penalty weights.
func NewEvaluator(p *model.Problem, w Penalty) *Evaluator {
	return &Evaluator{problem: p, penalty: w.withDefaults()}
}

// Problem returns the bound problem.
func (e *Evaluator) Problem() *model.Problem { return e.problem }

// Penalty returns the effective penalty weights.
func (e *Evaluator) Penalty() Penalty { return e.penalty }

// Evaluate computes cost and violations. Route k is driven by vehicle k; routes beyond the
// fleet size count as unassigned.
func (e *Evaluator) Evaluate(s Solution) Metrics {
	var m Metrics
	p := e.problem
	for k, r := range s.Routes {
		if k >= p.NumVehicles() {
			break
		}
		ev := EvaluateRoute(p, k, r.Stops)
		m.TotalCost += ev.Cost
		m.CapacityViolation += ev.CapacityViolation
		m.TimeViolation += ev.TimeViolation
	}
	limit := len(s.Routes)
	if limit > p.NumVehicles() {
		limit = p.NumVehicles()
	}
	cover := Solution{Routes: s.Routes[:limit]}.Coverage(p.NumStops())
	for i := 1; i < len(cover); i++ {
		switch {
		case cover[i] == 0:
			m.Unassigned++
		case cover[i] > 1:
			m.Unassigned += cover[i] - 1
		}
	}
	m.Feasible = m.CapacityViolation <= feasTol && m.TimeViolation <= feasTol && m.Unassigned == 0
	return m
}

// Fitness is the penalised objective minimised during search.
func (e *Evaluator) Fitness(s Solution) float64 {
	return e.FitnessOf(e.Evaluate(s))
}

// FitnessOf applies the penalty weights to precomputed metrics.
func (e *Evaluator) FitnessOf(m Metrics) float64 {
	return m.TotalCost +
		e.penalty.Capacity*m.CapacityViolation +
		e.penalty.Time*m.TimeViolation +
		e.penalty.Unassigned*float64(m.Unassigned)
}

// RouteFitness is the penalised contribution of one route; a complete solution's fitness is
// the sum over its routes.
func (e *Evaluator) RouteFitness(k int, stops []int) float64 {
	ev := EvaluateRoute(e.problem, k, stops)
	return ev.Cost + e.penalty.Capacity*ev.CapacityViolation + e.penalty.Time*ev.TimeViolation
}

// Candidate is a solution together with its evaluation.
type Candidate struct {
	Solution Solution
	Metrics  Metrics
	Fitness  float64
}

// Score evaluates s and wraps it as a Candidate.
func (e *Evaluator) Score(s Solution) Candidate {
	m := e.Evaluate(s)
	return Candidate{Solution: s, Metrics: m, Fitness: e.FitnessOf(m)}
}

// Better reports whether c strictly improves on o.
func (c Candidate) Better(o Candidate) bool {
	return c.Fitness < o.Fitness-feasTol
}

// Clone deep-copies the candidate's solution.
func (c Candidate) Clone() Candidate {
	c.Solution = c.Solution.Clone()
	return c
}
