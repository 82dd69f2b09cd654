package opt

// Repair tries up to attempts corrective moves on an infeasible solution. Each attempt takes
// the route with the largest penalised violation and applies the best relocation or
// transfer of one of its stops, provided total fitness drops. It stops early once s is
// feasible or no move helps, leaving any remaining violation to the penalty terms.
// It reports whether s ends up feasible.
func Repair(e *Evaluator, s *Solution, attempts int) bool {
	p := e.Problem()
	w := e.Penalty()
	for a := 0; a < attempts; a++ {
		worst, worstPen := -1, 0.0
		for k, r := range s.Routes {
			ev := EvaluateRoute(p, k, r.Stops)
			if pen := w.Capacity*ev.CapacityViolation + w.Time*ev.TimeViolation; pen > worstPen+feasTol {
				worst, worstPen = k, pen
			}
		}
		if worst < 0 {
			break
		}
		move, gain, ok := bestRepairMove(e, *s, worst)
		if !ok || gain >= -feasTol {
			break
		}
		move.Apply(s)
	}
	return e.Evaluate(*s).Feasible
}

func bestRepairMove(e *Evaluator, s Solution, route int) (Move, float64, bool) {
	var (
		best  Move
		delta float64
		found bool
	)
	before := make([]float64, len(s.Routes))
	for k, r := range s.Routes {
		before[k] = e.RouteFitness(k, r.Stops)
	}
	consider := func(m Move) {
		d := MoveDelta(e, s, before, m)
		if !found || d < delta-feasTol {
			best, delta, found = m, d, true
		}
	}
	src := s.Routes[route].Stops
	for i := range src {
		for j := 0; j < len(src); j++ {
			if j != i {
				consider(Move{Kind: Relocate, From: route, FromPos: i, To: route, ToPos: j})
			}
		}
		for b, rb := range s.Routes {
			if b == route {
				continue
			}
			for j := 0; j <= len(rb.Stops); j++ {
				consider(Move{Kind: Transfer, From: route, FromPos: i, To: b, ToPos: j})
			}
		}
	}
	return best, delta, found
}

// MoveDelta is the fitness change of applying m to s, evaluated on the touched routes only.
// before holds the current RouteFitness of every route of s.
func MoveDelta(e *Evaluator, s Solution, before []float64, m Move) float64 {
	from, to := m.Result(s)
	d := e.RouteFitness(m.From, from) - before[m.From]
	if to != nil {
		d += e.RouteFitness(m.To, to) - before[m.To]
	}
	return d
}
