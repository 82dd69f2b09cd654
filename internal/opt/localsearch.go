package opt

// TwoOptRoute applies first-improvement 2-opt to one route for at most passes sweeps and
// returns the improved order. Moves are judged on penalised route fitness, so a reversal
// that breaks a time window is only kept when it pays for itself.
func TwoOptRoute(e *Evaluator, k int, order []int, passes int) []int {
	if passes <= 0 {
		passes = 1
	}
	best := append([]int(nil), order...)
	bestFit := e.RouteFitness(k, best)
	n := len(best)
	for it := 0; it < passes; it++ {
		improved := false
		for i := 0; i < n-1; i++ {
			for j := i + 1; j < n; j++ {
				cand := twoOptSwap(best, i, j)
				if f := e.RouteFitness(k, cand); f < bestFit-feasTol {
					best, bestFit = cand, f
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}

// ImproveTwoOpt improves every route of s in place with TwoOptRoute.
func ImproveTwoOpt(e *Evaluator, s *Solution, passes int) {
	for k := range s.Routes {
		if len(s.Routes[k].Stops) > 2 {
			s.Routes[k].Stops = TwoOptRoute(e, k, s.Routes[k].Stops, passes)
		}
	}
}

func twoOptSwap(ord []int, i, k int) []int {
	out := make([]int, len(ord))
	copy(out, ord[:i])
	// reverse i..k
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = ord[j]
		pos++
	}
	copy(out[pos:], ord[k+1:])
	return out
}
