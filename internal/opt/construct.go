package opt

import (
	"math"
	"sort"
)

// Construct builds a seed solution by cheapest insertion. Stops with the earliest closing
// windows are placed first; each goes to the position with the smallest penalised fitness
// increase, so feasible insertions win whenever one exists.
func Construct(e *Evaluator) Solution {
	p := e.Problem()
	sol := NewSolution(p.NumVehicles())
	order := make([]int, p.NumStops())
	for i := range order {
		order[i] = i + 1
	}
	sort.SliceStable(order, func(a, b int) bool {
		return p.Stop(order[a]).Latest < p.Stop(order[b]).Latest
	})
	routeFit := make([]float64, len(sol.Routes))
	for _, idx := range order {
		bestRoute, bestPos := 0, 0
		bestDelta := math.Inf(1)
		for k, r := range sol.Routes {
			for pos := 0; pos <= len(r.Stops); pos++ {
				d := e.RouteFitness(k, insertAt(r.Stops, pos, idx)) - routeFit[k]
				if d < bestDelta-feasTol {
					bestDelta, bestRoute, bestPos = d, k, pos
				}
			}
		}
		sol.Routes[bestRoute].Stops = insertAt(sol.Routes[bestRoute].Stops, bestPos, idx)
		routeFit[bestRoute] += bestDelta
	}
	return sol
}

// insertAt returns a copy of stops with idx inserted at pos.
func insertAt(stops []int, pos, idx int) []int {
	out := make([]int, 0, len(stops)+1)
	out = append(out, stops[:pos]...)
	out = append(out, idx)
	return append(out, stops[pos:]...)
}

// GreedyFill assigns stops in the given order, appending each to the current vehicle while
// it still fits (capacity and time window) and moving to the next vehicle otherwise. The
// last vehicle takes whatever remains.
func GreedyFill(e *Evaluator, order []int) Solution {
	p := e.Problem()
	sol := NewSolution(p.NumVehicles())
	k := 0
	trip := NewTrip(p, k)
	for _, idx := range order {
		for k < len(sol.Routes)-1 && len(sol.Routes[k].Stops) > 0 && !trip.Fits(idx) {
			k++
			trip = NewTrip(p, k)
		}
		sol.Routes[k].Stops = append(sol.Routes[k].Stops, idx)
		trip.Visit(idx)
	}
	return sol
}
