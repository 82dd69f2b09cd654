package opt

import (
	"math"

	"vrptw/internal/model"
)

// Trip is the running state of one vehicle while its route is built stop by stop.
type Trip struct {
	p       *model.Problem
	vehicle int
	last    int
	load    float64
	clock   float64
	stops   int
}

// NewTrip starts vehicle k at the depot when it opens.
func NewTrip(p *model.Problem, k int) Trip {
	return Trip{p: p, vehicle: k, clock: p.Depot().Earliest}
}

// Fits reports whether appending stop idx keeps the route within capacity, inside the
// stop's window, and able to return to the depot in time.
func (t Trip) Fits(idx int) bool {
	st := t.p.Stop(idx)
	veh := t.p.Vehicle(t.vehicle)
	if t.load+st.Demand > veh.Capacity+feasTol {
		return false
	}
	begin := math.Max(t.clock+t.p.Travel(t.last, idx), st.Earliest)
	if begin > st.Latest+feasTol {
		return false
	}
	back := begin + st.Service + t.p.Travel(idx, 0)
	depot := t.p.Depot()
	if back > depot.Latest+feasTol {
		return false
	}
	return veh.MaxDuration <= 0 || back-depot.Earliest <= veh.MaxDuration+feasTol
}

// Visit appends stop idx.
func (t *Trip) Visit(idx int) {
	st := t.p.Stop(idx)
	t.clock = math.Max(t.clock+t.p.Travel(t.last, idx), st.Earliest) + st.Service
	t.load += st.Demand
	t.last = idx
	t.stops++
}

// Last is the node the vehicle currently sits at (0 before the first stop).
func (t Trip) Last() int { return t.last }

// Len is the number of stops visited so far.
func (t Trip) Len() int { return t.stops }

// Vehicle is the fleet index of the trip.
func (t Trip) Vehicle() int { return t.vehicle }

// Clock is the departure time from the current node.
func (t Trip) Clock() float64 { return t.clock }

// Load is the demand collected so far.
func (t Trip) Load() float64 { return t.load }
