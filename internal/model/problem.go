package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInstance reports a structurally invalid or infeasible-by-construction problem.
var ErrInvalidInstance = errors.New("invalid instance")

// Stop is a delivery location. The depot is a Stop with zero demand.
type Stop struct {
	ID       string  `json:"id" yaml:"id"`
	X        float64 `json:"x" yaml:"x"`
	Y        float64 `json:"y" yaml:"y"`
	Demand   float64 `json:"demand" yaml:"demand"`
	Earliest float64 `json:"earliest" yaml:"earliest"`
	Latest   float64 `json:"latest" yaml:"latest"`
	Service  float64 `json:"service" yaml:"service"`
}

// Vehicle is one member of the fleet. MaxDuration 0 means unlimited.
type Vehicle struct {
	ID          string  `json:"id" yaml:"id"`
	Capacity    float64 `json:"capacity" yaml:"capacity"`
	MaxDuration float64 `json:"maxDuration,omitempty" yaml:"maxDuration"`
}

// Problem is an immutable VRPTW instance. Node 0 is the depot, nodes 1..n are stops.
// All accessors are read-only, so a Problem can be shared by concurrent solvers.
type Problem struct {
	nodes     []Stop
	fleet     []Vehicle
	dist      []float64 // dist[i*size+j]
	travel    []float64
	size      int
	maxCap    float64
	demand    float64
	symmetric bool
}

// Build validates the inputs and precomputes the distance and travel-time matrices.
// A nil distance defaults to Euclidean; a nil travel defaults to distance.
func Build(depot Stop, stops []Stop, fleet []Vehicle, distance, travel CostFunc) (*Problem, error) {
	if len(stops) == 0 {
		return nil, fmt.Errorf("%w: no stops", ErrInvalidInstance)
	}
	if len(fleet) == 0 {
		return nil, fmt.Errorf("%w: fleet has no vehicles", ErrInvalidInstance)
	}
	if depot.Demand != 0 {
		return nil, fmt.Errorf("%w: depot demand must be zero", ErrInvalidInstance)
	}
	if depot.Earliest == 0 && depot.Latest == 0 {
		depot.Latest = math.Inf(1)
	}
	if depot.Earliest > depot.Latest || math.IsNaN(depot.Earliest) || math.IsNaN(depot.Latest) {
		return nil, fmt.Errorf("%w: depot window [%g, %g] is empty", ErrInvalidInstance, depot.Earliest, depot.Latest)
	}
	if distance == nil {
		distance = Euclidean
	}
	if travel == nil {
		travel = distance
	}

	p := &Problem{fleet: append([]Vehicle(nil), fleet...)}
	for i, v := range p.fleet {
		if !(v.Capacity > 0) {
			return nil, fmt.Errorf("%w: vehicle %d (%q) has capacity %g", ErrInvalidInstance, i, v.ID, v.Capacity)
		}
		if v.MaxDuration < 0 || math.IsNaN(v.MaxDuration) {
			return nil, fmt.Errorf("%w: vehicle %d (%q) has max duration %g", ErrInvalidInstance, i, v.ID, v.MaxDuration)
		}
		p.maxCap = math.Max(p.maxCap, v.Capacity)
	}

	seen := make(map[string]struct{}, len(stops))
	p.nodes = make([]Stop, 0, len(stops)+1)
	p.nodes = append(p.nodes, depot)
	for i, s := range stops {
		if s.ID == "" {
			s.ID = fmt.Sprintf("s%d", i+1)
		}
		switch {
		case hasKey(seen, s.ID):
			return nil, fmt.Errorf("%w: duplicate stop id %q", ErrInvalidInstance, s.ID)
		case s.Demand < 0 || math.IsNaN(s.Demand):
			return nil, fmt.Errorf("%w: stop %q has negative demand", ErrInvalidInstance, s.ID)
		case s.Demand > p.maxCap:
			return nil, fmt.Errorf("%w: stop %q demand %g exceeds every vehicle capacity (max %g)", ErrInvalidInstance, s.ID, s.Demand, p.maxCap)
		case s.Earliest > s.Latest || math.IsNaN(s.Earliest) || math.IsNaN(s.Latest):
			return nil, fmt.Errorf("%w: stop %q time window [%g, %g] is empty", ErrInvalidInstance, s.ID, s.Earliest, s.Latest)
		case s.Service < 0 || math.IsNaN(s.Service) || math.IsInf(s.Service, 0):
			return nil, fmt.Errorf("%w: stop %q has service duration %g", ErrInvalidInstance, s.ID, s.Service)
		}
		seen[s.ID] = struct{}{}
		p.demand += s.Demand
		p.nodes = append(p.nodes, s)
	}

	p.size = len(p.nodes)
	p.dist = make([]float64, p.size*p.size)
	p.travel = make([]float64, p.size*p.size)
	p.symmetric = true
	for i := 0; i < p.size; i++ {
		for j := 0; j < p.size; j++ {
			if i == j {
				continue
			}
			d := distance(p.nodes[i], p.nodes[j])
			t := travel(p.nodes[i], p.nodes[j])
			if d < 0 || math.IsNaN(d) || t < 0 || math.IsNaN(t) {
				return nil, fmt.Errorf("%w: negative or undefined cost between %q and %q", ErrInvalidInstance, p.nodes[i].ID, p.nodes[j].ID)
			}
			p.dist[i*p.size+j] = d
			p.travel[i*p.size+j] = t
		}
	}
	for i := 0; i < p.size && p.symmetric; i++ {
		for j := i + 1; j < p.size; j++ {
			if p.dist[i*p.size+j] != p.dist[j*p.size+i] {
				p.symmetric = false
				break
			}
		}
	}
	return p, nil
}

func hasKey(m map[string]struct{}, k string) bool {
	_, ok := m[k]
	return ok
}

// Depot returns the depot stop.
func (p *Problem) Depot() Stop { return p.nodes[0] }

// NumStops is the number of delivery stops, excluding the depot.
func (p *Problem) NumStops() int { return p.size - 1 }

// NumNodes is NumStops plus the depot.
func (p *Problem) NumNodes() int { return p.size }

// Stop returns node i (0 is the depot).
func (p *Problem) Stop(i int) Stop { return p.nodes[i] }

// Stops returns a copy of the delivery stops in index order 1..n.
func (p *Problem) Stops() []Stop { return append([]Stop(nil), p.nodes[1:]...) }

// Fleet returns a copy of the fleet.
func (p *Problem) Fleet() []Vehicle { return append([]Vehicle(nil), p.fleet...) }

// Vehicle returns fleet member k.
func (p *Problem) Vehicle(k int) Vehicle { return p.fleet[k] }

// NumVehicles is the fleet size.
func (p *Problem) NumVehicles() int { return len(p.fleet) }

// Dist is the routing cost from node i to node j.
func (p *Problem) Dist(i, j int) float64 { return p.dist[i*p.size+j] }

// Travel is the travel time from node i to node j.
func (p *Problem) Travel(i, j int) float64 { return p.travel[i*p.size+j] }

// MaxCapacity is the largest vehicle capacity.
func (p *Problem) MaxCapacity() float64 { return p.maxCap }

// TotalDemand is the sum of all stop demands.
func (p *Problem) TotalDemand() float64 { return p.demand }

// Symmetric reports whether Dist(i, j) == Dist(j, i) for every pair.
func (p *Problem) Symmetric() bool { return p.symmetric }

// Horizon is the depot's closing time (+Inf when unbounded).
func (p *Problem) Horizon() float64 { return p.nodes[0].Latest }
