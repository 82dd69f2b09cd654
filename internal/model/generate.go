package model

import (
	"fmt"
	"math"
	"math/rand"
)

// GenerateOptions describes a random Solomon-style instance on a square grid.
type GenerateOptions struct {
	Stops       int
	Vehicles    int
	Capacity    float64
	Size        float64 // grid side; depot sits in the centre
	MaxDemand   int
	Service     float64
	Horizon     float64 // depot closing time; 0 means unbounded windows
	WindowWidth float64 // per-stop window width when Horizon > 0
	Seed        int64
}

// Generate builds a reproducible random instance. Coordinates and demands are integral
// so that results are comparable across platforms.
func Generate(o GenerateOptions) (*Problem, error) {
	if o.Size <= 0 {
		o.Size = 100
	}
	if o.MaxDemand <= 0 {
		o.MaxDemand = 10
	}
	if o.Vehicles <= 0 {
		o.Vehicles = 1
	}
	if o.Capacity <= 0 {
		o.Capacity = float64(o.MaxDemand * o.Stops)
	}
	rng := rand.New(rand.NewSource(o.Seed))
	centre := math.Round(o.Size / 2)
	depot := Stop{ID: "depot", X: centre, Y: centre, Latest: o.Horizon}
	if o.Horizon <= 0 {
		depot.Latest = 0
	}

	stops := make([]Stop, o.Stops)
	for i := range stops {
		s := Stop{
			ID:      fmt.Sprintf("c%d", i+1),
			X:       float64(rng.Intn(int(o.Size) + 1)),
			Y:       float64(rng.Intn(int(o.Size) + 1)),
			Demand:  float64(1 + rng.Intn(o.MaxDemand)),
			Service: o.Service,
			Latest:  math.Inf(1),
		}
		if s.Demand > o.Capacity {
			s.Demand = o.Capacity
		}
		if o.Horizon > 0 {
			reach := Euclidean(depot, s)
			latestStart := o.Horizon - reach - o.Service - o.WindowWidth
			if latestStart < reach {
				latestStart = reach
			}
			s.Earliest = math.Round(reach + rng.Float64()*(latestStart-reach))
			s.Latest = s.Earliest + o.WindowWidth
		}
		stops[i] = s
	}

	fleet := make([]Vehicle, o.Vehicles)
	for k := range fleet {
		fleet[k] = Vehicle{ID: fmt.Sprintf("v%d", k+1), Capacity: o.Capacity}
	}
	return Build(depot, stops, fleet, nil, nil)
}
