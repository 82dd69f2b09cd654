package opt

import (
	"math"

	"vrptw/internal/model"
)

// Visit is the derived timetable entry of one stop on a route.
type Visit struct {
	Stop      int     `json:"stop"`
	Arrival   float64 `json:"arrival"`
	Start     float64 `json:"start"` // service start, after any waiting
	Departure float64 `json:"departure"`
	Load      float64 `json:"load"` // cumulative load after this stop
	Lateness  float64 `json:"lateness,omitempty"`
}

// RouteEval is the cost and violation of a single route.
type RouteEval struct {
	Cost              float64
	Load              float64
	CapacityViolation float64
	TimeViolation     float64
	Return            float64 // arrival back at the depot
}

// Schedule computes the timetable of stops served by vehicle k. The vehicle leaves the depot
// when it opens, waits at stops whose window has not opened, and keeps going when late.
func Schedule(p *model.Problem, k int, stops []int) []Visit {
	out := make([]Visit, 0, len(stops))
	walkRoute(p, k, stops, func(v Visit) { out = append(out, v) })
	return out
}

// EvaluateRoute returns the cost and violations of stops served by vehicle k.
func EvaluateRoute(p *model.Problem, k int, stops []int) RouteEval {
	return walkRoute(p, k, stops, nil)
}

func walkRoute(p *model.Problem, k int, stops []int, visit func(Visit)) RouteEval {
	var ev RouteEval
	if len(stops) == 0 {
		return ev
	}
	depot := p.Depot()
	veh := p.Vehicle(k)
	t := depot.Earliest
	prev := 0
	for _, s := range stops {
		st := p.Stop(s)
		ev.Cost += p.Dist(prev, s)
		arr := t + p.Travel(prev, s)
		begin := math.Max(arr, st.Earliest)
		late := 0.0
		if begin > st.Latest {
			late = begin - st.Latest
			ev.TimeViolation += late
		}
		t = begin + st.Service
		ev.Load += st.Demand
		if visit != nil {
			visit(Visit{Stop: s, Arrival: arr, Start: begin, Departure: t, Load: ev.Load, Lateness: late})
		}
		prev = s
	}
	ev.Cost += p.Dist(prev, 0)
	ev.Return = t + p.Travel(prev, 0)
	if ev.Return > depot.Latest {
		ev.TimeViolation += ev.Return - depot.Latest
	}
	if veh.MaxDuration > 0 && ev.Return-depot.Earliest > veh.MaxDuration {
		ev.TimeViolation += ev.Return - depot.Earliest - veh.MaxDuration
	}
	if ev.Load > veh.Capacity {
		ev.CapacityViolation = ev.Load - veh.Capacity
	}
	return ev
}
