package opt

import (
	"fmt"
	"strings"
)

// Route is the ordered list of stop indices (1..n) served by one vehicle.
// The depot legs at both ends are implicit.
type Route struct {
	Vehicle int   `json:"vehicle"`
	Stops   []int `json:"stops"`
}

// Solution holds exactly one Route per fleet vehicle; Routes[k].Vehicle == k.
type Solution struct {
	Routes []Route `json:"routes"`
}

// NewSolution returns a solution with an empty route for each of k vehicles.
func NewSolution(k int) Solution {
	s := Solution{Routes: make([]Route, k)}
	for i := range s.Routes {
		s.Routes[i] = Route{Vehicle: i, Stops: []int{}}
	}
	return s
}

// Clone deep-copies the solution so it can outlive the solver that produced it.
func (s Solution) Clone() Solution {
	out := Solution{Routes: make([]Route, len(s.Routes))}
	for i, r := range s.Routes {
		out.Routes[i] = Route{Vehicle: r.Vehicle, Stops: append([]int{}, r.Stops...)}
	}
	return out
}

// Len is the number of stop visits across all routes.
func (s Solution) Len() int {
	n := 0
	for _, r := range s.Routes {
		n += len(r.Stops)
	}
	return n
}

// Served returns every stop index visited, in route order.
func (s Solution) Served() []int {
	out := make([]int, 0, s.Len())
	for _, r := range s.Routes {
		out = append(out, r.Stops...)
	}
	return out
}

// Used is the number of non-empty routes.
func (s Solution) Used() int {
	n := 0
	for _, r := range s.Routes {
		if len(r.Stops) > 0 {
			n++
		}
	}
	return n
}

// Equal reports whether both solutions visit the same stops in the same order.
func (s Solution) Equal(o Solution) bool {
	if len(s.Routes) != len(o.Routes) {
		return false
	}
	for i := range s.Routes {
		a, b := s.Routes[i].Stops, o.Routes[i].Stops
		if len(a) != len(b) {
			return false
		}
		for j := range a {
			if a[j] != b[j] {
				return false
			}
		}
	}
	return true
}

func (s Solution) String() string {
	var b strings.Builder
	for i, r := range s.Routes {
		if i > 0 {
			b.WriteString(" | ")
		}
		fmt.Fprintf(&b, "v%d:%v", r.Vehicle, r.Stops)
	}
	return b.String()
}

// Coverage counts how often each stop 1..n appears; index 0 is unused.
func (s Solution) Coverage(n int) []int {
	seen := make([]int, n+1)
	for _, r := range s.Routes {
		for _, st := range r.Stops {
			if st >= 1 && st <= n {
				seen[st]++
			}
		}
	}
	return seen
}
