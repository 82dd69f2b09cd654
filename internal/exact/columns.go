package exact

import (
	"context"
	"math"
	"math/bits"
	"sort"
	"time"

	"vrptw/internal/model"
	"vrptw/internal/opt"
)

// Class groups vehicles with identical capacity and duration limit; their routes are
// interchangeable.
type Class struct {
	Capacity    float64
	MaxDuration float64
	Members     []int // fleet indices, ascending
}

// Column is one feasible route for a vehicle class. Bit i-1 of Mask is set when stop i is
// visited.
type Column struct {
	Class int
	Mask  uint32
	Stops []int
	Cost  float64
}

// Instance is the set-partitioning input handed to a backend.
type Instance struct {
	NumStops int
	Classes  []Class
	Columns  []Column
}

// Full is the mask covering every stop.
func (in *Instance) Full() uint32 { return uint32(1)<<in.NumStops - 1 }

// shareBound is a lower bound on any exact cover: every stop pays at least the smallest
// per-stop share (cost over stops visited) of a column covering it.
func (in *Instance) shareBound() float64 {
	share := make([]float64, in.NumStops)
	for i := range share {
		share[i] = math.Inf(1)
	}
	for _, c := range in.Columns {
		per := c.Cost / float64(bits.OnesCount32(c.Mask))
		for m := c.Mask; m != 0; m &= m - 1 {
			i := bits.TrailingZeros32(m)
			share[i] = math.Min(share[i], per)
		}
	}
	lb := 0.0
	for _, v := range share {
		lb += v
	}
	return lb
}

// assemble maps selected columns onto concrete vehicles, filling each class's members in
// fleet order.
func (in *Instance) assemble(vehicles int, selected []int) opt.Solution {
	sol := opt.NewSolution(vehicles)
	next := make([]int, len(in.Classes))
	for _, ci := range selected {
		col := in.Columns[ci]
		k := in.Classes[col.Class].Members[next[col.Class]]
		next[col.Class]++
		sol.Routes[k].Stops = append([]int(nil), col.Stops...)
	}
	return sol
}

func classify(p *model.Problem) []Class {
	var classes []Class
	for k, v := range p.Fleet() {
		found := false
		for i := range classes {
			if classes[i].Capacity == v.Capacity && classes[i].MaxDuration == v.MaxDuration {
				classes[i].Members = append(classes[i].Members, k)
				found = true
				break
			}
		}
		if !found {
			classes = append(classes, Class{Capacity: v.Capacity, MaxDuration: v.MaxDuration, Members: []int{k}})
		}
	}
	return classes
}

type label struct {
	cost, clock float64
}

// enumerator walks every feasible stop sequence of one vehicle class depth first. Partial
// paths with the same visited set and last stop are pruned when another path reached that
// state no later and no more expensively.
type enumerator struct {
	ctx      context.Context
	deadline time.Time
	p        *model.Problem
	n        int
	nodes    int
	status   opt.Status

	labels map[uint64][]label
	best   map[uint32]Column
}

// enumerate builds the column set. A non-empty status means enumeration was interrupted.
func enumerate(ctx context.Context, p *model.Problem, deadline time.Time) (*Instance, opt.Status) {
	in := &Instance{NumStops: p.NumStops(), Classes: classify(p)}
	en := &enumerator{ctx: ctx, deadline: deadline, p: p, n: p.NumStops()}
	for ci, class := range in.Classes {
		en.labels = make(map[uint64][]label)
		en.best = make(map[uint32]Column)
		en.extend(ci, opt.NewTrip(p, class.Members[0]), 0, 0, nil)
		if en.status != "" {
			return in, en.status
		}
		masks := make([]uint32, 0, len(en.best))
		for m := range en.best {
			masks = append(masks, m)
		}
		sort.Slice(masks, func(a, b int) bool { return masks[a] < masks[b] })
		for _, m := range masks {
			in.Columns = append(in.Columns, en.best[m])
		}
	}
	return in, ""
}

func (en *enumerator) extend(class int, trip opt.Trip, mask uint32, cost float64, seq []int) {
	en.nodes++
	if en.nodes%checkEvery == 0 {
		en.status = interrupt(en.ctx, en.deadline)
	}
	if en.status != "" {
		return
	}
	from := trip.Last()
	for j := 1; j <= en.n; j++ {
		bit := uint32(1) << (j - 1)
		if mask&bit != 0 || !trip.Fits(j) {
			continue
		}
		next := trip
		next.Visit(j)
		c := cost + en.p.Dist(from, j)
		nm := mask | bit
		if en.dominated(nm, j, c, next.Clock()) {
			continue
		}
		path := append(seq[:len(seq):len(seq)], j)
		total := c + en.p.Dist(j, 0)
		if col, ok := en.best[nm]; !ok || total < col.Cost-tol {
			en.best[nm] = Column{Class: class, Mask: nm, Stops: path, Cost: total}
		}
		en.extend(class, next, nm, c, path)
	}
}

// dominated reports whether (cost, clock) at state (mask, last) is no better than a label
// already seen there; otherwise it records the label and drops the ones it dominates.
func (en *enumerator) dominated(mask uint32, last int, cost, clock float64) bool {
	key := uint64(mask)<<8 | uint64(last)
	kept := en.labels[key]
	for _, l := range kept {
		if l.cost <= cost+tol && l.clock <= clock+tol {
			return true
		}
	}
	out := kept[:0]
	for _, l := range kept {
		if !(cost <= l.cost+tol && clock <= l.clock+tol) {
			out = append(out, l)
		}
	}
	en.labels[key] = append(out, label{cost: cost, clock: clock})
	return false
}
