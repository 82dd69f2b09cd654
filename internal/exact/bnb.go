package exact

import (
	"context"
	"math"
	"math/bits"
	"sort"
	"time"

	"vrptw/internal/opt"
)

// branchAndBound always branches on the lowest uncovered stop, trying the columns that
// contain it cheapest-per-stop first. The bound adds, for every uncovered stop, the
// smallest per-stop share of any column covering it.
type branchAndBound struct{}

func (branchAndBound) Name() string { return "bnb" }

type bnbSearch struct {
	ctx      context.Context
	deadline time.Time
	in       *Instance
	byStop   [][]int
	share    []float64
	limits   []int
	used     []int

	chosen []int
	best   []int
	ub     float64
	nodes  int
	status opt.Status
}

func (branchAndBound) Select(ctx context.Context, in *Instance, deadline time.Time) (Selection, error) {
	s := &bnbSearch{
		ctx:      ctx,
		deadline: deadline,
		in:       in,
		byStop:   make([][]int, in.NumStops),
		share:    make([]float64, in.NumStops),
		limits:   make([]int, len(in.Classes)),
		used:     make([]int, len(in.Classes)),
		ub:       math.Inf(1),
	}
	for i, c := range in.Classes {
		s.limits[i] = len(c.Members)
	}
	perStop := func(ci int) float64 {
		c := in.Columns[ci]
		return c.Cost / float64(bits.OnesCount32(c.Mask))
	}
	for i := range s.share {
		s.share[i] = math.Inf(1)
	}
	for ci, c := range in.Columns {
		for m := c.Mask; m != 0; m &= m - 1 {
			i := bits.TrailingZeros32(m)
			s.byStop[i] = append(s.byStop[i], ci)
			s.share[i] = math.Min(s.share[i], perStop(ci))
		}
	}
	for _, cols := range s.byStop {
		if len(cols) == 0 {
			return Selection{Status: opt.StatusInfeasible}, nil
		}
		sort.SliceStable(cols, func(a, b int) bool { return perStop(cols[a]) < perStop(cols[b]) })
	}
	rootLB := in.shareBound()

	s.branch(0, 0)

	sel := Selection{Columns: s.best, Nodes: s.nodes}
	switch {
	case s.status == "" && s.best != nil:
		sel.Status = opt.StatusOptimal
	case s.status == "":
		sel.Status = opt.StatusInfeasible
	case s.status == opt.StatusCancelled:
		sel.Status = opt.StatusCancelled
	case s.best != nil:
		sel.Status = opt.StatusBoundedSuboptimal
		if s.ub > 0 {
			sel.Gap = math.Max(0, (s.ub-rootLB)/s.ub)
		}
	default:
		sel.Status = opt.StatusTimedOut
	}
	return sel, nil
}

func (s *bnbSearch) branch(covered uint32, cost float64) {
	s.nodes++
	if s.nodes%checkEvery == 0 && s.status == "" {
		s.status = interrupt(s.ctx, s.deadline)
	}
	if s.status != "" {
		return
	}
	full := s.in.Full()
	if covered == full {
		if cost < s.ub-tol {
			s.ub = cost
			s.best = append(s.best[:0:0], s.chosen...)
		}
		return
	}
	lb := cost
	for m := full &^ covered; m != 0; m &= m - 1 {
		lb += s.share[bits.TrailingZeros32(m)]
	}
	if lb >= s.ub-tol {
		return
	}
	i := bits.TrailingZeros32(full &^ covered)
	for _, ci := range s.byStop[i] {
		col := s.in.Columns[ci]
		if col.Mask&covered != 0 || s.used[col.Class] >= s.limits[col.Class] {
			continue
		}
		s.used[col.Class]++
		s.chosen = append(s.chosen, ci)
		s.branch(covered|col.Mask, cost+col.Cost)
		s.chosen = s.chosen[:len(s.chosen)-1]
		s.used[col.Class]--
		if s.status != "" {
			return
		}
	}
}
