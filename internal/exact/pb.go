package exact

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/crillab/gophersat/maxsat"
	"github.com/crillab/gophersat/solver"

	"vrptw/internal/opt"
)

// costScale converts route costs to the integer weights the PB solver works with.
const costScale = 1000

// pseudoBoolean hands the selection to gophersat as a weighted MAXSAT problem: one boolean
// per column, hard cardinality constraints for the cover and the fleet, and a soft clause
// ¬x weighted by the column's cost. Minimising the violated weight minimises the cost.
type pseudoBoolean struct{}

func (pseudoBoolean) Name() string { return "pb" }

func colVar(ci int) string { return fmt.Sprintf("c%d", ci) }

func (pseudoBoolean) Select(ctx context.Context, in *Instance, deadline time.Time) (Selection, error) {
	constrs, ok := pbConstraints(in)
	if !ok {
		return Selection{Status: opt.StatusInfeasible}, nil
	}
	names := varNames(constrs)
	results := make(chan solver.Result)
	go maxsat.New(constrs...).Solver().Optimal(results, nil)

	// gophersat cannot be interrupted. The collector keeps draining results after a timeout
	// so the solver can finish; until then incumbent holds the cheapest model seen.
	var (
		mu        sync.Mutex
		incumbent []bool
	)
	final := make(chan solver.Result, 1)
	go func() {
		var last solver.Result
		for r := range results {
			if r.Status == solver.Sat {
				mu.Lock()
				incumbent = r.Model
				mu.Unlock()
			}
			last = r
		}
		final <- last
	}()

	var expired <-chan time.Time
	if !deadline.IsZero() {
		t := time.NewTimer(time.Until(deadline))
		defer t.Stop()
		expired = t.C
	}
	stopped := func(status opt.Status) Selection {
		mu.Lock()
		defer mu.Unlock()
		return incumbentSelection(in, names, incumbent, status)
	}

	select {
	case <-ctx.Done():
		return stopped(opt.StatusCancelled), nil
	case <-expired:
		return stopped(opt.StatusTimedOut), nil
	case r := <-final:
		if r.Status != solver.Sat {
			return Selection{Status: opt.StatusInfeasible}, nil
		}
		return incumbentSelection(in, names, r.Model, opt.StatusOptimal), nil
	}
}

// incumbentSelection reads the chosen columns out of a model. A model found before a timeout
// is reported as bounded suboptimal with its gap to the per-stop share bound; without a model
// the interrupted status stands.
func incumbentSelection(in *Instance, names []string, model []bool, status opt.Status) Selection {
	if model == nil {
		return Selection{Status: status}
	}
	chosen := make(map[string]bool, len(model))
	for i, b := range model {
		if b && i < len(names) && names[i] != "" {
			chosen[names[i]] = true
		}
	}
	sel := Selection{Status: status, Columns: []int{}}
	ub := 0.0
	for ci, c := range in.Columns {
		if chosen[colVar(ci)] {
			sel.Columns = append(sel.Columns, ci)
			ub += c.Cost
		}
	}
	if status == opt.StatusTimedOut {
		sel.Status = opt.StatusBoundedSuboptimal
		if ub > 0 {
			sel.Gap = math.Max(0, (ub-in.shareBound())/ub)
		}
	}
	return sel
}

// varNames numbers variables the way maxsat.New does: in order of first appearance, with a
// blocking variable (named "") appended after each soft constraint's literals. Index i holds
// the name of solver variable i+1.
func varNames(constrs []maxsat.Constr) []string {
	seen := make(map[string]bool)
	var names []string
	for _, c := range constrs {
		for _, l := range c.Lits {
			if !seen[l.Var] {
				seen[l.Var] = true
				names = append(names, l.Var)
			}
		}
		if c.Weight != 0 {
			names = append(names, "")
		}
	}
	return names
}

// pbConstraints encodes the selection: every stop covered exactly once, at most as many
// columns per class as the class has vehicles, and a soft ¬x per column weighted by its
// cost. ok is false when some stop has no column at all.
func pbConstraints(in *Instance) (constrs []maxsat.Constr, ok bool) {
	byStop := make([][]maxsat.Lit, in.NumStops)
	byClass := make([][]maxsat.Lit, len(in.Classes))
	for ci, c := range in.Columns {
		for i := 0; i < in.NumStops; i++ {
			if c.Mask&(1<<i) != 0 {
				byStop[i] = append(byStop[i], maxsat.Var(colVar(ci)))
			}
		}
		byClass[c.Class] = append(byClass[c.Class], maxsat.Var(colVar(ci)))
		if w := int(math.Round(c.Cost * costScale)); w > 0 {
			constrs = append(constrs, maxsat.WeightedClause([]maxsat.Lit{maxsat.Not(colVar(ci))}, w))
		}
	}
	for _, lits := range byStop {
		if len(lits) == 0 {
			return nil, false
		}
		constrs = append(constrs, maxsat.HardPBConstr(lits, nil, 1))
		if len(lits) > 1 {
			constrs = append(constrs, maxsat.HardPBConstr(negate(lits), nil, len(lits)-1))
		}
	}
	for ci, lits := range byClass {
		if limit := len(in.Classes[ci].Members); len(lits) > limit {
			constrs = append(constrs, maxsat.HardPBConstr(negate(lits), nil, len(lits)-limit))
		}
	}
	return constrs, true
}

func negate(lits []maxsat.Lit) []maxsat.Lit {
	out := make([]maxsat.Lit, len(lits))
	for i, l := range lits {
		out[i] = l.Negation()
	}
	return out
}
