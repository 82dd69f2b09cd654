package opt

import (
	"iter"
	"math/rand"
)

// Neighborhood generates the candidate moves of a solution.
type Neighborhood struct {
	Kinds []MoveKind
}

// NewNeighborhood returns a neighbourhood over kinds, or over AllKinds when none are given.
func NewNeighborhood(kinds ...MoveKind) Neighborhood {
	if len(kinds) == 0 {
		kinds = AllKinds
	}
	return Neighborhood{Kinds: append([]MoveKind(nil), kinds...)}
}

// Moves lazily yields every move of s in a fixed order. Each call restarts the sequence.
// Transfers into empty routes only target the first empty route, since empty routes of a
// homogeneous fleet are interchangeable and heterogeneous ones are still reachable by swaps.
func (n Neighborhood) Moves(s Solution) iter.Seq[Move] {
	return func(yield func(Move) bool) {
		for _, kind := range n.Kinds {
			if !n.kindMoves(s, kind, yield) {
				return
			}
		}
	}
}

func (n Neighborhood) kindMoves(s Solution, kind MoveKind, yield func(Move) bool) bool {
	routes := s.Routes
	switch kind {
	case Relocate:
		for r, rt := range routes {
			L := len(rt.Stops)
			for i := 0; i < L; i++ {
				for j := 0; j < L; j++ {
					if j == i {
						continue
					}
					if !yield(Move{Kind: Relocate, From: r, FromPos: i, To: r, ToPos: j}) {
						return false
					}
				}
			}
		}
	case Transfer:
		firstEmpty := firstEmptyRoute(s)
		for a, ra := range routes {
			for i := range ra.Stops {
				for b, rb := range routes {
					if a == b || (len(rb.Stops) == 0 && b != firstEmpty) {
						continue
					}
					for j := 0; j <= len(rb.Stops); j++ {
						if !yield(Move{Kind: Transfer, From: a, FromPos: i, To: b, ToPos: j}) {
							return false
						}
					}
				}
			}
		}
	case Swap:
		for a, ra := range routes {
			for i := range ra.Stops {
				for j := i + 1; j < len(ra.Stops); j++ {
					if !yield(Move{Kind: Swap, From: a, FromPos: i, To: a, ToPos: j}) {
						return false
					}
				}
				for b := a + 1; b < len(routes); b++ {
					for j := range routes[b].Stops {
						if !yield(Move{Kind: Swap, From: a, FromPos: i, To: b, ToPos: j}) {
							return false
						}
					}
				}
			}
		}
	case TwoOpt:
		for r, rt := range routes {
			for i := 0; i < len(rt.Stops); i++ {
				for j := i + 1; j < len(rt.Stops); j++ {
					if !yield(Move{Kind: TwoOpt, From: r, FromPos: i, To: r, ToPos: j}) {
						return false
					}
				}
			}
		}
	}
	return true
}

func firstEmptyRoute(s Solution) int {
	for i, r := range s.Routes {
		if len(r.Stops) == 0 {
			return i
		}
	}
	return -1
}

// Size counts the moves Moves would yield.
func (n Neighborhood) Size(s Solution) int {
	c := 0
	for range n.Moves(s) {
		c++
	}
	return c
}

// Sample draws up to k random moves of s from rng. Duplicates are possible.
func (n Neighborhood) Sample(s Solution, k int, rng *rand.Rand) []Move {
	out := make([]Move, 0, k)
	if len(n.Kinds) == 0 || s.Len() == 0 {
		return out
	}
	for attempts := 0; len(out) < k && attempts < 4*k; attempts++ {
		if m, ok := n.randomMove(s, n.Kinds[rng.Intn(len(n.Kinds))], rng); ok {
			out = append(out, m)
		}
	}
	return out
}

func (n Neighborhood) randomMove(s Solution, kind MoveKind, rng *rand.Rand) (Move, bool) {
	routes := s.Routes
	switch kind {
	case Relocate, TwoOpt:
		r, ok := pickRoute(s, 2, rng)
		if !ok {
			return Move{}, false
		}
		L := len(routes[r].Stops)
		i := rng.Intn(L)
		j := rng.Intn(L - 1)
		if kind == Relocate {
			if j >= i {
				j++
			}
			return Move{Kind: Relocate, From: r, FromPos: i, To: r, ToPos: j}, true
		}
		if j >= i {
			j++
		} else {
			i, j = j, i
		}
		return Move{Kind: TwoOpt, From: r, FromPos: i, To: r, ToPos: j}, true
	case Transfer:
		if len(routes) < 2 {
			return Move{}, false
		}
		a, ok := pickRoute(s, 1, rng)
		if !ok {
			return Move{}, false
		}
		b := rng.Intn(len(routes) - 1)
		if b >= a {
			b++
		}
		return Move{Kind: Transfer, From: a, FromPos: rng.Intn(len(routes[a].Stops)), To: b, ToPos: rng.Intn(len(routes[b].Stops) + 1)}, true
	case Swap:
		total := s.Len()
		if total < 2 {
			return Move{}, false
		}
		x := rng.Intn(total)
		y := rng.Intn(total - 1)
		if y >= x {
			y++
		}
		if x > y {
			x, y = y, x
		}
		ra, pa := locate(s, x)
		rb, pb := locate(s, y)
		return Move{Kind: Swap, From: ra, FromPos: pa, To: rb, ToPos: pb}, true
	}
	return Move{}, false
}

// pickRoute chooses a random route holding at least atLeast stops.
func pickRoute(s Solution, atLeast int, rng *rand.Rand) (int, bool) {
	eligible := make([]int, 0, len(s.Routes))
	for i, r := range s.Routes {
		if len(r.Stops) >= atLeast {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		return 0, false
	}
	return eligible[rng.Intn(len(eligible))], true
}

// locate maps the flat visit index x to (route, position).
func locate(s Solution, x int) (int, int) {
	for r, rt := range s.Routes {
		if x < len(rt.Stops) {
			return r, x
		}
		x -= len(rt.Stops)
	}
	return -1, -1
}
