package tabu

import "vrptw/internal/opt"

type entry struct {
	attr    opt.Attr
	expires int
}

// List is a bounded FIFO of tabu attributes. When full, the oldest entry is dropped.
type List struct {
	entries []entry
	limit   int
}

// NewList returns a list holding at most limit attributes. A zero limit forbids nothing.
func NewList(limit int) *List {
	return &List{entries: make([]entry, 0, limit), limit: limit}
}

// Add records a as tabu until iteration expires (exclusive).
func (l *List) Add(a opt.Attr, expires int) {
	if l.limit == 0 {
		return
	}
	if len(l.entries) == l.limit {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:len(l.entries)-1]
	}
	l.entries = append(l.entries, entry{attr: a, expires: expires})
}

// Forbids reports whether any of the placements matches a live entry at iteration iter.
// An entry with Pos -1 matches every position in its route.
func (l *List) Forbids(placements []opt.Attr, iter int) bool {
	for _, e := range l.entries {
		if e.expires <= iter {
			continue
		}
		for _, a := range placements {
			if a.Stop == e.attr.Stop && a.Route == e.attr.Route && (e.attr.Pos == -1 || e.attr.Pos == a.Pos) {
				return true
			}
		}
	}
	return false
}

// Len is the number of entries held, live or expired.
func (l *List) Len() int { return len(l.entries) }
