package opt

import "fmt"

// MoveKind enumerates the neighbourhood operators.
type MoveKind uint8

const (
	// Relocate moves one stop to another position of the same route.
	Relocate MoveKind = iota
	// Transfer moves one stop into a different route.
	Transfer
	// Swap exchanges two stops, within a route or across routes.
	Swap
	// TwoOpt reverses the segment [FromPos, ToPos] of one route.
	TwoOpt
)

// AllKinds is the default neighbourhood.
var AllKinds = []MoveKind{Relocate, Transfer, Swap, TwoOpt}

func (k MoveKind) String() string {
	switch k {
	case Relocate:
		return "relocate"
	case Transfer:
		return "transfer"
	case Swap:
		return "swap"
	case TwoOpt:
		return "two_opt"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseMoveKind maps a config name to a MoveKind.
func ParseMoveKind(s string) (MoveKind, error) {
	for _, k := range AllKinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown move kind %q", ErrInvalidConfig, s)
}

// MarshalText encodes the kind by name.
func (k MoveKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a kind name, so configuration files can list kinds as strings.
func (k *MoveKind) UnmarshalText(b []byte) error {
	v, err := ParseMoveKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Move is a single neighbourhood transformation. Positions refer to the solution the move
// was generated from. For Relocate, ToPos indexes the route after the stop is removed.
type Move struct {
	Kind    MoveKind
	From    int
	FromPos int
	To      int
	ToPos   int
}

func (m Move) String() string {
	return fmt.Sprintf("%s(%d:%d -> %d:%d)", m.Kind, m.From, m.FromPos, m.To, m.ToPos)
}

// Attr is a tabu attribute: stop placed in route at position. Pos -1 matches any position.
type Attr struct {
	Stop  int
	Route int
	Pos   int
}

// Result returns fresh copies of the routes touched by m. to is nil when m stays in one route.
func (m Move) Result(s Solution) (from, to []int) {
	src := s.Routes[m.From].Stops
	switch m.Kind {
	case Relocate:
		stop := src[m.FromPos]
		rest := make([]int, 0, len(src))
		rest = append(rest, src[:m.FromPos]...)
		rest = append(rest, src[m.FromPos+1:]...)
		from = make([]int, 0, len(src))
		from = append(from, rest[:m.ToPos]...)
		from = append(from, stop)
		from = append(from, rest[m.ToPos:]...)
		return from, nil
	case Transfer:
		dst := s.Routes[m.To].Stops
		stop := src[m.FromPos]
		from = make([]int, 0, len(src)-1)
		from = append(from, src[:m.FromPos]...)
		from = append(from, src[m.FromPos+1:]...)
		to = make([]int, 0, len(dst)+1)
		to = append(to, dst[:m.ToPos]...)
		to = append(to, stop)
		to = append(to, dst[m.ToPos:]...)
		return from, to
	case Swap:
		if m.From == m.To {
			from = append([]int{}, src...)
			from[m.FromPos], from[m.ToPos] = from[m.ToPos], from[m.FromPos]
			return from, nil
		}
		dst := s.Routes[m.To].Stops
		from = append([]int{}, src...)
		to = append([]int{}, dst...)
		from[m.FromPos], to[m.ToPos] = dst[m.ToPos], src[m.FromPos]
		return from, to
	case TwoOpt:
		from = append([]int{}, src...)
		for a, b := m.FromPos, m.ToPos; a < b; a, b = a+1, b-1 {
			from[a], from[b] = from[b], from[a]
		}
		return from, nil
	}
	return append([]int{}, src...), nil
}

// Apply performs m on s in place.
func (m Move) Apply(s *Solution) {
	from, to := m.Result(*s)
	s.Routes[m.From].Stops = from
	if to != nil {
		s.Routes[m.To].Stops = to
	}
}

// Vacated lists where the stops moved by m sat before the move. Recording these as tabu
// forbids undoing m.
func (m Move) Vacated(s Solution) []Attr {
	src := s.Routes[m.From].Stops
	switch m.Kind {
	case Relocate:
		return []Attr{{Stop: src[m.FromPos], Route: m.From, Pos: m.FromPos}}
	case Transfer:
		return []Attr{{Stop: src[m.FromPos], Route: m.From, Pos: -1}}
	case Swap:
		if m.From == m.To {
			return []Attr{{src[m.FromPos], m.From, m.FromPos}, {src[m.ToPos], m.From, m.ToPos}}
		}
		dst := s.Routes[m.To].Stops
		return []Attr{{src[m.FromPos], m.From, -1}, {dst[m.ToPos], m.To, -1}}
	case TwoOpt:
		return []Attr{{src[m.FromPos], m.From, m.FromPos}, {src[m.ToPos], m.From, m.ToPos}}
	}
	return nil
}

// Placements lists where the stops moved by m end up.
func (m Move) Placements(s Solution) []Attr {
	src := s.Routes[m.From].Stops
	switch m.Kind {
	case Relocate:
		return []Attr{{Stop: src[m.FromPos], Route: m.From, Pos: m.ToPos}}
	case Transfer:
		return []Attr{{Stop: src[m.FromPos], Route: m.To, Pos: m.ToPos}}
	case Swap:
		dst := s.Routes[m.To].Stops
		return []Attr{{src[m.FromPos], m.To, m.ToPos}, {dst[m.ToPos], m.From, m.FromPos}}
	case TwoOpt:
		return []Attr{{src[m.FromPos], m.From, m.ToPos}, {src[m.ToPos], m.From, m.FromPos}}
	}
	return nil
}
