// Package propagation implements the combinational half of a simulation
// step: power floods outward from every source through wires and through
// whichever parts currently conduct, and every socket it reaches is marked
// powered.
package propagation

import "github.com/nvandessel/wirelogic/internal/circuit"

// Stats summarizes one propagation pass.
type Stats struct {
	Sources int // Source parts that seeded the pass
	Sockets int // Sockets considered (all sockets of the evaluated parts)
	Powered int // Sockets claimed as powered
}

// Engine performs propagation passes. It keeps a reusable work stack
// between passes but no circuit state: every pass starts from scratch.
// An Engine must not be used by more than one goroutine at a time.
type Engine struct {
	stack []*circuit.Socket
}

// NewEngine creates a propagation engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate performs one full pass over parts. It clears the powered flag of
// every socket, then floods from the output socket of each Source. A socket
// is claimed by whichever path reaches it first and is never expanded
// twice, so closed loops and self-looping wires terminate and the result
// does not depend on the order parts or wires are listed in.
//
// Sockets of parts not in parts are never claimed or expanded.
func (e *Engine) Evaluate(parts []*circuit.Part) Stats {
	var stats Stats

	member := make(map[*circuit.Part]struct{}, len(parts))
	for _, p := range parts {
		member[p] = struct{}{}
		for _, s := range p.Sockets() {
			s.SetPowered(false)
			stats.Sockets++
		}
	}

	e.stack = e.stack[:0]
	for _, p := range parts {
		if p.Category != circuit.Source {
			continue
		}
		stats.Sources++
		if out := p.Socket(circuit.Output); out != nil {
			e.stack = append(e.stack, out)
		}
	}

	push := func(s *circuit.Socket) {
		if s == nil || s.Powered() {
			return
		}
		if _, ok := member[s.Part()]; !ok {
			return
		}
		e.stack = append(e.stack, s)
	}

	for len(e.stack) > 0 {
		s := e.stack[len(e.stack)-1]
		e.stack = e.stack[:len(e.stack)-1]

		// A socket can be pushed more than once before it is popped.
		if s.Powered() {
			continue
		}
		s.SetPowered(true)
		stats.Powered++

		for _, w := range s.Wires() {
			push(w.OtherEnd(s))
		}
		for _, next := range s.Part().ConductsFrom(s) {
			push(next)
		}
	}

	return stats
}

// Evaluate runs a single pass with a throwaway engine.
func Evaluate(parts []*circuit.Part) Stats {
	return NewEngine().Evaluate(parts)
}
