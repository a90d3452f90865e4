package circuit

import "time"

// PartID identifies a part within its circuit.
type PartID int

// WireID identifies a wire within its circuit.
type WireID int

// Point is a part's position on the canvas. The engine never reads it.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Part is a node in the circuit graph. Its sockets are fixed by category at
// construction and never resized.
type Part struct {
	ID       PartID
	Category Category
	Position Point
	Rotation float64

	sockets   []*Socket
	energized bool
	deadline  time.Time
	removed   bool
}

func newPart(id PartID, cat Category) *Part {
	p := &Part{ID: id, Category: cat}
	roles := behaviors[cat].roles
	p.sockets = make([]*Socket, len(roles))
	for i, role := range roles {
		p.sockets[i] = &Socket{part: p, role: role}
	}
	// An inverter whose control line has never been sampled sees it unpowered.
	if cat == Inverter {
		p.energized = true
	}
	return p
}

// Sockets returns the part's sockets in category order. The slice must not
// be modified.
func (p *Part) Sockets() []*Socket { return p.sockets }

// Socket returns the part's socket with the given role, or nil.
func (p *Part) Socket(role Role) *Socket {
	for _, s := range p.sockets {
		if s.role == role {
			return s
		}
	}
	return nil
}

// Energized reports the part's on/off state. Always false for stateless
// categories.
func (p *Part) Energized() bool { return p.energized }

// Deadline returns when an energized timed button releases.
func (p *Part) Deadline() time.Time { return p.deadline }

// Removed reports whether the part has been deleted from its circuit.
func (p *Part) Removed() bool { return p.removed }

// WireCount returns the number of wire registrations across all sockets.
// A self-looping wire counts twice.
func (p *Part) WireCount() int {
	n := 0
	for _, s := range p.sockets {
		n += len(s.wires)
	}
	return n
}

// Powered reports whether any of the part's sockets carries power.
func (p *Part) Powered() bool {
	for _, s := range p.sockets {
		if s.powered {
			return true
		}
	}
	return false
}

// ConductsFrom returns the sockets that current entering at from flows to
// through the part itself. Wire fan-out is not included.
func (p *Part) ConductsFrom(from *Socket) []*Socket {
	if from == nil || from.part != p {
		return nil
	}
	conduct := behaviors[p.Category].conduct
	if conduct == nil {
		return nil
	}
	return conduct(p, from)
}

// Tick applies the part's sequential update for a clock edge at now.
// It returns true if the energized state changed.
func (p *Part) Tick(now time.Time) bool {
	tick := behaviors[p.Category].tick
	if tick == nil {
		return false
	}
	return tick(p, now)
}

// Interact applies a manual interaction. hold is how long a timed button
// stays energized. Categories without manual state ignore it.
func (p *Part) Interact(now time.Time, hold time.Duration) {
	if interact := behaviors[p.Category].interact; interact != nil {
		interact(p, now, hold)
	}
}

func (p *Part) setEnergized(on bool) bool {
	if p.energized == on {
		return false
	}
	p.energized = on
	return true
}

// Socket is a typed connection point owned by a Part.
type Socket struct {
	part    *Part
	role    Role
	powered bool
	wires   []*Wire
}

// Part returns the owning part.
func (s *Socket) Part() *Part { return s.part }

// Role returns the socket's propagation role.
func (s *Socket) Role() Role { return s.role }

// Powered reports the result of the most recent propagation pass.
func (s *Socket) Powered() bool { return s.powered }

// SetPowered records the socket's power state. Only propagation calls it.
func (s *Socket) SetPowered(on bool) { s.powered = on }

// Wires returns the wires registered on the socket. The slice must not be
// modified.
func (s *Socket) Wires() []*Wire { return s.wires }

// Connect registers w on the socket.
func (s *Socket) Connect(w *Wire) {
	s.wires = append(s.wires, w)
}

// Disconnect removes the first registration of w. It reports whether one
// was found.
func (s *Socket) Disconnect(w *Wire) bool {
	for i, existing := range s.wires {
		if existing == w {
			s.wires = append(s.wires[:i], s.wires[i+1:]...)
			return true
		}
	}
	return false
}

// Wire is an undirected edge between two sockets.
type Wire struct {
	ID WireID
	a  *Socket
	b  *Socket
}

// Ends returns the wire's two sockets.
func (w *Wire) Ends() (*Socket, *Socket) { return w.a, w.b }

// OtherEnd returns the socket opposite s, or nil when s is not an endpoint
// or the opposite socket belongs to a deleted part.
func (w *Wire) OtherEnd(s *Socket) *Socket {
	return OtherEnd(w, s)
}

// OtherEnd returns the socket of w opposite s. See Wire.OtherEnd.
func OtherEnd(w *Wire, s *Socket) *Socket {
	if w == nil || s == nil {
		return nil
	}
	var other *Socket
	switch s {
	case w.a:
		other = w.b
	case w.b:
		other = w.a
	default:
		return nil
	}
	if other == nil || other.part == nil || other.part.removed {
		return nil
	}
	return other
}
