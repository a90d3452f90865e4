package simulation

import (
	"sync"
	"time"

	"github.com/nvandessel/wirelogic/internal/circuit"
)

// PartState is a read-only view of one part after a step.
type PartState struct {
	ID        circuit.PartID  `json:"id"`
	Category  string          `json:"category"`
	Energized bool            `json:"energized"`
	Powered   bool            `json:"powered"`
	Sockets   map[string]bool `json:"sockets"`
}

// States returns the current state of every part in creation order.
func (s *Simulator) States() []PartState {
	return Snapshot(s.circuit)
}

// Snapshot returns the state of every part of c.
func Snapshot(c *circuit.Circuit) []PartState {
	parts := c.Parts()
	out := make([]PartState, 0, len(parts))
	for _, p := range parts {
		st := PartState{
			ID:        p.ID,
			Category:  p.Category.String(),
			Energized: p.Energized(),
			Powered:   p.Powered(),
			Sockets:   make(map[string]bool, len(p.Sockets())),
		}
		for _, sock := range p.Sockets() {
			st.Sockets[sock.Role().String()] = sock.Powered()
		}
		out = append(out, st)
	}
	return out
}

// VirtualClock is a manually advanced time source.
type VirtualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewVirtualClock creates a clock reading start.
func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{now: start}
}

// Now returns the current virtual time.
func (v *VirtualClock) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// Advance moves the clock forward by d.
func (v *VirtualClock) Advance(d time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.now = v.now.Add(d)
}
