// Package circuit defines the circuit graph: parts, the sockets they own, and
// the wires that join sockets. A Circuit is the manager that creates and
// destroys graph elements and keeps wire registration symmetric.
package circuit

import (
	"fmt"
	"strings"
	"time"
)

// Category identifies a part's behavior variant.
type Category int

const (
	CategoryInvalid Category = iota
	Source
	ToggleSwitch
	TimedButton
	ControlledSwitch
	Inverter
	Indicator
	Joint
)

// Role identifies what a socket does for propagation. It carries no geometry.
type Role int

const (
	RoleInvalid Role = iota
	Input
	Output
	Control
	PassThrough
)

var roleNames = map[Role]string{
	Input:       "input",
	Output:      "output",
	Control:     "control",
	PassThrough: "joint",
}

// String returns the persisted name of the role.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "invalid"
}

// ParseRole maps a persisted socket role name to a Role.
func ParseRole(s string) (Role, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for role, n := range roleNames {
		if n == name {
			return role, nil
		}
	}
	return RoleInvalid, fmt.Errorf("unknown socket role %q", s)
}

// behavior is the per-category table entry: the sockets a part is built
// with, how current flows through it, and how it reacts to clock ticks and
// user interaction. A nil func means the category does nothing there.
type behavior struct {
	name     string
	roles    []Role
	stateful bool
	conduct  func(p *Part, from *Socket) []*Socket
	tick     func(p *Part, now time.Time) bool
	interact func(p *Part, now time.Time, hold time.Duration)
}

var behaviors = map[Category]behavior{
	Source: {
		name:  "source",
		roles: []Role{Output},
	},
	ToggleSwitch: {
		name:     "toggle-switch",
		roles:    []Role{Input, Output},
		stateful: true,
		conduct:  conductWhenEnergized,
		interact: func(p *Part, _ time.Time, _ time.Duration) {
			p.energized = !p.energized
		},
	},
	TimedButton: {
		name:     "timed-button",
		roles:    []Role{Input, Output},
		stateful: true,
		conduct:  conductWhenEnergized,
		tick: func(p *Part, now time.Time) bool {
			if p.energized && now.After(p.deadline) {
				p.energized = false
				return true
			}
			return false
		},
		interact: func(p *Part, now time.Time, hold time.Duration) {
			p.energized = true
			p.deadline = now.Add(hold)
		},
	},
	ControlledSwitch: {
		name:     "controlled-switch",
		roles:    []Role{Input, Output, Control},
		stateful: true,
		conduct:  conductWhenEnergized,
		tick: func(p *Part, _ time.Time) bool {
			return p.setEnergized(p.Socket(Control).Powered())
		},
	},
	Inverter: {
		name:     "inverter",
		roles:    []Role{Input, Output, Control},
		stateful: true,
		conduct:  conductWhenEnergized,
		tick: func(p *Part, _ time.Time) bool {
			return p.setEnergized(!p.Socket(Control).Powered())
		},
	},
	Indicator: {
		name:  "indicator",
		roles: []Role{Input},
	},
	Joint: {
		name:  "joint",
		roles: []Role{PassThrough},
	},
}

// conductWhenEnergized joins Input and Output in both directions while the
// part is energized. Control sockets never pass current onward.
func conductWhenEnergized(p *Part, from *Socket) []*Socket {
	if !p.energized {
		return nil
	}
	switch from.role {
	case Input:
		return []*Socket{p.Socket(Output)}
	case Output:
		return []*Socket{p.Socket(Input)}
	default:
		return nil
	}
}

// Categories returns every valid category in declaration order.
func Categories() []Category {
	return []Category{Source, ToggleSwitch, TimedButton, ControlledSwitch, Inverter, Indicator, Joint}
}

// Valid reports whether c names a known category.
func (c Category) Valid() bool {
	_, ok := behaviors[c]
	return ok
}

// String returns the persisted name of the category.
func (c Category) String() string {
	if b, ok := behaviors[c]; ok {
		return b.name
	}
	return "invalid"
}

// Stateful reports whether parts of this category carry an energized flag.
func (c Category) Stateful() bool {
	return behaviors[c].stateful
}

// Roles returns the socket roles a part of this category is built with.
func (c Category) Roles() []Role {
	roles := behaviors[c].roles
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// HasRole reports whether parts of this category own a socket of the role.
func (c Category) HasRole(r Role) bool {
	for _, role := range behaviors[c].roles {
		if role == r {
			return true
		}
	}
	return false
}

// ParseCategory maps a persisted category name to a Category.
// Matching is case-insensitive and accepts the camel-case spelling
// ("ToggleSwitch") as well as the hyphenated one ("toggle-switch").
func ParseCategory(s string) (Category, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories() {
		canonical := behaviors[c].name
		if name == canonical || name == strings.ReplaceAll(canonical, "-", "") {
			return c, nil
		}
	}
	return CategoryInvalid, fmt.Errorf("unknown part category %q", s)
}
