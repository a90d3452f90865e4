package topology

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidTopology is returned for any document that cannot be rebuilt
// into a circuit.
var ErrInvalidTopology = errors.New("invalid topology")

// TopologyError wraps ErrInvalidTopology with the offending location.
type TopologyError struct {
	Field  string // e.g. "parts.category", "wires.a.socket"
	Index  int    // element index within parts or wires, -1 for the document
	Value  string
	Reason string
}

func (e *TopologyError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s: %s (value=%q)", ErrInvalidTopology, e.Field, e.Reason, e.Value)
	}
	return fmt.Sprintf("%s: %s[%d]: %s (value=%q)", ErrInvalidTopology, e.Field, e.Index, e.Reason, e.Value)
}

func (e *TopologyError) Unwrap() error { return ErrInvalidTopology }

func itoa(n int) string { return strconv.Itoa(n) }
