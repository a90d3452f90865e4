// Package connectivity answers the graph questions asked when an interactive
// operation starts: how strongly each joint should follow a dragged part,
// and which joints are enclosed by a selection and should move with it.
//
// Both queries are read-only and computed from scratch on every call.
// Callers re-run them when the topology changes between drag frames.
package connectivity

import (
	"fmt"
	"strings"

	"github.com/nvandessel/wirelogic/internal/circuit"
)

// Policy selects how drag-follow weights are derived.
type Policy int

const (
	// PolicyDistance weights a joint by how much closer it is to the dragged
	// part than to the nearest anchor: anchor/(source+anchor).
	PolicyDistance Policy = iota
	// PolicyBinary pins every joint cluster that touches an anchor (weight 0)
	// and lets every other cluster follow fully (weight 1).
	PolicyBinary
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyDistance:
		return "distance"
	case PolicyBinary:
		return "binary"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy maps a configuration name to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "distance":
		return PolicyDistance, nil
	case "binary":
		return PolicyBinary, nil
	default:
		return PolicyDistance, fmt.Errorf("unknown drag policy %q (valid: distance, binary)", s)
	}
}

// Analyzer runs connectivity queries with a fixed weighting policy.
type Analyzer struct {
	policy Policy
}

// NewAnalyzer creates an analyzer using the given drag policy.
func NewAnalyzer(policy Policy) *Analyzer {
	return &Analyzer{policy: policy}
}

// Policy returns the analyzer's drag policy.
func (a *Analyzer) Policy() Policy { return a.policy }

// Weight is a joint's drag-follow factor in [0,1].
type Weight struct {
	Joint          *circuit.Part
	Weight         float64
	SourceDistance int // hops from the dragged part
	AnchorDistance int // hops from the nearest anchor seed, -1 if none reachable
}

// WeightsForDragFrom returns a weight for every joint reachable from source
// through joints only. Results are in breadth-first order from source.
func (a *Analyzer) WeightsForDragFrom(source *circuit.Part) []Weight {
	if source == nil {
		return nil
	}
	return a.WeightsForDrag([]*circuit.Part{source})
}

// WeightsForDrag is WeightsForDragFrom for a group of parts dragged
// together. None of the dragged parts counts as an anchor.
func (a *Analyzer) WeightsForDrag(dragged []*circuit.Part) []Weight {
	isDragged := make(map[*circuit.Part]bool, len(dragged))
	for _, p := range dragged {
		isDragged[p] = true
	}

	// Breadth-first from the dragged parts, continuing through joints only.
	sourceDist := make(map[*circuit.Part]int)
	var order []*circuit.Part
	frontier := make([]*circuit.Part, 0, len(dragged))
	for _, p := range dragged {
		for _, n := range neighbors(p) {
			if n.Category != circuit.Joint || isDragged[n] {
				continue
			}
			if _, seen := sourceDist[n]; !seen {
				sourceDist[n] = 1
				order = append(order, n)
				frontier = append(frontier, n)
			}
		}
	}
	for len(frontier) > 0 {
		j := frontier[0]
		frontier = frontier[1:]
		for _, n := range neighbors(j) {
			if n.Category != circuit.Joint || isDragged[n] {
				continue
			}
			if _, seen := sourceDist[n]; !seen {
				sourceDist[n] = sourceDist[j] + 1
				order = append(order, n)
				frontier = append(frontier, n)
			}
		}
	}

	// Multi-source breadth-first from every reached joint that touches an
	// anchor, restricted to the reached set.
	anchorDist := make(map[*circuit.Part]int)
	frontier = frontier[:0]
	for _, j := range order {
		for _, n := range neighbors(j) {
			if n.Category != circuit.Joint && !isDragged[n] {
				anchorDist[j] = 0
				frontier = append(frontier, j)
				break
			}
		}
	}
	for len(frontier) > 0 {
		j := frontier[0]
		frontier = frontier[1:]
		for _, n := range neighbors(j) {
			if _, reached := sourceDist[n]; !reached {
				continue
			}
			if _, seen := anchorDist[n]; !seen {
				anchorDist[n] = anchorDist[j] + 1
				frontier = append(frontier, n)
			}
		}
	}

	weights := make([]Weight, 0, len(order))
	for _, j := range order {
		w := Weight{Joint: j, SourceDistance: sourceDist[j], AnchorDistance: -1}
		ad, anchored := anchorDist[j]
		if anchored {
			w.AnchorDistance = ad
		}
		w.Weight = a.weigh(w.SourceDistance, ad, anchored)
		weights = append(weights, w)
	}
	return weights
}

// weigh applies the policy. The anchor search only spreads within the
// cluster it started in, so "anchored" is exactly "the joint's cluster
// touches an anchor", which is what the binary policy keys on.
func (a *Analyzer) weigh(sourceDist, anchorDist int, anchored bool) float64 {
	if !anchored {
		return 1
	}
	if a.policy == PolicyBinary {
		return 0
	}
	return float64(anchorDist) / float64(sourceDist+anchorDist)
}

// EnclosedJoints returns the unselected joints of all that should travel
// with selected. Unselected joints are grouped into clusters connected
// through other unselected joints. A cluster is enclosed when it touches at
// least one selected part and no unselected non-joint part. Results follow
// the order of all.
func EnclosedJoints(all, selected []*circuit.Part) []*circuit.Part {
	inAll := make(map[*circuit.Part]bool, len(all))
	for _, p := range all {
		inAll[p] = true
	}
	isSelected := make(map[*circuit.Part]bool, len(selected))
	for _, p := range selected {
		isSelected[p] = true
	}

	visited := make(map[*circuit.Part]bool)
	enclosed := make(map[*circuit.Part]bool)

	for _, start := range all {
		if start.Category != circuit.Joint || isSelected[start] || visited[start] {
			continue
		}

		cluster := []*circuit.Part{start}
		visited[start] = true
		touchesSelection := false
		leaks := false

		for i := 0; i < len(cluster); i++ {
			for _, n := range neighbors(cluster[i]) {
				switch {
				case isSelected[n]:
					touchesSelection = true
				case n.Category == circuit.Joint && inAll[n]:
					if !visited[n] {
						visited[n] = true
						cluster = append(cluster, n)
					}
				default:
					leaks = true
				}
			}
		}

		if touchesSelection && !leaks {
			for _, j := range cluster {
				enclosed[j] = true
			}
		}
	}

	var out []*circuit.Part
	for _, p := range all {
		if enclosed[p] {
			out = append(out, p)
		}
	}
	return out
}

// neighbors returns the parts on the far side of every wire on p's sockets,
// excluding p itself. A part reached over several wires appears once per
// wire.
func neighbors(p *circuit.Part) []*circuit.Part {
	var out []*circuit.Part
	for _, s := range p.Sockets() {
		for _, w := range s.Wires() {
			other := w.OtherEnd(s)
			if other == nil || other.Part() == p {
				continue
			}
			out = append(out, other.Part())
		}
	}
	return out
}
