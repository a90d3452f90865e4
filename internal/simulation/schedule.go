package simulation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nvandessel/wirelogic/internal/circuit"
)

// Interaction presses or flips a part before a given step.
type Interaction struct {
	Step int            `json:"step"`
	Part circuit.PartID `json:"part"`
}

// Schedule is a list of interactions. Order within a step is preserved.
type Schedule []Interaction

// ParseSchedule parses "part@step" pairs separated by commas, e.g.
// "1@0,1@10,4@12". Whitespace around entries is ignored.
func ParseSchedule(s string) (Schedule, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var out Schedule
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		partStr, stepStr, ok := strings.Cut(entry, "@")
		if !ok {
			return nil, fmt.Errorf("invalid interaction %q: expected part@step", entry)
		}
		part, err := strconv.Atoi(strings.TrimSpace(partStr))
		if err != nil || part < 0 {
			return nil, fmt.Errorf("invalid interaction %q: bad part index", entry)
		}
		step, err := strconv.Atoi(strings.TrimSpace(stepStr))
		if err != nil || step < 0 {
			return nil, fmt.Errorf("invalid interaction %q: bad step", entry)
		}
		out = append(out, Interaction{Step: step, Part: circuit.PartID(part)})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Step < out[j].Step })
	return out, nil
}

func (sc Schedule) byStep() map[int][]circuit.PartID {
	m := make(map[int][]circuit.PartID, len(sc))
	for _, in := range sc {
		m[in.Step] = append(m[in.Step], in.Part)
	}
	return m
}
