package propagation

import (
	"math/rand"
	"testing"
	"time"

	"github.com/nvandessel/wirelogic/internal/circuit"
)

// addPart is a test helper that creates a part and fails the test on error.
func addPart(t *testing.T, c *circuit.Circuit, cat circuit.Category) *circuit.Part {
	t.Helper()
	p, err := c.CreatePart(cat)
	if err != nil {
		t.Fatalf("CreatePart(%s): %v", cat, err)
	}
	return p
}

// wire is a test helper that connects two sockets and fails the test on error.
func wire(t *testing.T, c *circuit.Circuit, a, b *circuit.Socket) *circuit.Wire {
	t.Helper()
	w, err := c.ConnectWire(a, b)
	if err != nil {
		t.Fatalf("ConnectWire: %v", err)
	}
	return w
}

// powerMap captures every socket's powered flag keyed by part ID and role.
func powerMap(c *circuit.Circuit) map[circuit.PartID]map[circuit.Role]bool {
	out := make(map[circuit.PartID]map[circuit.Role]bool)
	for _, p := range c.Parts() {
		m := make(map[circuit.Role]bool)
		for _, s := range p.Sockets() {
			m[s.Role()] = s.Powered()
		}
		out[p.ID] = m
	}
	return out
}

func samePower(a, b map[circuit.PartID]map[circuit.Role]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for id, roles := range a {
		for role, on := range roles {
			if b[id][role] != on {
				return false
			}
		}
	}
	return true
}

func TestEvaluate_EmptyCircuit(t *testing.T) {
	stats := Evaluate(nil)
	if stats != (Stats{}) {
		t.Errorf("expected zero stats, got %+v", stats)
	}
}

func TestEvaluate_SwitchGatesIndicator(t *testing.T) {
	// Source -> ToggleSwitch(off) -> Indicator
	c := circuit.New()
	src := addPart(t, c, circuit.Source)
	sw := addPart(t, c, circuit.ToggleSwitch)
	lamp := addPart(t, c, circuit.Indicator)
	wire(t, c, src.Socket(circuit.Output), sw.Socket(circuit.Input))
	wire(t, c, sw.Socket(circuit.Output), lamp.Socket(circuit.Input))

	eng := NewEngine()
	eng.Evaluate(c.Parts())

	if !sw.Socket(circuit.Input).Powered() {
		t.Error("switch input should be powered by the source")
	}
	if lamp.Socket(circuit.Input).Powered() {
		t.Fatal("indicator must be dark while the switch is off")
	}

	c.Interact(sw, time.Now())
	eng.Evaluate(c.Parts())

	if !lamp.Socket(circuit.Input).Powered() {
		t.Error("indicator should light once the switch is on")
	}
}

func TestEvaluate_JointChain(t *testing.T) {
	// Source -> Joint -> Joint -> Indicator
	c := circuit.New()
	src := addPart(t, c, circuit.Source)
	j1 := addPart(t, c, circuit.Joint)
	j2 := addPart(t, c, circuit.Joint)
	lamp := addPart(t, c, circuit.Indicator)
	wire(t, c, src.Socket(circuit.Output), j1.Socket(circuit.PassThrough))
	wire(t, c, j1.Socket(circuit.PassThrough), j2.Socket(circuit.PassThrough))
	wire(t, c, j2.Socket(circuit.PassThrough), lamp.Socket(circuit.Input))

	stats := Evaluate(c.Parts())

	if !lamp.Socket(circuit.Input).Powered() {
		t.Error("indicator at the end of a joint chain should be powered")
	}
	if stats.Powered != 4 {
		t.Errorf("expected 4 powered sockets, got %d", stats.Powered)
	}
	if stats.Sources != 1 {
		t.Errorf("expected 1 source, got %d", stats.Sources)
	}
}

func TestEvaluate_LoopTerminates(t *testing.T) {
	// Source feeds j1; j1 -> j2 -> j3 -> j1 forms a loop, plus a self-loop on j2.
	c := circuit.New()
	src := addPart(t, c, circuit.Source)
	j1 := addPart(t, c, circuit.Joint)
	j2 := addPart(t, c, circuit.Joint)
	j3 := addPart(t, c, circuit.Joint)
	wire(t, c, src.Socket(circuit.Output), j1.Socket(circuit.PassThrough))
	wire(t, c, j1.Socket(circuit.PassThrough), j2.Socket(circuit.PassThrough))
	wire(t, c, j2.Socket(circuit.PassThrough), j3.Socket(circuit.PassThrough))
	wire(t, c, j3.Socket(circuit.PassThrough), j1.Socket(circuit.PassThrough))
	wire(t, c, j2.Socket(circuit.PassThrough), j2.Socket(circuit.PassThrough))

	stats := Evaluate(c.Parts())

	for _, j := range []*circuit.Part{j1, j2, j3} {
		if !j.Socket(circuit.PassThrough).Powered() {
			t.Errorf("joint %d on the loop should be powered", j.ID)
		}
	}
	if stats.Powered != stats.Sockets {
		t.Errorf("expected every socket claimed exactly once: powered=%d sockets=%d", stats.Powered, stats.Sockets)
	}
}

func TestEvaluate_TwoPathsToSameJoint(t *testing.T) {
	// Source fans out to two joints that both reach a shared joint.
	c := circuit.New()
	src := addPart(t, c, circuit.Source)
	a := addPart(t, c, circuit.Joint)
	b := addPart(t, c, circuit.Joint)
	shared := addPart(t, c, circuit.Joint)
	wire(t, c, src.Socket(circuit.Output), a.Socket(circuit.PassThrough))
	wire(t, c, src.Socket(circuit.Output), b.Socket(circuit.PassThrough))
	wire(t, c, a.Socket(circuit.PassThrough), shared.Socket(circuit.PassThrough))
	wire(t, c, b.Socket(circuit.PassThrough), shared.Socket(circuit.PassThrough))

	stats := Evaluate(c.Parts())

	if !a.Socket(circuit.PassThrough).Powered() || !b.Socket(circuit.PassThrough).Powered() {
		t.Error("both paths should be powered")
	}
	if stats.Powered != 4 {
		t.Errorf("expected 4 sockets claimed once each, got %d", stats.Powered)
	}
}

func TestEvaluate_ControlIsDeadEnd(t *testing.T) {
	// Source drives only the control line of an energized controlled switch.
	// Nothing else feeds the switch, so its output must stay dark.
	c := circuit.New()
	src := addPart(t, c, circuit.Source)
	cs := addPart(t, c, circuit.ControlledSwitch)
	lamp := addPart(t, c, circuit.Indicator)
	wire(t, c, src.Socket(circuit.Output), cs.Socket(circuit.Control))
	wire(t, c, cs.Socket(circuit.Output), lamp.Socket(circuit.Input))
	c.SetEnergized(cs, true)

	Evaluate(c.Parts())

	if !cs.Socket(circuit.Control).Powered() {
		t.Error("control socket should record power")
	}
	if cs.Socket(circuit.Output).Powered() || cs.Socket(circuit.Input).Powered() {
		t.Error("power on the control socket must not reach the switch's other sockets")
	}
	if lamp.Socket(circuit.Input).Powered() {
		t.Error("indicator must stay dark")
	}
}

func TestEvaluate_ConductsBackwards(t *testing.T) {
	// Source -> switch output; the energized switch carries power to its input.
	c := circuit.New()
	src := addPart(t, c, circuit.Source)
	sw := addPart(t, c, circuit.ToggleSwitch)
	lamp := addPart(t, c, circuit.Indicator)
	wire(t, c, src.Socket(circuit.Output), sw.Socket(circuit.Output))
	wire(t, c, sw.Socket(circuit.Input), lamp.Socket(circuit.Input))
	c.SetEnergized(sw, true)

	Evaluate(c.Parts())

	if !lamp.Socket(circuit.Input).Powered() {
		t.Error("an energized switch should conduct in both directions")
	}
}

func TestEvaluate_IndicatorDoesNotRelay(t *testing.T) {
	c := circuit.New()
	src := addPart(t, c, circuit.Source)
	lamp := addPart(t, c, circuit.Indicator)
	lamp2 := addPart(t, c, circuit.Indicator)
	wire(t, c, src.Socket(circuit.Output), lamp.Socket(circuit.Input))
	// Two indicators sharing a wire is still direct wire fan-out.
	wire(t, c, lamp.Socket(circuit.Input), lamp2.Socket(circuit.Input))

	Evaluate(c.Parts())

	if !lamp2.Socket(circuit.Input).Powered() {
		t.Error("wires on a powered socket fan out regardless of the part")
	}
}

func TestEvaluate_ResetsStalePower(t *testing.T) {
	c := circuit.New()
	lamp := addPart(t, c, circuit.Indicator)
	lamp.Socket(circuit.Input).SetPowered(true)

	Evaluate(c.Parts())

	if lamp.Socket(circuit.Input).Powered() {
		t.Error("a pass must not keep power from a previous pass")
	}
}

func TestEvaluate_IgnoresNonMembers(t *testing.T) {
	c := circuit.New()
	src := addPart(t, c, circuit.Source)
	lamp := addPart(t, c, circuit.Indicator)
	wire(t, c, src.Socket(circuit.Output), lamp.Socket(circuit.Input))

	Evaluate([]*circuit.Part{src})

	if lamp.Socket(circuit.Input).Powered() {
		t.Error("sockets of parts outside the evaluated set must not be claimed")
	}
}

func TestEvaluate_ZeroWireJoint(t *testing.T) {
	c := circuit.New()
	addPart(t, c, circuit.Source)
	j := addPart(t, c, circuit.Joint)

	Evaluate(c.Parts())

	if j.Socket(circuit.PassThrough).Powered() {
		t.Error("an unwired joint cannot be powered")
	}
}

func TestEvaluate_IdempotentAndOrderIndependent(t *testing.T) {
	c := buildMesh(t)
	eng := NewEngine()

	eng.Evaluate(c.Parts())
	first := powerMap(c)
	eng.Evaluate(c.Parts())
	if !samePower(first, powerMap(c)) {
		t.Fatal("second pass with no mutation changed the result")
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]*circuit.Part(nil), c.Parts()...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		eng.Evaluate(shuffled)
		if !samePower(first, powerMap(c)) {
			t.Fatalf("evaluation order %d produced a different result", i)
		}
	}
}

func TestEvaluate_ControlledSwitchUsesPreviousTick(t *testing.T) {
	// Source powers the control line and, separately, the switch input.
	c := circuit.New()
	src := addPart(t, c, circuit.Source)
	cs := addPart(t, c, circuit.ControlledSwitch)
	lamp := addPart(t, c, circuit.Indicator)
	wire(t, c, src.Socket(circuit.Output), cs.Socket(circuit.Control))
	wire(t, c, src.Socket(circuit.Output), cs.Socket(circuit.Input))
	wire(t, c, cs.Socket(circuit.Output), lamp.Socket(circuit.Input))

	eng := NewEngine()
	eng.Evaluate(c.Parts())
	if !cs.Socket(circuit.Control).Powered() {
		t.Fatal("control line should be powered")
	}
	if lamp.Socket(circuit.Input).Powered() {
		t.Fatal("switch must not conduct before a tick samples the control line")
	}

	// Evaluating again without a tick still reflects the old state.
	eng.Evaluate(c.Parts())
	if lamp.Socket(circuit.Input).Powered() {
		t.Fatal("conduction changed without a tick")
	}

	cs.Tick(time.Now())
	eng.Evaluate(c.Parts())
	if !lamp.Socket(circuit.Input).Powered() {
		t.Error("after a tick the switch should conduct")
	}
}

// buildMesh builds a mixed circuit with loops, switches in both states and
// an inverter, for order-independence checks.
func buildMesh(t *testing.T) *circuit.Circuit {
	t.Helper()
	c := circuit.New()
	src := addPart(t, c, circuit.Source)
	j := make([]*circuit.Part, 5)
	for i := range j {
		j[i] = addPart(t, c, circuit.Joint)
	}
	on := addPart(t, c, circuit.ToggleSwitch)
	off := addPart(t, c, circuit.ToggleSwitch)
	inv := addPart(t, c, circuit.Inverter)
	l1 := addPart(t, c, circuit.Indicator)
	l2 := addPart(t, c, circuit.Indicator)
	l3 := addPart(t, c, circuit.Indicator)
	c.SetEnergized(on, true)

	pt := func(p *circuit.Part) *circuit.Socket { return p.Socket(circuit.PassThrough) }
	wire(t, c, src.Socket(circuit.Output), pt(j[0]))
	wire(t, c, pt(j[0]), pt(j[1]))
	wire(t, c, pt(j[1]), pt(j[2]))
	wire(t, c, pt(j[2]), pt(j[0]))
	wire(t, c, pt(j[1]), on.Socket(circuit.Input))
	wire(t, c, on.Socket(circuit.Output), pt(j[3]))
	wire(t, c, pt(j[3]), l1.Socket(circuit.Input))
	wire(t, c, pt(j[2]), off.Socket(circuit.Input))
	wire(t, c, off.Socket(circuit.Output), l2.Socket(circuit.Input))
	wire(t, c, pt(j[3]), inv.Socket(circuit.Input))
	wire(t, c, inv.Socket(circuit.Output), pt(j[4]))
	wire(t, c, pt(j[4]), l3.Socket(circuit.Input))
	wire(t, c, pt(j[4]), pt(j[4]))
	return c
}
