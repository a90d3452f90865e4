package circuit

import (
	"testing"
	"time"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"source", Source, false},
		{"toggle-switch", ToggleSwitch, false},
		{"ToggleSwitch", ToggleSwitch, false},
		{" timed-button ", TimedButton, false},
		{"controlledswitch", ControlledSwitch, false},
		{"Inverter", Inverter, false},
		{"indicator", Indicator, false},
		{"joint", Joint, false},
		{"resistor", CategoryInvalid, true},
		{"", CategoryInvalid, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCategory(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCategory(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseCategory(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestCategoryStringRoundTrip(t *testing.T) {
	for _, c := range Categories() {
		got, err := ParseCategory(c.String())
		if err != nil || got != c {
			t.Errorf("round trip of %s gave %s (%v)", c, got, err)
		}
	}
	if CategoryInvalid.Valid() {
		t.Error("CategoryInvalid must not be valid")
	}
}

func TestParseRole(t *testing.T) {
	for _, r := range []Role{Input, Output, Control, PassThrough} {
		got, err := ParseRole(r.String())
		if err != nil || got != r {
			t.Errorf("round trip of %s gave %s (%v)", r, got, err)
		}
	}
	if _, err := ParseRole("gate"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestCategoryHasRole(t *testing.T) {
	if !Inverter.HasRole(Control) {
		t.Error("inverter should have a control socket")
	}
	if ToggleSwitch.HasRole(Control) {
		t.Error("toggle switch should not have a control socket")
	}
	if !Joint.HasRole(PassThrough) {
		t.Error("joint should have a pass-through socket")
	}
}

func TestConductsFrom(t *testing.T) {
	c := New()

	sw := mustPart(t, c, ControlledSwitch)
	in, out, ctl := sw.Socket(Input), sw.Socket(Output), sw.Socket(Control)

	if got := sw.ConductsFrom(in); len(got) != 0 {
		t.Errorf("de-energized switch conducted to %d sockets", len(got))
	}
	c.SetEnergized(sw, true)
	if got := sw.ConductsFrom(in); len(got) != 1 || got[0] != out {
		t.Error("energized switch should conduct input to output")
	}
	if got := sw.ConductsFrom(out); len(got) != 1 || got[0] != in {
		t.Error("energized switch should conduct output to input")
	}
	if got := sw.ConductsFrom(ctl); len(got) != 0 {
		t.Error("control socket must be a dead end")
	}

	lamp := mustPart(t, c, Indicator)
	if got := lamp.ConductsFrom(lamp.Socket(Input)); len(got) != 0 {
		t.Error("indicator must never conduct onward")
	}

	j := mustPart(t, c, Joint)
	if got := j.ConductsFrom(j.Socket(PassThrough)); len(got) != 0 {
		t.Error("joint has no internal path; fan-out happens over wires")
	}

	if got := sw.ConductsFrom(lamp.Socket(Input)); got != nil {
		t.Error("a part must not conduct from a socket it does not own")
	}
}

func TestTick(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New()

	cs := mustPart(t, c, ControlledSwitch)
	cs.Socket(Control).SetPowered(true)
	if !cs.Tick(now) || !cs.Energized() {
		t.Error("controlled switch should follow a powered control line")
	}
	if cs.Tick(now) {
		t.Error("second tick with same input should report no change")
	}

	inv := mustPart(t, c, Inverter)
	inv.Socket(Control).SetPowered(true)
	inv.Tick(now)
	if inv.Energized() {
		t.Error("inverter should open when its control line is powered")
	}
	inv.Socket(Control).SetPowered(false)
	inv.Tick(now)
	if !inv.Energized() {
		t.Error("inverter should close when its control line is unpowered")
	}

	btn := mustPart(t, c, TimedButton)
	btn.Interact(now, time.Second)
	if btn.Tick(now.Add(time.Second)) {
		t.Error("button must stay on until the deadline has passed")
	}
	if !btn.Tick(now.Add(time.Second+time.Nanosecond)) || btn.Energized() {
		t.Error("button should release after its deadline")
	}

	sw := mustPart(t, c, ToggleSwitch)
	c.SetEnergized(sw, true)
	if sw.Tick(now) || !sw.Energized() {
		t.Error("toggle switch has no sequential update")
	}
}
