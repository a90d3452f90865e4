// Package simulation drives a circuit through discrete steps.
//
// Each step first runs the logic clock, if an interval boundary has elapsed,
// and then recomputes power with a full propagation pass. The clock samples
// control lines from the previous pass, which gives controlled switches and
// inverters their one-tick delay.
//
// Time is injected. Tests and the CLI usually drive a VirtualClock so that
// runs are reproducible; --realtime runs use time.Now.
//
// Usage:
//
//	c, _ := topology.Build(doc)
//	vc := simulation.NewVirtualClock(time.Unix(0, 0))
//	sim := simulation.New(c, simulation.Config{TickInterval: 100 * time.Millisecond},
//	    simulation.WithNow(vc.Now))
//	for i := 0; i < 10; i++ {
//	    sim.Step()
//	    vc.Advance(16 * time.Millisecond)
//	}
package simulation
