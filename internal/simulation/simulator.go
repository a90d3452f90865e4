package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nvandessel/wirelogic/internal/circuit"
	"github.com/nvandessel/wirelogic/internal/clock"
	"github.com/nvandessel/wirelogic/internal/logging"
	"github.com/nvandessel/wirelogic/internal/propagation"
)

// Config holds step timing.
type Config struct {
	// TickInterval is the clock cadence. Zero uses clock.DefaultInterval.
	TickInterval time.Duration

	// ButtonDuration overrides the circuit's timed button hold when positive.
	ButtonDuration time.Duration
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithNow injects the time source. The default is time.Now.
func WithNow(now func() time.Time) Option {
	return func(s *Simulator) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTrace records every step to a JSONL trace. A nil trace is allowed.
func WithTrace(trace *logging.TraceLogger) Option {
	return func(s *Simulator) { s.trace = trace }
}

// StepReport summarizes one step.
type StepReport struct {
	Step    int       `json:"step"`
	Time    time.Time `json:"time"`
	Ticked  bool      `json:"ticked"`
	Changed int       `json:"changed"`
	Sources int       `json:"sources"`
	Powered int       `json:"powered_sockets"`
}

// Simulator steps a single circuit. Like the circuit itself it is not safe
// for concurrent use.
type Simulator struct {
	circuit *circuit.Circuit
	clock   *clock.Clock
	engine  *propagation.Engine
	now     func() time.Time
	logger  *slog.Logger
	trace   *logging.TraceLogger
	steps   int
}

// New creates a simulator for c.
func New(c *circuit.Circuit, cfg Config, opts ...Option) *Simulator {
	if cfg.ButtonDuration > 0 {
		c.SetButtonHold(cfg.ButtonDuration)
	}
	s := &Simulator{
		circuit: c,
		clock:   clock.New(cfg.TickInterval),
		engine:  propagation.NewEngine(),
		now:     time.Now,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Circuit returns the simulated circuit.
func (s *Simulator) Circuit() *circuit.Circuit { return s.circuit }

// Steps returns how many steps have run.
func (s *Simulator) Steps() int { return s.steps }

// Step runs one step: tick if due, then a propagation pass.
func (s *Simulator) Step() StepReport {
	now := s.now()
	parts := s.circuit.Parts()

	report := StepReport{Step: s.steps, Time: now}
	if s.clock.Due(now) {
		report.Ticked = true
		report.Changed = clock.Tick(parts, now)
	}
	stats := s.engine.Evaluate(parts)
	report.Sources = stats.Sources
	report.Powered = stats.Powered
	s.steps++

	level := logging.LevelTrace
	if report.Changed > 0 {
		level = slog.LevelDebug
	}
	s.logger.Log(context.Background(), level, "step",
		"step", report.Step,
		"ticked", report.Ticked,
		"changed", report.Changed,
		"powered", report.Powered)

	s.trace.Log(map[string]any{
		"step":            report.Step,
		"time":            now.UTC().Format(time.RFC3339Nano),
		"ticked":          report.Ticked,
		"changed":         report.Changed,
		"sources":         report.Sources,
		"powered_sockets": report.Powered,
		"parts":           len(parts),
	})
	return report
}

// Run runs n steps and returns their reports.
func (s *Simulator) Run(n int) []StepReport {
	reports := make([]StepReport, 0, max(n, 0))
	for i := 0; i < n; i++ {
		reports = append(reports, s.Step())
	}
	return reports
}

// Interact applies a manual interaction to the part with the given ID. The
// effect on power shows up on the next step.
func (s *Simulator) Interact(id circuit.PartID) error {
	p := s.circuit.Part(id)
	if p == nil {
		return fmt.Errorf("interact with part %d: %w", id, circuit.ErrPartNotFound)
	}
	if err := s.circuit.Interact(p, s.now()); err != nil {
		return fmt.Errorf("interact with part %d: %w", id, err)
	}
	s.logger.Debug("interact", "part", id, "category", p.Category.String(), "energized", p.Energized())
	return nil
}

// StepHook runs after every step of RunSchedule. Returning an error stops
// the run.
type StepHook func(StepReport) error

// RunSchedule runs steps, applying each scheduled interaction just before
// the step it names. It stops early when ctx is cancelled or hook fails.
func (s *Simulator) RunSchedule(ctx context.Context, steps int, schedule Schedule, hook StepHook) ([]StepReport, error) {
	byStep := schedule.byStep()
	reports := make([]StepReport, 0, max(steps, 0))
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		for _, id := range byStep[i] {
			if err := s.Interact(id); err != nil {
				return reports, err
			}
		}
		r := s.Step()
		reports = append(reports, r)
		if hook != nil {
			if err := hook(r); err != nil {
				return reports, err
			}
		}
	}
	return reports, nil
}
