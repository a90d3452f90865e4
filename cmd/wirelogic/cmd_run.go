package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nvandessel/wirelogic/internal/circuit"
	"github.com/nvandessel/wirelogic/internal/simulation"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Simulate a circuit for a number of steps",
		Long: `Simulate a circuit for a number of steps and print the final part states.

Steps run on a virtual clock that advances by simulation.step_interval per
step, so results are reproducible. With --realtime the wall clock is used and
steps are paced at the same interval.

Interactions flip toggle switches or press timed buttons just before a step:

Examples:
  wirelogic run latch.yaml --steps 50
  wirelogic run latch.yaml --steps 50 --interact 1@0,1@20
  wirelogic run blinker.yaml --steps 600 --realtime`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			steps, _ := cmd.Flags().GetInt("steps")
			interact, _ := cmd.Flags().GetString("interact")
			realtime, _ := cmd.Flags().GetBool("realtime")

			if steps < 0 {
				return fmt.Errorf("--steps must be non-negative, got %d", steps)
			}
			schedule, err := simulation.ParseSchedule(interact)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cmd, cfg)
			trace := newTraceLogger(cfg)
			defer trace.Close()

			_, c, err := loadCircuit(args[0], cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var (
				now  func() time.Time
				hook simulation.StepHook
			)
			if realtime {
				sigCh := make(chan os.Signal, 1)
				notifySignals(sigCh)
				go func() {
					select {
					case <-sigCh:
						cancel()
					case <-ctx.Done():
					}
				}()

				ticker := time.NewTicker(cfg.Simulation.StepInterval)
				defer ticker.Stop()
				hook = func(simulation.StepReport) error {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-ticker.C:
						return nil
					}
				}
			} else {
				vc := simulation.NewVirtualClock(time.Unix(0, 0).UTC())
				now = vc.Now
				hook = func(simulation.StepReport) error {
					vc.Advance(cfg.Simulation.StepInterval)
					return nil
				}
			}

			sim := newSimulator(c, cfg, logger, now, simulation.WithTrace(trace))
			logger.Debug("run", "file", args[0], "steps", steps, "interactions", len(schedule), "realtime", realtime)

			reports, err := sim.RunSchedule(ctx, steps, schedule, hook)
			if err != nil && ctx.Err() == nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"steps":   sim.Steps(),
					"reports": reports,
					"parts":   sim.States(),
				})
			}

			out := cmd.OutOrStdout()
			for _, r := range reports {
				if r.Changed > 0 {
					fmt.Fprintf(out, "step %d: %d part(s) changed, %d socket(s) powered\n", r.Step, r.Changed, r.Powered)
				}
			}
			fmt.Fprintf(out, "\nAfter %d step(s):\n", sim.Steps())
			printStates(out, sim.States())
			return nil
		},
	}

	cmd.Flags().Int("steps", 10, "Number of propagation steps to run")
	cmd.Flags().String("interact", "", "Interactions as part@step pairs, e.g. 1@0,1@20")
	cmd.Flags().Bool("realtime", false, "Use the wall clock and pace steps at simulation.step_interval")

	return cmd
}

func printStates(w io.Writer, states []simulation.PartState) {
	for _, st := range states {
		power := "off"
		if st.Powered {
			power = "powered"
		}
		line := fmt.Sprintf("  #%-3d %-18s %s", st.ID, st.Category, power)
		if cat, err := circuit.ParseCategory(st.Category); err == nil && cat.Stateful() {
			line += fmt.Sprintf(", energized=%v", st.Energized)
		}
		fmt.Fprintln(w, line)
	}
}
