package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nvandessel/wirelogic/internal/config"
	"github.com/nvandessel/wirelogic/internal/logging"
	"github.com/nvandessel/wirelogic/internal/simulation"
	"github.com/nvandessel/wirelogic/internal/visualization"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <file>",
		Short: "Render a circuit",
		Long: `Render a circuit in DOT (Graphviz), JSON, or standalone HTML format.

The circuit is stepped --steps times on a virtual clock first so the output
shows which sockets are powered. Use --steps 0 to render it unpowered.

Examples:
  wirelogic graph latch.yaml | neato -n -Tsvg > latch.svg
  wirelogic graph latch.yaml --format json
  wirelogic graph latch.yaml --format html -o latch.html --open`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			steps, _ := cmd.Flags().GetInt("steps")
			open, _ := cmd.Flags().GetBool("open")

			f, err := visualization.ParseFormat(format)
			if err != nil {
				return err
			}
			if steps < 0 {
				return fmt.Errorf("--steps must be non-negative, got %d", steps)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			_, c, err := loadCircuit(args[0], cfg)
			if err != nil {
				return err
			}

			vc := simulation.NewVirtualClock(time.Unix(0, 0).UTC())
			sim := newSimulator(c, cfg, newLogger(cmd, cfg), vc.Now)
			for i := 0; i < steps; i++ {
				sim.Step()
				vc.Advance(cfg.Simulation.StepInterval)
			}

			var data []byte
			switch f {
			case visualization.FormatDOT:
				data = []byte(visualization.RenderDOT(c))
			case visualization.FormatJSON:
				data, err = jsonBytes(visualization.RenderJSON(c))
			case visualization.FormatHTML:
				data, err = visualization.RenderHTML(c)
			}
			if err != nil {
				return fmt.Errorf("render %s: %w", f, err)
			}

			if f == visualization.FormatHTML && output == "" {
				output = filepath.Join(os.TempDir(), "wirelogic-circuit.html")
			}
			if output == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}

			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Graph written to %s\n", output)

			if open {
				if err := visualization.OpenBrowser(output); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, output)
				}
			}
			return nil
		},
	}

	cmd.Flags().String("format", "dot", "Output format: dot, json, or html")
	cmd.Flags().StringP("output", "o", "", "Output file path (html defaults to a temp file)")
	cmd.Flags().Int("steps", 1, "Steps to simulate before rendering")
	cmd.Flags().Bool("open", false, "Open the written file in a browser")

	return cmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <file>",
		Short: "Run a circuit live in the browser",
		Long: `Start a local HTTP server that steps the circuit on the wall clock and
serves an interactive page. Click a toggle switch or timed button to
interact with it. Press Ctrl-C to stop.

The page streams state over /ws; Prometheus metrics are served at /metrics.
With --watch the circuit is rebuilt whenever the file changes. A file that
fails to load is logged and the running circuit is kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			open, _ := cmd.Flags().GetBool("open")
			watch, _ := cmd.Flags().GetBool("watch")

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
			sim := newSimulator(c, cfg, logger, nil, simulation.WithTrace(trace))
			srv := visualization.NewServer(sim, cfg.Simulation.StepInterval)

			srvCtx, srvCancel := context.WithCancel(cmd.Context())
			defer srvCancel()

			sigCh := make(chan os.Signal, 1)
			notifySignals(sigCh)
			go func() {
				select {
				case <-sigCh:
					srvCancel()
				case <-srvCtx.Done():
				}
			}()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe(srvCtx, addr) }()

			// Wait for server to start
			deadline := time.Now().Add(3 * time.Second)
			for time.Now().Before(deadline) && srv.Addr() == "" {
				select {
				case err := <-errCh:
					if err != nil {
						return fmt.Errorf("server error: %w", err)
					}
					return nil
				case <-time.After(10 * time.Millisecond):
				}
			}
			if srv.Addr() == "" {
				return fmt.Errorf("server failed to start")
			}

			url := "http://" + srv.Addr()
			fmt.Fprintf(cmd.OutOrStdout(), "Circuit server running at %s\n", url)
			fmt.Fprintf(cmd.OutOrStdout(), "Press Ctrl-C to stop.\n")
			logger.Info("serving circuit", "file", args[0], "addr", srv.Addr(), "parts", len(c.Parts()))

			if watch {
				fw, err := visualization.NewFileWatcher(args[0], visualization.DefaultDebounce,
					reloadCircuit(srv, args[0], cfg, logger, trace))
				if err != nil {
					srvCancel()
					<-errCh
					return err
				}
				go func() {
					if err := fw.Run(srvCtx); err != nil {
						logger.Warn("file watcher stopped", "error", err)
					}
				}()
				fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for changes.\n", args[0])
			}

			if open {
				if err := visualization.OpenBrowser(url); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, url)
				}
			}

			if err := <-errCh; err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().String("addr", "localhost:0", "Listen address")
	cmd.Flags().Bool("open", false, "Open the page in a browser")
	cmd.Flags().Bool("watch", false, "Reload the circuit when the file changes")

	return cmd
}

// reloadCircuit returns a callback that rebuilds the circuit at path and
// swaps it into srv. The simulation restarts from step zero.
func reloadCircuit(srv *visualization.Server, path string, cfg *config.Config, logger *slog.Logger, trace *logging.TraceLogger) func() {
	return func() {
		_, c, err := loadCircuit(path, cfg)
		srv.Metrics().ObserveReload(err)
		if err != nil {
			logger.Warn("reload failed, keeping the running circuit", "file", path, "error", err)
			return
		}
		srv.Replace(newSimulator(c, cfg, logger, nil, simulation.WithTrace(trace)))
		logger.Info("circuit reloaded", "file", path, "parts", len(c.Parts()))
	}
}
