package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nvandessel/wirelogic/internal/sanitize"
	"github.com/nvandessel/wirelogic/internal/topology"
	"github.com/spf13/cobra"
)

func newSaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save <file>",
		Short: "Store a topology file in the circuit database",
		Long: `Validate a topology file and store it under a name, replacing any circuit
already stored with that name. The name defaults to the file name without
its extension. Names keep only letters, digits, '-', '_' and '.'; spaces
become '-'.

Examples:
  wirelogic save latch.yaml
  wirelogic save ./circuits/v2.json --name latch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				base := filepath.Base(args[0])
				name = strings.TrimSuffix(base, filepath.Ext(base))
			}
			name = sanitize.CircuitName(name)
			if name == "" {
				return fmt.Errorf("circuit name is empty after removing unsupported characters; pass --name")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			doc, err := topology.LoadFile(args[0])
			if err != nil {
				return err
			}

			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			rec, err := s.Save(cmd.Context(), name, doc)
			if err != nil {
				return err
			}
			newLogger(cmd, cfg).Debug("circuit saved", "name", rec.Name, "id", rec.ID, "db", s.Path())

			if jsonOut {
				rec.Document = nil
				return writeJSON(cmd.OutOrStdout(), rec)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved %q (%d parts, %d wires)\n", rec.Name, rec.Parts, rec.Wires)
			return nil
		},
	}

	cmd.Flags().String("name", "", "Name to store the circuit under (default: file name)")

	return cmd
}

func newLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <name>",
		Short: "Export a stored circuit as a topology file",
		Long: `Export a stored circuit. Without --output the document is printed as YAML,
or JSON with --json. The output file format follows its extension.

Examples:
  wirelogic load latch
  wirelogic load latch -o latch.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			output, _ := cmd.Flags().GetString("output")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			rec, err := s.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if output != "" {
				if err := topology.SaveFile(output, rec.Document); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Circuit %q written to %s\n", rec.Name, output)
				return nil
			}

			format := topology.FormatYAML
			if jsonOut {
				format = topology.FormatJSON
			}
			data, err := topology.Marshal(rec.Document, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringP("output", "o", "", "Write the document to this file (.yaml, .yml or .json)")

	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored circuits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			records, err := s.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list circuits: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"circuits": records,
					"count":    len(records),
				})
			}

			w := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(w, "No circuits stored. Save one with 'wirelogic save <file>'.")
				return nil
			}
			fmt.Fprintf(w, "Stored circuits (%d):\n\n", len(records))
			for _, rec := range records {
				fmt.Fprintf(w, "  %-24s %3d parts %3d wires  updated %s\n",
					rec.Name, rec.Parts, rec.Wires, rec.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored circuit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]string{
					"status": "deleted",
					"name":   args[0],
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %q\n", args[0])
			return nil
		},
	}
}
