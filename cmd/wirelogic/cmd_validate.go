package main

import (
	"errors"
	"fmt"

	"github.com/nvandessel/wirelogic/internal/topology"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check that a topology file describes a buildable circuit",
		Long: `Check that a topology file describes a buildable circuit.

This command checks for:
  - Unknown part categories
  - Wire endpoints that reference missing parts
  - Socket roles the referenced part does not have
  - Energized flags on parts without sequential state
  - Unsupported document versions

Examples:
  wirelogic validate latch.yaml
  wirelogic validate latch.json --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			doc, err := topology.LoadFile(args[0])
			if err != nil {
				return err
			}

			verr := topology.Validate(doc)
			if jsonOut {
				result := map[string]interface{}{
					"file":  args[0],
					"valid": verr == nil,
					"parts": len(doc.Parts),
					"wires": len(doc.Wires),
				}
				var topoErr *topology.TopologyError
				if errors.As(verr, &topoErr) {
					result["field"] = topoErr.Field
					result["index"] = topoErr.Index
					result["reason"] = topoErr.Reason
				}
				if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
				return verr
			}

			if verr != nil {
				return verr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid (%d parts, %d wires)\n", args[0], len(doc.Parts), len(doc.Wires))
			return nil
		},
	}
}
