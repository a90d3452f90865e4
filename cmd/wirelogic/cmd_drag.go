package main

import (
	"fmt"

	"github.com/nvandessel/wirelogic/internal/connectivity"
	"github.com/spf13/cobra"
)

func newDragCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drag <file>",
		Short: "Show how wire joints follow a dragged part",
		Long: `Compute the drag-follow weight of every joint reachable from the dragged
parts through joints. A weight of 1 moves with the drag, 0 stays put.

Policies:
  distance  weight = anchor distance / (source distance + anchor distance)
  binary    joints in clusters touching any other part stay put, others follow

Examples:
  wirelogic drag latch.yaml --part 3
  wirelogic drag latch.yaml --part 3 --part 4 --policy binary`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			indices, _ := cmd.Flags().GetIntSlice("part")
			policyName, _ := cmd.Flags().GetString("policy")

			if len(indices) == 0 {
				return fmt.Errorf("--part is required")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if policyName == "" {
				policyName = cfg.Drag.Policy
			}
			policy, err := connectivity.ParsePolicy(policyName)
			if err != nil {
				return err
			}

			_, c, err := loadCircuit(args[0], cfg)
			if err != nil {
				return err
			}
			dragged, err := partsAt(c, indices)
			if err != nil {
				return err
			}

			weights := connectivity.NewAnalyzer(policy).WeightsForDrag(dragged)

			if jsonOut {
				out := make([]map[string]interface{}, 0, len(weights))
				for _, w := range weights {
					out = append(out, map[string]interface{}{
						"joint":           int(w.Joint.ID),
						"weight":          w.Weight,
						"source_distance": w.SourceDistance,
						"anchor_distance": w.AnchorDistance,
					})
				}
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"policy":  policy.String(),
					"dragged": indices,
					"weights": out,
				})
			}

			w := cmd.OutOrStdout()
			if len(weights) == 0 {
				fmt.Fprintln(w, "No joints follow the dragged parts.")
				return nil
			}
			fmt.Fprintf(w, "Drag weights (%s policy):\n", policy)
			for _, jw := range weights {
				anchor := "none"
				if jw.AnchorDistance >= 0 {
					anchor = fmt.Sprintf("%d", jw.AnchorDistance)
				}
				fmt.Fprintf(w, "  joint #%-3d weight %.3f  (source %d, anchor %s)\n", jw.Joint.ID, jw.Weight, jw.SourceDistance, anchor)
			}
			return nil
		},
	}

	cmd.Flags().IntSlice("part", nil, "Index of a dragged part (repeatable or comma-separated)")
	cmd.Flags().String("policy", "", "Weighting policy: distance or binary (default from config)")

	return cmd
}

func newEnclosedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enclosed <file>",
		Short: "List joints that should move with a selection",
		Long: `List the unselected joints whose joint cluster touches the selection and
no unselected part, so they travel with a group move.

Examples:
  wirelogic enclosed latch.yaml --select 0,3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			selectStr, _ := cmd.Flags().GetString("select")

			indices, err := parseIndices(selectStr)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			_, c, err := loadCircuit(args[0], cfg)
			if err != nil {
				return err
			}
			selected, err := partsAt(c, indices)
			if err != nil {
				return err
			}

			joints := connectivity.EnclosedJoints(c.Parts(), selected)
			ids := make([]int, 0, len(joints))
			for _, j := range joints {
				ids = append(ids, int(j.ID))
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"selected": indices,
					"joints":   ids,
					"count":    len(ids),
				})
			}

			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No enclosed joints.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Enclosed joints (%d): %v\n", len(ids), ids)
			return nil
		},
	}

	cmd.Flags().String("select", "", "Comma-separated indices of the selected parts")

	return cmd
}
