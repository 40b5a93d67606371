package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/errtrail/internal/patterns"
)

// patternInfo is the listing form of a rule; matchers are not serializable.
type patternInfo struct {
	Name        string `json:"name"`
	Priority    int    `json:"priority"`
	Description string `json:"description"`
	Causes      int    `json:"causes"`
	Fixes       int    `json:"fixes"`
}

func newPatternsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "List the built-in failure patterns",
		Long: `List the built-in failure patterns in library order.

Examples:
  errtrail patterns
  errtrail patterns --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rules := patterns.Default().Rules()
			infos := make([]patternInfo, 0, len(rules))
			for _, r := range rules {
				infos = append(infos, patternInfo{
					Name:        r.Name,
					Priority:    r.Priority,
					Description: r.Description,
					Causes:      len(r.Causes),
					Fixes:       len(r.Fixes),
				})
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tPRIORITY\tDESCRIPTION")
			for _, p := range infos {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", p.Name, p.Priority, p.Description)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}
