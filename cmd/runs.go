package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sencha/orion-core/internal/observability"
	"github.com/sencha/orion-core/internal/service"
)

// newRunsCmd creates the `runs` command: list recent archived runs.
func newRunsCmd(st *rootState) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Lists recent archived runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			arc, pool, err := service.InitializeArchive(ctx, st.cfg, observability.GetLogger())
			if err != nil {
				return err
			}
			defer pool.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			runs, err := arc.RecentRuns(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No archived runs.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tSCENARIO\tHOST\tSTARTED\tRESULT\tSPECS")
			for _, r := range runs {
				result := "passed"
				if !r.Passed {
					result = fmt.Sprintf("FAILED (%d)", r.Failed)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
					r.ID, r.Scenario, r.Host,
					r.Started.Local().Format(time.RFC3339),
					result, r.Total)
			}
			return w.Flush()
		},
	}

	runsCmd.Flags().IntP("limit", "n", 20, "How many runs to list")
	return runsCmd
}
