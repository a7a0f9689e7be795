package cmd

import (
	"fmt"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/sencha/orion-core/internal/observability"
	"github.com/sencha/orion-core/internal/service"
)

// newTranscriptCmd creates the `transcript` command: dump an archived run's
// play transcript as JSON.
func newTranscriptCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "transcript <run-id>",
		Short: "Prints an archived run's play transcript as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			arc, pool, err := service.InitializeArchive(ctx, st.cfg, observability.GetLogger())
			if err != nil {
				return err
			}
			defer pool.Close()

			entries, err := arc.LoadTranscript(ctx, args[0])
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return fmt.Errorf("encode transcript: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
