package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sencha/orion-core/internal/scenario"
)

// newCheckCmd creates the `check` command: offline scenario validation.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [scenario files...]",
		Short: "Validates scenario files without opening a browser",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed int
			for _, path := range args {
				s, err := scenario.Load(path)
				if err != nil {
					failed++
					fmt.Fprintln(cmd.ErrOrStderr(), err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%q, %d steps)\n", path, s.Name, len(s.Steps))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scenario files invalid", failed, len(args))
			}
			return nil
		},
	}
}
