package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sencha/orion-core/internal/archive"
	"github.com/sencha/orion-core/internal/config"
	"github.com/sencha/orion-core/internal/harness"
	"github.com/sencha/orion-core/internal/observability"
	"github.com/sencha/orion-core/internal/scenario"
	"github.com/sencha/orion-core/internal/service"
)

// runFactory builds the live stack. Tests swap it for a factory that never
// launches a browser.
var runFactory = service.NewComponentFactory()

// newRunCmd creates the `run` command: play scenario files against a page.
func newRunCmd(st *rootState) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [scenario files...]",
		Short: "Plays scenario files against a live browser page",
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Flag overrides ride viper's precedence instead of ad hoc
			// merging: a changed flag beats env beats config file.
			for key, flag := range map[string]string{
				"report.junit_path": "output",
				"browser.headless":  "headless",
				"archive.enabled":   "archive",
				"player.timeout":    "timeout",
			} {
				if err := st.v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			// Re-resolve the config now that run flags are bound.
			cfg, err := config.NewConfigFromViper(st.v)
			if err != nil {
				return err
			}
			if format, _ := cmd.Flags().GetString("format"); format != "" {
				cfg.ReportCfg.Formats = strings.Split(format, ",")
			}
			url, _ := cmd.Flags().GetString("url")
			cfg.SetRunConfig(config.RunConfig{
				URL:      url,
				Scenario: args[0],
				Output:   cfg.Report().JUnitPath,
			})

			// Parse every scenario before anything expensive starts.
			scenarios := make([]*scenario.Scenario, 0, len(args))
			for _, path := range args {
				s, err := scenario.Load(path)
				if err != nil {
					return err
				}
				scenarios = append(scenarios, s)
			}

			rep, flush, err := service.InitializeReporter(cfg, logger)
			if err != nil {
				return err
			}

			components, err := runFactory.Create(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize run stack: %w", err)
			}
			defer components.Shutdown()

			if err := service.Navigate(ctx, components, cfg, url); err != nil {
				return err
			}
			logger.Info("page ready", zap.String("url", url))

			// Archive saves overlap the next scenario's play time.
			g, gctx := errgroup.WithContext(ctx)
			var failed int
			for i, s := range scenarios {
				components.Transcript.Reset()

				opts := harness.Options{
					SuiteName:  filepath.Base(args[i]),
					TrapPanics: cfg.Player().TrapExceptions,
					Transcript: components.Transcript,
				}
				root, err := scenario.Play(ctx, components.Driver, rep, s, opts, logger)
				if err != nil {
					return err
				}
				if !root.Passed() {
					failed++
				}

				if components.Archive != nil {
					run := &archive.Run{
						Scenario:   args[i],
						Host:       "cdp",
						Suite:      root,
						Transcript: components.Transcript.Entries(),
					}
					g.Go(func() error {
						id, err := components.Archive.SaveRun(gctx, run)
						if err != nil {
							return fmt.Errorf("archive %s: %w", run.Scenario, err)
						}
						logger.Info("run archived",
							zap.String("runId", id),
							zap.String("scenario", run.Scenario))
						return nil
					})
				}
			}
			if err := g.Wait(); err != nil {
				return err
			}
			if err := flush(); err != nil {
				return err
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d scenarios failed", failed, len(scenarios))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "All %d scenarios passed.\n", len(scenarios))
			return nil
		},
	}

	runCmd.Flags().String("url", "", "Page to open before the scenarios play")
	runCmd.Flags().StringP("output", "o", "", "JUnit report path (overrides config)")
	runCmd.Flags().StringP("format", "f", "", "Comma separated report formats: log, junit (overrides config)")
	runCmd.Flags().Bool("headless", true, "Run the browser headless (overrides config)")
	runCmd.Flags().Bool("archive", false, "Persist results and transcripts to the run archive (overrides config)")
	runCmd.Flags().Duration("timeout", 0, "Per-playable readiness budget (overrides config)")
	_ = runCmd.MarkFlagRequired("url")

	return runCmd
}
