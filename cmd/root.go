// Package cmd wires the orion command tree: run plays scenario files against
// a live browser, check validates them offline, runs and transcript read the
// archive back.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sencha/orion-core/internal/config"
	"github.com/sencha/orion-core/internal/observability"
)

// rootState carries what the persistent pre-run resolves for subcommands.
type rootState struct {
	v   *viper.Viper
	cfg *config.Config
}

// NewRootCommand builds a fresh command tree. Each call returns a new
// instance so flag state never leaks between executions.
func NewRootCommand() *cobra.Command {
	st := &rootState{}
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "orion",
		Short: "Orion plays UI test scenarios through a queued event player.",
		Long: `Orion drives a browser page the way a test author would: scripted steps
queue up as playables, each one waits for its target to be ready, and the
outcome lands in reporters and an optional run archive.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v, err := initializeViper(cfgFile)
			if err != nil {
				return err
			}
			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				// Fall back to a bare console logger so the error is visible.
				observability.InitializeLogger(config.LoggerConfig{
					Level: "info", Format: "console", ServiceName: "orion",
				})
				return err
			}
			st.v = v
			st.cfg = cfg

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("starting orion", zap.String("version", Version))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default is ./config.yaml, then ~/.orion/config.yaml)")
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}` + "\n")

	rootCmd.AddCommand(newRunCmd(st))
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newRunsCmd(st))
	rootCmd.AddCommand(newTranscriptCmd(st))

	return rootCmd
}

// Execute runs the command tree under a signal-aware context.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("command failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return err
	}
	return nil
}

// initializeViper loads defaults, the config file and ORION_* environment
// overrides into a fresh viper instance.
func initializeViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".orion"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("ORION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine; defaults and env carry the run.
	}
	return v, nil
}
