// Package cli implements the pranara command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/config"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths    config.Paths
	log      *logging.Logger
	closeLog func() error
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pranara",
		Short: "Pranara, a Thai elder-care companion",
		Long: "Pranara answers caregivers of older adults in Thai or English. Every message is\n" +
			"scrubbed of personal data and screened for emergencies before any model sees it.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}

			// A broken config file must not stop "config set" from fixing it,
			// so logging falls back to defaults here.
			opts := logging.Options{Level: "info"}
			if cfg, err := config.Load(paths.Config); err == nil {
				opts = logging.Options{Level: cfg.Logging.Level, Style: cfg.Logging.Style, File: cfg.Logging.File}
			}
			if logLevel != "" {
				opts.Level = logLevel
			}
			log, closeLog, err = logging.Open(opts)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if closeLog != nil {
				return closeLog()
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.pranara/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newRecordsCmd())
	cmd.AddCommand(newProfileCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// loadConfig loads the config file, applies flag overrides and validates
// the result.
func loadConfig(overrides ...func(*config.Config)) (config.Config, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return cfg, err
	}
	for _, o := range overrides {
		o(&cfg)
	}
	if issues := config.Validate(&cfg); len(issues) > 0 {
		for _, issue := range issues {
			log.Error().Str("path", issue.Path).Msg(issue.Message)
		}
		return cfg, &config.ConfigError{Message: fmt.Sprintf("validation failed with %d issue(s)", len(issues))}
	}
	return cfg, nil
}
