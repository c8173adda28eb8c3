// ABOUTME: Root cobra command and shared global flags
// ABOUTME: Loads configuration and the logger before any subcommand runs
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/harperreed/warmer/config"
	"github.com/harperreed/warmer/logging"
)

// RootOptions holds global flags and what PersistentPreRunE builds from them.
type RootOptions struct {
	DBPath   string
	LogLevel string
	EnvFile  string

	Version string
	Config  *config.Config
	Logger  zerolog.Logger
}

// NewRootCommand creates the root command for the warmer CLI.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{Version: version}

	cmd := &cobra.Command{
		Use:           "warmer",
		Short:         "warmer - outreach cadence scheduler",
		Long:          "Decides which tracked clients are due for outreach, generates the email and sends it.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.EnvFile)
			if err != nil {
				return err
			}
			if opts.DBPath != "" {
				cfg.DBPath = opts.DBPath
			}
			if opts.LogLevel != "" {
				cfg.LogLevel = opts.LogLevel
			}
			opts.Config = cfg
			opts.Logger = logging.New(logging.Options{
				Level:  cfg.LogLevel,
				Format: logging.Format(strings.ToLower(cfg.LogFormat)),
				Out:    os.Stderr,
			})
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DBPath, "db-path", "", fmt.Sprintf("database path (default %s)", config.DefaultDBPath()))
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "load environment from this file (default ./.env when present)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewPreviewCommand(opts))
	cmd.AddCommand(NewClientsCommand(opts))
	cmd.AddCommand(NewCompanyCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewCadencesCommand(opts))
	cmd.AddCommand(NewMCPCommand(opts))
	cmd.AddCommand(NewAuthCommand(opts))

	return cmd
}
