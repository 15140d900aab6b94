// Package cli implements ploxoractl, the operator command line for the panel.
package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ploxora/internal/app"
	"ploxora/internal/config"
)

var (
	configFile string
	verbose    bool
)

// RootCmd is the ploxoractl entry point
var RootCmd = &cobra.Command{
	Use:           "ploxoractl",
	Short:         "Operator tooling for the Ploxora panel",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !verbose {
			logrus.SetLevel(logrus.WarnLevel)
		}
	},
}

// Execute runs the command tree and exits non-zero on failure
func Execute() {
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "INI config file (environment variables still override)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at info level")

	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openApp loads configuration and builds the panel services against the same
// storage the server uses.
func openApp() (*app.App, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFromINI(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return app.New(cfg, logrus.WithField("app", "ploxoractl"))
}
