package cmd

import (
	"fmt"
	"os"

	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/cmd/officeauth/internal/appconfig"
	"github.com/spf13/cobra"
)

var cfg appconfig.AppConfig

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:   "officeauth",
		Short: "Authentication service for the registered office platform",
		Long: `officeauth resolves web sessions and mobile bearer tokens, enforces
per-IP rate limits and role checks, and serves the account API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = appconfig.Load(envFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file read before the environment (default .env)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newLoadtestCmd())

	return root
}

// Execute runs the root command
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
