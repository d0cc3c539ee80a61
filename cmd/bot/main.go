// Package main contains the entrypoint for the helpdesk bot service.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "bot",
		Short:        "Multi-bot Telegram helpdesk",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to configuration file (default ./config.yaml)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newWebhooksCmd())

	return cmd
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
