package main

import (
	"github.com/spf13/cobra"
)

func configCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML, secrets redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cfg.Dump(cmd.OutOrStdout())
		},
	})
	return cmd
}
