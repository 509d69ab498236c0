package main

import (
	"github.com/spf13/cobra"
)

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbService, err := a.openDatabase()
			if err != nil {
				return err
			}
			defer dbService.Close()

			if err := dbService.Migrate(); err != nil {
				return err
			}
			a.log.Info("database migration complete")
			return nil
		},
	}
}
