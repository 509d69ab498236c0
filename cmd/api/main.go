package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Tomlord1122/task-tracker/internal/config"
	"github.com/Tomlord1122/task-tracker/internal/database"
	"github.com/Tomlord1122/task-tracker/internal/logging"
)

var Version = "dev"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	cfg        *config.Config
	log        *logrus.Logger
}

func (a *app) load(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logging.New(cfg.Log)
	return nil
}

func (a *app) openDatabase() (database.Service, error) {
	return database.New(a.cfg.Database, a.log)
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:               "tasktracker",
		Short:             "Multi-user task tracker API",
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
		RunE:              a.runServe,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(serveCmd(a))
	root.AddCommand(migrateCmd(a))
	root.AddCommand(tokenCmd(a))
	root.AddCommand(userCmd(a))
	root.AddCommand(configCmd(a))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
