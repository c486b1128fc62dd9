package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/trezcool/studentdir/core"
	"github.com/trezcool/studentdir/storage/database"
)

var (
	gooseRunFunc = database.RunMigrations // mockable

	errNotPostgres = errors.New("migrations only apply to the postgres storage engine")
)

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "migrate COMMAND [ARGS]",
		Short:              "Run a goose migration command (up, down, status, ...)",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cli.usage(cmd, args)
			}
			return cli.migrate(args)
		},
	}
}

func (cli *commandLine) migrate(args []string) error {
	if cli.conf.StorageEngine != core.EnginePostgres {
		return errNotPostgres
	}
	return gooseRunFunc(args[0], cli.db, args[1:]...)
}
