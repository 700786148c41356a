package main

import (
	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	"github.com/trezcool/schooldesk/storage/database/postgres"
)

var gooseRunFunc = goose.RunFS // mockable

var errNoSQL = errors.New("migrations only apply to the postgres engine")

func (cli *commandLine) migrate(args []string) error {
	if cli.store == nil || cli.store.SQL == nil {
		return errNoSQL
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.store.SQL.DB, pgdb.MigrationsFS, pgdb.MigrationsDir, arguments...)
}
