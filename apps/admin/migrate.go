package main

import (
	"errors"

	"github.com/trezcool/studio/storage/database"
)

var (
	migrateFunc = database.Migrate // mockable

	errNoSQLDatabase = errors.New("migrate: the storage driver is not postgres")
)

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoSQLDatabase
	}
	return migrateFunc(cli.db, args[0], args[1:]...)
}
