package main

import (
	"context"
	"database/sql"

	"github.com/spf13/cobra"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/storage/database"
)

var (
	gooseRunFunc = database.Migrate // mockable
	openDBFunc   = openDB           // mockable
)

func openDB(ctx context.Context, conf *core.Config) (*sql.DB, func(), error) {
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, nil, err
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, nil, err
	}
	return db.DB, func() { _ = db.Close() }, nil
}

func (cli *commandLine) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run database migrations",
		Long: `Run a migration command against the configured database:
  up, up-by-one, up-to VERSION, down, down-to VERSION, redo, reset, status, version, fix`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := openDBFunc(cmd.Context(), cli.conf)
			if err != nil {
				return err
			}
			defer closeDB()
			return gooseRunFunc(db, args[0], args[1:]...)
		},
	}
}
