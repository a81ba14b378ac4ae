package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"zenbank/internal/backend"
	"zenbank/internal/storage"
)

func newMigrateCmd(a *app) *cobra.Command {
	var statusOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQLite schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if backend.BackendType(a.cfg.DataBackend) != backend.SQLiteBackend {
				return errors.New("migrate only applies to the sqlite backend")
			}
			path := a.cfg.SQLiteDBPath
			if !statusOnly {
				if err := storage.RunMigrations(path); err != nil {
					return err
				}
			}
			version, dirty, err := storage.MigrationVersion(path)
			if err != nil {
				return err
			}
			state := styles.ok.Render("clean")
			if dirty {
				state = styles.warn.Render("dirty")
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s schema version %d (%s)\n", path, version, state)
			return nil
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "report the schema version without migrating")
	return cmd
}
