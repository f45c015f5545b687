// Package migrations holds the bun migrations for the Postgres schema. Each
// file registers one migration named after the file.
package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

// execAll runs statements one by one; the pg driver rejects multi-statement queries with arguments.
func execAll(ctx context.Context, db *bun.DB, statements []string) error {
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
