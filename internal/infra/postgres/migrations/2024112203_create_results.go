package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			return execAll(ctx, db, []string{
				`CREATE TABLE IF NOT EXISTS results (
					slug         TEXT PRIMARY KEY,
					attempt_slug TEXT NOT NULL UNIQUE REFERENCES attempts (slug),
					user_id      TEXT NOT NULL,
					quiz_slug    TEXT NOT NULL,
					is_public    BOOLEAN NOT NULL DEFAULT FALSE,
					data         JSONB NOT NULL,
					created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
				)`,
				`CREATE INDEX IF NOT EXISTS results_user_idx ON results (user_id)`,
			})
		},
		func(ctx context.Context, db *bun.DB) error {
			return execAll(ctx, db, []string{`DROP TABLE IF EXISTS results`})
		},
	)
}
