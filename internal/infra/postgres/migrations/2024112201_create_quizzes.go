package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			return execAll(ctx, db, []string{
				`CREATE TABLE IF NOT EXISTS quizzes (
					slug        TEXT PRIMARY KEY,
					owner_id    TEXT NOT NULL,
					is_public   BOOLEAN NOT NULL DEFAULT FALSE,
					is_adaptive BOOLEAN NOT NULL DEFAULT FALSE,
					data        JSONB NOT NULL,
					created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
				)`,
				`CREATE INDEX IF NOT EXISTS quizzes_owner_idx ON quizzes (owner_id)`,
			})
		},
		func(ctx context.Context, db *bun.DB) error {
			return execAll(ctx, db, []string{`DROP TABLE IF EXISTS quizzes`})
		},
	)
}
