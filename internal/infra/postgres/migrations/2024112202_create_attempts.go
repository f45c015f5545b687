package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			return execAll(ctx, db, []string{
				`CREATE TABLE IF NOT EXISTS attempts (
					slug         TEXT PRIMARY KEY,
					quiz_slug    TEXT NOT NULL REFERENCES quizzes (slug),
					user_id      TEXT NOT NULL,
					status       TEXT NOT NULL,
					started_at   TIMESTAMPTZ NOT NULL,
					updated_at   TIMESTAMPTZ NOT NULL,
					completed_at TIMESTAMPTZ
				)`,
				// At most one in-progress attempt per user and quiz.
				`CREATE UNIQUE INDEX IF NOT EXISTS attempts_one_in_progress
					ON attempts (user_id, quiz_slug) WHERE status = 'in-progress'`,
				`CREATE TABLE IF NOT EXISTS attempt_answers (
					attempt_slug   TEXT NOT NULL REFERENCES attempts (slug) ON DELETE CASCADE,
					question_index INTEGER NOT NULL,
					seq            BIGSERIAL,
					selected       JSONB NOT NULL,
					answered_at    TIMESTAMPTZ NOT NULL,
					PRIMARY KEY (attempt_slug, question_index)
				)`,
			})
		},
		func(ctx context.Context, db *bun.DB) error {
			return execAll(ctx, db, []string{
				`DROP TABLE IF EXISTS attempt_answers`,
				`DROP TABLE IF EXISTS attempts`,
			})
		},
	)
}
