package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"adaptive-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AttemptStore implements app.AttemptRepository. The partial unique index
// attempts_one_in_progress guards the single in-progress attempt per user and
// quiz; answer writes lock the attempt row.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

const attemptColumns = `slug, quiz_slug, user_id, status, started_at, updated_at, completed_at`

func (s *AttemptStore) CreateInProgress(ctx context.Context, attempt domain.Attempt) (domain.Attempt, bool, error) {
	// A conflicting row may finish between the insert and the lookup, so retry once.
	for range 2 {
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO attempts (`+attemptColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, NULL)
			 ON CONFLICT (user_id, quiz_slug) WHERE status = 'in-progress' DO NOTHING`,
			attempt.Slug, attempt.QuizSlug, attempt.UserID, string(domain.AttemptInProgress),
			attempt.StartedAt, attempt.UpdatedAt)
		if err != nil {
			return domain.Attempt{}, false, fmt.Errorf("insert attempt: %w", err)
		}
		if tag.RowsAffected() == 1 {
			stored, err := s.GetAttempt(ctx, attempt.Slug)
			return stored, err == nil, err
		}
		existing, ok, err := s.FindInProgress(ctx, attempt.UserID, attempt.QuizSlug)
		if err != nil {
			return domain.Attempt{}, false, err
		}
		if ok {
			return existing, false, nil
		}
	}
	return domain.Attempt{}, false, fmt.Errorf("insert attempt: conflicting attempt for %s/%s kept changing", attempt.UserID, attempt.QuizSlug)
}

func (s *AttemptStore) GetAttempt(ctx context.Context, slug string) (domain.Attempt, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE slug=$1`, slug)
	attempt, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("load attempt: %w", err)
	}
	if attempt.Answers, err = s.loadAnswers(ctx, slug); err != nil {
		return domain.Attempt{}, err
	}
	return attempt, nil
}

func (s *AttemptStore) FindInProgress(ctx context.Context, userID, quizSlug string) (domain.Attempt, bool, error) {
	var slug string
	err := s.pool.QueryRow(ctx,
		`SELECT slug FROM attempts WHERE user_id=$1 AND quiz_slug=$2 AND status='in-progress'`,
		userID, quizSlug).Scan(&slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, false, nil
	}
	if err != nil {
		return domain.Attempt{}, false, fmt.Errorf("find in-progress attempt: %w", err)
	}
	attempt, err := s.GetAttempt(ctx, slug)
	if err != nil {
		return domain.Attempt{}, false, err
	}
	return attempt, true, nil
}

func (s *AttemptStore) UpsertAnswer(ctx context.Context, slug string, ans domain.SubmittedAnswer) (domain.Attempt, error) {
	selected, err := json.Marshal(ans.Selected)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("marshal selection: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("begin answer tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM attempts WHERE slug=$1 FOR UPDATE`, slug).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("lock attempt: %w", err)
	}
	if domain.AttemptStatus(status) != domain.AttemptInProgress {
		return domain.Attempt{}, domain.ErrAttemptNotInProgress
	}

	// seq is left alone on conflict so answers keep their first-insertion order.
	if _, err := tx.Exec(ctx,
		`INSERT INTO attempt_answers (attempt_slug, question_index, selected, answered_at)
		 VALUES ($1, $2, $3::jsonb, $4)
		 ON CONFLICT (attempt_slug, question_index)
		 DO UPDATE SET selected = EXCLUDED.selected, answered_at = EXCLUDED.answered_at`,
		slug, ans.QuestionIndex, string(selected), ans.AnsweredAt); err != nil {
		return domain.Attempt{}, fmt.Errorf("upsert answer: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE attempts SET updated_at=$2 WHERE slug=$1`, slug, ans.AnsweredAt); err != nil {
		return domain.Attempt{}, fmt.Errorf("touch attempt: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Attempt{}, fmt.Errorf("commit answer: %w", err)
	}
	return s.GetAttempt(ctx, slug)
}

func (s *AttemptStore) Transition(ctx context.Context, slug string, from, to domain.AttemptStatus, at time.Time) (domain.Attempt, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE attempts
		 SET status=$3::text, updated_at=$4::timestamptz,
		     completed_at = CASE WHEN $3::text = 'completed' THEN $4::timestamptz ELSE completed_at END
		 WHERE slug=$1 AND status=$2`,
		slug, string(from), string(to), at)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("transition attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing attempt from a lost race.
		if _, err := s.GetAttempt(ctx, slug); err != nil {
			return domain.Attempt{}, err
		}
		return domain.Attempt{}, domain.ErrAttemptNotInProgress
	}
	return s.GetAttempt(ctx, slug)
}

func (s *AttemptStore) loadAnswers(ctx context.Context, slug string) ([]domain.SubmittedAnswer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT question_index, selected, answered_at FROM attempt_answers
		 WHERE attempt_slug=$1 ORDER BY seq`, slug)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	defer rows.Close()

	answers := []domain.SubmittedAnswer{}
	for rows.Next() {
		var (
			ans domain.SubmittedAnswer
			raw []byte
		)
		if err := rows.Scan(&ans.QuestionIndex, &raw, &ans.AnsweredAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		if err := json.Unmarshal(raw, &ans.Selected); err != nil {
			return nil, fmt.Errorf("unmarshal selection: %w", err)
		}
		answers = append(answers, ans)
	}
	return answers, rows.Err()
}

func scanAttempt(row pgx.Row) (domain.Attempt, error) {
	var (
		a      domain.Attempt
		status string
	)
	if err := row.Scan(&a.Slug, &a.QuizSlug, &a.UserID, &status, &a.StartedAt, &a.UpdatedAt, &a.CompletedAt); err != nil {
		return domain.Attempt{}, err
	}
	a.Status = domain.AttemptStatus(status)
	return a, nil
}
