package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"adaptive-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ResultStore implements app.ResultRepository; results.attempt_slug is unique.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) CreateResult(ctx context.Context, result domain.Result) (domain.Result, bool, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return domain.Result{}, false, fmt.Errorf("marshal result: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO results (slug, attempt_slug, user_id, quiz_slug, is_public, data, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
		 ON CONFLICT (attempt_slug) DO NOTHING`,
		result.Slug, result.AttemptSlug, result.UserID, result.QuizSlug, result.IsPublic, string(data), result.CompletedAt)
	if err != nil {
		return domain.Result{}, false, fmt.Errorf("insert result: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return result, true, nil
	}
	existing, ok, err := s.FindByAttempt(ctx, result.AttemptSlug)
	if err != nil {
		return domain.Result{}, false, err
	}
	if !ok {
		return domain.Result{}, false, fmt.Errorf("insert result: conflicting row for attempt %s vanished", result.AttemptSlug)
	}
	return existing, false, nil
}

func (s *ResultStore) GetResult(ctx context.Context, slug string) (domain.Result, error) {
	result, err := s.scanOne(ctx, `SELECT data, is_public FROM results WHERE slug=$1`, slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Result{}, domain.ErrResultNotFound
	}
	return result, err
}

func (s *ResultStore) FindByAttempt(ctx context.Context, attemptSlug string) (domain.Result, bool, error) {
	result, err := s.scanOne(ctx, `SELECT data, is_public FROM results WHERE attempt_slug=$1`, attemptSlug)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Result{}, false, nil
	}
	if err != nil {
		return domain.Result{}, false, err
	}
	return result, true, nil
}

func (s *ResultStore) SetResultPublic(ctx context.Context, slug string, public bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE results SET is_public=$2 WHERE slug=$1`, slug, public)
	if err != nil {
		return fmt.Errorf("update result visibility: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrResultNotFound
	}
	return nil
}

func (s *ResultStore) scanOne(ctx context.Context, query string, arg string) (domain.Result, error) {
	var (
		raw    []byte
		public bool
	)
	if err := s.pool.QueryRow(ctx, query, arg).Scan(&raw, &public); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Result{}, err
		}
		return domain.Result{}, fmt.Errorf("load result: %w", err)
	}
	var result domain.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.Result{}, fmt.Errorf("unmarshal result: %w", err)
	}
	result.IsPublic = public
	return result, nil
}
