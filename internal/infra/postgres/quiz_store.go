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

// QuizStore keeps quiz definitions as JSONB next to the columns that can change.
type QuizStore struct {
	pool *pgxpool.Pool
}

func NewQuizStore(pool *pgxpool.Pool) *QuizStore {
	return &QuizStore{pool: pool}
}

func (s *QuizStore) LoadQuiz(ctx context.Context, slug string) (domain.Quiz, error) {
	var (
		raw    []byte
		public bool
	)
	err := s.pool.QueryRow(ctx, `SELECT data, is_public FROM quizzes WHERE slug=$1`, slug).Scan(&raw, &public)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	quiz.IsPublic = public
	return quiz, nil
}

func (s *QuizStore) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quizzes (slug, owner_id, is_public, is_adaptive, data, created_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6)`,
		quiz.Slug, quiz.OwnerID, quiz.IsPublic, quiz.IsAdaptive, string(data), quiz.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

// SetQuizPublic updates the column only; LoadQuiz overlays it onto the stored document.
func (s *QuizStore) SetQuizPublic(ctx context.Context, slug string, public bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE quizzes SET is_public=$2 WHERE slug=$1`, slug, public)
	if err != nil {
		return fmt.Errorf("update quiz visibility: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}
