package app

import (
	"context"
	"time"

	"adaptive-quiz-service/internal/domain"
)

// QuizStore is the system of record for quiz definitions.
type QuizStore interface {
	LoadQuiz(ctx context.Context, slug string) (domain.Quiz, error)
	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	SetQuizPublic(ctx context.Context, slug string, public bool) error
}

// QuizRepository is the cached read path over a QuizStore (in-memory, Redis, etc).
type QuizRepository interface {
	GetQuiz(ctx context.Context, slug string) (domain.Quiz, error)
	Invalidate(ctx context.Context, slug string) error
}

// AttemptRepository stores attempts. Implementations enforce at most one
// in-progress attempt per (user, quiz) and serialize writes per attempt.
type AttemptRepository interface {
	// CreateInProgress inserts attempt unless the user already has an
	// in-progress attempt for the quiz, in which case that one is returned
	// with created=false.
	CreateInProgress(ctx context.Context, attempt domain.Attempt) (stored domain.Attempt, created bool, err error)
	GetAttempt(ctx context.Context, slug string) (domain.Attempt, error)
	FindInProgress(ctx context.Context, userID, quizSlug string) (domain.Attempt, bool, error)
	// UpsertAnswer replaces or appends the answer for ans.QuestionIndex and
	// bumps UpdatedAt. Fails with ErrAttemptNotInProgress once terminal.
	UpsertAnswer(ctx context.Context, slug string, ans domain.SubmittedAnswer) (domain.Attempt, error)
	// Transition moves the attempt from one status to another only if it is
	// currently in from. On a miss it returns ErrAttemptNotInProgress.
	Transition(ctx context.Context, slug string, from, to domain.AttemptStatus, at time.Time) (domain.Attempt, error)
}

// ResultRepository stores results, at most one per attempt.
type ResultRepository interface {
	// CreateResult inserts result unless one already exists for its attempt;
	// either way the stored result is returned.
	CreateResult(ctx context.Context, result domain.Result) (stored domain.Result, created bool, err error)
	GetResult(ctx context.Context, slug string) (domain.Result, error)
	FindByAttempt(ctx context.Context, attemptSlug string) (domain.Result, bool, error)
	SetResultPublic(ctx context.Context, slug string, public bool) error
}
