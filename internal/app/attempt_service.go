package app

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"adaptive-quiz-service/internal/domain"
	"adaptive-quiz-service/internal/scoring"
)

// AttemptService runs the attempt state machine: in-progress -> completed | abandoned.
type AttemptService struct {
	quizzes   QuizRepository
	attempts  AttemptRepository
	results   ResultRepository
	notifiers []Notifier
	now       func() time.Time

	// locks serializes answer, submit and abandon calls on one attempt.
	locks [64]sync.Mutex
}

func NewAttemptService(quizzes QuizRepository, attempts AttemptRepository, results ResultRepository, notifiers ...Notifier) *AttemptService {
	return NewAttemptServiceWithClock(quizzes, attempts, results, time.Now, notifiers...)
}

// NewAttemptServiceWithClock is NewAttemptService with the timestamp source supplied.
func NewAttemptServiceWithClock(quizzes QuizRepository, attempts AttemptRepository, results ResultRepository, now func() time.Time, notifiers ...Notifier) *AttemptService {
	return &AttemptService{
		quizzes:   quizzes,
		attempts:  attempts,
		results:   results,
		notifiers: notifiers,
		now:       now,
	}
}

// Start returns the user's in-progress attempt for the quiz, creating one if needed.
func (s *AttemptService) Start(ctx context.Context, userID, quizSlug string) (domain.Attempt, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizSlug)
	if err != nil {
		return domain.Attempt{}, err
	}
	if !quiz.AccessibleBy(userID) {
		return domain.Attempt{}, domain.ErrQuizNotAccessible
	}

	if existing, ok, err := s.attempts.FindInProgress(ctx, userID, quizSlug); err != nil {
		return domain.Attempt{}, err
	} else if ok {
		return existing, nil
	}

	now := s.now().UTC()
	stored, created, err := s.attempts.CreateInProgress(ctx, domain.Attempt{
		Slug:      domain.NewAttemptSlug(),
		QuizSlug:  quizSlug,
		UserID:    userID,
		Answers:   []domain.SubmittedAnswer{},
		Status:    domain.AttemptInProgress,
		StartedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return domain.Attempt{}, err
	}
	if created {
		s.notify(ctx, AttemptEvent{Type: EventAttemptStarted, Attempt: stored, At: now})
	}
	return stored, nil
}

// Get returns an attempt owned by userID.
func (s *AttemptService) Get(ctx context.Context, attemptSlug, userID string) (domain.Attempt, error) {
	return s.loadOwned(ctx, attemptSlug, userID)
}

// SubmitAnswer records (or overwrites) the selection for one question.
func (s *AttemptService) SubmitAnswer(ctx context.Context, attemptSlug, userID string, questionIndex int, selected []int) (domain.Attempt, error) {
	unlock := s.lock(attemptSlug)
	defer unlock()

	attempt, err := s.loadOwned(ctx, attemptSlug, userID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if attempt.Status != domain.AttemptInProgress {
		return domain.Attempt{}, domain.ErrAttemptNotInProgress
	}
	// A stored result freezes the answers even while the status flip is pending.
	if _, found, err := s.results.FindByAttempt(ctx, attemptSlug); err != nil {
		return domain.Attempt{}, err
	} else if found {
		return domain.Attempt{}, domain.ErrAttemptSubmitted
	}

	quiz, err := s.quizzes.GetQuiz(ctx, attempt.QuizSlug)
	if err != nil {
		return domain.Attempt{}, err
	}
	if questionIndex < 0 || questionIndex >= quiz.QuestionCount {
		return domain.Attempt{}, domain.ErrQuestionOutOfRange
	}
	if questionIndex >= len(quiz.Questions) {
		return domain.Attempt{}, domain.ErrQuizInconsistent
	}

	normalized := domain.NormalizeSelection(selected)
	options := len(quiz.Questions[questionIndex].Options)
	for _, opt := range normalized {
		if opt < 0 || opt >= options {
			return domain.Attempt{}, domain.ErrOptionOutOfRange
		}
	}

	now := s.now().UTC()
	updated, err := s.attempts.UpsertAnswer(ctx, attemptSlug, domain.SubmittedAnswer{
		QuestionIndex: questionIndex,
		Selected:      normalized,
		AnsweredAt:    now,
	})
	if err != nil {
		return domain.Attempt{}, err
	}
	s.notify(ctx, AttemptEvent{Type: EventAnswerRecorded, Attempt: updated, At: now})
	return updated, nil
}

// Submit grades the attempt and completes it. It is safe to retry: a result
// already stored for the attempt is reused and only the status flip is redone.
func (s *AttemptService) Submit(ctx context.Context, attemptSlug, userID string) (domain.Result, error) {
	unlock := s.lock(attemptSlug)
	defer unlock()

	attempt, err := s.loadOwned(ctx, attemptSlug, userID)
	if err != nil {
		return domain.Result{}, err
	}
	if attempt.Status != domain.AttemptInProgress {
		return domain.Result{}, domain.ErrAttemptNotInProgress
	}

	result, found, err := s.results.FindByAttempt(ctx, attemptSlug)
	if err != nil {
		return domain.Result{}, err
	}
	if found {
		log.Printf("attempt %s: result %s already stored, completing status flip", attemptSlug, result.Slug)
	} else {
		result, err = s.grade(ctx, attempt)
		if err != nil {
			return domain.Result{}, err
		}
	}

	completed, err := s.attempts.Transition(ctx, attemptSlug, domain.AttemptInProgress, domain.AttemptCompleted, result.CompletedAt)
	if errors.Is(err, domain.ErrAttemptNotInProgress) {
		// A concurrent submit may have won the flip.
		current, getErr := s.attempts.GetAttempt(ctx, attemptSlug)
		if getErr != nil {
			return domain.Result{}, getErr
		}
		if current.Status != domain.AttemptCompleted {
			return domain.Result{}, err
		}
		return result, nil
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("complete attempt %s: %w", attemptSlug, err)
	}

	s.notify(ctx, AttemptEvent{
		Type:       EventAttemptCompleted,
		Attempt:    completed,
		ResultSlug: result.Slug,
		Score:      result.Score,
		Total:      result.TotalQuestions,
		At:         result.CompletedAt,
	})
	return result, nil
}

func (s *AttemptService) grade(ctx context.Context, attempt domain.Attempt) (domain.Result, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, attempt.QuizSlug)
	if err != nil {
		return domain.Result{}, err
	}
	outcome, err := scoring.Grade(quiz, attempt)
	if err != nil {
		return domain.Result{}, err
	}

	now := s.now().UTC()
	taken := int(now.Sub(attempt.StartedAt).Seconds())
	if taken < 0 {
		taken = 0
	}
	stored, _, err := s.results.CreateResult(ctx, domain.Result{
		Slug:             domain.NewResultSlug(quiz.Topic),
		UserID:           attempt.UserID,
		QuizSlug:         quiz.Slug,
		AttemptSlug:      attempt.Slug,
		Topic:            quiz.Topic,
		Answers:          outcome.Answers,
		Score:            outcome.Score,
		TotalQuestions:   outcome.Total,
		Percentage:       outcome.Percentage(),
		TimeTakenSeconds: taken,
		OverTimeLimit:    quiz.TimeLimitSeconds > 0 && taken > quiz.TimeLimitSeconds,
		CompletedAt:      now,
	})
	if err != nil {
		return domain.Result{}, fmt.Errorf("store result for %s: %w", attempt.Slug, err)
	}
	return stored, nil
}

// Abandon ends the attempt without scoring. Abandoning twice is a no-op.
// An attempt whose result is already stored cannot be abandoned: its pending
// completion is finished instead and ErrAttemptSubmitted is returned.
func (s *AttemptService) Abandon(ctx context.Context, attemptSlug, userID string) (domain.Attempt, error) {
	unlock := s.lock(attemptSlug)
	defer unlock()

	attempt, err := s.loadOwned(ctx, attemptSlug, userID)
	if err != nil {
		return domain.Attempt{}, err
	}
	switch attempt.Status {
	case domain.AttemptAbandoned:
		return attempt, nil
	case domain.AttemptCompleted:
		return domain.Attempt{}, domain.ErrAttemptNotInProgress
	}

	result, found, err := s.results.FindByAttempt(ctx, attemptSlug)
	if err != nil {
		return domain.Attempt{}, err
	}
	if found {
		if err := s.finishCompletion(ctx, result); err != nil {
			return domain.Attempt{}, err
		}
		return domain.Attempt{}, domain.ErrAttemptSubmitted
	}

	now := s.now().UTC()
	abandoned, err := s.attempts.Transition(ctx, attemptSlug, domain.AttemptInProgress, domain.AttemptAbandoned, now)
	if errors.Is(err, domain.ErrAttemptNotInProgress) {
		current, getErr := s.attempts.GetAttempt(ctx, attemptSlug)
		if getErr != nil {
			return domain.Attempt{}, getErr
		}
		if current.Status == domain.AttemptAbandoned {
			return current, nil
		}
		return domain.Attempt{}, err
	}
	if err != nil {
		return domain.Attempt{}, err
	}
	s.notify(ctx, AttemptEvent{Type: EventAttemptAbandoned, Attempt: abandoned, At: now})
	return abandoned, nil
}

// finishCompletion flips an attempt whose result is already stored to completed.
func (s *AttemptService) finishCompletion(ctx context.Context, result domain.Result) error {
	log.Printf("attempt %s: result %s already stored, completing status flip", result.AttemptSlug, result.Slug)
	completed, err := s.attempts.Transition(ctx, result.AttemptSlug, domain.AttemptInProgress, domain.AttemptCompleted, result.CompletedAt)
	if errors.Is(err, domain.ErrAttemptNotInProgress) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("complete attempt %s: %w", result.AttemptSlug, err)
	}
	s.notify(ctx, AttemptEvent{
		Type:       EventAttemptCompleted,
		Attempt:    completed,
		ResultSlug: result.Slug,
		Score:      result.Score,
		Total:      result.TotalQuestions,
		At:         result.CompletedAt,
	})
	return nil
}

func (s *AttemptService) lock(attemptSlug string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(attemptSlug))
	mu := &s.locks[h.Sum32()%uint32(len(s.locks))]
	mu.Lock()
	return mu.Unlock
}

func (s *AttemptService) loadOwned(ctx context.Context, attemptSlug, userID string) (domain.Attempt, error) {
	attempt, err := s.attempts.GetAttempt(ctx, attemptSlug)
	if err != nil {
		return domain.Attempt{}, err
	}
	if attempt.UserID != userID {
		return domain.Attempt{}, domain.ErrNotOwner
	}
	return attempt, nil
}

func (s *AttemptService) notify(ctx context.Context, event AttemptEvent) {
	for _, n := range s.notifiers {
		n.Notify(ctx, event)
	}
}
