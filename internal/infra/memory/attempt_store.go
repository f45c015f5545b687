package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"adaptive-quiz-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository.
// A single mutex serializes every write, so the in-progress index and answer
// upserts are trivially atomic.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]domain.Attempt
	active   map[activeKey]string
}

type activeKey struct {
	userID   string
	quizSlug string
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]domain.Attempt),
		active:   make(map[activeKey]string),
	}
}

func (s *AttemptStore) CreateInProgress(_ context.Context, attempt domain.Attempt) (domain.Attempt, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := activeKey{attempt.UserID, attempt.QuizSlug}
	if slug, ok := s.active[key]; ok {
		return cloneAttempt(s.attempts[slug]), false, nil
	}
	if _, exists := s.attempts[attempt.Slug]; exists {
		return domain.Attempt{}, false, fmt.Errorf("attempt %s already exists", attempt.Slug)
	}
	attempt = cloneAttempt(attempt)
	s.attempts[attempt.Slug] = attempt
	s.active[key] = attempt.Slug
	return cloneAttempt(attempt), true, nil
}

func (s *AttemptStore) GetAttempt(_ context.Context, slug string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[slug]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return cloneAttempt(attempt), nil
}

func (s *AttemptStore) FindInProgress(_ context.Context, userID, quizSlug string) (domain.Attempt, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slug, ok := s.active[activeKey{userID, quizSlug}]
	if !ok {
		return domain.Attempt{}, false, nil
	}
	return cloneAttempt(s.attempts[slug]), true, nil
}

func (s *AttemptStore) UpsertAnswer(_ context.Context, slug string, ans domain.SubmittedAnswer) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[slug]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if attempt.Status != domain.AttemptInProgress {
		return domain.Attempt{}, domain.ErrAttemptNotInProgress
	}
	attempt = cloneAttempt(attempt)
	attempt.UpsertAnswer(ans)
	attempt.UpdatedAt = ans.AnsweredAt
	s.attempts[slug] = attempt
	return cloneAttempt(attempt), nil
}

func (s *AttemptStore) Transition(_ context.Context, slug string, from, to domain.AttemptStatus, at time.Time) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[slug]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if attempt.Status != from {
		return domain.Attempt{}, domain.ErrAttemptNotInProgress
	}
	attempt.Status = to
	attempt.UpdatedAt = at
	if to == domain.AttemptCompleted {
		completedAt := at
		attempt.CompletedAt = &completedAt
	}
	s.attempts[slug] = attempt
	if to.Terminal() {
		delete(s.active, activeKey{attempt.UserID, attempt.QuizSlug})
	}
	return cloneAttempt(attempt), nil
}

func cloneAttempt(a domain.Attempt) domain.Attempt {
	answers := make([]domain.SubmittedAnswer, len(a.Answers))
	for i, ans := range a.Answers {
		ans.Selected = slices.Clone(ans.Selected)
		answers[i] = ans
	}
	a.Answers = answers
	return a
}
