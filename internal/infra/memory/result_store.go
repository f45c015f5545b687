package memory

import (
	"context"
	"sync"

	"adaptive-quiz-service/internal/domain"
)

// ResultStore is an in-memory implementation of app.ResultRepository.
type ResultStore struct {
	mu        sync.RWMutex
	results   map[string]domain.Result
	byAttempt map[string]string
}

func NewResultStore() *ResultStore {
	return &ResultStore{
		results:   make(map[string]domain.Result),
		byAttempt: make(map[string]string),
	}
}

func (s *ResultStore) CreateResult(_ context.Context, result domain.Result) (domain.Result, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slug, ok := s.byAttempt[result.AttemptSlug]; ok {
		return s.results[slug], false, nil
	}
	s.results[result.Slug] = result
	s.byAttempt[result.AttemptSlug] = result.Slug
	return result, true, nil
}

func (s *ResultStore) GetResult(_ context.Context, slug string) (domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[slug]
	if !ok {
		return domain.Result{}, domain.ErrResultNotFound
	}
	return result, nil
}

func (s *ResultStore) FindByAttempt(_ context.Context, attemptSlug string) (domain.Result, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slug, ok := s.byAttempt[attemptSlug]
	if !ok {
		return domain.Result{}, false, nil
	}
	return s.results[slug], true, nil
}

func (s *ResultStore) SetResultPublic(_ context.Context, slug string, public bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.results[slug]
	if !ok {
		return domain.ErrResultNotFound
	}
	result.IsPublic = public
	s.results[slug] = result
	return nil
}
