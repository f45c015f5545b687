package app

import (
	"context"

	"adaptive-quiz-service/internal/domain"
)

// ResultService exposes graded results.
type ResultService struct {
	results ResultRepository
}

func NewResultService(results ResultRepository) *ResultService {
	return &ResultService{results: results}
}

// Get returns the result when userID owns it or it is public.
func (s *ResultService) Get(ctx context.Context, userID, slug string) (domain.Result, error) {
	result, err := s.results.GetResult(ctx, slug)
	if err != nil {
		return domain.Result{}, err
	}
	if !result.VisibleTo(userID) {
		return domain.Result{}, domain.ErrNotOwner
	}
	return result, nil
}

// SetVisibility lets the owner share or hide a result.
func (s *ResultService) SetVisibility(ctx context.Context, userID, slug string, public bool) (domain.Result, error) {
	result, err := s.results.GetResult(ctx, slug)
	if err != nil {
		return domain.Result{}, err
	}
	if result.UserID != userID {
		return domain.Result{}, domain.ErrNotOwner
	}
	if result.IsPublic == public {
		return result, nil
	}
	if err := s.results.SetResultPublic(ctx, slug, public); err != nil {
		return domain.Result{}, err
	}
	result.IsPublic = public
	return result, nil
}
