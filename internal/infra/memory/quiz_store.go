package memory

import (
	"context"
	"fmt"
	"sync"

	"adaptive-quiz-service/internal/domain"
)

// QuizStore is an in-memory implementation of app.QuizStore (useful for tests/demos).
type QuizStore struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
}

func NewQuizStore(seed ...domain.Quiz) *QuizStore {
	s := &QuizStore{quizzes: make(map[string]domain.Quiz, len(seed))}
	for _, q := range seed {
		s.quizzes[q.Slug] = q
	}
	return s
}

func (s *QuizStore) LoadQuiz(_ context.Context, slug string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if quiz, ok := s.quizzes[slug]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (s *QuizStore) CreateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.quizzes[quiz.Slug]; exists {
		return fmt.Errorf("quiz %s already exists", quiz.Slug)
	}
	s.quizzes[quiz.Slug] = quiz
	return nil
}

func (s *QuizStore) SetQuizPublic(_ context.Context, slug string, public bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[slug]
	if !ok {
		return domain.ErrQuizNotFound
	}
	quiz.IsPublic = public
	s.quizzes[slug] = quiz
	return nil
}
