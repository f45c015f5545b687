package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"adaptive-quiz-service/internal/domain"
)

// QuizStore keeps quiz definitions in Redis without expiry:
//
//	HSET quiz:{slug} data {json} [public 0|1]
type QuizStore struct {
	client *redis.Client
}

func NewQuizStore(client *redis.Client) *QuizStore {
	return &QuizStore{client: client}
}

func (s *QuizStore) LoadQuiz(ctx context.Context, slug string) (domain.Quiz, error) {
	fields, err := s.client.HGetAll(ctx, quizKey(slug)).Result()
	if err != nil {
		return domain.Quiz{}, err
	}
	data, ok := fields["data"]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	var quiz domain.Quiz
	if err := json.Unmarshal([]byte(data), &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("decode quiz %s: %w", slug, err)
	}
	if public, ok := fields["public"]; ok {
		quiz.IsPublic = public == "1"
	}
	return quiz, nil
}

func (s *QuizStore) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	payload, err := json.Marshal(quiz)
	if err != nil {
		return err
	}
	err = createQuizScript.Run(ctx, s.client, []string{quizKey(quiz.Slug)}, payload).Err()
	if err != nil && strings.Contains(err.Error(), "EXISTS") {
		return fmt.Errorf("quiz %s already exists", quiz.Slug)
	}
	return err
}

func (s *QuizStore) SetQuizPublic(ctx context.Context, slug string, public bool) error {
	err := setPublicScript.Run(ctx, s.client, []string{quizKey(slug)}, boolArg(public)).Err()
	return scriptError(err, domain.ErrQuizNotFound)
}

func quizKey(slug string) string { return "quiz:" + slug }
