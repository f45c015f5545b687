package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"adaptive-quiz-service/internal/domain"
)

// QuizLoader fetches quiz definitions from the system of record.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, slug string) (domain.Quiz, error)
}

// QuizRepository caches quiz definitions in Redis and falls back to a loader on cache miss.
// Definitions are stored as JSON: SET quiz:cache:{slug} {json} EX ttl
type QuizRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
}

func NewQuizRepository(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, slug string) (domain.Quiz, error) {
	if quiz, ok := r.cached(ctx, slug); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(slug, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.cached(ctx, slug); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, slug)
		if err != nil {
			return domain.Quiz{}, err
		}

		payload, err := json.Marshal(quiz)
		if err != nil {
			return domain.Quiz{}, err
		}
		if err := r.client.Set(ctx, r.key(slug), payload, r.ttlWithJitter()).Err(); err != nil {
			log.Printf("redis: cache fill for quiz %s failed: %v", slug, err)
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate removes the cached definition.
func (r *QuizRepository) Invalidate(ctx context.Context, slug string) error {
	r.sf.Forget(slug)
	return r.client.Del(ctx, r.key(slug)).Err()
}

func (r *QuizRepository) cached(ctx context.Context, slug string) (domain.Quiz, bool) {
	payload, err := r.client.Get(ctx, r.key(slug)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("redis: cache read for quiz %s failed: %v", slug, err)
		}
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(payload, &quiz); err != nil {
		log.Printf("redis: dropping unreadable cache entry for quiz %s: %v", slug, err)
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (r *QuizRepository) key(slug string) string {
	return "quiz:cache:" + slug
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(rand.Int64N(jitterMax+1))
}
