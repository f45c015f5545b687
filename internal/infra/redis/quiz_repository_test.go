package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"adaptive-quiz-service/internal/domain"
	"adaptive-quiz-service/internal/infra/memory"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, client := newMiniredis(t)

	loader := &countingLoader{QuizLoader: memory.NewQuizStore(sampleQuiz())}
	repo := NewQuizRepository(client, loader, time.Minute)

	got, err := repo.GetQuiz(context.Background(), "go-basics-0123456789")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader called once, got %d", loader.count())
	}
	if !mr.Exists("quiz:cache:go-basics-0123456789") {
		t.Fatalf("expected cache key to be set")
	}
	if ttl := mr.TTL("quiz:cache:go-basics-0123456789"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected ttl with jitter, got %v", ttl)
	}

	// Second call should hit cache, loader not incremented.
	cached, _ := repo.GetQuiz(context.Background(), "go-basics-0123456789")
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.count())
	}
	if len(cached.Questions) != 1 || cached.Questions[0].CorrectAnswers[0] != got.Questions[0].CorrectAnswers[0] {
		t.Fatalf("cached quiz lost content: %+v", cached)
	}
}

func TestQuizRepositoryInvalidate(t *testing.T) {
	mr, client := newMiniredis(t)
	loader := &countingLoader{QuizLoader: memory.NewQuizStore(sampleQuiz())}
	repo := NewQuizRepository(client, loader, time.Minute)
	ctx := context.Background()

	_, _ = repo.GetQuiz(ctx, "go-basics-0123456789")
	if err := repo.Invalidate(ctx, "go-basics-0123456789"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("quiz:cache:go-basics-0123456789") {
		t.Fatalf("expected cache key removed")
	}
	_, _ = repo.GetQuiz(ctx, "go-basics-0123456789")
	if loader.count() != 2 {
		t.Fatalf("expected reload after invalidation, got %d", loader.count())
	}
}

func TestQuizRepositoryIgnoresCorruptEntry(t *testing.T) {
	mr, client := newMiniredis(t)
	loader := &countingLoader{QuizLoader: memory.NewQuizStore(sampleQuiz())}
	repo := NewQuizRepository(client, loader, time.Minute)
	_ = mr.Set("quiz:cache:go-basics-0123456789", "{not json")

	quiz, err := repo.GetQuiz(context.Background(), "go-basics-0123456789")
	if err != nil || quiz.Slug != "go-basics-0123456789" {
		t.Fatalf("expected fallback to loader, got %+v err=%v", quiz, err)
	}
}

func TestQuizStoreRoundTrip(t *testing.T) {
	_, client := newMiniredis(t)
	store := NewQuizStore(client)
	ctx := context.Background()

	if err := store.CreateQuiz(ctx, sampleQuiz()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateQuiz(ctx, sampleQuiz()); err == nil {
		t.Fatalf("expected duplicate slug rejected")
	}
	if err := store.SetQuizPublic(ctx, "go-basics-0123456789", true); err != nil {
		t.Fatalf("set public: %v", err)
	}
	quiz, err := store.LoadQuiz(ctx, "go-basics-0123456789")
	if err != nil || !quiz.IsPublic || quiz.QuestionCount != 1 {
		t.Fatalf("unexpected quiz %+v err=%v", quiz, err)
	}
	if err := store.SetQuizPublic(ctx, "missing", true); err != domain.ErrQuizNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

type countingLoader struct {
	memory.QuizLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, slug string) (domain.Quiz, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.QuizLoader.LoadQuiz(ctx, slug)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		Slug:          "go-basics-0123456789",
		Topic:         "Go basics",
		Difficulty:    domain.DifficultyEasy,
		QuestionTypes: []domain.QuestionType{domain.QuestionSingleChoice},
		QuestionCount: 1,
		Questions: []domain.Question{
			{
				Text:           "What is 2 + 2?",
				Type:           domain.QuestionSingleChoice,
				Options:        []string{"3", "4"},
				CorrectAnswers: []int{1},
			},
		},
		OwnerID: "u1",
	}
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}
