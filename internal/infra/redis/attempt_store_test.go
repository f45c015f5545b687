package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"adaptive-quiz-service/internal/domain"
)

var started = time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)

func newAttempt(slug string) domain.Attempt {
	return domain.Attempt{
		Slug:      slug,
		QuizSlug:  "quiz-1",
		UserID:    "u1",
		Status:    domain.AttemptInProgress,
		StartedAt: started,
		UpdatedAt: started,
	}
}

func TestAttemptStoreSingleInProgress(t *testing.T) {
	mr, client := newMiniredis(t)
	store := NewAttemptStore(client)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan string, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stored, _, err := store.CreateInProgress(ctx, newAttempt(domain.NewAttemptSlug()))
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			results <- stored.Slug
		}()
	}
	wg.Wait()
	close(results)

	winner, _ := mr.Get("attempt:active:u1:quiz-1")
	for slug := range results {
		if slug != winner {
			t.Fatalf("expected every caller to get %s, got %s", winner, slug)
		}
	}

	found, ok, err := store.FindInProgress(ctx, "u1", "quiz-1")
	if err != nil || !ok || found.Slug != winner {
		t.Fatalf("expected in-progress %s, got %+v ok=%t err=%v", winner, found, ok, err)
	}
}

func TestAttemptStoreAnswersKeepOrderAndOverwrite(t *testing.T) {
	_, client := newMiniredis(t)
	store := NewAttemptStore(client)
	ctx := context.Background()
	_, _, _ = store.CreateInProgress(ctx, newAttempt("attempt-1"))

	at := started.Add(time.Minute)
	for _, ans := range []domain.SubmittedAnswer{
		{QuestionIndex: 3, Selected: []int{0}, AnsweredAt: at},
		{QuestionIndex: 1, Selected: []int{2}, AnsweredAt: at},
		{QuestionIndex: 3, Selected: []int{1, 2}, AnsweredAt: at.Add(time.Second)},
	} {
		if _, err := store.UpsertAnswer(ctx, "attempt-1", ans); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	got, err := store.GetAttempt(ctx, "attempt-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(got.Answers))
	}
	if got.Answers[0].QuestionIndex != 3 || len(got.Answers[0].Selected) != 2 {
		t.Fatalf("expected index 3 overwritten in first position, got %+v", got.Answers[0])
	}
	if got.Answers[1].QuestionIndex != 1 {
		t.Fatalf("expected index 1 second, got %+v", got.Answers[1])
	}
	if !got.UpdatedAt.Equal(at.Add(time.Second)) || !got.StartedAt.Equal(started) {
		t.Fatalf("unexpected timestamps: started=%v updated=%v", got.StartedAt, got.UpdatedAt)
	}
}

func TestAttemptStoreTransition(t *testing.T) {
	mr, client := newMiniredis(t)
	store := NewAttemptStore(client)
	ctx := context.Background()
	_, _, _ = store.CreateInProgress(ctx, newAttempt("attempt-1"))
	at := started.Add(5 * time.Minute)

	done, err := store.Transition(ctx, "attempt-1", domain.AttemptInProgress, domain.AttemptCompleted, at)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if done.Status != domain.AttemptCompleted || done.CompletedAt == nil || !done.CompletedAt.Equal(at) {
		t.Fatalf("unexpected attempt after completion: %+v", done)
	}
	if mr.Exists("attempt:active:u1:quiz-1") {
		t.Fatalf("expected in-progress slot released")
	}

	if _, err := store.Transition(ctx, "attempt-1", domain.AttemptInProgress, domain.AttemptAbandoned, at); !errors.Is(err, domain.ErrAttemptNotInProgress) {
		t.Fatalf("expected CAS miss, got %v", err)
	}
	if _, err := store.UpsertAnswer(ctx, "attempt-1", domain.SubmittedAnswer{QuestionIndex: 0, AnsweredAt: at}); !errors.Is(err, domain.ErrAttemptNotInProgress) {
		t.Fatalf("expected state error, got %v", err)
	}
	if _, err := store.UpsertAnswer(ctx, "attempt-missing", domain.SubmittedAnswer{}); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.Transition(ctx, "attempt-missing", domain.AttemptInProgress, domain.AttemptCompleted, at); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	next, created, err := store.CreateInProgress(ctx, newAttempt("attempt-2"))
	if err != nil || !created || next.Slug != "attempt-2" {
		t.Fatalf("expected a fresh attempt, got %+v created=%t err=%v", next, created, err)
	}
}

func TestResultStoreInsertIfAbsent(t *testing.T) {
	_, client := newMiniredis(t)
	store := NewResultStore(client)
	ctx := context.Background()

	first := domain.Result{Slug: "result-go-a", AttemptSlug: "attempt-1", UserID: "u1", Score: 3, TotalQuestions: 4, Percentage: 75}
	if _, created, err := store.CreateResult(ctx, first); err != nil || !created {
		t.Fatalf("expected insert, created=%t err=%v", created, err)
	}
	stored, created, err := store.CreateResult(ctx, domain.Result{Slug: "result-go-b", AttemptSlug: "attempt-1", Score: 1})
	if err != nil || created || stored.Slug != "result-go-a" || stored.Score != 3 {
		t.Fatalf("expected existing result, got %+v created=%t err=%v", stored, created, err)
	}

	byAttempt, ok, err := store.FindByAttempt(ctx, "attempt-1")
	if err != nil || !ok || byAttempt.Slug != "result-go-a" {
		t.Fatalf("unexpected lookup %+v ok=%t err=%v", byAttempt, ok, err)
	}
	if _, ok, _ := store.FindByAttempt(ctx, "attempt-2"); ok {
		t.Fatalf("expected no result for other attempt")
	}

	if err := store.SetResultPublic(ctx, "result-go-a", true); err != nil {
		t.Fatalf("set public: %v", err)
	}
	shared, _ := store.GetResult(ctx, "result-go-a")
	if !shared.IsPublic {
		t.Fatalf("expected public result")
	}
	if err := store.SetResultPublic(ctx, "result-missing", true); !errors.Is(err, domain.ErrResultNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
