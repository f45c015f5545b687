package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"adaptive-quiz-service/internal/domain"
)

func newAttempt(slug, user, quiz string) domain.Attempt {
	now := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	return domain.Attempt{
		Slug:      slug,
		QuizSlug:  quiz,
		UserID:    user,
		Status:    domain.AttemptInProgress,
		StartedAt: now,
		UpdatedAt: now,
	}
}

func TestAttemptStoreSingleInProgress(t *testing.T) {
	store := NewAttemptStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	slugs := make(chan string, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stored, _, err := store.CreateInProgress(ctx, newAttempt(domain.NewAttemptSlug(), "u1", "quiz-1"))
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			slugs <- stored.Slug
		}(i)
	}
	wg.Wait()
	close(slugs)

	first := ""
	for slug := range slugs {
		if first == "" {
			first = slug
		}
		if slug != first {
			t.Fatalf("expected one in-progress attempt, saw %s and %s", first, slug)
		}
	}
}

func TestAttemptStoreUpsertOverwrites(t *testing.T) {
	store := NewAttemptStore()
	ctx := context.Background()
	_, _, _ = store.CreateInProgress(ctx, newAttempt("attempt-1", "u1", "quiz-1"))

	at := time.Date(2024, 11, 22, 10, 5, 0, 0, time.UTC)
	_, _ = store.UpsertAnswer(ctx, "attempt-1", domain.SubmittedAnswer{QuestionIndex: 2, Selected: []int{0}, AnsweredAt: at})
	_, _ = store.UpsertAnswer(ctx, "attempt-1", domain.SubmittedAnswer{QuestionIndex: 0, Selected: []int{1}, AnsweredAt: at})
	got, err := store.UpsertAnswer(ctx, "attempt-1", domain.SubmittedAnswer{QuestionIndex: 2, Selected: []int{1}, AnsweredAt: at.Add(time.Second)})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if len(got.Answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(got.Answers))
	}
	if got.Answers[0].QuestionIndex != 2 || got.Answers[0].Selected[0] != 1 {
		t.Fatalf("expected index 2 overwritten in place, got %+v", got.Answers[0])
	}
	if !got.UpdatedAt.Equal(at.Add(time.Second)) {
		t.Fatalf("expected UpdatedAt bumped, got %v", got.UpdatedAt)
	}
}

func TestAttemptStoreTransitionCAS(t *testing.T) {
	store := NewAttemptStore()
	ctx := context.Background()
	_, _, _ = store.CreateInProgress(ctx, newAttempt("attempt-1", "u1", "quiz-1"))
	at := time.Date(2024, 11, 22, 10, 9, 0, 0, time.UTC)

	done, err := store.Transition(ctx, "attempt-1", domain.AttemptInProgress, domain.AttemptCompleted, at)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if done.CompletedAt == nil || !done.CompletedAt.Equal(at) {
		t.Fatalf("expected CompletedAt set, got %v", done.CompletedAt)
	}

	if _, err := store.Transition(ctx, "attempt-1", domain.AttemptInProgress, domain.AttemptAbandoned, at); !errors.Is(err, domain.ErrAttemptNotInProgress) {
		t.Fatalf("expected CAS miss, got %v", err)
	}
	if _, err := store.UpsertAnswer(ctx, "attempt-1", domain.SubmittedAnswer{QuestionIndex: 0}); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state after completion, got %v", err)
	}

	if _, ok, _ := store.FindInProgress(ctx, "u1", "quiz-1"); ok {
		t.Fatalf("expected no in-progress attempt after completion")
	}
	again, created, _ := store.CreateInProgress(ctx, newAttempt("attempt-2", "u1", "quiz-1"))
	if !created || again.Slug != "attempt-2" {
		t.Fatalf("expected a fresh attempt after completion, got %+v (created=%t)", again, created)
	}
}

func TestAttemptStoreReturnsCopies(t *testing.T) {
	store := NewAttemptStore()
	ctx := context.Background()
	_, _, _ = store.CreateInProgress(ctx, newAttempt("attempt-1", "u1", "quiz-1"))
	got, _ := store.UpsertAnswer(ctx, "attempt-1", domain.SubmittedAnswer{QuestionIndex: 0, Selected: []int{1}})

	got.Answers[0].Selected[0] = 99

	fresh, _ := store.GetAttempt(ctx, "attempt-1")
	if fresh.Answers[0].Selected[0] != 1 {
		t.Fatalf("store state mutated through returned value")
	}
}

func TestResultStoreInsertIfAbsent(t *testing.T) {
	store := NewResultStore()
	ctx := context.Background()

	first, created, err := store.CreateResult(ctx, domain.Result{Slug: "result-a", AttemptSlug: "attempt-1", Score: 3})
	if err != nil || !created {
		t.Fatalf("expected first insert to win, created=%t err=%v", created, err)
	}
	second, created, err := store.CreateResult(ctx, domain.Result{Slug: "result-b", AttemptSlug: "attempt-1", Score: 0})
	if err != nil || created {
		t.Fatalf("expected second insert to be absorbed, created=%t err=%v", created, err)
	}
	if second.Slug != first.Slug || second.Score != 3 {
		t.Fatalf("expected stored result returned, got %+v", second)
	}
	if _, err := store.GetResult(ctx, "result-b"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected losing result not stored, got %v", err)
	}
}
