package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"adaptive-quiz-service/internal/adaptive"
	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"
	"adaptive-quiz-service/internal/infra/memory"
	"adaptive-quiz-service/internal/llm"
	"adaptive-quiz-service/internal/quizgen"
)

const generatedQuestions = `{"questions":[
	{"question":"Which keyword starts a goroutine?","questionType":"mcq","options":["go","async","spawn"],"correctAnswers":[0],"explanation":"go f() starts a goroutine."},
	{"question":"Unbuffered sends block until received.","questionType":"true-false","options":["True","False"],"correctAnswers":[0],"explanation":"They synchronize."},
	{"question":"Duplicate options","questionType":"mcq","options":["a","A"],"correctAnswers":[0]}
]}`

type quizFixture struct {
	store    *memory.QuizStore
	results  *memory.ResultStore
	provider *llm.MockProvider
	service  *app.QuizService
}

func newQuizFixture(responses ...llm.MockResponse) *quizFixture {
	f := &quizFixture{
		store:    memory.NewQuizStore(fourQuestionQuiz()),
		results:  memory.NewResultStore(),
		provider: llm.NewMockProvider(responses...),
	}
	cache := memory.NewQuizRepository(f.store, time.Minute)
	extractor := adaptive.NewWeakTopicExtractor(f.provider, adaptive.DefaultExtractorConfig())
	f.service = app.NewQuizService(
		f.store,
		cache,
		f.results,
		quizgen.NewGenerator(f.provider, quizgen.DefaultConfig()),
		adaptive.NewBuilder(extractor),
		app.QuizServiceConfig{MaxQuestions: 20, GenerationTimeout: time.Second},
	)
	return f
}

func goParams() app.GenerateParams {
	return app.GenerateParams{
		Topic:         "  Go concurrency ",
		Difficulty:    domain.DifficultyMedium,
		QuestionTypes: []domain.QuestionType{domain.QuestionSingleChoice, domain.QuestionBinary},
		QuestionCount: 3,
	}
}

func TestGenerateCommitsValidatedQuiz(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture(llm.MockResponse{Content: json.RawMessage(generatedQuestions)})

	quiz, err := f.service.Generate(ctx, "u1", goParams())
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if quiz.QuestionCount != 2 || len(quiz.Questions) != 2 {
		t.Fatalf("expected the 2 valid questions, got %d/%d", quiz.QuestionCount, len(quiz.Questions))
	}
	if quiz.Topic != "Go concurrency" || quiz.Title != "Go concurrency quiz" || quiz.OwnerID != "u1" {
		t.Fatalf("unexpected quiz metadata: %+v", quiz)
	}
	stored, err := f.store.LoadQuiz(ctx, quiz.Slug)
	if err != nil {
		t.Fatalf("expected quiz stored: %v", err)
	}
	if stored.IsAdaptive || stored.Lineage != nil {
		t.Fatalf("expected plain quiz, got %+v", stored)
	}
}

func TestGenerateRejectsBadParams(t *testing.T) {
	f := newQuizFixture()
	cases := map[string]func(*app.GenerateParams){
		"empty topic":  func(p *app.GenerateParams) { p.Topic = " " },
		"zero count":   func(p *app.GenerateParams) { p.QuestionCount = 0 },
		"too many":     func(p *app.GenerateParams) { p.QuestionCount = 21 },
		"bad level":    func(p *app.GenerateParams) { p.Difficulty = "expert" },
		"no types":     func(p *app.GenerateParams) { p.QuestionTypes = nil },
		"unknown type": func(p *app.GenerateParams) { p.QuestionTypes = []domain.QuestionType{"essay"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := goParams()
			mutate(&p)
			if _, err := f.service.Generate(context.Background(), "u1", p); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Fatalf("expected invalid argument, got %v", err)
			}
		})
	}
	if f.provider.CallCount() != 0 {
		t.Fatalf("generator must not be called for invalid params")
	}
}

func TestGenerateFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture(llm.MockResponse{Content: json.RawMessage(`{"questions":[]}`)})

	_, err := f.service.Generate(ctx, "u1", goParams())
	if !errors.Is(err, domain.ErrNoValidQuestions) {
		t.Fatalf("expected no valid questions, got %v", err)
	}
}

func completedResult(f *quizFixture, user string) domain.Result {
	result := domain.Result{
		Slug:        "result-go-basics-abc",
		UserID:      user,
		QuizSlug:    "go-basics-0123456789",
		AttemptSlug: "attempt-abc",
		Topic:       "Go basics",
		Answers: []domain.GradedAnswer{
			{QuestionIndex: 0, Selected: []int{1}, Correct: []int{1}, IsCorrect: true},
			{QuestionIndex: 1, Selected: []int{1}, Correct: []int{0}, IsCorrect: false},
			{QuestionIndex: 2, Selected: []int{0}, Correct: []int{0, 2}, IsCorrect: false},
			{QuestionIndex: 3, Selected: []int{0}, Correct: []int{0}, IsCorrect: true},
		},
		Score:          2,
		TotalQuestions: 4,
		Percentage:     50,
	}
	_, _, _ = f.results.CreateResult(context.Background(), result)
	return result
}

func TestGenerateAdaptiveWeakFocus(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture(
		llm.MockResponse{Content: json.RawMessage(`{"topics":["Multi-select reasoning","Boolean logic"]}`)},
		llm.MockResponse{Content: json.RawMessage(generatedQuestions)},
	)
	result := completedResult(f, "u1")

	quiz, err := f.service.GenerateAdaptive(ctx, "u1", app.AdaptiveParams{
		ResultSlug:       result.Slug,
		FocusOnWeakAreas: true,
	})
	if err != nil {
		t.Fatalf("adaptive generation failed: %v", err)
	}
	if !quiz.IsAdaptive || quiz.IsPublic {
		t.Fatalf("expected private adaptive quiz, got %+v", quiz)
	}
	if quiz.Lineage == nil || quiz.Lineage.RootQuizSlug != "go-basics-0123456789" || quiz.Lineage.SourceResultSlug != result.Slug {
		t.Fatalf("unexpected lineage: %+v", quiz.Lineage)
	}
	if quiz.Lineage.Kind != domain.AdaptiveWeakFocus {
		t.Fatalf("expected weak-focus, got %s", quiz.Lineage.Kind)
	}
	if f.provider.CallCount() != 2 {
		t.Fatalf("expected extractor + generator calls, got %d", f.provider.CallCount())
	}
	prompt := f.provider.Calls[1].Messages[0].Content
	if want := "Aim 3 of the 4 questions at these weak areas"; !strings.Contains(prompt, want) {
		t.Fatalf("expected %q in prompt:\n%s", want, prompt)
	}
}

func TestGenerateAdaptiveHarderChainsToRoot(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture(
		llm.MockResponse{Content: json.RawMessage(generatedQuestions)},
		llm.MockResponse{Content: json.RawMessage(generatedQuestions)},
	)
	result := completedResult(f, "u1")

	child, err := f.service.GenerateAdaptive(ctx, "u1", app.AdaptiveParams{ResultSlug: result.Slug, UseHarderDifficulty: true, QuestionCount: 2})
	if err != nil {
		t.Fatalf("adaptive generation failed: %v", err)
	}
	if child.Difficulty != domain.DifficultyMedium || child.Lineage.Kind != domain.AdaptiveHarder {
		t.Fatalf("expected harder medium quiz, got %s/%s", child.Difficulty, child.Lineage.Kind)
	}

	childResult := domain.Result{
		Slug:        "result-child",
		UserID:      "u1",
		QuizSlug:    child.Slug,
		AttemptSlug: "attempt-child",
		Answers:     []domain.GradedAnswer{{QuestionIndex: 0, IsCorrect: true}, {QuestionIndex: 1, IsCorrect: true}},
	}
	_, _, _ = f.results.CreateResult(ctx, childResult)

	grandchild, err := f.service.GenerateAdaptive(ctx, "u1", app.AdaptiveParams{ResultSlug: childResult.Slug})
	if err != nil {
		t.Fatalf("second adaptive generation failed: %v", err)
	}
	if grandchild.Lineage.RootQuizSlug != "go-basics-0123456789" {
		t.Fatalf("expected lineage root preserved, got %s", grandchild.Lineage.RootQuizSlug)
	}
	if grandchild.Lineage.Kind != domain.AdaptiveSameLevel {
		t.Fatalf("expected same-level reinforcement, got %s", grandchild.Lineage.Kind)
	}
}

func TestGenerateAdaptiveRequiresOwner(t *testing.T) {
	f := newQuizFixture()
	result := completedResult(f, "u1")

	_, err := f.service.GenerateAdaptive(context.Background(), "u2", app.AdaptiveParams{ResultSlug: result.Slug})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSetVisibility(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture(llm.MockResponse{Content: json.RawMessage(generatedQuestions)})
	quiz, _ := f.service.Generate(ctx, "u1", goParams())

	if _, err := f.service.Get(ctx, "u2", quiz.Slug); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected private quiz hidden, got %v", err)
	}
	if _, err := f.service.SetVisibility(ctx, "u2", quiz.Slug, true); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected non-owner rejected, got %v", err)
	}
	if _, err := f.service.SetVisibility(ctx, "u1", quiz.Slug, true); err != nil {
		t.Fatalf("set visibility failed: %v", err)
	}
	if _, err := f.service.Get(ctx, "u2", quiz.Slug); err != nil {
		t.Fatalf("expected public quiz visible after invalidation, got %v", err)
	}
}

func TestAdaptiveQuizCannotBePublished(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture(llm.MockResponse{Content: json.RawMessage(generatedQuestions)})
	result := completedResult(f, "u1")
	quiz, err := f.service.GenerateAdaptive(ctx, "u1", app.AdaptiveParams{ResultSlug: result.Slug})
	if err != nil {
		t.Fatalf("adaptive generation failed: %v", err)
	}

	if _, err := f.service.SetVisibility(ctx, "u1", quiz.Slug, true); !errors.Is(err, domain.ErrAdaptiveQuizPublic) {
		t.Fatalf("expected adaptive publish rejected, got %v", err)
	}
}

func TestResultVisibility(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture()
	result := completedResult(f, "u1")
	svc := app.NewResultService(f.results)

	if _, err := svc.Get(ctx, "u2", result.Slug); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected private result hidden, got %v", err)
	}
	if _, err := svc.SetVisibility(ctx, "u2", result.Slug, true); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected non-owner rejected, got %v", err)
	}
	if _, err := svc.SetVisibility(ctx, "u1", result.Slug, true); err != nil {
		t.Fatalf("set visibility failed: %v", err)
	}
	shared, err := svc.Get(ctx, "u2", result.Slug)
	if err != nil || !shared.IsPublic {
		t.Fatalf("expected public result visible, got %+v err=%v", shared, err)
	}
	if _, err := svc.Get(ctx, "u1", "result-missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
