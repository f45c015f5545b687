package app

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/samber/lo"

	"adaptive-quiz-service/internal/adaptive"
	"adaptive-quiz-service/internal/domain"
	"adaptive-quiz-service/internal/quizgen"
	"adaptive-quiz-service/internal/scoring"
)

// QuestionGenerator produces validated questions for a quiz.
type QuestionGenerator interface {
	Generate(ctx context.Context, in quizgen.Input) ([]domain.Question, error)
}

// ParameterBuilder turns a graded result into follow-up quiz parameters.
type ParameterBuilder interface {
	Build(ctx context.Context, src adaptive.Source) domain.AdaptiveGenerationRequest
}

// QuizServiceConfig bounds generation requests.
type QuizServiceConfig struct {
	MaxQuestions      int
	GenerationTimeout time.Duration
}

// GenerateParams describes a new quiz.
type GenerateParams struct {
	Topic            string                `json:"topic"`
	Title            string                `json:"title"`
	Difficulty       domain.Difficulty     `json:"difficulty"`
	QuestionTypes    []domain.QuestionType `json:"questionTypes"`
	QuestionCount    int                   `json:"questionCount"`
	TimeLimitSeconds int                   `json:"timeLimitSeconds"`
	IsPublic         bool                  `json:"isPublic"`
}

// AdaptiveParams describes a follow-up quiz. QuestionCount 0 reuses the source quiz's count.
type AdaptiveParams struct {
	ResultSlug          string `json:"resultSlug"`
	FocusOnWeakAreas    bool   `json:"focusOnWeakAreas"`
	UseHarderDifficulty bool   `json:"useHarderDifficulty"`
	QuestionCount       int    `json:"questionCount"`
}

// QuizService creates quizzes and manages their visibility.
type QuizService struct {
	store     QuizStore
	quizzes   QuizRepository
	results   ResultRepository
	generator QuestionGenerator
	builder   ParameterBuilder
	cfg       QuizServiceConfig
	now       func() time.Time
}

func NewQuizService(store QuizStore, quizzes QuizRepository, results ResultRepository, generator QuestionGenerator, builder ParameterBuilder, cfg QuizServiceConfig) *QuizService {
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = 50
	}
	return &QuizService{
		store:     store,
		quizzes:   quizzes,
		results:   results,
		generator: generator,
		builder:   builder,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Generate asks the generator for questions and stores the quiz only once they validate.
func (s *QuizService) Generate(ctx context.Context, userID string, p GenerateParams) (domain.Quiz, error) {
	p.Topic = strings.TrimSpace(p.Topic)
	if err := s.validate(p.Topic, p.Difficulty, p.QuestionTypes, p.QuestionCount); err != nil {
		return domain.Quiz{}, err
	}
	if p.TimeLimitSeconds < 0 {
		return domain.Quiz{}, domain.Errorf(domain.KindInvalidArgument, "timeLimitSeconds must not be negative")
	}

	in := quizgen.Input{
		Topic:         p.Topic,
		Difficulty:    p.Difficulty,
		QuestionTypes: p.QuestionTypes,
		QuestionCount: p.QuestionCount,
	}
	questions, err := s.generate(ctx, in)
	if err != nil {
		return domain.Quiz{}, err
	}

	quiz := s.newQuiz(userID, p.Title, in, questions)
	quiz.TimeLimitSeconds = p.TimeLimitSeconds
	quiz.IsPublic = p.IsPublic
	if err := s.store.CreateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	log.Printf("quiz %s: created for %s (%d questions)", quiz.Slug, userID, quiz.QuestionCount)
	return quiz, nil
}

// GenerateAdaptive builds a private follow-up quiz from one of the user's results.
func (s *QuizService) GenerateAdaptive(ctx context.Context, userID string, p AdaptiveParams) (domain.Quiz, error) {
	result, err := s.results.GetResult(ctx, p.ResultSlug)
	if err != nil {
		return domain.Quiz{}, err
	}
	if result.UserID != userID {
		return domain.Quiz{}, domain.ErrNotOwner
	}
	source, err := s.quizzes.GetQuiz(ctx, result.QuizSlug)
	if err != nil {
		return domain.Quiz{}, err
	}

	count := p.QuestionCount
	if count == 0 {
		count = source.QuestionCount
	}
	if err := s.validate(source.Topic, source.Difficulty, source.QuestionTypes, count); err != nil {
		return domain.Quiz{}, err
	}

	req := s.builder.Build(ctx, adaptive.Source{
		Topic:               source.Topic,
		Difficulty:          source.Difficulty,
		QuestionTypes:       source.QuestionTypes,
		QuestionCount:       count,
		WrongAnswers:        scoring.WrongAnswers(source, result),
		FocusOnWeakAreas:    p.FocusOnWeakAreas,
		UseHarderDifficulty: p.UseHarderDifficulty,
	})

	in := quizgen.Input{
		Topic:         req.Topic,
		Difficulty:    req.Difficulty,
		QuestionTypes: req.QuestionTypes,
		QuestionCount: req.QuestionCount,
		Adaptive:      &req,
	}
	questions, err := s.generate(ctx, in)
	if err != nil {
		return domain.Quiz{}, err
	}

	quiz := s.newQuiz(userID, "", in, questions)
	quiz.TimeLimitSeconds = source.TimeLimitSeconds
	quiz.IsAdaptive = true
	quiz.IsPublic = false
	quiz.Lineage = &domain.Lineage{
		RootQuizSlug:     source.RootSlug(),
		SourceResultSlug: result.Slug,
		Kind:             req.Kind,
	}
	if err := s.store.CreateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	log.Printf("quiz %s: adaptive %s follow-up of %s (weak topics: %s)", quiz.Slug, req.Kind, quiz.Lineage.RootQuizSlug, strings.Join(req.WeakTopics, ", "))
	return quiz, nil
}

// Get returns a quiz the user may see.
func (s *QuizService) Get(ctx context.Context, userID, slug string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, slug)
	if err != nil {
		return domain.Quiz{}, err
	}
	if !quiz.AccessibleBy(userID) {
		return domain.Quiz{}, domain.ErrQuizNotAccessible
	}
	return quiz, nil
}

// SetVisibility publishes or hides a quiz. Adaptive quizzes stay private.
func (s *QuizService) SetVisibility(ctx context.Context, userID, slug string, public bool) (domain.Quiz, error) {
	quiz, err := s.store.LoadQuiz(ctx, slug)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.OwnerID != userID {
		return domain.Quiz{}, domain.ErrNotOwner
	}
	if public && quiz.IsAdaptive {
		return domain.Quiz{}, domain.ErrAdaptiveQuizPublic
	}
	if quiz.IsPublic == public {
		return quiz, nil
	}
	if err := s.store.SetQuizPublic(ctx, slug, public); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.quizzes.Invalidate(ctx, slug); err != nil {
		log.Printf("quiz %s: cache invalidation failed: %v", slug, err)
	}
	quiz.IsPublic = public
	return quiz, nil
}

func (s *QuizService) validate(topic string, difficulty domain.Difficulty, types []domain.QuestionType, count int) error {
	switch {
	case topic == "":
		return domain.Errorf(domain.KindInvalidArgument, "topic is required")
	case count < 1 || count > s.cfg.MaxQuestions:
		return domain.Errorf(domain.KindInvalidArgument, "questionCount must be between 1 and %d", s.cfg.MaxQuestions)
	case !difficulty.Valid():
		return domain.Errorf(domain.KindInvalidArgument, "unknown difficulty %q", difficulty)
	case len(types) == 0:
		return domain.Errorf(domain.KindInvalidArgument, "at least one question type is required")
	}
	if unknown, ok := lo.Find(types, func(t domain.QuestionType) bool { return !t.Known() }); ok {
		return domain.Errorf(domain.KindInvalidArgument, "unknown question type %q", unknown)
	}
	return nil
}

func (s *QuizService) generate(ctx context.Context, in quizgen.Input) ([]domain.Question, error) {
	if s.cfg.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.GenerationTimeout)
		defer cancel()
	}
	questions, err := s.generator.Generate(ctx, in)
	if err != nil {
		log.Printf("quiz generation failed (%s): %v", in.Describe(), err)
		return nil, err
	}
	return questions, nil
}

// newQuiz declares the count of questions that survived validation, which may be below the request.
func (s *QuizService) newQuiz(userID, title string, in quizgen.Input, questions []domain.Question) domain.Quiz {
	title = strings.TrimSpace(title)
	if title == "" {
		title = in.Topic + " quiz"
	}
	return domain.Quiz{
		Slug:          domain.NewQuizSlug(in.Topic),
		Title:         title,
		Topic:         in.Topic,
		Difficulty:    in.Difficulty,
		QuestionTypes: lo.Uniq(in.QuestionTypes),
		QuestionCount: len(questions),
		Questions:     questions,
		OwnerID:       userID,
		CreatedAt:     s.now().UTC(),
	}
}
