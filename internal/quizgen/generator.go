package quizgen

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"adaptive-quiz-service/internal/domain"
	"adaptive-quiz-service/internal/llm"
)

// Config controls generation requests.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns the defaults used for quiz batches.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   4096,
		Temperature: 0.7,
	}
}

// Input describes the quiz to generate. Adaptive is set for follow-up quizzes.
type Input struct {
	Topic         string
	Difficulty    domain.Difficulty
	QuestionTypes []domain.QuestionType
	QuestionCount int
	Adaptive      *domain.AdaptiveGenerationRequest
}

// Generator turns an Input into validated questions using an llm.Provider.
type Generator struct {
	provider llm.Provider
	config   Config
}

// NewGenerator creates a Generator.
func NewGenerator(provider llm.Provider, cfg Config) *Generator {
	return &Generator{provider: provider, config: cfg}
}

type questionsOutput struct {
	Questions []any `json:"questions"`
}

// Generate asks the provider for questions and returns the ones that pass
// validation, trimmed to in.QuestionCount. The result may be shorter than
// requested when candidates are rejected.
func (g *Generator) Generate(ctx context.Context, in Input) ([]domain.Question, error) {
	purpose := "quiz-generation"
	if in.Adaptive != nil {
		purpose = "adaptive-quiz-generation"
	}
	ctx = llm.WithPurpose(ctx, purpose)

	req := llm.UserRequest(systemPrompt, buildUserMessage(in), QuestionsSchema, g.config.MaxTokens, g.config.Temperature)
	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return nil, domain.Wrap(domain.KindUpstreamFailure, "question generation failed", err)
	}

	var out questionsOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, domain.Wrap(domain.KindUpstreamFailure, "question generation returned malformed output", err)
	}

	questions, rejected, err := ValidateCandidates(out.Questions, in.QuestionTypes)
	if err != nil {
		return nil, err
	}
	if len(rejected) > 0 {
		log.Printf("quizgen: topic=%q kept %d of %d candidates", in.Topic, len(questions), len(out.Questions))
	}
	if len(questions) > in.QuestionCount {
		questions = questions[:in.QuestionCount]
	}
	return questions, nil
}

// Describe is a short label for logs.
func (in Input) Describe() string {
	return fmt.Sprintf("topic=%q difficulty=%s count=%d", in.Topic, in.Difficulty, in.QuestionCount)
}
