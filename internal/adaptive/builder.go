// Package adaptive turns a graded result into the parameters of a follow-up quiz.
package adaptive

import (
	"context"
	"math"

	"adaptive-quiz-service/internal/domain"
)

// WeakTopicShare is the fraction of questions aimed at weak topics when focusing.
const WeakTopicShare = 0.75

// TopicExtractor names weak sub-topics. Implementations must not fail; see WeakTopicExtractor.
type TopicExtractor interface {
	Extract(ctx context.Context, wrong []domain.WrongAnswer, topic string) []string
}

// Source describes the original quiz settings and the learner's choices.
type Source struct {
	Topic               string
	Difficulty          domain.Difficulty
	QuestionTypes       []domain.QuestionType
	QuestionCount       int
	WrongAnswers        []domain.WrongAnswer
	FocusOnWeakAreas    bool
	UseHarderDifficulty bool
}

// Builder produces AdaptiveGenerationRequests.
type Builder struct {
	extractor TopicExtractor
}

// NewBuilder creates a Builder.
func NewBuilder(extractor TopicExtractor) *Builder {
	return &Builder{extractor: extractor}
}

// Build derives the follow-up request. The extractor is consulted only when
// the learner asked to focus on weak areas and actually missed something.
func (b *Builder) Build(ctx context.Context, src Source) domain.AdaptiveGenerationRequest {
	req := domain.AdaptiveGenerationRequest{
		Topic:               src.Topic,
		Difficulty:          src.Difficulty,
		QuestionTypes:       src.QuestionTypes,
		QuestionCount:       src.QuestionCount,
		WrongAnswers:        src.WrongAnswers,
		UseHarderDifficulty: src.UseHarderDifficulty,
		FocusOnWeakAreas:    src.FocusOnWeakAreas && len(src.WrongAnswers) > 0,
		WeakTopics:          []string{},
	}
	if src.UseHarderDifficulty {
		req.Difficulty = src.Difficulty.Harder()
	}

	if req.FocusOnWeakAreas && b.extractor != nil {
		req.WeakTopics = b.extractor.Extract(ctx, src.WrongAnswers, src.Topic)
		if len(req.WeakTopics) > 0 {
			req.WeakTopicQuestionCount = WeakTopicQuestionCount(src.QuestionCount)
		}
	}

	req.Kind = Classify(req.UseHarderDifficulty, req.FocusOnWeakAreas)
	return req
}

// WeakTopicQuestionCount is ceil(WeakTopicShare * count).
func WeakTopicQuestionCount(count int) int {
	return int(math.Ceil(WeakTopicShare * float64(count)))
}

// Classify picks the lineage kind: harder wins over weak-focus, which wins over reinforcement.
func Classify(harder, effectiveFocus bool) domain.AdaptiveKind {
	switch {
	case harder:
		return domain.AdaptiveHarder
	case effectiveFocus:
		return domain.AdaptiveWeakFocus
	default:
		return domain.AdaptiveSameLevel
	}
}
