package quizgen

import (
	"fmt"
	"strings"

	"adaptive-quiz-service/internal/domain"
)

const systemPrompt = `You are an expert quiz author writing multiple-choice questions.

Rules:
- Respond with a JSON object of the form {"questions": [...]}.
- Every question has "question", "questionType", "options", "correctAnswers" and "explanation".
- "questionType" is one of: "mcq" (exactly one correct option), "true-false" (exactly two options, one correct), "multiple-correct" (two or more correct options).
- "correctAnswers" holds 0-based indices into "options".
- Options must be distinct, non-empty and plausible. Distractors should reflect common mistakes.
- Only use the question types you are asked for.
- Keep explanations to one or two sentences.`

var difficultyGuidance = map[domain.Difficulty]string{
	domain.DifficultyEasy:   "Test recall of core facts and definitions.",
	domain.DifficultyMedium: "Test understanding and straightforward application.",
	domain.DifficultyHard:   "Test analysis, edge cases and multi-step reasoning.",
}

// maxWrongAnswersInPrompt bounds how many missed questions are quoted back.
const maxWrongAnswersInPrompt = 10

func buildUserMessage(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Topic: %s\n", in.Topic)
	fmt.Fprintf(&b, "Difficulty: %s\n", in.Difficulty)
	if g, ok := difficultyGuidance[in.Difficulty]; ok {
		fmt.Fprintf(&b, "Difficulty guidance: %s\n", g)
	}
	types := make([]string, len(in.QuestionTypes))
	for i, t := range in.QuestionTypes {
		types[i] = string(t)
	}
	fmt.Fprintf(&b, "Question types: %s\n", strings.Join(types, ", "))
	fmt.Fprintf(&b, "Number of questions: %d\n", in.QuestionCount)

	if in.Adaptive != nil {
		b.WriteString("\n")
		b.WriteString(buildAdaptiveGuidance(*in.Adaptive))
	}
	return b.String()
}

func buildAdaptiveGuidance(req domain.AdaptiveGenerationRequest) string {
	var b strings.Builder

	b.WriteString("This is a follow-up quiz for a learner who already attempted this topic.\n")
	if req.UseHarderDifficulty {
		b.WriteString("The learner is ready for a step up: make the questions noticeably more demanding than before.\n")
	}

	if req.WeakTopicQuestionCount > 0 && len(req.WeakTopics) > 0 {
		fmt.Fprintf(&b, "Aim %d of the %d questions at these weak areas: %s.\n",
			req.WeakTopicQuestionCount, req.QuestionCount, strings.Join(req.WeakTopics, "; "))
		if rest := req.QuestionCount - req.WeakTopicQuestionCount; rest > 0 {
			fmt.Fprintf(&b, "Use the remaining %d questions for general coverage of the topic.\n", rest)
		}
	}

	if len(req.WrongAnswers) > 0 {
		b.WriteString("Questions the learner got wrong (do not repeat them verbatim; reinforce the same ideas):\n")
		wrong := req.WrongAnswers
		if len(wrong) > maxWrongAnswersInPrompt {
			wrong = wrong[:maxWrongAnswersInPrompt]
		}
		for i, w := range wrong {
			fmt.Fprintf(&b, "%d. %s\n", i+1, w.QuestionText)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
