package quizgen

import "adaptive-quiz-service/internal/llm"

// QuestionsSchema asks the generator for a batch of questions. Only the
// envelope is validated at the provider boundary; items go through
// ValidateCandidates so one bad question does not sink the batch.
var QuestionsSchema = &llm.Schema{
	Name:        "quiz-questions",
	Description: "A batch of multiple-choice quiz questions",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{
							"type":        "string",
							"description": "The question text",
						},
						"questionType": map[string]any{
							"type": "string",
							"enum": []any{"mcq", "true-false", "multiple-correct"},
						},
						"options": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Answer options, in display order",
						},
						"correctAnswers": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "integer"},
							"description": "0-based indices of the correct options",
						},
						"explanation": map[string]any{
							"type":        "string",
							"description": "Why the correct options are correct",
						},
					},
					"required": []any{"question", "questionType", "options", "correctAnswers", "explanation"},
				},
			},
		},
		"required": []any{"questions"},
	},
	Validation: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{"type": "array"},
		},
		"required": []any{"questions"},
	},
}
