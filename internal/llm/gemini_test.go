package llm

import (
	"testing"

	"google.golang.org/genai"
)

func TestGeminiSchema_QuestionShape(t *testing.T) {
	def := map[string]any{
		"type":     "object",
		"required": []any{"questions"},
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"questionType":   map[string]any{"type": "string", "enum": []any{"mcq", "true-false"}},
						"correctAnswers": map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
					},
				},
			},
		},
	}

	s := geminiSchema(def)
	if s.Type != genai.TypeObject || len(s.Required) != 1 || s.Required[0] != "questions" {
		t.Fatalf("unexpected root: %+v", s)
	}
	item := s.Properties["questions"].Items
	if item == nil || item.Type != genai.TypeObject {
		t.Fatalf("expected object items, got %+v", item)
	}
	if got := item.Properties["questionType"].Enum; len(got) != 2 || got[1] != "true-false" {
		t.Fatalf("unexpected enum: %v", got)
	}
	if got := item.Properties["correctAnswers"].Items.Type; got != genai.TypeInteger {
		t.Fatalf("expected integer items, got %v", got)
	}
}
