package quizgen

import (
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/samber/lo"

	"adaptive-quiz-service/internal/domain"
)

// DefaultExplanation is stored when a candidate carries no explanation.
const DefaultExplanation = "No explanation provided."

// Rule names, in evaluation order.
const (
	RuleShape          = "shape"
	RuleQuestionType   = "question-type"
	RulePermittedType  = "permitted-type"
	RuleOptions        = "options"
	RuleOptionText     = "option-text"
	RuleOptionUnique   = "option-unique"
	RuleCorrectAnswers = "correct-answers"
	RuleCardinality    = "cardinality"
	RuleQuestionText   = "question-text"
)

// Rejection records why a candidate was dropped.
type Rejection struct {
	Index   int
	Rule    string
	Message string
}

func (r Rejection) Error() string {
	return fmt.Sprintf("candidate %d rejected by %q: %s", r.Index, r.Rule, r.Message)
}

// ValidateCandidates keeps the candidates that satisfy every rule, in input order.
// Rules short-circuit per candidate; each rejection is logged. When nothing
// survives the error is domain.ErrNoValidQuestions.
func ValidateCandidates(candidates []any, permitted []domain.QuestionType) ([]domain.Question, []Rejection, error) {
	var (
		valid    []domain.Question
		rejected []Rejection
	)
	for i, c := range candidates {
		q, rej := validateCandidate(c, permitted)
		if rej != nil {
			rej.Index = i
			log.Printf("quizgen: dropping candidate %d: rule=%s: %s", i, rej.Rule, rej.Message)
			rejected = append(rejected, *rej)
			continue
		}
		valid = append(valid, q)
	}
	if len(valid) == 0 {
		return nil, rejected, domain.ErrNoValidQuestions
	}
	return valid, rejected, nil
}

func reject(rule, format string, args ...any) *Rejection {
	return &Rejection{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

func validateCandidate(c any, permitted []domain.QuestionType) (domain.Question, *Rejection) {
	fields, ok := c.(map[string]any)
	if !ok {
		return domain.Question{}, reject(RuleShape, "candidate is not an object")
	}

	tag, _ := fields["questionType"].(string)
	qType := domain.QuestionType(strings.TrimSpace(tag))
	if !qType.Known() {
		return domain.Question{}, reject(RuleQuestionType, "unknown question type %q", tag)
	}
	if !lo.Contains(permitted, qType) {
		return domain.Question{}, reject(RulePermittedType, "question type %q was not requested", qType)
	}

	rawOptions, ok := fields["options"].([]any)
	if !ok || len(rawOptions) < 2 {
		return domain.Question{}, reject(RuleOptions, "options must be an array of at least 2 entries")
	}
	options := make([]string, 0, len(rawOptions))
	for j, o := range rawOptions {
		s, ok := o.(string)
		s = strings.TrimSpace(s)
		if !ok || s == "" {
			return domain.Question{}, reject(RuleOptionText, "option %d is empty or not a string", j)
		}
		options = append(options, s)
	}
	folded := lo.Map(options, func(s string, _ int) string { return strings.ToLower(s) })
	if len(lo.Uniq(folded)) != len(folded) {
		return domain.Question{}, reject(RuleOptionUnique, "options are not unique")
	}

	correct, msg := parseCorrectAnswers(fields["correctAnswers"], len(options))
	if msg != "" {
		return domain.Question{}, reject(RuleCorrectAnswers, "%s", msg)
	}

	switch qType {
	case domain.QuestionBinary:
		if len(options) != 2 {
			return domain.Question{}, reject(RuleCardinality, "true-false needs exactly 2 options, got %d", len(options))
		}
		if len(correct) != 1 {
			return domain.Question{}, reject(RuleCardinality, "true-false needs exactly 1 correct answer, got %d", len(correct))
		}
	case domain.QuestionSingleChoice:
		if len(correct) != 1 {
			return domain.Question{}, reject(RuleCardinality, "mcq needs exactly 1 correct answer, got %d", len(correct))
		}
	case domain.QuestionMultiChoice:
		if len(correct) < 2 {
			return domain.Question{}, reject(RuleCardinality, "multiple-correct needs at least 2 correct answers, got %d", len(correct))
		}
	}

	text := stringField(fields, "question")
	if text == "" {
		text = stringField(fields, "text")
	}
	if text == "" {
		return domain.Question{}, reject(RuleQuestionText, "question text is empty")
	}

	explanation := stringField(fields, "explanation")
	if explanation == "" {
		explanation = DefaultExplanation
	}

	return domain.Question{
		Text:           text,
		Type:           qType,
		Options:        options,
		CorrectAnswers: domain.NormalizeSelection(correct),
		Explanation:    explanation,
	}, nil
}

// parseCorrectAnswers returns the indices or a non-empty reason.
func parseCorrectAnswers(v any, optionCount int) ([]int, string) {
	raw, ok := v.([]any)
	if !ok || len(raw) == 0 {
		return nil, "correctAnswers must be a non-empty array"
	}
	seen := make(map[int]bool, len(raw))
	out := make([]int, 0, len(raw))
	for _, r := range raw {
		idx, ok := asIndex(r)
		if !ok {
			return nil, fmt.Sprintf("correctAnswers entry %v is not an integer", r)
		}
		if idx < 0 || idx >= optionCount {
			return nil, fmt.Sprintf("correctAnswers entry %d is out of range for %d options", idx, optionCount)
		}
		if seen[idx] {
			return nil, fmt.Sprintf("correctAnswers entry %d is duplicated", idx)
		}
		seen[idx] = true
		out = append(out, idx)
	}
	return out, ""
}

func asIndex(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return strings.TrimSpace(s)
}
