// Package scoring grades attempts against quiz definitions. All functions are pure.
package scoring

import (
	"slices"

	"github.com/samber/lo"

	"adaptive-quiz-service/internal/domain"
)

// Outcome is the graded form of an attempt.
type Outcome struct {
	Score   int
	Total   int
	Answers []domain.GradedAnswer
}

// Percentage of correct answers in [0, 100].
func (o Outcome) Percentage() float64 {
	return Percentage(o.Score, o.Total)
}

// Grade scores every question of quiz in index order. Unanswered questions
// count as an empty selection and are never correct. There is no partial credit.
func Grade(quiz domain.Quiz, attempt domain.Attempt) (Outcome, error) {
	if quiz.QuestionCount != len(quiz.Questions) {
		return Outcome{}, domain.ErrQuizInconsistent
	}

	out := Outcome{
		Total:   quiz.QuestionCount,
		Answers: make([]domain.GradedAnswer, 0, quiz.QuestionCount),
	}
	for i, q := range quiz.Questions {
		selected := []int{}
		if ans, ok := attempt.Answer(i); ok {
			selected = domain.NormalizeSelection(ans.Selected)
		}
		correct := domain.NormalizeSelection(q.CorrectAnswers)
		graded := domain.GradedAnswer{
			QuestionIndex: i,
			Selected:      selected,
			Correct:       correct,
			IsCorrect:     IsCorrect(selected, correct),
		}
		if graded.IsCorrect {
			out.Score++
		}
		out.Answers = append(out.Answers, graded)
	}
	return out, nil
}

// IsCorrect reports exact set equality. An empty selection is never correct.
func IsCorrect(selected, correct []int) bool {
	if len(selected) == 0 {
		return false
	}
	return slices.Equal(domain.NormalizeSelection(selected), domain.NormalizeSelection(correct))
}

// Percentage returns 100*score/total, or 0 when total is 0.
func Percentage(score, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(score) / float64(total)
}

// WrongAnswers pairs each incorrect graded answer with its question.
func WrongAnswers(quiz domain.Quiz, result domain.Result) []domain.WrongAnswer {
	missed := lo.Filter(result.Answers, func(a domain.GradedAnswer, _ int) bool {
		return !a.IsCorrect && a.QuestionIndex >= 0 && a.QuestionIndex < len(quiz.Questions)
	})
	return lo.Map(missed, func(a domain.GradedAnswer, _ int) domain.WrongAnswer {
		q := quiz.Questions[a.QuestionIndex]
		return domain.WrongAnswer{
			QuestionText: q.Text,
			QuestionType: q.Type,
			Options:      q.Options,
			Explanation:  q.Explanation,
			Selected:     a.Selected,
			Correct:      a.Correct,
		}
	})
}
