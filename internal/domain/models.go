package domain

import (
	"sort"
	"time"
)

// QuestionType is the tagged variant of a question. Values are the generator's wire tags.
type QuestionType string

const (
	// QuestionSingleChoice has exactly one correct option.
	QuestionSingleChoice QuestionType = "mcq"
	// QuestionBinary has exactly two options (true/false style).
	QuestionBinary QuestionType = "true-false"
	// QuestionMultiChoice has two or more correct options.
	QuestionMultiChoice QuestionType = "multiple-correct"
)

// QuestionTypes lists every known type tag.
var QuestionTypes = []QuestionType{QuestionSingleChoice, QuestionBinary, QuestionMultiChoice}

// Known reports whether t is one of the three type tags.
func (t QuestionType) Known() bool {
	switch t {
	case QuestionSingleChoice, QuestionBinary, QuestionMultiChoice:
		return true
	}
	return false
}

// Difficulty is the generation difficulty tier.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is a known tier.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Harder returns the next tier up; hard stays hard.
func (d Difficulty) Harder() Difficulty {
	switch d {
	case DifficultyEasy:
		return DifficultyMedium
	case DifficultyMedium, DifficultyHard:
		return DifficultyHard
	}
	return d
}

// Question is a validated multiple-choice question.
type Question struct {
	Text           string       `json:"question"`
	Type           QuestionType `json:"questionType"`
	Options        []string     `json:"options"`
	CorrectAnswers []int        `json:"correctAnswers"`
	Explanation    string       `json:"explanation"`
}

// AdaptiveKind classifies why an adaptive quiz was generated.
type AdaptiveKind string

const (
	AdaptiveHarder    AdaptiveKind = "harder"
	AdaptiveWeakFocus AdaptiveKind = "weak-focus"
	AdaptiveSameLevel AdaptiveKind = "same-level-reinforcement"
)

// Lineage links an adaptive quiz to the quiz family it descends from.
type Lineage struct {
	RootQuizSlug     string       `json:"rootQuizSlug"`
	SourceResultSlug string       `json:"sourceResultSlug"`
	Kind             AdaptiveKind `json:"kind"`
}

// Quiz is an immutable quiz definition. Only IsPublic may change after creation.
type Quiz struct {
	Slug             string         `json:"slug"`
	Title            string         `json:"title"`
	Topic            string         `json:"topic"`
	Difficulty       Difficulty     `json:"difficulty"`
	QuestionTypes    []QuestionType `json:"questionTypes"`
	QuestionCount    int            `json:"questionCount"`
	Questions        []Question     `json:"questions"`
	OwnerID          string         `json:"ownerId"`
	IsPublic         bool           `json:"isPublic"`
	IsAdaptive       bool           `json:"isAdaptive"`
	Lineage          *Lineage       `json:"lineage,omitempty"`
	TimeLimitSeconds int            `json:"timeLimitSeconds,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
}

// AccessibleBy reports whether userID may attempt or view the quiz.
func (q Quiz) AccessibleBy(userID string) bool {
	return q.IsPublic || q.OwnerID == userID
}

// RootSlug is the slug adaptive children of this quiz should chain to.
func (q Quiz) RootSlug() string {
	if q.IsAdaptive && q.Lineage != nil && q.Lineage.RootQuizSlug != "" {
		return q.Lineage.RootQuizSlug
	}
	return q.Slug
}

// AttemptStatus is the lifecycle state of an attempt.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in-progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptAbandoned  AttemptStatus = "abandoned"
)

// Terminal reports whether no further transitions are possible.
func (s AttemptStatus) Terminal() bool {
	return s == AttemptCompleted || s == AttemptAbandoned
}

// SubmittedAnswer is the latest selection for one question.
type SubmittedAnswer struct {
	QuestionIndex int       `json:"questionIndex"`
	Selected      []int     `json:"selected"`
	AnsweredAt    time.Time `json:"answeredAt"`
}

// Attempt is one user's pass through a quiz. Answers keep first-insertion order with one entry per index.
type Attempt struct {
	Slug        string            `json:"slug"`
	QuizSlug    string            `json:"quizSlug"`
	UserID      string            `json:"userId"`
	Answers     []SubmittedAnswer `json:"answers"`
	Status      AttemptStatus     `json:"status"`
	StartedAt   time.Time         `json:"startedAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
}

// Answer returns the stored answer for a question index.
func (a Attempt) Answer(questionIndex int) (SubmittedAnswer, bool) {
	for _, ans := range a.Answers {
		if ans.QuestionIndex == questionIndex {
			return ans, true
		}
	}
	return SubmittedAnswer{}, false
}

// UpsertAnswer replaces the answer for ans.QuestionIndex in place, or appends it.
func (a *Attempt) UpsertAnswer(ans SubmittedAnswer) {
	for i := range a.Answers {
		if a.Answers[i].QuestionIndex == ans.QuestionIndex {
			a.Answers[i] = ans
			return
		}
	}
	a.Answers = append(a.Answers, ans)
}

// GradedAnswer is the outcome for a single question.
type GradedAnswer struct {
	QuestionIndex int   `json:"questionIndex"`
	Selected      []int `json:"selected"`
	Correct       []int `json:"correct"`
	IsCorrect     bool  `json:"isCorrect"`
}

// Result is the graded outcome of a completed attempt. Only IsPublic is ever mutated.
type Result struct {
	Slug             string         `json:"slug"`
	UserID           string         `json:"userId"`
	QuizSlug         string         `json:"quizSlug"`
	AttemptSlug      string         `json:"attemptSlug"`
	Topic            string         `json:"topic"`
	Answers          []GradedAnswer `json:"answers"`
	Score            int            `json:"score"`
	TotalQuestions   int            `json:"totalQuestions"`
	Percentage       float64        `json:"percentage"`
	TimeTakenSeconds int            `json:"timeTakenSeconds"`
	OverTimeLimit    bool           `json:"overTimeLimit"`
	CompletedAt      time.Time      `json:"completedAt"`
	IsPublic         bool           `json:"isPublic"`
}

// VisibleTo reports whether userID may read the result.
func (r Result) VisibleTo(userID string) bool {
	return r.IsPublic || r.UserID == userID
}

// WrongAnswer carries an incorrectly answered question into adaptive generation.
type WrongAnswer struct {
	QuestionText string       `json:"question"`
	QuestionType QuestionType `json:"questionType"`
	Options      []string     `json:"options"`
	Explanation  string       `json:"explanation"`
	Selected     []int        `json:"selected"`
	Correct      []int        `json:"correct"`
}

// AdaptiveGenerationRequest is the fully specified input for an adaptive quiz. Not persisted.
type AdaptiveGenerationRequest struct {
	Topic                  string
	Difficulty             Difficulty
	QuestionTypes          []QuestionType
	QuestionCount          int
	WrongAnswers           []WrongAnswer
	FocusOnWeakAreas       bool
	UseHarderDifficulty    bool
	WeakTopics             []string
	WeakTopicQuestionCount int
	Kind                   AdaptiveKind
}

// NormalizeSelection returns the selection as a sorted set.
func NormalizeSelection(selected []int) []int {
	out := make([]int, 0, len(selected))
	seen := make(map[int]struct{}, len(selected))
	for _, idx := range selected {
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
