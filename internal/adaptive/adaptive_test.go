package adaptive

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaptive-quiz-service/internal/domain"
	"adaptive-quiz-service/internal/llm"
)

type countingExtractor struct {
	calls  int
	topics []string
}

func (c *countingExtractor) Extract(_ context.Context, _ []domain.WrongAnswer, _ string) []string {
	c.calls++
	return c.topics
}

func wrongAnswers(n int) []domain.WrongAnswer {
	out := make([]domain.WrongAnswer, n)
	for i := range out {
		out[i] = domain.WrongAnswer{QuestionText: "missed", QuestionType: domain.QuestionSingleChoice, Explanation: "because"}
	}
	return out
}

func source() Source {
	return Source{
		Topic:         "Go concurrency",
		Difficulty:    domain.DifficultyEasy,
		QuestionTypes: []domain.QuestionType{domain.QuestionSingleChoice},
		QuestionCount: 10,
	}
}

func TestBuild_FocusWithoutWrongAnswersIsDisabled(t *testing.T) {
	ext := &countingExtractor{topics: []string{"channels"}}
	src := source()
	src.FocusOnWeakAreas = true

	req := NewBuilder(ext).Build(context.Background(), src)

	assert.False(t, req.FocusOnWeakAreas)
	assert.Equal(t, 0, ext.calls)
	assert.Empty(t, req.WeakTopics)
	assert.Equal(t, 0, req.WeakTopicQuestionCount)
	assert.Equal(t, domain.AdaptiveSameLevel, req.Kind)
}

func TestBuild_WeakFocus(t *testing.T) {
	ext := &countingExtractor{topics: []string{"select statements", "channel closing"}}
	src := source()
	src.FocusOnWeakAreas = true
	src.WrongAnswers = wrongAnswers(3)

	req := NewBuilder(ext).Build(context.Background(), src)

	assert.True(t, req.FocusOnWeakAreas)
	assert.Equal(t, 1, ext.calls)
	assert.Equal(t, []string{"select statements", "channel closing"}, req.WeakTopics)
	assert.Equal(t, 8, req.WeakTopicQuestionCount)
	assert.Equal(t, domain.AdaptiveWeakFocus, req.Kind)
	assert.Equal(t, domain.DifficultyEasy, req.Difficulty)
}

func TestBuild_FocusButExtractorFindsNothing(t *testing.T) {
	ext := &countingExtractor{topics: []string{}}
	src := source()
	src.FocusOnWeakAreas = true
	src.WrongAnswers = wrongAnswers(1)

	req := NewBuilder(ext).Build(context.Background(), src)

	assert.Equal(t, 0, req.WeakTopicQuestionCount)
	assert.Equal(t, domain.AdaptiveWeakFocus, req.Kind)
}

func TestBuild_HarderWins(t *testing.T) {
	ext := &countingExtractor{topics: []string{"mutexes"}}
	src := source()
	src.Difficulty = domain.DifficultyMedium
	src.FocusOnWeakAreas = true
	src.UseHarderDifficulty = true
	src.WrongAnswers = wrongAnswers(2)

	req := NewBuilder(ext).Build(context.Background(), src)

	assert.Equal(t, domain.DifficultyHard, req.Difficulty)
	assert.Equal(t, domain.AdaptiveHarder, req.Kind)
	assert.Equal(t, 1, ext.calls)
}

func TestBuild_HardStaysHard(t *testing.T) {
	src := source()
	src.Difficulty = domain.DifficultyHard
	src.UseHarderDifficulty = true

	req := NewBuilder(nil).Build(context.Background(), src)
	assert.Equal(t, domain.DifficultyHard, req.Difficulty)
}

func TestWeakTopicQuestionCount(t *testing.T) {
	cases := map[int]int{1: 1, 4: 3, 5: 4, 10: 8, 20: 15}
	for count, want := range cases {
		assert.Equal(t, want, WeakTopicQuestionCount(count), "count=%d", count)
	}
}

func TestExtract_EmptyInputMakesNoCall(t *testing.T) {
	mock := llm.NewMockProvider()
	ext := NewWeakTopicExtractor(mock, DefaultExtractorConfig())

	got := ext.Extract(context.Background(), nil, "Go")
	assert.Empty(t, got)
	assert.Equal(t, 0, mock.CallCount())
}

func TestExtract_CleansLabels(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"topics":[" Goroutine leaks ","goroutine leaks","",42,"Select fairness","Buffered channels","Context cancellation","Mutex copying","WaitGroup reuse"]}`),
	})
	ext := NewWeakTopicExtractor(mock, DefaultExtractorConfig())

	got := ext.Extract(context.Background(), wrongAnswers(2), "Go concurrency")
	require.Len(t, got, MaxWeakTopics)
	assert.Equal(t, "Goroutine leaks", got[0])
	assert.Equal(t, "Select fairness", got[1])

	require.Equal(t, 1, mock.CallCount())
	prompt := mock.Calls[0].Messages[0].Content
	assert.Contains(t, prompt, "Topic: Go concurrency")
	assert.Contains(t, prompt, "1. missed")
	assert.Contains(t, prompt, "2. missed")
}

func TestExtract_FailOpen(t *testing.T) {
	cases := map[string]llm.MockResponse{
		"provider error": {Err: errors.New("boom")},
		"wrong shape":    {Content: json.RawMessage(`{"labels":["x"]}`)},
		"not json":       {Content: json.RawMessage(`nope`)},
		"no labels":      {Content: json.RawMessage(`{"topics":[]}`)},
	}
	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			ext := NewWeakTopicExtractor(llm.NewMockProvider(resp), DefaultExtractorConfig())
			got := ext.Extract(context.Background(), wrongAnswers(1), "Go")
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestExtract_Timeout(t *testing.T) {
	cfg := DefaultExtractorConfig()
	cfg.Timeout = 10 * time.Millisecond
	ext := NewWeakTopicExtractor(slowProvider{}, cfg)

	got := ext.Extract(context.Background(), wrongAnswers(1), "Go")
	assert.Empty(t, got)
}

type slowProvider struct{}

func (slowProvider) Generate(ctx context.Context, _ llm.Request) (*llm.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowProvider) ModelID() string { return "slow" }
