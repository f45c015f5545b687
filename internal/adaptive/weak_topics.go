package adaptive

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"strings"
	"text/template"
	"time"

	"github.com/samber/lo"

	"adaptive-quiz-service/internal/domain"
	"adaptive-quiz-service/internal/llm"
)

// MaxWeakTopics caps the labels returned by Extract.
const MaxWeakTopics = 5

// TopicsSchema is the generator response shape for weak-topic extraction.
var TopicsSchema = &llm.Schema{
	Name:        "weak-topics",
	Description: "Short labels for the sub-topics a learner struggled with",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"topics": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "3 to 5 labels of 2 to 4 words each",
			},
		},
		"required": []any{"topics"},
	},
	Validation: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"topics": map[string]any{"type": "array"},
		},
		"required": []any{"topics"},
	},
}

// ExtractorConfig holds configuration for the weak-topic extractor.
type ExtractorConfig struct {
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// DefaultExtractorConfig returns sensible defaults.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		Timeout:     20 * time.Second,
		MaxTokens:   256,
		Temperature: 0.3,
	}
}

// WeakTopicExtractor asks the generator to name the sub-topics behind a set of
// wrong answers. It never fails: any problem degrades to an empty list.
type WeakTopicExtractor struct {
	provider llm.Provider
	cfg      ExtractorConfig
}

// NewWeakTopicExtractor creates an extractor.
func NewWeakTopicExtractor(provider llm.Provider, cfg ExtractorConfig) *WeakTopicExtractor {
	return &WeakTopicExtractor{provider: provider, cfg: cfg}
}

type topicsOutput struct {
	Topics []any `json:"topics"`
}

// Extract returns up to MaxWeakTopics labels. Empty input makes no generator call.
func (e *WeakTopicExtractor) Extract(ctx context.Context, wrong []domain.WrongAnswer, topic string) []string {
	if len(wrong) == 0 {
		return []string{}
	}

	msg, err := buildTopicsMessage(topic, wrong)
	if err != nil {
		log.Printf("adaptive: weak-topic prompt: %v", err)
		return []string{}
	}

	ctx = llm.WithPurpose(ctx, "weak-topic-extraction")
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	resp, err := e.provider.Generate(ctx, llm.UserRequest(topicsSystemPrompt, msg, TopicsSchema, e.cfg.MaxTokens, e.cfg.Temperature))
	if err != nil {
		log.Printf("adaptive: weak-topic extraction failed, continuing without topics: %v", err)
		return []string{}
	}

	var out topicsOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		log.Printf("adaptive: weak-topic response unparsable, continuing without topics: %v", err)
		return []string{}
	}

	topics := cleanTopics(out.Topics)
	if len(topics) == 0 {
		log.Printf("adaptive: weak-topic extraction returned no labels for topic=%q", topic)
	}
	return topics
}

// cleanTopics trims, drops non-strings and blanks, de-duplicates case-insensitively and caps the list.
func cleanTopics(raw []any) []string {
	labels := lo.FilterMap(raw, func(v any, _ int) (string, bool) {
		s, ok := v.(string)
		s = strings.TrimSpace(s)
		return s, ok && s != ""
	})
	labels = lo.UniqBy(labels, strings.ToLower)
	if len(labels) > MaxWeakTopics {
		labels = labels[:MaxWeakTopics]
	}
	return labels
}

const topicsSystemPrompt = `You analyse quiz mistakes to find the concepts a learner is weak in.

Instructions:
- Return 3 to 5 short labels of 2 to 4 words each.
- Labels must be specific sub-topics of the given topic, not generic study advice.
- Respond with a JSON object of the form {"topics": ["...", "..."]}.`

var topicsUserTemplate = template.Must(template.New("weak-topics").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`Topic: {{.Topic}}

Questions answered incorrectly:
{{range $i, $w := .Wrong}}{{inc $i}}. {{$w.QuestionText}}
   Type: {{$w.QuestionType}}
   Explanation: {{$w.Explanation}}
{{end}}`))

func buildTopicsMessage(topic string, wrong []domain.WrongAnswer) (string, error) {
	var buf bytes.Buffer
	err := topicsUserTemplate.Execute(&buf, struct {
		Topic string
		Wrong []domain.WrongAnswer
	}{Topic: topic, Wrong: wrong})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
