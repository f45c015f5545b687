package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaptive-quiz-service/internal/llm"
)

func openTestStore(t *testing.T) *AuditStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "audit", "llm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordLLMRequest(ctx, llm.AuditRecord{
		Timestamp: base, Purpose: "quiz-generation", Model: "gpt-4o-mini",
		InputTokens: 120, OutputTokens: 800, LatencyMs: 1500, Success: true,
		RequestBody: "[user]\nTopic: Go", ResponseBody: `{"questions":[]}`,
	}))
	require.NoError(t, s.RecordLLMRequest(ctx, llm.AuditRecord{
		Timestamp: base.Add(time.Minute), Purpose: "weak-topic-extraction", Model: "gpt-4o-mini",
		Success: false, ErrorMessage: "rate limited",
	}))

	recs, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "weak-topic-extraction", recs[0].Purpose)
	assert.False(t, recs[0].Success)
	assert.Equal(t, "rate limited", recs[0].ErrorMessage)

	assert.Equal(t, "quiz-generation", recs[1].Purpose)
	assert.True(t, recs[1].Success)
	assert.Equal(t, 800, recs[1].OutputTokens)
	assert.True(t, base.Equal(recs[1].Timestamp))
}

func TestRecentHonoursLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for i := range 5 {
		require.NoError(t, s.RecordLLMRequest(ctx, llm.AuditRecord{
			Timestamp: time.Now().Add(time.Duration(i) * time.Second), Purpose: "quiz-generation", Model: "mock",
		}))
	}
	recs, err := s.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestAuditProviderWritesToStore(t *testing.T) {
	s := openTestStore(t)
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{"topics":["loops"]}`)})
	p := llm.WithAudit(mock, s)

	ctx := llm.WithPurpose(context.Background(), "weak-topic-extraction")
	_, err := p.Generate(ctx, llm.UserRequest("", "hi", nil, 64, 0))
	require.NoError(t, err)

	recs, err := s.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "weak-topic-extraction", recs[0].Purpose)
	assert.True(t, recs[0].Success)
	assert.Contains(t, recs[0].RequestBody, "hi")
}
