package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// MockResponse is one scripted reply: either Content or Err.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockProvider replays scripted replies in order and keeps every request it
// saw in Calls. Content goes through the same fence stripping and schema
// check as a real provider, so a malformed script fails like a bad model.
type MockProvider struct {
	mu      sync.Mutex
	pending []MockResponse
	Calls   []Request
}

func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{pending: responses}
}

func (m *MockProvider) ModelID() string { return "mock" }

// AddResponse queues another reply.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	m.pending = append(m.pending, resp)
	m.mu.Unlock()
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Generate fails with ErrProviderUnavailable once the script runs out.
func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return nil, &ErrProviderUnavailable{}
	}
	next := m.pending[0]
	m.pending = m.pending[1:]
	m.mu.Unlock()

	if next.Err != nil {
		return nil, next.Err
	}
	content := json.RawMessage(stripCodeFence(next.Content))
	if err := validateResponse(req.Schema, content); err != nil {
		return nil, err
	}
	return &Response{Content: content, Usage: next.Usage, Model: "mock", StopReason: "end"}, nil
}
