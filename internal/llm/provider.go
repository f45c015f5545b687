package llm

import (
	"context"
	"encoding/json"
)

// Provider is the generator boundary: prompt text in, raw JSON out.
type Provider interface {
	// Generate sends the request and returns the model output. When req.Schema is
	// set the content has already passed the schema's validation definition.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the model.
type Request struct {
	// System is the system instruction.
	System string

	// Messages is the conversation. Quiz generation sends a single user message.
	Messages []Message

	// Schema, when set, asks the provider for structured JSON output.
	Schema *Schema

	MaxTokens   int
	Temperature float64
}

// Message is a single conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema describes the JSON shape expected from the model.
type Schema struct {
	// Name identifies the schema (OpenAI schema name), kebab-case.
	Name string

	Description string

	// Definition is the JSON Schema sent to the provider as generation guidance.
	Definition map[string]any

	// Validation, when set, is the schema responses are checked against instead of
	// Definition. Used to validate only the envelope and leave items to callers.
	Validation map[string]any

	// Strict enables OpenAI strict schema adherence. Strict schemas must mark every
	// property required and disallow additional properties.
	Strict bool
}

func (s *Schema) validationDefinition() map[string]any {
	if s.Validation != nil {
		return s.Validation
	}
	return s.Definition
}

// Response holds the model output.
type Response struct {
	// Content is the raw JSON returned by the model.
	Content json.RawMessage

	Usage Usage

	// Model is the model that served the request.
	Model string

	// StopReason is normalized to "end", "max_tokens" or "error".
	StopReason string
}

// Usage tracks token consumption for one request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// UserRequest is a convenience for the common single-message request.
func UserRequest(system, prompt string, schema *Schema, maxTokens int, temperature float64) Request {
	return Request{
		System:      system,
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		Schema:      schema,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}
