package llm

import "fmt"

// Provider failures are typed so the retry wrapper can tell transient
// trouble from output that will not get better on a second call.

// ErrRateLimit is a 429 from the provider.
type ErrRateLimit struct{ Err error }

func (e *ErrRateLimit) Error() string { return fmt.Sprintf("llm rate limited: %v", e.Err) }
func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrProviderUnavailable covers 5xx replies, transport errors and an empty mock queue.
type ErrProviderUnavailable struct{ Err error }

func (e *ErrProviderUnavailable) Error() string {
	if e.Err == nil {
		return "llm provider unavailable"
	}
	return fmt.Sprintf("llm provider unavailable: %v", e.Err)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrInvalidResponse means the model answered with something that is not
// JSON or does not fit the requested schema.
type ErrInvalidResponse struct{ Err error }

func (e *ErrInvalidResponse) Error() string { return fmt.Sprintf("llm response rejected: %v", e.Err) }
func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded means generation stopped at the token cap, so the
// question set is cut off.
type ErrMaxTokensExceeded struct{}

func (e *ErrMaxTokensExceeded) Error() string { return "llm response truncated at max tokens" }
