package llm

import "context"

type purposeKey struct{}

// WithPurpose tags ctx with what the call is for, such as
// "weak-topic-extraction". The audit log records the tag.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom returns the tag set by WithPurpose, or "unknown".
func PurposeFrom(ctx context.Context) string {
	purpose, _ := ctx.Value(purposeKey{}).(string)
	if purpose == "" {
		return "unknown"
	}
	return purpose
}
