package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so transports can map it without inspecting messages.
type Kind string

const (
	KindNotFound         Kind = "NotFound"
	KindForbidden        Kind = "Forbidden"
	KindInvalidState     Kind = "InvalidState"
	KindOutOfRange       Kind = "OutOfRange"
	KindNoValidQuestions Kind = "NoValidQuestions"
	KindUpstreamFailure  Kind = "UpstreamFailure"
	KindInvalidArgument  Kind = "InvalidArgument"
)

// Error is a classified domain failure. Message is safe to show to callers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind-only sentinels (ErrNotFound, ErrForbidden, ...) against any error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t == e {
		return true
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Errorf builds a classified error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind, keeping it for errors.As / logs.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first domain error in err's chain, or "" for unclassified errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// Kind sentinels: errors.Is(err, ErrNotFound) holds for every not-found error.
var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrForbidden        = &Error{Kind: KindForbidden}
	ErrInvalidState     = &Error{Kind: KindInvalidState}
	ErrOutOfRange       = &Error{Kind: KindOutOfRange}
	ErrUpstreamFailure  = &Error{Kind: KindUpstreamFailure}
	ErrInvalidArgument  = &Error{Kind: KindInvalidArgument}
	ErrNoValidQuestions = &Error{Kind: KindNoValidQuestions, Message: "generator returned no valid questions"}
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = &Error{Kind: KindNotFound, Message: "quiz not found"}
	// ErrAttemptNotFound is returned for unknown attempt slugs.
	ErrAttemptNotFound = &Error{Kind: KindNotFound, Message: "attempt not found"}
	// ErrResultNotFound is returned for unknown result slugs.
	ErrResultNotFound = &Error{Kind: KindNotFound, Message: "result not found"}
	// ErrNotOwner is returned when a user acts on an entity they do not own.
	ErrNotOwner = &Error{Kind: KindForbidden, Message: "not owned by user"}
	// ErrQuizNotAccessible is returned when starting a private quiz owned by someone else.
	ErrQuizNotAccessible = &Error{Kind: KindForbidden, Message: "quiz is private"}
	// ErrAdaptiveQuizPublic is returned when trying to publish an adaptive quiz.
	ErrAdaptiveQuizPublic = &Error{Kind: KindForbidden, Message: "adaptive quizzes cannot be made public"}
	// ErrAttemptNotInProgress indicates the attempt already reached a terminal state.
	ErrAttemptNotInProgress = &Error{Kind: KindInvalidState, Message: "attempt is not in progress"}
	// ErrAttemptSubmitted is returned once a result is stored for the attempt, even
	// if its status flip to completed has not landed yet.
	ErrAttemptSubmitted = &Error{Kind: KindInvalidState, Message: "attempt already submitted"}
	// ErrQuestionOutOfRange indicates a question index beyond the quiz.
	ErrQuestionOutOfRange = &Error{Kind: KindOutOfRange, Message: "question index out of range"}
	// ErrOptionOutOfRange indicates a selected option index beyond the question's options.
	ErrOptionOutOfRange = &Error{Kind: KindOutOfRange, Message: "selected option out of range"}
	// ErrQuizInconsistent indicates a quiz whose declared count no longer matches its questions.
	ErrQuizInconsistent = &Error{Kind: KindInvalidState, Message: "quiz question count does not match its definition"}
)
