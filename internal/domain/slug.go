package domain

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const maxSlugPrefix = 48

// Slugify lowercases s and joins its letter/digit runs with single hyphens.
func Slugify(s string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	out := b.String()
	if runes := []rune(out); len(runes) > maxSlugPrefix {
		out = strings.TrimRight(string(runes[:maxSlugPrefix]), "-")
	}
	if out == "" {
		return "quiz"
	}
	return out
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

// NewQuizSlug is the slugified topic plus a random suffix.
func NewQuizSlug(topic string) string {
	return Slugify(topic) + "-" + randomSuffix()
}

// NewAttemptSlug returns "attempt-<rand>".
func NewAttemptSlug() string {
	return "attempt-" + randomSuffix()
}

// NewResultSlug returns "result-<topic-slug>-<rand>".
func NewResultSlug(topic string) string {
	return "result-" + Slugify(topic) + "-" + randomSuffix()
}
