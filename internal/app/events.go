package app

import (
	"context"
	"sync"
	"time"

	"adaptive-quiz-service/internal/domain"
)

// AttemptEventType names an attempt state change.
type AttemptEventType string

const (
	EventAttemptStarted   AttemptEventType = "attempt.started"
	EventAnswerRecorded   AttemptEventType = "attempt.answered"
	EventAttemptCompleted AttemptEventType = "attempt.completed"
	EventAttemptAbandoned AttemptEventType = "attempt.abandoned"
)

// AttemptEvent is emitted after every successful attempt mutation.
type AttemptEvent struct {
	Type       AttemptEventType `json:"type"`
	Attempt    domain.Attempt   `json:"attempt"`
	ResultSlug string           `json:"resultSlug,omitempty"`
	Score      int              `json:"score,omitempty"`
	Total      int              `json:"total,omitempty"`
	At         time.Time        `json:"at"`
}

// Notifier receives attempt events. Delivery is fire-and-forget: Notify must not block for long and has no error path.
type Notifier interface {
	Notify(ctx context.Context, event AttemptEvent)
}

// EventHub fans attempt events out to in-process subscribers keyed by attempt slug.
type EventHub struct {
	mu          sync.Mutex
	subscribers map[string]map[chan AttemptEvent]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{subscribers: make(map[string]map[chan AttemptEvent]struct{})}
}

// Subscribe returns a channel of events for one attempt.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *EventHub) Subscribe(attemptSlug string) (<-chan AttemptEvent, func()) {
	ch := make(chan AttemptEvent, 8)

	h.mu.Lock()
	subs, ok := h.subscribers[attemptSlug]
	if !ok {
		subs = make(map[chan AttemptEvent]struct{})
		h.subscribers[attemptSlug] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs := h.subscribers[attemptSlug]
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(h.subscribers, attemptSlug)
		}
	}
	return ch, cancel
}

// Notify delivers event to every subscriber of its attempt. A slow subscriber
// loses its oldest buffered event rather than blocking the sender.
func (h *EventHub) Notify(_ context.Context, event AttemptEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[event.Attempt.Slug] {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

// SubscriberCount reports how many subscribers an attempt has.
func (h *EventHub) SubscriberCount(attemptSlug string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[attemptSlug])
}
