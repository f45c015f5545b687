package redis

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"adaptive-quiz-service/internal/app"
)

const publishTimeout = 500 * time.Millisecond

// EventPublisher forwards attempt events to a Redis pub/sub channel for
// analytics consumers. Failures are logged and dropped.
type EventPublisher struct {
	client  *redis.Client
	channel string
}

func NewEventPublisher(client *redis.Client, channel string) *EventPublisher {
	return &EventPublisher{client: client, channel: channel}
}

func (p *EventPublisher) Notify(ctx context.Context, event app.AttemptEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("redis: encode %s event: %v", event.Type, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		log.Printf("redis: publish %s event for %s: %v", event.Type, event.Attempt.Slug, err)
	}
}
