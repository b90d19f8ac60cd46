// Package usage moves access token use events off the request path. The
// auth middleware publishes one event per authenticated request to a Redis
// stream; a worker coalesces them and advances last_used_at in PostgreSQL.
package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskshare/taskshare/internal/metrics"
)

const (
	// StreamKey is the Redis stream for token use events.
	StreamKey = "stream:token_usage"

	// DeadLetterStreamKey receives events the worker cannot decode.
	DeadLetterStreamKey = "stream:token_usage:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 100 * time.Millisecond
)

// Event is the wire format of one token use.
type Event struct {
	TokenID string `json:"tid"`
	UsedAt  int64  `json:"t"` // Unix milliseconds
}

// Publisher enqueues token use events.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewPublisher creates a Publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With(slog.String("component", "usage.publisher")),
		metrics: recorder,
	}
}

// Publish adds an event to the stream and returns its stream ID.
func (p *Publisher) Publish(ctx context.Context, event Event) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	id, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{"payload": string(data)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}
	return id, nil
}

// RecordTokenUse publishes in the background. A failed publish only costs
// a stale last_used_at, so errors are logged and counted, never returned.
func (p *Publisher) RecordTokenUse(tokenID string, at time.Time) {
	event := Event{TokenID: tokenID, UsedAt: at.UnixMilli()}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		if _, err := p.Publish(ctx, event); err != nil {
			p.logger.Warn("failed to publish token use",
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()),
			)
			p.metrics.IncTokenUsage("dropped")
			return
		}
		p.metrics.IncTokenUsage("published")
	}()
}
