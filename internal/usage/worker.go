package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskshare/taskshare/internal/metrics"
)

const (
	// ConsumerGroup is the Redis consumer group name.
	ConsumerGroup = "token_usage_workers"

	DefaultBatchSize     = 500
	DefaultBlockTimeout  = 5 * time.Second
	DefaultMaxRetries    = 3
	DefaultClaimInterval = 10 * time.Second
	DefaultClaimIdle     = 30 * time.Second
	DefaultDepthInterval = 5 * time.Second
)

// Store advances last_used_at. Implemented by *repository.Repository.
type Store interface {
	UpdateAccessTokenLastUsed(ctx context.Context, id string, at time.Time) error
}

// Worker drains the usage stream into the store.
type Worker struct {
	redis      *redis.Client
	store      Store
	logger     *slog.Logger
	metrics    metrics.Recorder
	consumerID string

	batchSize     int
	blockTimeout  time.Duration
	maxRetries    int
	retryBackoff  time.Duration
	claimInterval time.Duration
	claimIdle     time.Duration
	depthInterval time.Duration
	claimStartID  string
	lastClaim     time.Time
	lastDepth     time.Time
	now           func() time.Time

	mu       sync.Mutex
	started  bool
	draining bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewWorker creates a Worker. consumerID should be unique per process, see
// NewConsumerID.
func NewWorker(client *redis.Client, store Store, logger *slog.Logger, consumerID string, recorder metrics.Recorder) *Worker {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Worker{
		redis:         client,
		store:         store,
		logger:        logger.With(slog.String("component", "usage.worker"), slog.String("consumer_id", consumerID)),
		metrics:       recorder,
		consumerID:    consumerID,
		batchSize:     DefaultBatchSize,
		blockTimeout:  DefaultBlockTimeout,
		maxRetries:    DefaultMaxRetries,
		retryBackoff:  time.Second,
		claimInterval: DefaultClaimInterval,
		claimIdle:     DefaultClaimIdle,
		depthInterval: DefaultDepthInterval,
		claimStartID:  "0-0",
		now:           time.Now,
	}
}

// SetBatchSize overrides the default batch size.
func (w *Worker) SetBatchSize(size int) {
	if size > 0 {
		w.batchSize = size
	}
}

// SetBlockTimeout overrides how long a read blocks for new events.
func (w *Worker) SetBlockTimeout(timeout time.Duration) {
	if timeout > 0 {
		w.blockTimeout = timeout
	}
}

// SetRetryBackoff overrides the base delay between store retries.
func (w *Worker) SetRetryBackoff(d time.Duration) {
	if d > 0 {
		w.retryBackoff = d
	}
}

// Run consumes until ctx is cancelled or Shutdown is called.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("worker already started")
	}
	w.started = true
	w.done = make(chan struct{})
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	defer close(w.done)

	if err := w.ensureConsumerGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	w.logger.Info("usage worker started")

	for {
		w.mu.Lock()
		draining := w.draining
		w.mu.Unlock()
		if draining {
			return nil
		}

		select {
		case <-ctx.Done():
			w.logger.Info("usage worker stopping")
			return nil
		default:
		}

		if err := w.processOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			w.logger.Error("usage batch failed", slog.String("error", err.Error()))
			sleepCtx(ctx, time.Second)
		}
	}
}

// Shutdown stops the worker after the in-flight batch. It matches
// server.ShutdownFunc.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.draining = true
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()

	select {
	case <-done:
		w.logger.Info("usage worker stopped")
		return nil
	case <-ctx.Done():
		w.logger.Warn("usage worker shutdown timed out")
		return ctx.Err()
	}
}

func (w *Worker) ensureConsumerGroup(ctx context.Context) error {
	err := w.redis.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (w *Worker) processOnce(ctx context.Context) error {
	w.maybeReportDepth(ctx)

	messages, err := w.maybeClaimPending(ctx)
	if err != nil {
		w.logger.Warn("failed to claim pending events", slog.String("error", err.Error()))
	}
	if len(messages) == 0 {
		if messages, err = w.readBatch(ctx); err != nil {
			return err
		}
	}
	if len(messages) == 0 {
		return nil
	}

	batch := w.decode(messages)
	if len(batch.rejected) > 0 {
		if err := w.deadLetterAll(ctx, batch.rejected); err != nil {
			w.logger.Warn("failed to ack dead-lettered events", slog.String("error", err.Error()))
		}
	}
	if len(batch.ids) == 0 {
		return nil
	}

	if err := w.applyWithRetry(ctx, batch.latest); err != nil {
		// Left pending; XAUTOCLAIM picks it up again.
		return err
	}
	if err := w.redis.XAck(ctx, StreamKey, ConsumerGroup, batch.ids...).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

func (w *Worker) readBatch(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := w.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		Streams:  []string{StreamKey, ">"},
		Count:    int64(w.batchSize),
		Block:    w.blockTimeout,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}
	if len(streams) == 0 {
		return nil, nil
	}
	return streams[0].Messages, nil
}

func (w *Worker) maybeClaimPending(ctx context.Context) ([]redis.XMessage, error) {
	if !w.lastClaim.IsZero() && time.Since(w.lastClaim) < w.claimInterval {
		return nil, nil
	}
	w.lastClaim = time.Now()

	messages, next, err := w.redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamKey,
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		MinIdle:  w.claimIdle,
		Start:    w.claimStartID,
		Count:    int64(w.batchSize),
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}
	if next != "" {
		w.claimStartID = next
	}
	return messages, nil
}

func (w *Worker) maybeReportDepth(ctx context.Context) {
	if !w.lastDepth.IsZero() && time.Since(w.lastDepth) < w.depthInterval {
		return
	}
	w.lastDepth = time.Now()

	groups, err := w.redis.XInfoGroups(ctx, StreamKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			w.logger.Warn("failed to read stream group info", slog.String("error", err.Error()))
		}
		return
	}
	for _, g := range groups {
		if g.Name == ConsumerGroup {
			w.metrics.SetTokenUsageQueueDepth(g.Pending + g.Lag)
			return
		}
	}
}

// rejected is a message that failed to parse or validate.
type rejected struct {
	msg    redis.XMessage
	reason string
	detail string
}

// decodedBatch splits a batch into the newest use per token, the IDs that
// carried them, and the messages to dead-letter.
type decodedBatch struct {
	latest   map[string]time.Time
	ids      []string
	rejected []rejected
}

func (w *Worker) decode(messages []redis.XMessage) decodedBatch {
	b := decodedBatch{latest: make(map[string]time.Time), ids: make([]string, 0, len(messages))}

	for _, msg := range messages {
		event, reason, err := parseMessage(msg, w.now())
		if err != nil {
			b.rejected = append(b.rejected, rejected{msg: msg, reason: reason, detail: err.Error()})
			continue
		}
		b.ids = append(b.ids, msg.ID)
		at := time.UnixMilli(event.UsedAt).UTC()
		if prev, ok := b.latest[event.TokenID]; !ok || at.After(prev) {
			b.latest[event.TokenID] = at
		}
	}
	return b
}

func parseMessage(msg redis.XMessage, now time.Time) (Event, string, error) {
	payload, ok := msg.Values["payload"].(string)
	if !ok {
		return Event{}, "invalid_format", errors.New("payload field missing or not a string")
	}

	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return Event{}, "unmarshal_error", err
	}
	if err := event.Validate(now); err != nil {
		return Event{}, "validation_error", err
	}
	return event, "", nil
}

// deadLetterAll moves rejected messages to the dead-letter stream and acks
// them, so a later failure of the rest of the batch cannot replay them.
// Messages whose dead-letter write failed stay pending.
func (w *Worker) deadLetterAll(ctx context.Context, rejects []rejected) error {
	moved := make([]string, 0, len(rejects))
	for _, r := range rejects {
		if err := w.deadLetter(ctx, r); err != nil {
			w.logger.Error("failed to write to dead-letter stream",
				slog.String("message_id", r.msg.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		moved = append(moved, r.msg.ID)
	}
	if len(moved) == 0 {
		return nil
	}
	if err := w.redis.XAck(ctx, StreamKey, ConsumerGroup, moved...).Err(); err != nil {
		return fmt.Errorf("xack dead-lettered: %w", err)
	}
	return nil
}

func (w *Worker) deadLetter(ctx context.Context, r rejected) error {
	w.logger.Warn("dead-lettering usage event",
		slog.String("message_id", r.msg.ID),
		slog.String("reason", r.reason),
		slog.String("detail", r.detail),
	)

	err := w.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: DeadLetterStreamKey,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"original_id":      r.msg.ID,
			"reason":           r.reason,
			"detail":           r.detail,
			"payload":          r.msg.Values["payload"],
			"dead_lettered_at": time.Now().UTC().Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		return err
	}
	w.metrics.IncTokenUsage("dead_lettered")
	return nil
}

// applyWithRetry writes every entry, retrying the whole set with
// exponential backoff. Writes are monotonic so replays are harmless.
func (w *Worker) applyWithRetry(ctx context.Context, latest map[string]time.Time) error {
	var lastErr error
	for attempt := 1; attempt <= w.maxRetries; attempt++ {
		if lastErr = w.apply(ctx, latest); lastErr == nil {
			return nil
		}

		backoff := w.retryBackoff << (attempt - 1)
		w.logger.Warn("usage apply failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.String("error", lastErr.Error()),
		)
		if err := sleepCtx(ctx, backoff); err != nil {
			return err
		}
	}

	for range latest {
		w.metrics.IncTokenUsage("failed")
	}
	return lastErr
}

func (w *Worker) apply(ctx context.Context, latest map[string]time.Time) error {
	start := time.Now()
	for tokenID, at := range latest {
		if err := w.store.UpdateAccessTokenLastUsed(ctx, tokenID, at); err != nil {
			return fmt.Errorf("update token %s: %w", tokenID, err)
		}
	}

	for range latest {
		w.metrics.IncTokenUsage("applied")
	}
	w.logger.Debug("usage batch applied",
		slog.Int("tokens", len(latest)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
