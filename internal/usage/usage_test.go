package usage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskshare/taskshare/internal/metrics"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type flakyStore struct {
	mu       sync.Mutex
	failures int
	calls    int
	written  map[string]time.Time
}

func (s *flakyStore) UpdateAccessTokenLastUsed(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures > 0 {
		s.failures--
		return errors.New("connection reset")
	}
	if s.written == nil {
		s.written = make(map[string]time.Time)
	}
	s.written[id] = at
	return nil
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	valid := Event{TokenID: "01HZX3C8J9V6T3Q4W5E6R7T8Y9", UsedAt: now.UnixMilli()}
	if err := valid.Validate(now); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}

	tests := []struct {
		name  string
		event Event
	}{
		{"missing token", Event{UsedAt: now.UnixMilli()}},
		{"token too long", Event{TokenID: strings.Repeat("a", 65), UsedAt: now.UnixMilli()}},
		{"missing time", Event{TokenID: "tok"}},
		{"far future", Event{TokenID: "tok", UsedAt: now.Add(time.Hour).UnixMilli()}},
	}
	for _, tt := range tests {
		if err := tt.event.Validate(now); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestParseMessage(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tests := []struct {
		name       string
		values     map[string]interface{}
		wantReason string
	}{
		{"valid", map[string]interface{}{"payload": `{"tid":"tok","t":1700000000000}`}, ""},
		{"missing payload", map[string]interface{}{}, "invalid_format"},
		{"wrong type", map[string]interface{}{"payload": 42}, "invalid_format"},
		{"bad json", map[string]interface{}{"payload": "{"}, "unmarshal_error"},
		{"invalid event", map[string]interface{}{"payload": `{"tid":"","t":1}`}, "validation_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, reason, err := parseMessage(redis.XMessage{ID: "1-0", Values: tt.values}, now)
			if reason != tt.wantReason {
				t.Fatalf("reason = %q, want %q (err %v)", reason, tt.wantReason, err)
			}
			if tt.wantReason == "" && event.TokenID != "tok" {
				t.Errorf("event = %+v", event)
			}
		})
	}
}

func TestDecode_KeepsNewestPerToken(t *testing.T) {
	t.Parallel()

	w := NewWorker(nil, &flakyStore{}, testLogger, "test", nil)
	msgs := []redis.XMessage{
		{ID: "1-0", Values: map[string]interface{}{"payload": `{"tid":"a","t":1700000002000}`}},
		{ID: "2-0", Values: map[string]interface{}{"payload": `{"tid":"a","t":1700000001000}`}},
		{ID: "3-0", Values: map[string]interface{}{"payload": `{"tid":"b","t":1700000000000}`}},
	}

	b := w.decode(msgs)
	if len(b.ids) != 3 || len(b.rejected) != 0 {
		t.Errorf("ids = %v, rejected = %v, want all three accepted", b.ids, b.rejected)
	}
	if len(b.latest) != 2 {
		t.Fatalf("latest = %v, want two tokens", b.latest)
	}
	if got := b.latest["a"].UnixMilli(); got != 1700000002000 {
		t.Errorf("token a = %d, want the newest use", got)
	}
}

func TestDecode_SeparatesRejects(t *testing.T) {
	t.Parallel()

	w := NewWorker(nil, &flakyStore{}, testLogger, "test", nil)
	msgs := []redis.XMessage{
		{ID: "1-0", Values: map[string]interface{}{"payload": `{"tid":"a","t":1700000000000}`}},
		{ID: "2-0", Values: map[string]interface{}{"payload": "garbage"}},
		{ID: "3-0", Values: map[string]interface{}{"other": "x"}},
		{ID: "4-0", Values: map[string]interface{}{"payload": `{"tid":"","t":1700000000000}`}},
	}

	b := w.decode(msgs)
	if len(b.ids) != 1 || b.ids[0] != "1-0" {
		t.Errorf("ids = %v, want only the valid message", b.ids)
	}

	got := make(map[string]string, len(b.rejected))
	for _, r := range b.rejected {
		got[r.msg.ID] = r.reason
	}
	want := map[string]string{"2-0": "unmarshal_error", "3-0": "invalid_format", "4-0": "validation_error"}
	if len(got) != len(want) {
		t.Fatalf("rejected = %v, want %v", got, want)
	}
	for id, reason := range want {
		if got[id] != reason {
			t.Errorf("%s reason = %q, want %q", id, got[id], reason)
		}
	}
}

func TestApplyWithRetry(t *testing.T) {
	t.Parallel()

	t.Run("recovers from transient failure", func(t *testing.T) {
		store := &flakyStore{failures: 1}
		rec := metrics.NewInMemory()
		w := NewWorker(nil, store, testLogger, "test", rec)
		w.SetRetryBackoff(time.Millisecond)

		at := time.Now().UTC()
		if err := w.applyWithRetry(context.Background(), map[string]time.Time{"a": at}); err != nil {
			t.Fatalf("applyWithRetry: %v", err)
		}
		if !store.written["a"].Equal(at) {
			t.Errorf("written = %v", store.written)
		}
		if rec.Snapshot().TokenUsage["applied"] != 1 {
			t.Errorf("TokenUsage = %v", rec.Snapshot().TokenUsage)
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		store := &flakyStore{failures: 100}
		rec := metrics.NewInMemory()
		w := NewWorker(nil, store, testLogger, "test", rec)
		w.SetRetryBackoff(time.Millisecond)

		if err := w.applyWithRetry(context.Background(), map[string]time.Time{"a": time.Now()}); err == nil {
			t.Fatal("expected error")
		}
		if store.calls != DefaultMaxRetries {
			t.Errorf("calls = %d, want %d", store.calls, DefaultMaxRetries)
		}
		if rec.Snapshot().TokenUsage["failed"] != 1 {
			t.Errorf("TokenUsage = %v", rec.Snapshot().TokenUsage)
		}
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		w := NewWorker(nil, &flakyStore{failures: 100}, testLogger, "test", nil)
		w.SetRetryBackoff(time.Hour)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := w.applyWithRetry(ctx, map[string]time.Time{"a": time.Now()}); !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}

func TestShutdownBeforeRun(t *testing.T) {
	t.Parallel()

	w := NewWorker(nil, &flakyStore{}, testLogger, "test", nil)
	if err := w.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestNewConsumerID(t *testing.T) {
	t.Parallel()

	a, b := NewConsumerID(""), NewConsumerID("  ")
	if a == "" || a == b {
		t.Errorf("derived consumer ids should be unique: %q %q", a, b)
	}
	if !strings.Contains(a, fmt.Sprintf("-%d-", os.Getpid())) {
		t.Errorf("derived id %q should carry the pid", a)
	}

	if got := NewConsumerID(" api-7f9c "); got != "api-7f9c" {
		t.Errorf("configured name = %q, want api-7f9c", got)
	}
}
