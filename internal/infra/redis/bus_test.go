package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewBus(client, 4, 50*time.Millisecond)
}

func TestBusRoundTripKeepsPerKeyOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := newTestBus(t)

	for i := 0; i < 5; i++ {
		if err := bus.Publish(ctx, "quiz.submitted", "quiz-1", []byte(fmt.Sprintf("event-%d", i))); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	received := make(chan string, 5)
	go func() {
		_ = bus.Consume(ctx, "quiz.submitted", "scorer", func(_ context.Context, payload []byte) error {
			received <- string(payload)
			return nil
		})
	}()

	for i := 0; i < 5; i++ {
		select {
		case got := <-received:
			want := fmt.Sprintf("event-%d", i)
			if got != want {
				t.Fatalf("expected %s in order, got %s", want, got)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestBusHandlerErrorIsFatal(t *testing.T) {
	ctx := context.Background()
	bus := newTestBus(t)

	if err := bus.Publish(ctx, "quiz.submitted", "quiz-1", []byte("boom")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	wantErr := errors.New("store unreachable")
	err := bus.Consume(ctx, "quiz.submitted", "scorer", func(context.Context, []byte) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected handler error to surface, got %v", err)
	}
}

func TestBusRedeliversPendingAfterRestart(t *testing.T) {
	ctx := context.Background()
	bus := newTestBus(t)

	if err := bus.Publish(ctx, "quiz.submitted", "quiz-1", []byte("retry-me")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	// First run reads the entry, fails, and exits without acking.
	wantErr := errors.New("store unreachable")
	err := bus.Consume(ctx, "quiz.submitted", "scorer", func(context.Context, []byte) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected handler error to surface, got %v", err)
	}

	// The restarted consumer must see the unacknowledged entry again.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	received := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- bus.Consume(runCtx, "quiz.submitted", "scorer", func(_ context.Context, payload []byte) error {
			received <- string(payload)
			return nil
		})
	}()

	select {
	case got := <-received:
		if got != "retry-me" {
			t.Fatalf("expected the pending entry back, got %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("pending entry was not redelivered after restart")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
}

func TestBusConsumeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := newTestBus(t)

	done := make(chan error, 1)
	go func() {
		done <- bus.Consume(ctx, "quiz.notification", "gateway", func(context.Context, []byte) error { return nil })
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("consumer did not stop on cancel")
	}
}
